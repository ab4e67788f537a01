package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/psds-microservice/checkin-scanner/internal/errs"
	"github.com/psds-microservice/checkin-scanner/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OTPLength is the number of digits of an operator access code.
const OTPLength = 10

// TokenExchanger exchanges an OTP for an access token.
type TokenExchanger interface {
	GetAccessToken(ctx context.Context, otp string) (*model.LoginResponse, error)
}

// SessionServicer is what handlers and the scanner need from the session store.
type SessionServicer interface {
	Login(ctx context.Context, otp string) (*model.Session, error)
	Current() (*model.Session, error)
	SelectEvent(eventID int64, eventName string) (*model.Session, error)
	Logout() error
	Expire()
	ExpireSession(id string)
	OnExpire(fn func())
}

// SessionService keeps the operator session of this station. There is at
// most one session; logging in replaces it.
type SessionService struct {
	db  *gorm.DB
	api TokenExchanger
	log *zap.Logger

	mu       sync.Mutex
	onExpire []func()
}

// NewSessionService creates a session service.
func NewSessionService(db *gorm.DB, api TokenExchanger, log *zap.Logger) *SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionService{db: db, api: api, log: log}
}

// ValidateOTP checks that otp is exactly OTPLength digits.
func ValidateOTP(otp string) error {
	if len(otp) != OTPLength {
		return errs.ErrInvalidOTP
	}
	for _, r := range otp {
		if r < '0' || r > '9' {
			return errs.ErrInvalidOTP
		}
	}
	return nil
}

// Login exchanges the OTP for a token and stores a new session.
func (s *SessionService) Login(ctx context.Context, otp string) (*model.Session, error) {
	otp = strings.TrimSpace(otp)
	if err := ValidateOTP(otp); err != nil {
		return nil, err
	}
	resp, err := s.api.GetAccessToken(ctx, otp)
	if err != nil {
		return nil, fmt.Errorf("get access token: %w", err)
	}
	if resp == nil || resp.Token == "" {
		msg := "Login failed"
		if resp != nil && resp.Message != "" {
			msg = resp.Message
		}
		return nil, fmt.Errorf("%w: %s", errs.ErrLoginFailed, msg)
	}
	ent := &model.OperatorSession{
		ID:    uuid.New().String(),
		Token: resp.Token,
	}
	var replaced int64
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("1 = 1").Delete(&model.OperatorSession{})
		if res.Error != nil {
			return res.Error
		}
		replaced = res.RowsAffected
		return tx.Create(ent).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("operator logged in", zap.String("session_id", ent.ID))
	if replaced > 0 {
		s.fireExpire()
	}
	return entityToSession(ent), nil
}

// Current returns the stored session.
func (s *SessionService) Current() (*model.Session, error) {
	var ent model.OperatorSession
	if err := s.db.Order("created_at desc").First(&ent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNoSession
		}
		return nil, err
	}
	return entityToSession(&ent), nil
}

// SelectEvent stores the event the operator is going to work with.
func (s *SessionService) SelectEvent(eventID int64, eventName string) (*model.Session, error) {
	var ent model.OperatorSession
	if err := s.db.Order("created_at desc").First(&ent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNoSession
		}
		return nil, err
	}
	if err := s.db.Model(&ent).Updates(map[string]interface{}{
		"event_id":   eventID,
		"event_name": eventName,
	}).Error; err != nil {
		return nil, err
	}
	ent.EventID = eventID
	ent.EventName = eventName
	s.log.Info("event selected", zap.String("session_id", ent.ID), zap.Int64("event_id", eventID))
	return entityToSession(&ent), nil
}

// Logout deletes the session.
func (s *SessionService) Logout() error {
	if err := s.db.Where("1 = 1").Delete(&model.OperatorSession{}).Error; err != nil {
		return err
	}
	s.log.Info("operator logged out")
	s.fireExpire()
	return nil
}

// Expire discards the session after the remote API rejected its token.
func (s *SessionService) Expire() {
	res := s.db.Where("1 = 1").Delete(&model.OperatorSession{})
	if res.Error != nil {
		s.log.Error("failed to delete expired session", zap.Error(res.Error))
	}
	if res.RowsAffected > 0 {
		s.log.Warn("session expired")
	}
	s.fireExpire()
}

// ExpireSession discards session id after the remote API rejected its token.
// A session that was already replaced by a newer login is left alone.
func (s *SessionService) ExpireSession(id string) {
	res := s.db.Where("id = ?", id).Delete(&model.OperatorSession{})
	if res.Error != nil {
		s.log.Error("failed to delete expired session", zap.String("session_id", id), zap.Error(res.Error))
		return
	}
	if res.RowsAffected == 0 {
		return
	}
	s.log.Warn("session expired", zap.String("session_id", id))
	s.fireExpire()
}

// OnExpire registers fn to run whenever the stored session ends, including
// when a new login replaces it.
func (s *SessionService) OnExpire(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = append(s.onExpire, fn)
}

func (s *SessionService) fireExpire() {
	s.mu.Lock()
	fns := append([]func(){}, s.onExpire...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// ExpireOnUnauthorized expires the session when err is an authorization
// failure and returns err unchanged.
func ExpireOnUnauthorized(sessions SessionServicer, err error) error {
	if err != nil && errors.Is(err, errs.ErrUnauthorized) {
		sessions.Expire()
	}
	return err
}

func entityToSession(ent *model.OperatorSession) *model.Session {
	return &model.Session{
		ID:        ent.ID,
		Token:     ent.Token,
		EventID:   ent.EventID,
		EventName: ent.EventName,
		CreatedAt: ent.CreatedAt,
	}
}
