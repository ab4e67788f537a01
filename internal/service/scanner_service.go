package service

import (
	"context"
	"sync"

	"github.com/psds-microservice/checkin-scanner/internal/camera"
	"github.com/psds-microservice/checkin-scanner/internal/errs"
	"github.com/psds-microservice/checkin-scanner/internal/scanner"
	"go.uber.org/zap"
)

// ScannerServicer is what handlers need from ScannerService.
type ScannerServicer interface {
	Start() (scanner.View, error)
	Stop() (scanner.View, error)
	Next() (scanner.View, error)
	Back() error
	State() (scanner.View, error)
	Close()
}

// ScannerService owns the scanner of the selected event. The scanner is
// opened on the first start. It is closed on back and whenever the stored
// session ends or another event is selected.
type ScannerService struct {
	sessions  SessionServicer
	device    camera.Device
	decoder   scanner.FrameDecoder
	validator scanner.Validator
	notifier  scanner.Notifier
	opts      scanner.Options
	log       *zap.Logger

	mu     sync.Mutex
	ctx    context.Context
	runner *scanner.Runner
	// session and event the runner was opened for
	sessionID string
	eventID   int64
}

// NewScannerService creates the scanner service and ties it to session expiry.
func NewScannerService(
	sessions SessionServicer,
	dev camera.Device,
	dec scanner.FrameDecoder,
	v scanner.Validator,
	n scanner.Notifier,
	opts scanner.Options,
	log *zap.Logger,
) *ScannerService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &ScannerService{
		sessions:  sessions,
		device:    dev,
		decoder:   dec,
		validator: v,
		notifier:  n,
		opts:      opts,
		log:       log,
		ctx:       context.Background(),
	}
	sessions.OnExpire(s.Close)
	return s
}

// SetContext sets the app context scanners run under (shutdown propagation).
func (s *ScannerService) SetContext(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
}

// open returns the running scanner for the session's event, replacing one
// left over from another session or event. Caller holds s.mu.
func (s *ScannerService) open() (*scanner.Runner, error) {
	sess, err := s.sessions.Current()
	if err != nil {
		s.closeRunner()
		return nil, err
	}
	if !sess.HasEvent() {
		s.closeRunner()
		return nil, errs.ErrEventNotSelected
	}
	if r, err := s.current(); err == nil {
		return r, nil
	}
	host := scanner.Host{
		Token:     sess.Token,
		EventID:   sess.EventID,
		EventName: sess.EventName,
		OnSessionExpired: func() {
			s.sessions.ExpireSession(sess.ID)
		},
		OnBack: func() {
			s.log.Info("scanner closed by operator", zap.Int64("event_id", sess.EventID))
		},
	}
	r := scanner.NewRunner(host, s.device, s.decoder, s.validator, s.notifier, s.log, s.opts)
	go r.Run(s.ctx)
	s.runner = r
	s.sessionID = sess.ID
	s.eventID = sess.EventID
	s.log.Info("scanner opened",
		zap.String("session_id", sess.ID),
		zap.Int64("event_id", sess.EventID),
		zap.String("event_name", sess.EventName))
	return r, nil
}

// current returns the open scanner if it still belongs to the stored session
// and its selected event. A scanner left from another session or event is
// closed. Caller holds s.mu.
func (s *ScannerService) current() (*scanner.Runner, error) {
	if s.runner == nil {
		return nil, errs.ErrScannerNotOpen
	}
	select {
	case <-s.runner.Done():
		s.runner = nil
		return nil, errs.ErrScannerNotOpen
	default:
	}
	sess, err := s.sessions.Current()
	if err != nil || sess.ID != s.sessionID || sess.EventID != s.eventID {
		s.closeRunner()
		return nil, errs.ErrScannerNotOpen
	}
	return s.runner, nil
}

// closeRunner tears down the open scanner, if any. Caller holds s.mu.
func (s *ScannerService) closeRunner() {
	if s.runner == nil {
		return
	}
	s.runner.Close()
	s.runner = nil
	s.sessionID = ""
	s.eventID = 0
}

// Start opens the scanner if needed and asks it to start the camera.
func (s *ScannerService) Start() (scanner.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.open()
	if err != nil {
		return scanner.View{}, err
	}
	r.Start()
	return r.View(), nil
}

// Stop stops the camera; the scanner stays open.
func (s *ScannerService) Stop() (scanner.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.current()
	if err != nil {
		return scanner.View{}, err
	}
	r.Stop()
	return r.View(), nil
}

// Next dismisses the shown result and resumes scanning.
func (s *ScannerService) Next() (scanner.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.current()
	if err != nil {
		return scanner.View{}, err
	}
	r.ScanNext()
	return r.View(), nil
}

// Back closes the scanner view.
func (s *ScannerService) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.current()
	if err != nil {
		return err
	}
	r.Back()
	s.runner = nil
	s.sessionID = ""
	s.eventID = 0
	return nil
}

// State returns the scanner state, or an idle state for the selected event
// when no scanner is open.
func (s *ScannerService) State() (scanner.View, error) {
	s.mu.Lock()
	r, err := s.current()
	s.mu.Unlock()
	if err == nil {
		return r.View(), nil
	}
	sess, err := s.sessions.Current()
	if err != nil {
		return scanner.View{}, err
	}
	v := scanner.State{}.View()
	v.EventID = sess.EventID
	v.EventName = sess.EventName
	return v, nil
}

// Close tears down the open scanner, if any.
func (s *ScannerService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeRunner()
}
