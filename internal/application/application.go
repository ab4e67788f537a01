package application

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/checkin-scanner/internal/camera"
	"github.com/psds-microservice/checkin-scanner/internal/config"
	"github.com/psds-microservice/checkin-scanner/internal/database"
	"github.com/psds-microservice/checkin-scanner/internal/decoder"
	"github.com/psds-microservice/checkin-scanner/internal/handler"
	"github.com/psds-microservice/checkin-scanner/internal/router"
	"github.com/psds-microservice/checkin-scanner/internal/scanner"
	"github.com/psds-microservice/checkin-scanner/internal/scannerapi"
	"github.com/psds-microservice/checkin-scanner/internal/service"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

// NewLogger builds the process logger: development config for APP_ENV=development,
// production otherwise, at LOG_LEVEL.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.AppEnv == "development" {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.LogLevel != "" {
		lvl, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}

// API is the HTTP + WebSocket API application.
type API struct {
	cfg     *config.Config
	srv     *http.Server
	db      *gorm.DB
	hub     *service.StreamHub
	scanner *service.ScannerService
	log     *zap.Logger
}

// NewAPI creates the API application: validates config, runs migrations, opens DB, builds router.
func NewAPI(cfg *config.Config, logger *zap.Logger) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.MigrateUp(cfg.DatabaseURL(), logger); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DB.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	api := scannerapi.NewClient(cfg.ScannerAPIURL, &http.Client{Timeout: cfg.ScannerAPITimeout}, logger)

	hub := service.NewStreamHub(cfg.WSMaxMessageSize, logger)
	hub.SetReadLimit(cfg.WSMaxMessageSize)
	hub.SetBufferSizes(cfg.WSReadBufferSize, cfg.WSWriteBufferSize)
	hub.SetDeviceID(cfg.CameraDeviceID)

	sessionSvc := service.NewSessionService(db, api, logger)
	eventSvc := service.NewEventService(api, sessionSvc, cfg.AttendeesPageSize)
	scannerSvc := service.NewScannerService(sessionSvc, hub, decoder.New(true), api, hub, ScannerOptions(cfg), logger)

	health := handler.NewHealthHandler(func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Ping()
	}, func() int { return hub.PeerCount(service.PeerRoleCamera) })

	r := router.New(
		handler.NewSessionHandler(sessionSvc, eventSvc),
		handler.NewEventHandler(eventSvc),
		handler.NewScannerHandler(scannerSvc),
		handler.NewStreamWSHandler(hub, logger),
		health,
		logger,
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{cfg: cfg, srv: srv, db: db, hub: hub, scanner: scannerSvc, log: logger}, nil
}

// ScannerOptions maps configuration to scanner options.
func ScannerOptions(cfg *config.Config) scanner.Options {
	return scanner.Options{
		Interval: cfg.ScanInterval,
		Constraints: camera.Constraints{
			FacingMode:  camera.FacingMode(cfg.CameraFacingMode),
			IdealWidth:  cfg.CameraWidth,
			IdealHeight: cfg.CameraHeight,
		},
		AcquireTimeout: cfg.CameraAcquireTimeout,
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled; then shuts down gracefully.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	a.log.Info("HTTP server listening",
		zap.String("addr", a.srv.Addr),
		zap.String("health", base+"/health"),
		zap.String("scanner", base+"/scanner/state"),
		zap.String("camera_ws", "ws://"+host+":"+a.cfg.HTTPPort+"/ws/camera/:device_id"),
		zap.String("operator_ws", "ws://"+host+":"+a.cfg.HTTPPort+"/ws/operator/:user_id"))

	// Scanners stop with the app context.
	a.scanner.SetContext(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http: %w", err)
	}
	a.scanner.Close()
	a.hub.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
