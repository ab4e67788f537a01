package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/psds-microservice/checkin-scanner/internal/handler"
	"github.com/psds-microservice/checkin-scanner/pkg/constants"
	"go.uber.org/zap"
)

// New builds the HTTP router.
func New(
	sessionHandler *handler.SessionHandler,
	eventHandler *handler.EventHandler,
	scannerHandler *handler.ScannerHandler,
	streamWS *handler.StreamWSHandler,
	health *handler.HealthHandler,
	logger *zap.Logger,
) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	if logger != nil {
		r.Use(requestLogger(logger))
	}

	r.GET(constants.PathHealth, health.Health)
	r.GET(constants.PathReady, health.Ready)

	auth := r.Group("/auth")
	{
		auth.POST("/login", sessionHandler.Login)
		auth.POST("/logout", sessionHandler.Logout)
		auth.GET("/session", sessionHandler.GetSession)
		auth.PUT("/session/event", sessionHandler.SelectEvent)
	}
	r.GET("/organizer", sessionHandler.GetOrganizer)

	events := r.Group("/events")
	{
		events.GET("", eventHandler.ListEvents)
		events.GET("/:id/attendees", eventHandler.ListAttendees)
	}

	sc := r.Group("/scanner")
	{
		sc.POST("/start", scannerHandler.Start)
		sc.POST("/stop", scannerHandler.Stop)
		sc.POST("/next", scannerHandler.Next)
		sc.POST("/back", scannerHandler.Back)
		sc.GET("/state", scannerHandler.State)
	}

	r.GET(constants.PathWSCamera, streamWS.ServeCamera)
	r.GET(constants.PathWSOperator, streamWS.ServeOperator)

	return r
}

// requestLogger logs one line per request with a request id.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(constants.HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(constants.HeaderRequestID, id)
		c.Next()
		logger.Debug("http request",
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
