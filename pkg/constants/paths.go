package constants

// Пути health, ready и WebSocket (REST-маршруты в router).
const (
	PathHealth      = "/health"
	PathReady       = "/ready"
	PathWSCamera    = "/ws/camera/:device_id"
	PathWSOperator  = "/ws/operator/:user_id"
	HeaderRequestID = "X-Request-ID"
)
