package handler

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/psds-microservice/checkin-scanner/internal/model"
	"github.com/psds-microservice/checkin-scanner/internal/service"
	"go.uber.org/zap/zaptest"
)

func TestOperatorSocketShutdown(t *testing.T) {
	hub := service.NewStreamHub(0, zaptest.NewLogger(t))
	ws := NewStreamWSHandler(hub, zaptest.NewLogger(t))
	r := gin.New()
	r.GET("/ws/operator/:user_id", ws.ServeOperator)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/operator/desk"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	deadline := time.Now().Add(2 * time.Second)
	for hub.PeerCount(service.PeerRoleOperator) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("operator not registered")
		}
		time.Sleep(time.Millisecond)
	}

	// Broadcasts and shutdown race for the connection; every frame must
	// arrive intact and in order.
	for i := 0; i < 50; i++ {
		hub.Notify(model.Notification{Title: "Success"})
	}
	hub.CloseAll()

	notifications := 0
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
				t.Fatalf("read: %v", err)
			}
			break
		}
		switch {
		case strings.Contains(string(data), `"notification"`):
			notifications++
		case string(data) == `{"event":"shutdown"}`:
		default:
			t.Fatalf("unexpected frame %s", data)
		}
	}
	if notifications != 50 {
		t.Fatalf("notifications = %d, want 50", notifications)
	}
}
