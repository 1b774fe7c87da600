package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/s21platform/user-stream-service/internal/config"
	"github.com/s21platform/user-stream-service/internal/hub"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512
)

type Handler struct {
	registry Registry
	stats    StatsProvider
	upgrader websocket.Upgrader
}

func New(registry Registry, stats StatsProvider) *Handler {
	return &Handler{
		registry: registry,
		stats:    stats,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Subscribe upgrades the request and streams envelopes until either side goes away.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to upgrade connection from %s: %v", r.RemoteAddr, err))
		return
	}
	defer conn.Close() //nolint:errcheck // .

	sub, err := h.registry.Connect(r.RemoteAddr)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to register client %s: %v", r.RemoteAddr, err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "registration failed"),
			time.Now().Add(writeWait))
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, sub, logger)
	}()

	h.readLoop(conn, sub, logger)
	h.registry.Disconnect(sub)
	<-writerDone
}

// readLoop only watches for close and pong frames; clients have nothing to say.
func (h *Handler) readLoop(conn *websocket.Conn, sub *hub.Subscriber, logger logger_lib.LoggerInterface) {
	conn.SetReadLimit(maxInboundSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && sub.Alive() {
				logger.Warn(fmt.Sprintf("client %s error: %v", sub.ID(), err))
			}
			return
		}
	}
}

// writeLoop is the only writer of data frames on conn.
func (h *Handler) writeLoop(conn *websocket.Conn, sub *hub.Subscriber, logger logger_lib.LoggerInterface) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-sub.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Warn(fmt.Sprintf("failed to write to client %s: %v", sub.ID(), err))
				h.registry.Disconnect(sub)
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.registry.Disconnect(sub)
				_ = conn.Close()
				return
			}
		case <-sub.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed"),
				time.Now().Add(writeWait))
			_ = conn.Close()
			return
		}
	}
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.stats.Stats(), http.StatusOK)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// ----------------------------- helpers -----------------------------

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
