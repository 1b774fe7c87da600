package rest

import (
	"github.com/s21platform/user-stream-service/internal/hub"
)

type Registry interface {
	Connect(remoteAddr string) (*hub.Subscriber, error)
	Disconnect(sub *hub.Subscriber) bool
}

type StatsProvider interface {
	Stats() hub.Stats
}
