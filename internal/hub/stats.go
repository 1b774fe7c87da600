package hub

import (
	"context"
	"fmt"
	"time"
)

const defaultStatsInterval = time.Minute

type Stats struct {
	TotalUsersStreamed int64   `json:"total_users_streamed"`
	ActiveClients      int     `json:"active_clients"`
	UsersPerMinute     float64 `json:"users_per_minute"`
	UptimeSeconds      int64   `json:"uptime_seconds"`
	StreamRate         string  `json:"stream_rate"`
}

func (h *Hub) Stats() Stats {
	return h.statsAt(time.Now())
}

func (h *Hub) statsAt(now time.Time) Stats {
	uptime := now.Sub(h.startedAt)
	total := h.registry.Total()

	return Stats{
		TotalUsersStreamed: total,
		ActiveClients:      h.registry.Count(),
		UsersPerMinute:     perMinute(total, uptime),
		UptimeSeconds:      int64(uptime / time.Second),
		StreamRate:         h.streamRate,
	}
}

// perMinute is zero until a full second of uptime has passed.
func perMinute(total int64, elapsed time.Duration) float64 {
	if elapsed < time.Second {
		return 0
	}

	return float64(total) / elapsed.Minutes()
}

// ReportStats logs a stats line every interval until ctx is done.
// A non-positive interval falls back to one minute.
func (h *Hub) ReportStats(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultStatsInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s := h.Stats()
			h.logger.Info(fmt.Sprintf("stats: %d users streamed, %d active clients, ~%.1f users/min",
				s.TotalUsersStreamed, s.ActiveClients, s.UsersPerMinute))
		}
	}
}
