package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/s21platform/user-stream-service/internal/infra"
	"github.com/s21platform/user-stream-service/internal/model"
)

const (
	defaultSendTimeout = 250 * time.Millisecond
	defaultBufferSize  = 16
	defaultMaxStrikes  = 3
)

var (
	ErrSubscriberClosed = errors.New("subscriber closed")
	ErrSendTimeout      = errors.New("subscriber send timed out")
)

// Hub fans each published envelope out to every subscriber connected at publish time.
// Delivery is best effort and at most once per subscriber; nothing is queued for retry.
type Hub struct {
	registry *Registry
	logger   logger_lib.LoggerInterface
	mirror   Mirror

	sendTimeout time.Duration
	bufferSize  int
	maxStrikes  int32
	streamRate  string
	startedAt   time.Time
}

type Option func(*Hub)

func WithSendTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.sendTimeout = d
		}
	}
}

func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithMaxStrikes sets how many consecutive timed out sends evict a subscriber.
func WithMaxStrikes(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.maxStrikes = int32(n)
		}
	}
}

func WithStreamRate(rate string) Option {
	return func(h *Hub) {
		h.streamRate = rate
	}
}

func WithMirror(m Mirror) Option {
	return func(h *Hub) {
		h.mirror = m
	}
}

func New(logger logger_lib.LoggerInterface, opts ...Option) *Hub {
	h := &Hub{
		logger:      logger,
		sendTimeout: defaultSendTimeout,
		bufferSize:  defaultBufferSize,
		maxStrikes:  defaultMaxStrikes,
		streamRate:  model.StreamRate(time.Second),
		startedAt:   time.Now(),
	}

	for _, opt := range opts {
		opt(h)
	}

	h.registry = newRegistry(logger, h.bufferSize, h.streamRate)

	return h
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

// Publish delivers env to the subscribers connected at the moment of the call and
// returns how many accepted it. Sends run in parallel, each bounded by the send
// timeout, so Publish returns within roughly one timeout regardless of subscriber health.
func (h *Hub) Publish(ctx context.Context, env model.StreamEnvelope) (int, error) {
	frame, err := json.Marshal(env)
	if err != nil {
		return 0, fmt.Errorf("failed to encode envelope %d: %w", env.StreamSequence, err)
	}

	subs := h.registry.publishSnapshot()
	infra.PublishedTotal.Inc()

	if h.mirror != nil {
		h.mirror.Mirror(ctx, env)
	}

	if len(subs) == 0 {
		return 0, nil
	}

	var (
		delivered atomic.Int64
		wg        sync.WaitGroup
		mu        sync.Mutex
		notes     []string
	)
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *Subscriber) {
			defer wg.Done()

			if err := sub.send(frame, h.sendTimeout); err != nil {
				infra.DeliveriesTotal.WithLabelValues(infra.ResultFailed).Inc()
				if note := h.handleSendFailure(sub, err); note != "" {
					mu.Lock()
					notes = append(notes, note)
					mu.Unlock()
				}
				return
			}

			sub.strikes.Store(0)
			delivered.Add(1)
			infra.DeliveriesTotal.WithLabelValues(infra.ResultDelivered).Inc()
		}(sub)
	}
	wg.Wait()

	// the log sink may be slow; the pump must not wait for it
	if len(notes) > 0 {
		go h.report(notes)
	}

	return int(delivered.Load()), nil
}

// Total is the cumulative number of published records.
func (h *Hub) Total() int64 {
	return h.registry.Total()
}

// handleSendFailure applies the eviction policy and returns the line to log for it,
// or "" when the subscriber was already removed elsewhere.
func (h *Hub) handleSendFailure(sub *Subscriber, err error) string {
	if errors.Is(err, ErrSubscriberClosed) {
		return h.evict(sub, err)
	}

	strikes := sub.strikes.Add(1)
	if strikes >= h.maxStrikes {
		return h.evict(sub, fmt.Errorf("%w %d times in a row", err, strikes))
	}

	return fmt.Sprintf("client %s missed a record: %v (%d/%d)", sub.id, err, strikes, h.maxStrikes)
}

func (h *Hub) evict(sub *Subscriber, reason error) string {
	count, ok := h.registry.remove(sub)
	if !ok {
		return ""
	}

	infra.EvictionsTotal.Inc()
	return fmt.Sprintf("evicted client %s: %v, total clients: %d", sub.id, reason, count)
}

func (h *Hub) report(notes []string) {
	for _, note := range notes {
		h.logger.Warn(note)
	}
}
