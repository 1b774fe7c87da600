package hub

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	logger_lib "github.com/s21platform/logger-lib"

	"github.com/s21platform/user-stream-service/internal/infra"
	"github.com/s21platform/user-stream-service/internal/model"
)

// Registry owns the live subscriber set and the cumulative broadcast counter.
// Connect and Disconnect take the write lock; publish snapshots under the read lock.
type Registry struct {
	mu    sync.RWMutex
	subs  map[uuid.UUID]*Subscriber
	total atomic.Int64

	bufferSize int
	streamRate string
	logger     logger_lib.LoggerInterface
}

func newRegistry(logger logger_lib.LoggerInterface, bufferSize int, streamRate string) *Registry {
	return &Registry{
		subs:       make(map[uuid.UUID]*Subscriber),
		bufferSize: bufferSize,
		streamRate: streamRate,
		logger:     logger,
	}
}

// Connect registers a subscriber whose first queued frame is the welcome envelope.
func (r *Registry) Connect(remoteAddr string) (*Subscriber, error) {
	sub := newSubscriber(remoteAddr, r.bufferSize)

	r.mu.Lock()
	welcome := model.NewWelcomeEnvelope(r.total.Load(), r.streamRate)
	frame, err := json.Marshal(welcome)
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("failed to encode welcome: %w", err)
	}
	// the queue is empty and has room for at least one frame
	sub.out <- frame
	r.subs[sub.id] = sub
	count := len(r.subs)
	r.mu.Unlock()

	infra.Subscribers.Set(float64(count))
	r.logger.Info(fmt.Sprintf("client %s connected from %s, total clients: %d", sub.id, remoteAddr, count))

	return sub, nil
}

// Disconnect removes sub from the live set. It reports whether this call removed it;
// repeated calls are no-ops.
func (r *Registry) Disconnect(sub *Subscriber) bool {
	count, ok := r.remove(sub)
	if !ok {
		return false
	}

	r.logger.Info(fmt.Sprintf("client %s disconnected, total clients: %d", sub.id, count))

	return true
}

// remove is Disconnect without logging, for callers on the publish path.
func (r *Registry) remove(sub *Subscriber) (int, bool) {
	if sub == nil {
		return 0, false
	}

	r.mu.Lock()
	if _, ok := r.subs[sub.id]; !ok {
		r.mu.Unlock()
		return 0, false
	}
	delete(r.subs, sub.id)
	count := len(r.subs)
	r.mu.Unlock()

	sub.close()
	infra.Subscribers.Set(float64(count))

	return count, true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.subs)
}

// Total is the number of records published since process start.
func (r *Registry) Total() int64 {
	return r.total.Load()
}

// Close disconnects every subscriber.
func (r *Registry) Close() {
	r.mu.Lock()
	subs := make([]*Subscriber, 0, len(r.subs))
	for id, sub := range r.subs {
		subs = append(subs, sub)
		delete(r.subs, id)
	}
	r.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	infra.Subscribers.Set(0)
}

// publishSnapshot counts one publish and returns the subscribers it must reach.
// Both happen under the read lock so a concurrent Connect sees either the old
// total and the record, or the new total and not the record.
func (r *Registry) publishSnapshot() []*Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.total.Add(1)

	subs := make([]*Subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}

	return subs
}
