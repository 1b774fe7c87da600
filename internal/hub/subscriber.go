package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Subscriber is one connected stream client: an outbound frame queue plus a liveness flag.
// The registry owns it from Connect until Disconnect; it is never reused afterwards.
type Subscriber struct {
	id          uuid.UUID
	remoteAddr  string
	connectedAt time.Time

	out  chan []byte
	done chan struct{}

	closeOnce sync.Once
	alive     atomic.Bool
	strikes   atomic.Int32
}

func newSubscriber(remoteAddr string, buffer int) *Subscriber {
	if buffer < 1 {
		buffer = 1
	}

	s := &Subscriber{
		id:          uuid.New(),
		remoteAddr:  remoteAddr,
		connectedAt: time.Now(),
		out:         make(chan []byte, buffer),
		done:        make(chan struct{}),
	}
	s.alive.Store(true)

	return s
}

func (s *Subscriber) ID() uuid.UUID {
	return s.id
}

func (s *Subscriber) RemoteAddr() string {
	return s.remoteAddr
}

func (s *Subscriber) ConnectedAt() time.Time {
	return s.connectedAt
}

// Messages yields encoded frames in publish order. It is never closed; select on Done as well.
func (s *Subscriber) Messages() <-chan []byte {
	return s.out
}

// Done is closed once the subscriber has been removed from the registry.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

func (s *Subscriber) Alive() bool {
	return s.alive.Load()
}

// send queues one frame, waiting at most timeout for queue space.
func (s *Subscriber) send(frame []byte, timeout time.Duration) error {
	if !s.Alive() {
		return ErrSubscriberClosed
	}

	select {
	case s.out <- frame:
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s.out <- frame:
		return nil
	case <-s.done:
		return ErrSubscriberClosed
	case <-timer.C:
		return ErrSendTimeout
	}
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		s.alive.Store(false)
		close(s.done)
	})
}
