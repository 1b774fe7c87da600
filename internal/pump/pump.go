package pump

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/s21platform/user-stream-service/internal/infra"
	"github.com/s21platform/user-stream-service/internal/model"
)

const (
	defaultInterval = time.Second
	defaultBackoff  = 5 * time.Second
)

var ErrSourceFetch = errors.New("source fetch failed")

type State int32

const (
	StateFetching State = iota
	StateBackoff
)

func (s State) String() string {
	if s == StateBackoff {
		return "BACKOFF"
	}
	return "FETCHING"
}

// Pump pulls one record per interval from the source and publishes it.
// A failed fetch parks it in BACKOFF for the backoff delay; it never retries immediately.
type Pump struct {
	source    Source
	publisher Publisher
	logger    logger_lib.LoggerInterface

	interval time.Duration
	backoff  time.Duration

	sequence atomic.Int64
	state    atomic.Int32
	now      func() time.Time
}

type Option func(*Pump)

func WithInterval(d time.Duration) Option {
	return func(p *Pump) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithBackoff(d time.Duration) Option {
	return func(p *Pump) {
		if d > 0 {
			p.backoff = d
		}
	}
}

func New(source Source, publisher Publisher, logger logger_lib.LoggerInterface, opts ...Option) *Pump {
	p := &Pump{
		source:    source,
		publisher: publisher,
		logger:    logger,
		interval:  defaultInterval,
		backoff:   defaultBackoff,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Pump) State() State {
	return State(p.state.Load())
}

// Sequence is the last sequence number handed out.
func (p *Pump) Sequence() int64 {
	return p.sequence.Load()
}

// Run loops until ctx is cancelled.
func (p *Pump) Run(ctx context.Context) error {
	p.logger.Info(fmt.Sprintf("starting user stream, one record every %s", p.interval))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info(fmt.Sprintf("user stream stopped after %d records", p.Sequence()))
			return nil
		case <-timer.C:
		}

		timer.Reset(p.step(ctx))
	}
}

// step performs one FETCHING pass and returns how long to wait before the next one.
func (p *Pump) step(ctx context.Context) time.Duration {
	p.state.Store(int32(StateFetching))

	record, err := p.source.FetchUser(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return p.interval
		}

		err = fmt.Errorf("%w: %v", ErrSourceFetch, err)
		infra.SourceFailuresTotal.Inc()
		p.state.Store(int32(StateBackoff))
		p.logger.Error(fmt.Sprintf("stream error: %v, backing off for %s", err, p.backoff))

		return p.backoff
	}

	env := model.NewStreamEnvelope(record, p.sequence.Add(1), p.now())

	delivered, err := p.publisher.Publish(ctx, env)
	if err != nil {
		p.logger.Error(fmt.Sprintf("failed to publish record #%d: %v", env.StreamSequence, err))
		return p.interval
	}

	p.logger.Info(fmt.Sprintf("broadcast #%d: %s (%s) to %d clients",
		env.StreamSequence, record.FullName(), record.Location.Country, delivered))

	return p.interval
}
