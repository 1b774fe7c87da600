package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	logger_lib "github.com/s21platform/logger-lib"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/s21platform/user-stream-service/internal/infra"
	"github.com/s21platform/user-stream-service/internal/model"
)

const (
	defaultRetryDelay = 5 * time.Second
	defaultMilestone  = 60
	tracerName        = "user-stream-consumer"
)

var (
	ErrTransport  = errors.New("stream transport failure")
	ErrStoreWrite = errors.New("store write failed")
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateStreaming:
		return "STREAMING"
	default:
		return "DISCONNECTED"
	}
}

// Consumer subscribes to the stream and upserts every data record into the store.
// Frames of one connection are handled strictly in order on the reading goroutine.
// Any transport failure drops the connection and a new one is dialled after the
// retry delay, forever.
type Consumer struct {
	url    string
	dialer Dialer
	store  Store
	logger logger_lib.LoggerInterface
	tracer trace.Tracer

	retryDelay time.Duration
	milestone  int64
	now        func() time.Time

	state       atomic.Int32
	inserted    atomic.Int64
	lastWelcome atomic.Int64
	connections atomic.Int64
}

type Option func(*Consumer)

func WithRetryDelay(d time.Duration) Option {
	return func(c *Consumer) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

func WithMilestone(n int64) Option {
	return func(c *Consumer) {
		if n > 0 {
			c.milestone = n
		}
	}
}

func New(url string, dialer Dialer, store Store, logger logger_lib.LoggerInterface, opts ...Option) *Consumer {
	c := &Consumer{
		url:        url,
		dialer:     dialer,
		store:      store,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		retryDelay: defaultRetryDelay,
		milestone:  defaultMilestone,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Consumer) State() State {
	return State(c.state.Load())
}

// Inserted is the number of successful upserts since start.
func (c *Consumer) Inserted() int64 {
	return c.inserted.Load()
}

// LastWelcomeCount is the server total reported by the most recent welcome.
func (c *Consumer) LastWelcomeCount() int64 {
	return c.lastWelcome.Load()
}

// Connections counts streams that reached STREAMING.
func (c *Consumer) Connections() int64 {
	return c.connections.Load()
}

// Run returns only when ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info(fmt.Sprintf("connecting to %s", c.url))

	for {
		err := c.stream(ctx)
		c.state.Store(int32(StateDisconnected))

		if ctx.Err() != nil {
			c.logger.Info(fmt.Sprintf("consumer shutting down, %d users inserted", c.Inserted()))
			return nil
		}

		infra.ConsumerReconnectsTotal.Inc()
		c.logger.Warn(fmt.Sprintf("%v, reconnecting in %s", err, c.retryDelay))

		select {
		case <-ctx.Done():
			c.logger.Info(fmt.Sprintf("consumer shutting down, %d users inserted", c.Inserted()))
			return nil
		case <-time.After(c.retryDelay):
		}
	}
}

// stream runs one CONNECTING -> STREAMING cycle and returns why it ended.
func (c *Consumer) stream(ctx context.Context) error {
	c.state.Store(int32(StateConnecting))

	conn, err := c.dialer.Dial(ctx, c.url)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrTransport, c.url, err)
	}
	defer conn.Close() //nolint:errcheck // .

	// unblocks ReadMessage on shutdown
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c.state.Store(int32(StateStreaming))
	c.connections.Add(1)
	c.logger.Info("connected to user stream")

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("%w: read: %v", ErrTransport, err)
		}

		c.handle(ctx, frame)
	}
}

func (c *Consumer) handle(ctx context.Context, frame []byte) {
	env, err := model.Decode(frame)
	if err != nil {
		infra.ConsumerDecodeErrorsTotal.Inc()
		c.logger.Error(fmt.Sprintf("skipping message: %v", err))
		return
	}

	switch env.Kind {
	case model.KindWelcome:
		c.lastWelcome.Store(env.Welcome.TotalUsersStreamed)
		c.logger.Info(fmt.Sprintf("%s, server has streamed %d users at %s",
			env.Welcome.Message, env.Welcome.TotalUsersStreamed, env.Welcome.StreamRate))
	case model.KindData:
		c.persist(ctx, env.Stream)
	}
}

func (c *Consumer) persist(ctx context.Context, env *model.StreamEnvelope) {
	ctx, span := c.tracer.Start(ctx, "consumer.message", trace.WithAttributes(
		attribute.String("user_id", env.UserID()),
		attribute.Int64("stream_sequence", env.StreamSequence),
	))
	defer span.End()

	row := model.NewStoredUserRow(env.UserRecord, c.now())
	if err := c.store.UpsertUser(ctx, row); err != nil {
		err = fmt.Errorf("%w: %v", ErrStoreWrite, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		infra.ConsumerUpsertsTotal.WithLabelValues(infra.ResultError).Inc()
		c.logger.Error(fmt.Sprintf("lost record #%d (%s): %v", env.StreamSequence, env.UserID(), err))
		return
	}

	infra.ConsumerUpsertsTotal.WithLabelValues(infra.ResultOK).Inc()
	n := c.inserted.Add(1)
	c.logger.Info(fmt.Sprintf("#%d (stream #%d): %s from %s", n, env.StreamSequence, env.FullName(), env.Location.Country))

	if n%c.milestone == 0 {
		c.logger.Info(fmt.Sprintf("milestone: %d users inserted", n))
	}
}
