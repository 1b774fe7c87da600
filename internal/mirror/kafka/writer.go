package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	logger_lib "github.com/s21platform/logger-lib"
	"github.com/segmentio/kafka-go"

	"github.com/s21platform/user-stream-service/internal/config"
	"github.com/s21platform/user-stream-service/internal/infra"
	"github.com/s21platform/user-stream-service/internal/model"
)

const writeTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Mirror copies every broadcast envelope onto a topic keyed by user id.
// Failures are logged and counted, never returned to the broadcaster.
type Mirror struct {
	writer messageWriter
	logger logger_lib.LoggerInterface
}

func New(cfg config.Kafka, logger logger_lib.LoggerInterface) *Mirror {
	m := &Mirror{logger: logger}

	m.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: writeTimeout,
		Async:        true,
		Completion:   m.completion,
	}

	return m
}

func newWithWriter(w messageWriter, logger logger_lib.LoggerInterface) *Mirror {
	return &Mirror{writer: w, logger: logger}
}

func (m *Mirror) Mirror(ctx context.Context, env model.StreamEnvelope) {
	value, err := json.Marshal(env)
	if err != nil {
		m.fail(fmt.Sprintf("failed to marshal record #%d: %v", env.StreamSequence, err))
		return
	}

	err = m.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.UserID()),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		m.fail(fmt.Sprintf("failed to mirror record #%d: %v", env.StreamSequence, err))
	}
}

// completion reports async delivery results.
func (m *Mirror) completion(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, msg := range msgs {
		m.fail(fmt.Sprintf("failed to deliver mirrored user %s: %v", msg.Key, err))
	}
}

func (m *Mirror) fail(msg string) {
	infra.MirrorFailuresTotal.Inc()
	m.logger.Error(msg)
}

func (m *Mirror) Close() error {
	return m.writer.Close()
}
