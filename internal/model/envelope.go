package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	WelcomeType    = "welcome"
	WelcomeMessage = "Connected to real-time user stream"
)

var ErrDecode = errors.New("malformed envelope")

type Kind int

const (
	KindData Kind = iota + 1
	KindWelcome
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindWelcome:
		return "welcome"
	default:
		return "unknown"
	}
}

// StreamEnvelope is the record's native JSON with two top-level fields added at broadcast time.
type StreamEnvelope struct {
	UserRecord
	ServerTimestamp string `json:"server_timestamp"`
	StreamSequence  int64  `json:"stream_sequence"`
}

type WelcomeEnvelope struct {
	Type               string `json:"type"`
	Message            string `json:"message"`
	TotalUsersStreamed int64  `json:"total_users_streamed"`
	StreamRate         string `json:"stream_rate"`
}

// Envelope is a decoded frame; exactly one of Welcome and Stream is set, matching Kind.
type Envelope struct {
	Kind    Kind
	Welcome *WelcomeEnvelope
	Stream  *StreamEnvelope
}

func NewStreamEnvelope(record UserRecord, sequence int64, at time.Time) StreamEnvelope {
	return StreamEnvelope{
		UserRecord:      record,
		ServerTimestamp: at.Format(time.RFC3339Nano),
		StreamSequence:  sequence,
	}
}

func NewWelcomeEnvelope(total int64, rate string) WelcomeEnvelope {
	return WelcomeEnvelope{
		Type:               WelcomeType,
		Message:            WelcomeMessage,
		TotalUsersStreamed: total,
		StreamRate:         rate,
	}
}

// StreamRate renders the pump cadence the way welcome messages advertise it.
func StreamRate(interval time.Duration) string {
	switch {
	case interval <= 0:
		return "unthrottled"
	case interval == time.Second:
		return "1 user/second"
	case interval%time.Second == 0:
		return fmt.Sprintf("1 user/%d seconds", interval/time.Second)
	default:
		return fmt.Sprintf("1 user/%s", interval)
	}
}

// Decode classifies a frame by its "type" field. Frames without "type" are data records
// and must carry login.uuid.
func Decode(frame []byte) (Envelope, error) {
	var probe struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(frame, &probe); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if probe.Type != nil {
		if *probe.Type != WelcomeType {
			return Envelope{}, fmt.Errorf("%w: unknown type %q", ErrDecode, *probe.Type)
		}

		var welcome WelcomeEnvelope
		if err := json.Unmarshal(frame, &welcome); err != nil {
			return Envelope{}, fmt.Errorf("%w: welcome: %v", ErrDecode, err)
		}
		return Envelope{Kind: KindWelcome, Welcome: &welcome}, nil
	}

	var stream StreamEnvelope
	if err := json.Unmarshal(frame, &stream); err != nil {
		return Envelope{}, fmt.Errorf("%w: record: %v", ErrDecode, err)
	}
	if stream.UserID() == "" {
		return Envelope{}, fmt.Errorf("%w: record without login.uuid", ErrDecode)
	}

	return Envelope{Kind: KindData, Stream: &stream}, nil
}
