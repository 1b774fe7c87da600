//go:generate mockgen -destination=mock_contract_test.go -package=${GOPACKAGE} -source=contract.go
package consumer

import (
	"context"

	"github.com/s21platform/user-stream-service/internal/model"
)

type Store interface {
	UpsertUser(ctx context.Context, row model.StoredUserRow) error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is the read side of a stream connection.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}
