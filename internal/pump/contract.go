//go:generate mockgen -destination=mock_contract_test.go -package=${GOPACKAGE} -source=contract.go
package pump

import (
	"context"

	"github.com/s21platform/user-stream-service/internal/model"
)

type Source interface {
	FetchUser(ctx context.Context) (model.UserRecord, error)
}

type Publisher interface {
	Publish(ctx context.Context, env model.StreamEnvelope) (int, error)
}
