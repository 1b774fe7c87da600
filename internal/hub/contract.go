package hub

import (
	"context"

	"github.com/s21platform/user-stream-service/internal/model"
)

// Mirror receives every published envelope besides the subscribers. It must not block.
type Mirror interface {
	Mirror(ctx context.Context, env model.StreamEnvelope)
}
