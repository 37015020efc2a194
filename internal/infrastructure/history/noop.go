package history

import (
	"context"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain/entity"
)

// NoopRepository discards history writes. Used when the durable log is
// disabled in config.
type NoopRepository struct{}

// NewNoopRepository creates a repository that drops all writes.
func NewNoopRepository() *NoopRepository {
	return &NoopRepository{}
}

// AppendTurn discards the turn.
func (*NoopRepository) AppendTurn(context.Context, string, entity.Message, entity.Message) error {
	return nil
}

var _ domain.HistoryRepository = (*NoopRepository)(nil)
