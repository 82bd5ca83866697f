package ports

import (
	"context"

	"github.com/bnema/offline-session-cli/internal/domain"
)

// RecordCache is the on-device copy of remote collections. Failures are
// *domain.StorageError.
type RecordCache interface {
	ReplaceAll(ctx context.Context, collection domain.CollectionKey, records []domain.CachedRecord) error
	GetAll(ctx context.Context, collection domain.CollectionKey) ([]domain.CachedRecord, error)
}
