package vector

import (
	"fmt"

	"github.com/creditrust/credirag/internal/adapters/driven/vector/flat"
	"github.com/creditrust/credirag/internal/adapters/driven/vector/qdrant"
	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driven"
)

// NewStore returns the index store for the configured backend.
func NewStore(settings *domain.Settings) (driven.IndexStore, error) {
	switch settings.Index.Backend {
	case domain.IndexBackendFlat, "":
		return flat.NewStore(), nil
	case domain.IndexBackendQdrant:
		q := settings.Qdrant
		return qdrant.NewStore(qdrant.Config{
			Host:       q.Host,
			Port:       q.Port,
			Collection: q.Collection,
			APIKey:     q.APIKey,
			UseTLS:     q.UseTLS,
		}), nil
	default:
		return nil, fmt.Errorf("index backend %q: %w", settings.Index.Backend, domain.ErrUnsupportedType)
	}
}

// StoreFor returns a store able to load the snapshot at path, whatever
// backend built it. Unknown backends fall back to the configured one.
func StoreFor(settings *domain.Settings, backend string) (driven.IndexStore, error) {
	s := *settings
	if b := domain.IndexBackend(backend); b.IsValid() {
		s.Index.Backend = b
	}
	return NewStore(&s)
}
