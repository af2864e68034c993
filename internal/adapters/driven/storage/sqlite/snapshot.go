package sqlite

import (
	"context"
	"fmt"
	"os"

	"github.com/creditrust/credirag/internal/core/domain"
)

// SaveSnapshot writes a complete snapshot next to path and renames it into
// place, so readers see either the old file or the new one.
func SaveSnapshot(
	ctx context.Context,
	path string,
	manifest domain.IndexManifest,
	items []domain.IndexItem,
	meta map[string]string,
) error {
	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale %s: %w", tmp, err)
	}

	s, err := Open(tmp)
	if err != nil {
		return err
	}
	if err := s.WriteSnapshot(ctx, manifest, items, meta); err != nil {
		s.Close()
		os.Remove(tmp)
		return err
	}
	if err := s.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing snapshot: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// LoadManifest reads the manifest and backend meta of the snapshot at path.
func LoadManifest(ctx context.Context, path string) (domain.IndexManifest, map[string]string, error) {
	s, err := OpenExisting(path)
	if err != nil {
		return domain.IndexManifest{}, nil, err
	}
	defer s.Close()

	m, err := s.ReadManifest(ctx)
	if err != nil {
		return domain.IndexManifest{}, nil, err
	}
	meta, err := s.ReadMeta(ctx)
	if err != nil {
		return domain.IndexManifest{}, nil, err
	}
	return *m, meta, nil
}
