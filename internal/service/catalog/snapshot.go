package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/kapu/nyaay-triage-go/internal/constants"
	"github.com/kapu/nyaay-triage-go/internal/domain"
	"go.uber.org/zap"
)

// SnapshotStore is the key/value store SnapshotSource writes to.
type SnapshotStore interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type snapshot struct {
	Name    string                  `json:"name"`
	Columns []string                `json:"columns"`
	Rows    []domain.ProviderRecord `json:"rows"`
}

// SnapshotSource serves catalogs from a stored snapshot and falls back to the
// wrapped source on a miss, refreshing the snapshot afterwards. Store errors
// never fail a load.
type SnapshotSource struct {
	inner  Source
	store  SnapshotStore
	ttl    time.Duration
	logger *zap.Logger
}

func NewSnapshotSource(inner Source, store SnapshotStore, ttl time.Duration, logger *zap.Logger) *SnapshotSource {
	if ttl <= 0 {
		ttl = constants.CatalogConfig.SnapshotTTL
	}
	return &SnapshotSource{
		inner:  inner,
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

func SnapshotKey(name string) string {
	return constants.CatalogConfig.SnapshotKeyPrefix + name
}

// SnapshotDeleter removes stored snapshots.
type SnapshotDeleter interface {
	Del(ctx context.Context, key string) error
}

// InvalidateSnapshots drops the stored snapshots of the named catalogs so the
// next load reads the underlying source again.
func InvalidateSnapshots(ctx context.Context, store SnapshotDeleter, names ...string) error {
	for _, name := range names {
		if err := store.Del(ctx, SnapshotKey(name)); err != nil {
			return fmt.Errorf("invalidate %s snapshot: %w", name, err)
		}
	}
	return nil
}

func (s *SnapshotSource) Load(ctx context.Context, name string) (*Catalog, error) {
	key := SnapshotKey(name)

	var snap snapshot
	found, err := s.store.Get(ctx, key, &snap)
	if err != nil {
		s.logger.Warn("Catalog snapshot read failed, loading from source",
			zap.String("catalog", name),
			zap.Error(err),
		)
	}
	if found && len(snap.Columns) > 0 {
		s.logger.Info("Catalog loaded from snapshot",
			zap.String("catalog", name),
			zap.Int("rows", len(snap.Rows)),
		)
		return New(name, snap.Columns, snap.Rows), nil
	}

	cat, err := s.inner.Load(ctx, name)
	if err != nil {
		return nil, err
	}

	if err := s.store.Set(ctx, key, snapshot{Name: name, Columns: cat.Columns(), Rows: cat.Rows()}, s.ttl); err != nil {
		s.logger.Warn("Failed to store catalog snapshot",
			zap.String("catalog", name),
			zap.Error(err),
		)
	}

	return cat, nil
}

// LoadAll loads every named catalog from source, failing on the first error.
func LoadAll(ctx context.Context, source Source, names ...string) (map[string]*Catalog, error) {
	out := make(map[string]*Catalog, len(names))
	for _, name := range names {
		cat, err := source.Load(ctx, name)
		if err != nil {
			return nil, err
		}
		out[name] = cat
	}
	return out, nil
}
