package state

import (
	"context"

	"pollsterHook/internal/storage/postgres"
)

// DBStore stores cursors in the chainhook_state table.
type DBStore struct {
	Store *postgres.Store
}

func (s *DBStore) Load(ctx context.Context, name string) (uint64, bool, error) {
	if s == nil || s.Store == nil {
		return 0, false, nil
	}
	return s.Store.LoadState(ctx, name)
}

func (s *DBStore) Save(ctx context.Context, name string, height uint64) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveState(ctx, name, height)
}
