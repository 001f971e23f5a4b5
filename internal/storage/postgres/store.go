package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pollsterHook/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS webhook_deliveries (
	delivery_id      TEXT PRIMARY KEY,
	chainhook_uuid   TEXT NOT NULL,
	chain            TEXT NOT NULL,
	network          TEXT NOT NULL,
	first_block      BIGINT NOT NULL,
	last_block       BIGINT NOT NULL,
	blocks           INTEGER NOT NULL,
	rollback_blocks  INTEGER NOT NULL,
	events_extracted INTEGER NOT NULL,
	dispatched       INTEGER NOT NULL,
	unknown          INTEGER NOT NULL,
	rejected         INTEGER NOT NULL,
	failed           INTEGER NOT NULL,
	operation_errors INTEGER NOT NULL,
	received_at      TIMESTAMPTZ NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS webhook_deliveries_chainhook_idx ON webhook_deliveries (chainhook_uuid, received_at);
CREATE TABLE IF NOT EXISTS chainhook_state (
	name              TEXT PRIMARY KEY,
	last_block_height BIGINT NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for deliveries and cursors.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables used by the service when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutDeliveryBatch inserts delivery records, ignoring ids already stored.
func (s *Store) PutDeliveryBatch(ctx context.Context, deliveries []model.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, d := range deliveries {
		batch.Queue(`
			INSERT INTO webhook_deliveries (
				delivery_id, chainhook_uuid, chain, network, first_block, last_block,
				blocks, rollback_blocks, events_extracted, dispatched, unknown, rejected,
				failed, operation_errors, received_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			ON CONFLICT (delivery_id) DO NOTHING
		`,
			d.ID,
			d.ChainhookUUID,
			d.Chain,
			d.Network,
			int64(d.FirstBlock),
			int64(d.LastBlock),
			d.Blocks,
			d.RollbackBlocks,
			d.EventsExtracted,
			d.Dispatched,
			d.Unknown,
			d.Rejected,
			d.Failed,
			d.OperationErrors,
			d.ReceivedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range deliveries {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_block_height for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var height int64
	row := s.pool.QueryRow(ctx, `SELECT last_block_height FROM chainhook_state WHERE name=$1`, name)
	if err := row.Scan(&height); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(height), true, nil
}

// SaveState upserts last_block_height for a name. The stored height never decreases.
func (s *Store) SaveState(ctx context.Context, name string, height uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chainhook_state (name, last_block_height, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_block_height = GREATEST(chainhook_state.last_block_height, EXCLUDED.last_block_height),
			updated_at = now()
	`, name, int64(height))
	return err
}
