package delivery

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"pollsterHook/internal/model"
	"pollsterHook/internal/state"
	"pollsterHook/internal/storage"
)

// Config controls write retries.
type Config struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// Recorder writes delivery records to every configured sink and advances the
// per-chainhook block cursor.
type Recorder struct {
	cfg    Config
	sinks  []storage.Storage
	cursor state.Store
	logger *zap.Logger
}

// NewRecorder builds a Recorder. cursor may be nil.
func NewRecorder(cfg Config, sinks []storage.Storage, cursor state.Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{cfg: cfg, sinks: sinks, cursor: cursor, logger: logger}
}

// LastBlock returns the cursor for a chainhook.
func (r *Recorder) LastBlock(ctx context.Context, chainhookUUID string) (uint64, bool, error) {
	if r.cursor == nil {
		return 0, false, nil
	}
	return r.cursor.Load(ctx, cursorName(chainhookUUID))
}

// Record stores the delivery and moves the cursor forward. Every sink is
// attempted; the returned error joins the failures.
func (r *Recorder) Record(ctx context.Context, d model.Delivery) error {
	var errs []error
	for _, sink := range r.sinks {
		if sink == nil {
			continue
		}
		err := r.retry(ctx, "store delivery", func(ctx context.Context) error {
			return sink.PutDeliveryBatch(ctx, []model.Delivery{d})
		})
		if err != nil {
			r.logger.Warn("store delivery failed", zap.Error(err), zap.String("delivery_id", d.ID))
			errs = append(errs, err)
		}
	}

	if r.cursor != nil && d.Blocks > 0 {
		err := r.retry(ctx, "save cursor", func(ctx context.Context) error {
			return r.cursor.Save(ctx, cursorName(d.ChainhookUUID), d.LastBlock)
		})
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func cursorName(chainhookUUID string) string {
	return "chainhook:" + chainhookUUID
}
