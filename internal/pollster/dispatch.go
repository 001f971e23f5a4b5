package pollster

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pollsterHook/internal/model"
)

// Handlers holds one callback per event kind. A nil callback leaves the kind
// unhandled.
type Handlers struct {
	PollCreated        func(ctx context.Context, ev model.PollCreated) error
	VoteCast           func(ctx context.Context, ev model.VoteCast) error
	PollClosed         func(ctx context.Context, ev model.PollClosed) error
	CounterIncremented func(ctx context.Context, ev model.CounterChanged) error
	CounterDecremented func(ctx context.Context, ev model.CounterChanged) error
}

// DispatchConfig controls dispatch behavior.
type DispatchConfig struct {
	// StopOnHandlerError aborts the pass at the first handler error and
	// returns it. When false the error is logged and dispatch continues.
	StopOnHandlerError bool
}

// DispatchResult counts what happened to each event of a pass.
type DispatchResult struct {
	Dispatched int
	Unknown    int
	Rejected   int
	Failed     int
}

// Dispatcher routes classified events to their handlers.
type Dispatcher struct {
	cfg      DispatchConfig
	handlers Handlers
	logger   *zap.Logger
}

// NewDispatcher builds a Dispatcher.
func NewDispatcher(cfg DispatchConfig, handlers Handlers, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{cfg: cfg, handlers: handlers, logger: logger}
}

// Dispatch handles events one at a time, in order. Each handler call returns
// before the next event is looked at.
func (d *Dispatcher) Dispatch(ctx context.Context, events []model.RawEvent) (DispatchResult, error) {
	var res DispatchResult
	for i, raw := range events {
		if !IsKnownKind(raw.Kind) {
			res.Unknown++
			d.logger.Info("unknown event type",
				zap.String("event", string(raw.Kind)),
				zap.String("tx_hash", raw.Source.TxHash),
			)
			continue
		}

		ev, err := Classify(raw)
		if err != nil {
			res.Rejected++
			d.logger.Warn("event rejected",
				zap.Error(err),
				zap.String("tx_hash", raw.Source.TxHash),
				zap.Int("operation_index", raw.Source.OperationIndex),
			)
			continue
		}

		if err := d.handle(ctx, ev); err != nil {
			res.Failed++
			if d.cfg.StopOnHandlerError {
				return res, fmt.Errorf("handle event %d (%s): %w", i, raw.Kind, err)
			}
			d.logger.Error("handler failed",
				zap.Error(err),
				zap.String("event", string(raw.Kind)),
				zap.String("tx_hash", raw.Source.TxHash),
				zap.Uint64("block_height", ev.Height()),
			)
			continue
		}
		res.Dispatched++
	}
	return res, nil
}

func (d *Dispatcher) handle(ctx context.Context, ev model.Event) error {
	switch typed := ev.(type) {
	case model.PollCreated:
		if d.handlers.PollCreated != nil {
			return d.handlers.PollCreated(ctx, typed)
		}
	case model.VoteCast:
		if d.handlers.VoteCast != nil {
			return d.handlers.VoteCast(ctx, typed)
		}
	case model.PollClosed:
		if d.handlers.PollClosed != nil {
			return d.handlers.PollClosed(ctx, typed)
		}
	case model.CounterChanged:
		switch typed.Event {
		case model.KindCounterIncremented:
			if d.handlers.CounterIncremented != nil {
				return d.handlers.CounterIncremented(ctx, typed)
			}
		case model.KindCounterDecremented:
			if d.handlers.CounterDecremented != nil {
				return d.handlers.CounterDecremented(ctx, typed)
			}
		}
	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
	d.logger.Debug("no handler registered", zap.String("event", string(ev.Kind())))
	return nil
}
