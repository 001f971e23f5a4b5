package pollster

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pollsterHook/internal/chainhook"
	"pollsterHook/internal/model"
)

// Recorder keeps track of processed deliveries.
type Recorder interface {
	LastBlock(ctx context.Context, chainhookUUID string) (uint64, bool, error)
	Record(ctx context.Context, delivery model.Delivery) error
}

// Summary is the outcome reported back to the webhook caller.
type Summary struct {
	DeliveryID      string
	EventsProcessed int
	Dispatch        DispatchResult
}

// Processor runs extraction and dispatch for one payload at a time.
type Processor struct {
	extractor  *Extractor
	dispatcher *Dispatcher
	recorder   Recorder
	logger     *zap.Logger
	now        func() time.Time
}

// NewProcessor wires an Extractor and Dispatcher. recorder may be nil.
func NewProcessor(extractor *Extractor, dispatcher *Dispatcher, recorder Recorder, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		extractor:  extractor,
		dispatcher: dispatcher,
		recorder:   recorder,
		logger:     logger,
		now:        time.Now,
	}
}

// Process extracts the pollster events of payload and dispatches them in
// order. EventsProcessed is the number of extracted events, including ones
// the dispatcher skipped as unknown or rejected.
func (p *Processor) Process(ctx context.Context, payload *chainhook.Payload) (Summary, error) {
	if p.extractor == nil || p.dispatcher == nil {
		return Summary{}, fmt.Errorf("processor is not configured")
	}
	if payload == nil {
		return Summary{}, fmt.Errorf("payload is nil")
	}
	if err := payload.Validate(); err != nil {
		return Summary{}, err
	}

	summary := Summary{DeliveryID: uuid.NewString()}
	receivedAt := p.now().UTC()
	logger := p.logger.With(
		zap.String("delivery_id", summary.DeliveryID),
		zap.String("chainhook_uuid", payload.Chainhook.UUID),
	)

	logger.Info("webhook received",
		zap.String("chain", payload.Event.Chain),
		zap.String("network", payload.Event.Network),
		zap.Int("blocks", len(payload.Event.Apply)),
		zap.Int("rollback_blocks", len(payload.Event.Rollback)),
	)

	firstBlock, lastBlock, hasBlocks := payload.BlockRange()
	if hasBlocks && p.recorder != nil {
		p.checkRedelivery(ctx, logger, payload.Chainhook.UUID, lastBlock)
	}

	extraction := p.extractor.Extract(payload)
	summary.EventsProcessed = len(extraction.Events)
	logger.Info("events found",
		zap.Int("events", len(extraction.Events)),
		zap.Int("operation_errors", len(extraction.Failed)),
	)

	res, err := p.dispatcher.Dispatch(ctx, extraction.Events)
	summary.Dispatch = res
	if err != nil {
		return summary, fmt.Errorf("dispatch: %w", err)
	}

	if p.recorder != nil {
		delivery := model.Delivery{
			ID:              summary.DeliveryID,
			ChainhookUUID:   payload.Chainhook.UUID,
			Chain:           payload.Event.Chain,
			Network:         payload.Event.Network,
			FirstBlock:      firstBlock,
			LastBlock:       lastBlock,
			Blocks:          len(payload.Event.Apply),
			RollbackBlocks:  len(payload.Event.Rollback),
			EventsExtracted: len(extraction.Events),
			Dispatched:      res.Dispatched,
			Unknown:         res.Unknown,
			Rejected:        res.Rejected,
			Failed:          res.Failed,
			OperationErrors: len(extraction.Failed),
			ReceivedAt:      receivedAt,
		}
		if err := p.recorder.Record(ctx, delivery); err != nil {
			logger.Warn("record delivery failed", zap.Error(err))
		}
	}

	logger.Info("webhook processed",
		zap.Int("dispatched", res.Dispatched),
		zap.Int("unknown", res.Unknown),
		zap.Int("rejected", res.Rejected),
		zap.Int("failed", res.Failed),
	)
	return summary, nil
}

func (p *Processor) checkRedelivery(ctx context.Context, logger *zap.Logger, chainhookUUID string, lastBlock uint64) {
	cursor, ok, err := p.recorder.LastBlock(ctx, chainhookUUID)
	if err != nil {
		logger.Warn("load cursor failed", zap.Error(err))
		return
	}
	if ok && lastBlock <= cursor {
		logger.Info("probable redelivery",
			zap.Uint64("last_block", lastBlock),
			zap.Uint64("cursor", cursor),
		)
	}
}
