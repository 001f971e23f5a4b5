package pollster

import (
	"context"

	"go.uber.org/zap"

	"pollsterHook/internal/model"
)

// NewLogHandlers returns handlers that only log each event.
// TODO: persist polls and votes once the storage schema for events is agreed.
func NewLogHandlers(logger *zap.Logger) Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	counter := func(_ context.Context, ev model.CounterChanged) error {
		sign := "+"
		if ev.Event == model.KindCounterDecremented {
			sign = "-"
		}
		logger.Info("counter changed",
			zap.String("direction", sign),
			zap.Uint64("block_height", ev.BlockHeight),
		)
		return nil
	}

	return Handlers{
		PollCreated: func(_ context.Context, ev model.PollCreated) error {
			logger.Info("poll created",
				zap.Uint64("poll_id", ev.PollID),
				zap.String("title", ev.Title),
				zap.String("creator", ev.Creator),
				zap.Uint64("options", ev.OptionCount),
				zap.Uint64("block_height", ev.BlockHeight),
			)
			return nil
		},
		VoteCast: func(_ context.Context, ev model.VoteCast) error {
			logger.Info("vote cast",
				zap.Uint64("poll_id", ev.PollID),
				zap.String("voter", ev.Voter),
				zap.Uint64("option_id", ev.OptionID),
				zap.Uint64("total_votes", ev.TotalVotes),
				zap.Uint64("block_height", ev.BlockHeight),
			)
			return nil
		},
		PollClosed: func(_ context.Context, ev model.PollClosed) error {
			logger.Info("poll closed",
				zap.Uint64("poll_id", ev.PollID),
				zap.String("closer", ev.Closer),
				zap.Uint64("block_height", ev.BlockHeight),
			)
			return nil
		},
		CounterIncremented: counter,
		CounterDecremented: counter,
	}
}
