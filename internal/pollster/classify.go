package pollster

import (
	"fmt"

	"pollsterHook/internal/model"
)

type classifier func(raw model.RawEvent) (model.Event, error)

// classifiers maps each known discriminator to the validator that builds its variant.
var classifiers = map[model.EventKind]classifier{
	model.KindPollCreated:        classifyPollCreated,
	model.KindVoteCast:           classifyVoteCast,
	model.KindPollClosed:         classifyPollClosed,
	model.KindCounterIncremented: classifyCounter,
	model.KindCounterDecremented: classifyCounter,
}

// IsKnownKind reports whether kind has a classifier.
func IsKnownKind(kind model.EventKind) bool {
	_, ok := classifiers[kind]
	return ok
}

// Classify validates a raw event against the fields required by its kind.
func Classify(raw model.RawEvent) (model.Event, error) {
	fn, ok := classifiers[raw.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", raw.Kind)
	}
	ev, err := fn(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", raw.Kind, err)
	}
	return ev, nil
}

func classifyPollCreated(raw model.RawEvent) (model.Event, error) {
	height, err := fieldUint(raw.Fields, "block-height")
	if err != nil {
		return nil, err
	}
	pollID, err := fieldUint(raw.Fields, "poll-id")
	if err != nil {
		return nil, err
	}
	title, err := fieldString(raw.Fields, "title")
	if err != nil {
		return nil, err
	}
	creator, err := fieldString(raw.Fields, "creator")
	if err != nil {
		return nil, err
	}
	optionCount, err := fieldUint(raw.Fields, "option-count")
	if err != nil {
		return nil, err
	}
	return model.PollCreated{
		BlockHeight: height,
		PollID:      pollID,
		Title:       title,
		Creator:     creator,
		OptionCount: optionCount,
		Source:      raw.Source,
	}, nil
}

func classifyVoteCast(raw model.RawEvent) (model.Event, error) {
	height, err := fieldUint(raw.Fields, "block-height")
	if err != nil {
		return nil, err
	}
	pollID, err := fieldUint(raw.Fields, "poll-id")
	if err != nil {
		return nil, err
	}
	voter, err := fieldString(raw.Fields, "voter")
	if err != nil {
		return nil, err
	}
	optionID, err := fieldUint(raw.Fields, "option-id")
	if err != nil {
		return nil, err
	}
	totalVotes, err := fieldUint(raw.Fields, "total-votes")
	if err != nil {
		return nil, err
	}
	return model.VoteCast{
		BlockHeight: height,
		PollID:      pollID,
		Voter:       voter,
		OptionID:    optionID,
		TotalVotes:  totalVotes,
		Source:      raw.Source,
	}, nil
}

func classifyPollClosed(raw model.RawEvent) (model.Event, error) {
	height, err := fieldUint(raw.Fields, "block-height")
	if err != nil {
		return nil, err
	}
	pollID, err := fieldUint(raw.Fields, "poll-id")
	if err != nil {
		return nil, err
	}
	closer, err := fieldString(raw.Fields, "closer")
	if err != nil {
		return nil, err
	}
	return model.PollClosed{
		BlockHeight: height,
		PollID:      pollID,
		Closer:      closer,
		Source:      raw.Source,
	}, nil
}

func classifyCounter(raw model.RawEvent) (model.Event, error) {
	height, err := fieldUint(raw.Fields, "block-height")
	if err != nil {
		return nil, err
	}
	return model.CounterChanged{
		Event:       raw.Kind,
		BlockHeight: height,
		Source:      raw.Source,
	}, nil
}
