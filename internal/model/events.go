package model

// EventKind is the discriminator printed by the pollster contract.
type EventKind string

const (
	KindPollCreated        EventKind = "poll-created"
	KindVoteCast           EventKind = "vote-cast"
	KindPollClosed         EventKind = "poll-closed"
	KindCounterIncremented EventKind = "counter-incremented"
	KindCounterDecremented EventKind = "counter-decremented"
)

// DiscriminatorField is the tuple key that names the event kind.
const DiscriminatorField = "event"

// Event is a classified pollster event.
type Event interface {
	Kind() EventKind
	Height() uint64
}

// PollCreated is emitted when a poll is opened.
type PollCreated struct {
	BlockHeight uint64      `json:"block-height"`
	PollID      uint64      `json:"poll-id"`
	Title       string      `json:"title"`
	Creator     string      `json:"creator"`
	OptionCount uint64      `json:"option-count"`
	Source      EventSource `json:"source"`
}

// VoteCast is emitted for every vote; TotalVotes is the running count for the poll.
type VoteCast struct {
	BlockHeight uint64      `json:"block-height"`
	PollID      uint64      `json:"poll-id"`
	Voter       string      `json:"voter"`
	OptionID    uint64      `json:"option-id"`
	TotalVotes  uint64      `json:"total-votes"`
	Source      EventSource `json:"source"`
}

// PollClosed is emitted when a poll is closed by its creator.
type PollClosed struct {
	BlockHeight uint64      `json:"block-height"`
	PollID      uint64      `json:"poll-id"`
	Closer      string      `json:"closer"`
	Source      EventSource `json:"source"`
}

// CounterChanged covers both counter-incremented and counter-decremented.
type CounterChanged struct {
	Event       EventKind   `json:"event"`
	BlockHeight uint64      `json:"block-height"`
	Source      EventSource `json:"source"`
}

func (e PollCreated) Kind() EventKind    { return KindPollCreated }
func (e PollCreated) Height() uint64     { return e.BlockHeight }
func (e VoteCast) Kind() EventKind       { return KindVoteCast }
func (e VoteCast) Height() uint64        { return e.BlockHeight }
func (e PollClosed) Kind() EventKind     { return KindPollClosed }
func (e PollClosed) Height() uint64      { return e.BlockHeight }
func (e CounterChanged) Kind() EventKind { return e.Event }
func (e CounterChanged) Height() uint64  { return e.BlockHeight }

// RawEvent is a decoded contract log that carries a discriminator but has
// not been validated against its kind yet.
type RawEvent struct {
	Kind   EventKind      `json:"event"`
	Fields map[string]any `json:"fields"`
	// ClarityTypes names the Clarity type of each field that arrived as a
	// tagged value, read from its serialization prefix.
	ClarityTypes map[string]string `json:"clarity_types,omitempty"`
	Source       EventSource       `json:"source"`
}

// EventSource points back at the operation an event was decoded from.
type EventSource struct {
	BlockHeight    uint64 `json:"block_height"`
	BlockHash      string `json:"block_hash"`
	TxHash         string `json:"tx_hash"`
	OperationIndex int    `json:"operation_index"`
}
