package chainhook

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	// StatusSuccess marks a transaction whose effects were committed.
	StatusSuccess = "success"
	// OperationContractLog is the operation type carrying contract print events.
	OperationContractLog = "contract_log"
)

// Payload is one webhook delivery.
type Payload struct {
	Chainhook Hook   `json:"chainhook"`
	Event     *Event `json:"event" validate:"required"`
}

// Hook identifies the subscription that produced the delivery.
type Hook struct {
	UUID string `json:"uuid" validate:"required"`
	Name string `json:"name,omitempty"`
}

// Event holds the applied and rolled back blocks.
type Event struct {
	Chain    string  `json:"chain" validate:"required"`
	Network  string  `json:"network" validate:"required"`
	Apply    []Block `json:"apply" validate:"required"`
	Rollback []Block `json:"rollback,omitempty"`
}

// Block is one confirmed block.
type Block struct {
	BlockIdentifier BlockIdentifier `json:"block_identifier"`
	Timestamp       int64           `json:"timestamp,omitempty"`
	Transactions    []Transaction   `json:"transactions"`
}

// BlockIdentifier locates a block.
type BlockIdentifier struct {
	Index uint64 `json:"index"`
	Hash  string `json:"hash"`
}

// Transaction is one transaction within a block. A transaction that does not
// match this shape still decodes: Err holds the failure and Raw the original
// JSON, so one bad transaction cannot reject the whole delivery.
type Transaction struct {
	TransactionIdentifier TransactionIdentifier `json:"transaction_identifier"`
	Metadata              TransactionMetadata   `json:"metadata"`
	Operations            []Operation           `json:"operations"`

	Raw json.RawMessage `json:"-"`
	Err error           `json:"-"`
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	type plain Transaction
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		var head struct {
			TransactionIdentifier TransactionIdentifier `json:"transaction_identifier"`
		}
		_ = json.Unmarshal(data, &head)
		*t = Transaction{
			TransactionIdentifier: head.TransactionIdentifier,
			Raw:                   append(json.RawMessage(nil), data...),
			Err:                   fmt.Errorf("decode transaction: %w", err),
		}
		return nil
	}
	*t = Transaction(decoded)
	return nil
}

// TransactionIdentifier locates a transaction.
type TransactionIdentifier struct {
	Hash string `json:"hash"`
}

// TransactionMetadata carries the execution status.
type TransactionMetadata struct {
	Status string `json:"status"`
	Sender string `json:"sender,omitempty"`
	Fee    string `json:"fee,omitempty"`
}

// Operation is one effect of a transaction. Like Transaction, a malformed
// operation decodes with Err set; Type is kept when it is still readable.
type Operation struct {
	Type                string              `json:"type"`
	OperationIdentifier OperationIdentifier `json:"operation_identifier"`
	Metadata            OperationMetadata   `json:"metadata"`

	Raw json.RawMessage `json:"-"`
	Err error           `json:"-"`
}

func (o *Operation) UnmarshalJSON(data []byte) error {
	type plain Operation
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		var head struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(data, &head)
		*o = Operation{
			Type: head.Type,
			Raw:  append(json.RawMessage(nil), data...),
			Err:  fmt.Errorf("decode operation: %w", err),
		}
		return nil
	}
	*o = Operation(decoded)
	return nil
}

// OperationIdentifier locates an operation within its transaction.
type OperationIdentifier struct {
	Index int `json:"index"`
}

// OperationMetadata holds the print payload. Value is decoded lazily so a
// malformed operation does not invalidate the whole delivery.
type OperationMetadata struct {
	ContractIdentifier string          `json:"contract_identifier,omitempty"`
	Topic              string          `json:"topic,omitempty"`
	Value              json.RawMessage `json:"value,omitempty"`
}

var validate = validator.New()

// ParsePayload decodes and validates a webhook body.
func ParsePayload(body []byte) (*Payload, error) {
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Validate checks the fields required to traverse the payload.
func (p *Payload) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// BlockRange returns the lowest and highest applied block heights.
func (p *Payload) BlockRange() (uint64, uint64, bool) {
	if p == nil || p.Event == nil || len(p.Event.Apply) == 0 {
		return 0, 0, false
	}
	low := p.Event.Apply[0].BlockIdentifier.Index
	high := low
	for _, block := range p.Event.Apply[1:] {
		idx := block.BlockIdentifier.Index
		if idx < low {
			low = idx
		}
		if idx > high {
			high = idx
		}
	}
	return low, high, true
}
