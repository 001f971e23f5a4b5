package pollster

import (
	"go.uber.org/zap"

	"pollsterHook/internal/chainhook"
	"pollsterHook/internal/clarity"
	"pollsterHook/internal/model"
)

// maxLoggedValue bounds how much of a malformed operation value is logged.
const maxLoggedValue = 512

// Extraction is the ordered result of walking one payload.
type Extraction struct {
	Events []model.RawEvent
	Failed []model.OperationError
}

// Extractor pulls pollster events out of the contract logs of a payload.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor builds an Extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract walks blocks, then transactions, then operations in payload order.
// Only successful transactions and contract_log operations are inspected.
// A decoded value is kept when it is a mapping carrying the discriminator
// field; anything else is dropped silently. A transaction or operation that
// fails to decode is logged, recorded in Failed and skipped without affecting
// the rest of the payload.
func (e *Extractor) Extract(payload *chainhook.Payload) Extraction {
	var out Extraction
	out.Events = make([]model.RawEvent, 0)
	if payload == nil || payload.Event == nil {
		return out
	}

	for _, block := range payload.Event.Apply {
		for _, tx := range block.Transactions {
			if tx.Err != nil {
				e.fail(&out, payload, model.EventSource{
					BlockHeight:    block.BlockIdentifier.Index,
					BlockHash:      block.BlockIdentifier.Hash,
					TxHash:         tx.TransactionIdentifier.Hash,
					OperationIndex: -1,
				}, tx.Raw, tx.Err)
				continue
			}
			if tx.Metadata.Status != chainhook.StatusSuccess {
				continue
			}
			for i, op := range tx.Operations {
				// An operation too broken to show its type may still be a contract log.
				if op.Type != chainhook.OperationContractLog && (op.Err == nil || op.Type != "") {
					continue
				}

				source := model.EventSource{
					BlockHeight:    block.BlockIdentifier.Index,
					BlockHash:      block.BlockIdentifier.Hash,
					TxHash:         tx.TransactionIdentifier.Hash,
					OperationIndex: op.OperationIdentifier.Index,
				}
				if op.Err != nil {
					source.OperationIndex = i
					e.fail(&out, payload, source, op.Raw, op.Err)
					continue
				}

				raw, ok, err := e.decodeOperation(op, source)
				if err != nil {
					e.fail(&out, payload, source, op.Metadata.Value, err)
					continue
				}
				if ok {
					out.Events = append(out.Events, raw)
				}
			}
		}
	}

	return out
}

func (e *Extractor) fail(out *Extraction, payload *chainhook.Payload, source model.EventSource, value []byte, err error) {
	opErr := model.OperationError{
		ChainhookUUID:  payload.Chainhook.UUID,
		BlockHeight:    source.BlockHeight,
		TxHash:         source.TxHash,
		OperationIndex: source.OperationIndex,
		Value:          truncate(string(value), maxLoggedValue),
		Error:          err.Error(),
	}
	out.Failed = append(out.Failed, opErr)
	e.logger.Error("failed to parse event",
		zap.Error(err),
		zap.String("chainhook_uuid", opErr.ChainhookUUID),
		zap.Uint64("block_height", opErr.BlockHeight),
		zap.String("tx_hash", opErr.TxHash),
		zap.Int("operation_index", opErr.OperationIndex),
		zap.String("value", opErr.Value),
	)
}

func (e *Extractor) decodeOperation(op chainhook.Operation, source model.EventSource) (model.RawEvent, bool, error) {
	value, err := clarity.Parse(op.Metadata.Value)
	if err != nil {
		return model.RawEvent{}, false, err
	}

	e.logger.Debug("contract log",
		zap.String("tx_hash", source.TxHash),
		zap.Int("operation_index", source.OperationIndex),
		zap.String("contract", op.Metadata.ContractIdentifier),
		zap.String("clarity_kind", clarity.KindOf(value)),
	)

	fields, ok := clarity.Decode(value).(map[string]any)
	if !ok {
		return model.RawEvent{}, false, nil
	}
	disc, ok := fields[model.DiscriminatorField]
	if !ok {
		return model.RawEvent{}, false, nil
	}

	return model.RawEvent{
		Kind:         model.EventKind(discriminator(disc)),
		Fields:       fields,
		ClarityTypes: clarity.FieldTypes(value),
		Source:       source,
	}, true, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
