package pollster

import (
	"encoding/json"
	"fmt"

	"pollsterHook/internal/chainhook"
)

const creator = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"

func tagged(repr string) map[string]any {
	return map[string]any{"hex": "0x0d00000001", "repr": repr}
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func logOp(index int, value any) chainhook.Operation {
	return chainhook.Operation{
		Type:                chainhook.OperationContractLog,
		OperationIdentifier: chainhook.OperationIdentifier{Index: index},
		Metadata: chainhook.OperationMetadata{
			ContractIdentifier: "SP237HRZEM03XCG4TJMYMBT0J0FPY90MS1HB48YTM.pollster",
			Topic:              "print",
			Value:              mustJSON(value),
		},
	}
}

func rawLogOp(index int, value string) chainhook.Operation {
	op := logOp(index, nil)
	op.Metadata.Value = json.RawMessage(value)
	return op
}

func transferOp(index int, value any) chainhook.Operation {
	op := logOp(index, value)
	op.Type = "stx_transfer"
	return op
}

func tx(hash, status string, ops ...chainhook.Operation) chainhook.Transaction {
	return chainhook.Transaction{
		TransactionIdentifier: chainhook.TransactionIdentifier{Hash: hash},
		Metadata:              chainhook.TransactionMetadata{Status: status},
		Operations:            ops,
	}
}

func block(height uint64, txs ...chainhook.Transaction) chainhook.Block {
	return chainhook.Block{
		BlockIdentifier: chainhook.BlockIdentifier{Index: height, Hash: fmt.Sprintf("0xblock%d", height)},
		Transactions:    txs,
	}
}

func payload(blocks ...chainhook.Block) *chainhook.Payload {
	if blocks == nil {
		blocks = []chainhook.Block{}
	}
	return &chainhook.Payload{
		Chainhook: chainhook.Hook{UUID: "9a4d7b0e-1f7c-4e8a-9d3a-0d1f2e3c4b5a"},
		Event: &chainhook.Event{
			Chain:   "stacks",
			Network: "mainnet",
			Apply:   blocks,
		},
	}
}

func pollCreatedValue() map[string]any {
	return map[string]any{
		"event":        "poll-created",
		"poll-id":      1,
		"title":        "Best color?",
		"creator":      creator,
		"option-count": 3,
		"block-height": 100,
	}
}

func voteCastValue(total int) map[string]any {
	return map[string]any{
		"event":        tagged(`"vote-cast"`),
		"poll-id":      tagged("u1"),
		"voter":        tagged("'" + creator),
		"option-id":    tagged("u2"),
		"total-votes":  tagged(fmt.Sprintf("u%d", total)),
		"block-height": tagged(fmt.Sprintf("u%d", 100+total)),
	}
}
