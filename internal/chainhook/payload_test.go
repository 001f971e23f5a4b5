package chainhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
	"chainhook": {"uuid": "9a4d7b0e-1f7c-4e8a-9d3a-0d1f2e3c4b5a", "name": "Pollster Contract Events"},
	"event": {
		"chain": "stacks",
		"network": "mainnet",
		"apply": [
			{
				"block_identifier": {"index": 100, "hash": "0xaa"},
				"timestamp": 1700000000,
				"transactions": [
					{
						"transaction_identifier": {"hash": "0x01"},
						"metadata": {"status": "success", "sender": "SP123"},
						"operations": [
							{
								"type": "contract_log",
								"operation_identifier": {"index": 3},
								"metadata": {
									"contract_identifier": "SP237HRZEM03XCG4TJMYMBT0J0FPY90MS1HB48YTM.pollster",
									"topic": "print",
									"value": {"event": {"hex": "0x0d", "repr": "\"counter-incremented\""}}
								}
							}
						]
					}
				]
			},
			{"block_identifier": {"index": 98, "hash": "0xbb"}, "transactions": []}
		],
		"rollback": []
	}
}`

func TestParsePayload(t *testing.T) {
	payload, err := ParsePayload([]byte(samplePayload))
	require.NoError(t, err)

	assert.Equal(t, "9a4d7b0e-1f7c-4e8a-9d3a-0d1f2e3c4b5a", payload.Chainhook.UUID)
	assert.Equal(t, "stacks", payload.Event.Chain)
	assert.Equal(t, "mainnet", payload.Event.Network)
	require.Len(t, payload.Event.Apply, 2)

	tx := payload.Event.Apply[0].Transactions[0]
	assert.Equal(t, StatusSuccess, tx.Metadata.Status)
	require.Len(t, tx.Operations, 1)
	op := tx.Operations[0]
	assert.Equal(t, OperationContractLog, op.Type)
	assert.Equal(t, 3, op.OperationIdentifier.Index)
	assert.Equal(t, "print", op.Metadata.Topic)
	assert.JSONEq(t, `{"event": {"hex": "0x0d", "repr": "\"counter-incremented\""}}`, string(op.Metadata.Value))

	low, high, ok := payload.BlockRange()
	require.True(t, ok)
	assert.Equal(t, uint64(98), low)
	assert.Equal(t, uint64(100), high)
}

func TestParsePayloadEmptyApply(t *testing.T) {
	payload, err := ParsePayload([]byte(`{"chainhook":{"uuid":"u"},"event":{"chain":"stacks","network":"testnet","apply":[]}}`))
	require.NoError(t, err)
	assert.Empty(t, payload.Event.Apply)

	_, _, ok := payload.BlockRange()
	assert.False(t, ok)
}

func TestParsePayloadRejectsStructurallyInvalid(t *testing.T) {
	cases := map[string]string{
		"not json":      `{"chainhook":`,
		"missing event": `{"chainhook":{"uuid":"u"}}`,
		"missing uuid":  `{"chainhook":{},"event":{"chain":"stacks","network":"mainnet","apply":[]}}`,
		"missing apply": `{"chainhook":{"uuid":"u"},"event":{"chain":"stacks","network":"mainnet"}}`,
		"null apply":    `{"chainhook":{"uuid":"u"},"event":{"chain":"stacks","network":"mainnet","apply":null}}`,
		"missing chain": `{"chainhook":{"uuid":"u"},"event":{"network":"mainnet","apply":[]}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePayload([]byte(body))
			require.Error(t, err)
		})
	}
}

func TestParsePayloadKeepsMalformedOperations(t *testing.T) {
	body := `{"chainhook":{"uuid":"u"},"event":{"chain":"stacks","network":"mainnet","apply":[{
		"block_identifier": {"index": 7, "hash": "0x07"},
		"transactions": [
			{"transaction_identifier": {"hash": "0x01"}, "metadata": {"status": "success"}, "operations": [
				{"type": "contract_log", "metadata": "oops"},
				{"type": "stx_transfer", "operation_identifier": {"index": 0.5}},
				{"type": "contract_log", "operation_identifier": {"index": 2}, "metadata": {"value": {"event": "poll-closed"}}}
			]},
			{"transaction_identifier": {"hash": "0x02"}, "metadata": {"status": 7}}
		]
	}]}}`

	payload, err := ParsePayload([]byte(body))
	require.NoError(t, err)

	txs := payload.Event.Apply[0].Transactions
	require.Len(t, txs, 2)
	require.NoError(t, txs[0].Err)
	require.Len(t, txs[0].Operations, 3)

	bad := txs[0].Operations[0]
	require.Error(t, bad.Err)
	assert.Equal(t, OperationContractLog, bad.Type)
	assert.Contains(t, string(bad.Raw), `"oops"`)

	transfer := txs[0].Operations[1]
	require.Error(t, transfer.Err)
	assert.Equal(t, "stx_transfer", transfer.Type)

	good := txs[0].Operations[2]
	require.NoError(t, good.Err)
	assert.Equal(t, 2, good.OperationIdentifier.Index)
	assert.JSONEq(t, `{"event": "poll-closed"}`, string(good.Metadata.Value))

	require.Error(t, txs[1].Err)
	assert.Equal(t, "0x02", txs[1].TransactionIdentifier.Hash)
	assert.Empty(t, txs[1].Operations)
}
