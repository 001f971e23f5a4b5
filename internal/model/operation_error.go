package model

// OperationError records a contract log that could not be decoded.
type OperationError struct {
	ChainhookUUID  string `json:"chainhook_uuid"`
	BlockHeight    uint64 `json:"block_height"`
	TxHash         string `json:"tx_hash"`
	OperationIndex int    `json:"operation_index"`
	Value          string `json:"value"`
	Error          string `json:"error"`
}
