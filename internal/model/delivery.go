package model

import "time"

// Delivery records one processed webhook.
type Delivery struct {
	ID              string    `json:"id"`
	ChainhookUUID   string    `json:"chainhook_uuid"`
	Chain           string    `json:"chain"`
	Network         string    `json:"network"`
	FirstBlock      uint64    `json:"first_block"`
	LastBlock       uint64    `json:"last_block"`
	Blocks          int       `json:"blocks"`
	RollbackBlocks  int       `json:"rollback_blocks"`
	EventsExtracted int       `json:"events_extracted"`
	Dispatched      int       `json:"dispatched"`
	Unknown         int       `json:"unknown"`
	Rejected        int       `json:"rejected"`
	Failed          int       `json:"failed"`
	OperationErrors int       `json:"operation_errors"`
	ReceivedAt      time.Time `json:"received_at"`
}
