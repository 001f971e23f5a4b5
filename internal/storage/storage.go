package storage

import (
	"context"

	"pollsterHook/internal/model"
)

// Storage defines a sink for delivery records.
type Storage interface {
	PutDeliveryBatch(ctx context.Context, deliveries []model.Delivery) error
}
