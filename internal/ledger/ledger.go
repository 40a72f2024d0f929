// Package ledger records which resources were delivered to which consumer.
//
// Recording is bookkeeping: Async wraps any Sink so a batch build never
// waits on it and a failing backend only produces log lines.
package ledger

import (
	"context"
	"time"
)

// Usage is one delivered resource.
type Usage struct {
	ResourceID  string    `json:"resource_id"`
	ConsumerID  string    `json:"consumer_id"`
	BatchID     string    `json:"batch_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// Sink persists usage records.
type Sink interface {
	Record(ctx context.Context, usage []Usage) error
}

// Nop discards all records.
type Nop struct{}

func (Nop) Record(context.Context, []Usage) error { return nil }

// FromResourceIDs builds one usage record per resource id.
func FromResourceIDs(ids []string, consumerID, batchID string, at time.Time) []Usage {
	out := make([]Usage, 0, len(ids))
	for _, id := range ids {
		out = append(out, Usage{ResourceID: id, ConsumerID: consumerID, BatchID: batchID, DeliveredAt: at.UTC()})
	}
	return out
}
