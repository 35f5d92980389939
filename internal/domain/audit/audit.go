// Package audit defines the audit trail written alongside every ledger change.
package audit

import (
	"context"
	"time"
)

// Action is the kind of audited operation.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionReverse Action = "reverse"
	ActionDrift   Action = "drift"
)

// Entity types used in audit entries.
const (
	EntityStockMovement = "stock_movement"
	EntityPurchase      = "purchase"
	EntitySale          = "sale"
	EntityProduct       = "product"
)

// Entry is a single audit record.
type Entry struct {
	EntityType string         `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	Action     Action         `json:"action"`
	ActorID    int64          `json:"actor_id"`
	Changes    map[string]any `json:"changes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Recorder persists audit entries. Implementations write through the
// transaction carried by ctx so the entry commits or rolls back with the change.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Nop discards entries.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Entry) error { return nil }
