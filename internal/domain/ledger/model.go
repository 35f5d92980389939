// Package ledger is the stock ledger: the only component allowed to change
// product stock, always together with the movement row that explains it.
package ledger

import (
	"time"
)

// MovementType is the direction of a stock change.
type MovementType string

const (
	MovementIn  MovementType = "in"
	MovementOut MovementType = "out"
)

// Opposite returns the reverse direction.
func (t MovementType) Opposite() MovementType {
	if t == MovementIn {
		return MovementOut
	}
	return MovementIn
}

// Sign returns +1 for in and -1 for out.
func (t MovementType) Sign() int64 {
	if t == MovementIn {
		return 1
	}
	return -1
}

// Reason explains why a movement happened.
type Reason string

const (
	ReasonPurchase   Reason = "purchase"
	ReasonSale       Reason = "sale"
	ReasonAdjustment Reason = "adjustment"
)

// SourceType names the business transaction that produced a movement.
type SourceType string

const (
	SourcePurchase SourceType = "purchase"
	SourceSale     SourceType = "sale"
	SourceManual   SourceType = "manual"
)

// Movement is one ledger entry.
type Movement struct {
	ID           int64        `db:"id" json:"id"`
	ProductID    int64        `db:"product_id" json:"product_id"`
	Type         MovementType `db:"type" json:"type"`
	Quantity     int64        `db:"quantity" json:"quantity"`
	Reason       Reason       `db:"reason" json:"reason"`
	SourceType   SourceType   `db:"source_type" json:"source_type"`
	SourceID     *int64       `db:"source_id" json:"source_id,omitempty"`
	ReversesID   *int64       `db:"reverses_id" json:"reverses_id,omitempty"`
	ReversedByID *int64       `db:"reversed_by_id" json:"reversed_by_id,omitempty"`
	Notes        string       `db:"notes" json:"notes"`
	CreatedBy    int64        `db:"created_by" json:"created_by"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// Signed returns the movement's effect on stock.
func (m Movement) Signed() int64 {
	return m.Type.Sign() * m.Quantity
}

// IsReversed reports whether a later movement cancelled this one.
func (m Movement) IsReversed() bool {
	return m.ReversedByID != nil
}

// IsReversal reports whether this movement cancels an earlier one.
func (m Movement) IsReversal() bool {
	return m.ReversesID != nil
}

// Origin is the operation context passed explicitly through every ledger call:
// who acts and which business transaction the movement belongs to.
type Origin struct {
	ActorID    int64
	SourceType SourceType
	SourceID   *int64
}

// PurchaseOrigin tags movements produced by purchase id.
func PurchaseOrigin(purchaseID, actorID int64) Origin {
	return Origin{ActorID: actorID, SourceType: SourcePurchase, SourceID: &purchaseID}
}

// SaleOrigin tags movements produced by sale id.
func SaleOrigin(saleID, actorID int64) Origin {
	return Origin{ActorID: actorID, SourceType: SourceSale, SourceID: &saleID}
}

// ManualOrigin tags operator-initiated adjustments.
func ManualOrigin(actorID int64) Origin {
	return Origin{ActorID: actorID, SourceType: SourceManual}
}

// MovementInput describes a movement to record.
type MovementInput struct {
	ProductID int64        `json:"product_id" validate:"gt=0"`
	Type      MovementType `json:"type" validate:"required,oneof=in out"`
	Quantity  int64        `json:"quantity" validate:"gt=0,max=1000000000"`
	Reason    Reason       `json:"reason" validate:"required,oneof=purchase sale adjustment"`
	Notes     string       `json:"notes" validate:"max=1000"`
	Origin    Origin       `json:"-" validate:"-"`
}

// MovementChange is an in-place edit of a movement. Nil fields are kept.
type MovementChange struct {
	Type     *MovementType `json:"type" validate:"omitempty,oneof=in out"`
	Quantity *int64        `json:"quantity" validate:"omitempty,gt=0,max=1000000000"`
	Notes    *string       `json:"notes" validate:"omitempty,max=1000"`
}

// Filter selects movements for listing.
type Filter struct {
	ProductID  *int64
	SourceType *SourceType
	SourceID   *int64
	// ActiveOnly excludes reversed movements and reversal movements.
	ActiveOnly bool
	// Limit 0 means no limit.
	Limit      uint64
	Offset     uint64
}
