package ledger_test

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/app"
	"stockflow/internal/core/apperror"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/audit"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/domain/product"
	"stockflow/internal/infrastructure/storage/memory"
)

const actor int64 = 1

func setup(t *testing.T) (*memory.Store, *app.Services) {
	t.Helper()
	store := memory.New()
	return store, app.NewServices(store.Repositories())
}

func newProduct(t *testing.T, svc *app.Services, stock int64) *product.Product {
	t.Helper()
	p, err := svc.Products.Create(context.Background(), product.CreateInput{
		Name:         "Denim Jacket",
		CostPrice:    types.MustMoney("10.00"),
		SellingPrice: types.MustMoney("25.00"),
		InitialStock: stock,
	})
	require.NoError(t, err)
	return p
}

func stockOf(t *testing.T, svc *app.Services, id int64) int64 {
	t.Helper()
	stock, err := svc.Products.CurrentStock(context.Background(), id)
	require.NoError(t, err)
	return stock
}

func input(productID int64, typ ledger.MovementType, qty int64) ledger.MovementInput {
	return ledger.MovementInput{
		ProductID: productID,
		Type:      typ,
		Quantity:  qty,
		Reason:    ledger.ReasonAdjustment,
		Notes:     "count",
		Origin:    ledger.ManualOrigin(actor),
	}
}

func TestRecordMovement_ChangesStockAndAudits(t *testing.T) {
	store, svc := setup(t)
	ctx := context.Background()
	p := newProduct(t, svc, 5)

	m, err := svc.Ledger.RecordMovement(ctx, input(p.ID, ledger.MovementIn, 3))
	require.NoError(t, err)

	assert.Equal(t, int64(8), stockOf(t, svc, p.ID))
	assert.Equal(t, ledger.SourceManual, m.SourceType)
	assert.Equal(t, actor, m.CreatedBy)

	entries := store.Audit().Entries(audit.EntityStockMovement)
	require.Len(t, entries, 1)
	assert.Equal(t, m.ID, entries[0].EntityID)
	assert.EqualValues(t, 5, entries[0].Changes["stock_before"])
	assert.EqualValues(t, 8, entries[0].Changes["stock_after"])
}

func TestRecordMovement_Rejections(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	p := newProduct(t, svc, 2)

	tests := []struct {
		name  string
		in    ledger.MovementInput
		check func(error) bool
	}{
		{"insufficient stock", input(p.ID, ledger.MovementOut, 3), apperror.IsInsufficientStock},
		{"unknown product", input(p.ID+1000, ledger.MovementIn, 1), apperror.IsNotFound},
		{"zero quantity", input(p.ID, ledger.MovementIn, 0), apperror.IsValidation},
		{"bad type", input(p.ID, "sideways", 1), apperror.IsValidation},
		{"quantity above limit", input(p.ID, ledger.MovementIn, math.MaxInt64), apperror.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Ledger.RecordMovement(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}

	assert.Equal(t, int64(2), stockOf(t, svc, p.ID))
	history, err := svc.Ledger.History(ctx, ledger.Filter{ProductID: &p.ID})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRecordMovement_InsufficientStockDetails(t *testing.T) {
	_, svc := setup(t)
	p := newProduct(t, svc, 2)

	_, err := svc.Ledger.RecordMovement(context.Background(), input(p.ID, ledger.MovementOut, 3))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, p.ID, appErr.Details["product_id"])
	assert.Equal(t, p.Name, appErr.Details["product_name"])
	assert.EqualValues(t, 3, appErr.Details["requested"])
	assert.EqualValues(t, 2, appErr.Details["available"])
}

func TestReverseMovement(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	p := newProduct(t, svc, 1)

	original, err := svc.Ledger.RecordMovement(ctx, input(p.ID, ledger.MovementIn, 4))
	require.NoError(t, err)

	reversal, err := svc.Ledger.ReverseMovement(ctx, original.ID, ledger.ManualOrigin(actor), "undo")
	require.NoError(t, err)

	assert.Equal(t, int64(1), stockOf(t, svc, p.ID))
	assert.Equal(t, ledger.MovementOut, reversal.Type)
	assert.Equal(t, ledger.ReasonAdjustment, reversal.Reason)
	require.NotNil(t, reversal.ReversesID)
	assert.Equal(t, original.ID, *reversal.ReversesID)

	flagged, err := svc.Ledger.Movement(ctx, original.ID)
	require.NoError(t, err)
	require.NotNil(t, flagged.ReversedByID)
	assert.Equal(t, reversal.ID, *flagged.ReversedByID)

	_, err = svc.Ledger.ReverseMovement(ctx, original.ID, ledger.ManualOrigin(actor), "again")
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))

	_, err = svc.Ledger.ReverseMovement(ctx, reversal.ID, ledger.ManualOrigin(actor), "undo the undo")
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))

	history, err := svc.Ledger.History(ctx, ledger.Filter{ProductID: &p.ID})
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestReverseMovement_WouldGoNegative(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	p := newProduct(t, svc, 0)

	in, err := svc.Ledger.RecordMovement(ctx, input(p.ID, ledger.MovementIn, 5))
	require.NoError(t, err)
	_, err = svc.Ledger.RecordMovement(ctx, input(p.ID, ledger.MovementOut, 5))
	require.NoError(t, err)

	_, err = svc.Ledger.ReverseMovement(ctx, in.ID, ledger.ManualOrigin(actor), "undo")
	assert.True(t, apperror.IsInsufficientStock(err))

	m, err := svc.Ledger.Movement(ctx, in.ID)
	require.NoError(t, err)
	assert.False(t, m.IsReversed())
	assert.Equal(t, int64(0), stockOf(t, svc, p.ID))
}

func TestUpdateMovement_AppliesNetDelta(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	p := newProduct(t, svc, 10)

	m, err := svc.Ledger.RecordMovement(ctx, input(p.ID, ledger.MovementOut, 3))
	require.NoError(t, err)
	require.Equal(t, int64(7), stockOf(t, svc, p.ID))

	qty := int64(5)
	m, err = svc.Ledger.UpdateMovement(ctx, m.ID, ledger.MovementChange{Quantity: &qty}, ledger.ManualOrigin(actor))
	require.NoError(t, err)
	assert.Equal(t, int64(5), stockOf(t, svc, p.ID))

	in := ledger.MovementIn
	_, err = svc.Ledger.UpdateMovement(ctx, m.ID, ledger.MovementChange{Type: &in}, ledger.ManualOrigin(actor))
	require.NoError(t, err)
	assert.Equal(t, int64(15), stockOf(t, svc, p.ID))
}

func TestUpdateMovement_InsufficientStock(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	p := newProduct(t, svc, 0)

	in, err := svc.Ledger.RecordMovement(ctx, input(p.ID, ledger.MovementIn, 5))
	require.NoError(t, err)
	_, err = svc.Ledger.RecordMovement(ctx, input(p.ID, ledger.MovementOut, 4))
	require.NoError(t, err)

	qty := int64(2)
	_, err = svc.Ledger.UpdateMovement(ctx, in.ID, ledger.MovementChange{Quantity: &qty}, ledger.ManualOrigin(actor))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.EqualValues(t, 3, appErr.Details["requested"])
	assert.EqualValues(t, 1, appErr.Details["available"])
	assert.Equal(t, int64(1), stockOf(t, svc, p.ID))
}

func TestUpdateMovement_ReversedIsConflict(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	p := newProduct(t, svc, 0)

	m, err := svc.Ledger.RecordMovement(ctx, input(p.ID, ledger.MovementIn, 5))
	require.NoError(t, err)
	_, err = svc.Ledger.ReverseMovement(ctx, m.ID, ledger.ManualOrigin(actor), "undo")
	require.NoError(t, err)

	qty := int64(1)
	_, err = svc.Ledger.UpdateMovement(ctx, m.ID, ledger.MovementChange{Quantity: &qty}, ledger.ManualOrigin(actor))
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))
}

func TestReverseSource(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	a := newProduct(t, svc, 0)
	b := newProduct(t, svc, 0)

	origin := ledger.PurchaseOrigin(42, actor)
	for _, id := range []int64{b.ID, a.ID} {
		in := input(id, ledger.MovementIn, 3)
		in.Reason = ledger.ReasonPurchase
		in.Origin = origin
		_, err := svc.Ledger.RecordMovement(ctx, in)
		require.NoError(t, err)
	}

	reversals, err := svc.Ledger.ReverseSource(ctx, ledger.SourcePurchase, 42, origin, "Purchase #42 deleted - stock reversal")
	require.NoError(t, err)
	require.Len(t, reversals, 2)
	assert.Equal(t, a.ID, reversals[0].ProductID)
	assert.Equal(t, b.ID, reversals[1].ProductID)
	assert.Equal(t, int64(0), stockOf(t, svc, a.ID))
	assert.Equal(t, int64(0), stockOf(t, svc, b.ID))

	again, err := svc.Ledger.ReverseSource(ctx, ledger.SourcePurchase, 42, origin, "noop")
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestReverseMovements_OnlyCapturedSet(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	p := newProduct(t, svc, 0)

	origin := ledger.PurchaseOrigin(7, actor)
	first := input(p.ID, ledger.MovementIn, 10)
	first.Reason = ledger.ReasonPurchase
	first.Origin = origin
	_, err := svc.Ledger.RecordMovement(ctx, first)
	require.NoError(t, err)

	_, err = svc.Ledger.RecordMovement(ctx, input(p.ID, ledger.MovementOut, 8))
	require.NoError(t, err)

	previous, err := svc.Ledger.ActiveSourceMovements(ctx, ledger.SourcePurchase, 7)
	require.NoError(t, err)
	require.Len(t, previous, 1)

	_, err = svc.Ledger.RecordMovement(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, int64(12), stockOf(t, svc, p.ID))

	reversals, err := svc.Ledger.ReverseMovements(ctx, previous, origin, "Purchase #7 updated - stock reversal")
	require.NoError(t, err)
	require.Len(t, reversals, 1)
	assert.Equal(t, int64(2), stockOf(t, svc, p.ID))

	active, err := svc.Ledger.ActiveSourceMovements(ctx, ledger.SourcePurchase, 7)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.NotEqual(t, previous[0].ID, active[0].ID)
}

// Random operations, successful or not, must never break
// stock == initial_stock + sum(signed movements).
func TestLedgerInvariant_RandomOperations(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(7, 11))

	products := []*product.Product{newProduct(t, svc, 3), newProduct(t, svc, 0), newProduct(t, svc, 10)}
	var movements []int64

	for i := 0; i < 300; i++ {
		p := products[rng.IntN(len(products))]
		qty := int64(rng.IntN(6) + 1)

		switch rng.IntN(4) {
		case 0, 1:
			typ := ledger.MovementIn
			if rng.IntN(2) == 0 {
				typ = ledger.MovementOut
			}
			if m, err := svc.Ledger.RecordMovement(ctx, input(p.ID, typ, qty)); err == nil {
				movements = append(movements, m.ID)
			}
		case 2:
			if len(movements) > 0 {
				id := movements[rng.IntN(len(movements))]
				_, _ = svc.Ledger.UpdateMovement(ctx, id, ledger.MovementChange{Quantity: &qty}, ledger.ManualOrigin(actor))
			}
		case 3:
			if len(movements) > 0 {
				id := movements[rng.IntN(len(movements))]
				_, _ = svc.Ledger.ReverseMovement(ctx, id, ledger.ManualOrigin(actor), "random")
			}
		}

		for _, p := range products {
			report, err := svc.Reconcile.Check(ctx, p.ID)
			require.NoError(t, err)
			require.True(t, report.Consistent(), "step %d: %+v", i, report)
			require.GreaterOrEqual(t, report.Stock, int64(0))
		}
	}
}
