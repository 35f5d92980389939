package sale_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/app"
	"stockflow/internal/core/apperror"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/domain/product"
	"stockflow/internal/domain/sale"
	"stockflow/internal/infrastructure/storage/memory"
)

const actor int64 = 4

func setup(t *testing.T) (*memory.Store, *app.Services) {
	t.Helper()
	store := memory.New()
	return store, app.NewServices(store.Repositories())
}

func newProduct(t *testing.T, svc *app.Services, name string, stock int64) *product.Product {
	t.Helper()
	p, err := svc.Products.Create(context.Background(), product.CreateInput{
		Name:         name,
		CostPrice:    types.MustMoney("3.00"),
		SellingPrice: types.MustMoney("9.00"),
		InitialStock: stock,
	})
	require.NoError(t, err)
	return p
}

func stockOf(t *testing.T, svc *app.Services, id int64) int64 {
	t.Helper()
	s, err := svc.Products.CurrentStock(context.Background(), id)
	require.NoError(t, err)
	return s
}

func line(productID, qty int64) sale.ItemInput {
	return sale.ItemInput{ProductID: productID, Quantity: qty, SellingPrice: types.MustMoney("9.00")}
}

func TestCreate_DecrementsStock(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	p := newProduct(t, svc, "Flannel Shirt", 5)

	created, err := svc.Sales.Create(ctx, sale.CreateInput{
		CustomerName: "  Ada  ",
		Items:        []sale.ItemInput{line(p.ID, 2)},
	}, actor)
	require.NoError(t, err)

	assert.Equal(t, "Ada", created.CustomerName)
	assert.True(t, types.MustMoney("18").Equal(created.TotalAmount))
	assert.Equal(t, int64(3), stockOf(t, svc, p.ID))

	ms, err := svc.Ledger.History(ctx, ledger.Filter{ProductID: &p.ID})
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, ledger.MovementOut, ms[0].Type)
	assert.Equal(t, ledger.ReasonSale, ms[0].Reason)
	assert.Equal(t, ledger.SourceSale, ms[0].SourceType)
}

func TestCreate_InsufficientStockCreatesNothing(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	plenty := newProduct(t, svc, "Cargo Pants", 10)
	empty := newProduct(t, svc, "Bomber Jacket", 0)

	_, err := svc.Sales.Create(ctx, sale.CreateInput{
		CustomerName: "Grace",
		Items:        []sale.ItemInput{line(plenty.ID, 1), line(empty.ID, 1)},
	}, actor)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "unexpected error: %v", err)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, "Bomber Jacket", appErr.Details["product_name"])
	assert.EqualValues(t, 0, appErr.Details["available"])

	assert.Equal(t, int64(10), stockOf(t, svc, plenty.ID))
	list, err := svc.Sales.List(ctx, sale.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	ms, err := svc.Ledger.History(ctx, ledger.Filter{})
	require.NoError(t, err)
	assert.Empty(t, ms)
}

func TestCreate_SumsDemandPerProduct(t *testing.T) {
	_, svc := setup(t)
	p := newProduct(t, svc, "Beanie", 3)

	_, err := svc.Sales.Create(context.Background(), sale.CreateInput{
		CustomerName: "Linus",
		Items:        []sale.ItemInput{line(p.ID, 2), line(p.ID, 2)},
	}, actor)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.EqualValues(t, 4, appErr.Details["requested"])
	assert.Equal(t, int64(3), stockOf(t, svc, p.ID))
}

func TestCreate_Validation(t *testing.T) {
	_, svc := setup(t)
	p := newProduct(t, svc, "Scarf", 3)

	tests := []struct {
		name  string
		in    sale.CreateInput
		field string
	}{
		{"blank customer", sale.CreateInput{CustomerName: "   ", Items: []sale.ItemInput{line(p.ID, 1)}}, "customer_name"},
		{"no items", sale.CreateInput{CustomerName: "Ken"}, "items"},
		{"negative quantity", sale.CreateInput{CustomerName: "Ken", Items: []sale.ItemInput{line(p.ID, -1)}}, "items[0].quantity"},
		{"unknown product", sale.CreateInput{CustomerName: "Ken", Items: []sale.ItemInput{line(p.ID+99, 1)}}, "items[0].product_id"},
		{"quantity above limit", sale.CreateInput{CustomerName: "Ken", Items: []sale.ItemInput{line(p.ID, 1), line(p.ID, math.MaxInt64)}}, "items[1].quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Sales.Create(context.Background(), tt.in, actor)
			require.True(t, apperror.IsValidation(err), "unexpected error: %v", err)
			appErr, _ := apperror.AsAppError(err)
			assert.Contains(t, appErr.Details["fields"], tt.field)
		})
	}
	assert.Equal(t, int64(3), stockOf(t, svc, p.ID))
}

func TestCreate_ConcurrentSalesNeverOversell(t *testing.T) {
	_, svc := setup(t)
	p := newProduct(t, svc, "Last Few Boots", 5)

	const buyers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Sales.Create(context.Background(), sale.CreateInput{
				CustomerName: "buyer",
				Items:        []sale.ItemInput{line(p.ID, 1)},
			}, actor)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperror.IsInsufficientStock(err):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, buyers-5, rejected)
	assert.Equal(t, int64(0), stockOf(t, svc, p.ID))
}

func TestCreate_RollsBackWhenItemsFail(t *testing.T) {
	store, svc := setup(t)
	ctx := context.Background()
	p := newProduct(t, svc, "Hoodie", 6)

	store.FailOn("sales.CreateItems", errors.New("connection lost"))

	_, err := svc.Sales.Create(ctx, sale.CreateInput{CustomerName: "Ada", Items: []sale.ItemInput{line(p.ID, 2)}}, actor)
	assert.True(t, apperror.HasCode(err, apperror.CodeTransactionFailed))

	assert.Equal(t, int64(6), stockOf(t, svc, p.ID))
	list, err := svc.Sales.List(ctx, sale.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdate_ChecksAgainstRevertedStock(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	p := newProduct(t, svc, "Denim Vest", 5)

	created, err := svc.Sales.Create(ctx, sale.CreateInput{CustomerName: "Ada", Items: []sale.ItemInput{line(p.ID, 4)}}, actor)
	require.NoError(t, err)
	require.Equal(t, int64(1), stockOf(t, svc, p.ID))

	// 5 becomes available once the old 4 are reverted.
	updated, err := svc.Sales.Update(ctx, created.ID, sale.UpdateInput{Items: []sale.ItemInput{line(p.ID, 5)}}, actor)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stockOf(t, svc, p.ID))
	assert.True(t, types.MustMoney("45").Equal(updated.TotalAmount))

	_, err = svc.Sales.Update(ctx, created.ID, sale.UpdateInput{Items: []sale.ItemInput{line(p.ID, 6)}}, actor)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Equal(t, int64(0), stockOf(t, svc, p.ID))

	got, err := svc.Sales.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(5), got.Items[0].Quantity)

	report, err := svc.Reconcile.Check(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent(), "%+v", report)
}

func TestUpdate_CustomerOnly(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	p := newProduct(t, svc, "Cap", 2)

	created, err := svc.Sales.Create(ctx, sale.CreateInput{CustomerName: "Ada", Items: []sale.ItemInput{line(p.ID, 1)}}, actor)
	require.NoError(t, err)

	name := "Ada Lovelace"
	updated, err := svc.Sales.Update(ctx, created.ID, sale.UpdateInput{CustomerName: &name}, actor)
	require.NoError(t, err)
	assert.Equal(t, name, updated.CustomerName)
	assert.Equal(t, int64(1), stockOf(t, svc, p.ID))
}

func TestDelete_ReturnsStock(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	p := newProduct(t, svc, "Overcoat", 3)

	created, err := svc.Sales.Create(ctx, sale.CreateInput{CustomerName: "Ada", Items: []sale.ItemInput{line(p.ID, 3)}}, actor)
	require.NoError(t, err)
	require.NoError(t, svc.Sales.Delete(ctx, created.ID, actor))

	assert.Equal(t, int64(3), stockOf(t, svc, p.ID))

	ms, err := svc.Ledger.History(ctx, ledger.Filter{ProductID: &p.ID})
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, ledger.MovementIn, ms[0].Type)
	assert.Equal(t, ledger.ReasonAdjustment, ms[0].Reason)

	_, err = svc.Sales.Get(ctx, created.ID)
	assert.True(t, apperror.IsNotFound(err))
	assert.True(t, apperror.IsNotFound(svc.Sales.Delete(ctx, created.ID, actor)))
}
