package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/app"
	"stockflow/internal/core/apperror"
	appctx "stockflow/internal/core/context"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/auth"
	"stockflow/internal/domain/product"
	"stockflow/internal/infrastructure/cache"
	v1 "stockflow/internal/infrastructure/http/v1"
	"stockflow/internal/infrastructure/http/v1/dto"
	"stockflow/internal/infrastructure/http/v1/handlers"
	"stockflow/internal/infrastructure/http/v1/middleware"
	"stockflow/internal/infrastructure/storage/memory"
	"stockflow/pkg/logger"
)

const testSecret = "router-test-secret-router-test-secret"

type fixture struct {
	router *gin.Engine
	svc    *app.Services
	jwt    *auth.JWTService
	admin  string
}

func newFixture(t *testing.T, checks map[string]handlers.Pinger) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := memory.New()
	svc := app.NewServices(store.Repositories())
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(testSecret))

	router := v1.NewRouter(v1.RouterConfig{
		Services:     svc,
		Logger:       logger.Nop(),
		JWTValidator: jwtService,
		Idempotency:  cache.NewIdempotencyStore(client, time.Hour),
		HealthChecks: checks,
	})

	f := &fixture{router: router, svc: svc, jwt: jwtService}
	f.admin = f.token(t, appctx.UserContext{ActorID: 1, IsAdmin: true})
	return f
}

func (f *fixture) token(t *testing.T, user appctx.UserContext) string {
	t.Helper()
	tok, _, err := f.jwt.GenerateAccessToken(user)
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) product(t *testing.T, stock int64) *product.Product {
	t.Helper()
	p, err := f.svc.Products.Create(context.Background(), product.CreateInput{
		Name:         "Denim Jacket",
		CostPrice:    types.MustMoney("2.00"),
		SellingPrice: types.MustMoney("6.00"),
		InitialStock: stock,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, productID int64) int64 {
	t.Helper()
	s, err := f.svc.Products.CurrentStock(context.Background(), productID)
	require.NoError(t, err)
	return s
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth_NoAuth(t *testing.T) {
	f := newFixture(t, map[string]handlers.Pinger{
		"database": handlers.PingFunc(func(context.Context) error { return nil }),
	})

	w := f.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"healthy"`)
}

func TestHealth_ReadyReportsFailingDependency(t *testing.T) {
	f := newFixture(t, map[string]handlers.Pinger{
		"redis": handlers.PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	w := f.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestAPI_RequiresToken(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/v1/sales", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperror.CodeUnauthorized, decodeError(t, w).Code)

	w = f.do(t, http.MethodGet, "/api/v1/sales", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_RequiresPermission(t *testing.T) {
	f := newFixture(t, nil)
	p := f.product(t, 5)
	reader := f.token(t, appctx.UserContext{ActorID: 2, Permissions: []string{auth.PermStockRead}})

	w := f.do(t, http.MethodGet, "/api/v1/sales", reader, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/sales", reader, map[string]any{
		"customer_name": "Ada",
		"items":         []map[string]any{{"product_id": p.ID, "quantity": 1, "selling_price": "6"}},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, int64(5), f.stock(t, p.ID))
}

func TestPurchase_CreateUpdatesStockAndExpense(t *testing.T) {
	f := newFixture(t, nil)
	p := f.product(t, 5)

	w := f.do(t, http.MethodPost, "/api/v1/purchases", f.admin, map[string]any{
		"supplier_id": 3,
		"items":       []map[string]any{{"product_id": p.ID, "quantity": 10, "cost_price": "2.00"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID          int64  `json:"id"`
		TotalAmount string `json:"total_amount"`
		Items       []any  `json:"items"`
		Expenses    []struct {
			Amount string `json:"amount"`
			IsAuto bool   `json:"is_auto"`
		} `json:"expenses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "20", created.TotalAmount)
	assert.Len(t, created.Items, 1)
	require.Len(t, created.Expenses, 1)
	assert.True(t, created.Expenses[0].IsAuto)
	assert.Equal(t, "20", created.Expenses[0].Amount)
	assert.Equal(t, int64(15), f.stock(t, p.ID))

	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/purchases/%d", created.ID), f.admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/products/%d/stock", p.ID), f.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stock dto.ProductStockResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stock))
	assert.Equal(t, int64(15), stock.Stock)
	assert.True(t, stock.Consistent)
	assert.Equal(t, int64(10), stock.Reconciliation.MovementSum)

	w = f.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/purchases/%d", created.ID), f.admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(5), f.stock(t, p.ID))

	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/purchases/%d", created.ID), f.admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPurchase_ValidationIs422(t *testing.T) {
	f := newFixture(t, nil)
	p := f.product(t, 5)

	w := f.do(t, http.MethodPost, "/api/v1/purchases", f.admin, map[string]any{
		"supplier_id": 3,
		"items":       []map[string]any{{"product_id": p.ID, "quantity": 0, "cost_price": "2.00"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeValidation, decodeError(t, w).Code)
	assert.Equal(t, int64(5), f.stock(t, p.ID))
}

func TestSale_MalformedJSONIs400(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/api/v1/sales", f.admin, `{"customer_name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeInvalidInput, decodeError(t, w).Code)
}

func TestSale_InsufficientStock(t *testing.T) {
	f := newFixture(t, nil)
	p := f.product(t, 1)

	w := f.do(t, http.MethodPost, "/api/v1/sales", f.admin, map[string]any{
		"customer_name": "Ada",
		"items":         []map[string]any{{"product_id": p.ID, "quantity": 3, "selling_price": "6"}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	body := decodeError(t, w)
	assert.Equal(t, apperror.CodeInsufficientStock, body.Code)
	assert.Equal(t, "Denim Jacket", body.Details["product_name"])
	assert.EqualValues(t, 1, body.Details["available"])
	assert.Equal(t, int64(1), f.stock(t, p.ID))

	w = f.do(t, http.MethodGet, "/api/v1/sales", f.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)
}

func TestSale_UpdateAndDelete(t *testing.T) {
	f := newFixture(t, nil)
	p := f.product(t, 10)

	w := f.do(t, http.MethodPost, "/api/v1/sales", f.admin, map[string]any{
		"customer_name": "Ada",
		"items":         []map[string]any{{"product_id": p.ID, "quantity": 4, "selling_price": "6"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, int64(6), f.stock(t, p.ID))

	path := fmt.Sprintf("/api/v1/sales/%d", created.ID)
	w = f.do(t, http.MethodPut, path, f.admin, map[string]any{
		"items": []map[string]any{{"product_id": p.ID, "quantity": 7, "selling_price": "6"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"total_amount":"42"`)
	assert.Equal(t, int64(3), f.stock(t, p.ID))

	w = f.do(t, http.MethodDelete, path, f.admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(10), f.stock(t, p.ID))
}

func TestStockMovement_Lifecycle(t *testing.T) {
	f := newFixture(t, nil)
	p := f.product(t, 5)

	w := f.do(t, http.MethodPost, "/api/v1/stock-movements", f.admin, map[string]any{
		"product_id": p.ID,
		"type":       "out",
		"quantity":   2,
		"reason":     "adjustment",
		"notes":      "damaged in storage",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var m struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, int64(3), f.stock(t, p.ID))

	path := fmt.Sprintf("/api/v1/stock-movements/%d", m.ID)
	w = f.do(t, http.MethodPut, path, f.admin, map[string]any{"quantity": 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(1), f.stock(t, p.ID))

	w = f.do(t, http.MethodDelete, path, f.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(5), f.stock(t, p.ID))

	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/stock-movements?product_id=%d", p.ID), f.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history dto.ListResponse[struct {
		ID int64 `json:"id"`
	}]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Len(t, history.Items, 2)
	assert.EqualValues(t, 100, history.Limit)
}

func TestList_ReportsAppliedLimit(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		path  string
		limit uint64
	}{
		{"/api/v1/sales", 50},
		{"/api/v1/sales?limit=1000", 200},
		{"/api/v1/purchases?limit=20", 20},
		{"/api/v1/stock-movements?limit=9999", 500},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := f.do(t, http.MethodGet, tt.path, f.admin, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var page dto.ListResponse[json.RawMessage]
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
			assert.Equal(t, tt.limit, page.Limit)
			assert.NotNil(t, page.Items)
		})
	}
}

func TestStockMovement_RejectsOtherReasons(t *testing.T) {
	f := newFixture(t, nil)
	p := f.product(t, 5)

	w := f.do(t, http.MethodPost, "/api/v1/stock-movements", f.admin, map[string]any{
		"product_id": p.ID,
		"type":       "in",
		"quantity":   2,
		"reason":     "sale",
		"notes":      "wrong reason",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, int64(5), f.stock(t, p.ID))

	w = f.do(t, http.MethodPut, "/api/v1/stock-movements/abc", f.admin, map[string]any{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIdempotency_ReplaysResponse(t *testing.T) {
	f := newFixture(t, nil)
	p := f.product(t, 5)
	body := map[string]any{
		"product_id": p.ID,
		"type":       "in",
		"quantity":   3,
		"notes":      "found in back room",
	}

	first := f.do(t, http.MethodPost, "/api/v1/stock-movements", f.admin, body,
		middleware.HeaderIdempotencyKey, "adj-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := f.do(t, http.MethodPost, "/api/v1/stock-movements", f.admin, body,
		middleware.HeaderIdempotencyKey, "adj-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(middleware.HeaderIdempotentReplay))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, int64(8), f.stock(t, p.ID))

	body["quantity"] = 4
	mismatch := f.do(t, http.MethodPost, "/api/v1/stock-movements", f.admin, body,
		middleware.HeaderIdempotencyKey, "adj-1")
	assert.Equal(t, http.StatusConflict, mismatch.Code)
	assert.Equal(t, int64(8), f.stock(t, p.ID))
}

func TestIdempotency_ReplaysBusinessError(t *testing.T) {
	f := newFixture(t, nil)
	p := f.product(t, 1)
	body := map[string]any{
		"customer_name": "Ada",
		"items":         []map[string]any{{"product_id": p.ID, "quantity": 3, "selling_price": "6"}},
	}

	first := f.do(t, http.MethodPost, "/api/v1/sales", f.admin, body, middleware.HeaderIdempotencyKey, "sale-1")
	require.Equal(t, http.StatusUnprocessableEntity, first.Code)

	second := f.do(t, http.MethodPost, "/api/v1/sales", f.admin, body, middleware.HeaderIdempotencyKey, "sale-1")
	assert.Equal(t, http.StatusUnprocessableEntity, second.Code)
	assert.Equal(t, "true", second.Header().Get(middleware.HeaderIdempotentReplay))
	assert.Equal(t, apperror.CodeInsufficientStock, decodeError(t, second).Code)
}
