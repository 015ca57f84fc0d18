package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/shop-service/internal/auth"
	"github.com/vasiliy-maslov/shop-service/internal/catalog"
	orderHandler "github.com/vasiliy-maslov/shop-service/internal/handler/http"
	"github.com/vasiliy-maslov/shop-service/internal/order"
	"github.com/vasiliy-maslov/shop-service/internal/storage/memory"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, in order.CreateOrderInput, p *auth.Principal) (*order.Order, error) {
	args := m.Called(ctx, in, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, id string, p *auth.Principal) (*order.Order, error) {
	args := m.Called(ctx, id, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) RequestRefund(ctx context.Context, id string, p *auth.Principal, reason string) (*order.Order, error) {
	args := m.Called(ctx, id, p, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id string, status order.Status) (*order.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ListForUser(ctx context.Context, p *auth.Principal) ([]order.Order, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) ListAll(ctx context.Context) ([]order.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

var (
	customer = &auth.Principal{UserID: "u-1", Email: "amara@example.com", Name: "Amara Okafor", Role: auth.RoleCustomer}
	admin    = &auth.Principal{UserID: "u-9", Email: "admin@example.com", Role: auth.RoleAdmin}
)

// authenticateAs stands in for the bearer-token middleware.
func authenticateAs(p *auth.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p == nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

func newOrderRouter(svc order.Service, p *auth.Principal) *chi.Mux {
	router := chi.NewRouter()
	orderHandler.NewOrderHandler(svc).RegisterRoutes(router, authenticateAs(p))
	return router
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func sampleOrder() *order.Order {
	return &order.Order{
		ID:            "o-1",
		OrderNumber:   "SS25ABC123",
		UserID:        "u-1",
		CustomerName:  "Amara Okafor",
		CustomerEmail: "amara@example.com",
		Total:         decimal.RequireFromString("411.48"),
		Status:        order.StatusProcessing,
		RefundStatus:  order.RefundNone,
		Items: []order.Item{
			{ProductID: "p-1", Name: "Ankara Dress", Quantity: 1, Price: decimal.RequireFromString("199.99")},
			{ProductID: "p-2", Name: "Kaftan", Quantity: 1, Price: decimal.RequireFromString("211.49")},
		},
		Date: time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC),
	}
}

func TestOrderHandler_handleCreateOrder_Success(t *testing.T) {
	mockService := new(MockOrderService)
	router := newOrderRouter(mockService, customer)

	wantInput := order.CreateOrderInput{
		CustomerName:  "Amara Okafor",
		CustomerEmail: "amara@example.com",
		Items: []order.CartLine{
			{ProductID: "p-1", Quantity: 1},
			{ProductID: "p-2", Quantity: 1},
		},
		City: "Lagos",
	}
	mockService.On("CreateOrder", mock.Anything, mock.MatchedBy(func(in order.CreateOrderInput) bool {
		return cmp.Diff(wantInput, in) == ""
	}), customer).Return(sampleOrder(), nil).Once()

	rr := do(t, router, http.MethodPost, "/orders", orderHandler.CreateOrderRequest{
		Items: []orderHandler.CartItemRequest{
			{ProductID: "p-1", Quantity: 1},
			{ProductID: "p-2", Quantity: 1},
		},
		City: "Lagos",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var got order.Summary
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, "SS25ABC123", got.OrderNumber)
	assert.Equal(t, "2025-06-01", got.Date)
	assert.Equal(t, 2, got.Items)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("411.48")))
	mockService.AssertExpectations(t)
}

func TestOrderHandler_handleCreateOrder_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		serviceErr error
		wantCode   int
		wantField  string
	}{
		{
			name:      "empty_items",
			body:      orderHandler.CreateOrderRequest{Items: []orderHandler.CartItemRequest{}},
			wantCode:  http.StatusBadRequest,
			wantField: "items",
		},
		{
			name:      "zero_quantity",
			body:      orderHandler.CreateOrderRequest{Items: []orderHandler.CartItemRequest{{ProductID: "p-1", Quantity: 0}}},
			wantCode:  http.StatusBadRequest,
			wantField: "items[0].quantity",
		},
		{
			name:       "out_of_stock",
			body:       orderHandler.CreateOrderRequest{Items: []orderHandler.CartItemRequest{{ProductID: "p-1", Quantity: 5}}},
			serviceErr: order.ErrInsufficientStock,
			wantCode:   http.StatusBadRequest,
		},
		{
			name:       "product_missing",
			body:       orderHandler.CreateOrderRequest{Items: []orderHandler.CartItemRequest{{ProductID: "p-x", Quantity: 1}}},
			serviceErr: order.ErrProductNotFound,
			wantCode:   http.StatusNotFound,
		},
		{
			name:       "duplicate_numbers_exhausted",
			body:       orderHandler.CreateOrderRequest{Items: []orderHandler.CartItemRequest{{ProductID: "p-1", Quantity: 1}}},
			serviceErr: order.ErrDuplicateOrderNumber,
			wantCode:   http.StatusInternalServerError,
		},
		{
			name:     "unknown_field",
			body:     map[string]interface{}{"items": []interface{}{}, "coupon": "FREE"},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			if tt.serviceErr != nil {
				mockService.On("CreateOrder", mock.Anything, mock.Anything, customer).Return(nil, tt.serviceErr).Once()
			}

			rr := do(t, newOrderRouter(mockService, customer), http.MethodPost, "/orders", tt.body)
			require.Equal(t, tt.wantCode, rr.Code, rr.Body.String())

			if tt.wantField != "" {
				var resp orderHandler.ValidationErrorResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, "Validation failed", resp.Error)
				assert.Contains(t, resp.Details, tt.wantField)
			}
			if tt.serviceErr == nil {
				mockService.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_handleCreateOrder_PrincipalWithoutName(t *testing.T) {
	store := memory.NewStore()
	p := &catalog.Product{Name: "Linen Shirt", Category: catalog.CategoryMale, Price: decimal.RequireFromString("45.00"), StockQuantity: 3, IsActive: true}
	require.NoError(t, store.Products().Create(context.Background(), p))
	svc := order.NewService(store.UnitOfWork(), store.Orders(), order.RandomNumberGenerator{Prefix: "SS"})

	// admin carries no display name, so the fallback leaves customerName empty.
	rr := do(t, newOrderRouter(svc, admin), http.MethodPost, "/orders", orderHandler.CreateOrderRequest{
		Items: []orderHandler.CartItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

	var resp orderHandler.ValidationErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Contains(t, resp.Details, "customerName")
	assert.NotContains(t, resp.Details, "customerEmail")

	stored, err := store.Products().GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.StockQuantity)

	rr = do(t, newOrderRouter(svc, admin), http.MethodPost, "/orders", orderHandler.CreateOrderRequest{
		CustomerName: "Shop Admin",
		Items:        []orderHandler.CartItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "Shop Admin", created["customerName"])
	assert.Equal(t, "admin@example.com", created["customerEmail"])
	assert.Equal(t, float64(45), created["total"])
}

func TestOrderHandler_handleRequestRefund(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantCode   int
	}{
		{name: "success", wantCode: http.StatusOK},
		{name: "not_owner", serviceErr: order.ErrAccessDenied, wantCode: http.StatusForbidden},
		{name: "already_requested", serviceErr: order.ErrRefundAlreadyRequested, wantCode: http.StatusBadRequest},
		{name: "missing", serviceErr: order.ErrOrderNotFound, wantCode: http.StatusNotFound},
		{name: "short_reason", serviceErr: &order.ValidationError{Details: map[string]string{"refundReason": "must be at least 5 characters"}}, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			call := mockService.On("RequestRefund", mock.Anything, "o-1", customer, "Wrong size")
			if tt.serviceErr != nil {
				call.Return(nil, tt.serviceErr).Once()
			} else {
				refunded := sampleOrder()
				refunded.RefundStatus = order.RefundRequested
				refunded.RefundReason = "Wrong size"
				call.Return(refunded, nil).Once()
			}

			rr := do(t, newOrderRouter(mockService, customer), http.MethodPatch, "/orders/o-1/request-refund",
				orderHandler.RefundRequest{RefundReason: "Wrong size"})
			require.Equal(t, tt.wantCode, rr.Code, rr.Body.String())

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			if tt.serviceErr == nil {
				assert.Equal(t, "Requested", body["refundStatus"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_AdminRoutes(t *testing.T) {
	t.Run("customer_forbidden", func(t *testing.T) {
		mockService := new(MockOrderService)
		router := newOrderRouter(mockService, customer)

		rr := do(t, router, http.MethodGet, "/orders/admin/all", nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)

		rr = do(t, router, http.MethodPatch, "/orders/o-1/status", orderHandler.UpdateStatusRequest{Status: "Shipped"})
		assert.Equal(t, http.StatusForbidden, rr.Code)
		mockService.AssertNotCalled(t, "ListAll", mock.Anything)
	})

	t.Run("admin_lists_all", func(t *testing.T) {
		mockService := new(MockOrderService)
		mockService.On("ListAll", mock.Anything).Return([]order.Order{*sampleOrder()}, nil).Once()

		rr := do(t, newOrderRouter(mockService, admin), http.MethodGet, "/orders/admin/all", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var got []order.Summary
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		require.Len(t, got, 1)
		mockService.AssertExpectations(t)
	})

	t.Run("admin_status_enum", func(t *testing.T) {
		mockService := new(MockOrderService)
		rr := do(t, newOrderRouter(mockService, admin), http.MethodPatch, "/orders/o-1/status", orderHandler.UpdateStatusRequest{Status: "Lost"})
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var resp orderHandler.ValidationErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Contains(t, resp.Details, "status")
	})

	t.Run("admin_status_not_found", func(t *testing.T) {
		mockService := new(MockOrderService)
		mockService.On("UpdateStatus", mock.Anything, "o-404", order.StatusShipped).Return(nil, order.ErrOrderNotFound).Once()

		rr := do(t, newOrderRouter(mockService, admin), http.MethodPatch, "/orders/o-404/status", orderHandler.UpdateStatusRequest{Status: "Shipped"})
		require.Equal(t, http.StatusNotFound, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestOrderHandler_handleGetOrder(t *testing.T) {
	mockService := new(MockOrderService)
	mockService.On("GetOrder", mock.Anything, "o-1", customer).Return(sampleOrder(), nil).Once()
	mockService.On("GetOrder", mock.Anything, "o-2", customer).Return(nil, order.ErrAccessDenied).Once()
	router := newOrderRouter(mockService, customer)

	rr := do(t, router, http.MethodGet, "/orders/o-1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got order.Detail
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	require.Len(t, got.LineItems, 2)
	assert.Equal(t, "Ankara Dress", got.LineItems[0].Name)

	rr = do(t, router, http.MethodGet, "/orders/o-2", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, newOrderRouter(mockService, nil), http.MethodGet, "/orders/my-orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	mockService.AssertExpectations(t)
}
