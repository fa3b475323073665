package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/relaymart-backend/api/middleware"
	"github.com/angelmondragon/relaymart-backend/internal/coupons"
	internalorders "github.com/angelmondragon/relaymart-backend/internal/orders"
	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
	"github.com/angelmondragon/relaymart-backend/pkg/pagination"
	"github.com/angelmondragon/relaymart-backend/pkg/types"
)

type stubOrdersService struct {
	create        func(ctx context.Context, input internalorders.CreateInput) (*internalorders.CreateResult, error)
	get           func(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	list          func(ctx context.Context, filter internalorders.Filter, params pagination.Params) (*types.ListPage[models.Order], error)
	cancel        func(ctx context.Context, input internalorders.CancelInput) (*models.Order, error)
	recordPayment func(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error)
}

func (s *stubOrdersService) Create(ctx context.Context, input internalorders.CreateInput) (*internalorders.CreateResult, error) {
	return s.create(ctx, input)
}

func (s *stubOrdersService) Accept(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersService) PickUp(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersService) VerifySecretCode(context.Context, uuid.UUID, uuid.UUID, string) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersService) ConfirmDelivery(context.Context, internalorders.DeliveryInput) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersService) RecordPayment(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
	return s.recordPayment(ctx, orderID, actor)
}

func (s *stubOrdersService) Cancel(ctx context.Context, input internalorders.CancelInput) (*models.Order, error) {
	return s.cancel(ctx, input)
}

func (s *stubOrdersService) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.get(ctx, orderID)
}

func (s *stubOrdersService) List(ctx context.Context, filter internalorders.Filter, params pagination.Params) (*types.ListPage[models.Order], error) {
	return s.list(ctx, filter, params)
}

type stubCouponValidator func(ctx context.Context, code string, cart coupons.Cart) (*coupons.Validation, error)

func (f stubCouponValidator) Validate(ctx context.Context, code string, cart coupons.Cart) (*coupons.Validation, error) {
	return f(ctx, code, cart)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func withActor(req *http.Request, userID uuid.UUID, role enums.Role) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, role)
	return req.WithContext(ctx)
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env
}

const createBody = `{
	"items": [{"product_id": "6f1c7a4e-8d57-4b0a-9d6a-3a4f2a1b9c01", "quantity": 2, "unit_price_paise": 25000}],
	"shipping_address": {"name": "Asha", "phone": "9800000000", "line1": "12 MG Road", "city": "Bengaluru", "state": "Karnataka", "postal_code": "560001"},
	"payment_method": "cod",
	"use_wallet": true,
	"coupon_code": "  WELCOME50 "
}`

func TestCreateMapsRequestAndReturnsCode(t *testing.T) {
	userID := uuid.New()
	var captured internalorders.CreateInput
	svc := &stubOrdersService{
		create: func(_ context.Context, input internalorders.CreateInput) (*internalorders.CreateResult, error) {
			captured = input
			return &internalorders.CreateResult{
				Order: &models.Order{
					ID:               uuid.New(),
					UserID:           input.UserID,
					Status:           enums.OrderStatusPending,
					FinalAmountPaise: 50000,
					SecretCodeHash:   "argon-hash",
				},
				SecretCode: "123456",
			}, nil
		},
	}

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(createBody)), userID, enums.RoleCustomer)
	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, userID, captured.UserID)
	require.Equal(t, enums.PaymentMethodCOD, captured.PaymentMethod)
	require.True(t, captured.UseWallet)
	require.NotNil(t, captured.CouponCode)
	require.Equal(t, "WELCOME50", *captured.CouponCode)
	require.Len(t, captured.Items, 1)
	require.Equal(t, int64(25000), captured.Items[0].UnitPricePaise)

	var body createOrderResponse
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &body))
	require.Equal(t, "123456", body.SecretCode)
	require.Equal(t, "₹500.00", body.Order.FinalAmount)
	require.NotContains(t, resp.Body.String(), "argon-hash")
}

func TestCreateRejectsInvalidBody(t *testing.T) {
	svc := &stubOrdersService{
		create: func(context.Context, internalorders.CreateInput) (*internalorders.CreateResult, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"items": [], "payment_method": "card"}`)), uuid.New(), enums.RoleCustomer)
	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	env := decode(t, resp)
	require.Equal(t, string(pkgerrors.CodeValidation), env.Error.Code)
	require.Contains(t, env.Error.Details, "items")
	require.Contains(t, env.Error.Details, "payment_method")
}

func TestCreateRequiresActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(createBody))
	resp := httptest.NewRecorder()
	Create(&stubOrdersService{}, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCreateSurfacesNonServiceable(t *testing.T) {
	svc := &stubOrdersService{
		create: func(context.Context, internalorders.CreateInput) (*internalorders.CreateResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNonServiceable, "some items cannot be delivered").
				WithDetails(map[string]any{"items": []string{"p1"}})
		},
	}

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(createBody)), uuid.New(), enums.RoleCustomer)
	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	env := decode(t, resp)
	require.Equal(t, string(pkgerrors.CodeNonServiceable), env.Error.Code)
	require.Contains(t, env.Error.Details, "items")
}

func TestListScopesToCustomer(t *testing.T) {
	userID := uuid.New()
	var captured internalorders.Filter
	svc := &stubOrdersService{
		list: func(_ context.Context, filter internalorders.Filter, params pagination.Params) (*types.ListPage[models.Order], error) {
			captured = filter
			require.Equal(t, 10, params.Limit)
			return &types.ListPage[models.Order]{Items: []models.Order{{ID: uuid.New(), UserID: userID}}, NextCursor: "next"}, nil
		},
	}

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=delivered&limit=10&date_from=2026-03-01", nil), userID, enums.RoleCustomer)
	resp := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, captured.UserID)
	require.Equal(t, userID, *captured.UserID)
	require.NotNil(t, captured.Status)
	require.Equal(t, enums.OrderStatusDelivered, *captured.Status)
	require.NotNil(t, captured.Created.From)

	var page types.ListPage[OrderResponse]
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &page))
	require.Len(t, page.Items, 1)
	require.Equal(t, "next", page.NextCursor)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=lost", nil), uuid.New(), enums.RoleCustomer)
	resp := httptest.NewRecorder()
	List(&stubOrdersService{}, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDetailHidesOtherCustomersOrders(t *testing.T) {
	owner := uuid.New()
	orderID := uuid.New()
	svc := &stubOrdersService{
		get: func(_ context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: id, UserID: owner}, nil
		},
	}
	router := chi.NewRouter()
	router.Get("/api/v1/orders/{orderId}", Detail(svc, nil))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, withActor(httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil), uuid.New(), enums.RoleCustomer))
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, withActor(httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil), owner, enums.RoleCustomer))
	require.Equal(t, http.StatusOK, resp.Code)

	var order OrderResponse
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &order))
	require.Equal(t, orderID, order.ID)
}

func TestValidateCouponReturnsDiscount(t *testing.T) {
	userID := uuid.New()
	sellerID := uuid.New()
	validator := stubCouponValidator(func(_ context.Context, code string, cart coupons.Cart) (*coupons.Validation, error) {
		require.Equal(t, "SAVE10", code)
		require.Equal(t, userID, cart.UserID)
		require.Equal(t, sellerID, cart.SellerID)
		require.Equal(t, int64(100000), cart.OrderAmount)
		return &coupons.Validation{
			Coupon:   models.Coupon{Code: "SAVE10", DiscountType: enums.DiscountTypePercentage},
			Discount: 10000,
		}, nil
	})

	body := `{"code": "SAVE10", "seller_id": "` + sellerID.String() + `", "product_ids": ["` + uuid.NewString() + `"], "order_amount_paise": 100000}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/coupons/validate", strings.NewReader(body)), userID, enums.RoleCustomer)
	resp := httptest.NewRecorder()
	ValidateCoupon(validator, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var result couponValidationResponse
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &result))
	require.Equal(t, int64(10000), result.DiscountPaise)
	require.Equal(t, "₹100.00", result.Discount)
}

func TestCancelPassesAdminActor(t *testing.T) {
	adminID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrdersService{
		cancel: func(_ context.Context, input internalorders.CancelInput) (*models.Order, error) {
			require.Equal(t, orderID, input.OrderID)
			require.Equal(t, adminID, input.Actor.UserID)
			require.Equal(t, enums.RoleAdmin, input.Actor.Role)
			require.Equal(t, "customer unreachable", input.Reason)
			reason := input.Reason
			return &models.Order{ID: orderID, Status: enums.OrderStatusCancelled, CancelReason: &reason}, nil
		},
	}
	router := chi.NewRouter()
	router.Post("/api/admin/v1/orders/{orderId}/cancel", Cancel(svc, nil))

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/"+orderID.String()+"/cancel", strings.NewReader(`{"reason": "customer unreachable"}`)), adminID, enums.RoleAdmin)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var order OrderResponse
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &order))
	require.Equal(t, enums.OrderStatusCancelled, order.Status)
}

func TestRecordPaymentReportsAlreadyPaid(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{
		recordPayment: func(context.Context, uuid.UUID, internalorders.Actor) (*models.Order, error) {
			return nil, pkgerrors.Conflict(pkgerrors.ReasonAlreadyPaid, "order already paid", nil)
		},
	}
	router := chi.NewRouter()
	router.Post("/api/admin/v1/orders/{orderId}/payment", RecordPayment(svc, nil))

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/"+orderID.String()+"/payment", nil), uuid.New(), enums.RoleAdmin)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	env := decode(t, resp)
	require.Equal(t, string(pkgerrors.CodeStateConflict), env.Error.Code)
	require.Equal(t, string(pkgerrors.ReasonAlreadyPaid), env.Error.Details["reason"])
}

func TestAdminListParsesOwnerFilters(t *testing.T) {
	sellerID := uuid.New()
	svc := &stubOrdersService{
		list: func(_ context.Context, filter internalorders.Filter, _ pagination.Params) (*types.ListPage[models.Order], error) {
			require.Nil(t, filter.UserID)
			require.NotNil(t, filter.SellerID)
			require.Equal(t, sellerID, *filter.SellerID)
			require.NotNil(t, filter.PaymentStatus)
			require.Equal(t, enums.PaymentStatusPaid, *filter.PaymentStatus)
			return &types.ListPage[models.Order]{}, nil
		},
	}

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?seller_id="+sellerID.String()+"&payment_status=paid", nil), uuid.New(), enums.RoleAdmin)
	resp := httptest.NewRecorder()
	AdminList(svc, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var page types.ListPage[OrderResponse]
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &page))
	require.Empty(t, page.Items)
}
