package drivers

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
	"gorm.io/gorm"

	ordercontrollers "github.com/angelmondragon/relaymart-backend/api/controllers/orders"
	"github.com/angelmondragon/relaymart-backend/api/middleware"
	internaldrivers "github.com/angelmondragon/relaymart-backend/internal/drivers"
	internalorders "github.com/angelmondragon/relaymart-backend/internal/orders"
	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
	"github.com/angelmondragon/relaymart-backend/pkg/pagination"
	"github.com/angelmondragon/relaymart-backend/pkg/types"
)

type stubOrders struct {
	internalorders.Service
	accept  func(ctx context.Context, orderID, driverID uuid.UUID) (*models.Order, error)
	verify  func(ctx context.Context, orderID, driverID uuid.UUID, code string) (*models.Order, error)
	deliver func(ctx context.Context, input internalorders.DeliveryInput) (*models.Order, error)
	list    func(ctx context.Context, filter internalorders.Filter, params pagination.Params) (*types.ListPage[models.Order], error)
}

func (s *stubOrders) Accept(ctx context.Context, orderID, driverID uuid.UUID) (*models.Order, error) {
	return s.accept(ctx, orderID, driverID)
}

func (s *stubOrders) VerifySecretCode(ctx context.Context, orderID, driverID uuid.UUID, code string) (*models.Order, error) {
	return s.verify(ctx, orderID, driverID, code)
}

func (s *stubOrders) ConfirmDelivery(ctx context.Context, input internalorders.DeliveryInput) (*models.Order, error) {
	return s.deliver(ctx, input)
}

func (s *stubOrders) List(ctx context.Context, filter internalorders.Filter, params pagination.Params) (*types.ListPage[models.Order], error) {
	return s.list(ctx, filter, params)
}

type stubDrivers struct {
	availability func(ctx context.Context, driverID uuid.UUID, availability enums.DriverAvailability) error
	wallet       func(ctx context.Context, driverID uuid.UUID) (*internaldrivers.Wallet, error)
	earnings     func(ctx context.Context, filter internaldrivers.EarningFilter, params pagination.Params) (*types.ListPage[models.DriverEarning], error)
	withdraw     func(ctx context.Context, req internaldrivers.WithdrawRequest) (*models.Withdraw, error)
	withdrawals  func(ctx context.Context, filter internaldrivers.WithdrawFilter, params pagination.Params) (*types.ListPage[models.Withdraw], error)
}

func (s *stubDrivers) SetAvailability(ctx context.Context, driverID uuid.UUID, availability enums.DriverAvailability) error {
	return s.availability(ctx, driverID, availability)
}

func (s *stubDrivers) RecordDeliveryEarning(context.Context, *gorm.DB, uuid.UUID, uuid.UUID) (*models.DriverEarning, error) {
	panic("not implemented")
}

func (s *stubDrivers) Wallet(ctx context.Context, driverID uuid.UUID) (*internaldrivers.Wallet, error) {
	return s.wallet(ctx, driverID)
}

func (s *stubDrivers) ListEarnings(ctx context.Context, filter internaldrivers.EarningFilter, params pagination.Params) (*types.ListPage[models.DriverEarning], error) {
	return s.earnings(ctx, filter, params)
}

func (s *stubDrivers) RequestWithdraw(ctx context.Context, req internaldrivers.WithdrawRequest) (*models.Withdraw, error) {
	return s.withdraw(ctx, req)
}

func (s *stubDrivers) UpdateWithdrawStatus(context.Context, internaldrivers.WithdrawDecision) (*models.Withdraw, error) {
	panic("not implemented")
}

func (s *stubDrivers) ListWithdrawals(ctx context.Context, filter internaldrivers.WithdrawFilter, params pagination.Params) (*types.ListPage[models.Withdraw], error) {
	return s.withdrawals(ctx, filter, params)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func asDriver(req *http.Request, driverID uuid.UUID) *http.Request {
	ctx := middleware.WithUserID(req.Context(), driverID.String())
	return req.WithContext(middleware.WithRole(ctx, enums.RoleDriver))
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env
}

func TestAcceptUsesAuthenticatedDriver(t *testing.T) {
	driverID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrders{
		accept: func(_ context.Context, gotOrder, gotDriver uuid.UUID) (*models.Order, error) {
			require.Equal(t, orderID, gotOrder)
			require.Equal(t, driverID, gotDriver)
			return &models.Order{ID: orderID, DriverID: &driverID, Status: enums.OrderStatusAccepted}, nil
		},
	}
	router := chi.NewRouter()
	router.Post("/orders/{orderId}/accept", Accept(svc, nil))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asDriver(httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/accept", nil), driverID))

	require.Equal(t, http.StatusOK, resp.Code)
	var order ordercontrollers.OrderResponse
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &order))
	require.Equal(t, enums.OrderStatusAccepted, order.Status)
}

func TestAcceptReportsLostRace(t *testing.T) {
	svc := &stubOrders{
		accept: func(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
			return nil, pkgerrors.Conflict(pkgerrors.ReasonAlreadyAssigned, "order already assigned", nil)
		},
	}
	router := chi.NewRouter()
	router.Post("/orders/{orderId}/accept", Accept(svc, nil))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asDriver(httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/accept", nil), uuid.New()))

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	require.Equal(t, string(pkgerrors.ReasonAlreadyAssigned), decode(t, resp).Error.Details["reason"])
}

func TestOrderActionsRequireDriverRole(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/orders/{orderId}/accept", Accept(&stubOrders{}, nil))

	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/accept", nil)
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	req = req.WithContext(middleware.WithRole(ctx, enums.RoleCustomer))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestVerifyCodeValidatesFormat(t *testing.T) {
	svc := &stubOrders{
		verify: func(_ context.Context, _, _ uuid.UUID, code string) (*models.Order, error) {
			require.Equal(t, "042199", code)
			return &models.Order{IsSecretCodeVerified: true}, nil
		},
	}
	router := chi.NewRouter()
	router.Post("/orders/{orderId}/verify-code", VerifyCode(svc, nil))
	path := "/orders/" + uuid.NewString() + "/verify-code"

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asDriver(httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"code": "42"}`)), uuid.New()))
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, asDriver(httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"code": "042199"}`)), uuid.New()))
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestDeliverPassesCollectedCash(t *testing.T) {
	var captured internalorders.DeliveryInput
	svc := &stubOrders{
		deliver: func(_ context.Context, input internalorders.DeliveryInput) (*models.Order, error) {
			captured = input
			return &models.Order{ID: input.OrderID, Status: enums.OrderStatusDelivered}, nil
		},
	}
	router := chi.NewRouter()
	router.Post("/orders/{orderId}/deliver", Deliver(svc, nil))
	path := "/orders/" + uuid.NewString() + "/deliver"

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asDriver(httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"paid_amount_paise": 45000}`)), uuid.New()))
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, captured.PaidAmountPaise)
	require.Equal(t, int64(45000), *captured.PaidAmountPaise)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, asDriver(httptest.NewRequest(http.MethodPost, path, nil), uuid.New()))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Nil(t, captured.PaidAmountPaise)
}

func TestOrdersScopesToDriver(t *testing.T) {
	driverID := uuid.New()
	svc := &stubOrders{
		list: func(_ context.Context, filter internalorders.Filter, _ pagination.Params) (*types.ListPage[models.Order], error) {
			require.NotNil(t, filter.DriverID)
			require.Equal(t, driverID, *filter.DriverID)
			require.Nil(t, filter.UserID)
			return &types.ListPage[models.Order]{}, nil
		},
	}
	resp := httptest.NewRecorder()
	Orders(svc, nil).ServeHTTP(resp, asDriver(httptest.NewRequest(http.MethodGet, "/driver/orders", nil), driverID))
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestSetAvailabilityRejectsOnDelivery(t *testing.T) {
	svc := &stubDrivers{
		availability: func(context.Context, uuid.UUID, enums.DriverAvailability) error {
			t.Fatal("service should not be called")
			return nil
		},
	}
	resp := httptest.NewRecorder()
	SetAvailability(svc, nil).ServeHTTP(resp, asDriver(httptest.NewRequest(http.MethodPut, "/driver/availability", strings.NewReader(`{"availability": "on-delivery"}`)), uuid.New()))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestWalletFormatsBalance(t *testing.T) {
	driverID := uuid.New()
	svc := &stubDrivers{
		wallet: func(context.Context, uuid.UUID) (*internaldrivers.Wallet, error) {
			return &internaldrivers.Wallet{DriverID: driverID, CurrentBalance: 123456, TotalEarnings: 200000}, nil
		},
	}
	resp := httptest.NewRecorder()
	Wallet(svc, nil).ServeHTTP(resp, asDriver(httptest.NewRequest(http.MethodGet, "/driver/wallet", nil), driverID))

	require.Equal(t, http.StatusOK, resp.Code)
	var wallet walletResponse
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &wallet))
	require.Equal(t, "₹1234.56", wallet.CurrentBalance)
	require.Equal(t, int64(200000), wallet.TotalEarningsPaise)
}

func TestEarningsParsesStatus(t *testing.T) {
	driverID := uuid.New()
	svc := &stubDrivers{
		earnings: func(_ context.Context, filter internaldrivers.EarningFilter, _ pagination.Params) (*types.ListPage[models.DriverEarning], error) {
			require.Equal(t, driverID, *filter.DriverID)
			require.Equal(t, enums.EarningStatusEarned, *filter.Status)
			return &types.ListPage[models.DriverEarning]{Items: []models.DriverEarning{{ID: uuid.New(), AmountPaise: 5000, Type: enums.EarningTypeDelivery}}}, nil
		},
	}
	resp := httptest.NewRecorder()
	Earnings(svc, nil).ServeHTTP(resp, asDriver(httptest.NewRequest(http.MethodGet, "/driver/earnings?status=earned", nil), driverID))

	require.Equal(t, http.StatusOK, resp.Code)
	var page types.ListPage[earningResponse]
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &page))
	require.Len(t, page.Items, 1)
	require.Equal(t, int64(5000), page.Items[0].AmountPaise)
}

func TestRequestWithdrawMasksAccount(t *testing.T) {
	driverID := uuid.New()
	svc := &stubDrivers{
		withdraw: func(_ context.Context, req internaldrivers.WithdrawRequest) (*models.Withdraw, error) {
			require.Equal(t, driverID, req.DriverID)
			require.Equal(t, enums.WithdrawModeBank, req.Mode)
			require.Equal(t, "HDFC0001234", req.IFSC)
			number := req.AccountNumber
			ifsc := req.IFSC
			return &models.Withdraw{
				ID:            uuid.New(),
				DriverID:      req.DriverID,
				AmountPaise:   req.AmountPaise,
				Mode:          req.Mode,
				AccountNumber: &number,
				IFSC:          &ifsc,
				Status:        enums.WithdrawStatusPending,
			}, nil
		},
	}
	body := `{"amount_paise": 60000, "mode": "bank", "account_holder": "Ravi", "account_number": "123456789012", "ifsc": "hdfc0001234"}`
	resp := httptest.NewRecorder()
	RequestWithdraw(svc, nil).ServeHTTP(resp, asDriver(httptest.NewRequest(http.MethodPost, "/driver/withdrawals", strings.NewReader(body)), driverID))

	require.Equal(t, http.StatusCreated, resp.Code)
	var withdraw WithdrawResponse
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &withdraw))
	require.NotNil(t, withdraw.AccountNumber)
	require.Equal(t, "xxxxxxxx9012", *withdraw.AccountNumber)
	require.Equal(t, "₹600.00", withdraw.Amount)
}

func TestRequestWithdrawSurfacesInsufficientFunds(t *testing.T) {
	svc := &stubDrivers{
		withdraw: func(context.Context, internaldrivers.WithdrawRequest) (*models.Withdraw, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient balance").
				WithDetails(map[string]any{"available_paise": 100})
		},
	}
	resp := httptest.NewRecorder()
	RequestWithdraw(svc, nil).ServeHTTP(resp, asDriver(httptest.NewRequest(http.MethodPost, "/driver/withdrawals", strings.NewReader(`{"amount_paise": 60000, "mode": "upi", "upi_id": "ravi@upi"}`)), uuid.New()))

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	require.Equal(t, string(pkgerrors.CodeInsufficientFunds), decode(t, resp).Error.Code)
}

func TestWithdrawalsScopesToDriver(t *testing.T) {
	driverID := uuid.New()
	svc := &stubDrivers{
		withdrawals: func(_ context.Context, filter internaldrivers.WithdrawFilter, _ pagination.Params) (*types.ListPage[models.Withdraw], error) {
			require.Equal(t, driverID, *filter.DriverID)
			require.Equal(t, enums.WithdrawStatusPaid, *filter.Status)
			return &types.ListPage[models.Withdraw]{}, nil
		},
	}
	resp := httptest.NewRecorder()
	Withdrawals(svc, nil).ServeHTTP(resp, asDriver(httptest.NewRequest(http.MethodGet, "/driver/withdrawals?status=paid", nil), driverID))
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestMaskAccount(t *testing.T) {
	require.Nil(t, maskAccount(nil))
	short := "123"
	require.Equal(t, "123", *maskAccount(&short))
	long := "9876543210"
	require.Equal(t, "xxxxxx3210", *maskAccount(&long))
}
