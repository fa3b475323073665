// Package drivers serves the driver app: order hand-off, the wallet and
// withdrawals. The authenticated user id is the driver id.
package drivers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	ordercontrollers "github.com/angelmondragon/relaymart-backend/api/controllers/orders"
	"github.com/angelmondragon/relaymart-backend/api/middleware"
	"github.com/angelmondragon/relaymart-backend/api/responses"
	"github.com/angelmondragon/relaymart-backend/api/validators"
	internaldrivers "github.com/angelmondragon/relaymart-backend/internal/drivers"
	internalorders "github.com/angelmondragon/relaymart-backend/internal/orders"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
	"github.com/angelmondragon/relaymart-backend/pkg/logger"
	"github.com/angelmondragon/relaymart-backend/pkg/money"
)

// Orders lists the orders assigned to the driver.
func Orders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		driverID, err := requireDriver(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := internalorders.Filter{DriverID: &driverID}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filter.Status = &status
		}
		if filter.Created, err = validators.ParseDateRange(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ordercontrollers.NewOrderPage(page))
	}
}

// Accept claims a pending order for the driver.
func Accept(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc, logg, func(r *http.Request, orderID, driverID uuid.UUID) (any, error) {
		order, err := svc.Accept(r.Context(), orderID, driverID)
		if err != nil {
			return nil, err
		}
		return ordercontrollers.NewOrderResponse(order), nil
	})
}

// PickUp records that the driver collected the order from the seller.
func PickUp(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc, logg, func(r *http.Request, orderID, driverID uuid.UUID) (any, error) {
		order, err := svc.PickUp(r.Context(), orderID, driverID)
		if err != nil {
			return nil, err
		}
		return ordercontrollers.NewOrderResponse(order), nil
	})
}

// VerifyCode checks the customer's delivery code.
func VerifyCode(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc, logg, func(r *http.Request, orderID, driverID uuid.UUID) (any, error) {
		var req verifyCodeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		order, err := svc.VerifySecretCode(r.Context(), orderID, driverID, req.Code)
		if err != nil {
			return nil, err
		}
		return ordercontrollers.NewOrderResponse(order), nil
	})
}

// Deliver confirms the hand-off. COD orders carry the collected cash.
func Deliver(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc, logg, func(r *http.Request, orderID, driverID uuid.UUID) (any, error) {
		var req deliverRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				return nil, err
			}
		}
		order, err := svc.ConfirmDelivery(r.Context(), internalorders.DeliveryInput{
			OrderID:         orderID,
			DriverID:        driverID,
			PaidAmountPaise: req.PaidAmountPaise,
		})
		if err != nil {
			return nil, err
		}
		return ordercontrollers.NewOrderResponse(order), nil
	})
}

// SetAvailability toggles the driver between online and offline.
func SetAvailability(svc internaldrivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drivers service unavailable"))
			return
		}
		driverID, err := requireDriver(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req availabilityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		availability, err := enums.ParseDriverAvailability(req.Availability)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid availability"))
			return
		}
		if err := svc.SetAvailability(r.Context(), driverID, availability); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"availability": string(availability)})
	}
}

// Wallet returns the driver's balances.
func Wallet(svc internaldrivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drivers service unavailable"))
			return
		}
		driverID, err := requireDriver(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wallet, err := svc.Wallet(r.Context(), driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, walletResponse{
			DriverID:            wallet.DriverID,
			TotalEarningsPaise:  wallet.TotalEarnings,
			CurrentBalancePaise: wallet.CurrentBalance,
			CurrentBalance:      money.Format(wallet.CurrentBalance),
			PendingPayoutPaise:  wallet.PendingPayout,
			TodayEarningsPaise:  wallet.TodayEarnings,
			TotalWithdrawnPaise: wallet.TotalWithdrawn,
		})
	}
}

// Earnings lists the driver's earnings, newest first.
func Earnings(svc internaldrivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drivers service unavailable"))
			return
		}
		driverID, err := requireDriver(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := internaldrivers.EarningFilter{DriverID: &driverID}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseEarningStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filter.Status = &status
		}
		if filter.Created, err = validators.ParseDateRange(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListEarnings(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newEarningPage(page))
	}
}

// RequestWithdraw moves part of the current balance into a pending
// withdrawal.
func RequestWithdraw(svc internaldrivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drivers service unavailable"))
			return
		}
		driverID, err := requireDriver(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req withdrawRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mode, err := enums.ParseWithdrawMode(req.Mode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mode"))
			return
		}

		withdraw, err := svc.RequestWithdraw(r.Context(), internaldrivers.WithdrawRequest{
			DriverID:      driverID,
			AmountPaise:   req.AmountPaise,
			Mode:          mode,
			AccountHolder: validators.SanitizeString(req.AccountHolder, validators.MaxNameLength),
			AccountNumber: strings.TrimSpace(req.AccountNumber),
			IFSC:          strings.ToUpper(strings.TrimSpace(req.IFSC)),
			UPIID:         strings.TrimSpace(req.UPIID),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, NewWithdrawResponse(withdraw))
	}
}

// Withdrawals lists the driver's own withdrawals.
func Withdrawals(svc internaldrivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drivers service unavailable"))
			return
		}
		driverID, err := requireDriver(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter, err := ParseWithdrawFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.DriverID = &driverID

		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListWithdrawals(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, NewWithdrawPage(page))
	}
}

// ParseWithdrawFilter reads the status and date range of a withdrawal
// listing.
func ParseWithdrawFilter(r *http.Request) (internaldrivers.WithdrawFilter, error) {
	var filter internaldrivers.WithdrawFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseWithdrawStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		filter.Status = &status
	}
	created, err := validators.ParseDateRange(r)
	if err != nil {
		return filter, err
	}
	filter.Created = created
	return filter, nil
}

type orderActionFunc func(r *http.Request, orderID, driverID uuid.UUID) (any, error)

func orderAction(svc internalorders.Service, logg *logger.Logger, fn orderActionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		driverID, err := requireDriver(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload, err := fn(r, orderID, driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}

func requireDriver(r *http.Request) (uuid.UUID, error) {
	userID, role, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if role != enums.RoleDriver {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "driver role required")
	}
	return userID, nil
}
