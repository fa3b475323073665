// Package payouts serves the admin money desk: payout batches, the
// per-order seller and promotor payouts and driver withdrawal decisions.
package payouts

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	drivercontrollers "github.com/angelmondragon/relaymart-backend/api/controllers/drivers"
	"github.com/angelmondragon/relaymart-backend/api/middleware"
	"github.com/angelmondragon/relaymart-backend/api/responses"
	"github.com/angelmondragon/relaymart-backend/api/validators"
	internaldrivers "github.com/angelmondragon/relaymart-backend/internal/drivers"
	internalpayouts "github.com/angelmondragon/relaymart-backend/internal/payouts"
	"github.com/angelmondragon/relaymart-backend/internal/settlement"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
	"github.com/angelmondragon/relaymart-backend/pkg/logger"
	"github.com/angelmondragon/relaymart-backend/pkg/pagination"
)

// CreateBatch groups every pending payout of one recipient into a batch.
func CreateBatch(svc internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}
		var req createBatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recipientType, err := enums.ParseRecipientType(req.RecipientType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid recipient type"))
			return
		}

		batch, err := svc.CreateBatch(r.Context(), recipientType, req.RecipientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newBatchResponse(batch, nil))
	}
}

// MarkPaid records the external transfer of a batch and settles balances.
func MarkPaid(svc internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}
		actorID, err := requireAdmin(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		batchID, err := validators.ParseURLUUID(r, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req markPaidRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePayoutMethod(req.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout method"))
			return
		}

		batch, err := svc.MarkPaid(r.Context(), internalpayouts.MarkPaidInput{
			BatchID:       batchID,
			Method:        method,
			TransactionID: strings.TrimSpace(req.TransactionID),
			ActorID:       actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newBatchResponse(batch, nil))
	}
}

// UpdateStatus moves a batch to processing, failed or cancelled.
func UpdateStatus(svc internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}
		actorID, err := requireAdmin(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		batchID, err := validators.ParseURLUUID(r, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req batchStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParsePayoutStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		batch, err := svc.UpdateStatus(r.Context(), internalpayouts.StatusInput{
			BatchID: batchID,
			Status:  status,
			Reason:  validators.SanitizeReason(req.Reason),
			ActorID: actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newBatchResponse(batch, nil))
	}
}

// ListBatches pages through payout batches.
func ListBatches(svc internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}
		var filter internalpayouts.Filter
		var err error
		if raw := strings.TrimSpace(r.URL.Query().Get("recipient_type")); raw != "" {
			recipientType, parseErr := enums.ParseRecipientType(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid recipient type"))
				return
			}
			filter.RecipientType = &recipientType
		}
		if filter.RecipientID, err = validators.ParseQueryUUID(r, "recipient_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.Status, err = parsePayoutStatus(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
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
		responses.WriteSuccess(w, newBatchPage(page))
	}
}

// GetBatch returns a batch with its members.
func GetBatch(svc internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}
		batchID, err := validators.ParseURLUUID(r, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Get(r.Context(), batchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		members := detail.Members
		if members == nil {
			members = []internalpayouts.Member{}
		}
		responses.WriteSuccess(w, newBatchResponse(&detail.PayoutBatch, members))
	}
}

// SellerPayouts lists per-order seller payouts.
func SellerPayouts(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		filter, params, err := parseSettlementQuery(r, "seller_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListSellerPayouts(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSellerPayoutPage(page))
	}
}

// PromotorPayouts lists per-order promotor commissions.
func PromotorPayouts(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		filter, params, err := parseSettlementQuery(r, "promotor_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListPromotorPayouts(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPromotorPayoutPage(page))
	}
}

// Withdrawals lists withdrawals across drivers.
func Withdrawals(svc internaldrivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drivers service unavailable"))
			return
		}
		filter, err := drivercontrollers.ParseWithdrawFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.DriverID, err = validators.ParseQueryUUID(r, "driver_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
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
		responses.WriteSuccess(w, drivercontrollers.NewWithdrawPage(page))
	}
}

// UpdateWithdrawStatus approves, rejects or pays out a withdrawal.
func UpdateWithdrawStatus(svc internaldrivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drivers service unavailable"))
			return
		}
		actorID, err := requireAdmin(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		withdrawID, err := validators.ParseURLUUID(r, "withdrawId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req withdrawStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseWithdrawStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		withdraw, err := svc.UpdateWithdrawStatus(r.Context(), internaldrivers.WithdrawDecision{
			WithdrawID: withdrawID,
			Status:     status,
			Note:       validators.SanitizeNote(req.Note),
			ActorID:    actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, drivercontrollers.NewWithdrawResponse(withdraw))
	}
}

func parseSettlementQuery(r *http.Request, recipientKey string) (settlement.Filter, pagination.Params, error) {
	var filter settlement.Filter
	var err error
	if filter.RecipientID, err = validators.ParseQueryUUID(r, recipientKey); err != nil {
		return filter, pagination.Params{}, err
	}
	if filter.OrderID, err = validators.ParseQueryUUID(r, "order_id"); err != nil {
		return filter, pagination.Params{}, err
	}
	if filter.Status, err = parsePayoutStatus(r); err != nil {
		return filter, pagination.Params{}, err
	}
	if filter.Created, err = validators.ParseDateRange(r); err != nil {
		return filter, pagination.Params{}, err
	}
	params, err := validators.ParsePageParams(r)
	if err != nil {
		return filter, pagination.Params{}, err
	}
	return filter, params, nil
}

func parsePayoutStatus(r *http.Request) (*enums.PayoutStatus, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return nil, nil
	}
	status, err := enums.ParsePayoutStatus(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	return &status, nil
}

func requireAdmin(r *http.Request) (uuid.UUID, error) {
	userID, role, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if role != enums.RoleAdmin {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return userID, nil
}
