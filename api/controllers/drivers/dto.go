package drivers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	"github.com/angelmondragon/relaymart-backend/pkg/money"
	"github.com/angelmondragon/relaymart-backend/pkg/types"
)

type verifyCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

type deliverRequest struct {
	PaidAmountPaise *int64 `json:"paid_amount_paise,omitempty" validate:"omitempty,gte=0"`
}

type availabilityRequest struct {
	Availability string `json:"availability" validate:"required,oneof=online offline"`
}

type withdrawRequest struct {
	AmountPaise   int64  `json:"amount_paise" validate:"gt=0"`
	Mode          string `json:"mode" validate:"required,oneof=bank upi"`
	AccountHolder string `json:"account_holder" validate:"omitempty,max=120"`
	AccountNumber string `json:"account_number" validate:"omitempty,numeric,min=6,max=20"`
	IFSC          string `json:"ifsc" validate:"omitempty,len=11"`
	UPIID         string `json:"upi_id" validate:"omitempty,max=80"`
}

type walletResponse struct {
	DriverID            uuid.UUID `json:"driver_id"`
	TotalEarningsPaise  int64     `json:"total_earnings_paise"`
	CurrentBalancePaise int64     `json:"current_balance_paise"`
	CurrentBalance      string    `json:"current_balance"`
	PendingPayoutPaise  int64     `json:"pending_payout_paise"`
	TodayEarningsPaise  int64     `json:"today_earnings_paise"`
	TotalWithdrawnPaise int64     `json:"total_withdrawn_paise"`
}

type earningResponse struct {
	ID          uuid.UUID           `json:"id"`
	OrderID     *uuid.UUID          `json:"order_id,omitempty"`
	Type        enums.EarningType   `json:"type"`
	AmountPaise int64               `json:"amount_paise"`
	Status      enums.EarningStatus `json:"status"`
	BatchID     *uuid.UUID          `json:"batch_id,omitempty"`
	EarnedOn    string              `json:"earned_on"`
	PaidAt      *time.Time          `json:"paid_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// WithdrawResponse is the public view of a withdrawal. Account numbers are
// masked to their last four digits.
type WithdrawResponse struct {
	ID            uuid.UUID            `json:"id"`
	DriverID      uuid.UUID            `json:"driver_id"`
	AmountPaise   int64                `json:"amount_paise"`
	Amount        string               `json:"amount"`
	Mode          enums.WithdrawMode   `json:"mode"`
	AccountHolder *string              `json:"account_holder,omitempty"`
	AccountNumber *string              `json:"account_number,omitempty"`
	IFSC          *string              `json:"ifsc,omitempty"`
	UPIID         *string              `json:"upi_id,omitempty"`
	Status        enums.WithdrawStatus `json:"status"`
	Note          *string              `json:"note,omitempty"`
	ProcessedAt   *time.Time           `json:"processed_at,omitempty"`
	PaidAt        *time.Time           `json:"paid_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// NewWithdrawResponse maps a withdrawal row to its public view.
func NewWithdrawResponse(w *models.Withdraw) WithdrawResponse {
	if w == nil {
		return WithdrawResponse{}
	}
	return WithdrawResponse{
		ID:            w.ID,
		DriverID:      w.DriverID,
		AmountPaise:   w.AmountPaise,
		Amount:        money.Format(w.AmountPaise),
		Mode:          w.Mode,
		AccountHolder: w.AccountHolder,
		AccountNumber: maskAccount(w.AccountNumber),
		IFSC:          w.IFSC,
		UPIID:         w.UPIID,
		Status:        w.Status,
		Note:          w.Note,
		ProcessedAt:   w.ProcessedAt,
		PaidAt:        w.PaidAt,
		CreatedAt:     w.CreatedAt,
	}
}

// NewWithdrawPage maps a page of withdrawals.
func NewWithdrawPage(page *types.ListPage[models.Withdraw]) types.ListPage[WithdrawResponse] {
	out := types.ListPage[WithdrawResponse]{Items: []WithdrawResponse{}}
	if page == nil {
		return out
	}
	out.NextCursor = page.NextCursor
	for i := range page.Items {
		out.Items = append(out.Items, NewWithdrawResponse(&page.Items[i]))
	}
	return out
}

func newEarningPage(page *types.ListPage[models.DriverEarning]) types.ListPage[earningResponse] {
	out := types.ListPage[earningResponse]{Items: []earningResponse{}}
	if page == nil {
		return out
	}
	out.NextCursor = page.NextCursor
	for _, e := range page.Items {
		out.Items = append(out.Items, earningResponse{
			ID:          e.ID,
			OrderID:     e.OrderID,
			Type:        e.Type,
			AmountPaise: e.AmountPaise,
			Status:      e.Status,
			BatchID:     e.BatchID,
			EarnedOn:    e.EarnedOn,
			PaidAt:      e.PaidAt,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}

func maskAccount(number *string) *string {
	if number == nil {
		return nil
	}
	n := *number
	if len(n) <= 4 {
		return &n
	}
	masked := make([]byte, len(n))
	for i := range masked {
		masked[i] = 'x'
	}
	copy(masked[len(n)-4:], n[len(n)-4:])
	out := string(masked)
	return &out
}
