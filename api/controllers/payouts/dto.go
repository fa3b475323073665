package payouts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	internalpayouts "github.com/angelmondragon/relaymart-backend/internal/payouts"
	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	"github.com/angelmondragon/relaymart-backend/pkg/money"
	"github.com/angelmondragon/relaymart-backend/pkg/types"
)

type createBatchRequest struct {
	RecipientType string    `json:"recipient_type" validate:"required,oneof=seller promotor driver"`
	RecipientID   uuid.UUID `json:"recipient_id" validate:"required"`
}

type markPaidRequest struct {
	Method        string `json:"method" validate:"required,oneof=bank_transfer upi cash cheque"`
	TransactionID string `json:"transaction_id" validate:"required,max=120"`
}

type batchStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=processing failed cancelled"`
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type withdrawStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected paid"`
	Note   string `json:"note" validate:"omitempty,max=500"`
}

type batchResponse struct {
	ID               uuid.UUID                `json:"id"`
	RecipientType    enums.RecipientType      `json:"recipient_type"`
	RecipientID      uuid.UUID                `json:"recipient_id"`
	TotalAmountPaise int64                    `json:"total_amount_paise"`
	TotalAmount      string                   `json:"total_amount"`
	ItemCount        int                      `json:"item_count"`
	Status           enums.PayoutStatus       `json:"status"`
	Method           *enums.PayoutMethod      `json:"method,omitempty"`
	TransactionID    *string                  `json:"transaction_id,omitempty"`
	FailureReason    *string                  `json:"failure_reason,omitempty"`
	PaidAt           *time.Time               `json:"paid_at,omitempty"`
	Members          []internalpayouts.Member `json:"members,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

type sellerPayoutResponse struct {
	ID               uuid.UUID             `json:"id"`
	OrderID          uuid.UUID             `json:"order_id"`
	SellerID         uuid.UUID             `json:"seller_id"`
	OrderAmountPaise int64                 `json:"order_amount_paise"`
	TotalQuantity    int                   `json:"total_quantity"`
	CommissionType   *enums.CommissionType `json:"commission_type,omitempty"`
	CommissionRate   decimal.Decimal       `json:"commission_rate"`
	CommissionPaise  int64                 `json:"promotor_commission_paise"`
	PlatformFeeRate  decimal.Decimal       `json:"platform_fee_rate"`
	PlatformFeePaise int64                 `json:"platform_fee_paise"`
	GSTRate          decimal.Decimal       `json:"gst_rate"`
	GSTOnFeePaise    int64                 `json:"gst_on_platform_fee_paise"`
	CGSTPaise        int64                 `json:"cgst_paise"`
	SGSTPaise        int64                 `json:"sgst_paise"`
	IGSTPaise        int64                 `json:"igst_paise"`
	TDSRate          decimal.Decimal       `json:"tds_rate"`
	TDSPaise         int64                 `json:"tds_paise"`
	PayablePaise     int64                 `json:"payable_paise"`
	NetAmountPaise   int64                 `json:"net_amount_paise"`
	NetAmount        string                `json:"net_amount"`
	Status           enums.PayoutStatus    `json:"status"`
	BatchID          *uuid.UUID            `json:"batch_id,omitempty"`
	PaidAt           *time.Time            `json:"paid_at,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
}

type promotorPayoutResponse struct {
	ID               uuid.UUID            `json:"id"`
	OrderID          uuid.UUID            `json:"order_id"`
	PromotorID       uuid.UUID            `json:"promotor_id"`
	SellerID         uuid.UUID            `json:"seller_id"`
	OrderAmountPaise int64                `json:"order_amount_paise"`
	TotalQuantity    int                  `json:"total_quantity"`
	CommissionType   enums.CommissionType `json:"commission_type"`
	CommissionRate   decimal.Decimal      `json:"commission_rate"`
	AmountPaise      int64                `json:"commission_amount_paise"`
	Amount           string               `json:"commission_amount"`
	Status           enums.PayoutStatus   `json:"status"`
	BatchID          *uuid.UUID           `json:"batch_id,omitempty"`
	PaidAt           *time.Time           `json:"paid_at,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}

func newBatchResponse(batch *models.PayoutBatch, members []internalpayouts.Member) batchResponse {
	if batch == nil {
		return batchResponse{}
	}
	return batchResponse{
		ID:               batch.ID,
		RecipientType:    batch.RecipientType,
		RecipientID:      batch.RecipientID,
		TotalAmountPaise: batch.TotalAmountPaise,
		TotalAmount:      money.Format(batch.TotalAmountPaise),
		ItemCount:        batch.ItemCount,
		Status:           batch.Status,
		Method:           batch.Method,
		TransactionID:    batch.TransactionID,
		FailureReason:    batch.FailureReason,
		PaidAt:           batch.PaidAt,
		Members:          members,
		CreatedAt:        batch.CreatedAt,
		UpdatedAt:        batch.UpdatedAt,
	}
}

func newBatchPage(page *types.ListPage[models.PayoutBatch]) types.ListPage[batchResponse] {
	out := types.ListPage[batchResponse]{Items: []batchResponse{}}
	if page == nil {
		return out
	}
	out.NextCursor = page.NextCursor
	for i := range page.Items {
		out.Items = append(out.Items, newBatchResponse(&page.Items[i], nil))
	}
	return out
}

func newSellerPayoutPage(page *types.ListPage[models.SellerPayout]) types.ListPage[sellerPayoutResponse] {
	out := types.ListPage[sellerPayoutResponse]{Items: []sellerPayoutResponse{}}
	if page == nil {
		return out
	}
	out.NextCursor = page.NextCursor
	for _, p := range page.Items {
		out.Items = append(out.Items, sellerPayoutResponse{
			ID:               p.ID,
			OrderID:          p.OrderID,
			SellerID:         p.SellerID,
			OrderAmountPaise: p.OrderAmountPaise,
			TotalQuantity:    p.TotalQuantity,
			CommissionType:   p.CommissionType,
			CommissionRate:   p.CommissionRate,
			CommissionPaise:  p.CommissionPaise,
			PlatformFeeRate:  p.PlatformFeeRate,
			PlatformFeePaise: p.PlatformFeePaise,
			GSTRate:          p.GSTRate,
			GSTOnFeePaise:    p.GSTOnFeePaise,
			CGSTPaise:        p.CGSTPaise,
			SGSTPaise:        p.SGSTPaise,
			IGSTPaise:        p.IGSTPaise,
			TDSRate:          p.TDSRate,
			TDSPaise:         p.TDSPaise,
			PayablePaise:     p.PayablePaise,
			NetAmountPaise:   p.NetAmountPaise,
			NetAmount:        money.Format(p.NetAmountPaise),
			Status:           p.Status,
			BatchID:          p.BatchID,
			PaidAt:           p.PaidAt,
			CreatedAt:        p.CreatedAt,
		})
	}
	return out
}

func newPromotorPayoutPage(page *types.ListPage[models.PromotorPayout]) types.ListPage[promotorPayoutResponse] {
	out := types.ListPage[promotorPayoutResponse]{Items: []promotorPayoutResponse{}}
	if page == nil {
		return out
	}
	out.NextCursor = page.NextCursor
	for _, p := range page.Items {
		out.Items = append(out.Items, promotorPayoutResponse{
			ID:               p.ID,
			OrderID:          p.OrderID,
			PromotorID:       p.PromotorID,
			SellerID:         p.SellerID,
			OrderAmountPaise: p.OrderAmountPaise,
			TotalQuantity:    p.TotalQuantity,
			CommissionType:   p.CommissionType,
			CommissionRate:   p.CommissionRate,
			AmountPaise:      p.AmountPaise,
			Amount:           money.Format(p.AmountPaise),
			Status:           p.Status,
			BatchID:          p.BatchID,
			PaidAt:           p.PaidAt,
			CreatedAt:        p.CreatedAt,
		})
	}
	return out
}
