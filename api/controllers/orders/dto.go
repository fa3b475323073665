package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	"github.com/angelmondragon/relaymart-backend/pkg/money"
	"github.com/angelmondragon/relaymart-backend/pkg/types"
)

type createItemRequest struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	Quantity       int       `json:"quantity" validate:"required,gt=0"`
	UnitPricePaise int64     `json:"unit_price_paise" validate:"gte=0"`
}

type createOrderRequest struct {
	Items           []createItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress types.Address       `json:"shipping_address" validate:"required"`
	PaymentMethod   string              `json:"payment_method" validate:"required,oneof=cod online"`
	UseWallet       bool                `json:"use_wallet"`
	CouponCode      *string             `json:"coupon_code,omitempty"`
}

type validateCouponRequest struct {
	Code             string      `json:"code" validate:"required"`
	SellerID         uuid.UUID   `json:"seller_id" validate:"required"`
	ProductIDs       []uuid.UUID `json:"product_ids" validate:"required,min=1"`
	OrderAmountPaise int64       `json:"order_amount_paise" validate:"gt=0"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type orderItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      uuid.UUID       `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Quantity       int             `json:"quantity"`
	UnitPricePaise int64           `json:"unit_price_paise"`
	LineTotalPaise int64           `json:"line_total_paise"`
	GSTRate        decimal.Decimal `json:"gst_rate"`
	TaxType        enums.TaxType   `json:"tax_type"`
	TaxablePaise   int64           `json:"taxable_paise"`
	GSTPaise       int64           `json:"gst_paise"`
	CGSTPaise      int64           `json:"cgst_paise"`
	SGSTPaise      int64           `json:"sgst_paise"`
	IGSTPaise      int64           `json:"igst_paise"`
}

// OrderResponse is the public view of an order. The secret code hash never
// leaves the service.
type OrderResponse struct {
	ID                   uuid.UUID           `json:"id"`
	UserID               uuid.UUID           `json:"user_id"`
	SellerID             uuid.UUID           `json:"seller_id"`
	DriverID             *uuid.UUID          `json:"driver_id,omitempty"`
	Status               enums.OrderStatus   `json:"status"`
	PaymentMethod        enums.PaymentMethod `json:"payment_method"`
	PaymentStatus        enums.PaymentStatus `json:"payment_status"`
	SubtotalPaise        int64               `json:"subtotal_paise"`
	DiscountPaise        int64               `json:"discount_paise"`
	FinalAmountPaise     int64               `json:"final_amount_paise"`
	FinalAmount          string              `json:"final_amount"`
	WalletDeductionPaise int64               `json:"wallet_deduction_paise"`
	CashOnDeliveryPaise  int64               `json:"cash_on_delivery_paise"`
	TaxablePaise         int64               `json:"taxable_paise"`
	GSTPaise             int64               `json:"gst_paise"`
	CouponCode           *string             `json:"coupon_code,omitempty"`
	ShippingAddress      types.Address       `json:"shipping_address"`
	IsSecretCodeVerified bool                `json:"is_secret_code_verified"`
	CancelReason         *string             `json:"cancel_reason,omitempty"`
	AcceptedAt           *time.Time          `json:"accepted_at,omitempty"`
	PickedUpAt           *time.Time          `json:"picked_up_at,omitempty"`
	DeliveredAt          *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt          *time.Time          `json:"cancelled_at,omitempty"`
	PaidAt               *time.Time          `json:"paid_at,omitempty"`
	SettledAt            *time.Time          `json:"settled_at,omitempty"`
	Items                []orderItemResponse `json:"items,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

type createOrderResponse struct {
	Order      OrderResponse `json:"order"`
	SecretCode string        `json:"secret_code"`
}

type couponValidationResponse struct {
	Code          string             `json:"code"`
	DiscountType  enums.DiscountType `json:"discount_type"`
	DiscountPaise int64              `json:"discount_paise"`
	Discount      string             `json:"discount"`
	ValidUntil    time.Time          `json:"valid_until"`
}

// NewOrderResponse maps an order row to its public view.
func NewOrderResponse(order *models.Order) OrderResponse {
	if order == nil {
		return OrderResponse{}
	}
	resp := OrderResponse{
		ID:                   order.ID,
		UserID:               order.UserID,
		SellerID:             order.SellerID,
		DriverID:             order.DriverID,
		Status:               order.Status,
		PaymentMethod:        order.PaymentMethod,
		PaymentStatus:        order.PaymentStatus,
		SubtotalPaise:        order.SubtotalPaise,
		DiscountPaise:        order.DiscountPaise,
		FinalAmountPaise:     order.FinalAmountPaise,
		FinalAmount:          money.Format(order.FinalAmountPaise),
		WalletDeductionPaise: order.WalletDeductionPaise,
		CashOnDeliveryPaise:  order.CashOnDeliveryPaise,
		TaxablePaise:         order.TaxablePaise,
		GSTPaise:             order.GSTPaise,
		CouponCode:           order.CouponCode,
		ShippingAddress:      order.ShippingAddress,
		IsSecretCodeVerified: order.IsSecretCodeVerified,
		CancelReason:         order.CancelReason,
		AcceptedAt:           order.AcceptedAt,
		PickedUpAt:           order.PickedUpAt,
		DeliveredAt:          order.DeliveredAt,
		CancelledAt:          order.CancelledAt,
		PaidAt:               order.PaidAt,
		SettledAt:            order.SettledAt,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Quantity:       item.Quantity,
			UnitPricePaise: item.UnitPricePaise,
			LineTotalPaise: item.LineTotalPaise,
			GSTRate:        item.GSTRate,
			TaxType:        item.TaxType,
			TaxablePaise:   item.TaxablePaise,
			GSTPaise:       item.GSTPaise,
			CGSTPaise:      item.CGSTPaise,
			SGSTPaise:      item.SGSTPaise,
			IGSTPaise:      item.IGSTPaise,
		})
	}
	return resp
}

// NewOrderPage maps a page of orders.
func NewOrderPage(page *types.ListPage[models.Order]) types.ListPage[OrderResponse] {
	out := types.ListPage[OrderResponse]{Items: []OrderResponse{}}
	if page == nil {
		return out
	}
	out.NextCursor = page.NextCursor
	for i := range page.Items {
		out.Items = append(out.Items, NewOrderResponse(&page.Items[i]))
	}
	return out
}
