package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	"github.com/angelmondragon/relaymart-backend/pkg/types"
)

// Order is the buyer's purchase from a single seller. Money columns are paise.
// FinalAmount = Subtotal - Discount and FinalAmount = WalletDeduction +
// CashOnDelivery always hold.
type Order struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID               uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	SellerID             uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	DriverID             *uuid.UUID          `gorm:"column:driver_id;type:uuid;index"`
	Status               enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentMethod        enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus        enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	SubtotalPaise        int64               `gorm:"column:subtotal_paise;not null"`
	DiscountPaise        int64               `gorm:"column:discount_paise;not null;default:0"`
	FinalAmountPaise     int64               `gorm:"column:final_amount_paise;not null"`
	WalletDeductionPaise int64               `gorm:"column:wallet_deduction_paise;not null;default:0"`
	CashOnDeliveryPaise  int64               `gorm:"column:cash_on_delivery_paise;not null;default:0"`
	TaxablePaise         int64               `gorm:"column:taxable_paise;not null;default:0"`
	GSTPaise             int64               `gorm:"column:gst_paise;not null;default:0"`
	CouponCode           *string             `gorm:"column:coupon_code"`
	ShippingAddress      types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	SecretCodeHash       string              `gorm:"column:secret_code_hash;not null"`
	IsSecretCodeVerified bool                `gorm:"column:is_secret_code_verified;not null;default:false"`
	CancelReason         *string             `gorm:"column:cancel_reason"`
	AcceptedAt           *time.Time          `gorm:"column:accepted_at"`
	PickedUpAt           *time.Time          `gorm:"column:picked_up_at"`
	DeliveredAt          *time.Time          `gorm:"column:delivered_at"`
	CancelledAt          *time.Time          `gorm:"column:cancelled_at"`
	PaidAt               *time.Time          `gorm:"column:paid_at"`
	SettledAt            *time.Time          `gorm:"column:settled_at"`
	Items                []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// IsSettleable reports whether the order is delivered and paid, the moment
// payouts become due.
func (o Order) IsSettleable() bool {
	return o.Status == enums.OrderStatusDelivered && o.PaymentStatus == enums.PaymentStatusPaid
}

// OrderItem snapshots the price and tax treatment of one line at creation.
type OrderItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName    string          `gorm:"column:product_name;not null"`
	Quantity       int             `gorm:"column:quantity;not null"`
	UnitPricePaise int64           `gorm:"column:unit_price_paise;not null"`
	LineTotalPaise int64           `gorm:"column:line_total_paise;not null"`
	GSTRate        decimal.Decimal `gorm:"column:gst_rate;type:numeric(5,2);not null"`
	TaxType        enums.TaxType   `gorm:"column:tax_type;type:text;not null"`
	TaxablePaise   int64           `gorm:"column:taxable_paise;not null"`
	GSTPaise       int64           `gorm:"column:gst_paise;not null"`
	CGSTPaise      int64           `gorm:"column:cgst_paise;not null;default:0"`
	SGSTPaise      int64           `gorm:"column:sgst_paise;not null;default:0"`
	IGSTPaise      int64           `gorm:"column:igst_paise;not null;default:0"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
