package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/pkg/enums"
)

// SellerPayout is what an order owes its seller. Rates are stored next to the
// amounts so every row can be recomputed to the paisa.
type SellerPayout struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID             `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_seller_payouts_order_seller,priority:1"`
	SellerID         uuid.UUID             `gorm:"column:seller_id;type:uuid;not null;uniqueIndex:ux_seller_payouts_order_seller,priority:2;index"`
	OrderAmountPaise int64                 `gorm:"column:order_amount_paise;not null"`
	TotalQuantity    int                   `gorm:"column:total_quantity;not null"`
	CommissionType   *enums.CommissionType `gorm:"column:commission_type;type:text"`
	CommissionRate   decimal.Decimal       `gorm:"column:commission_rate;type:numeric(12,4);not null;default:0"`
	CommissionPaise  int64                 `gorm:"column:promotor_commission_paise;not null;default:0"`
	PlatformFeeRate  decimal.Decimal       `gorm:"column:platform_fee_rate;type:numeric(5,2);not null"`
	PlatformFeePaise int64                 `gorm:"column:platform_fee_paise;not null"`
	GSTRate          decimal.Decimal       `gorm:"column:gst_rate;type:numeric(5,2);not null"`
	GSTOnFeePaise    int64                 `gorm:"column:gst_on_platform_fee_paise;not null"`
	CGSTPaise        int64                 `gorm:"column:cgst_paise;not null;default:0"`
	SGSTPaise        int64                 `gorm:"column:sgst_paise;not null;default:0"`
	IGSTPaise        int64                 `gorm:"column:igst_paise;not null;default:0"`
	TDSRate          decimal.Decimal       `gorm:"column:tds_rate;type:numeric(5,2);not null"`
	TDSPaise         int64                 `gorm:"column:tds_paise;not null"`
	PayablePaise     int64                 `gorm:"column:payable_paise;not null"`
	NetAmountPaise   int64                 `gorm:"column:net_amount_paise;not null"`
	Status           enums.PayoutStatus    `gorm:"column:status;type:text;not null;default:'pending';index"`
	BatchID          *uuid.UUID            `gorm:"column:batch_id;type:uuid;index"`
	PaidAt           *time.Time            `gorm:"column:paid_at"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *SellerPayout) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// PromotorPayout is the commission an order owes the seller's promotor.
type PromotorPayout struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_promotor_payouts_order_promotor,priority:1"`
	PromotorID       uuid.UUID            `gorm:"column:promotor_id;type:uuid;not null;uniqueIndex:ux_promotor_payouts_order_promotor,priority:2;index"`
	SellerID         uuid.UUID            `gorm:"column:seller_id;type:uuid;not null"`
	OrderAmountPaise int64                `gorm:"column:order_amount_paise;not null"`
	TotalQuantity    int                  `gorm:"column:total_quantity;not null"`
	CommissionType   enums.CommissionType `gorm:"column:commission_type;type:text;not null"`
	CommissionRate   decimal.Decimal      `gorm:"column:commission_rate;type:numeric(12,4);not null"`
	AmountPaise      int64                `gorm:"column:commission_amount_paise;not null"`
	Status           enums.PayoutStatus   `gorm:"column:status;type:text;not null;default:'pending';index"`
	BatchID          *uuid.UUID           `gorm:"column:batch_id;type:uuid;index"`
	PaidAt           *time.Time           `gorm:"column:paid_at"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PromotorPayout) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
