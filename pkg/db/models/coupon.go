package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/pkg/enums"
)

// Coupon is a discount code. DiscountValue is a percentage for percentage
// coupons and paise for fixed coupons.
type Coupon struct {
	ID                   uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Code                 string             `gorm:"column:code;not null;uniqueIndex:ux_coupons_code"`
	DiscountType         enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	DiscountValue        decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,4);not null"`
	MaxDiscountPaise     *int64             `gorm:"column:max_discount_paise"`
	MinOrderPaise        int64              `gorm:"column:min_order_paise;not null;default:0"`
	ValidFrom            time.Time          `gorm:"column:valid_from;not null"`
	ValidUntil           time.Time          `gorm:"column:valid_until;not null"`
	UsageLimit           *int               `gorm:"column:usage_limit"`
	UsedCount            int                `gorm:"column:used_count;not null;default:0"`
	PerUserLimit         *int               `gorm:"column:per_user_limit"`
	IsActive             bool               `gorm:"column:is_active;not null;default:true"`
	ApplicableProductIDs []uuid.UUID        `gorm:"column:applicable_product_ids;type:jsonb;serializer:json"`
	ApplicableSellerIDs  []uuid.UUID        `gorm:"column:applicable_seller_ids;type:jsonb;serializer:json"`
	CreatedAt            time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// CouponRedemption claims one of a user's per-coupon slots for an order. The
// unique (coupon_id, user_id, sequence) index rejects concurrent double
// claims of the same slot.
type CouponRedemption struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CouponID  uuid.UUID `gorm:"column:coupon_id;type:uuid;not null;uniqueIndex:ux_coupon_redemptions_slot,priority:1"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_coupon_redemptions_slot,priority:2"`
	Sequence  int       `gorm:"column:sequence;not null;uniqueIndex:ux_coupon_redemptions_slot,priority:3"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_coupon_redemptions_order"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *CouponRedemption) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
