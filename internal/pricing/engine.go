// Package pricing derives order totals and coupon discounts. Everything here
// is pure; persistence and locking live in the callers.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
	"github.com/angelmondragon/relaymart-backend/pkg/money"
)

// Line is a caller-supplied price snapshot for one product.
type Line struct {
	UnitPrice int64
	Quantity  int
}

// Subtotal sums unit price times quantity over every line.
func Subtotal(lines []Line) (int64, error) {
	var total int64
	for i, line := range lines {
		if line.Quantity < 1 {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"line": i, "quantity": line.Quantity})
		}
		if line.UnitPrice < 0 {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative").
				WithDetails(map[string]any{"line": i, "unit_price_paise": line.UnitPrice})
		}
		total += line.UnitPrice * int64(line.Quantity)
	}
	return total, nil
}

// QuoteInput carries the already validated inputs of an order total.
type QuoteInput struct {
	Subtotal       int64
	CouponDiscount int64
	UseWallet      bool
	WalletBalance  int64
}

// Quote is the money split of an order. Final = Subtotal - Discount and
// Final = WalletDeduction + CashOnDelivery.
type Quote struct {
	Subtotal        int64               `json:"subtotal_paise"`
	Discount        int64               `json:"discount_paise"`
	Final           int64               `json:"final_amount_paise"`
	WalletDeduction int64               `json:"wallet_deduction_paise"`
	CashOnDelivery  int64               `json:"cash_on_delivery_paise"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
}

// Price applies the coupon cap and the wallet split.
func Price(in QuoteInput) Quote {
	discount := in.CouponDiscount
	if discount < 0 {
		discount = 0
	}
	discount = money.Min(discount, in.Subtotal)

	q := Quote{
		Subtotal: in.Subtotal,
		Discount: discount,
		Final:    in.Subtotal - discount,
	}
	if in.UseWallet && in.WalletBalance > 0 {
		q.WalletDeduction = money.Min(in.WalletBalance, q.Final)
	}
	q.CashOnDelivery = q.Final - q.WalletDeduction

	q.PaymentStatus = enums.PaymentStatusPending
	if q.CashOnDelivery == 0 {
		q.PaymentStatus = enums.PaymentStatusPaid
	}
	return q
}

// Coupon rejection reasons, reported in the validation error details.
const (
	CouponInactive      = "inactive"
	CouponNotStarted    = "not_started"
	CouponExpired       = "expired"
	CouponExhausted     = "usage_limit_reached"
	CouponBelowMinimum  = "below_minimum_order"
	CouponUserLimit     = "per_user_limit_reached"
	CouponNotApplicable = "not_applicable"
)

// ValidateCoupon runs the checks in order: active, date window, global
// usage, minimum order amount. The first failure wins.
func ValidateCoupon(c models.Coupon, now time.Time, orderAmount int64) error {
	if !c.IsActive {
		return couponError(c, CouponInactive, "coupon is not active")
	}
	if now.Before(c.ValidFrom) {
		return couponError(c, CouponNotStarted, "coupon is not yet valid")
	}
	if now.After(c.ValidUntil) {
		return couponError(c, CouponExpired, "coupon has expired")
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return couponError(c, CouponExhausted, "coupon usage limit reached")
	}
	if orderAmount < c.MinOrderPaise {
		return couponError(c, CouponBelowMinimum, "order amount below coupon minimum").
			WithDetails(map[string]any{
				"code":             c.Code,
				"reason":           CouponBelowMinimum,
				"min_order_paise":  c.MinOrderPaise,
				"min_order":        money.Format(c.MinOrderPaise),
				"order_amount":     money.Format(orderAmount),
				"order_amount_raw": orderAmount,
			})
	}
	return nil
}

// CalculateDiscount returns the discount in paise, never above orderAmount.
func CalculateDiscount(c models.Coupon, orderAmount int64) int64 {
	if orderAmount <= 0 {
		return 0
	}
	var discount int64
	switch c.DiscountType {
	case enums.DiscountTypePercentage:
		discount = money.ToPaise(money.Percent(decimal.NewFromInt(orderAmount), c.DiscountValue))
		if c.MaxDiscountPaise != nil {
			discount = money.Min(discount, *c.MaxDiscountPaise)
		}
	case enums.DiscountTypeFixed:
		discount = money.ToPaise(c.DiscountValue)
	}
	if discount < 0 {
		return 0
	}
	return money.Min(discount, orderAmount)
}

func couponError(c models.Coupon, reason, message string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).
		WithDetails(map[string]any{"code": c.Code, "reason": reason})
}
