// Package coupons validates coupon codes for a cart and redeems them inside
// the order transaction.
package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/internal/pricing"
	dbpkg "github.com/angelmondragon/relaymart-backend/pkg/db"
	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
	"github.com/angelmondragon/relaymart-backend/pkg/logger"
)

// Cart is what a coupon is checked against.
type Cart struct {
	UserID      uuid.UUID
	SellerID    uuid.UUID
	ProductIDs  []uuid.UUID
	OrderAmount int64
}

// Validation is a coupon that passed every check and the discount it grants.
type Validation struct {
	Coupon   models.Coupon
	Discount int64
}

// Service validates and redeems coupons.
type Service interface {
	Validate(ctx context.Context, code string, cart Cart) (*Validation, error)
	Redeem(ctx context.Context, tx *gorm.DB, code string, cart Cart, orderID uuid.UUID) (*models.Coupon, error)
	Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

type service struct {
	repo  Repository
	logg  *logger.Logger
	clock func() time.Time
}

// NewService builds the coupon service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo, logg: logg, clock: time.Now}, nil
}

// Validate runs the pricing checks plus the per-user limit and applicability
// filters. It never writes.
func (s *service) Validate(ctx context.Context, code string, cart Cart) (*Validation, error) {
	coupon, err := s.lookup(ctx, s.repo, code)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, s.repo, *coupon, cart); err != nil {
		return nil, err
	}
	return &Validation{Coupon: *coupon, Discount: pricing.CalculateDiscount(*coupon, cart.OrderAmount)}, nil
}

// Redeem claims the coupon for orderID inside tx. The global usage counter
// is incremented conditionally and the per-user slot is claimed through the
// unique redemption index, so concurrent checkouts cannot both pass a limit.
func (s *service) Redeem(ctx context.Context, tx *gorm.DB, code string, cart Cart, orderID uuid.UUID) (*models.Coupon, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	repo := s.repo.WithTx(tx)

	coupon, err := s.lookup(ctx, repo, code)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, repo, *coupon, cart); err != nil {
		return nil, err
	}

	slot, err := s.nextSlot(ctx, repo, *coupon, cart.UserID)
	if err != nil {
		return nil, err
	}

	incremented, err := repo.IncrementUsage(ctx, coupon.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment coupon usage")
	}
	if !incremented {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon usage limit reached").
			WithDetails(map[string]any{"code": coupon.Code, "reason": pricing.CouponExhausted})
	}

	redemption := &models.CouponRedemption{
		CouponID: coupon.ID,
		UserID:   cart.UserID,
		Sequence: slot,
		OrderID:  orderID,
	}
	if err := repo.CreateRedemption(ctx, redemption); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_coupon_redemptions_slot") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "coupon redeemed concurrently").
				WithDetails(map[string]any{"code": coupon.Code, "reason": pricing.CouponUserLimit})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record coupon redemption")
	}

	coupon.UsedCount++
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"coupon_code": coupon.Code,
		"order_id":    orderID.String(),
		"sequence":    slot,
	}), "coupon.redeemed")
	return coupon, nil
}

// Release frees the redemption of a cancelled order. Orders without a coupon
// are a no-op.
func (s *service) Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	repo := s.repo.WithTx(tx)

	redemption, err := repo.FindRedemptionByOrder(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon redemption")
	}
	if redemption == nil {
		return nil
	}
	if err := repo.DeleteRedemption(ctx, redemption.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete coupon redemption")
	}
	if err := repo.DecrementUsage(ctx, redemption.CouponID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement coupon usage")
	}
	return nil
}

func (s *service) lookup(ctx context.Context, repo Repository, code string) (*models.Coupon, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	coupon, err := repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found").
				WithDetails(map[string]any{"code": strings.TrimSpace(code)})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return coupon, nil
}

func (s *service) check(ctx context.Context, repo Repository, coupon models.Coupon, cart Cart) error {
	if err := pricing.ValidateCoupon(coupon, s.clock(), cart.OrderAmount); err != nil {
		return err
	}
	if coupon.PerUserLimit != nil {
		used, err := repo.RedemptionSequences(ctx, coupon.ID, cart.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count coupon redemptions")
		}
		if len(used) >= *coupon.PerUserLimit {
			return pkgerrors.New(pkgerrors.CodeValidation, "coupon already used the maximum number of times").
				WithDetails(map[string]any{"code": coupon.Code, "reason": pricing.CouponUserLimit})
		}
	}
	if !applies(coupon, cart) {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon does not apply to this cart").
			WithDetails(map[string]any{"code": coupon.Code, "reason": pricing.CouponNotApplicable})
	}
	return nil
}

// nextSlot picks the smallest free redemption sequence for the user. Without
// a per-user limit any unused sequence works.
func (s *service) nextSlot(ctx context.Context, repo Repository, coupon models.Coupon, userID uuid.UUID) (int, error) {
	used, err := repo.RedemptionSequences(ctx, coupon.ID, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon redemptions")
	}
	taken := make(map[int]struct{}, len(used))
	for _, seq := range used {
		taken[seq] = struct{}{}
	}
	limit := len(used) + 1
	if coupon.PerUserLimit != nil {
		limit = *coupon.PerUserLimit
	}
	for seq := 1; seq <= limit; seq++ {
		if _, ok := taken[seq]; !ok {
			return seq, nil
		}
	}
	return 0, pkgerrors.New(pkgerrors.CodeValidation, "coupon already used the maximum number of times").
		WithDetails(map[string]any{"code": coupon.Code, "reason": pricing.CouponUserLimit})
}

func applies(coupon models.Coupon, cart Cart) bool {
	if len(coupon.ApplicableSellerIDs) > 0 && !containsID(coupon.ApplicableSellerIDs, cart.SellerID) {
		return false
	}
	if len(coupon.ApplicableProductIDs) == 0 {
		return true
	}
	for _, id := range cart.ProductIDs {
		if containsID(coupon.ApplicableProductIDs, id) {
			return true
		}
	}
	return false
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
