package coupons

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
)

// Repository persists coupons and their per-user redemptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	RedemptionSequences(ctx context.Context, couponID, userID uuid.UUID) ([]int, error)
	IncrementUsage(ctx context.Context, couponID uuid.UUID) (bool, error)
	DecrementUsage(ctx context.Context, couponID uuid.UUID) error
	CreateRedemption(ctx context.Context, redemption *models.CouponRedemption) error
	FindRedemptionByOrder(ctx context.Context, orderID uuid.UUID) (*models.CouponRedemption, error)
	DeleteRedemption(ctx context.Context, id uuid.UUID) error
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a coupon repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByCode matches codes case-insensitively. It returns gorm.ErrRecordNotFound
// when no coupon carries the code.
func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) RedemptionSequences(ctx context.Context, couponID, userID uuid.UUID) ([]int, error) {
	var sequences []int
	err := r.db.WithContext(ctx).
		Model(&models.CouponRedemption{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Order("sequence ASC").
		Pluck("sequence", &sequences).Error
	return sequences, err
}

// IncrementUsage bumps used_count unless the global usage limit is already
// reached. It reports whether the increment happened.
func (r *repository) IncrementUsage(ctx context.Context, couponID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", couponID).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) DecrementUsage(ctx context.Context, couponID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ? AND used_count > 0", couponID).
		Update("used_count", gorm.Expr("used_count - 1")).Error
}

func (r *repository) CreateRedemption(ctx context.Context, redemption *models.CouponRedemption) error {
	return r.db.WithContext(ctx).Create(redemption).Error
}

// FindRedemptionByOrder returns nil without error when the order used no
// coupon.
func (r *repository) FindRedemptionByOrder(ctx context.Context, orderID uuid.UUID) (*models.CouponRedemption, error) {
	var redemption models.CouponRedemption
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&redemption).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &redemption, nil
}

func (r *repository) DeleteRedemption(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.CouponRedemption{}, "id = ?", id).Error
}

// DeactivateExpired switches off active coupons whose validity window ended
// before now and reports how many were touched.
func (r *repository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("is_active = ? AND valid_until < ?", true, now).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}
