package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/relaymart-backend/pkg/logger"
)

type couponExpirer interface {
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// NewCouponExpiryJob switches off coupons whose validity window has closed so
// admin listings reflect what checkout would accept.
func NewCouponExpiryJob(logg *logger.Logger, repo couponExpirer) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &couponExpiryJob{logg: logg, repo: repo, now: time.Now}, nil
}

type couponExpiryJob struct {
	logg *logger.Logger
	repo couponExpirer
	now  func() time.Time
}

func (j *couponExpiryJob) Name() string { return "coupon-expiry" }

func (j *couponExpiryJob) Run(ctx context.Context) error {
	touched, err := j.repo.DeactivateExpired(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate expired coupons: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "coupons_deactivated", touched), "coupon expiry sweep complete")
	return nil
}
