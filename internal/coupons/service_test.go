package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/internal/pricing"
	"github.com/angelmondragon/relaymart-backend/pkg/db"
	"github.com/angelmondragon/relaymart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
)

func intPtr(v int) *int { return &v }

type fixture struct {
	client *db.Client
	conn   *gorm.DB
	svc    Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	svc, err := NewService(NewRepository(conn), nil)
	require.NoError(t, err)
	return fixture{client: client, conn: conn, svc: svc}
}

func (f fixture) coupon(t *testing.T, mutate func(*models.Coupon)) *models.Coupon {
	t.Helper()
	c := &models.Coupon{
		Code:          "WELCOME",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
		ValidFrom:     time.Now().Add(-time.Hour),
		ValidUntil:    time.Now().Add(time.Hour),
		IsActive:      true,
	}
	if mutate != nil {
		mutate(c)
	}
	dbtest.MustCreate(t, f.conn, c)
	return c
}

func (f fixture) redeem(t *testing.T, code string, cart Cart) (*models.Coupon, error) {
	t.Helper()
	var out *models.Coupon
	err := f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		c, err := f.svc.Redeem(context.Background(), tx, code, cart, uuid.New())
		out = c
		return err
	})
	return out, err
}

func TestValidateComputesDiscountCaseInsensitively(t *testing.T) {
	f := newFixture(t)
	f.coupon(t, nil)

	got, err := f.svc.Validate(context.Background(), " welcome ", Cart{UserID: uuid.New(), OrderAmount: 100000})
	require.NoError(t, err)
	require.EqualValues(t, 10000, got.Discount)
}

func TestValidateUnknownCode(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Validate(context.Background(), "NOPE", Cart{OrderAmount: 100})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Validate(context.Background(), "  ", Cart{OrderAmount: 100})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRedeemEnforcesPerUserLimit(t *testing.T) {
	f := newFixture(t)
	f.coupon(t, func(c *models.Coupon) { c.PerUserLimit = intPtr(2) })
	cart := Cart{UserID: uuid.New(), OrderAmount: 50000}

	_, err := f.redeem(t, "WELCOME", cart)
	require.NoError(t, err)
	_, err = f.redeem(t, "WELCOME", cart)
	require.NoError(t, err)

	_, err = f.redeem(t, "WELCOME", cart)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Equal(t, pricing.CouponUserLimit, string(pkgerrors.ReasonOf(err)))

	other := Cart{UserID: uuid.New(), OrderAmount: 50000}
	_, err = f.redeem(t, "WELCOME", other)
	require.NoError(t, err, "limit is per user")
}

func TestRedeemEnforcesGlobalUsageLimit(t *testing.T) {
	f := newFixture(t)
	c := f.coupon(t, func(c *models.Coupon) { c.UsageLimit = intPtr(1) })

	_, err := f.redeem(t, "WELCOME", Cart{UserID: uuid.New(), OrderAmount: 1000})
	require.NoError(t, err)

	_, err = f.redeem(t, "WELCOME", Cart{UserID: uuid.New(), OrderAmount: 1000})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	var stored models.Coupon
	require.NoError(t, f.conn.First(&stored, "id = ?", c.ID).Error)
	require.Equal(t, 1, stored.UsedCount)
}

func TestRedeemRollsBackWithOrder(t *testing.T) {
	f := newFixture(t)
	c := f.coupon(t, nil)

	err := f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if _, err := f.svc.Redeem(context.Background(), tx, "WELCOME", Cart{UserID: uuid.New(), OrderAmount: 1000}, uuid.New()); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet drained")
	})
	require.Error(t, err)

	var stored models.Coupon
	require.NoError(t, f.conn.First(&stored, "id = ?", c.ID).Error)
	require.Zero(t, stored.UsedCount)

	var redemptions int64
	require.NoError(t, f.conn.Model(&models.CouponRedemption{}).Count(&redemptions).Error)
	require.Zero(t, redemptions)
}

func TestReleaseFreesSlot(t *testing.T) {
	f := newFixture(t)
	c := f.coupon(t, func(c *models.Coupon) { c.PerUserLimit = intPtr(1) })
	cart := Cart{UserID: uuid.New(), OrderAmount: 1000}
	orderID := uuid.New()

	require.NoError(t, f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		_, err := f.svc.Redeem(context.Background(), tx, "WELCOME", cart, orderID)
		return err
	}))
	require.NoError(t, f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return f.svc.Release(context.Background(), tx, orderID)
	}))

	var stored models.Coupon
	require.NoError(t, f.conn.First(&stored, "id = ?", c.ID).Error)
	require.Zero(t, stored.UsedCount)

	_, err := f.redeem(t, "WELCOME", cart)
	require.NoError(t, err, "released slot can be reused")

	require.NoError(t, f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return f.svc.Release(context.Background(), tx, uuid.New())
	}), "release without redemption is a no-op")
}

func TestApplicabilityFilters(t *testing.T) {
	f := newFixture(t)
	productID := uuid.New()
	sellerID := uuid.New()
	f.coupon(t, func(c *models.Coupon) {
		c.ApplicableProductIDs = []uuid.UUID{productID}
		c.ApplicableSellerIDs = []uuid.UUID{sellerID}
	})

	_, err := f.svc.Validate(context.Background(), "WELCOME", Cart{SellerID: sellerID, ProductIDs: []uuid.UUID{productID}, OrderAmount: 1000})
	require.NoError(t, err)

	_, err = f.svc.Validate(context.Background(), "WELCOME", Cart{SellerID: sellerID, ProductIDs: []uuid.UUID{uuid.New()}, OrderAmount: 1000})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Validate(context.Background(), "WELCOME", Cart{SellerID: uuid.New(), ProductIDs: []uuid.UUID{productID}, OrderAmount: 1000})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDeactivateExpired(t *testing.T) {
	f := newFixture(t)
	expired := f.coupon(t, func(c *models.Coupon) {
		c.Code = "OLD"
		c.ValidFrom = time.Now().Add(-48 * time.Hour)
		c.ValidUntil = time.Now().Add(-24 * time.Hour)
	})
	live := f.coupon(t, nil)

	touched, err := NewRepository(f.conn).DeactivateExpired(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), touched)

	var reloaded models.Coupon
	require.NoError(t, f.conn.First(&reloaded, "id = ?", expired.ID).Error)
	require.False(t, reloaded.IsActive)
	require.NoError(t, f.conn.First(&reloaded, "id = ?", live.ID).Error)
	require.True(t, reloaded.IsActive)
}
