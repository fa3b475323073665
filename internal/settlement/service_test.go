package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/internal/catalog"
	"github.com/angelmondragon/relaymart-backend/internal/commission"
	"github.com/angelmondragon/relaymart-backend/pkg/db"
	"github.com/angelmondragon/relaymart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
	"github.com/angelmondragon/relaymart-backend/pkg/pagination"
	"github.com/angelmondragon/relaymart-backend/pkg/types"
)

type fixture struct {
	client *db.Client
	conn   *gorm.DB
	svc    Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	svc, err := NewService(NewRepository(conn), catalog.NewRepository(conn), Config{
		Rates: commission.Rates{
			PlatformFee: decimal.NewFromInt(10),
			GST:         decimal.NewFromInt(18),
			TDS:         decimal.NewFromInt(1),
		},
		PlatformState: "KA",
	}, nil)
	require.NoError(t, err)
	return fixture{client: client, conn: conn, svc: svc}
}

func (f fixture) seller(t *testing.T, promotor *models.Promotor) *models.Seller {
	t.Helper()
	s := &models.Seller{Name: "Fresh Mart", State: "KA"}
	if promotor != nil {
		s.PromotorID = &promotor.ID
	}
	dbtest.MustCreate(t, f.conn, s)
	return s
}

func (f fixture) deliveredOrder(t *testing.T, sellerID uuid.UUID, lineTotal int64) *models.Order {
	t.Helper()
	now := time.Now()
	o := &models.Order{
		UserID:              uuid.New(),
		SellerID:            sellerID,
		Status:              enums.OrderStatusDelivered,
		PaymentMethod:       enums.PaymentMethodCOD,
		PaymentStatus:       enums.PaymentStatusPaid,
		SubtotalPaise:       lineTotal,
		FinalAmountPaise:    lineTotal,
		CashOnDeliveryPaise: lineTotal,
		ShippingAddress:     types.Address{Line1: "12 MG Road", City: "Bengaluru", State: "KA", PostalCode: "560001", Country: "IN"},
		SecretCodeHash:      "hash",
		DeliveredAt:         &now,
		PaidAt:              &now,
		Items: []models.OrderItem{{
			ProductID:      uuid.New(),
			ProductName:    "Basmati rice 5kg",
			Quantity:       2,
			UnitPricePaise: lineTotal / 2,
			LineTotalPaise: lineTotal,
			GSTRate:        decimal.NewFromInt(5),
			TaxType:        enums.TaxTypeInclusive,
		}},
	}
	dbtest.MustCreate(t, f.conn, o)
	return o
}

func (f fixture) settle(t *testing.T, order *models.Order) (*Result, error) {
	t.Helper()
	var result *Result
	err := f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		r, err := f.svc.SettleOrder(context.Background(), tx, order)
		result = r
		return err
	})
	return result, err
}

func TestSettleOrderWithPercentagePromotor(t *testing.T) {
	f := newFixture(t)
	promotor := &models.Promotor{Name: "Asha", CommissionType: enums.CommissionTypePercentage, CommissionRate: decimal.NewFromInt(5)}
	dbtest.MustCreate(t, f.conn, promotor)
	seller := f.seller(t, promotor)
	order := f.deliveredOrder(t, seller.ID, 100000)

	result, err := f.settle(t, order)
	require.NoError(t, err)
	require.EqualValues(t, 82935, result.Seller.NetAmountPaise)
	require.NotNil(t, result.Promotor)
	require.EqualValues(t, 5000, result.Promotor.AmountPaise)
	require.NotNil(t, order.SettledAt)

	var stored models.SellerPayout
	require.NoError(t, f.conn.First(&stored, "order_id = ?", order.ID).Error)
	require.NoError(t, commission.Verify(stored))
	require.EqualValues(t, 855, stored.CGSTPaise)
	require.EqualValues(t, 855, stored.SGSTPaise)

	var s models.Seller
	require.NoError(t, f.conn.First(&s, "id = ?", seller.ID).Error)
	require.EqualValues(t, 82935, s.PendingPayout)

	var p models.Promotor
	require.NoError(t, f.conn.First(&p, "id = ?", promotor.ID).Error)
	require.EqualValues(t, 5000, p.PendingPayout)
}

func TestSettleOrderWithoutPromotorLoadsItems(t *testing.T) {
	f := newFixture(t)
	seller := f.seller(t, nil)
	order := f.deliveredOrder(t, seller.ID, 100000)
	order.Items = nil

	result, err := f.settle(t, order)
	require.NoError(t, err)
	require.Nil(t, result.Promotor)
	require.Nil(t, result.Seller.CommissionType)
	// 100000 - 10000 fee = 90000 payable; gst 1800, tds 900.
	require.EqualValues(t, 87300, result.Seller.NetAmountPaise)
}

func TestSettleOrderTwiceFailsClosed(t *testing.T) {
	f := newFixture(t)
	seller := f.seller(t, nil)
	order := f.deliveredOrder(t, seller.ID, 50000)

	_, err := f.settle(t, order)
	require.NoError(t, err)

	again := *order
	again.SettledAt = nil
	_, err = f.settle(t, &again)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	require.Equal(t, pkgerrors.ReasonDuplicatePayout, pkgerrors.ReasonOf(err))

	var count int64
	require.NoError(t, f.conn.Model(&models.SellerPayout{}).Where("order_id = ?", order.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var s models.Seller
	require.NoError(t, f.conn.First(&s, "id = ?", seller.ID).Error)
	require.EqualValues(t, 43650, s.PendingPayout, "pending payout credited once")
}

func TestSettleOrderRejectsUnpaidOrder(t *testing.T) {
	f := newFixture(t)
	seller := f.seller(t, nil)
	order := f.deliveredOrder(t, seller.ID, 50000)
	order.PaymentStatus = enums.PaymentStatusPending

	_, err := f.settle(t, order)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestSettleOrderRejectsNegativeNet(t *testing.T) {
	f := newFixture(t)
	promotor := &models.Promotor{Name: "Greedy", CommissionType: enums.CommissionTypeFixed, CommissionRate: decimal.NewFromInt(60000)}
	dbtest.MustCreate(t, f.conn, promotor)
	seller := f.seller(t, promotor)
	order := f.deliveredOrder(t, seller.ID, 100000)

	_, err := f.settle(t, order)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))

	var count int64
	require.NoError(t, f.conn.Model(&models.SellerPayout{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestListSellerPayoutsFilters(t *testing.T) {
	f := newFixture(t)
	seller := f.seller(t, nil)
	other := f.seller(t, nil)
	for _, sellerID := range []uuid.UUID{seller.ID, seller.ID, other.ID} {
		_, err := f.settle(t, f.deliveredOrder(t, sellerID, 20000))
		require.NoError(t, err)
	}

	page, err := f.svc.ListSellerPayouts(context.Background(), Filter{RecipientID: &seller.ID}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	status := enums.PayoutStatusPaid
	page, err = f.svc.ListSellerPayouts(context.Background(), Filter{Status: &status}, pagination.Params{})
	require.NoError(t, err)
	require.Empty(t, page.Items)

	bogus := enums.PayoutStatus("lost")
	_, err = f.svc.ListSellerPayouts(context.Background(), Filter{Status: &bogus}, pagination.Params{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
