package drivers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/pkg/db"
	"github.com/angelmondragon/relaymart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
	"github.com/angelmondragon/relaymart-backend/pkg/outbox"
	"github.com/angelmondragon/relaymart-backend/pkg/pagination"
)

type fixture struct {
	client *db.Client
	conn   *gorm.DB
	svc    *service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	built, err := NewService(
		NewRepository(conn),
		client,
		outbox.NewService(outbox.NewRepository(conn), nil),
		Config{DeliveryFeePaise: 4000, MinimumWithdrawalPaise: 10000},
		nil,
		nil,
	)
	require.NoError(t, err)
	svc := built.(*service)
	svc.clock = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, IST) }
	return fixture{client: client, conn: conn, svc: svc}
}

func (f fixture) driver(t *testing.T, mutate func(*models.Driver)) *models.Driver {
	t.Helper()
	d := &models.Driver{Name: "Ravi", Phone: "9000000001", Availability: enums.DriverOnline}
	if mutate != nil {
		mutate(d)
	}
	dbtest.MustCreate(t, f.conn, d)
	return d
}

func (f fixture) reload(t *testing.T, id uuid.UUID) models.Driver {
	t.Helper()
	var d models.Driver
	require.NoError(t, f.conn.First(&d, "id = ?", id).Error)
	return d
}

func (f fixture) deliver(t *testing.T, driverID uuid.UUID) (*models.DriverEarning, error) {
	t.Helper()
	var earning *models.DriverEarning
	err := f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		e, err := f.svc.RecordDeliveryEarning(context.Background(), tx, driverID, uuid.New())
		earning = e
		return err
	})
	return earning, err
}

func TestRecordDeliveryEarningCreditsEveryCounter(t *testing.T) {
	f := newFixture(t)
	d := f.driver(t, func(d *models.Driver) {
		d.TodayEarnings = 12000
		d.TodayEarningOn = "2026-03-01"
	})

	earning, err := f.deliver(t, d.ID)
	require.NoError(t, err)
	require.EqualValues(t, 4000, earning.AmountPaise)
	require.Equal(t, enums.EarningStatusEarned, earning.Status)
	require.Equal(t, "2026-03-02", earning.EarnedOn)

	_, err = f.deliver(t, d.ID)
	require.NoError(t, err)

	got := f.reload(t, d.ID)
	require.EqualValues(t, 8000, got.TotalEarnings)
	require.EqualValues(t, 8000, got.CurrentBalance)
	require.EqualValues(t, 8000, got.PendingPayout)
	require.EqualValues(t, 8000, got.TodayEarnings, "previous day is discarded")
	require.Equal(t, "2026-03-02", got.TodayEarningOn)
}

func TestRecordDeliveryEarningOncePerOrder(t *testing.T) {
	f := newFixture(t)
	d := f.driver(t, nil)
	orderID := uuid.New()

	record := func() error {
		return f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
			_, err := f.svc.RecordDeliveryEarning(context.Background(), tx, d.ID, orderID)
			return err
		})
	}
	require.NoError(t, record())
	err := record()
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	require.Equal(t, pkgerrors.ReasonDuplicatePayout, pkgerrors.ReasonOf(err))

	require.EqualValues(t, 4000, f.reload(t, d.ID).TotalEarnings)
}

func TestRecordDeliveryEarningUnknownDriverRollsBack(t *testing.T) {
	f := newFixture(t)
	_, err := f.deliver(t, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	var count int64
	require.NoError(t, f.conn.Model(&models.DriverEarning{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestWalletHidesStaleTodayEarnings(t *testing.T) {
	f := newFixture(t)
	d := f.driver(t, func(d *models.Driver) {
		d.TotalEarnings = 50000
		d.CurrentBalance = 30000
		d.TodayEarnings = 8000
		d.TodayEarningOn = "2026-02-27"
	})

	wallet, err := f.svc.Wallet(context.Background(), d.ID)
	require.NoError(t, err)
	require.EqualValues(t, 30000, wallet.CurrentBalance)
	require.Zero(t, wallet.TodayEarnings)
}

func bankRequest(driverID uuid.UUID, amount int64) WithdrawRequest {
	return WithdrawRequest{
		DriverID:      driverID,
		AmountPaise:   amount,
		Mode:          enums.WithdrawModeBank,
		AccountHolder: "Ravi Kumar",
		AccountNumber: "123456789012",
		IFSC:          "hdfc0001234",
	}
}

func TestRequestWithdrawValidation(t *testing.T) {
	f := newFixture(t)
	d := f.driver(t, func(d *models.Driver) {
		d.TotalEarnings = 50000
		d.CurrentBalance = 20000
	})

	cases := []struct {
		name string
		req  WithdrawRequest
		code pkgerrors.Code
	}{
		{"below minimum", bankRequest(d.ID, 9999), pkgerrors.CodeValidation},
		{"short account", func() WithdrawRequest { r := bankRequest(d.ID, 10000); r.AccountNumber = "12345"; return r }(), pkgerrors.CodeValidation},
		{"bad ifsc", func() WithdrawRequest { r := bankRequest(d.ID, 10000); r.IFSC = "HDFC1234567"; return r }(), pkgerrors.CodeValidation},
		{"upi without at", WithdrawRequest{DriverID: d.ID, AmountPaise: 10000, Mode: enums.WithdrawModeUPI, UPIID: "ravi.okbank"}, pkgerrors.CodeValidation},
		{"unknown mode", WithdrawRequest{DriverID: d.ID, AmountPaise: 10000, Mode: "cash"}, pkgerrors.CodeValidation},
		{"above balance", bankRequest(d.ID, 20001), pkgerrors.CodeInsufficientFunds},
		{"unknown driver", bankRequest(uuid.New(), 10000), pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.RequestWithdraw(context.Background(), tc.req)
			require.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
		})
	}

	got := f.reload(t, d.ID)
	require.EqualValues(t, 20000, got.CurrentBalance)
	require.Zero(t, got.PendingPayout)
}

func TestRequestWithdrawRequiresLifetimeEarnings(t *testing.T) {
	f := newFixture(t)
	d := f.driver(t, func(d *models.Driver) {
		d.TotalEarnings = 9000
		d.CurrentBalance = 15000
	})
	_, err := f.svc.RequestWithdraw(context.Background(), bankRequest(d.ID, 10000))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestWithdrawLifecycle(t *testing.T) {
	f := newFixture(t)
	d := f.driver(t, func(d *models.Driver) {
		d.TotalEarnings = 50000
		d.CurrentBalance = 30000
		d.PendingPayout = 30000
		d.TotalWithdrawn = 20000
	})

	w, err := f.svc.RequestWithdraw(context.Background(), WithdrawRequest{
		DriverID: d.ID, AmountPaise: 12000, Mode: enums.WithdrawModeUPI, UPIID: "ravi@okbank",
	})
	require.NoError(t, err)
	require.Equal(t, enums.WithdrawStatusPending, w.Status)

	got := f.reload(t, d.ID)
	require.EqualValues(t, 18000, got.CurrentBalance)
	require.EqualValues(t, 30000, got.PendingPayout, "still owed until paid")

	_, err = f.svc.UpdateWithdrawStatus(context.Background(), WithdrawDecision{WithdrawID: w.ID, Status: enums.WithdrawStatusPaid})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "pending cannot jump to paid")
	require.Equal(t, pkgerrors.ReasonInvalidTransition, pkgerrors.ReasonOf(err))

	w, err = f.svc.UpdateWithdrawStatus(context.Background(), WithdrawDecision{WithdrawID: w.ID, Status: enums.WithdrawStatusApproved, Note: "ok"})
	require.NoError(t, err)
	require.NotNil(t, w.ProcessedAt)

	w, err = f.svc.UpdateWithdrawStatus(context.Background(), WithdrawDecision{WithdrawID: w.ID, Status: enums.WithdrawStatusPaid})
	require.NoError(t, err)
	require.NotNil(t, w.PaidAt)

	got = f.reload(t, d.ID)
	require.EqualValues(t, 18000, got.CurrentBalance)
	require.EqualValues(t, 18000, got.PendingPayout)
	require.EqualValues(t, 32000, got.TotalWithdrawn)
	require.Equal(t, got.TotalEarnings, got.PendingPayout+got.TotalWithdrawn)

	_, err = f.svc.UpdateWithdrawStatus(context.Background(), WithdrawDecision{WithdrawID: w.ID, Status: enums.WithdrawStatusRejected})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "paid is terminal")

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", w.ID).Count(&events).Error)
	require.EqualValues(t, 3, events)
}

func TestWithdrawPaidFloorsPendingPayout(t *testing.T) {
	f := newFixture(t)
	d := f.driver(t, func(d *models.Driver) {
		d.TotalEarnings = 50000
		d.CurrentBalance = 30000
	})
	w, err := f.svc.RequestWithdraw(context.Background(), bankRequest(d.ID, 10000))
	require.NoError(t, err)
	require.NoError(t, f.conn.Model(&models.Driver{}).Where("id = ?", d.ID).Update("pending_payout_paise", 4000).Error)

	_, err = f.svc.UpdateWithdrawStatus(context.Background(), WithdrawDecision{WithdrawID: w.ID, Status: enums.WithdrawStatusApproved})
	require.NoError(t, err)
	_, err = f.svc.UpdateWithdrawStatus(context.Background(), WithdrawDecision{WithdrawID: w.ID, Status: enums.WithdrawStatusPaid})
	require.NoError(t, err)

	require.Zero(t, f.reload(t, d.ID).PendingPayout)
}

func TestRejectedWithdrawReturnsReservation(t *testing.T) {
	f := newFixture(t)
	d := f.driver(t, func(d *models.Driver) {
		d.TotalEarnings = 50000
		d.CurrentBalance = 30000
	})
	w, err := f.svc.RequestWithdraw(context.Background(), bankRequest(d.ID, 10000))
	require.NoError(t, err)

	_, err = f.svc.UpdateWithdrawStatus(context.Background(), WithdrawDecision{WithdrawID: w.ID, Status: enums.WithdrawStatusRejected, Note: "bank details mismatch"})
	require.NoError(t, err)

	got := f.reload(t, d.ID)
	require.EqualValues(t, 30000, got.CurrentBalance)
	require.Zero(t, got.PendingPayout)
}

func TestSetAvailability(t *testing.T) {
	f := newFixture(t)
	d := f.driver(t, nil)

	require.NoError(t, f.svc.SetAvailability(context.Background(), d.ID, enums.DriverOffline))
	require.Equal(t, enums.DriverOffline, f.reload(t, d.ID).Availability)

	err := f.svc.SetAvailability(context.Background(), d.ID, enums.DriverOnDelivery)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	busy := f.driver(t, func(d *models.Driver) { d.Availability = enums.DriverOnDelivery })
	err = f.svc.SetAvailability(context.Background(), busy.ID, enums.DriverOffline)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	swapped, err := f.svc.repo.SwapAvailability(context.Background(), busy.ID, []enums.DriverAvailability{enums.DriverOnline, enums.DriverOffline}, enums.DriverOffline)
	require.NoError(t, err)
	require.False(t, swapped, "a driver on a delivery is never flipped")
	require.Equal(t, enums.DriverOnDelivery, f.reload(t, busy.ID).Availability)
}

func (f fixture) earnings(t *testing.T, driverID uuid.UUID) []models.DriverEarning {
	t.Helper()
	var rows []models.DriverEarning
	require.NoError(t, f.conn.Where("driver_id = ?", driverID).Order("created_at ASC").Find(&rows).Error)
	return rows
}

func sumEarnings(rows []models.DriverEarning, keep func(models.DriverEarning) bool) int64 {
	var total int64
	for _, r := range rows {
		if keep(r) {
			total += r.AmountPaise
		}
	}
	return total
}

func isFree(e models.DriverEarning) bool {
	return e.Status == enums.EarningStatusEarned && e.WithdrawID == nil && e.BatchID == nil
}

func TestWithdrawHoldsTheEarningsItDrawsFrom(t *testing.T) {
	f := newFixture(t)
	d := f.driver(t, nil)
	for i := 0; i < 3; i++ {
		_, err := f.deliver(t, d.ID)
		require.NoError(t, err)
	}

	w, err := f.svc.RequestWithdraw(context.Background(), bankRequest(d.ID, 10000))
	require.NoError(t, err)

	rows := f.earnings(t, d.ID)
	require.Len(t, rows, 4, "the crossing earning is split")
	held := func(e models.DriverEarning) bool { return e.WithdrawID != nil && *e.WithdrawID == w.ID }
	require.EqualValues(t, 10000, sumEarnings(rows, held))
	require.EqualValues(t, 2000, sumEarnings(rows, isFree))
	require.EqualValues(t, 12000, sumEarnings(rows, func(models.DriverEarning) bool { return true }))

	var splits int
	for _, r := range rows {
		if held(r) {
			require.Equal(t, enums.EarningStatusProcessing, r.Status)
		}
		if r.SplitFromID != nil {
			splits++
			require.Nil(t, r.OrderID)
		}
	}
	require.Equal(t, 1, splits)
	require.EqualValues(t, 2000, f.reload(t, d.ID).CurrentBalance)

	_, err = f.svc.UpdateWithdrawStatus(context.Background(), WithdrawDecision{WithdrawID: w.ID, Status: enums.WithdrawStatusApproved})
	require.NoError(t, err)
	_, err = f.svc.UpdateWithdrawStatus(context.Background(), WithdrawDecision{WithdrawID: w.ID, Status: enums.WithdrawStatusPaid})
	require.NoError(t, err)

	rows = f.earnings(t, d.ID)
	for _, r := range rows {
		if held(r) {
			require.Equal(t, enums.EarningStatusPaid, r.Status)
			require.NotNil(t, r.PaidAt)
		}
	}
	require.EqualValues(t, 2000, sumEarnings(rows, isFree))

	got := f.reload(t, d.ID)
	require.EqualValues(t, 2000, got.CurrentBalance)
	require.EqualValues(t, 2000, got.PendingPayout)
	require.EqualValues(t, 10000, got.TotalWithdrawn)
	require.EqualValues(t, 12000, got.TotalEarnings)
}

func TestRejectedWithdrawFreesItsEarnings(t *testing.T) {
	f := newFixture(t)
	d := f.driver(t, nil)
	for i := 0; i < 3; i++ {
		_, err := f.deliver(t, d.ID)
		require.NoError(t, err)
	}
	w, err := f.svc.RequestWithdraw(context.Background(), bankRequest(d.ID, 12000))
	require.NoError(t, err)
	require.Zero(t, sumEarnings(f.earnings(t, d.ID), isFree))

	_, err = f.svc.UpdateWithdrawStatus(context.Background(), WithdrawDecision{WithdrawID: w.ID, Status: enums.WithdrawStatusRejected})
	require.NoError(t, err)

	rows := f.earnings(t, d.ID)
	require.Len(t, rows, 3, "an exact cover splits nothing")
	require.EqualValues(t, 12000, sumEarnings(rows, isFree))

	got := f.reload(t, d.ID)
	require.EqualValues(t, 12000, got.CurrentBalance)
	require.EqualValues(t, 12000, got.PendingPayout)
}

func TestListWithdrawalsPaginates(t *testing.T) {
	f := newFixture(t)
	d := f.driver(t, func(d *models.Driver) {
		d.TotalEarnings = 100000
		d.CurrentBalance = 100000
	})
	for i := 0; i < 3; i++ {
		_, err := f.svc.RequestWithdraw(context.Background(), bankRequest(d.ID, 10000))
		require.NoError(t, err)
	}

	page, err := f.svc.ListWithdrawals(context.Background(), WithdrawFilter{DriverID: &d.ID}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := f.svc.ListWithdrawals(context.Background(), WithdrawFilter{DriverID: &d.ID}, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	require.Empty(t, rest.NextCursor)

	_, err = f.svc.ListWithdrawals(context.Background(), WithdrawFilter{}, pagination.Params{Cursor: "%%%"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
