package drivers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	"github.com/angelmondragon/relaymart-backend/pkg/pagination"
)

// floorSub subtracts the bound amount from column without going below zero.
func floorSub(column string, amount int64) any {
	return gorm.Expr("CASE WHEN "+column+" >= ? THEN "+column+" - ? ELSE 0 END", amount, amount)
}

// Repository persists driver wallets, earnings and withdrawals. Every wallet
// counter changes through SQL-side arithmetic.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindDriver(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	SetAvailability(ctx context.Context, id uuid.UUID, availability enums.DriverAvailability) error
	SwapAvailability(ctx context.Context, id uuid.UUID, from []enums.DriverAvailability, to enums.DriverAvailability) (bool, error)

	CreateEarning(ctx context.Context, earning *models.DriverEarning) error
	CreditEarning(ctx context.Context, driverID uuid.UUID, amount int64, day string) (bool, error)
	ListEarnings(ctx context.Context, filter EarningFilter, params pagination.Params) ([]models.DriverEarning, error)

	ReserveWithdrawal(ctx context.Context, driverID uuid.UUID, amount int64) (bool, error)
	AllocateWithdrawal(ctx context.Context, withdrawID, driverID uuid.UUID, amount int64) (int64, error)
	ResolveWithdrawalEarnings(ctx context.Context, withdrawID uuid.UUID, paid bool, at time.Time) error
	ReleaseWithdrawal(ctx context.Context, driverID uuid.UUID, amount int64) error
	SettleWithdrawal(ctx context.Context, driverID uuid.UUID, amount int64) error
	CreateWithdraw(ctx context.Context, withdraw *models.Withdraw) error
	FindWithdraw(ctx context.Context, id uuid.UUID) (*models.Withdraw, error)
	TransitionWithdraw(ctx context.Context, id uuid.UUID, from enums.WithdrawStatus, updates map[string]any) (bool, error)
	ListWithdrawals(ctx context.Context, filter WithdrawFilter, params pagination.Params) ([]models.Withdraw, error)
}

// EarningFilter narrows earning listings. Zero values match everything.
type EarningFilter struct {
	DriverID *uuid.UUID
	Status   *enums.EarningStatus
	Created  pagination.DateRange
}

// WithdrawFilter narrows withdrawal listings. Zero values match everything.
type WithdrawFilter struct {
	DriverID *uuid.UUID
	Status   *enums.WithdrawStatus
	Created  pagination.DateRange
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a driver repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindDriver(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	var driver models.Driver
	if err := r.db.WithContext(ctx).First(&driver, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *repository) SetAvailability(ctx context.Context, id uuid.UUID, availability enums.DriverAvailability) error {
	res := r.db.WithContext(ctx).
		Model(&models.Driver{}).
		Where("id = ?", id).
		Update("availability", availability)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SwapAvailability moves the driver to availability only while it is still in
// one of from. It reports false when the driver is missing or has moved on.
func (r *repository) SwapAvailability(ctx context.Context, id uuid.UUID, from []enums.DriverAvailability, to enums.DriverAvailability) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Driver{}).
		Where("id = ? AND availability IN ?", id, from).
		Update("availability", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateEarning(ctx context.Context, earning *models.DriverEarning) error {
	return r.db.WithContext(ctx).Create(earning).Error
}

// CreditEarning adds amount to every earning counter. today_earnings restarts
// from amount when the stored day differs from day.
func (r *repository) CreditEarning(ctx context.Context, driverID uuid.UUID, amount int64, day string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Driver{}).
		Where("id = ?", driverID).
		Updates(map[string]any{
			"total_earnings_paise":  gorm.Expr("total_earnings_paise + ?", amount),
			"current_balance_paise": gorm.Expr("current_balance_paise + ?", amount),
			"pending_payout_paise":  gorm.Expr("pending_payout_paise + ?", amount),
			"today_earnings_paise":  gorm.Expr("CASE WHEN today_earnings_on = ? THEN today_earnings_paise + ? ELSE ? END", day, amount, amount),
			"today_earnings_on":     day,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListEarnings(ctx context.Context, filter EarningFilter, params pagination.Params) ([]models.DriverEarning, error) {
	query := r.db.WithContext(ctx).Model(&models.DriverEarning{})
	if filter.DriverID != nil {
		query = query.Where("driver_id = ?", *filter.DriverID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	query = pagination.ApplyDateRange(query, "driver_earnings.created_at", filter.Created)
	query, err := pagination.ApplyCursor(query, "driver_earnings", params)
	if err != nil {
		return nil, err
	}
	var rows []models.DriverEarning
	return rows, query.Find(&rows).Error
}

// ReserveWithdrawal takes amount out of current_balance if the balance still
// covers it. pending_payout keeps counting the money until it is paid.
func (r *repository) ReserveWithdrawal(ctx context.Context, driverID uuid.UUID, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Driver{}).
		Where("id = ? AND current_balance_paise >= ?", driverID, amount).
		Update("current_balance_paise", gorm.Expr("current_balance_paise - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// freeEarnings scopes to earnings no withdrawal or batch holds yet.
func freeEarnings(db *gorm.DB) *gorm.DB {
	return db.Where("status = ? AND batch_id IS NULL AND withdraw_id IS NULL", enums.EarningStatusEarned)
}

// AllocateWithdrawal hands the driver's oldest free earnings to a withdrawal
// until amount is covered. The earning that crosses the line is split: the
// original keeps the remainder and a new row carries the withdrawn part. It
// returns the amount allocated, which is short of amount only when the free
// earnings cannot cover it.
func (r *repository) AllocateWithdrawal(ctx context.Context, withdrawID, driverID uuid.UUID, amount int64) (int64, error) {
	var rows []models.DriverEarning
	err := freeEarnings(r.db.WithContext(ctx).Where("driver_id = ?", driverID)).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return 0, err
	}

	remaining := amount
	for _, row := range rows {
		if remaining == 0 {
			break
		}
		if row.AmountPaise <= remaining {
			res := freeEarnings(r.db.WithContext(ctx).Model(&models.DriverEarning{}).Where("id = ?", row.ID)).
				Updates(map[string]any{
					"withdraw_id": withdrawID,
					"status":      enums.EarningStatusProcessing,
				})
			if res.Error != nil {
				return 0, res.Error
			}
			if res.RowsAffected == 1 {
				remaining -= row.AmountPaise
			}
			continue
		}

		res := freeEarnings(r.db.WithContext(ctx).Model(&models.DriverEarning{}).Where("id = ? AND amount_paise > ?", row.ID, remaining)).
			Update("amount_paise", gorm.Expr("amount_paise - ?", remaining))
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		origin := row.ID
		part := &models.DriverEarning{
			DriverID:    row.DriverID,
			Type:        row.Type,
			AmountPaise: remaining,
			Status:      enums.EarningStatusProcessing,
			WithdrawID:  &withdrawID,
			SplitFromID: &origin,
			EarnedOn:    row.EarnedOn,
		}
		if err := r.db.WithContext(ctx).Create(part).Error; err != nil {
			return 0, err
		}
		remaining = 0
	}
	return amount - remaining, nil
}

// ResolveWithdrawalEarnings closes out the earnings a withdrawal holds: paid
// marks them paid, otherwise they are freed for a later withdrawal or batch.
func (r *repository) ResolveWithdrawalEarnings(ctx context.Context, withdrawID uuid.UUID, paid bool, at time.Time) error {
	query := r.db.WithContext(ctx).Model(&models.DriverEarning{}).Where("withdraw_id = ?", withdrawID)
	if paid {
		return query.Updates(map[string]any{
			"status":  enums.EarningStatusPaid,
			"paid_at": at,
		}).Error
	}
	return query.Updates(map[string]any{
		"status":      enums.EarningStatusEarned,
		"withdraw_id": nil,
	}).Error
}

// ReleaseWithdrawal returns a rejected withdrawal to current_balance.
func (r *repository) ReleaseWithdrawal(ctx context.Context, driverID uuid.UUID, amount int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Driver{}).
		Where("id = ?", driverID).
		Update("current_balance_paise", gorm.Expr("current_balance_paise + ?", amount)).Error
}

// SettleWithdrawal clears a paid withdrawal from pending_payout.
func (r *repository) SettleWithdrawal(ctx context.Context, driverID uuid.UUID, amount int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Driver{}).
		Where("id = ?", driverID).
		Updates(map[string]any{
			"pending_payout_paise":  floorSub("pending_payout_paise", amount),
			"total_withdrawn_paise": gorm.Expr("total_withdrawn_paise + ?", amount),
		}).Error
}

func (r *repository) CreateWithdraw(ctx context.Context, withdraw *models.Withdraw) error {
	return r.db.WithContext(ctx).Create(withdraw).Error
}

func (r *repository) FindWithdraw(ctx context.Context, id uuid.UUID) (*models.Withdraw, error) {
	var withdraw models.Withdraw
	if err := r.db.WithContext(ctx).First(&withdraw, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &withdraw, nil
}

// TransitionWithdraw applies updates only while the row is still in from.
func (r *repository) TransitionWithdraw(ctx context.Context, id uuid.UUID, from enums.WithdrawStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Withdraw{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListWithdrawals(ctx context.Context, filter WithdrawFilter, params pagination.Params) ([]models.Withdraw, error) {
	query := r.db.WithContext(ctx).Model(&models.Withdraw{})
	if filter.DriverID != nil {
		query = query.Where("driver_id = ?", *filter.DriverID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	query = pagination.ApplyDateRange(query, "withdraws.created_at", filter.Created)
	query, err := pagination.ApplyCursor(query, "withdraws", params)
	if err != nil {
		return nil, err
	}
	var rows []models.Withdraw
	return rows, query.Find(&rows).Error
}
