package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
	"github.com/angelmondragon/relaymart-backend/pkg/money"
)

// Member is one payout record grouped into a batch: a seller payout, a
// promotor payout or a driver earning.
type Member struct {
	ID          uuid.UUID  `json:"id"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	AmountPaise int64      `json:"amount_paise"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Ledger is the per-recipient half of the batcher: which rows are owed to a
// recipient and how their balances move when a batch is paid or released.
// Every method runs on the caller's transaction.
type Ledger interface {
	Recipient() enums.RecipientType
	Pending(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID) ([]Member, error)
	Attach(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, memberIDs []uuid.UUID) (int64, error)
	Reserve(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, amount int64) error
	Settle(ctx context.Context, tx *gorm.DB, batch models.PayoutBatch, at time.Time) error
	Release(ctx context.Context, tx *gorm.DB, batch models.PayoutBatch) error
	Members(ctx context.Context, db *gorm.DB, batchID uuid.UUID) ([]Member, error)
}

// tableLedger drives a payout table whose rows carry status and batch_id
// columns and a recipient table with pending and lifetime-paid counters.
type tableLedger struct {
	recipient       enums.RecipientType
	table           string
	recipientColumn string
	amountColumn    string
	pending         string
	processing      string
	paid            string

	recipientTable string
	paidColumn     string
	// reserves moves the batch total out of current_balance_paise at creation
	// so the same money cannot also be withdrawn.
	reserves bool
	// held excludes rows another flow already owns.
	held string
}

// SellerLedger batches seller payouts by their net amount.
func SellerLedger() Ledger {
	return &tableLedger{
		recipient:       enums.RecipientSeller,
		table:           "seller_payouts",
		recipientColumn: "seller_id",
		amountColumn:    "net_amount_paise",
		pending:         string(enums.PayoutStatusPending),
		processing:      string(enums.PayoutStatusProcessing),
		paid:            string(enums.PayoutStatusPaid),
		recipientTable:  "sellers",
		paidColumn:      "total_payouts_paise",
	}
}

// PromotorLedger batches promotor commissions.
func PromotorLedger() Ledger {
	return &tableLedger{
		recipient:       enums.RecipientPromotor,
		table:           "promotor_payouts",
		recipientColumn: "promotor_id",
		amountColumn:    "commission_amount_paise",
		pending:         string(enums.PayoutStatusPending),
		processing:      string(enums.PayoutStatusProcessing),
		paid:            string(enums.PayoutStatusPaid),
		recipientTable:  "promotors",
		paidColumn:      "total_payouts_paise",
	}
}

// DriverLedger batches driver earnings against the driver wallet.
func DriverLedger() Ledger {
	return &tableLedger{
		recipient:       enums.RecipientDriver,
		table:           "driver_earnings",
		recipientColumn: "driver_id",
		amountColumn:    "amount_paise",
		pending:         string(enums.EarningStatusEarned),
		processing:      string(enums.EarningStatusProcessing),
		paid:            string(enums.EarningStatusPaid),
		recipientTable:  "drivers",
		paidColumn:      "total_withdrawn_paise",
		reserves:        true,
		held:            "withdraw_id IS NULL",
	}
}

func (l *tableLedger) Recipient() enums.RecipientType {
	return l.recipient
}

func (l *tableLedger) claimable(db *gorm.DB) *gorm.DB {
	db = db.Where("status = ? AND batch_id IS NULL", l.pending)
	if l.held != "" {
		db = db.Where(l.held)
	}
	return db
}

func (l *tableLedger) selectMembers(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx).
		Table(l.table).
		Select("id, order_id, " + l.amountColumn + " AS amount_paise, status, created_at").
		Order("created_at ASC").
		Order("id ASC")
}

// Pending lists rows owed to the recipient that no batch holds.
func (l *tableLedger) Pending(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID) ([]Member, error) {
	var rows []Member
	err := l.claimable(l.selectMembers(ctx, tx).Where(l.recipientColumn+" = ?", recipientID)).
		Scan(&rows).Error
	return rows, err
}

// Attach claims the members for batchID. Rows claimed by a concurrent batch
// are skipped, so the caller compares the count with what it asked for.
func (l *tableLedger) Attach(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, memberIDs []uuid.UUID) (int64, error) {
	res := l.claimable(tx.WithContext(ctx).Table(l.table).Where("id IN ?", memberIDs)).
		Updates(map[string]any{
			"batch_id":   batchID,
			"status":     l.processing,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (l *tableLedger) Reserve(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, amount int64) error {
	if !l.reserves {
		return nil
	}
	res := tx.WithContext(ctx).
		Table(l.recipientTable).
		Where("id = ? AND current_balance_paise >= ?", recipientID, amount).
		Update("current_balance_paise", gorm.Expr("current_balance_paise - ?", amount))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve payout balance")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "balance no longer covers the pending earnings").
			WithDetails(map[string]any{
				"recipient_id":   recipientID.String(),
				"recipient_type": string(l.recipient),
				"batch_total":    money.Format(amount),
				"batch_paise":    amount,
			})
	}
	return nil
}

// Settle flips the members to paid and moves the batch total from the
// recipient's pending payout (floored at zero) to its lifetime total.
func (l *tableLedger) Settle(ctx context.Context, tx *gorm.DB, batch models.PayoutBatch, at time.Time) error {
	err := tx.WithContext(ctx).
		Table(l.table).
		Where("batch_id = ?", batch.ID).
		Updates(map[string]any{
			"status":     l.paid,
			"paid_at":    at,
			"updated_at": at,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark batch members paid")
	}

	amount := batch.TotalAmountPaise
	res := tx.WithContext(ctx).
		Table(l.recipientTable).
		Where("id = ?", batch.RecipientID).
		Updates(map[string]any{
			"pending_payout_paise": gorm.Expr("CASE WHEN pending_payout_paise >= ? THEN pending_payout_paise - ? ELSE 0 END", amount, amount),
			l.paidColumn:           gorm.Expr(l.paidColumn+" + ?", amount),
			"updated_at":           at,
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "settle recipient balance")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payout recipient not found").
			WithDetails(map[string]any{"recipient_id": batch.RecipientID.String()})
	}
	return nil
}

// Release hands the members back so a later batch can claim them.
func (l *tableLedger) Release(ctx context.Context, tx *gorm.DB, batch models.PayoutBatch) error {
	err := tx.WithContext(ctx).
		Table(l.table).
		Where("batch_id = ?", batch.ID).
		Updates(map[string]any{
			"status":     l.pending,
			"batch_id":   nil,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release batch members")
	}
	if !l.reserves {
		return nil
	}
	err = tx.WithContext(ctx).
		Table(l.recipientTable).
		Where("id = ?", batch.RecipientID).
		Update("current_balance_paise", gorm.Expr("current_balance_paise + ?", batch.TotalAmountPaise)).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore reserved balance")
	}
	return nil
}

func (l *tableLedger) Members(ctx context.Context, db *gorm.DB, batchID uuid.UUID) ([]Member, error) {
	var rows []Member
	err := l.selectMembers(ctx, db).Where("batch_id = ?", batchID).Scan(&rows).Error
	return rows, err
}
