package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	"github.com/angelmondragon/relaymart-backend/pkg/pagination"
)

// Repository writes the per-order payout rows and credits recipient
// balances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	OrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	CreateSellerPayout(ctx context.Context, payout *models.SellerPayout) error
	CreatePromotorPayout(ctx context.Context, payout *models.PromotorPayout) error
	CreditSellerPending(ctx context.Context, sellerID uuid.UUID, amount int64) error
	CreditPromotorPending(ctx context.Context, promotorID uuid.UUID, amount int64) error
	MarkOrderSettled(ctx context.Context, orderID uuid.UUID, at time.Time) error
	ListSellerPayouts(ctx context.Context, filter Filter, params pagination.Params) ([]models.SellerPayout, error)
	ListPromotorPayouts(ctx context.Context, filter Filter, params pagination.Params) ([]models.PromotorPayout, error)
}

// Filter narrows payout listings. RecipientID is the seller id for seller
// payouts and the promotor id for promotor payouts.
type Filter struct {
	RecipientID *uuid.UUID
	OrderID     *uuid.UUID
	Status      *enums.PayoutStatus
	Created     pagination.DateRange
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settlement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) OrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) CreateSellerPayout(ctx context.Context, payout *models.SellerPayout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) CreatePromotorPayout(ctx context.Context, payout *models.PromotorPayout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) CreditSellerPending(ctx context.Context, sellerID uuid.UUID, amount int64) error {
	return r.credit(ctx, &models.Seller{}, sellerID, amount)
}

func (r *repository) CreditPromotorPending(ctx context.Context, promotorID uuid.UUID, amount int64) error {
	return r.credit(ctx, &models.Promotor{}, promotorID, amount)
}

func (r *repository) credit(ctx context.Context, model any, id uuid.UUID, amount int64) error {
	res := r.db.WithContext(ctx).
		Model(model).
		Where("id = ?", id).
		Update("pending_payout_paise", gorm.Expr("pending_payout_paise + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) MarkOrderSettled(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("settled_at", at).Error
}

func (r *repository) ListSellerPayouts(ctx context.Context, filter Filter, params pagination.Params) ([]models.SellerPayout, error) {
	query := applyFilter(r.db.WithContext(ctx).Model(&models.SellerPayout{}), "seller_payouts", "seller_id", filter)
	query, err := pagination.ApplyCursor(query, "seller_payouts", params)
	if err != nil {
		return nil, err
	}
	var rows []models.SellerPayout
	return rows, query.Find(&rows).Error
}

func (r *repository) ListPromotorPayouts(ctx context.Context, filter Filter, params pagination.Params) ([]models.PromotorPayout, error) {
	query := applyFilter(r.db.WithContext(ctx).Model(&models.PromotorPayout{}), "promotor_payouts", "promotor_id", filter)
	query, err := pagination.ApplyCursor(query, "promotor_payouts", params)
	if err != nil {
		return nil, err
	}
	var rows []models.PromotorPayout
	return rows, query.Find(&rows).Error
}

func applyFilter(query *gorm.DB, table, recipientColumn string, filter Filter) *gorm.DB {
	if filter.RecipientID != nil {
		query = query.Where(table+"."+recipientColumn+" = ?", *filter.RecipientID)
	}
	if filter.OrderID != nil {
		query = query.Where(table+".order_id = ?", *filter.OrderID)
	}
	if filter.Status != nil {
		query = query.Where(table+".status = ?", *filter.Status)
	}
	return pagination.ApplyDateRange(query, table+".created_at", filter.Created)
}
