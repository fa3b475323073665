package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	"github.com/angelmondragon/relaymart-backend/pkg/pagination"
)

// Repository persists payout batches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	DB() *gorm.DB
	Create(ctx context.Context, batch *models.PayoutBatch) error
	Find(ctx context.Context, id uuid.UUID) (*models.PayoutBatch, error)
	Transition(ctx context.Context, id uuid.UUID, from enums.PayoutStatus, updates map[string]any) (bool, error)
	List(ctx context.Context, filter Filter, params pagination.Params) ([]models.PayoutBatch, error)
}

// Filter narrows batch listings. Zero values match everything.
type Filter struct {
	RecipientType *enums.RecipientType
	RecipientID   *uuid.UUID
	Status        *enums.PayoutStatus
	Created       pagination.DateRange
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payout batch repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) DB() *gorm.DB {
	return r.db
}

func (r *repository) Create(ctx context.Context, batch *models.PayoutBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.PayoutBatch, error) {
	var batch models.PayoutBatch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

// Transition applies updates only while the batch is still in from.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from enums.PayoutStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PayoutBatch{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, filter Filter, params pagination.Params) ([]models.PayoutBatch, error) {
	query := r.db.WithContext(ctx).Model(&models.PayoutBatch{})
	if filter.RecipientType != nil {
		query = query.Where("recipient_type = ?", *filter.RecipientType)
	}
	if filter.RecipientID != nil {
		query = query.Where("recipient_id = ?", *filter.RecipientID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	query = pagination.ApplyDateRange(query, "payout_batches.created_at", filter.Created)
	query, err := pagination.ApplyCursor(query, "payout_batches", params)
	if err != nil {
		return nil, err
	}
	var rows []models.PayoutBatch
	return rows, query.Find(&rows).Error
}
