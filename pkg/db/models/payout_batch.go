package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/pkg/enums"
)

// PayoutBatch groups pending payout records of one recipient into a single
// transfer. Driver batches group DriverEarnings, seller and promotor batches
// group SellerPayouts and PromotorPayouts.
type PayoutBatch struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	RecipientType    enums.RecipientType `gorm:"column:recipient_type;type:text;not null;index:ix_payout_batches_recipient,priority:1"`
	RecipientID      uuid.UUID           `gorm:"column:recipient_id;type:uuid;not null;index:ix_payout_batches_recipient,priority:2"`
	TotalAmountPaise int64               `gorm:"column:total_amount_paise;not null"`
	ItemCount        int                 `gorm:"column:item_count;not null"`
	Status           enums.PayoutStatus  `gorm:"column:status;type:text;not null;default:'pending';index"`
	Method           *enums.PayoutMethod `gorm:"column:method;type:text"`
	TransactionID    *string             `gorm:"column:transaction_id"`
	FailureReason    *string             `gorm:"column:failure_reason"`
	PaidAt           *time.Time          `gorm:"column:paid_at"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *PayoutBatch) BeforeCreate(*gorm.DB) error {
	assignID(&b.ID)
	return nil
}
