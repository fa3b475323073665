package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/pkg/enums"
)

// Withdraw is a driver's request to pull money out of the driver wallet.
type Withdraw struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	DriverID      uuid.UUID            `gorm:"column:driver_id;type:uuid;not null;index"`
	AmountPaise   int64                `gorm:"column:amount_paise;not null"`
	Mode          enums.WithdrawMode   `gorm:"column:mode;type:text;not null"`
	AccountHolder *string              `gorm:"column:account_holder"`
	AccountNumber *string              `gorm:"column:account_number"`
	IFSC          *string              `gorm:"column:ifsc"`
	UPIID         *string              `gorm:"column:upi_id"`
	Status        enums.WithdrawStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	Note          *string              `gorm:"column:note"`
	ProcessedAt   *time.Time           `gorm:"column:processed_at"`
	PaidAt        *time.Time           `gorm:"column:paid_at"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Withdraw) BeforeCreate(*gorm.DB) error {
	assignID(&w.ID)
	return nil
}
