package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/pkg/enums"
)

// DriverEarning credits a driver for a delivery (or a manual bonus). A
// delivery earning is unique per order. A row is either free, held by one
// withdrawal (WithdrawID) or held by one payout batch (BatchID). Rows split to
// cover part of a withdrawal point back at their origin through SplitFromID.
type DriverEarning struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	DriverID    uuid.UUID           `gorm:"column:driver_id;type:uuid;not null;index"`
	OrderID     *uuid.UUID          `gorm:"column:order_id;type:uuid;uniqueIndex:ux_driver_earnings_order_type,priority:1"`
	Type        enums.EarningType   `gorm:"column:type;type:text;not null;uniqueIndex:ux_driver_earnings_order_type,priority:2"`
	AmountPaise int64               `gorm:"column:amount_paise;not null"`
	Status      enums.EarningStatus `gorm:"column:status;type:text;not null;default:'earned';index"`
	BatchID     *uuid.UUID          `gorm:"column:batch_id;type:uuid;index"`
	WithdrawID  *uuid.UUID          `gorm:"column:withdraw_id;type:uuid;index"`
	SplitFromID *uuid.UUID          `gorm:"column:split_from_id;type:uuid"`
	EarnedOn    string              `gorm:"column:earned_on;not null"`
	PaidAt      *time.Time          `gorm:"column:paid_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (e *DriverEarning) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	return nil
}
