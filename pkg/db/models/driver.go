package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/pkg/enums"
)

// Driver carries the dispatch state and the driver wallet counters. Every
// counter is mutated with SQL-side increments only.
type Driver struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	Name           string                   `gorm:"column:name;not null"`
	Phone          string                   `gorm:"column:phone;not null"`
	Availability   enums.DriverAvailability `gorm:"column:availability;type:text;not null;default:'offline'"`
	TotalEarnings  int64                    `gorm:"column:total_earnings_paise;not null;default:0"`
	CurrentBalance int64                    `gorm:"column:current_balance_paise;not null;default:0"`
	PendingPayout  int64                    `gorm:"column:pending_payout_paise;not null;default:0"`
	TodayEarnings  int64                    `gorm:"column:today_earnings_paise;not null;default:0"`
	TodayEarningOn string                   `gorm:"column:today_earnings_on;not null;default:''"`
	TotalWithdrawn int64                    `gorm:"column:total_withdrawn_paise;not null;default:0"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *Driver) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}
