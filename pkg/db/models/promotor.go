package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/pkg/enums"
)

// Promotor recruits sellers and earns commission on their delivered orders.
// CommissionRate is a percentage for percentage terms and paise per unit for
// fixed terms.
type Promotor struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Name           string               `gorm:"column:name;not null"`
	CommissionType enums.CommissionType `gorm:"column:commission_type;type:text;not null"`
	CommissionRate decimal.Decimal      `gorm:"column:commission_rate;type:numeric(12,4);not null"`
	PendingPayout  int64                `gorm:"column:pending_payout_paise;not null;default:0"`
	TotalPayouts   int64                `gorm:"column:total_payouts_paise;not null;default:0"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Promotor) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
