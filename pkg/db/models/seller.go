package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Seller sells products and receives SellerPayouts.
type Seller struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name              string     `gorm:"column:name;not null"`
	PromotorID        *uuid.UUID `gorm:"column:promotor_id;type:uuid;index"`
	State             string     `gorm:"column:state;not null"`
	BankAccountNumber *string    `gorm:"column:bank_account_number"`
	IFSC              *string    `gorm:"column:ifsc"`
	UPIID             *string    `gorm:"column:upi_id"`
	PendingPayout     int64      `gorm:"column:pending_payout_paise;not null;default:0"`
	TotalPayouts      int64      `gorm:"column:total_payouts_paise;not null;default:0"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Seller) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}
