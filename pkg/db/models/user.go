package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a buyer account. Only the wallet is owned by the settlement engine.
type User struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name               string    `gorm:"column:name;not null"`
	Email              string    `gorm:"column:email;not null;uniqueIndex:ux_users_email"`
	Phone              *string   `gorm:"column:phone"`
	WalletBalancePaise int64     `gorm:"column:wallet_balance_paise;not null;default:0"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}
