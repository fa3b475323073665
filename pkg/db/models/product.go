package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/pkg/enums"
)

// Product is the catalog record read at order creation. The engine never
// writes products outside of tests and seeding.
type Product struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SellerID            uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;index"`
	Name                string          `gorm:"column:name;not null"`
	PricePaise          int64           `gorm:"column:price_paise;not null"`
	GSTRate             decimal.Decimal `gorm:"column:gst_rate;type:numeric(5,2);not null"`
	TaxType             enums.TaxType   `gorm:"column:tax_type;type:text;not null"`
	ServiceablePincodes []string        `gorm:"column:serviceable_pincodes;type:jsonb;serializer:json"`
	IsActive            bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
