package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/internal/coupons"
	"github.com/angelmondragon/relaymart-backend/internal/settlement"
	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	"github.com/angelmondragon/relaymart-backend/pkg/outbox"
	"github.com/angelmondragon/relaymart-backend/pkg/pagination"
)

// Repository persists orders. Status changes go through conditional updates
// that re-check the expected state at write time.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	Find(ctx context.Context, id uuid.UUID) (*models.Order, error)
	AssignDriver(ctx context.Context, id, driverID uuid.UUID, at time.Time) (bool, error)
	Transition(ctx context.Context, id uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error)
	MarkCodeVerified(ctx context.Context, id uuid.UUID) error
	MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	List(ctx context.Context, filter Filter, params pagination.Params) ([]models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CouponRedeemer claims and releases coupons inside the order transaction.
type CouponRedeemer interface {
	Redeem(ctx context.Context, tx *gorm.DB, code string, cart coupons.Cart, orderID uuid.UUID) (*models.Coupon, error)
	Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

// EarningsRecorder credits the driver for a delivery.
type EarningsRecorder interface {
	RecordDeliveryEarning(ctx context.Context, tx *gorm.DB, driverID, orderID uuid.UUID) (*models.DriverEarning, error)
}

// Settler creates the seller and promotor payouts of a delivered, paid order.
type Settler interface {
	SettleOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*settlement.Result, error)
}
