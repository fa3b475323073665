package orders

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	"github.com/angelmondragon/relaymart-backend/pkg/pagination"
	"github.com/angelmondragon/relaymart-backend/pkg/types"
)

// CreateItem is one requested line with the caller's price snapshot.
type CreateItem struct {
	ProductID      uuid.UUID
	Quantity       int
	UnitPricePaise int64
}

// CreateInput is a checkout request. CouponCode is optional; the discount is
// computed from the coupon at redemption time.
type CreateInput struct {
	UserID          uuid.UUID
	Items           []CreateItem
	ShippingAddress types.Address
	PaymentMethod   enums.PaymentMethod
	UseWallet       bool
	CouponCode      *string
}

// CreateResult carries the order and the plaintext delivery code. The code
// is never stored or returned again.
type CreateResult struct {
	Order      *models.Order
	SecretCode string
}

// Actor is whoever asks for a lifecycle change.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// DeliveryInput is the driver confirming a delivery. PaidAmountPaise is the
// cash the driver reports collecting on COD orders.
type DeliveryInput struct {
	OrderID         uuid.UUID
	DriverID        uuid.UUID
	PaidAmountPaise *int64
}

// CancelInput is an admin cancelling an order.
type CancelInput struct {
	OrderID uuid.UUID
	Actor   Actor
	Reason  string
}

// Filter narrows order listings. Zero values match everything.
type Filter struct {
	UserID        *uuid.UUID
	SellerID      *uuid.UUID
	DriverID      *uuid.UUID
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	Created       pagination.DateRange
}

// NonServiceableItem names a product that cannot be delivered to the
// requested postal code and why.
type NonServiceableItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Reason    string    `json:"reason"`
}

const (
	reasonNotServed     = "postal_code_not_served"
	reasonNoServiceArea = "no_serviceable_postal_codes"
)
