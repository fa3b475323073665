// Package orders is the order ledger: checkout with an atomic wallet debit
// and the delivery lifecycle that triggers driver earnings and settlement.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/internal/catalog"
	"github.com/angelmondragon/relaymart-backend/internal/coupons"
	"github.com/angelmondragon/relaymart-backend/internal/drivers"
	"github.com/angelmondragon/relaymart-backend/internal/pricing"
	"github.com/angelmondragon/relaymart-backend/internal/tax"
	"github.com/angelmondragon/relaymart-backend/internal/wallets"
	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
	"github.com/angelmondragon/relaymart-backend/pkg/logger"
	"github.com/angelmondragon/relaymart-backend/pkg/metrics"
	"github.com/angelmondragon/relaymart-backend/pkg/outbox"
	"github.com/angelmondragon/relaymart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/relaymart-backend/pkg/pagination"
	"github.com/angelmondragon/relaymart-backend/pkg/security"
	"github.com/angelmondragon/relaymart-backend/pkg/types"
)

const secretCodeDigits = 6

// Service exposes checkout and the order lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
	Accept(ctx context.Context, orderID, driverID uuid.UUID) (*models.Order, error)
	PickUp(ctx context.Context, orderID, driverID uuid.UUID) (*models.Order, error)
	VerifySecretCode(ctx context.Context, orderID, driverID uuid.UUID, code string) (*models.Order, error)
	ConfirmDelivery(ctx context.Context, input DeliveryInput) (*models.Order, error)
	RecordPayment(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter Filter, params pagination.Params) (*types.ListPage[models.Order], error)
}

// Deps groups the collaborators of the order service.
type Deps struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Catalog  catalog.Repository
	Wallets  wallets.Repository
	Coupons  CouponRedeemer
	Drivers  drivers.Repository
	Earnings EarningsRecorder
	Settler  Settler
	Logger   *logger.Logger
	Metrics  *metrics.Settlement
}

type service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxPublisher
	catalog    catalog.Repository
	wallets    wallets.Repository
	coupons    CouponRedeemer
	drivers    drivers.Repository
	earnings   EarningsRecorder
	settler    Settler
	logg       *logger.Logger
	metrics    *metrics.Settlement
	clock      func() time.Time
	codeParams security.ArgonParams
}

// NewService builds the order service.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case deps.Catalog == nil:
		return nil, fmt.Errorf("catalog repository required")
	case deps.Wallets == nil:
		return nil, fmt.Errorf("wallets repository required")
	case deps.Coupons == nil:
		return nil, fmt.Errorf("coupon redeemer required")
	case deps.Drivers == nil:
		return nil, fmt.Errorf("drivers repository required")
	case deps.Earnings == nil:
		return nil, fmt.Errorf("earnings recorder required")
	case deps.Settler == nil:
		return nil, fmt.Errorf("settler required")
	}
	return &service{
		repo:       deps.Repo,
		tx:         deps.Tx,
		outbox:     deps.Outbox,
		catalog:    deps.Catalog,
		wallets:    deps.Wallets,
		coupons:    deps.Coupons,
		drivers:    deps.Drivers,
		earnings:   deps.Earnings,
		settler:    deps.Settler,
		logg:       deps.Logger,
		metrics:    deps.Metrics,
		clock:      time.Now,
		codeParams: security.DefaultCodeParams,
	}, nil
}

// Create validates the cart, checks serviceability for every line and then,
// in one transaction, redeems the coupon, debits the wallet, stores the order
// and emits the pending status event.
func (s *service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	address := input.ShippingAddress.WithDefaults()

	lines := make([]pricing.Line, 0, len(input.Items))
	productIDs := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		lines = append(lines, pricing.Line{UnitPrice: item.UnitPricePaise, Quantity: item.Quantity})
		productIDs = append(productIDs, item.ProductID)
	}
	subtotal, err := pricing.Subtotal(lines)
	if err != nil {
		return nil, err
	}

	products, err := s.catalog.FindProducts(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	if missing := missingProducts(productIDs, products); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "products not found").
			WithDetails(map[string]any{"product_ids": missing})
	}
	sellerID, err := singleSeller(input.Items, products)
	if err != nil {
		return nil, err
	}
	if err := checkServiceable(address, input.Items, products); err != nil {
		return nil, err
	}

	seller, err := s.catalog.FindSeller(ctx, sellerID)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found").
				WithDetails(map[string]any{"seller_id": sellerID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}

	order := &models.Order{
		ID:              uuid.New(),
		UserID:          input.UserID,
		SellerID:        sellerID,
		Status:          enums.OrderStatusPending,
		PaymentMethod:   input.PaymentMethod,
		ShippingAddress: address,
		Items:           make([]models.OrderItem, 0, len(input.Items)),
	}
	for _, item := range input.Items {
		line, err := snapshotLine(item, products[item.ProductID], seller.State, address.State)
		if err != nil {
			return nil, err
		}
		order.TaxablePaise += line.TaxablePaise
		order.GSTPaise += line.GSTPaise
		order.Items = append(order.Items, line)
	}

	code, err := security.GenerateCode(secretCodeDigits)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate secret code")
	}
	hash, err := security.HashCode(code, s.codeParams)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash secret code")
	}
	order.SecretCodeHash = hash

	now := s.clock()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		walletRepo := s.wallets.WithTx(tx)
		balance, err := walletRepo.Balance(ctx, input.UserID)
		if err != nil {
			return err
		}

		var discount int64
		if input.CouponCode != nil && strings.TrimSpace(*input.CouponCode) != "" {
			coupon, err := s.coupons.Redeem(ctx, tx, *input.CouponCode, coupons.Cart{
				UserID:      input.UserID,
				SellerID:    sellerID,
				ProductIDs:  productIDs,
				OrderAmount: subtotal,
			}, order.ID)
			if err != nil {
				return err
			}
			discount = pricing.CalculateDiscount(*coupon, subtotal)
			order.CouponCode = &coupon.Code
		}

		quote := pricing.Price(pricing.QuoteInput{
			Subtotal:       subtotal,
			CouponDiscount: discount,
			UseWallet:      input.UseWallet,
			WalletBalance:  balance,
		})
		order.SubtotalPaise = quote.Subtotal
		order.DiscountPaise = quote.Discount
		order.FinalAmountPaise = quote.Final
		order.WalletDeductionPaise = quote.WalletDeduction
		order.CashOnDeliveryPaise = quote.CashOnDelivery
		order.PaymentStatus = quote.PaymentStatus
		if quote.PaymentStatus == enums.PaymentStatusPaid {
			order.PaidAt = &now
		}

		if err := walletRepo.Debit(ctx, input.UserID, quote.WalletDeduction); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}
		return s.emitStatus(ctx, tx, order, nil)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderCreated(string(order.PaymentMethod))
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"user_id":                order.UserID.String(),
		"seller_id":              order.SellerID.String(),
		"final_amount_paise":     order.FinalAmountPaise,
		"wallet_deduction_paise": order.WalletDeductionPaise,
		"payment_status":         string(order.PaymentStatus),
	}), "order.created")
	return &CreateResult{Order: order, SecretCode: code}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.loadOrder(ctx, s.repo, orderID)
}

func (s *service) List(ctx context.Context, filter Filter, params pagination.Params) (*types.ListPage[models.Order], error) {
	if err := filter.Created.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date range")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	items, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &types.ListPage[models.Order]{Items: items, NextCursor: next}, nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
				WithDetails(map[string]any{"order_id": id.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) emitStatus(ctx context.Context, tx *gorm.DB, order *models.Order, actor *outbox.ActorRef) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderStatusChangedEvent{
			OrderID: order.ID,
			Status:  order.Status,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order event")
	}
	return nil
}

func validateCreate(input CreateInput) error {
	if input.UserID == uuid.Nil {
		return detailError("user_id", "user id required")
	}
	if len(input.Items) == 0 {
		return detailError("items", "order must contain at least one item")
	}
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required").
				WithDetails(map[string]any{"field": "items", "line": i})
		}
	}
	if input.ShippingAddress.NormalizedPostalCode() == "" {
		return detailError("shipping_address.postal_code", "shipping address must carry a postal code")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method must be cod or online").
			WithDetails(map[string]any{"field": "payment_method", "payment_method": string(input.PaymentMethod)})
	}
	return nil
}

func missingProducts(ids []uuid.UUID, found map[uuid.UUID]models.Product) []string {
	var missing []string
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := found[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		missing = append(missing, id.String())
	}
	return missing
}

func singleSeller(items []CreateItem, products map[uuid.UUID]models.Product) (uuid.UUID, error) {
	sellerID := products[items[0].ProductID].SellerID
	for _, item := range items[1:] {
		if other := products[item.ProductID].SellerID; other != sellerID {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "all items must belong to one seller").
				WithDetails(map[string]any{
					"field":      "items",
					"seller_ids": []string{sellerID.String(), other.String()},
				})
		}
	}
	return sellerID, nil
}

// checkServiceable rejects the whole order when any product does not list
// the shipping postal code. A product without a serviceable list is not
// serviceable anywhere.
func checkServiceable(address types.Address, items []CreateItem, products map[uuid.UUID]models.Product) error {
	postal := address.NormalizedPostalCode()
	var failing []NonServiceableItem
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.ProductID]; dup {
			continue
		}
		seen[item.ProductID] = struct{}{}

		product := products[item.ProductID]
		if len(product.ServiceablePincodes) == 0 {
			failing = append(failing, NonServiceableItem{ProductID: product.ID, Reason: reasonNoServiceArea})
			continue
		}
		if !servesPostalCode(product.ServiceablePincodes, postal) {
			failing = append(failing, NonServiceableItem{ProductID: product.ID, Reason: reasonNotServed})
		}
	}
	if len(failing) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeNonServiceable, "some products cannot be delivered to this postal code").
		WithDetails(map[string]any{
			"postal_code": strings.TrimSpace(address.PostalCode),
			"products":    failing,
		})
}

func servesPostalCode(codes []string, postal string) bool {
	for _, code := range codes {
		if types.NormalizePostalCode(code) == postal {
			return true
		}
	}
	return false
}

func snapshotLine(item CreateItem, product models.Product, sellerState, buyerState string) (models.OrderItem, error) {
	lineTotal := item.UnitPricePaise * int64(item.Quantity)
	breakdown, err := tax.Split(tax.Input{
		Amount:      decimal.NewFromInt(lineTotal),
		Rate:        product.GSTRate,
		Type:        product.TaxType,
		SellerState: sellerState,
		BuyerState:  buyerState,
	})
	if err != nil {
		return models.OrderItem{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product tax settings").
			WithDetails(map[string]any{"product_id": product.ID.String()})
	}
	return models.OrderItem{
		ProductID:      product.ID,
		ProductName:    product.Name,
		Quantity:       item.Quantity,
		UnitPricePaise: item.UnitPricePaise,
		LineTotalPaise: lineTotal,
		GSTRate:        product.GSTRate,
		TaxType:        product.TaxType,
		TaxablePaise:   breakdown.Taxable,
		GSTPaise:       breakdown.GST,
		CGSTPaise:      breakdown.CGST,
		SGSTPaise:      breakdown.SGST,
		IGSTPaise:      breakdown.IGST,
	}, nil
}

func detailError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]any{"field": field})
}
