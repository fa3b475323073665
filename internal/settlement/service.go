// Package settlement turns a delivered and paid order into the payout rows
// owed to its seller and promotor.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/internal/catalog"
	"github.com/angelmondragon/relaymart-backend/internal/commission"
	dbpkg "github.com/angelmondragon/relaymart-backend/pkg/db"
	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
	"github.com/angelmondragon/relaymart-backend/pkg/logger"
	"github.com/angelmondragon/relaymart-backend/pkg/pagination"
	"github.com/angelmondragon/relaymart-backend/pkg/types"
)

// Config holds the platform rates and the state the platform bills from.
type Config struct {
	Rates         commission.Rates
	PlatformState string
}

// Result is what settling one order produced. Promotor is nil when the
// seller has no promotor.
type Result struct {
	Settlement commission.Settlement
	Seller     models.SellerPayout
	Promotor   *models.PromotorPayout
}

// Service settles orders and lists the resulting payout rows.
type Service interface {
	SettleOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*Result, error)
	ListSellerPayouts(ctx context.Context, filter Filter, params pagination.Params) (*types.ListPage[models.SellerPayout], error)
	ListPromotorPayouts(ctx context.Context, filter Filter, params pagination.Params) (*types.ListPage[models.PromotorPayout], error)
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	cfg     Config
	logg    *logger.Logger
	clock   func() time.Time
}

// NewService builds the settlement service.
func NewService(repo Repository, catalogRepo catalog.Repository, cfg Config, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{
		repo:    repo,
		catalog: catalogRepo,
		cfg:     cfg,
		logg:    logg,
		clock:   time.Now,
	}, nil
}

// SettleOrder computes and stores the payouts inside tx. A second attempt for
// the same order fails on the (order, recipient) unique indexes and the
// caller's transaction rolls back.
func (s *service) SettleOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*Result, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if order == nil {
		return nil, fmt.Errorf("order required")
	}
	if !order.IsSettleable() {
		return nil, pkgerrors.Conflict(pkgerrors.ReasonInvalidTransition, "order is not delivered and paid", map[string]any{
			"order_id":       order.ID.String(),
			"status":         string(order.Status),
			"payment_status": string(order.PaymentStatus),
		})
	}
	if order.SettledAt != nil {
		return nil, duplicatePayout(order.ID)
	}

	repo := s.repo.WithTx(tx)
	catalogRepo := s.catalog.WithTx(tx)

	items := order.Items
	if len(items) == 0 {
		loaded, err := repo.OrderItems(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		items = loaded
	}

	seller, err := catalogRepo.FindSeller(ctx, order.SellerID)
	if err != nil {
		return nil, err
	}
	var promotor *models.Promotor
	if seller.PromotorID != nil {
		promotor, err = catalogRepo.FindPromotor(ctx, *seller.PromotorID)
		if err != nil {
			return nil, err
		}
	}

	input := commission.Input{
		Lines:         make([]commission.Line, 0, len(items)),
		Rates:         s.cfg.Rates,
		SellerState:   seller.State,
		PlatformState: s.cfg.PlatformState,
	}
	for _, item := range items {
		input.Lines = append(input.Lines, commission.Line{Quantity: item.Quantity, LineTotal: item.LineTotalPaise})
	}
	if promotor != nil {
		input.Promotor = &commission.Terms{Type: promotor.CommissionType, Rate: promotor.CommissionRate}
	}

	calc, err := commission.Calculate(input)
	if err != nil {
		return nil, err
	}

	sellerPayout := models.SellerPayout{
		OrderID:          order.ID,
		SellerID:         seller.ID,
		OrderAmountPaise: calc.OrderAmount,
		TotalQuantity:    calc.TotalQuantity,
		CommissionPaise:  calc.Commission,
		PlatformFeeRate:  calc.Rates.PlatformFee,
		PlatformFeePaise: calc.PlatformFee,
		GSTRate:          calc.Rates.GST,
		GSTOnFeePaise:    calc.GSTOnFee.GST,
		CGSTPaise:        calc.GSTOnFee.CGST,
		SGSTPaise:        calc.GSTOnFee.SGST,
		IGSTPaise:        calc.GSTOnFee.IGST,
		TDSRate:          calc.Rates.TDS,
		TDSPaise:         calc.TDS,
		PayablePaise:     calc.Payable,
		NetAmountPaise:   calc.Net,
		Status:           enums.PayoutStatusPending,
	}
	if calc.Promotor != nil {
		kind := calc.Promotor.Type
		sellerPayout.CommissionType = &kind
		sellerPayout.CommissionRate = calc.Promotor.Rate
	}
	if err := repo.CreateSellerPayout(ctx, &sellerPayout); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_seller_payouts_order_seller") {
			return nil, duplicatePayout(order.ID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create seller payout")
	}
	if err := repo.CreditSellerPending(ctx, seller.ID, calc.Net); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit seller pending payout")
	}

	result := &Result{Settlement: calc, Seller: sellerPayout}
	if promotor != nil {
		promotorPayout := models.PromotorPayout{
			OrderID:          order.ID,
			PromotorID:       promotor.ID,
			SellerID:         seller.ID,
			OrderAmountPaise: calc.OrderAmount,
			TotalQuantity:    calc.TotalQuantity,
			CommissionType:   promotor.CommissionType,
			CommissionRate:   promotor.CommissionRate,
			AmountPaise:      calc.Commission,
			Status:           enums.PayoutStatusPending,
		}
		if err := repo.CreatePromotorPayout(ctx, &promotorPayout); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_promotor_payouts_order_promotor") {
				return nil, duplicatePayout(order.ID)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create promotor payout")
		}
		if err := repo.CreditPromotorPending(ctx, promotor.ID, calc.Commission); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit promotor pending payout")
		}
		result.Promotor = &promotorPayout
	}

	now := s.clock().UTC()
	if err := repo.MarkOrderSettled(ctx, order.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order settled")
	}
	order.SettledAt = &now

	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"seller_id":        seller.ID.String(),
		"net_amount_paise": calc.Net,
		"commission_paise": calc.Commission,
	}), "settlement.order_settled")
	return result, nil
}

func (s *service) ListSellerPayouts(ctx context.Context, filter Filter, params pagination.Params) (*types.ListPage[models.SellerPayout], error) {
	if err := checkListInput(filter, params); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListSellerPayouts(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller payouts")
	}
	items, next := pagination.Trim(rows, params.Limit, func(p models.SellerPayout) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &types.ListPage[models.SellerPayout]{Items: items, NextCursor: next}, nil
}

func (s *service) ListPromotorPayouts(ctx context.Context, filter Filter, params pagination.Params) (*types.ListPage[models.PromotorPayout], error) {
	if err := checkListInput(filter, params); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListPromotorPayouts(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list promotor payouts")
	}
	items, next := pagination.Trim(rows, params.Limit, func(p models.PromotorPayout) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &types.ListPage[models.PromotorPayout]{Items: items, NextCursor: next}, nil
}

func checkListInput(filter Filter, params pagination.Params) error {
	if filter.Status != nil && !filter.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payout status")
	}
	if err := filter.Created.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date range")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return nil
}

func duplicatePayout(orderID uuid.UUID) error {
	return pkgerrors.Conflict(pkgerrors.ReasonDuplicatePayout, "order already settled", map[string]any{
		"order_id": orderID.String(),
	})
}
