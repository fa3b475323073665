// Package drivers keeps the driver wallet: one earning per delivery and
// withdrawal requests reserved against the current balance. A withdrawal
// holds the earnings it draws from, so a payout batch never counts them again.
package drivers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/relaymart-backend/pkg/db"
	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
	"github.com/angelmondragon/relaymart-backend/pkg/logger"
	"github.com/angelmondragon/relaymart-backend/pkg/metrics"
	"github.com/angelmondragon/relaymart-backend/pkg/money"
	"github.com/angelmondragon/relaymart-backend/pkg/outbox"
	"github.com/angelmondragon/relaymart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/relaymart-backend/pkg/pagination"
	"github.com/angelmondragon/relaymart-backend/pkg/types"
)

// IST is the business day boundary for today_earnings.
var IST = time.FixedZone("IST", 5*60*60+30*60)

const dayLayout = "2006-01-02"

var (
	accountNumberPattern = regexp.MustCompile(`^[0-9]{9,18}$`)
	ifscPattern          = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Config carries the money rules the driver wallet enforces.
type Config struct {
	DeliveryFeePaise       int64
	MinimumWithdrawalPaise int64
}

// Wallet is the driver's derived balance view.
type Wallet struct {
	DriverID       uuid.UUID `json:"driver_id"`
	TotalEarnings  int64     `json:"total_earnings_paise"`
	CurrentBalance int64     `json:"current_balance_paise"`
	PendingPayout  int64     `json:"pending_payout_paise"`
	TodayEarnings  int64     `json:"today_earnings_paise"`
	TotalWithdrawn int64     `json:"total_withdrawn_paise"`
}

// WithdrawRequest is a driver asking to move money out of the wallet.
type WithdrawRequest struct {
	DriverID      uuid.UUID
	AmountPaise   int64
	Mode          enums.WithdrawMode
	AccountHolder string
	AccountNumber string
	IFSC          string
	UPIID         string
}

// WithdrawDecision is an admin moving a withdrawal through its lifecycle.
type WithdrawDecision struct {
	WithdrawID uuid.UUID
	Status     enums.WithdrawStatus
	Note       string
	ActorID    uuid.UUID
}

// Service is the driver earnings ledger and withdrawal manager.
type Service interface {
	SetAvailability(ctx context.Context, driverID uuid.UUID, availability enums.DriverAvailability) error
	RecordDeliveryEarning(ctx context.Context, tx *gorm.DB, driverID, orderID uuid.UUID) (*models.DriverEarning, error)
	Wallet(ctx context.Context, driverID uuid.UUID) (*Wallet, error)
	ListEarnings(ctx context.Context, filter EarningFilter, params pagination.Params) (*types.ListPage[models.DriverEarning], error)
	RequestWithdraw(ctx context.Context, req WithdrawRequest) (*models.Withdraw, error)
	UpdateWithdrawStatus(ctx context.Context, decision WithdrawDecision) (*models.Withdraw, error)
	ListWithdrawals(ctx context.Context, filter WithdrawFilter, params pagination.Params) (*types.ListPage[models.Withdraw], error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	cfg     Config
	logg    *logger.Logger
	metrics *metrics.Settlement
	clock   func() time.Time
}

// NewService builds the driver wallet service.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, cfg Config, logg *logger.Logger, m *metrics.Settlement) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("drivers repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if cfg.DeliveryFeePaise <= 0 {
		return nil, fmt.Errorf("delivery fee must be positive")
	}
	if cfg.MinimumWithdrawalPaise <= 0 {
		return nil, fmt.Errorf("minimum withdrawal must be positive")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outbox,
		cfg:     cfg,
		logg:    logg,
		metrics: m,
		clock:   time.Now,
	}, nil
}

func (s *service) SetAvailability(ctx context.Context, driverID uuid.UUID, availability enums.DriverAvailability) error {
	if availability != enums.DriverOnline && availability != enums.DriverOffline {
		return pkgerrors.New(pkgerrors.CodeValidation, "availability must be online or offline").
			WithDetails(map[string]any{"availability": string(availability)})
	}
	driver, err := s.loadDriver(ctx, s.repo, driverID)
	if err != nil {
		return err
	}
	if driver.Availability == enums.DriverOnDelivery {
		return pkgerrors.Conflict(pkgerrors.ReasonInvalidTransition, "driver is on a delivery", map[string]any{
			"availability": string(driver.Availability),
		})
	}
	swapped, err := s.repo.SwapAvailability(ctx, driverID, []enums.DriverAvailability{enums.DriverOnline, enums.DriverOffline}, availability)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update driver availability")
	}
	if !swapped {
		return pkgerrors.Conflict(pkgerrors.ReasonInvalidTransition, "driver is on a delivery", map[string]any{
			"availability": string(enums.DriverOnDelivery),
		})
	}
	return nil
}

// RecordDeliveryEarning writes the delivery earning and credits the wallet
// inside the caller's delivery transaction.
func (s *service) RecordDeliveryEarning(ctx context.Context, tx *gorm.DB, driverID, orderID uuid.UUID) (*models.DriverEarning, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	repo := s.repo.WithTx(tx)
	day := s.clock().In(IST).Format(dayLayout)

	earning := &models.DriverEarning{
		DriverID:    driverID,
		OrderID:     &orderID,
		Type:        enums.EarningTypeDelivery,
		AmountPaise: s.cfg.DeliveryFeePaise,
		Status:      enums.EarningStatusEarned,
		EarnedOn:    day,
	}
	if err := repo.CreateEarning(ctx, earning); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_driver_earnings_order_type") {
			return nil, pkgerrors.Conflict(pkgerrors.ReasonDuplicatePayout, "delivery earning already recorded", map[string]any{
				"order_id": orderID.String(),
			})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create driver earning")
	}

	credited, err := repo.CreditEarning(ctx, driverID, earning.AmountPaise, day)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit driver wallet")
	}
	if !credited {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found").
			WithDetails(map[string]any{"driver_id": driverID.String()})
	}

	logCtx := s.logg.WithDriverID(ctx, driverID.String())
	s.logg.Info(s.logg.WithOrderID(logCtx, orderID.String()), "driver.earning_recorded")
	return earning, nil
}

func (s *service) Wallet(ctx context.Context, driverID uuid.UUID) (*Wallet, error) {
	driver, err := s.loadDriver(ctx, s.repo, driverID)
	if err != nil {
		return nil, err
	}
	today := driver.TodayEarnings
	if driver.TodayEarningOn != s.clock().In(IST).Format(dayLayout) {
		today = 0
	}
	return &Wallet{
		DriverID:       driver.ID,
		TotalEarnings:  driver.TotalEarnings,
		CurrentBalance: driver.CurrentBalance,
		PendingPayout:  driver.PendingPayout,
		TodayEarnings:  today,
		TotalWithdrawn: driver.TotalWithdrawn,
	}, nil
}

func (s *service) ListEarnings(ctx context.Context, filter EarningFilter, params pagination.Params) (*types.ListPage[models.DriverEarning], error) {
	if err := checkListInput(filter.Created, params); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListEarnings(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list driver earnings")
	}
	items, next := pagination.Trim(rows, params.Limit, func(e models.DriverEarning) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
	return &types.ListPage[models.DriverEarning]{Items: items, NextCursor: next}, nil
}

func (s *service) RequestWithdraw(ctx context.Context, req WithdrawRequest) (*models.Withdraw, error) {
	withdraw, err := s.buildWithdraw(req)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		driver, err := s.loadDriver(ctx, repo, req.DriverID)
		if err != nil {
			return err
		}
		if driver.TotalEarnings < s.cfg.MinimumWithdrawalPaise {
			return pkgerrors.New(pkgerrors.CodeValidation, "lifetime earnings below withdrawal threshold").
				WithDetails(map[string]any{
					"total_earnings":       money.Format(driver.TotalEarnings),
					"total_earnings_paise": driver.TotalEarnings,
					"minimum_paise":        s.cfg.MinimumWithdrawalPaise,
				})
		}
		if req.AmountPaise > driver.CurrentBalance {
			return insufficientBalance(req.AmountPaise, driver.CurrentBalance)
		}

		reserved, err := repo.ReserveWithdrawal(ctx, req.DriverID, req.AmountPaise)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve withdrawal")
		}
		if !reserved {
			return insufficientBalance(req.AmountPaise, driver.CurrentBalance)
		}
		if err := repo.CreateWithdraw(ctx, withdraw); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create withdrawal")
		}
		// Balance credited without earning rows (imports, manual adjustments)
		// leaves the allocation short; that part has nothing to hold.
		allocated, err := repo.AllocateWithdrawal(ctx, withdraw.ID, req.DriverID, req.AmountPaise)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate withdrawal earnings")
		}
		if allocated < req.AmountPaise {
			s.logg.Warn(s.logg.WithFields(s.logg.WithDriverID(ctx, req.DriverID.String()), map[string]any{
				"withdraw_id":     withdraw.ID.String(),
				"allocated_paise": allocated,
				"amount_paise":    req.AmountPaise,
			}), "driver.withdraw_partially_allocated")
		}
		return s.emitWithdraw(ctx, tx, withdraw, req.DriverID)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Withdrawal(string(withdraw.Status))
	s.logg.Info(s.logg.WithFields(s.logg.WithDriverID(ctx, req.DriverID.String()), map[string]any{
		"withdraw_id":  withdraw.ID.String(),
		"amount_paise": withdraw.AmountPaise,
	}), "driver.withdraw_requested")
	return withdraw, nil
}

func (s *service) UpdateWithdrawStatus(ctx context.Context, decision WithdrawDecision) (*models.Withdraw, error) {
	if !decision.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown withdraw status").
			WithDetails(map[string]any{"status": string(decision.Status)})
	}

	var updated *models.Withdraw
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindWithdraw(ctx, decision.WithdrawID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found").
					WithDetails(map[string]any{"withdraw_id": decision.WithdrawID.String()})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal")
		}
		from := current.Status
		if !enums.WithdrawTransitions.Allows(from, decision.Status) {
			return withdrawTransitionError(from, decision.Status)
		}

		now := s.clock().UTC()
		updates := map[string]any{"status": decision.Status}
		if note := strings.TrimSpace(decision.Note); note != "" {
			updates["note"] = note
			current.Note = &note
		}
		switch decision.Status {
		case enums.WithdrawStatusApproved:
			updates["processed_at"] = now
			current.ProcessedAt = &now
		case enums.WithdrawStatusPaid:
			updates["paid_at"] = now
			current.PaidAt = &now
		case enums.WithdrawStatusRejected:
			updates["processed_at"] = now
			current.ProcessedAt = &now
		}

		moved, err := repo.TransitionWithdraw(ctx, current.ID, from, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update withdrawal")
		}
		if !moved {
			return withdrawTransitionError(from, decision.Status)
		}

		switch decision.Status {
		case enums.WithdrawStatusPaid:
			err = repo.SettleWithdrawal(ctx, current.DriverID, current.AmountPaise)
			if err == nil {
				err = repo.ResolveWithdrawalEarnings(ctx, current.ID, true, now)
			}
		case enums.WithdrawStatusRejected:
			err = repo.ReleaseWithdrawal(ctx, current.DriverID, current.AmountPaise)
			if err == nil {
				err = repo.ResolveWithdrawalEarnings(ctx, current.ID, false, now)
			}
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust driver wallet")
		}

		current.Status = decision.Status
		updated = current
		return s.emitWithdraw(ctx, tx, current, decision.ActorID)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Withdrawal(string(updated.Status))
	s.logg.Info(s.logg.WithFields(s.logg.WithDriverID(ctx, updated.DriverID.String()), map[string]any{
		"withdraw_id": updated.ID.String(),
		"status":      string(updated.Status),
	}), "driver.withdraw_status_changed")
	return updated, nil
}

func (s *service) ListWithdrawals(ctx context.Context, filter WithdrawFilter, params pagination.Params) (*types.ListPage[models.Withdraw], error) {
	if err := checkListInput(filter.Created, params); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListWithdrawals(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list withdrawals")
	}
	items, next := pagination.Trim(rows, params.Limit, func(w models.Withdraw) pagination.Cursor {
		return pagination.Cursor{CreatedAt: w.CreatedAt, ID: w.ID}
	})
	return &types.ListPage[models.Withdraw]{Items: items, NextCursor: next}, nil
}

// buildWithdraw validates the request shape before any storage access.
func (s *service) buildWithdraw(req WithdrawRequest) (*models.Withdraw, error) {
	if req.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	if req.AmountPaise < s.cfg.MinimumWithdrawalPaise {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("minimum withdrawal is %s", money.Format(s.cfg.MinimumWithdrawalPaise))).
			WithDetails(map[string]any{
				"field":         "amount",
				"amount_paise":  req.AmountPaise,
				"minimum_paise": s.cfg.MinimumWithdrawalPaise,
			})
	}

	withdraw := &models.Withdraw{
		DriverID:    req.DriverID,
		AmountPaise: req.AmountPaise,
		Mode:        req.Mode,
		Status:      enums.WithdrawStatusPending,
	}
	switch req.Mode {
	case enums.WithdrawModeBank:
		account := strings.TrimSpace(req.AccountNumber)
		if !accountNumberPattern.MatchString(account) {
			return nil, detailError("account_number", "account number must be 9 to 18 digits")
		}
		ifsc := strings.ToUpper(strings.TrimSpace(req.IFSC))
		if !ifscPattern.MatchString(ifsc) {
			return nil, detailError("ifsc", "invalid IFSC code")
		}
		withdraw.AccountNumber = &account
		withdraw.IFSC = &ifsc
		if holder := strings.TrimSpace(req.AccountHolder); holder != "" {
			withdraw.AccountHolder = &holder
		}
	case enums.WithdrawModeUPI:
		upi := strings.TrimSpace(req.UPIID)
		if !strings.Contains(upi, "@") {
			return nil, detailError("upi_id", "UPI id must contain @")
		}
		withdraw.UPIID = &upi
	default:
		return nil, detailError("mode", "mode must be bank or upi")
	}
	return withdraw, nil
}

func (s *service) loadDriver(ctx context.Context, repo Repository, id uuid.UUID) (*models.Driver, error) {
	driver, err := repo.FindDriver(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found").
				WithDetails(map[string]any{"driver_id": id.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver")
	}
	return driver, nil
}

func (s *service) emitWithdraw(ctx context.Context, tx *gorm.DB, w *models.Withdraw, actorID uuid.UUID) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventWithdrawalStatusChanged,
		AggregateType: enums.AggregateWithdrawal,
		AggregateID:   w.ID,
		Data: payloads.WithdrawalStatusChangedEvent{
			WithdrawID:  w.ID,
			DriverID:    w.DriverID,
			Status:      w.Status,
			AmountPaise: w.AmountPaise,
		},
	}
	if actorID != uuid.Nil {
		event.Actor = &outbox.ActorRef{UserID: actorID}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit withdrawal event")
	}
	return nil
}

func insufficientBalance(requested, balance int64) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientFunds, fmt.Sprintf("requested %s, available %s", money.Format(requested), money.Format(balance))).
		WithDetails(map[string]any{
			"requested_paise": requested,
			"available_paise": balance,
		})
}

func withdrawTransitionError(from, to enums.WithdrawStatus) error {
	return pkgerrors.Conflict(pkgerrors.ReasonInvalidTransition, "withdrawal cannot move to the requested status", map[string]any{
		"from":    string(from),
		"to":      string(to),
		"allowed": enums.WithdrawTransitions.Next(from),
	})
}

func detailError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]any{"field": field})
}

func checkListInput(created pagination.DateRange, params pagination.Params) error {
	if err := created.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date range")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return nil
}
