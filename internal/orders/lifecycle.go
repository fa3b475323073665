package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/relaymart-backend/internal/drivers"
	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
	"github.com/angelmondragon/relaymart-backend/pkg/money"
	"github.com/angelmondragon/relaymart-backend/pkg/outbox"
	"github.com/angelmondragon/relaymart-backend/pkg/security"
)

// Accept assigns a pending order to an online driver. The assignment and the
// driver's move to on_delivery are both conditional updates: of two drivers
// racing for one order exactly one wins, and a driver can hold one order.
func (s *service) Accept(ctx context.Context, orderID, driverID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if current.Status != enums.OrderStatusPending {
			if current.DriverID != nil {
				return alreadyAssigned(current)
			}
			return transitionError(current.Status, enums.OrderStatusAccepted)
		}

		driverRepo := s.drivers.WithTx(tx)
		driver, err := s.loadDriver(ctx, driverRepo, driverID)
		if err != nil {
			return err
		}
		if driver.Availability != enums.DriverOnline {
			return pkgerrors.Conflict(pkgerrors.ReasonDriverUnavailable, "driver must be online to accept orders", map[string]any{
				"driver_id":    driverID.String(),
				"availability": string(driver.Availability),
			})
		}

		now := s.clock()
		assigned, err := repo.AssignDriver(ctx, orderID, driverID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign driver")
		}
		if !assigned {
			return alreadyAssigned(current)
		}
		claimed, err := driverRepo.SwapAvailability(ctx, driverID, []enums.DriverAvailability{enums.DriverOnline}, enums.DriverOnDelivery)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark driver on delivery")
		}
		if !claimed {
			return pkgerrors.Conflict(pkgerrors.ReasonDriverUnavailable, "driver went offline or took another order", map[string]any{
				"driver_id": driverID.String(),
			})
		}

		current.Status = enums.OrderStatusAccepted
		current.DriverID = &driverID
		current.AcceptedAt = &now
		if err := s.emitStatus(ctx, tx, current, driverActor(driverID)); err != nil {
			return err
		}
		order = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, order, "order.accepted")
	return order, nil
}

// PickUp records that the assigned driver collected the order.
func (s *service) PickUp(ctx context.Context, orderID, driverID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := requireAssigned(current, driverID); err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(enums.OrderStatusPickedUp) {
			return transitionError(current.Status, enums.OrderStatusPickedUp)
		}

		now := s.clock()
		moved, err := repo.Transition(ctx, orderID, current.Status, map[string]any{
			"status":       enums.OrderStatusPickedUp,
			"picked_up_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order picked up")
		}
		if !moved {
			return transitionError(current.Status, enums.OrderStatusPickedUp)
		}

		current.Status = enums.OrderStatusPickedUp
		current.PickedUpAt = &now
		if err := s.emitStatus(ctx, tx, current, driverActor(driverID)); err != nil {
			return err
		}
		order = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, order, "order.picked_up")
	return order, nil
}

// VerifySecretCode checks the buyer's code submitted by the assigned driver
// at the door. Verifying an already verified order is a no-op.
func (s *service) VerifySecretCode(ctx context.Context, orderID, driverID uuid.UUID, code string) (*models.Order, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, detailError("secret_code", "secret code required")
	}
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireAssigned(order, driverID); err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPickedUp {
		return nil, pkgerrors.Conflict(pkgerrors.ReasonInvalidTransition, "secret code can only be verified after pickup", map[string]any{
			"status": string(order.Status),
		})
	}
	if order.IsSecretCodeVerified {
		return order, nil
	}

	ok, err := security.VerifyCode(code, order.SecretCodeHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify secret code")
	}
	if !ok {
		return nil, detailError("secret_code", "secret code does not match")
	}
	if err := s.repo.MarkCodeVerified(ctx, orderID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark secret code verified")
	}
	order.IsSecretCodeVerified = true
	s.logg.Info(s.logg.WithOrderID(s.logg.WithDriverID(ctx, driverID.String()), orderID.String()), "order.secret_code_verified")
	return order, nil
}

// ConfirmDelivery flips a picked-up order to delivered. In the same
// transaction it records COD payment, credits the driver earning, puts the
// driver back online and settles the order once it is paid.
func (s *service) ConfirmDelivery(ctx context.Context, input DeliveryInput) (*models.Order, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := requireAssigned(current, input.DriverID); err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(enums.OrderStatusDelivered) {
			return transitionError(current.Status, enums.OrderStatusDelivered)
		}
		if !current.IsSecretCodeVerified {
			return pkgerrors.Conflict(pkgerrors.ReasonSecretCodeUnverified, "secret code must be verified before delivery", map[string]any{
				"order_id": current.ID.String(),
			})
		}

		collectCash := current.PaymentMethod == enums.PaymentMethodCOD && current.PaymentStatus == enums.PaymentStatusPending
		if collectCash {
			if input.PaidAmountPaise == nil {
				return detailError("paid_amount", "collected amount required for cash on delivery")
			}
			if *input.PaidAmountPaise != current.CashOnDeliveryPaise {
				return amountMismatch(current.CashOnDeliveryPaise, *input.PaidAmountPaise)
			}
		}

		now := s.clock()
		moved, err := repo.Transition(ctx, current.ID, current.Status, map[string]any{
			"status":       enums.OrderStatusDelivered,
			"delivered_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order delivered")
		}
		if !moved {
			return transitionError(current.Status, enums.OrderStatusDelivered)
		}
		current.Status = enums.OrderStatusDelivered
		current.DeliveredAt = &now

		if collectCash {
			paid, err := repo.MarkPaid(ctx, current.ID, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record cash payment")
			}
			if !paid {
				return alreadyPaid(current)
			}
			current.PaymentStatus = enums.PaymentStatusPaid
			current.PaidAt = &now
		}

		if _, err := s.earnings.RecordDeliveryEarning(ctx, tx, input.DriverID, current.ID); err != nil {
			return err
		}
		if err := s.drivers.WithTx(tx).SetAvailability(ctx, input.DriverID, enums.DriverOnline); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release driver")
		}
		if current.IsSettleable() {
			if _, err := s.settler.SettleOrder(ctx, tx, current); err != nil {
				return err
			}
		}
		return s.emitStatus(ctx, tx, current, driverActor(input.DriverID))
	})
	if err != nil {
		return nil, err
	}

	order, err := s.loadOrder(ctx, s.repo, input.OrderID)
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, order, "order.delivered")
	return order, nil
}

// RecordPayment marks an online order paid once the external payment has
// been confirmed. A delivered order is settled in the same transaction.
func (s *service) RecordPayment(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	if actor.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can record payments")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if current.PaymentMethod != enums.PaymentMethodOnline {
			return pkgerrors.New(pkgerrors.CodeValidation, "cash on delivery orders are paid at delivery").
				WithDetails(map[string]any{"payment_method": string(current.PaymentMethod)})
		}
		if current.PaymentStatus == enums.PaymentStatusPaid {
			return alreadyPaid(current)
		}
		if current.Status == enums.OrderStatusCancelled {
			return pkgerrors.Conflict(pkgerrors.ReasonInvalidTransition, "cancelled orders cannot be paid", map[string]any{
				"status": string(current.Status),
			})
		}

		now := s.clock()
		paid, err := repo.MarkPaid(ctx, orderID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
		}
		if !paid {
			return alreadyPaid(current)
		}
		current.PaymentStatus = enums.PaymentStatusPaid
		current.PaidAt = &now

		if current.IsSettleable() {
			if _, err := s.settler.SettleOrder(ctx, tx, current); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "order.payment_recorded")
	return order, nil
}

// Cancel is admin only and allowed before pickup. It refunds the wallet
// deduction, frees the coupon redemption and puts the driver back online.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if input.Actor.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can cancel orders")
	}
	reason := strings.TrimSpace(input.Reason)

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(enums.OrderStatusCancelled) {
			return transitionError(current.Status, enums.OrderStatusCancelled)
		}

		now := s.clock()
		updates := map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		}
		if reason != "" {
			updates["cancel_reason"] = reason
		}
		refunded := current.PaymentStatus == enums.PaymentStatusPaid || current.WalletDeductionPaise > 0
		if refunded {
			updates["payment_status"] = enums.PaymentStatusRefunded
		}
		moved, err := repo.Transition(ctx, current.ID, current.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !moved {
			return transitionError(current.Status, enums.OrderStatusCancelled)
		}

		if err := s.wallets.WithTx(tx).Credit(ctx, current.UserID, current.WalletDeductionPaise); err != nil {
			return err
		}
		if err := s.coupons.Release(ctx, tx, current.ID); err != nil {
			return err
		}
		if current.DriverID != nil {
			if err := s.drivers.WithTx(tx).SetAvailability(ctx, *current.DriverID, enums.DriverOnline); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release driver")
			}
		}

		current.Status = enums.OrderStatusCancelled
		current.CancelledAt = &now
		if reason != "" {
			current.CancelReason = &reason
		}
		if refunded {
			current.PaymentStatus = enums.PaymentStatusRefunded
		}
		actor := &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)}
		if err := s.emitStatus(ctx, tx, current, actor); err != nil {
			return err
		}
		order = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, order, "order.cancelled")
	return order, nil
}

func (s *service) loadDriver(ctx context.Context, repo drivers.Repository, id uuid.UUID) (*models.Driver, error) {
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

func (s *service) transitioned(ctx context.Context, order *models.Order, msg string) {
	s.metrics.OrderTransition(string(order.Status))
	fields := map[string]any{"status": string(order.Status)}
	if order.DriverID != nil {
		fields["driver_id"] = order.DriverID.String()
	}
	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), fields), msg)
}

func requireAssigned(order *models.Order, driverID uuid.UUID) error {
	if order.DriverID == nil || *order.DriverID != driverID {
		return pkgerrors.Conflict(pkgerrors.ReasonNotAssignedDriver, "order is not assigned to this driver", map[string]any{
			"order_id":  order.ID.String(),
			"driver_id": driverID.String(),
		})
	}
	return nil
}

func driverActor(driverID uuid.UUID) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: driverID, Role: string(enums.RoleDriver)}
}

func alreadyAssigned(order *models.Order) error {
	return pkgerrors.Conflict(pkgerrors.ReasonAlreadyAssigned, "order already accepted by another driver", map[string]any{
		"order_id": order.ID.String(),
	})
}

func alreadyPaid(order *models.Order) error {
	return pkgerrors.Conflict(pkgerrors.ReasonAlreadyPaid, "order is already paid", map[string]any{
		"order_id": order.ID.String(),
	})
}

func transitionError(from, to enums.OrderStatus) error {
	return pkgerrors.Conflict(pkgerrors.ReasonInvalidTransition, fmt.Sprintf("order cannot move from %s to %s", from, to), map[string]any{
		"from":    string(from),
		"to":      string(to),
		"allowed": enums.OrderTransitions.Next(from),
	})
}

// amountMismatch reports the exact paise on both sides; nothing is rounded
// before the comparison.
func amountMismatch(expected, received int64) error {
	return pkgerrors.Conflict(pkgerrors.ReasonAmountMismatch,
		fmt.Sprintf("expected %s, received %s", money.Format(expected), money.Format(received)),
		map[string]any{
			"expected":        expected,
			"received":        received,
			"difference":      expected - received,
			"expected_amount": money.Format(expected),
			"received_amount": money.Format(received),
		})
}
