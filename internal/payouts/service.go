// Package payouts groups pending payout records into batches and settles
// recipient balances when a batch is paid. Seller and promotor payouts and
// driver earnings share the same batch lifecycle through their Ledger.
package payouts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

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

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// MarkPaidInput records the outcome of an external transfer.
type MarkPaidInput struct {
	BatchID       uuid.UUID
	Method        enums.PayoutMethod
	TransactionID string
	ActorID       uuid.UUID
}

// StatusInput moves a batch to processing, failed or cancelled.
type StatusInput struct {
	BatchID uuid.UUID
	Status  enums.PayoutStatus
	Reason  string
	ActorID uuid.UUID
}

// BatchDetail is a batch with its member records.
type BatchDetail struct {
	models.PayoutBatch
	Members []Member `json:"members"`
}

// Service is the payout batcher.
type Service interface {
	CreateBatch(ctx context.Context, recipientType enums.RecipientType, recipientID uuid.UUID) (*models.PayoutBatch, error)
	MarkPaid(ctx context.Context, input MarkPaidInput) (*models.PayoutBatch, error)
	UpdateStatus(ctx context.Context, input StatusInput) (*models.PayoutBatch, error)
	Get(ctx context.Context, batchID uuid.UUID) (*BatchDetail, error)
	List(ctx context.Context, filter Filter, params pagination.Params) (*types.ListPage[models.PayoutBatch], error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	ledgers map[enums.RecipientType]Ledger
	logg    *logger.Logger
	metrics *metrics.Settlement
	clock   func() time.Time
}

// NewService builds a batcher serving the provided ledgers, one per
// recipient type.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, logg *logger.Logger, m *metrics.Settlement, ledgers ...Ledger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payout repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if len(ledgers) == 0 {
		return nil, fmt.Errorf("at least one ledger required")
	}
	byType := make(map[enums.RecipientType]Ledger, len(ledgers))
	for _, l := range ledgers {
		if _, dup := byType[l.Recipient()]; dup {
			return nil, fmt.Errorf("duplicate ledger for %s", l.Recipient())
		}
		byType[l.Recipient()] = l
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outbox,
		ledgers: byType,
		logg:    logg,
		metrics: m,
		clock:   time.Now,
	}, nil
}

// CreateBatch groups every unbatched pending record of the recipient into a
// new pending batch whose total is frozen at the sum of its members.
func (s *service) CreateBatch(ctx context.Context, recipientType enums.RecipientType, recipientID uuid.UUID) (*models.PayoutBatch, error) {
	ledger, err := s.ledger(recipientType)
	if err != nil {
		return nil, err
	}
	if recipientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}

	var batch *models.PayoutBatch
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		members, err := ledger.Pending(ctx, tx, recipientID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending payouts")
		}
		if len(members) == 0 {
			return pkgerrors.Conflict(pkgerrors.ReasonNoPendingFunds, "no pending funds for recipient", map[string]any{
				"recipient_type": string(recipientType),
				"recipient_id":   recipientID.String(),
			})
		}

		ids := make([]uuid.UUID, 0, len(members))
		var total int64
		for _, m := range members {
			ids = append(ids, m.ID)
			total += m.AmountPaise
		}

		batch = &models.PayoutBatch{
			RecipientType:    recipientType,
			RecipientID:      recipientID,
			TotalAmountPaise: total,
			ItemCount:        len(members),
			Status:           enums.PayoutStatusPending,
		}
		if err := s.repo.WithTx(tx).Create(ctx, batch); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout batch")
		}

		attached, err := ledger.Attach(ctx, tx, batch.ID, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach payouts to batch")
		}
		if attached != int64(len(ids)) {
			return pkgerrors.Conflict(pkgerrors.ReasonInvalidTransition, "pending payouts were batched concurrently", map[string]any{
				"expected": len(ids),
				"attached": attached,
			})
		}
		return ledger.Reserve(ctx, tx, recipientID, total)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PayoutBatch(string(recipientType), string(batch.Status))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"batch_id":       batch.ID.String(),
		"recipient_type": string(recipientType),
		"recipient_id":   recipientID.String(),
		"total_paise":    batch.TotalAmountPaise,
		"item_count":     batch.ItemCount,
	}), "payout.batch_created")
	return batch, nil
}

// MarkPaid records a completed transfer. Paying a batch twice is rejected so
// a double submission surfaces instead of passing silently.
func (s *service) MarkPaid(ctx context.Context, input MarkPaidInput) (*models.PayoutBatch, error) {
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payout method").
			WithDetails(map[string]any{"field": "method", "method": string(input.Method)})
	}
	txnID := strings.TrimSpace(input.TransactionID)

	var batch *models.PayoutBatch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, ledger, err := s.load(ctx, repo, input.BatchID)
		if err != nil {
			return err
		}
		if current.Status == enums.PayoutStatusPaid {
			return pkgerrors.Conflict(pkgerrors.ReasonAlreadyPaid, "payout batch already paid", map[string]any{
				"batch_id": current.ID.String(),
				"paid_at":  current.PaidAt,
			})
		}
		if !enums.BatchTransitions.Allows(current.Status, enums.PayoutStatusPaid) {
			return batchTransitionError(current.Status, enums.PayoutStatusPaid)
		}

		now := s.clock().UTC()
		method := input.Method
		updates := map[string]any{
			"status":  enums.PayoutStatusPaid,
			"method":  method,
			"paid_at": now,
		}
		if txnID != "" {
			updates["transaction_id"] = txnID
			current.TransactionID = &txnID
		}
		moved, err := repo.Transition(ctx, current.ID, current.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark batch paid")
		}
		if !moved {
			return batchTransitionError(current.Status, enums.PayoutStatusPaid)
		}
		current.Status = enums.PayoutStatusPaid
		current.Method = &method
		current.PaidAt = &now

		if err := ledger.Settle(ctx, tx, *current, now); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPayoutBatchPaid,
			AggregateType: enums.AggregatePayoutBatch,
			AggregateID:   current.ID,
			Data: payloads.PayoutBatchPaidEvent{
				BatchID:          current.ID,
				RecipientType:    current.RecipientType,
				RecipientID:      current.RecipientID,
				TotalAmountPaise: current.TotalAmountPaise,
				Method:           method,
				TransactionID:    txnID,
			},
		}
		if input.ActorID != uuid.Nil {
			event.Actor = &outbox.ActorRef{UserID: input.ActorID, Role: string(enums.RoleAdmin)}
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payout event")
		}
		batch = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PayoutBatch(string(batch.RecipientType), string(batch.Status))
	s.metrics.PayoutPaid(string(batch.RecipientType), batch.TotalAmountPaise)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"batch_id":    batch.ID.String(),
		"total":       money.Format(batch.TotalAmountPaise),
		"method":      string(input.Method),
		"transaction": txnID,
	}), "payout.batch_paid")
	return batch, nil
}

// UpdateStatus moves a batch along the non-paid edges of the state machine.
// Failed and cancelled batches give their members back for re-batching.
func (s *service) UpdateStatus(ctx context.Context, input StatusInput) (*models.PayoutBatch, error) {
	switch input.Status {
	case enums.PayoutStatusProcessing, enums.PayoutStatusFailed, enums.PayoutStatusCancelled:
	case enums.PayoutStatusPaid:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "use mark paid to pay a batch").
			WithDetails(map[string]any{"field": "status"})
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payout status").
			WithDetails(map[string]any{"field": "status", "status": string(input.Status)})
	}

	var batch *models.PayoutBatch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, ledger, err := s.load(ctx, repo, input.BatchID)
		if err != nil {
			return err
		}
		if !enums.BatchTransitions.Allows(current.Status, input.Status) {
			return batchTransitionError(current.Status, input.Status)
		}

		updates := map[string]any{"status": input.Status}
		releases := input.Status == enums.PayoutStatusFailed || input.Status == enums.PayoutStatusCancelled
		if reason := strings.TrimSpace(input.Reason); reason != "" && releases {
			updates["failure_reason"] = reason
			current.FailureReason = &reason
		}
		moved, err := repo.Transition(ctx, current.ID, current.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update batch status")
		}
		if !moved {
			return batchTransitionError(current.Status, input.Status)
		}
		current.Status = input.Status

		if releases {
			if err := ledger.Release(ctx, tx, *current); err != nil {
				return err
			}
		}
		batch = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PayoutBatch(string(batch.RecipientType), string(batch.Status))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"batch_id": batch.ID.String(),
		"status":   string(batch.Status),
	}), "payout.batch_status_changed")
	return batch, nil
}

func (s *service) Get(ctx context.Context, batchID uuid.UUID) (*BatchDetail, error) {
	batch, ledger, err := s.load(ctx, s.repo, batchID)
	if err != nil {
		return nil, err
	}
	members, err := ledger.Members(ctx, s.repo.DB(), batch.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch members")
	}
	return &BatchDetail{PayoutBatch: *batch, Members: members}, nil
}

func (s *service) List(ctx context.Context, filter Filter, params pagination.Params) (*types.ListPage[models.PayoutBatch], error) {
	if filter.RecipientType != nil && !filter.RecipientType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown recipient type")
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payout status")
	}
	if err := filter.Created.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date range")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payout batches")
	}
	items, next := pagination.Trim(rows, params.Limit, func(b models.PayoutBatch) pagination.Cursor {
		return pagination.Cursor{CreatedAt: b.CreatedAt, ID: b.ID}
	})
	return &types.ListPage[models.PayoutBatch]{Items: items, NextCursor: next}, nil
}

func (s *service) ledger(recipientType enums.RecipientType) (Ledger, error) {
	ledger, ok := s.ledgers[recipientType]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported recipient type").
			WithDetails(map[string]any{"field": "recipient_type", "recipient_type": string(recipientType)})
	}
	return ledger, nil
}

func (s *service) load(ctx context.Context, repo Repository, batchID uuid.UUID) (*models.PayoutBatch, Ledger, error) {
	batch, err := repo.Find(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout batch not found").
				WithDetails(map[string]any{"batch_id": batchID.String()})
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout batch")
	}
	ledger, ok := s.ledgers[batch.RecipientType]
	if !ok {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout batch not found").
			WithDetails(map[string]any{"batch_id": batchID.String()})
	}
	return batch, ledger, nil
}

func batchTransitionError(from, to enums.PayoutStatus) error {
	return pkgerrors.Conflict(pkgerrors.ReasonInvalidTransition, "payout batch cannot move to the requested status", map[string]any{
		"from":    string(from),
		"to":      string(to),
		"allowed": enums.BatchTransitions.Next(from),
	})
}
