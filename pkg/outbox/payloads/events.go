package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/relaymart-backend/pkg/enums"
)

// OrderStatusChangedEvent is the notification trigger for every order
// transition. Only the id and the new status travel; consumers load the rest.
type OrderStatusChangedEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	Status  enums.OrderStatus `json:"status"`
}

// PayoutBatchPaidEvent reports a batch that was marked paid.
type PayoutBatchPaidEvent struct {
	BatchID          uuid.UUID           `json:"batch_id"`
	RecipientType    enums.RecipientType `json:"recipient_type"`
	RecipientID      uuid.UUID           `json:"recipient_id"`
	TotalAmountPaise int64               `json:"total_amount_paise"`
	Method           enums.PayoutMethod  `json:"method"`
	TransactionID    string              `json:"transaction_id"`
}

// WithdrawalStatusChangedEvent reports a withdrawal decision.
type WithdrawalStatusChangedEvent struct {
	WithdrawID  uuid.UUID            `json:"withdraw_id"`
	DriverID    uuid.UUID            `json:"driver_id"`
	Status      enums.WithdrawStatus `json:"status"`
	AmountPaise int64                `json:"amount_paise"`
}
