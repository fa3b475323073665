package enums

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder       OutboxAggregateType = "order"
	AggregatePayoutBatch OutboxAggregateType = "payout_batch"
	AggregateWithdrawal  OutboxAggregateType = "withdrawal"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayoutBatch,
	AggregateWithdrawal,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return contains(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(validAggregateTypes, value, "aggregate type")
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderStatusChanged      OutboxEventType = "order_status_changed"
	EventPayoutBatchPaid         OutboxEventType = "payout_batch_paid"
	EventWithdrawalStatusChanged OutboxEventType = "withdrawal_status_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderStatusChanged,
	EventPayoutBatchPaid,
	EventWithdrawalStatusChanged,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	return contains(validOutboxEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(validOutboxEventTypes, value, "event type")
}
