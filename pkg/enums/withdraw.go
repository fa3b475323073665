package enums

// WithdrawStatus tracks a driver withdrawal request.
type WithdrawStatus string

const (
	WithdrawStatusPending  WithdrawStatus = "pending"
	WithdrawStatusApproved WithdrawStatus = "approved"
	WithdrawStatusRejected WithdrawStatus = "rejected"
	WithdrawStatusPaid     WithdrawStatus = "paid"
)

var validWithdrawStatuses = []WithdrawStatus{
	WithdrawStatusPending,
	WithdrawStatusApproved,
	WithdrawStatusRejected,
	WithdrawStatusPaid,
}

// WithdrawTransitions is the withdrawal state machine.
var WithdrawTransitions = Transitions[WithdrawStatus]{
	WithdrawStatusPending:  {WithdrawStatusApproved, WithdrawStatusRejected},
	WithdrawStatusApproved: {WithdrawStatusPaid, WithdrawStatusRejected},
}

func (w WithdrawStatus) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WithdrawStatus.
func (w WithdrawStatus) IsValid() bool {
	return contains(validWithdrawStatuses, w)
}

// ParseWithdrawStatus converts raw input into a WithdrawStatus.
func ParseWithdrawStatus(value string) (WithdrawStatus, error) {
	return parse(validWithdrawStatuses, value, "withdraw status")
}

// WithdrawMode selects the destination type of a withdrawal.
type WithdrawMode string

const (
	WithdrawModeBank WithdrawMode = "bank"
	WithdrawModeUPI  WithdrawMode = "upi"
)

var validWithdrawModes = []WithdrawMode{
	WithdrawModeBank,
	WithdrawModeUPI,
}

func (w WithdrawMode) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WithdrawMode.
func (w WithdrawMode) IsValid() bool {
	return contains(validWithdrawModes, w)
}

// ParseWithdrawMode converts raw input into a WithdrawMode.
func ParseWithdrawMode(value string) (WithdrawMode, error) {
	return parse(validWithdrawModes, value, "withdraw mode")
}
