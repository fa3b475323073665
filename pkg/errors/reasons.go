package errors

// Reason distinguishes the flavors of a coded error (mostly STATE_CONFLICT)
// so clients can branch without parsing messages.
type Reason string

const (
	ReasonAlreadyAssigned      Reason = "already_assigned"
	ReasonAlreadyPaid          Reason = "already_paid"
	ReasonInvalidTransition    Reason = "invalid_transition"
	ReasonNoPendingFunds       Reason = "no_pending_funds"
	ReasonAmountMismatch       Reason = "amount_mismatch"
	ReasonSecretCodeUnverified Reason = "secret_code_unverified"
	ReasonDuplicatePayout      Reason = "duplicate_payout"
	ReasonNotAssignedDriver    Reason = "not_assigned_driver"
	ReasonDriverUnavailable    Reason = "driver_unavailable"
)

// Conflict builds a STATE_CONFLICT error tagged with reason. Extra detail
// fields may be supplied and are merged next to the reason.
func Conflict(reason Reason, message string, extra map[string]any) *Error {
	details := map[string]any{"reason": string(reason)}
	for k, v := range extra {
		details[k] = v
	}
	return New(CodeStateConflict, message).WithDetails(details)
}

// ReasonOf returns the reason stored in the details map, if any.
func ReasonOf(err error) Reason {
	typed := As(err)
	if typed == nil {
		return ""
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return ""
	}
	value, _ := details["reason"].(string)
	return Reason(value)
}

// IsCode reports whether err carries the provided code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
