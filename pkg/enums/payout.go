package enums

// RecipientType identifies who a payout is owed to.
type RecipientType string

const (
	RecipientSeller   RecipientType = "seller"
	RecipientPromotor RecipientType = "promotor"
	RecipientDriver   RecipientType = "driver"
)

var validRecipientTypes = []RecipientType{
	RecipientSeller,
	RecipientPromotor,
	RecipientDriver,
}

func (r RecipientType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RecipientType.
func (r RecipientType) IsValid() bool {
	return contains(validRecipientTypes, r)
}

// ParseRecipientType converts raw input into a RecipientType.
func ParseRecipientType(value string) (RecipientType, error) {
	return parse(validRecipientTypes, value, "recipient type")
}

// PayoutStatus is shared by payout batches and the seller/promotor payout
// records they group.
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusPaid       PayoutStatus = "paid"
	PayoutStatusFailed     PayoutStatus = "failed"
	PayoutStatusCancelled  PayoutStatus = "cancelled"
)

var validPayoutStatuses = []PayoutStatus{
	PayoutStatusPending,
	PayoutStatusProcessing,
	PayoutStatusPaid,
	PayoutStatusFailed,
	PayoutStatusCancelled,
}

// BatchTransitions is the payout batch state machine.
var BatchTransitions = Transitions[PayoutStatus]{
	PayoutStatusPending:    {PayoutStatusProcessing, PayoutStatusPaid, PayoutStatusFailed, PayoutStatusCancelled},
	PayoutStatusProcessing: {PayoutStatusPaid, PayoutStatusFailed},
}

func (p PayoutStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PayoutStatus.
func (p PayoutStatus) IsValid() bool {
	return contains(validPayoutStatuses, p)
}

// IsLive reports whether a batch in this status still owns its members.
func (p PayoutStatus) IsLive() bool {
	return p == PayoutStatusPending || p == PayoutStatusProcessing || p == PayoutStatusPaid
}

// ParsePayoutStatus converts raw input into a PayoutStatus.
func ParsePayoutStatus(value string) (PayoutStatus, error) {
	return parse(validPayoutStatuses, value, "payout status")
}

// PayoutMethod records how a batch was paid out.
type PayoutMethod string

const (
	PayoutMethodBankTransfer PayoutMethod = "bank_transfer"
	PayoutMethodUPI          PayoutMethod = "upi"
	PayoutMethodCash         PayoutMethod = "cash"
	PayoutMethodCheque       PayoutMethod = "cheque"
)

var validPayoutMethods = []PayoutMethod{
	PayoutMethodBankTransfer,
	PayoutMethodUPI,
	PayoutMethodCash,
	PayoutMethodCheque,
}

func (p PayoutMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PayoutMethod.
func (p PayoutMethod) IsValid() bool {
	return contains(validPayoutMethods, p)
}

// ParsePayoutMethod converts raw input into a PayoutMethod.
func ParsePayoutMethod(value string) (PayoutMethod, error) {
	return parse(validPayoutMethods, value, "payout method")
}
