package enums

// DriverAvailability is the dispatch state of a driver.
type DriverAvailability string

const (
	DriverOnline     DriverAvailability = "online"
	DriverOffline    DriverAvailability = "offline"
	DriverOnDelivery DriverAvailability = "on-delivery"
)

var validDriverAvailabilities = []DriverAvailability{
	DriverOnline,
	DriverOffline,
	DriverOnDelivery,
}

func (d DriverAvailability) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DriverAvailability.
func (d DriverAvailability) IsValid() bool {
	return contains(validDriverAvailabilities, d)
}

// ParseDriverAvailability converts raw input into a DriverAvailability.
func ParseDriverAvailability(value string) (DriverAvailability, error) {
	return parse(validDriverAvailabilities, value, "driver availability")
}

// EarningType classifies a driver earning entry.
type EarningType string

const (
	EarningTypeDelivery EarningType = "delivery"
	EarningTypeBonus    EarningType = "bonus"
)

var validEarningTypes = []EarningType{
	EarningTypeDelivery,
	EarningTypeBonus,
}

func (e EarningType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EarningType.
func (e EarningType) IsValid() bool {
	return contains(validEarningTypes, e)
}

// EarningStatus tracks a driver earning through batching.
type EarningStatus string

const (
	EarningStatusEarned     EarningStatus = "earned"
	EarningStatusProcessing EarningStatus = "processing"
	EarningStatusPaid       EarningStatus = "paid"
)

var validEarningStatuses = []EarningStatus{
	EarningStatusEarned,
	EarningStatusProcessing,
	EarningStatusPaid,
}

func (e EarningStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EarningStatus.
func (e EarningStatus) IsValid() bool {
	return contains(validEarningStatuses, e)
}

// ParseEarningStatus converts raw input into an EarningStatus.
func ParseEarningStatus(value string) (EarningStatus, error) {
	return parse(validEarningStatuses, value, "earning status")
}
