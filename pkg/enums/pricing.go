package enums

// DiscountType selects how a coupon value is applied.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

var validDiscountTypes = []DiscountType{DiscountTypePercentage, DiscountTypeFixed}

func (d DiscountType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DiscountType.
func (d DiscountType) IsValid() bool {
	return contains(validDiscountTypes, d)
}

// ParseDiscountType converts raw input into a DiscountType.
func ParseDiscountType(value string) (DiscountType, error) {
	return parse(validDiscountTypes, value, "discount type")
}

// CommissionType selects how a promotor commission is computed.
type CommissionType string

const (
	CommissionTypePercentage CommissionType = "percentage"
	CommissionTypeFixed      CommissionType = "fixed"
)

var validCommissionTypes = []CommissionType{CommissionTypePercentage, CommissionTypeFixed}

func (c CommissionType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommissionType.
func (c CommissionType) IsValid() bool {
	return contains(validCommissionTypes, c)
}

// ParseCommissionType converts raw input into a CommissionType.
func ParseCommissionType(value string) (CommissionType, error) {
	return parse(validCommissionTypes, value, "commission type")
}

// TaxType says whether a product price already contains GST.
type TaxType string

const (
	TaxTypeInclusive TaxType = "inclusive"
	TaxTypeExclusive TaxType = "exclusive"
)

var validTaxTypes = []TaxType{TaxTypeInclusive, TaxTypeExclusive}

func (t TaxType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TaxType.
func (t TaxType) IsValid() bool {
	return contains(validTaxTypes, t)
}

// ParseTaxType converts raw input into a TaxType.
func ParseTaxType(value string) (TaxType, error) {
	return parse(validTaxTypes, value, "tax type")
}
