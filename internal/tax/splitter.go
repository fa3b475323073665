// Package tax splits GST for a taxable amount. The same Split backs order
// line taxes and the GST charged on the platform fee.
package tax

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
	"github.com/angelmondragon/relaymart-backend/pkg/money"
)

var hundred = decimal.NewFromInt(100)

// Input describes one GST computation. Amount is paise; Rate is a percentage.
type Input struct {
	Amount      decimal.Decimal
	Rate        decimal.Decimal
	Type        enums.TaxType
	SellerState string
	BuyerState  string
}

// Breakdown is the rounded result in paise. CGST+SGST or IGST always equals
// GST.
type Breakdown struct {
	Taxable    int64 `json:"taxable_paise"`
	GST        int64 `json:"gst_paise"`
	CGST       int64 `json:"cgst_paise"`
	SGST       int64 `json:"sgst_paise"`
	IGST       int64 `json:"igst_paise"`
	InterState bool  `json:"inter_state"`
}

// Total is the taxable value plus tax.
func (b Breakdown) Total() int64 {
	return b.Taxable + b.GST
}

// Split computes taxable value and GST. Inclusive amounts have the tax carved
// out (taxable = amount / (1 + r/100)); exclusive amounts have it added
// on top.
func Split(in Input) (Breakdown, error) {
	if in.Amount.IsNegative() {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "tax amount must not be negative").
			WithDetails(map[string]any{"amount": in.Amount.String()})
	}
	if in.Rate.IsNegative() {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "tax rate must not be negative").
			WithDetails(map[string]any{"rate": in.Rate.String()})
	}

	var taxable, gst decimal.Decimal
	switch in.Type {
	case enums.TaxTypeInclusive:
		taxable = in.Amount.Mul(hundred).Div(hundred.Add(in.Rate))
		gst = in.Amount.Sub(taxable)
	case enums.TaxTypeExclusive:
		taxable = in.Amount
		gst = money.Percent(in.Amount, in.Rate)
	default:
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown tax type").
			WithDetails(map[string]any{"tax_type": string(in.Type)})
	}

	out := Breakdown{
		Taxable:    money.ToPaise(taxable),
		InterState: !SameState(in.SellerState, in.BuyerState),
	}
	if in.Type == enums.TaxTypeInclusive {
		// keep taxable + gst equal to the inclusive amount after rounding
		out.GST = money.ToPaise(in.Amount) - out.Taxable
	} else {
		out.GST = money.ToPaise(gst)
	}

	if out.InterState {
		out.IGST = out.GST
	} else {
		out.CGST = money.ToPaise(decimal.NewFromInt(out.GST).Div(decimal.NewFromInt(2)))
		out.SGST = out.GST - out.CGST
	}
	return out, nil
}

// SameState compares state codes ignoring case and surrounding space. An
// unknown state on either side counts as inter-state.
func SameState(a, b string) bool {
	a = strings.ToUpper(strings.TrimSpace(a))
	b = strings.ToUpper(strings.TrimSpace(b))
	return a != "" && a == b
}
