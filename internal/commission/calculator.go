// Package commission computes what a delivered order owes the promotor, the
// platform, the tax authority and the seller. Calculate is the only place
// these formulas live.
package commission

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/relaymart-backend/internal/tax"
	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
	"github.com/angelmondragon/relaymart-backend/pkg/money"
)

// Line is one order line as settled: quantity and line total in paise.
type Line struct {
	Quantity  int
	LineTotal int64
}

// Terms is a promotor's commission agreement. Rate is a percentage for
// percentage terms and paise per unit for fixed terms.
type Terms struct {
	Type enums.CommissionType
	Rate decimal.Decimal
}

// Rates are the platform-wide percentages applied to the seller share.
type Rates struct {
	PlatformFee decimal.Decimal
	GST         decimal.Decimal
	TDS         decimal.Decimal
}

// Input is everything Calculate needs. Promotor is nil when the seller has
// no promotor.
type Input struct {
	Lines         []Line
	Promotor      *Terms
	Rates         Rates
	SellerState   string
	PlatformState string
}

// Settlement is the rounded outcome in paise. Payable = OrderAmount -
// Commission - PlatformFee and Net = Payable - GSTOnFee.GST - TDS exactly.
type Settlement struct {
	OrderAmount   int64
	TotalQuantity int
	Commission    int64
	PlatformFee   int64
	GSTOnFee      tax.Breakdown
	TDS           int64
	Payable       int64
	Net           int64
	Rates         Rates
	Promotor      *Terms
}

// Calculate settles an order. Components are accumulated per line without
// rounding and rounded to paise once, so the stored rates and totals always
// reproduce the stored amounts.
func Calculate(in Input) (Settlement, error) {
	if len(in.Lines) == 0 {
		return Settlement{}, pkgerrors.New(pkgerrors.CodeValidation, "settlement requires at least one line")
	}
	if err := in.validate(); err != nil {
		return Settlement{}, err
	}

	var (
		orderAmount int64
		quantity    int
		commission  = money.Zero
		fee         = money.Zero
		tds         = money.Zero
	)
	for i, line := range in.Lines {
		if line.Quantity <= 0 || line.LineTotal < 0 {
			return Settlement{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d has invalid quantity or total", i)).
				WithDetails(map[string]any{"line": i})
		}
		lineTotal := money.FromPaise(line.LineTotal)
		lineCommission := lineCommission(in.Promotor, lineTotal, line.Quantity)

		share := lineTotal.Sub(lineCommission)
		if share.IsNegative() {
			return Settlement{}, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "commission exceeds line total").
				WithDetails(map[string]any{
					"line":             i,
					"line_total_paise": line.LineTotal,
					"commission_paise": money.ToPaise(lineCommission),
				})
		}
		lineFee := money.Percent(share, in.Rates.PlatformFee)
		payable := share.Sub(lineFee)

		orderAmount += line.LineTotal
		quantity += line.Quantity
		commission = commission.Add(lineCommission)
		fee = fee.Add(lineFee)
		tds = tds.Add(money.Percent(payable, in.Rates.TDS))
	}

	gst, err := tax.Split(tax.Input{
		Amount:      fee,
		Rate:        in.Rates.GST,
		Type:        enums.TaxTypeExclusive,
		SellerState: in.PlatformState,
		BuyerState:  in.SellerState,
	})
	if err != nil {
		return Settlement{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compute gst on platform fee")
	}

	out := Settlement{
		OrderAmount:   orderAmount,
		TotalQuantity: quantity,
		Commission:    money.ToPaise(commission),
		PlatformFee:   money.ToPaise(fee),
		GSTOnFee:      gst,
		TDS:           money.ToPaise(tds),
		Rates:         in.Rates,
		Promotor:      in.Promotor,
	}
	out.Payable = out.OrderAmount - out.Commission - out.PlatformFee
	out.Net = out.Payable - out.GSTOnFee.GST - out.TDS

	if out.Net < 0 {
		return Settlement{}, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "deductions exceed order amount").
			WithDetails(out.detailMap())
	}
	return out, nil
}

func lineCommission(terms *Terms, lineTotal decimal.Decimal, quantity int) decimal.Decimal {
	if terms == nil {
		return money.Zero
	}
	switch terms.Type {
	case enums.CommissionTypePercentage:
		return money.Percent(lineTotal, terms.Rate)
	case enums.CommissionTypeFixed:
		return terms.Rate.Mul(decimal.NewFromInt(int64(quantity)))
	default:
		return money.Zero
	}
}

func (in Input) validate() error {
	for name, rate := range map[string]decimal.Decimal{
		"platform_fee_rate": in.Rates.PlatformFee,
		"gst_rate":          in.Rates.GST,
		"tds_rate":          in.Rates.TDS,
	} {
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "rate out of range").
				WithDetails(map[string]any{"field": name, "value": rate.String()})
		}
	}
	if in.Promotor != nil {
		if !in.Promotor.Type.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown commission type").
				WithDetails(map[string]any{"commission_type": string(in.Promotor.Type)})
		}
		if in.Promotor.Rate.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "commission rate must not be negative").
				WithDetails(map[string]any{"commission_rate": in.Promotor.Rate.String()})
		}
	}
	return nil
}

func (s Settlement) detailMap() map[string]any {
	return map[string]any{
		"order_amount_paise":        s.OrderAmount,
		"promotor_commission_paise": s.Commission,
		"platform_fee_paise":        s.PlatformFee,
		"gst_on_platform_fee_paise": s.GSTOnFee.GST,
		"tds_paise":                 s.TDS,
		"net_amount_paise":          s.Net,
	}
}

// Verify recomputes a stored seller payout from its own rates and totals and
// reports the first component that disagrees.
func Verify(p models.SellerPayout) error {
	in := Input{
		Lines: []Line{{Quantity: p.TotalQuantity, LineTotal: p.OrderAmountPaise}},
		Rates: Rates{PlatformFee: p.PlatformFeeRate, GST: p.GSTRate, TDS: p.TDSRate},
	}
	if p.CommissionType != nil {
		in.Promotor = &Terms{Type: *p.CommissionType, Rate: p.CommissionRate}
	}

	want, err := Calculate(in)
	if err != nil {
		return err
	}

	checks := []struct {
		name        string
		stored, got int64
	}{
		{"promotor_commission_paise", p.CommissionPaise, want.Commission},
		{"platform_fee_paise", p.PlatformFeePaise, want.PlatformFee},
		{"gst_on_platform_fee_paise", p.GSTOnFeePaise, want.GSTOnFee.GST},
		{"tds_paise", p.TDSPaise, want.TDS},
		{"payable_paise", p.PayablePaise, want.Payable},
		{"net_amount_paise", p.NetAmountPaise, want.Net},
	}
	for _, c := range checks {
		if c.stored != c.got {
			return pkgerrors.New(pkgerrors.CodeInternal, "stored payout does not reconcile").
				WithDetails(map[string]any{"field": c.name, "stored": c.stored, "expected": c.got})
		}
	}
	return nil
}
