package commission

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/relaymart-backend/pkg/db/models"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
)

func defaultRates() Rates {
	return Rates{
		PlatformFee: decimal.NewFromInt(10),
		GST:         decimal.NewFromInt(18),
		TDS:         decimal.NewFromInt(1),
	}
}

func TestCalculatePercentagePromotor(t *testing.T) {
	got, err := Calculate(Input{
		Lines:         []Line{{Quantity: 1, LineTotal: 100000}},
		Promotor:      &Terms{Type: enums.CommissionTypePercentage, Rate: decimal.NewFromInt(5)},
		Rates:         defaultRates(),
		SellerState:   "KA",
		PlatformState: "KA",
	})
	require.NoError(t, err)

	require.EqualValues(t, 100000, got.OrderAmount)
	require.EqualValues(t, 5000, got.Commission)
	require.EqualValues(t, 9500, got.PlatformFee)
	require.EqualValues(t, 85500, got.Payable)
	require.EqualValues(t, 1710, got.GSTOnFee.GST)
	require.EqualValues(t, 855, got.GSTOnFee.CGST)
	require.EqualValues(t, 855, got.GSTOnFee.SGST)
	require.EqualValues(t, 855, got.TDS)
	require.EqualValues(t, 82935, got.Net)
}

func TestCalculateInterStatePlatformFeeUsesIGST(t *testing.T) {
	got, err := Calculate(Input{
		Lines:         []Line{{Quantity: 1, LineTotal: 100000}},
		Rates:         defaultRates(),
		SellerState:   "MH",
		PlatformState: "KA",
	})
	require.NoError(t, err)
	require.EqualValues(t, 10000, got.PlatformFee)
	require.EqualValues(t, 1800, got.GSTOnFee.IGST)
	require.Zero(t, got.GSTOnFee.CGST)
	require.EqualValues(t, 900, got.TDS)
	require.EqualValues(t, 100000-10000-1800-900, got.Net)
}

func TestCalculateFixedCommissionPerUnit(t *testing.T) {
	got, err := Calculate(Input{
		Lines: []Line{
			{Quantity: 3, LineTotal: 30000},
			{Quantity: 2, LineTotal: 10000},
		},
		Promotor: &Terms{Type: enums.CommissionTypeFixed, Rate: decimal.NewFromInt(500)},
		Rates:    defaultRates(),
	})
	require.NoError(t, err)
	require.EqualValues(t, 40000, got.OrderAmount)
	require.Equal(t, 5, got.TotalQuantity)
	require.EqualValues(t, 2500, got.Commission)
	require.EqualValues(t, 3750, got.PlatformFee)
	require.EqualValues(t, 33750, got.Payable)
}

func TestCalculateComponentsReconcileAcrossRoundings(t *testing.T) {
	terms := &Terms{Type: enums.CommissionTypePercentage, Rate: decimal.RequireFromString("7.25")}
	for total := int64(101); total < 50000; total += 997 {
		got, err := Calculate(Input{
			Lines:    []Line{{Quantity: 1, LineTotal: total}, {Quantity: 2, LineTotal: total / 3}},
			Promotor: terms,
			Rates:    defaultRates(),
		})
		require.NoError(t, err)
		require.Equal(t, got.OrderAmount, got.Net+got.Commission+got.PlatformFee+got.GSTOnFee.GST+got.TDS)
	}
}

func TestCalculateIsIdempotent(t *testing.T) {
	in := Input{
		Lines:    []Line{{Quantity: 4, LineTotal: 123457}},
		Promotor: &Terms{Type: enums.CommissionTypePercentage, Rate: decimal.RequireFromString("3.3")},
		Rates:    defaultRates(),
	}
	first, err := Calculate(in)
	require.NoError(t, err)
	second, err := Calculate(in)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCalculateRejectsNegativeShare(t *testing.T) {
	_, err := Calculate(Input{
		Lines:    []Line{{Quantity: 10, LineTotal: 1000}},
		Promotor: &Terms{Type: enums.CommissionTypeFixed, Rate: decimal.NewFromInt(500)},
		Rates:    defaultRates(),
	})
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))
}

func TestCalculateRejectsBadInput(t *testing.T) {
	_, err := Calculate(Input{Rates: defaultRates()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = Calculate(Input{
		Lines:    []Line{{Quantity: 1, LineTotal: 100}},
		Promotor: &Terms{Type: enums.CommissionTypePercentage, Rate: decimal.NewFromInt(-1)},
		Rates:    defaultRates(),
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	rates := defaultRates()
	rates.TDS = decimal.NewFromInt(101)
	_, err = Calculate(Input{Lines: []Line{{Quantity: 1, LineTotal: 100}}, Rates: rates})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestVerify(t *testing.T) {
	terms := &Terms{Type: enums.CommissionTypePercentage, Rate: decimal.RequireFromString("4.5")}
	got, err := Calculate(Input{
		Lines:    []Line{{Quantity: 2, LineTotal: 45555}, {Quantity: 1, LineTotal: 1999}},
		Promotor: terms,
		Rates:    defaultRates(),
	})
	require.NoError(t, err)

	ct := enums.CommissionTypePercentage
	stored := models.SellerPayout{
		OrderAmountPaise: got.OrderAmount,
		TotalQuantity:    got.TotalQuantity,
		CommissionType:   &ct,
		CommissionRate:   terms.Rate,
		CommissionPaise:  got.Commission,
		PlatformFeeRate:  got.Rates.PlatformFee,
		PlatformFeePaise: got.PlatformFee,
		GSTRate:          got.Rates.GST,
		GSTOnFeePaise:    got.GSTOnFee.GST,
		TDSRate:          got.Rates.TDS,
		TDSPaise:         got.TDS,
		PayablePaise:     got.Payable,
		NetAmountPaise:   got.Net,
	}
	require.NoError(t, Verify(stored))

	stored.NetAmountPaise++
	require.Error(t, Verify(stored))
}
