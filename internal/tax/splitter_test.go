package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want Breakdown
	}{
		{
			name: "exclusive intra-state",
			in:   Input{Amount: d("9500"), Rate: d("18"), Type: enums.TaxTypeExclusive, SellerState: "KA", BuyerState: "ka"},
			want: Breakdown{Taxable: 9500, GST: 1710, CGST: 855, SGST: 855},
		},
		{
			name: "exclusive inter-state",
			in:   Input{Amount: d("9500"), Rate: d("18"), Type: enums.TaxTypeExclusive, SellerState: "KA", BuyerState: "MH"},
			want: Breakdown{Taxable: 9500, GST: 1710, IGST: 1710, InterState: true},
		},
		{
			name: "inclusive carves tax out",
			in:   Input{Amount: d("11800"), Rate: d("18"), Type: enums.TaxTypeInclusive, SellerState: "KA", BuyerState: "KA"},
			want: Breakdown{Taxable: 10000, GST: 1800, CGST: 900, SGST: 900},
		},
		{
			name: "inclusive rounding keeps total",
			in:   Input{Amount: d("10000"), Rate: d("5"), Type: enums.TaxTypeInclusive, SellerState: "DL", BuyerState: "DL"},
			want: Breakdown{Taxable: 9524, GST: 476, CGST: 238, SGST: 238},
		},
		{
			name: "odd gst splits unevenly but sums",
			in:   Input{Amount: d("1100"), Rate: d("1"), Type: enums.TaxTypeExclusive, SellerState: "KA", BuyerState: "KA"},
			want: Breakdown{Taxable: 1100, GST: 11, CGST: 6, SGST: 5},
		},
		{
			name: "zero rate",
			in:   Input{Amount: d("5000"), Rate: d("0"), Type: enums.TaxTypeExclusive, SellerState: "KA", BuyerState: "KA"},
			want: Breakdown{Taxable: 5000},
		},
		{
			name: "unknown state is inter-state",
			in:   Input{Amount: d("1000"), Rate: d("18"), Type: enums.TaxTypeExclusive, SellerState: "KA"},
			want: Breakdown{Taxable: 1000, GST: 180, IGST: 180, InterState: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, got.GST, got.CGST+got.SGST+got.IGST)
		})
	}
}

func TestSplitHalvesAlwaysSum(t *testing.T) {
	for paise := int64(1); paise < 2000; paise += 7 {
		got, err := Split(Input{Amount: decimal.NewFromInt(paise), Rate: d("18"), Type: enums.TaxTypeExclusive, SellerState: "KA", BuyerState: "KA"})
		require.NoError(t, err)
		require.Equal(t, got.GST, got.CGST+got.SGST)
		require.LessOrEqual(t, got.SGST-got.CGST, int64(1))
	}
}

func TestSplitRejectsBadInput(t *testing.T) {
	for name, in := range map[string]Input{
		"negative amount": {Amount: d("-1"), Rate: d("18"), Type: enums.TaxTypeExclusive},
		"negative rate":   {Amount: d("1"), Rate: d("-5"), Type: enums.TaxTypeExclusive},
		"unknown type":    {Amount: d("1"), Rate: d("18"), Type: "gross"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Split(in)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}
