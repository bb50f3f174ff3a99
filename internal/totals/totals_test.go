package totals

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nd(s string) decimal.NullDecimal { return decimal.NewNullDecimal(d(s)) }

func TestComputeTaxRate(t *testing.T) {
	got, err := Compute([]Item{{Quantity: d("2"), UnitPrice: d("100")}}, Adjustments{TaxRate: nd("0.1")})
	require.NoError(t, err)

	assert.True(t, got.Subtotal.Equal(d("200")), "subtotal %s", got.Subtotal)
	assert.True(t, got.TaxAmount.Equal(d("20")), "tax %s", got.TaxAmount)
	assert.True(t, got.DiscountAmount.IsZero())
	assert.True(t, got.Total.Equal(d("220")), "total %s", got.Total)
}

func TestComputeEmpty(t *testing.T) {
	got, err := Compute(nil, Adjustments{TaxRate: nd("0.2"), DiscountRate: nd("0.1")})
	require.NoError(t, err)
	assert.True(t, got.Subtotal.IsZero())
	assert.True(t, got.TaxAmount.IsZero())
	assert.True(t, got.DiscountAmount.IsZero())
	assert.True(t, got.Total.IsZero())
	assert.Empty(t, got.Lines)
}

func TestComputeExplicitAmountsWinOverRates(t *testing.T) {
	got, err := Compute(
		[]Item{{Quantity: d("1"), UnitPrice: d("50")}},
		Adjustments{DiscountAmount: nd("5"), DiscountRate: nd("0.5"), TaxAmount: nd("3.5"), TaxRate: nd("0.2")},
	)
	require.NoError(t, err)
	assert.True(t, got.DiscountAmount.Equal(d("5")))
	assert.True(t, got.TaxAmount.Equal(d("3.5")))
	assert.True(t, got.Total.Equal(d("48.5")))
}

func TestComputeClampsAtZero(t *testing.T) {
	got, err := Compute([]Item{{Quantity: d("1"), UnitPrice: d("10")}}, Adjustments{DiscountAmount: nd("25")})
	require.NoError(t, err)
	assert.True(t, got.Total.IsZero(), "total %s", got.Total)
}

func TestComputeLineRates(t *testing.T) {
	items := []Item{
		{Quantity: d("2"), UnitPrice: d("100"), DiscountRate: nd("0.1")}, // 180
		{Quantity: d("1"), UnitPrice: d("50"), TaxRate: nd("0.2")},       // 60
		{Quantity: d("3"), UnitPrice: d("9.99")},                        // 29.97
	}
	got, err := Compute(items, Adjustments{})
	require.NoError(t, err)

	require.Len(t, got.Lines, 3)
	assert.True(t, got.Lines[0].Equal(d("180")))
	assert.True(t, got.Lines[1].Equal(d("60")))
	assert.True(t, got.Lines[2].Equal(d("29.97")))
	assert.True(t, got.Subtotal.Equal(d("269.97")))
	assert.True(t, got.Total.Equal(d("269.97")))
}

func TestComputeRejectsNegativeAndOutOfRange(t *testing.T) {
	_, err := Compute([]Item{
		{Quantity: d("-1"), UnitPrice: d("10")},
		{Quantity: d("1"), UnitPrice: d("-10"), TaxRate: nd("1.5")},
	}, Adjustments{DiscountAmount: nd("-1")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "must_not_be_negative", appErr.Fields["items[0].quantity"])
	assert.Equal(t, "must_not_be_negative", appErr.Fields["items[1].unit_price"])
	assert.Equal(t, "out_of_range", appErr.Fields["items[1].tax_rate"])
	assert.Equal(t, "must_not_be_negative", appErr.Fields["discount_amount"])
}

func TestComputeIsIdempotent(t *testing.T) {
	items := []Item{
		{Quantity: d("1.5"), UnitPrice: d("19.99"), TaxRate: nd("0.055")},
		{Quantity: d("4"), UnitPrice: d("2.5")},
	}
	adj := Adjustments{DiscountRate: nd("0.05"), TaxRate: nd("0.2")}

	first, err := Compute(items, adj)
	require.NoError(t, err)
	second, err := Compute(items, adj)
	require.NoError(t, err)

	assert.True(t, first.Subtotal.Equal(second.Subtotal))
	assert.True(t, first.TaxAmount.Equal(second.TaxAmount))
	assert.True(t, first.DiscountAmount.Equal(second.DiscountAmount))
	assert.True(t, first.Total.Equal(second.Total))
}

// Without line rates the subtotal is exactly the sum of quantity x unit price,
// including fractional quantities.
func TestSubtotalIsSumOfLines(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 200; run++ {
		n := rng.Intn(8)
		items := make([]Item, n)
		want := decimal.Zero
		for i := range items {
			qty := decimal.New(int64(rng.Intn(50_000)), -3)
			price := decimal.New(int64(rng.Intn(1_000_000)), -2)
			items[i] = Item{Quantity: qty, UnitPrice: price}
			want = want.Add(qty.Mul(price))
		}

		got, err := Compute(items, Adjustments{})
		require.NoError(t, err)
		require.True(t, got.Subtotal.Equal(want), "run %d: subtotal %s, want %s", run, got.Subtotal, want)
		require.True(t, got.Total.Equal(want), "run %d: total %s, want %s", run, got.Total, want)
	}
}

func TestRoundedKeepsTotalConsistent(t *testing.T) {
	got, err := Compute([]Item{
		{Quantity: d("1.5"), UnitPrice: d("19.99")},
		{Quantity: d("0.333"), UnitPrice: d("1")},
	}, Adjustments{TaxRate: nd("0.1")})
	require.NoError(t, err)
	assert.True(t, got.Subtotal.Equal(d("30.318")), "subtotal %s", got.Subtotal)
	assert.True(t, got.Lines[0].Equal(d("29.985")), "line %s", got.Lines[0])

	r := got.Rounded()
	assert.True(t, r.Subtotal.Equal(d("30.32")), "subtotal %s", r.Subtotal)
	assert.True(t, r.Lines[0].Equal(d("29.99")), "line %s", r.Lines[0])
	assert.True(t, r.Lines[1].Equal(d("0.33")), "line %s", r.Lines[1])
	assert.True(t, r.TaxAmount.Equal(d("3.03")), "tax %s", r.TaxAmount)
	assert.True(t, r.Total.Equal(r.Subtotal.Sub(r.DiscountAmount).Add(r.TaxAmount)))
	assert.True(t, r.Total.Equal(d("33.35")), "total %s", r.Total)
}
