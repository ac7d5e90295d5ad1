package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func items(prices ...string) []OrderItem {
	out := make([]OrderItem, 0, len(prices))
	for _, p := range prices {
		out = append(out, OrderItem{Name: "va", Price: decimal.RequireFromString(p)})
	}
	return out
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name     string
		prices   []string
		pct      string
		discount string
		total    string
	}{
		{"no discount", []string{"99"}, "0", "0", "99"},
		{"ten percent", []string{"99"}, "0.10", "9.9", "89.1"},
		{"half cent rounds up", []string{"0.05"}, "0.5", "0.03", "0.02"},
		{"full discount floors at zero", []string{"10", "20"}, "1.5", "45", "0"},
		{"negative pct ignored", []string{"10"}, "-0.2", "0", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotals(items(tt.prices...), decimal.RequireFromString(tt.pct))
			assert.True(t, got.DiscountAmount.Equal(decimal.RequireFromString(tt.discount)), "discount %s", got.DiscountAmount)
			assert.True(t, got.Total.Equal(decimal.RequireFromString(tt.total)), "total %s", got.Total)
		})
	}
}

func TestPriceOrDefault(t *testing.T) {
	assert.True(t, PriceOrDefault(decimal.Zero).Equal(DefaultListingPrice))
	assert.True(t, PriceOrDefault(decimal.NewFromInt(150)).Equal(decimal.NewFromInt(150)))
}

func TestClassifyPaymentStatus(t *testing.T) {
	assert.Equal(t, PaymentPaid, ClassifyPaymentStatus(" Finished "))
	assert.Equal(t, PaymentPaid, ClassifyPaymentStatus("confirmed"))
	assert.Equal(t, PaymentInFlight, ClassifyPaymentStatus("partially_paid"))
	assert.Equal(t, PaymentFailed, ClassifyPaymentStatus("CANCELLED"))
	assert.Equal(t, PaymentOther, ClassifyPaymentStatus("sending"))
	assert.Equal(t, PaymentOther, ClassifyPaymentStatus(""))
}

func TestNormalizeDiscountCode(t *testing.T) {
	code, ok := NormalizeDiscountCode(" save10 ")
	assert.True(t, ok)
	assert.Equal(t, "SAVE10", code)

	_, ok = NormalizeDiscountCode("a!")
	assert.False(t, ok)
}
