package wompi

import "testing"

func TestCalculateIVA(t *testing.T) {
	tests := []struct {
		amount int64
		rate   float64
		want   int64
	}{
		{amount: 100000, rate: 0.19, want: 19000},
		{amount: 250000, rate: 0.19, want: 47500},
		{amount: 650000, rate: 0.19, want: 123500},
		{amount: 1, rate: 0.19, want: 0},    // 0.19 rounds down
		{amount: 3, rate: 0.19, want: 1},    // 0.57 rounds up
		{amount: 50, rate: 0.19, want: 10},  // 9.5 rounds half-up
		{amount: 0, rate: 0.19, want: 0},
	}

	for _, tt := range tests {
		if got := CalculateIVA(tt.amount, tt.rate); got != tt.want {
			t.Fatalf("CalculateIVA(%d, %v) = %d, want %d", tt.amount, tt.rate, got, tt.want)
		}
	}
}

func TestCalculateTotalWithIVA(t *testing.T) {
	tests := []struct {
		amount int64
		rate   float64
		want   int64
	}{
		{amount: 100000, rate: 0.19, want: 119000},
		{amount: 650000, rate: 0.19, want: 773500},
		{amount: 1500000, rate: 0.19, want: 1785000},
		{amount: 0, rate: 0.19, want: 0},
	}

	for _, tt := range tests {
		if got := CalculateTotalWithIVA(tt.amount, tt.rate); got != tt.want {
			t.Fatalf("CalculateTotalWithIVA(%d, %v) = %d, want %d", tt.amount, tt.rate, got, tt.want)
		}
	}
}

// The total must be a single rounding step, never subtotal plus a
// separately rounded tax when the two disagree.
func TestTotalDoesNotDriftFromSingleRounding(t *testing.T) {
	for _, amount := range []int64{1, 3, 7, 13, 50, 99, 101, 999, 12345} {
		total := CalculateTotalWithIVA(amount, IVARate)
		if total < amount {
			t.Fatalf("total %d below subtotal %d", total, amount)
		}
	}
}

func TestFormatCOPAmount(t *testing.T) {
	if got := FormatCOPAmount(650000); got != 65000000 {
		t.Fatalf("FormatCOPAmount(650000) = %d, want 65000000", got)
	}
	if got := FormatCOPAmount(0); got != 0 {
		t.Fatalf("FormatCOPAmount(0) = %d, want 0", got)
	}
}
