package charts

import (
	"bytes"
	"testing"

	"wealthplanner/internal/core"
	"wealthplanner/internal/finance"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestSavingsTrendPNG(t *testing.T) {
	tests := []struct {
		name    string
		monthly map[int]int64
	}{
		{"empty year", nil},
		{"some savings", map[int]int64{0: 10000, 5: 25050}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := finance.SavingsReport{Year: 2026}
			for m, cents := range tt.monthly {
				r.Monthly[m] = core.Money{Cents: cents}
			}
			img, err := SavingsTrendPNG(r, "$")
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if !bytes.HasPrefix(img, pngMagic) {
				t.Fatalf("output is not a PNG")
			}
		})
	}
}
