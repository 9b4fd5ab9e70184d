package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

var testFees = FeeTable{
	"القاهرة":    d("50"),
	"الجيزة":     d("50"),
	"الإسكندرية": d("60"),
	"أسوان":      d("80"),
}

func TestResolveDelivery(t *testing.T) {
	tests := []struct {
		name      string
		subtotal  string
		region    string
		fees      FeeTable
		threshold string
		wantFee   string
		wantFree  bool
		wantTotal string
	}{
		{"below threshold uses region fee", "200", "القاهرة", testFees, "300", "50", false, "250"},
		{"at threshold is free", "300", "القاهرة", testFees, "300", "0", true, "300"},
		{"above threshold is free", "350", "القاهرة", testFees, "300", "0", true, "350"},
		{"threshold disabled", "5000", "أسوان", testFees, "0", "80", false, "5080"},
		{"no region uses average", "100", "", testFees, "0", "60", false, "160"},
		{"unknown region uses average", "100", "Atlantis", testFees, "0", "60", false, "160"},
		{"empty table", "100", "القاهرة", FeeTable{}, "0", "0", false, "100"},
		{"nil table", "100", "القاهرة", nil, "300", "0", false, "100"},
		{"empty table above threshold", "400", "القاهرة", nil, "300", "0", true, "400"},
		{"configured zero fee honoured", "100", "Free Zone", FeeTable{"Free Zone": d("0"), "Other": d("90")}, "0", "0", false, "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveDelivery(d(tt.subtotal), tt.region, tt.fees, d(tt.threshold))
			if !got.Fee.Equal(d(tt.wantFee)) {
				t.Errorf("fee: expected %s, got %s", tt.wantFee, got.Fee)
			}
			if got.IsFree != tt.wantFree {
				t.Errorf("isFree: expected %v, got %v", tt.wantFree, got.IsFree)
			}
			if !got.Total.Equal(d(tt.wantTotal)) {
				t.Errorf("total: expected %s, got %s", tt.wantTotal, got.Total)
			}
		})
	}
}

func TestResolveDelivery_RegionFeeIndependentOfSubtotal(t *testing.T) {
	for _, sub := range []string{"0", "1", "99.99", "299.99"} {
		for region, fee := range testFees {
			got := ResolveDelivery(d(sub), region, testFees, d("300"))
			if !got.Fee.Equal(fee) {
				t.Errorf("subtotal %s region %s: expected fee %s, got %s", sub, region, fee, got.Fee)
			}
		}
	}
}

func TestResolveDelivery_Pure(t *testing.T) {
	first := ResolveDelivery(d("120"), "الجيزة", testFees, d("300"))
	second := ResolveDelivery(d("120"), "الجيزة", testFees, d("300"))
	if !first.Fee.Equal(second.Fee) || first.IsFree != second.IsFree || !first.Total.Equal(second.Total) {
		t.Errorf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestFeeTable_AverageRounds(t *testing.T) {
	fees := FeeTable{"a": d("50"), "b": d("55"), "c": d("70")}
	if got := fees.Average(); !got.Equal(d("58.33")) {
		t.Errorf("expected 58.33, got %s", got)
	}
}

func TestRates_Resolve(t *testing.T) {
	r := Rates{Fees: testFees, Threshold: d("300")}
	got := r.Resolve(d("200"), "الإسكندرية")
	if !got.Total.Equal(d("260")) {
		t.Errorf("expected total 260, got %s", got.Total)
	}
}
