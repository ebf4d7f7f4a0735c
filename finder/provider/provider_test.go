package provider

import (
	"math"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name  string
		raw   *string
		valid bool
		want  string
	}{
		{"nil", nil, false, ""},
		{"empty", strPtr(""), false, ""},
		{"nan", strPtr("NaN"), false, ""},
		{"inf", strPtr("Inf"), false, ""},
		{"garbage", strPtr("n/a"), false, ""},
		{"price", strPtr("0.052300"), true, "0.0523"},
		{"padded", strPtr(" 1.5 "), true, "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrice(tt.raw)
			if got.Valid != tt.valid {
				t.Fatalf("valid: expected %v, got %v", tt.valid, got.Valid)
			}
			if tt.valid && !got.Decimal.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("expected %s, got %s", tt.want, got.Decimal)
			}
		})
	}
}

func TestMonthlyCost(t *testing.T) {
	got := MonthlyCost(decimal.RequireFromString("0.20"))
	if !got.Equal(decimal.RequireFromString("148.8")) {
		t.Errorf("expected 148.8, got %s", got)
	}
}

func TestJoinedRecord_SpotPrice(t *testing.T) {
	if _, ok := (JoinedRecord{InstanceType: "m5.large"}).SpotPrice(); ok {
		t.Error("expected no price for a catalog-only row")
	}

	r := JoinedRecord{Price: &PricedObservation{PriceObservation: PriceObservation{SpotPrice: decimal.NewNullDecimal(decimal.RequireFromString("0.05"))}}}
	p, ok := r.SpotPrice()
	if !ok || !p.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("expected 0.05, got %s (ok=%v)", p, ok)
	}
}

func TestJoinedRecord_SavingsPercent(t *testing.T) {
	r := JoinedRecord{
		Price:         &PricedObservation{PriceObservation: PriceObservation{SpotPrice: decimal.NewNullDecimal(decimal.RequireFromString("0.03"))}},
		OnDemandPrice: decimal.NewNullDecimal(decimal.RequireFromString("0.12")),
	}
	got, ok := r.SavingsPercent()
	if !ok {
		t.Fatal("expected savings to be known")
	}
	if math.Abs(got-75) > 1e-9 {
		t.Errorf("expected 75%%, got %v", got)
	}

	r.OnDemandPrice = decimal.NullDecimal{}
	if _, ok := r.SavingsPercent(); ok {
		t.Error("expected unknown savings without on-demand price")
	}
}

func TestNormalizedCost(t *testing.T) {
	spec := &InstanceSpec{InstanceType: "m5.large", MemoryGB: 8, VCpu: 2}

	vcpu, memory := NormalizedCost(0.096, spec)

	expectedMemory := 0.096 / (7.2*2 + 8)
	expectedVCpu := 7.2 * expectedMemory
	if math.Abs(vcpu-expectedVCpu) > 1e-10 {
		t.Errorf("vcpu cost: expected %v, got %v", expectedVCpu, vcpu)
	}
	if math.Abs(memory-expectedMemory) > 1e-10 {
		t.Errorf("memory cost: expected %v, got %v", expectedMemory, memory)
	}
}

func TestNormalizedCost_NoSpec(t *testing.T) {
	vcpu, memory := NormalizedCost(0.1, nil)
	if vcpu != 0 || memory != 0 {
		t.Errorf("expected (0, 0), got (%v, %v)", vcpu, memory)
	}

	vcpu, memory = NormalizedCost(0.1, &InstanceSpec{})
	if vcpu != 0 || memory != 0 {
		t.Errorf("expected (0, 0) for empty spec, got (%v, %v)", vcpu, memory)
	}
}

func TestIsMatchAny(t *testing.T) {
	regexes := []*regexp.Regexp{regexp.MustCompile(`^m5\.`), regexp.MustCompile(`^c6g\.`)}
	if !IsMatchAny(regexes, "m5.large") {
		t.Error("expected m5.large to match")
	}
	if IsMatchAny(regexes, "t3.micro") {
		t.Error("expected t3.micro not to match")
	}
	if !IsMatchAny(nil, "t3.micro") {
		t.Error("expected an empty list to match everything")
	}
}

func TestContains(t *testing.T) {
	if !Contains([]string{"a", "b"}, "b") {
		t.Error("expected b to be found")
	}
	if Contains(nil, "a") {
		t.Error("expected nothing in a nil slice")
	}
}
