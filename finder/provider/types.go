package provider

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// HoursPerMonth is the length of a nominal 31-day month.
	HoursPerMonth = 744

	// AWS doesn't share the relationship between CPU and memory cost for each
	// instance type, so the GCP one is used as an approximation:
	//
	// CPU-cost = 7.2 * memory-GB-cost
	//
	// https://engineering.empathy.co/cloud-finops-part-4-kubernetes-cost-report/
	CpuMemRelation = 7.2
)

var hoursPerMonth = decimal.NewFromInt(HoursPerMonth)

// PriceObservation is a single spot price sample for an instance type in an
// availability zone.
type PriceObservation struct {
	InstanceType       string
	SpotPrice          decimal.NullDecimal
	AvailabilityZone   string
	Region             string
	ProductDescription string
	Timestamp          time.Time
}

// PricedObservation is an observation with a valid price and its derived
// monthly cost.
type PricedObservation struct {
	PriceObservation
	MonthlyCost decimal.Decimal
}

// MonthlyCost returns price × HoursPerMonth.
func MonthlyCost(price decimal.Decimal) decimal.Decimal {
	return price.Mul(hoursPerMonth)
}

// InstanceSpec describes the resources of an instance type.
type InstanceSpec struct {
	InstanceType       string
	MemoryGB           float64
	VCpu               int32
	NetworkPerformance string
}

// JoinedRecord is one row of the outer join between priced observations and
// the instance catalog. Price is nil for catalog entries without a current
// observation, Spec is nil for instance types missing from the catalog.
type JoinedRecord struct {
	InstanceType string
	Price        *PricedObservation
	Spec         *InstanceSpec

	// OnDemandPrice is only set when on-demand enrichment was requested.
	OnDemandPrice decimal.NullDecimal
}

// SpotPrice returns the row's spot price and whether it has one.
func (r JoinedRecord) SpotPrice() (decimal.Decimal, bool) {
	if r.Price == nil || !r.Price.SpotPrice.Valid {
		return decimal.Zero, false
	}
	return r.Price.SpotPrice.Decimal, true
}

// SavingsPercent returns how much cheaper the spot price is than on-demand,
// in percent. ok is false unless both prices are known and on-demand is
// positive.
func (r JoinedRecord) SavingsPercent() (savings float64, ok bool) {
	spot, hasSpot := r.SpotPrice()
	if !hasSpot || !r.OnDemandPrice.Valid || !r.OnDemandPrice.Decimal.IsPositive() {
		return 0, false
	}
	ratio := spot.Div(r.OnDemandPrice.Decimal)
	savings, _ = decimal.NewFromInt(1).Sub(ratio).Mul(decimal.NewFromInt(100)).Float64()
	return savings, true
}

// NormalizedCost splits an hourly price into a per-vCPU and a per-GB-memory
// cost using CpuMemRelation. Returns (0, 0) when spec is nil or has no
// resources.
func NormalizedCost(price float64, spec *InstanceSpec) (vcpuCost, memoryCost float64) {
	if spec == nil {
		return 0, 0
	}
	denom := CpuMemRelation*float64(spec.VCpu) + spec.MemoryGB
	if denom == 0 {
		return 0, 0
	}
	memoryCost = price / denom
	vcpuCost = CpuMemRelation * memoryCost
	return vcpuCost, memoryCost
}
