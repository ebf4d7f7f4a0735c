package finder

import (
	"sort"

	"github.com/pixelfederation/spot-finder/finder/catalog"
	"github.com/pixelfederation/spot-finder/finder/provider"
)

// DropInvalidPrices keeps the observations whose price is a valid number.
func DropInvalidPrices(observations []provider.PriceObservation) []provider.PriceObservation {
	out := make([]provider.PriceObservation, 0, len(observations))
	for _, o := range observations {
		if o.SpotPrice.Valid {
			out = append(out, o)
		}
	}
	return out
}

// WithMonthlyCost derives the monthly cost of every observation. Observations
// without a valid price never get one.
func WithMonthlyCost(observations []provider.PriceObservation) []provider.PricedObservation {
	out := make([]provider.PricedObservation, 0, len(observations))
	for _, o := range observations {
		if !o.SpotPrice.Valid {
			continue
		}
		out = append(out, provider.PricedObservation{
			PriceObservation: o,
			MonthlyCost:      provider.MonthlyCost(o.SpotPrice.Decimal),
		})
	}
	return out
}

// OuterJoin joins observations with the catalog on instance type. Every
// observation yields a row (Spec nil when the type is not in the catalog),
// followed by one row per catalog entry no observation matched (Price nil).
func OuterJoin(priced []provider.PricedObservation, cat *catalog.Catalog) []provider.JoinedRecord {
	matched := make(map[string]bool)
	out := make([]provider.JoinedRecord, 0, len(priced))
	for i := range priced {
		r := provider.JoinedRecord{
			InstanceType: priced[i].InstanceType,
			Price:        &priced[i],
		}
		if spec, ok := cat.Get(priced[i].InstanceType); ok {
			r.Spec = &spec
			matched[spec.InstanceType] = true
		}
		out = append(out, r)
	}
	for _, spec := range cat.Specs() {
		if matched[spec.InstanceType] {
			continue
		}
		out = append(out, provider.JoinedRecord{
			InstanceType: spec.InstanceType,
			Spec:         &spec,
		})
	}
	return out
}

// Qualifies reports whether a row meets the resource minimums. Rows missing
// either side of the join never qualify.
func Qualifies(r provider.JoinedRecord, minMemoryGB, minVCpu float64) bool {
	if r.Spec == nil {
		return false
	}
	if _, ok := r.SpotPrice(); !ok {
		return false
	}
	return r.Spec.MemoryGB >= minMemoryGB && float64(r.Spec.VCpu) >= minVCpu
}

// FilterByResources keeps the rows that qualify.
func FilterByResources(records []provider.JoinedRecord, minMemoryGB, minVCpu float64) []provider.JoinedRecord {
	out := make([]provider.JoinedRecord, 0, len(records))
	for _, r := range records {
		if Qualifies(r, minMemoryGB, minVCpu) {
			out = append(out, r)
		}
	}
	return out
}

// SortBySpotPrice orders rows ascending by spot price, keeping arrival order
// between equal prices. Rows without a price go last.
func SortBySpotPrice(records []provider.JoinedRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		pi, okI := records[i].SpotPrice()
		pj, okJ := records[j].SpotPrice()
		switch {
		case okI && okJ:
			return pi.LessThan(pj)
		default:
			return okI && !okJ
		}
	})
}

// Truncate returns at most limit rows. A limit <= 0 keeps everything.
func Truncate(records []provider.JoinedRecord, limit int) []provider.JoinedRecord {
	if limit <= 0 || len(records) <= limit {
		return records
	}
	return records[:limit]
}
