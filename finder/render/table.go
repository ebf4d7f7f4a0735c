package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pixelfederation/spot-finder/finder/provider"
)

// NoMatches is printed instead of an empty table.
const NoMatches = "no instance types matched"

// Options controls the optional columns.
type Options struct {
	WithOnDemand bool
}

// Table writes every record to w as a table, without truncating rows.
func Table(w io.Writer, records []provider.JoinedRecord, opts Options) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, NoMatches)
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := table.Row{"Instance type", "Region", "Zone", "Spot $/h", "Monthly $", "Memory GB", "vCPU", "Network", "$/vCPU·h", "$/GB·h"}
	if opts.WithOnDemand {
		header = append(header, "On-demand $/h", "Savings")
	}
	t.AppendHeader(header)

	for _, r := range records {
		t.AppendRow(row(r, opts))
	}

	t.AppendFooter(table.Row{fmt.Sprintf("%d rows", len(records))})

	configs := make([]table.ColumnConfig, 0, len(header))
	for n := 4; n <= len(header); n++ {
		if n == 8 {
			continue // network
		}
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	t.SetColumnConfigs(configs)

	t.Render()
	return nil
}

func row(r provider.JoinedRecord, opts Options) table.Row {
	var region, zone, spot, monthly string
	var spotF float64
	if price, ok := r.SpotPrice(); ok {
		region = r.Price.Region
		zone = r.Price.AvailabilityZone
		spot = price.String()
		monthly = r.Price.MonthlyCost.StringFixed(2)
		spotF, _ = price.Float64()
	}

	var memory, vcpu, network, vcpuCost, memCost string
	if r.Spec != nil {
		memory = fmt.Sprintf("%g", r.Spec.MemoryGB)
		vcpu = fmt.Sprintf("%d", r.Spec.VCpu)
		network = r.Spec.NetworkPerformance
		c, m := provider.NormalizedCost(spotF, r.Spec)
		vcpuCost = fmt.Sprintf("%.6f", c)
		memCost = fmt.Sprintf("%.6f", m)
	}

	out := table.Row{r.InstanceType, region, zone, spot, monthly, memory, vcpu, network, vcpuCost, memCost}
	if opts.WithOnDemand {
		ondemand, savings := "-", "-"
		if r.OnDemandPrice.Valid {
			ondemand = r.OnDemandPrice.Decimal.String()
		}
		if pct, ok := r.SavingsPercent(); ok {
			savings = fmt.Sprintf("%.1f%%", pct)
		}
		out = append(out, ondemand, savings)
	}
	return out
}
