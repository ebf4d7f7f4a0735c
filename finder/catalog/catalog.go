// Package catalog reads and writes the instance specification file the
// aggregator joins spot prices against.
//
// The file is CSV with a header row. InstanceType, memory_gb and vcpu are
// required; network is optional and any other column is ignored.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pixelfederation/spot-finder/finder/provider"
)

const (
	ColumnInstanceType = "InstanceType"
	ColumnMemoryGB     = "memory_gb"
	ColumnVCpu         = "vcpu"
	ColumnNetwork      = "network"
)

// Catalog is an immutable set of instance specifications keyed by instance type.
type Catalog struct {
	specs []provider.InstanceSpec
	index map[string]int
}

// New builds a catalog from specs. Duplicate instance types are an error.
func New(specs []provider.InstanceSpec) (*Catalog, error) {
	c := &Catalog{
		specs: make([]provider.InstanceSpec, 0, len(specs)),
		index: make(map[string]int, len(specs)),
	}
	for _, s := range specs {
		if _, dup := c.index[s.InstanceType]; dup {
			return nil, fmt.Errorf("%w: duplicate instance type %q", provider.ErrCatalog, s.InstanceType)
		}
		c.index[s.InstanceType] = len(c.specs)
		c.specs = append(c.specs, s)
	}
	return c, nil
}

// Len returns the number of instance types in the catalog.
func (c *Catalog) Len() int {
	return len(c.specs)
}

// Get returns the spec of the named instance type.
func (c *Catalog) Get(instanceType string) (provider.InstanceSpec, bool) {
	i, ok := c.index[instanceType]
	if !ok {
		return provider.InstanceSpec{}, false
	}
	return c.specs[i], true
}

// Specs returns the specs in file order.
func (c *Catalog) Specs() []provider.InstanceSpec {
	return append([]provider.InstanceSpec(nil), c.specs...)
}

// Load reads the catalog file at path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: error opening catalog file '%s': %w", provider.ErrCatalog, path, err)
	}
	defer f.Close()

	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%w (file '%s')", err, path)
	}
	return c, nil
}

// Read parses a catalog from r.
func Read(r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty catalog, header row missing", provider.ErrCatalog)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: error reading catalog header: %w", provider.ErrCatalog, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{ColumnInstanceType, ColumnMemoryGB, ColumnVCpu} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: required column %q missing", provider.ErrCatalog, required)
		}
	}
	networkCol, hasNetwork := cols[ColumnNetwork]

	var specs []provider.InstanceSpec
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", provider.ErrCatalog, err)
		}
		line, _ := cr.FieldPos(0)

		spec, err := parseRecord(record, cols)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", provider.ErrCatalog, line, err)
		}
		if hasNetwork {
			spec.NetworkPerformance = strings.TrimSpace(record[networkCol])
		}
		specs = append(specs, spec)
	}

	return New(specs)
}

func parseRecord(record []string, cols map[string]int) (provider.InstanceSpec, error) {
	instanceType := strings.TrimSpace(record[cols[ColumnInstanceType]])
	if instanceType == "" {
		return provider.InstanceSpec{}, fmt.Errorf("empty %s", ColumnInstanceType)
	}

	memory, err := strconv.ParseFloat(strings.TrimSpace(record[cols[ColumnMemoryGB]]), 64)
	if err != nil {
		return provider.InstanceSpec{}, fmt.Errorf("invalid %s for %s: %w", ColumnMemoryGB, instanceType, err)
	}
	vcpu, err := parseVCpu(record[cols[ColumnVCpu]])
	if err != nil {
		return provider.InstanceSpec{}, fmt.Errorf("invalid %s for %s: %w", ColumnVCpu, instanceType, err)
	}

	spec := provider.InstanceSpec{
		InstanceType: instanceType,
		MemoryGB:     memory,
		VCpu:         vcpu,
	}
	return spec, CheckResources(spec)
}

// CheckResources rejects specs whose memory is not a finite positive number
// or whose vCPU count is not positive.
func CheckResources(spec provider.InstanceSpec) error {
	if math.IsNaN(spec.MemoryGB) || math.IsInf(spec.MemoryGB, 0) || spec.MemoryGB <= 0 {
		return fmt.Errorf("invalid %s for %s: must be a finite positive number, got %v", ColumnMemoryGB, spec.InstanceType, spec.MemoryGB)
	}
	if spec.VCpu <= 0 {
		return fmt.Errorf("invalid %s for %s: must be positive, got %d", ColumnVCpu, spec.InstanceType, spec.VCpu)
	}
	return nil
}

// parseVCpu accepts integral values written as floats ("4.0") too.
func parseVCpu(s string) (int32, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int32(v), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != float64(int32(f)) {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return int32(f), nil
}

// Dedup collapses repeated instance types, keeping the first occurrence.
func Dedup(specs []provider.InstanceSpec) []provider.InstanceSpec {
	seen := make(map[string]struct{}, len(specs))
	out := make([]provider.InstanceSpec, 0, len(specs))
	for _, s := range specs {
		if _, ok := seen[s.InstanceType]; ok {
			continue
		}
		seen[s.InstanceType] = struct{}{}
		out = append(out, s)
	}
	return out
}

// SortByInstanceType orders specs by instance type name.
func SortByInstanceType(specs []provider.InstanceSpec) {
	sort.SliceStable(specs, func(i, j int) bool {
		return specs[i].InstanceType < specs[j].InstanceType
	})
}

// Write writes specs as a catalog file.
func Write(w io.Writer, specs []provider.InstanceSpec) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColumnInstanceType, ColumnMemoryGB, ColumnVCpu, ColumnNetwork}); err != nil {
		return err
	}
	for _, s := range specs {
		if err := cw.Write([]string{
			s.InstanceType,
			strconv.FormatFloat(s.MemoryGB, 'f', -1, 64),
			strconv.Itoa(int(s.VCpu)),
			s.NetworkPerformance,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
