package finder

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/pixelfederation/spot-finder/finder/aws"
	"github.com/pixelfederation/spot-finder/finder/catalog"
	"github.com/pixelfederation/spot-finder/finder/provider"
)

// Options configures one aggregator run.
type Options struct {
	Regions     []string
	CatalogPath string
	MinMemoryGB float64
	MinVCpu     float64
	Limit       int
	// Lookback bounds the spot price history window; 0 leaves it to the API.
	Lookback            time.Duration
	ProductDescriptions []string
	InstanceRegexes     []*regexp.Regexp
	WithOnDemand        bool
	OperatingSystem     string
}

// Aggregator builds a shortlist of the cheapest spot instance types meeting
// minimum memory and vCPU requirements.
type Aggregator struct {
	opts          Options
	clientFactory aws.ClientFactory
	metrics       *Metrics
	now           func() time.Time
	loadCatalog   func(path string) (*catalog.Catalog, error)
}

// NewAggregator validates opts and returns an Aggregator. Pass nil metrics to
// collect into a private registry.
func NewAggregator(opts Options, clientFactory aws.ClientFactory, metrics *Metrics) (*Aggregator, error) {
	if !(opts.MinMemoryGB > 0) {
		return nil, fmt.Errorf("%w: minimum memory must be a positive number, got %v", provider.ErrConfiguration, opts.MinMemoryGB)
	}
	if !(opts.MinVCpu > 0) {
		return nil, fmt.Errorf("%w: minimum vCPU must be a positive number, got %v", provider.ErrConfiguration, opts.MinVCpu)
	}
	if len(opts.Regions) == 0 {
		return nil, fmt.Errorf("%w: at least one region is required", provider.ErrConfiguration)
	}
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", provider.ErrConfiguration, opts.Limit)
	}
	if opts.CatalogPath == "" {
		return nil, fmt.Errorf("%w: catalog path is required", provider.ErrConfiguration)
	}
	if clientFactory == nil {
		return nil, fmt.Errorf("%w: no AWS client factory", provider.ErrConfiguration)
	}
	if metrics == nil {
		metrics = NewMetrics()
	}

	return &Aggregator{
		opts:          opts,
		clientFactory: clientFactory,
		metrics:       metrics,
		now:           time.Now,
		loadCatalog:   catalog.Load,
	}, nil
}

// Run fetches, joins, filters, sorts and truncates. Any failure aborts the
// run without a partial result.
func (a *Aggregator) Run(ctx context.Context) ([]provider.JoinedRecord, error) {
	start := a.now()
	a.metrics.success.Set(0)
	defer func() {
		a.metrics.duration.Set(a.now().Sub(start).Seconds())
	}()

	// the catalog is read before the fetch so a missing file fails without network calls
	cat, err := a.loadCatalog(a.opts.CatalogPath)
	if err != nil {
		return nil, err
	}
	a.metrics.catalogEntries.Set(float64(cat.Len()))
	log.Debugf("loaded %s instance types from %s", humanize.Comma(int64(cat.Len())), a.opts.CatalogPath)

	observations, err := a.fetchAll(ctx, start)
	if err != nil {
		return nil, err
	}

	valid := DropInvalidPrices(observations)
	a.metrics.dropped.WithLabelValues(DropInvalidPrice).Add(float64(len(observations) - len(valid)))

	joined := OuterJoin(WithMonthlyCost(valid), cat)
	records := FilterByResources(joined, a.opts.MinMemoryGB, a.opts.MinVCpu)
	a.metrics.dropped.WithLabelValues(DropUnqualified).Add(float64(len(joined) - len(records)))

	SortBySpotPrice(records)
	shortlist := Truncate(records, a.opts.Limit)
	a.metrics.dropped.WithLabelValues(DropTruncated).Add(float64(len(records) - len(shortlist)))

	log.Infof("%s observations, %s valid, %s qualifying, %d selected",
		humanize.Comma(int64(len(observations))), humanize.Comma(int64(len(valid))),
		humanize.Comma(int64(len(records))), len(shortlist))

	if a.opts.WithOnDemand && len(shortlist) > 0 {
		if err := a.enrichOnDemand(ctx, shortlist); err != nil {
			return nil, err
		}
	}

	a.metrics.setShortlist(shortlist)
	a.metrics.success.Set(1)
	return shortlist, nil
}

// fetchAll queries every region concurrently and returns all observations in
// region order, each region in page arrival order. The first failure cancels
// the remaining fetches and is returned.
func (a *Aggregator) fetchAll(ctx context.Context, now time.Time) ([]provider.PriceObservation, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var since time.Time
	if a.opts.Lookback > 0 {
		since = now.Add(-a.opts.Lookback)
	}

	var (
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	results := make([]*aws.SpotPrices, len(a.opts.Regions))
	var wg sync.WaitGroup
	for i, region := range a.opts.Regions {
		wg.Add(1)
		go func(idx int, region string) {
			defer wg.Done()
			log.Infof("Retrieving price history for %s", region)

			client, err := a.clientFactory.NewEC2Client(ctx, region)
			if err != nil {
				fail(err)
				return
			}
			prices, err := aws.FetchSpotPrices(ctx, client, aws.SpotQuery{
				Region:              region,
				Since:               since,
				ProductDescriptions: a.opts.ProductDescriptions,
				InstanceRegexes:     a.opts.InstanceRegexes,
			})
			if err != nil {
				fail(err)
				return
			}
			results[idx] = prices
		}(i, region)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	var observations []provider.PriceObservation
	for _, r := range results {
		a.metrics.pages.WithLabelValues(r.Region).Add(float64(r.Pages))
		a.metrics.observations.WithLabelValues(r.Region).Add(float64(len(r.Observations)))
		a.metrics.skipped.WithLabelValues(r.Region).Add(float64(r.Skipped))
		observations = append(observations, r.Observations...)
	}
	return observations, nil
}

// enrichOnDemand attaches on-demand prices to the shortlisted rows.
func (a *Aggregator) enrichOnDemand(ctx context.Context, records []provider.JoinedRecord) error {
	client, err := a.clientFactory.NewPricingClient(ctx)
	if err != nil {
		return err
	}

	byRegion := make(map[string]map[string]decimal.Decimal)
	for i := range records {
		region := records[i].Price.Region
		prices, ok := byRegion[region]
		if !ok {
			prices, err = aws.FetchOnDemandPrices(ctx, client, region, a.opts.OperatingSystem)
			if err != nil {
				return err
			}
			byRegion[region] = prices
		}
		if p, ok := prices[records[i].InstanceType]; ok {
			records[i].OnDemandPrice = decimal.NewNullDecimal(p)
		}
	}
	return nil
}
