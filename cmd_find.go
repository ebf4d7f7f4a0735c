package main

import (
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pixelfederation/spot-finder/finder"
	"github.com/pixelfederation/spot-finder/finder/config"
	"github.com/pixelfederation/spot-finder/finder/render"
)

type findFlags struct {
	catalogPath         string
	limit               int
	lookback            time.Duration
	productDescriptions string
	instanceRegexes     string
	withOnDemand        bool
	operatingSystem     string
	metricsTextfile     string
	timeout             time.Duration
	noProgress          bool
}

func newFindCmd(global *globalOptions) *cobra.Command {
	flags := &findFlags{}
	cmd := &cobra.Command{
		Use:   "find <min_ram_gb> <min_cpu> [region ...]",
		Short: "List the cheapest spot instance types with at least the given memory and vCPUs",
		Example: `  spot-finder find 16 4
  spot-finder find 64 16 eu-west-1 eu-central-1 --limit 20 --with-ondemand`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return configErrorf("expected <min_ram_gb> <min_cpu> [region ...], got %d argument(s)", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd, global, flags, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.catalogPath, "catalog", config.DefaultCatalogPath, "Path to the instance type catalog CSV")
	f.IntVar(&flags.limit, "limit", config.DefaultLimit, "Maximum number of rows to print")
	f.DurationVar(&flags.lookback, "lookback", config.DefaultLookback, "Spot price history window, 0 for the API default")
	f.StringVar(&flags.productDescriptions, "product-descriptions", "", "Comma separated list of product descriptions, used to filter spot instances (defaults to *all*). Accepted values: Linux/UNIX, SUSE Linux, Windows, Linux/UNIX (Amazon VPC), SUSE Linux (Amazon VPC), Windows (Amazon VPC)")
	f.StringVar(&flags.instanceRegexes, "instance-regexes", "", "Comma separated list of instance types regexes (defaults to *all*)")
	f.BoolVar(&flags.withOnDemand, "with-ondemand", false, "Add on-demand prices and spot savings to the result")
	f.StringVar(&flags.operatingSystem, "operating-system", config.DefaultOS, "Operating system of the on-demand prices. Accepted values: Linux, RHEL, SUSE, Windows")
	f.StringVar(&flags.metricsTextfile, "metrics-textfile", "", "Write run metrics to this file in the node-exporter textfile format")
	f.DurationVar(&flags.timeout, "timeout", config.DefaultTimeout, "Abort the run after this long")
	f.BoolVar(&flags.noProgress, "no-progress", false, "Don't show the progress spinner")
	return cmd
}

func parseMinimum(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !(v > 0) {
		return 0, configErrorf("%s must be a positive number, got '%s'", name, raw)
	}
	return v, nil
}

// findConfig merges the config file with the explicitly set flags and the
// positional regions.
func findConfig(cmd *cobra.Command, global *globalOptions, flags *findFlags, regions []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd, global)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("catalog") {
		cfg.CatalogPath = flags.catalogPath
	}
	if changed("limit") {
		cfg.Limit = flags.limit
	}
	if changed("lookback") {
		cfg.Lookback = flags.lookback
	}
	if changed("product-descriptions") {
		cfg.ProductDescriptions = splitAndTrim(flags.productDescriptions)
	}
	if changed("instance-regexes") {
		cfg.InstanceRegexes = splitAndTrim(flags.instanceRegexes)
	}
	if changed("with-ondemand") {
		cfg.WithOnDemand = flags.withOnDemand
	}
	if changed("operating-system") {
		cfg.OperatingSystem = flags.operatingSystem
	}
	if changed("metrics-textfile") {
		cfg.MetricsTextfile = flags.metricsTextfile
	}
	if changed("timeout") {
		cfg.Timeout = flags.timeout
	}
	if len(regions) > 0 {
		cfg.Regions = regions
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateProductDesc(cfg.ProductDescriptions); err != nil {
		return nil, err
	}
	if err := validateOperatingSystem(cfg.OperatingSystem); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runFind(cmd *cobra.Command, global *globalOptions, flags *findFlags, args []string) error {
	minMemory, err := parseMinimum("min_ram_gb", args[0])
	if err != nil {
		return err
	}
	minVCpu, err := parseMinimum("min_cpu", args[1])
	if err != nil {
		return err
	}

	cfg, err := findConfig(cmd, global, flags, args[2:])
	if err != nil {
		return err
	}

	instReg := cfg.InstanceRegexes
	if len(instReg) == 0 {
		instReg = []string{".*"}
	}
	instRegCompiled, err := compileRegexes(instReg)
	if err != nil {
		return err
	}

	log.Infof("Searching spot prices [regions=%s, min-memory=%g, min-vcpu=%g, limit=%d, lookback=%s]",
		strings.Join(cfg.Regions, ","), minMemory, minVCpu, cfg.Limit, cfg.Lookback)

	metrics := finder.NewMetrics()
	agg, err := finder.NewAggregator(finder.Options{
		Regions:             cfg.Regions,
		CatalogPath:         cfg.CatalogPath,
		MinMemoryGB:         minMemory,
		MinVCpu:             minVCpu,
		Limit:               cfg.Limit,
		Lookback:            cfg.Lookback,
		ProductDescriptions: cfg.ProductDescriptions,
		InstanceRegexes:     instRegCompiled,
		WithOnDemand:        cfg.WithOnDemand,
		OperatingSystem:     cfg.OperatingSystem,
	}, newClientFactory(cfg.Credentials), metrics)
	if err != nil {
		return err
	}

	ctx, cancel := runContext(cfg.Timeout)
	defer cancel()

	stop := startSpinner(!flags.noProgress, "Fetching spot prices...")
	records, runErr := agg.Run(ctx)
	stop()

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			log.WithError(err).Errorf("error writing metrics textfile")
		} else {
			log.Debugf("Wrote metrics to %s", cfg.MetricsTextfile)
		}
	}
	if runErr != nil {
		return runErr
	}

	return render.Table(cmd.OutOrStdout(), records, render.Options{WithOnDemand: cfg.WithOnDemand})
}
