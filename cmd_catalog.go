package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pixelfederation/spot-finder/finder/aws"
	"github.com/pixelfederation/spot-finder/finder/catalog"
	"github.com/pixelfederation/spot-finder/finder/config"
	"github.com/pixelfederation/spot-finder/finder/provider"
)

const (
	sourcePricing          = "pricing"
	sourceEC2              = "ec2"
	sourceEC2InstancesInfo = "ec2instances-info"
)

type catalogFlags struct {
	source     string
	out        string
	region     string
	timeout    time.Duration
	noProgress bool
}

type specSource func(ctx context.Context) ([]provider.InstanceSpec, error)

func newCatalogCmd(global *globalOptions) *cobra.Command {
	flags := &catalogFlags{}
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Build the instance type catalog used by find",
		Example: `  spot-finder catalog --out instance-types.csv
  spot-finder catalog --source ec2 --region eu-west-1 --out -`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return configErrorf("%s", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(cmd, global, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.source, "source", sourcePricing, "Where to read instance types from: pricing, ec2 or ec2instances-info")
	f.StringVar(&flags.out, "out", config.DefaultCatalogPath, "Output file, - for stdout")
	f.StringVar(&flags.region, "region", "", "Region to list instance types for (pricing defaults to *all*, ec2 to us-east-1)")
	f.DurationVar(&flags.timeout, "timeout", config.DefaultTimeout, "Abort after this long")
	f.BoolVar(&flags.noProgress, "no-progress", false, "Don't show the progress spinner")
	return cmd
}

func newSpecSource(name, region string, factory aws.ClientFactory) (specSource, error) {
	switch name {
	case sourcePricing:
		return func(ctx context.Context) ([]provider.InstanceSpec, error) {
			client, err := factory.NewPricingClient(ctx)
			if err != nil {
				return nil, err
			}
			return aws.LoadPriceListInstanceTypes(ctx, client, region)
		}, nil
	case sourceEC2:
		if region == "" {
			region = aws.PricingRegion
		}
		return func(ctx context.Context) ([]provider.InstanceSpec, error) {
			client, err := factory.NewEC2Client(ctx, region)
			if err != nil {
				return nil, err
			}
			return aws.LoadDescribedInstanceTypes(ctx, client)
		}, nil
	case sourceEC2InstancesInfo:
		return func(ctx context.Context) ([]provider.InstanceSpec, error) {
			return aws.LoadInstancesInfo(ctx, &http.Client{Timeout: 60 * time.Second}, aws.EC2InstancesInfoURL)
		}, nil
	}
	return nil, configErrorf("unknown catalog source '%s'. Available sources: %s, %s, %s", name, sourcePricing, sourceEC2, sourceEC2InstancesInfo)
}

func runCatalog(cmd *cobra.Command, global *globalOptions, flags *catalogFlags) error {
	cfg, err := loadConfig(cmd, global)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	source, err := newSpecSource(flags.source, flags.region, newClientFactory(cfg.Credentials))
	if err != nil {
		return err
	}

	ctx, cancel := runContext(flags.timeout)
	defer cancel()

	stop := startSpinner(!flags.noProgress, fmt.Sprintf("Listing instance types from %s...", flags.source))
	specs, err := source(ctx)
	stop()
	if err != nil {
		return err
	}

	usable := specs[:0]
	for _, spec := range specs {
		if err := catalog.CheckResources(spec); err != nil {
			log.WithError(err).Warnf("Skipping instance type %s", spec.InstanceType)
			continue
		}
		usable = append(usable, spec)
	}

	unique := catalog.Dedup(usable)
	catalog.SortByInstanceType(unique)
	log.Infof("Found %s instance types (%s duplicates collapsed) [source=%s]",
		humanize.Comma(int64(len(unique))), humanize.Comma(int64(len(usable)-len(unique))), flags.source)

	var buf bytes.Buffer
	if err := catalog.Write(&buf, unique); err != nil {
		return err
	}
	return writeCatalog(cmd.OutOrStdout(), flags.out, buf.Bytes())
}

func writeCatalog(stdout io.Writer, path string, data []byte) error {
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: error writing catalog '%s': %w", provider.ErrCatalog, path, err)
	}
	log.Infof("Wrote catalog to %s (%s)", path, humanize.Bytes(uint64(len(data))))
	return nil
}
