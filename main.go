package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pixelfederation/spot-finder/finder/aws"
	"github.com/pixelfederation/spot-finder/finder/config"
	"github.com/pixelfederation/spot-finder/finder/provider"
)

const (
	exitOK = iota
	exitFailure
	exitConfiguration
	exitDataSource
	exitCatalog
)

// newClientFactory is replaced in tests.
var newClientFactory = func(creds config.Credentials) aws.ClientFactory {
	return aws.NewSDKClientFactory(creds)
}

type globalOptions struct {
	configPath string
	logLevel   string
	profile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Error("spot-finder failed")
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "spot-finder",
		Short: "Find the cheapest EC2 spot instance types for your workload",
		Long: `spot-finder fetches current EC2 spot prices, joins them with an
instance type catalog and lists the cheapest instance types meeting
minimum memory and vCPU requirements.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setLogLevel(opts.logLevel)
		},
	}

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return configErrorf("%s", err)
	})

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel, "log level")
	rootCmd.PersistentFlags().StringVar(&opts.profile, "profile", "", "AWS shared config profile (defaults to the SDK default chain)")

	rootCmd.AddCommand(newFindCmd(opts), newCatalogCmd(opts), newBenchCmd())
	return rootCmd
}

func setLogLevel(rawLevel string) {
	parsedLevel, err := log.ParseLevel(rawLevel)
	if err != nil {
		log.WithError(err).Warnf("Couldn't parse log level, using default: %s", log.GetLevel())
		return
	}
	log.SetLevel(parsedLevel)
	log.Debugf("Set log level to %s", parsedLevel)
}

// loadConfig reads the config file when one is given and applies the global
// flags on top of it.
func loadConfig(cmd *cobra.Command, opts *globalOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		log.Debugf("Loaded config file %s", opts.configPath)
	}
	if cmd.Flags().Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = opts.logLevel
	}
	setLogLevel(cfg.LogLevel)
	if cmd.Flags().Changed("profile") {
		cfg.Credentials.Profile = opts.profile
	}
	return cfg, nil
}

// runContext is cancelled on SIGINT/SIGTERM or once timeout elapses.
func runContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// startSpinner shows progress on stderr. The returned func stops it.
func startSpinner(enabled bool, suffix string) func() {
	if !enabled {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, provider.ErrConfiguration):
		return exitConfiguration
	case errors.Is(err, provider.ErrDataSource):
		return exitDataSource
	case errors.Is(err, provider.ErrCatalog):
		return exitCatalog
	default:
		return exitFailure
	}
}

func configErrorf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", provider.ErrConfiguration, fmt.Sprintf(format, a...))
}

func splitAndTrim(str string) []string {
	if str == "" {
		return []string{}
	}
	parts := strings.Split(str, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var (
	productDescriptions = []string{"Linux/UNIX", "SUSE Linux", "Windows", "Linux/UNIX (Amazon VPC)", "SUSE Linux (Amazon VPC)", "Windows (Amazon VPC)"}
	operatingSystems    = []string{"Linux", "RHEL", "SUSE", "Windows"}
)

func validateProductDesc(pds []string) error {
	for _, desc := range pds {
		if !provider.Contains(productDescriptions, desc) {
			return configErrorf("product description '%s' is not recognized. Available product descriptions: %s", desc, strings.Join(productDescriptions, ", "))
		}
	}
	return nil
}

func validateOperatingSystem(name string) error {
	if !provider.Contains(operatingSystems, name) {
		return configErrorf("operating system '%s' is not recognized. Available operating systems: %s", name, strings.Join(operatingSystems, ", "))
	}
	return nil
}

func compileRegexes(regexes []string) ([]*regexp.Regexp, error) {
	compiledRegexes := make([]*regexp.Regexp, len(regexes))
	for i, r := range regexes {
		re, err := regexp.Compile(r)
		if err != nil {
			return nil, configErrorf("invalid regex %s: %s", r, err)
		}
		compiledRegexes[i] = re
	}
	return compiledRegexes, nil
}
