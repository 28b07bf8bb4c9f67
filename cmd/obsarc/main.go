package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"obsarc/internal/app"
	"obsarc/internal/config"
	"obsarc/internal/domain"
	appErrors "obsarc/internal/errors"
	"obsarc/internal/infra/bridge"
	"obsarc/internal/infra/savename"
	"obsarc/internal/logging"
	"obsarc/internal/presentation"
	"obsarc/internal/tui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, appErrors.UserMessage(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Default()
	var configPath string

	cmd := &cobra.Command{
		Use:           "obsarc",
		Short:         "Export filtered biodiversity observations into a local archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolveConfig(cmd, cfg, configPath)
			if err != nil {
				return appErrors.Wrap(appErrors.InvalidConfig, "config", err)
			}
			return run(resolved)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.EngineURL, "engine-url", "e", cfg.EngineURL, "Acquisition engine base URL")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Command request timeout")
	flags.StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir, "Directory for generated archives")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose output")
	flags.BoolVar(&cfg.EstimateOnly, "estimate-only", false, "Print the size estimate and exit")
	flags.IntVar(&cfg.TaxonID, "taxon", 0, "Seed taxon id filter")
	flags.IntVar(&cfg.PlaceID, "place", 0, "Seed place id filter")
	flags.IntVar(&cfg.UserID, "user", 0, "Seed user id filter")
	flags.StringVarP(&configPath, "config", "c", "", "Path to YAML config file")

	return cmd
}

// resolveConfig layers file and environment values under anything set by
// flags: flags win, then environment, then file, then defaults.
func resolveConfig(cmd *cobra.Command, flagged config.Config, configPath string) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		if err := cfg.ApplyFile(configPath); err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("engine-url") {
		cfg.EngineURL = flagged.EngineURL
	}
	if flags.Changed("timeout") {
		cfg.Timeout = flagged.Timeout
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = flagged.OutputDir
	}
	if flagged.Verbose {
		cfg.Verbose = true
	}
	cfg.EstimateOnly = flagged.EstimateOnly
	if flags.Changed("taxon") {
		cfg.TaxonID = flagged.TaxonID
	}
	if flags.Changed("place") {
		cfg.PlaceID = flagged.PlaceID
	}
	if flags.Changed("user") {
		cfg.UserID = flagged.UserID
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func run(cfg config.Config) error {
	logger := logging.New(os.Stderr, cfg.Verbose)
	client := bridge.New(cfg.EngineURL, cfg.Timeout)

	estimator := &app.SizeEstimator{
		Bridge: client,
		Logger: logger,
	}
	criteria := seedCriteria(cfg)

	if cfg.EstimateOnly {
		return runEstimateOnly(cfg, client, estimator, criteria, logger)
	}

	orchestrator := app.NewOrchestrator(client, client, estimator, logger, app.OrchestratorOptions{})
	taxa := &app.Typeahead{Lookup: client.Lookup(bridge.KindTaxa), Logger: logger}
	places := &app.Typeahead{Lookup: client.Lookup(bridge.KindPlaces), Logger: logger}
	users := &app.Typeahead{Lookup: client.Lookup(bridge.KindUsers), Logger: logger}

	return tui.Run(tui.Config{
		Orchestrator: orchestrator,
		Bridge:       client,
		Taxa:         taxa,
		Places:       places,
		Users:        users,
		Seed:         criteria,
		OutputPath:   savename.DefaultPath(cfg.OutputDir, time.Now()),
		EngineURL:    cfg.EngineURL,
	})
}

// runEstimateOnly drives one estimation pass through the estimator and
// prints the result.
func runEstimateOnly(cfg config.Config, client *bridge.Client, estimator *app.SizeEstimator, criteria domain.FilterCriteria, logger logging.Logger) error {
	stop := logger.Measure("Size estimation")
	defer stop()

	done := make(chan domain.SizeEstimate, 1)
	estimator.OnUpdate = func(estimate domain.SizeEstimate) {
		if estimate.Status != domain.EstimatePending {
			select {
			case done <- estimate:
			default:
			}
		}
	}
	estimator.Debounce = time.Millisecond
	estimator.OnFilterChange(criteria)

	var estimate domain.SizeEstimate
	select {
	case estimate = <-done:
	case <-time.After(cfg.Timeout + time.Second):
		return appErrors.Wrap(appErrors.EstimationFailure, "estimate",
			fmt.Errorf("no response within %s", cfg.Timeout))
	}

	printer := presentation.Printer{Writer: os.Stdout, Verbose: cfg.Verbose}
	if status, err := client.AuthStatus(context.Background()); err == nil {
		printer.PrintAuth(status)
	}
	printer.PrintEstimate(criteria, estimate)

	if estimate.Status == domain.EstimateFailed {
		return appErrors.Wrap(appErrors.EstimationFailure, "estimate",
			fmt.Errorf("estimation request failed"))
	}
	return nil
}

func seedCriteria(cfg config.Config) domain.FilterCriteria {
	criteria := domain.FilterCriteria{
		Observed: domain.DateRange{Mode: domain.DateRangeAll},
		Created:  domain.DateRange{Mode: domain.DateRangeAll},
	}
	if cfg.TaxonID != 0 {
		id := cfg.TaxonID
		criteria.TaxonID = &id
	}
	if cfg.PlaceID != 0 {
		id := cfg.PlaceID
		criteria.PlaceID = &id
	}
	if cfg.UserID != 0 {
		id := cfg.UserID
		criteria.UserID = &id
	}
	return criteria
}
