package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"c1fapp/internal/common"
	"c1fapp/internal/config"
	"c1fapp/internal/ctim"
	"c1fapp/internal/enrich"
	"c1fapp/internal/feed"
	"c1fapp/internal/mapping"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type lookupOptions struct {
	apiKey  string
	limit   int
	timeout time.Duration
	kinds   []string
}

func newRootCmd() *cobra.Command {
	opts := &lookupOptions{}
	cmd := &cobra.Command{
		Use:   "c1fapp-lookup [value...]",
		Short: "Enrich observables against C1fApp and print the CTIM bundle",
		Long: `Looks up each value on the C1fApp feed and prints the resulting
sightings, indicators and relationships as JSON.

Values are typed with --type, one per value in order; the last type is
reused for any remaining values.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.apiKey, "api-key", os.Getenv("C1FAPP_API_KEY"), "C1fApp API key (env C1FAPP_API_KEY)")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "max records per observable (0 = configured default)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "overall timeout")
	cmd.Flags().StringSliceVarP(&opts.kinds, "type", "t", []string{string(common.KindDomain)}, "observable types (domain, ip, url)")
	return cmd
}

func runLookup(cmd *cobra.Command, opts *lookupOptions, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := config.SetupLogger(cfg, "c1fapp-lookup")

	classifier, err := mapping.NewClassifier(cfg.Confidence)
	if err != nil {
		return err
	}
	client := feed.NewClient(cfg.Feed, nil, logger)
	orch := enrich.NewOrchestrator(client, classifier, enrich.Options{
		Workers:      cfg.Workers,
		DefaultLimit: cfg.EntitiesLimit,
		MaxLimit:     config.MaxEntitiesLimit,
	}, logger)

	observables, err := buildObservables(opts.kinds, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	res, err := orch.Enrich(ctx, opts.apiKey, observables, opts.limit)
	if err != nil {
		return fmt.Errorf("enrich: %w", err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res.Envelope())
}

func buildObservables(kinds, values []string) ([]ctim.Observable, error) {
	if len(kinds) == 0 {
		return nil, fmt.Errorf("at least one --type is required")
	}
	out := make([]ctim.Observable, 0, len(values))
	for i, v := range values {
		kind := kinds[len(kinds)-1]
		if i < len(kinds) {
			kind = kinds[i]
		}
		out = append(out, ctim.Observable{Type: common.ObservableKind(kind), Value: v})
	}
	return out, nil
}
