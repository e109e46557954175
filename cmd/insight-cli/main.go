// Package main provides the insight-cli command-line tool for working
// with the insight engine offline: validating configs, computing
// fingerprints, and scoring metric sets without a running server.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	insightengine "github.com/mat-labs/insight-engine"
	"github.com/mat-labs/insight-engine/internal/fingerprint"
	"github.com/mat-labs/insight-engine/internal/sanitize"
	"github.com/mat-labs/insight-engine/internal/scoring"
	"github.com/mat-labs/insight-engine/internal/version"
)

func main() {
	root := &cobra.Command{
		Use:           "insight-cli",
		Short:         "insight engine command line tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(validateCmd(), fingerprintCmd(), scoreCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate an engine configuration file (JSON/YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := insightengine.LoadConfig(args[0])
			if err != nil {
				return err
			}
			if err := insightengine.ValidateConfig(*cfg); err != nil {
				return err
			}

			generator := cfg.Generator.Kind
			if generator == "" {
				generator = insightengine.GeneratorMock
			}
			fastTier := cfg.Cache.FastTier
			if fastTier == "" {
				fastTier = insightengine.FastTierMemory
			}
			backend := cfg.Store.Backend
			if backend == "" {
				backend = insightengine.StoreSQLite
			}
			fmt.Printf("✓ Config is valid\n")
			fmt.Printf("  Generator: %s\n", generator)
			fmt.Printf("  Fast tier: %s\n", fastTier)
			fmt.Printf("  Store:     %s\n", backend)
			return nil
		},
	}
}

func fingerprintCmd() *cobra.Command {
	var (
		wrestlerID string
		chartID    string
		section    string
		locale     string
	)
	cmd := &cobra.Command{
		Use:   "fingerprint <payload.json>",
		Short: "Compute the cache fingerprint for a chart payload",
		Long: `Computes the content fingerprint for a chart payload exactly as the
engine would: the payload is sanitized, canonicalized, and hashed. Two
payloads that print the same fingerprint share one cached insight.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var payload map[string]any
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("parsing payload: %w", err)
			}
			stripped, err := sanitize.Strip(payload)
			if err != nil {
				return err
			}
			fp, err := fingerprint.Compute(wrestlerID, chartID, section, stripped, nil, locale)
			if err != nil {
				return err
			}
			fmt.Println(fp)
			return nil
		},
	}
	cmd.Flags().StringVar(&wrestlerID, "wrestler", "w0", "wrestler id")
	cmd.Flags().StringVar(&chartID, "chart", "c0", "chart id")
	cmd.Flags().StringVar(&section, "section", "", "section key (advanced insights)")
	cmd.Flags().StringVar(&locale, "locale", "en-US", "response locale")
	return cmd
}

func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <section> <metrics.json>",
		Short: "Score a metric set for one section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			var raw map[string]float64
			if err := json.Unmarshal(data, &raw); err != nil {
				return fmt.Errorf("parsing metrics: %w", err)
			}
			result, err := scoring.ComputeSectionScore(args[0], raw)
			if err != nil {
				return err
			}

			fmt.Printf("Section: %s\n", args[0])
			fmt.Printf("Score:   %.1f (%s)\n", result.Score, result.Grade)
			fmt.Println("Drivers:")
			for _, d := range result.Drivers {
				fmt.Printf("  %s%-28s weight %.2f\n", d.Impact, d.MetricName, d.Weight)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("insight-cli %s\n", version.String())
		},
	}
}
