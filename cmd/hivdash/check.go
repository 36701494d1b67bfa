package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/hivdash/internal/config"
	"github.com/JonMunkholm/hivdash/internal/core"
)

// newCheckCmd ingests every source and reports problems without serving.
// A failing load exits non-zero, which makes it usable as a CI gate for
// refreshed downloads.
func newCheckCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load and validate every data source, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := loadData(cmd.Context(), cfg())
			if err != nil {
				msg := core.MapError(err)
				slog.Error("data check failed", "code", msg.Code, "error", err)
				return fmt.Errorf("%s (%s)", msg.Message, msg.Code)
			}
			defer data.Close()

			for _, c := range []core.Cohort{core.CohortChildren, core.CohortAdult} {
				slog.Info("new infections", "cohort", c, "records", len(data.dataset.NewInfections(c)))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d sources, %d countries, years %d-%d\n",
				data.registry.Count(), len(data.catalog.Countries),
				data.catalog.CountryYears.Min, data.catalog.CountryYears.Max)
			return nil
		},
	}
}

func newCatalogCmd(cfg func() *config.Config) *cobra.Command {
	var indent bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the dimension catalog as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := loadData(cmd.Context(), cfg())
			if err != nil {
				return err
			}
			defer data.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			if indent {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(data.catalog)
		},
	}
	cmd.Flags().BoolVar(&indent, "indent", true, "Indent the JSON output")
	return cmd
}
