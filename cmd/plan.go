package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/powerplan/api/productionplan"
	"github.com/kilianp07/powerplan/config"
	"github.com/kilianp07/powerplan/core/dispatch"
	"github.com/kilianp07/powerplan/pkg/export"
)

var (
	planVerbose bool
	planFormat  string
)

var planCmd = &cobra.Command{
	Use:   "plan [payload.json|-]",
	Short: "Compute a production plan from a payload file and print it",
	Args:  cobra.ExactArgs(1),
	RunE:  computePlan,
}

func init() {
	planCmd.Flags().BoolVarP(&planVerbose, "verbose", "v", false, "also print the merit order and the hourly cost")
	planCmd.Flags().StringVarP(&planFormat, "format", "f", "json", "output format: json or csv")
	rootCmd.AddCommand(planCmd)
}

type planSummary struct {
	Allocations []dispatch.Allocation `json:"allocations"`
	MeritOrder  []string              `json:"merit_order"`
	CostEuro    float64               `json:"cost_euro_per_hour"`
}

func computePlan(cmd *cobra.Command, args []string) error {
	if planFormat != "json" && planFormat != "csv" {
		return fmt.Errorf("unknown format %q", planFormat)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	req, err := productionplan.Decode(in, cfg.Planner.CO2DefaultPrice)
	if err != nil {
		return err
	}
	plan, err := dispatch.NewPlanner(cfg.Planner).Plan(req.Load)
	if err != nil {
		return err
	}

	if planFormat == "csv" {
		return export.WriteCSV(cmd.OutOrStdout(), export.Rows(req.Load.Powerplants, plan))
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if planVerbose {
		return enc.Encode(planSummary{
			Allocations: plan.Allocations,
			MeritOrder:  plan.MeritOrder,
			CostEuro:    plan.TotalCost(),
		})
	}
	return enc.Encode(plan.Allocations)
}
