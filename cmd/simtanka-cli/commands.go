package main

import (
	"fmt"
	"io"

	"github.com/couchcryptid/simtanka-service/internal/domain"
	"github.com/couchcryptid/simtanka-service/internal/simulation"
	"github.com/spf13/cobra"
)

// siteFlags are shared by every simulating subcommand.
type siteFlags struct {
	rainPath string
	area     float64
	runoff   float64
	tank     float64
	demand   []float64
	progress bool
}

func newRootCmd() *cobra.Command {
	var f siteFlags

	root := &cobra.Command{
		Use:          "simtanka-cli",
		Short:        "Rainwater tank reliability simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&f.rainPath, "rain", "", "CSV file of daily rainfall (year,month,day,depth_mm)")
	_ = root.MarkPersistentFlagRequired("rain")

	root.AddCommand(reliabilityCmd(&f))
	root.AddCommand(performanceCmd(&f))
	root.AddCommand(sizeCmd(&f))
	root.AddCommand(yearsCmd(&f))
	return root
}

func addSiteFlags(cmd *cobra.Command, f *siteFlags, withTank bool) {
	cmd.Flags().Float64Var(&f.area, "area", 0, "catchment area in m²")
	cmd.Flags().Float64Var(&f.runoff, "runoff", 0.8, "runoff coefficient between 0 and 1")
	cmd.Flags().Float64SliceVar(&f.demand, "demand", nil, "daily demand in m³, one value for every month or twelve values")
	cmd.Flags().BoolVar(&f.progress, "progress", false, "print sweep progress to stderr")
	_ = cmd.MarkFlagRequired("area")
	_ = cmd.MarkFlagRequired("demand")
	if withTank {
		cmd.Flags().Float64Var(&f.tank, "tank", 0, "tank capacity in m³")
		_ = cmd.MarkFlagRequired("tank")
	}
}

func reliabilityCmd(f *siteFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reliability",
		Short: "Estimate the share of demand days a tank meets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			input, rain, err := f.load()
			if err != nil {
				return err
			}
			res, err := simulation.Estimate(input, rain)
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), []domain.EstimateResult{res})
			return nil
		},
	}
	addSiteFlags(cmd, f, true)
	return cmd
}

func performanceCmd(f *siteFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "performance",
		Short: "Compare the tank with 25% smaller and larger tanks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			input, rain, err := f.load()
			if err != nil {
				return err
			}
			out, err := simulation.Sweep(cmd.Context(), input, rain, simulation.SymmetricSizes(input.TankCapacityM3), f.options(cmd))
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), out.Results)
			if out.Cancelled {
				fmt.Fprintln(cmd.OutOrStdout(), "cancelled before all sizes were simulated")
			}
			return nil
		},
	}
	addSiteFlags(cmd, f, true)
	return cmd
}

func sizeCmd(f *siteFlags) *cobra.Command {
	var maxTank float64
	cmd := &cobra.Command{
		Use:   "size",
		Short: "Sweep six tank sizes down from a budget and recommend one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if maxTank <= 0 {
				return fmt.Errorf("%w: --max must be positive", domain.ErrInvalidInput)
			}
			f.tank = maxTank
			input, rain, err := f.load()
			if err != nil {
				return err
			}
			out, err := simulation.Sweep(cmd.Context(), input, rain, simulation.BudgetSizes(maxTank), f.options(cmd))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			printResults(w, out.Results)
			if out.Cancelled {
				fmt.Fprintln(w, "cancelled before all sizes were simulated")
			}
			if len(out.Results) == 0 {
				return nil
			}
			advice, err := simulation.Advise(out.Results)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s (%s)\n", advice.Message, advice.Region)
			if advice.Recommended != nil {
				fmt.Fprintf(w, "recommended: %.2f m³ at %d%%\n", advice.Recommended.TankSizeM3, advice.Recommended.AnnualSuccessPercent)
			}
			return nil
		},
	}
	addSiteFlags(cmd, f, false)
	cmd.Flags().Float64Var(&maxTank, "max", 0, "largest affordable tank in m³")
	_ = cmd.MarkFlagRequired("max")
	return cmd
}

func yearsCmd(f *siteFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "years",
		Short: "List complete rainfall years and their totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rain, err := loadRainfall(f.rainPath)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			years := rain.UsableYears()
			if len(years) == 0 {
				fmt.Fprintln(w, "no complete years")
				return nil
			}
			for _, a := range rain.AnnualRainfall(years) {
				fmt.Fprintf(w, "%d\t%.1f mm\n", a.Year, a.TotalMM)
			}
			return nil
		},
	}
}

func (f *siteFlags) load() (domain.SimulationInput, *domain.RainfallSeries, error) {
	demand, err := demandSchedule(f.demand)
	if err != nil {
		return domain.SimulationInput{}, nil, err
	}
	sys := domain.System{CatchmentAreaM2: f.area, RunoffCoefficient: f.runoff, TankCapacityM3: f.tank}
	input := sys.Input(demand)
	if err := input.Validate(); err != nil {
		return domain.SimulationInput{}, nil, err
	}
	rain, err := loadRainfall(f.rainPath)
	if err != nil {
		return domain.SimulationInput{}, nil, err
	}
	return input, rain, nil
}

func (f *siteFlags) options(cmd *cobra.Command) simulation.Options {
	if !f.progress {
		return simulation.Options{}
	}
	return simulation.Options{
		Progress: func(completed, total int) {
			fmt.Fprintf(cmd.ErrOrStderr(), "simulated %d/%d\n", completed, total)
		},
	}
}

// demandSchedule expands one value to all twelve months.
func demandSchedule(values []float64) (domain.DemandSchedule, error) {
	var d domain.DemandSchedule
	switch len(values) {
	case 1:
		for i := range d {
			d[i] = values[0]
		}
	case len(d):
		copy(d[:], values)
	default:
		return d, fmt.Errorf("%w: --demand needs 1 or 12 values, got %d", domain.ErrInvalidInput, len(values))
	}
	return d, d.Validate()
}

func printResults(w io.Writer, results []domain.EstimateResult) {
	for _, r := range results {
		fmt.Fprintf(w, "%10.2f m³\t%3d%%\n", r.TankSizeM3, r.AnnualSuccessPercent)
	}
}
