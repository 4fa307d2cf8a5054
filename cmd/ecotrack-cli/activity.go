package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ecotrack/internal/activitylog"
	"ecotrack/internal/auth"
	"ecotrack/internal/core"
)

func parseIntent(args []string, fuel string) (core.ActivityIntent, error) {
	in := core.ActivityIntent{
		Category:        core.Category(args[0]),
		Subtype:         args[1],
		Secondary:       fuel,
		QuantityOmitted: len(args) < 3,
	}
	if len(args) > 2 {
		q, err := core.ParseQuantity(args[2])
		if err != nil {
			return in, err
		}
		in.Quantity = q
	}
	return in.Normalize(), nil
}

func newEstimateCmd() *cobra.Command {
	var fuel string
	cmd := &cobra.Command{
		Use:   "estimate <type> <subtype> <quantity>",
		Short: "Estimate the CO2 of an activity without logging it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := parseIntent(args, fuel)
			if err != nil {
				return err
			}
			if !in.Category.Valid() {
				return fmt.Errorf("%w: %q", core.ErrUnknownCategory, in.Category)
			}
			if in.Category == core.Transport && in.Secondary == "" {
				in.Secondary = core.DefaultFuel(in.Subtype)
			}
			co2 := core.Estimate(in.Category, in.Subtype, in.Quantity, in.Secondary)
			printf(cmd, "%s CO2\n", core.FormatKg(co2))
			return nil
		},
	}
	cmd.Flags().StringVar(&fuel, "fuel", "", "transport fuel (petrol, diesel, electric, hybrid)")
	return cmd
}

func newFactorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "factors",
		Short: "Print the emission factor tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := core.Factors()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tSUBTYPE\tFUEL\tKG CO2\tPER")
			for _, e := range table.Entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%s\n", e.Category, e.Subtype, e.Secondary, e.Factor, e.Unit)
			}
			for _, c := range core.Categories() {
				fmt.Fprintf(tw, "%s\t(default)\t\t%g\t\n", c, table.Defaults[c])
			}
			return tw.Flush()
		},
	}
}

func newLogCmd(a *app) *cobra.Command {
	var fuel string
	cmd := &cobra.Command{
		Use:   "log <type> <subtype> [quantity]",
		Short: "Log an activity",
		Example: `  ecotrack-cli log transport car 12 --fuel diesel
  ecotrack-cli log food beef 2
  ecotrack-cli log energy electricity 8`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			in, err := parseIntent(args, fuel)
			if err != nil {
				return errors.New(core.ValidationMessage(in.Category, err))
			}
			res, err := svc.LogActivity(cmd.Context(), auth.LocalUser, in)
			switch {
			case errors.Is(err, activitylog.ErrNotSaved):
				printf(cmd, "%s (not saved)\n", res.Description)
				return err
			case errors.Is(err, activitylog.ErrPersistence):
				return fmt.Errorf("activity log unavailable: %w", err)
			case err != nil:
				return errors.New(core.ValidationMessage(in.Category, err))
			}
			printf(cmd, "%s\n", res.Description)
			if res.Tip != "" {
				printf(cmd, "Tip: %s\n", res.Tip)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fuel, "fuel", "", "transport fuel (petrol, diesel, electric, hybrid)")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List logged activities, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			records, err := svc.List(cmd.Context(), auth.LocalUser)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				printf(cmd, "No activities logged yet.\n")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tTYPE\tSUBTYPE\tQUANTITY\tCO2")
			for i := len(records) - 1; i >= 0; i-- {
				if limit > 0 && len(records)-i > limit {
					break
				}
				r := records[i]
				fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%s\n",
					r.Timestamp.Local().Format(time.DateTime), r.Category, r.Subtype, r.Quantity, core.FormatKg(r.ComputedCO2))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum rows to print, 0 for all")
	return cmd
}

func newTodayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's footprint and weekly goal progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			d, err := svc.Dashboard(cmd.Context(), auth.LocalUser)
			if err != nil {
				return err
			}
			printf(cmd, "Today: %s CO2\n", core.FormatKg(d.Today))
			for _, c := range d.TodayByCategory {
				printf(cmd, "  %-10s %s\n", c.Category.Label(), core.FormatKg(c.CO2))
			}
			printf(cmd, "Week: %s / %s (%.0f%%)\n",
				core.FormatKg(d.WeeklyProgress), core.FormatKg(d.WeeklyGoal), d.ProgressPercent)
			if d.Tip != "" {
				printf(cmd, "Tip: %s\n", d.Tip)
			}
			return nil
		},
	}
}

func newGoalCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "goal [kg]",
		Short: "Show or set the weekly CO2 goal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				goal, err := svc.Goal(cmd.Context(), auth.LocalUser)
				if err != nil {
					return err
				}
				printf(cmd, "Weekly goal: %s CO2\n", core.FormatKg(goal))
				return nil
			}
			goal, err := core.ParseQuantity(args[0])
			if err != nil || goal <= 0 {
				return errors.New(core.ValidationMessage("", core.ErrInvalidGoal))
			}
			if err := svc.SetGoal(cmd.Context(), auth.LocalUser, goal); err != nil {
				return err
			}
			printf(cmd, "Weekly goal set to %s CO2\n", core.FormatKg(goal))
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every logged activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			if err := svc.Reset(cmd.Context(), auth.LocalUser); err != nil {
				return err
			}
			printf(cmd, "Activity log cleared.\n")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
