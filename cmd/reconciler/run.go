package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crew-shift-reconciler/internal/metrics"
	"crew-shift-reconciler/internal/service"
	"crew-shift-reconciler/pkg/worktime"

	"github.com/spf13/cobra"
)

var (
	windowDays  int
	asOfFlag    string
	unitDate    string
	unitCrew    uint
	backfillTo  string
	backfillIDs []uint
)

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Reconcile every ready unit in the lookback window once",
	RunE:  runWindow,
}

var unitCmd = &cobra.Command{
	Use:   "unit",
	Short: "Reconcile one crew for one day",
	RunE:  runUnit,
}

var backfillCmd = &cobra.Command{
	Use:   "backfill FROM",
	Short: "Force reconciliation of a date range, ignoring readiness",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackfill,
}

func init() {
	windowCmd.Flags().IntVar(&windowDays, "days", 0, "lookback in days (default RECONCILE_LOOKBACK_DAYS)")
	windowCmd.Flags().StringVar(&asOfFlag, "as-of", "", "reference time, RFC3339 (default now)")

	unitCmd.Flags().StringVar(&unitDate, "date", "", "day to reconcile, YYYY-MM-DD")
	unitCmd.Flags().UintVar(&unitCrew, "crew", 0, "crew id")
	unitCmd.Flags().StringVar(&asOfFlag, "as-of", "", "reference time, RFC3339 (default now)")
	_ = unitCmd.MarkFlagRequired("date")
	_ = unitCmd.MarkFlagRequired("crew")

	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "last day of the range, YYYY-MM-DD (default FROM)")
	backfillCmd.Flags().UintSliceVar(&backfillIDs, "crew", nil, "limit to crews (repeatable)")

	rootCmd.AddCommand(windowCmd, unitCmd, backfillCmd)
}

func parseAsOf() (time.Time, error) {
	if asOfFlag == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, asOfFlag)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q: %w", asOfFlag, err)
	}
	return t, nil
}

func runWindow(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	asOf, err := parseAsOf()
	if err != nil {
		return err
	}
	a, err := newApp(metrics.NopSink{})
	if err != nil {
		return err
	}
	defer a.Close()

	days := windowDays
	if days == 0 {
		days = a.cfg.LookbackDays
	}
	result, err := a.scheduler.RunWindow(ctx, days, asOf)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), result)
	return nil
}

func runUnit(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	date, err := worktime.ParseDate(unitDate)
	if err != nil {
		return err
	}
	asOf, err := parseAsOf()
	if err != nil {
		return err
	}
	a, err := newApp(metrics.NopSink{})
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.scheduler.RunUnit(ctx, date, unitCrew, asOf)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), result)
	return nil
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	from, err := worktime.ParseDate(args[0])
	if err != nil {
		return err
	}
	to := from
	if backfillTo != "" {
		if to, err = worktime.ParseDate(backfillTo); err != nil {
			return err
		}
	}
	a, err := newApp(metrics.NopSink{})
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.scheduler.Backfill(ctx, service.BackfillRequest{From: from, To: to, CrewIDs: backfillIDs})
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), result)
	return nil
}
