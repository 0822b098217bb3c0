package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"crew-shift-reconciler/internal/handler"
	"crew-shift-reconciler/internal/metrics"
	"crew-shift-reconciler/pkg/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run periodic reconciliation, metrics endpoint and operator bot",
	RunE:  serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, err := metrics.NewPromSink(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	a, err := newApp(sink)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, a.cfg.MetricsAddr, prometheus.DefaultGatherer, a.logger); err != nil {
				a.logger.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	if a.cfg.TelegramToken != "" {
		client, err := telegram.NewClient(a.cfg.TelegramToken, a.cfg.LogLevel == "debug")
		if err != nil {
			return err
		}
		a.logger.Infof("Authorized on account %s", client.Bot.Self.UserName)

		botHandler := handler.NewHandler(
			client,
			a.scheduler,
			a.runs,
			a.repos.Exceptions,
			a.cfg.BaseAdminChatID,
			a.cfg.LookbackDays,
			a.logger,
		)
		go botHandler.HandleUpdates(ctx, client.Updates())
		defer client.Stop()
	} else {
		a.logger.Info("TELEGRAM_BOT_TOKEN not set, operator bot disabled")
	}

	a.scheduler.Start(ctx)
	a.logger.Info("Reconciler started. Press Ctrl+C to stop.")

	<-ctx.Done()
	a.scheduler.Stop()

	a.logger.Info("Reconciler stopped gracefully")
	return nil
}
