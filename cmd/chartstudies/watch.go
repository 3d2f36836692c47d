package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/gambcl/chartstudies"
	"github.com/gambcl/chartstudies/internal/config"
	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/metrics"
	"github.com/gambcl/chartstudies/pkg/notification"
	"github.com/gambcl/chartstudies/pkg/storage"
)

var preloadBars int

func buildWatchCmd() *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the studies on live Binance candles",
		RunE:  runWatch,
	}
	watchCmd.Flags().IntVar(&preloadBars, "preload", 500, "Bars of history loaded before watching (max 999)")
	return watchCmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appConfig, err := config.LoadAppConfig()
	if err != nil {
		return err
	}

	studyConfig, err := config.LoadStudyConfig(appConfig.ConfigPath)
	if err != nil {
		return err
	}

	feed, err := newBinanceFeed(cmd, appConfig.Binance, studyConfig.HeikinAshi)
	if err != nil {
		return err
	}

	signalStorage, err := storage.Open(appConfig.StoragePath)
	if err != nil {
		return err
	}
	defer signalStorage.Close()

	settings := core.Settings{
		Pairs:     studyConfig.Pairs,
		Timeframe: studyConfig.Timeframe,
		Telegram: core.TelegramSettings{
			Enabled: appConfig.Telegram.Enabled,
			Token:   appConfig.Telegram.Token,
			Users:   appConfig.Telegram.Users,
		},
	}

	options := []chartstudies.Option{
		chartstudies.WithStorage(signalStorage),
		chartstudies.WithPreload(preloadBars),
	}
	if appConfig.Mail.Enabled {
		options = append(options, chartstudies.WithNotifier(notification.NewMail(notification.MailParams{
			SMTPServerPort:    appConfig.Mail.Port,
			SMTPServerAddress: appConfig.Mail.Server,
			To:                appConfig.Mail.To,
			From:              appConfig.Mail.From,
			Password:          appConfig.Mail.Password,
			Logger:            log,
		})))
	}

	engine, err := chartstudies.NewEngine(settings, feed, studyConfig.Studies, options...)
	if err != nil {
		return err
	}

	if appConfig.MetricsAddr != "" {
		server := startMetricsServer(appConfig.MetricsAddr)
		defer shutdown(server)
	}

	if studyConfig.SummarySchedule != "" {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(studyConfig.SummarySchedule, func() { sendSummary(engine) }); err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	log.WithFields(map[string]any{
		"pairs":     settings.Pairs,
		"timeframe": settings.Timeframe,
		"config":    appConfig.ConfigPath,
		"storage":   appConfig.StoragePath,
	}).Info("watching")

	return engine.Run(ctx)
}

// sendSummary notifies the statistics of the last 24 hours
func sendSummary(engine *chartstudies.Engine) {
	end := time.Now()
	var buffer bytes.Buffer
	if err := engine.Summary(&buffer, core.WithTimeRange(end.Add(-24*time.Hour), end)); err != nil {
		log.WithError(err).Error("summary failed")
		return
	}
	engine.Notify("Daily summary\n" + buffer.String())
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Infof("serving metrics on %s/metrics", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	return server
}

func shutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
}
