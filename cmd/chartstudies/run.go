package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gambcl/chartstudies"
	"github.com/gambcl/chartstudies/internal/config"
	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/exchange"
	"github.com/gambcl/chartstudies/pkg/storage"
)

func buildRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the studies over CSV candles and print the signal summary",
		RunE:  runBacktest,
	}

	runCmd.Flags().StringArrayVarP(&dataFiles, "data", "d", nil, "Candles of a pair as PAIR=FILE (e.g. BTCUSDT=./btc.csv)")
	runCmd.Flags().StringVarP(&sourceTimeframe, "source-timeframe", "s", "1m", "Timeframe of the CSV candles")
	runCmd.Flags().StringVar(&storagePath, "storage", "", "Keep the signals in this file instead of memory")
	runCmd.Flags().StringVar(&pairsFile, "pairs", "", "Base and quote assets of pairs without a known quote suffix, as written by download")
	_ = runCmd.MarkFlagRequired("data")

	return runCmd
}

func parseDataFiles(values []string) ([]exchange.PairFeed, error) {
	feeds := make([]exchange.PairFeed, 0, len(values))
	for _, value := range values {
		pair, file, ok := strings.Cut(value, "=")
		if !ok || pair == "" || file == "" {
			return nil, fmt.Errorf("invalid data %q, expected PAIR=FILE", value)
		}
		feeds = append(feeds, exchange.PairFeed{Pair: strings.ToUpper(pair), File: file, Timeframe: sourceTimeframe})
	}
	return feeds, nil
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	appConfig, err := config.LoadAppConfig()
	if err != nil {
		return err
	}

	studyConfig, err := config.LoadStudyConfig(appConfig.ConfigPath)
	if err != nil {
		return err
	}

	if pairsFile != "" {
		if err := exchange.LoadPairs(pairsFile); err != nil {
			return fmt.Errorf("load pairs: %w", err)
		}
	}

	feeds, err := parseDataFiles(dataFiles)
	if err != nil {
		return err
	}

	pairs := make([]string, 0, len(feeds))
	for i, feed := range feeds {
		feeds[i].HeikinAshi = studyConfig.HeikinAshi
		if size, ok := studyConfig.TickSize(feed.Pair); ok {
			feeds[i].Asset = studyConfig.Asset(feed.Pair, core.AssetInfo{TickSize: size})
		}
		pairs = append(pairs, feed.Pair)
	}

	csvFeed, err := exchange.NewCSVFeed(studyConfig.Timeframe, feeds...)
	if err != nil {
		return err
	}

	options := []chartstudies.Option{chartstudies.WithBacktest()}
	if storagePath != "" {
		signalStorage, err := storage.Open(storagePath)
		if err != nil {
			return err
		}
		defer signalStorage.Close()
		options = append(options, chartstudies.WithStorage(signalStorage))
	}

	engine, err := chartstudies.NewEngine(core.Settings{Pairs: pairs, Timeframe: studyConfig.Timeframe},
		csvFeed, studyConfig.Studies, options...)
	if err != nil {
		return err
	}

	if err := engine.Run(cmd.Context()); err != nil {
		return err
	}

	fmt.Println()
	return engine.Summary(os.Stdout)
}
