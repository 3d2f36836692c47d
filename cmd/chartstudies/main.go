// Package main is the command line entry point of chartstudies
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gambcl/chartstudies"
	"github.com/gambcl/chartstudies/internal/config"
	"github.com/gambcl/chartstudies/pkg/download"
	"github.com/gambcl/chartstudies/pkg/exchange"
	"github.com/gambcl/chartstudies/pkg/exchange/binance"
)

const dateLayout = "2006-01-02"

var log = chartstudies.DefaultLog

// Command line flags
var (
	envFile   string
	pairsFile string

	// download
	pair       string
	days       int
	startDate  string
	endDate    string
	timeframe  string
	outputFile string

	// run
	dataFiles       []string
	sourceTimeframe string
	storagePath     string

	// init-config
	force bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "chartstudies",
		Short:         "Initial balance, volume imbalance and wave trend studies",
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return loadEnv(envFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file loaded before reading the configuration")

	rootCmd.AddCommand(
		buildWatchCmd(),
		buildRunCmd(),
		buildDownloadCmd(),
		buildInitConfigCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadEnv loads a dotenv file when it exists. Variables already set win.
func loadEnv(file string) error {
	if file == "" {
		return nil
	}
	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(file); err != nil {
		return fmt.Errorf("load %s: %w", file, err)
	}
	return nil
}

func buildDownloadCmd() *cobra.Command {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download historical candles from Binance into a CSV file",
		RunE:  runDownload,
	}

	downloadCmd.Flags().StringVarP(&pair, "pair", "p", "", "Pair (e.g. BTCUSDT)")
	downloadCmd.Flags().IntVarP(&days, "days", "d", 0, "Number of days to download (default 30 days)")
	downloadCmd.Flags().StringVarP(&startDate, "start", "s", "", "Start date (e.g. 2024-01-01)")
	downloadCmd.Flags().StringVarP(&endDate, "end", "e", "", "End date (e.g. 2024-01-31)")
	downloadCmd.Flags().StringVarP(&timeframe, "timeframe", "t", "1m", "Timeframe (e.g. 5m)")
	downloadCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (e.g. ./btc.csv)")
	downloadCmd.Flags().StringVar(&pairsFile, "pairs", "", "Also write the base and quote assets of the exchange pairs to this file")

	_ = downloadCmd.MarkFlagRequired("pair")
	_ = downloadCmd.MarkFlagRequired("output")

	return downloadCmd
}

func runDownload(cmd *cobra.Command, _ []string) error {
	appConfig, err := config.LoadAppConfig()
	if err != nil {
		return err
	}

	feed, err := newBinanceFeed(cmd, appConfig.Binance, false)
	if err != nil {
		return err
	}

	options, err := buildDownloadOptions()
	if err != nil {
		return err
	}

	err = download.NewDownloader(feed, log, download.WithProgressWriter(os.Stderr)).
		Download(cmd.Context(), pair, timeframe, outputFile, options...)
	if err != nil {
		return err
	}

	if pairsFile != "" {
		if err := exchange.SavePairs(pairsFile); err != nil {
			return fmt.Errorf("save pairs: %w", err)
		}
		log.Infof("pairs written to %s", pairsFile)
	}
	return nil
}

func newBinanceFeed(cmd *cobra.Command, cfg config.BinanceConfig, heikinAshi bool) (*binance.Feed, error) {
	options := []binance.Option{binance.WithCredentials(cfg.APIKey, cfg.SecretKey)}
	if cfg.UseTestnet {
		options = append(options, binance.WithTestNet())
	}
	if heikinAshi {
		options = append(options, binance.WithHeikinAshiCandles())
	}
	return binance.NewFeed(cmd.Context(), log, options...)
}

func buildDownloadOptions() ([]download.Option, error) {
	var options []download.Option

	if days > 0 {
		options = append(options, download.WithDays(days))
	}

	if startDate != "" || endDate != "" {
		if startDate == "" || endDate == "" {
			return nil, fmt.Errorf("START and END dates must be provided together")
		}

		start, err := time.Parse(dateLayout, startDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start date format: %w", err)
		}

		end, err := time.Parse(dateLayout, endDate)
		if err != nil {
			return nil, fmt.Errorf("invalid end date format: %w", err)
		}

		options = append(options, download.WithInterval(start, end))
	}

	return options, nil
}

func buildInitConfigCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write the default study configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := config.DefaultConfigPath
			if len(args) == 1 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite it", path)
			}

			if err := config.SaveStudyConfig(path, config.DefaultStudyConfig()); err != nil {
				return err
			}
			log.Infof("default configuration written to %s", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return initCmd
}
