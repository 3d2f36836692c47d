// Package download saves historical candles of a feed as CSV files readable by the CSV feed.
package download

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/xhit/go-str2duration/v2"
	"golang.org/x/sync/errgroup"

	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/logger"
)

const (
	batchSize          = 500
	defaultConcurrency = 4
)

var csvHeaders = []string{"time", "open", "close", "low", "high", "volume"}

// Downloader fetches candles from a feed in batches
type Downloader struct {
	feeder      core.Feeder
	log         logger.Logger
	concurrency int
	progress    io.Writer
}

// DownloaderOption configures a Downloader
type DownloaderOption func(*Downloader)

// WithConcurrency sets how many batches are requested at the same time
func WithConcurrency(n int) DownloaderOption {
	return func(d *Downloader) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithProgressWriter redirects the progress bar, io.Discard hides it
func WithProgressWriter(w io.Writer) DownloaderOption {
	return func(d *Downloader) {
		d.progress = w
	}
}

// NewDownloader creates a downloader reading from feeder
func NewDownloader(feeder core.Feeder, log logger.Logger, options ...DownloaderOption) Downloader {
	d := Downloader{
		feeder:      feeder,
		log:         log,
		concurrency: defaultConcurrency,
		progress:    os.Stderr,
	}
	for _, option := range options {
		option(&d)
	}
	return d
}

// Parameters defines the time range for data download
type Parameters struct {
	Start time.Time
	End   time.Time
}

// Option is a function type for configuring download parameters
type Option func(*Parameters)

// WithInterval sets specific start and end times for the download
func WithInterval(start, end time.Time) Option {
	return func(parameters *Parameters) {
		parameters.Start = start
		parameters.End = end
	}
}

// WithDays sets the download period to a specific number of days from now
func WithDays(days int) Option {
	return func(parameters *Parameters) {
		parameters.Start = time.Now().AddDate(0, 0, -days)
		parameters.End = time.Now()
	}
}

type batch struct {
	start, end time.Time
}

// Download writes the candles of pair to outputPath
func (d Downloader) Download(ctx context.Context, pair, timeframe, outputPath string, options ...Option) error {
	recordFile, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer recordFile.Close()

	count, err := d.Write(ctx, recordFile, pair, timeframe, options...)
	if err != nil {
		return err
	}

	d.log.WithFields(map[string]any{"pair": pair, "candles": count, "file": outputPath}).Info("download done")
	return recordFile.Sync()
}

// Write fetches the candles of pair and writes them as CSV, returning how many were written
func (d Downloader) Write(ctx context.Context, w io.Writer, pair, timeframe string, options ...Option) (int, error) {
	parameters := initializeParameters()
	for _, option := range options {
		option(parameters)
	}
	normalizeTimeParameters(parameters)

	interval, err := str2duration.ParseDuration(timeframe)
	if err != nil {
		return 0, fmt.Errorf("invalid timeframe %q: %w", timeframe, err)
	}
	if !parameters.Start.Before(parameters.End) {
		return 0, fmt.Errorf("invalid interval %s - %s", parameters.Start, parameters.End)
	}

	candleCount := int(parameters.End.Sub(parameters.Start)/interval) + 1
	d.log.Infof("Downloading %d candles of %s for %s", candleCount, timeframe, pair)

	batches := splitBatches(parameters.Start, parameters.End, interval)
	results := make([][]core.Candle, len(batches))
	progressBar := progressbar.NewOptions64(int64(candleCount),
		progressbar.OptionSetWriter(d.progress),
		progressbar.OptionSetDescription(pair),
		progressbar.OptionShowCount(),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(d.concurrency)
	for i, b := range batches {
		group.Go(func() error {
			candles, err := d.feeder.CandlesByPeriod(groupCtx, pair, timeframe, b.start, b.end)
			if err != nil {
				return fmt.Errorf("batch %s: %w", b.start.Format(time.DateTime), err)
			}
			results[i] = candles
			if err := progressBar.Add(len(candles)); err != nil {
				d.log.Warnf("Failed to update progress bar: %s", err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return 0, err
	}
	if err := progressBar.Close(); err != nil {
		d.log.Warnf("Failed to close progress bar: %s", err)
	}

	candles := lo.UniqBy(lo.Flatten(results), func(c core.Candle) int64 { return c.Time.Unix() })
	candles = lo.Filter(candles, func(c core.Candle, _ int) bool {
		return !c.Time.Before(parameters.Start) && !c.Time.After(parameters.End)
	})

	if missing := candleCount - len(candles); missing > 0 {
		d.log.Warnf("%d missing candles", missing)
	}

	precision := d.feeder.AssetsInfo(pair).PricePrecision()
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeaders); err != nil {
		return 0, err
	}
	for _, candle := range candles {
		if err := writer.Write(candle.ToSlice(precision)); err != nil {
			return 0, err
		}
	}

	writer.Flush()
	return len(candles), writer.Error()
}

// initializeParameters creates default parameters for the last month
func initializeParameters() *Parameters {
	now := time.Now()
	return &Parameters{
		Start: now.AddDate(0, -1, 0),
		End:   now,
	}
}

// normalizeTimeParameters moves the start to midnight UTC and keeps the end out of the future
func normalizeTimeParameters(parameters *Parameters) {
	start := parameters.Start.UTC()
	parameters.Start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	now := time.Now()
	if now.After(parameters.End) {
		end := parameters.End.UTC()
		parameters.End = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		parameters.End = now
	}
}

// splitBatches cuts [start, end] in ranges of batchSize candles. Ranges end one second
// before the next one starts so a candle is never requested twice.
func splitBatches(start, end time.Time, interval time.Duration) []batch {
	batches := make([]batch, 0)
	for batchStart := start; !batchStart.After(end); batchStart = batchStart.Add(interval * batchSize) {
		batchEnd := batchStart.Add(interval * batchSize)
		if batchEnd.After(end) {
			batchEnd = end
		} else {
			batchEnd = batchEnd.Add(-time.Second)
		}
		batches = append(batches, batch{start: batchStart, end: batchEnd})
		if batchEnd.Equal(end) {
			break
		}
	}
	return batches
}
