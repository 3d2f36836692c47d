package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/study"
	"github.com/gambcl/chartstudies/pkg/study/imbalance"
	"github.com/gambcl/chartstudies/pkg/study/initialbalance"
	"github.com/gambcl/chartstudies/pkg/study/wavetrend"
)

const sessionLayout = "15:04"

var ErrNoStudies = errors.New("no study enabled")

// StudyConfig selects the pairs to watch and the options of every study
type StudyConfig struct {
	Pairs           []string             `yaml:"pairs" mapstructure:"pairs"`
	Timeframe       string               `yaml:"timeframe" mapstructure:"timeframe"`
	HeikinAshi      bool                 `yaml:"heikin_ashi" mapstructure:"heikin_ashi"`
	SummarySchedule string               `yaml:"summary_schedule" mapstructure:"summary_schedule"`
	TickSizes       map[string]float64   `yaml:"tick_sizes,omitempty" mapstructure:"tick_sizes"`
	InitialBalance  InitialBalanceConfig `yaml:"initial_balance" mapstructure:"initial_balance"`
	Imbalance       ImbalanceConfig      `yaml:"volume_imbalances" mapstructure:"volume_imbalances"`
	WaveTrend       WaveTrendConfig      `yaml:"wave_trend" mapstructure:"wave_trend"`
}

type InitialBalanceConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	SessionStart    string `yaml:"session_start" mapstructure:"session_start"`
	SessionEnd      string `yaml:"session_end" mapstructure:"session_end"`
	TimeZone        string `yaml:"time_zone" mapstructure:"time_zone"`
	ShowDeveloping  bool   `yaml:"show_developing" mapstructure:"show_developing"`
	ExtensionLevels int    `yaml:"extension_levels" mapstructure:"extension_levels"`
	FutureDays      int    `yaml:"future_days" mapstructure:"future_days"`
}

type ImbalanceConfig struct {
	Enabled  bool    `yaml:"enabled" mapstructure:"enabled"`
	MinTicks float64 `yaml:"min_ticks" mapstructure:"min_ticks"`
	Bullish  bool    `yaml:"bullish" mapstructure:"bullish"`
	Bearish  bool    `yaml:"bearish" mapstructure:"bearish"`
}

type WaveTrendConfig struct {
	Enabled       bool    `yaml:"enabled" mapstructure:"enabled"`
	ChannelLength int     `yaml:"channel_length" mapstructure:"channel_length"`
	AverageLength int     `yaml:"average_length" mapstructure:"average_length"`
	MALength      int     `yaml:"ma_length" mapstructure:"ma_length"`
	Overbought    float64 `yaml:"overbought" mapstructure:"overbought"`
	Oversold      float64 `yaml:"oversold" mapstructure:"oversold"`
}

// DefaultStudyConfig enables the three studies with their default options on BTCUSDT 1m
func DefaultStudyConfig() *StudyConfig {
	ib := initialbalance.DefaultOptions()
	imb := imbalance.DefaultOptions()
	wt := wavetrend.DefaultOptions()

	return &StudyConfig{
		Pairs:           []string{"BTCUSDT"},
		Timeframe:       ib.Timeframe,
		SummarySchedule: "0 22 * * *",
		InitialBalance: InitialBalanceConfig{
			Enabled:         true,
			SessionStart:    formatOffset(ib.Session.Start),
			SessionEnd:      formatOffset(ib.Session.End),
			TimeZone:        ib.Location.String(),
			ShowDeveloping:  ib.ShowDeveloping,
			ExtensionLevels: ib.ExtensionLevels,
			FutureDays:      ib.FutureDays,
		},
		Imbalance: ImbalanceConfig{
			Enabled:  true,
			MinTicks: imb.MinTicks,
			Bullish:  imb.Bullish,
			Bearish:  imb.Bearish,
		},
		WaveTrend: WaveTrendConfig{
			Enabled:       true,
			ChannelLength: wt.ChannelLength,
			AverageLength: wt.AverageLength,
			MALength:      wt.MALength,
			Overbought:    wt.Overbought,
			Oversold:      wt.Oversold,
		},
	}
}

// LoadStudyConfig reads the study configuration, writing the defaults when the file is missing
func LoadStudyConfig(configPath string) (*StudyConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultStudyConfig()
		return config, SaveStudyConfig(configPath, config)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", configPath, err)
	}

	config := DefaultStudyConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return config, nil
}

// SaveStudyConfig writes config as YAML, creating the directory if needed
func SaveStudyConfig(configPath string, config *StudyConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("could not create configuration directory: %w", err)
	}

	content, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("could not encode configuration: %w", err)
	}

	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		return fmt.Errorf("could not save configuration: %w", err)
	}
	return nil
}

// TickSize returns the configured tick size of a pair. Keys are matched
// case-insensitively because viper lowercases map keys.
func (c *StudyConfig) TickSize(pair string) (float64, bool) {
	for key, size := range c.TickSizes {
		if strings.EqualFold(key, pair) && size > 0 {
			return size, true
		}
	}
	return 0, false
}

// Asset applies the configured tick size to the market information of a pair
func (c *StudyConfig) Asset(pair string, asset core.AssetInfo) core.AssetInfo {
	if size, ok := c.TickSize(pair); ok {
		asset.TickSize = size
		asset.QuotePrecision = int(core.NumDecPlaces(size))
	}
	return asset
}

// Studies builds the enabled studies of a pair
func (c *StudyConfig) Studies(pair string, asset core.AssetInfo) ([]study.Study, error) {
	asset = c.Asset(pair, asset)
	studies := make([]study.Study, 0, 3)

	if c.InitialBalance.Enabled {
		opts, err := c.initialBalanceOptions(asset)
		if err != nil {
			return nil, err
		}
		s, err := initialbalance.New(opts)
		if err != nil {
			return nil, err
		}
		studies = append(studies, s)
	}

	if c.Imbalance.Enabled {
		s, err := imbalance.New(imbalance.Options{
			MinTicks: c.Imbalance.MinTicks,
			Bullish:  c.Imbalance.Bullish,
			Bearish:  c.Imbalance.Bearish,
			Asset:    asset,
		})
		if err != nil {
			return nil, err
		}
		studies = append(studies, s)
	}

	if c.WaveTrend.Enabled {
		s, err := wavetrend.New(wavetrend.Options{
			ChannelLength: c.WaveTrend.ChannelLength,
			AverageLength: c.WaveTrend.AverageLength,
			MALength:      c.WaveTrend.MALength,
			Overbought:    c.WaveTrend.Overbought,
			Oversold:      c.WaveTrend.Oversold,
		})
		if err != nil {
			return nil, err
		}
		studies = append(studies, s)
	}

	if len(studies) == 0 {
		return nil, ErrNoStudies
	}
	return studies, nil
}

func (c *StudyConfig) initialBalanceOptions(asset core.AssetInfo) (initialbalance.Options, error) {
	cfg := c.InitialBalance

	start, err := parseOffset(cfg.SessionStart)
	if err != nil {
		return initialbalance.Options{}, err
	}
	end, err := parseOffset(cfg.SessionEnd)
	if err != nil {
		return initialbalance.Options{}, err
	}

	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return initialbalance.Options{}, fmt.Errorf("time zone %q: %w", cfg.TimeZone, err)
	}

	return initialbalance.Options{
		Timeframe:       c.Timeframe,
		Session:         initialbalance.Session{Start: start, End: end},
		Location:        location,
		ShowDeveloping:  cfg.ShowDeveloping,
		ExtensionLevels: cfg.ExtensionLevels,
		FutureDays:      cfg.FutureDays,
		Asset:           asset,
	}, nil
}

// parseOffset converts a HH:MM wall clock time into an offset from midnight
func parseOffset(value string) (time.Duration, error) {
	t, err := time.Parse(sessionLayout, value)
	if err != nil {
		return 0, fmt.Errorf("session time %q: %w", value, initialbalance.ErrInvalidSession)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func formatOffset(offset time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(offset.Hours()), int(offset.Minutes())%60)
}
