// Package config loads the application settings from the environment and the
// study settings from a YAML file.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultConfigPath  = "./chartstudies.yaml"
	DefaultStoragePath = "./chartstudies.db"
)

// AppConfig holds the application configuration
type AppConfig struct {
	Binance     BinanceConfig
	Telegram    TelegramConfig
	Mail        MailConfig
	ConfigPath  string
	StoragePath string
	MetricsAddr string
}

// BinanceConfig holds the Binance feed configuration
type BinanceConfig struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	Enabled bool
	Token   string
	Users   []int
}

// MailConfig holds the SMTP notification configuration
type MailConfig struct {
	Enabled  bool
	Server   string
	Port     int
	From     string
	To       string
	Password string
}

// LoadAppConfig reads the application configuration from environment variables
func LoadAppConfig() (*AppConfig, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("CONFIG_PATH", DefaultConfigPath)
	v.SetDefault("STORAGE_PATH", DefaultStoragePath)
	v.SetDefault("METRICS_ADDR", "")
	v.SetDefault("BINANCE_USE_TESTNET", false)
	v.SetDefault("TELEGRAM_ENABLED", false)
	v.SetDefault("MAIL_ENABLED", false)
	v.SetDefault("MAIL_PORT", 587)

	users, err := parseUsers(v.GetString("TELEGRAM_USERS"))
	if err != nil {
		return nil, err
	}

	config := &AppConfig{
		Binance: BinanceConfig{
			APIKey:     v.GetString("BINANCE_API_KEY"),
			SecretKey:  v.GetString("BINANCE_SECRET_KEY"),
			UseTestnet: v.GetBool("BINANCE_USE_TESTNET"),
		},
		Telegram: TelegramConfig{
			Enabled: v.GetBool("TELEGRAM_ENABLED"),
			Token:   v.GetString("TELEGRAM_TOKEN"),
			Users:   users,
		},
		Mail: MailConfig{
			Enabled:  v.GetBool("MAIL_ENABLED"),
			Server:   v.GetString("MAIL_SERVER"),
			Port:     v.GetInt("MAIL_PORT"),
			From:     v.GetString("MAIL_FROM"),
			To:       v.GetString("MAIL_TO"),
			Password: v.GetString("MAIL_PASSWORD"),
		},
		ConfigPath:  v.GetString("CONFIG_PATH"),
		StoragePath: v.GetString("STORAGE_PATH"),
		MetricsAddr: v.GetString("METRICS_ADDR"),
	}

	return config, nil
}

// parseUsers reads a comma or space separated list of Telegram user IDs
func parseUsers(value string) ([]int, error) {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' '
	})

	users := make([]int, 0, len(fields))
	for _, field := range fields {
		id, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_USERS entry %q: %w", field, err)
		}
		users = append(users, id)
	}
	return users, nil
}
