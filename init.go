package chartstudies

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gambcl/chartstudies/pkg/logger"
	logruslog "github.com/gambcl/chartstudies/pkg/logger/logrus"
	"github.com/gambcl/chartstudies/pkg/logger/zerolog"
)

const (
	defaultLogLevel      = "info"
	defaultLogTimeFormat = "2006-01-02 15:04:05"
	defaultLogColored    = "true"
	defaultLogJSON       = "false"
	defaultLogBackend    = "zerolog"
)

const (
	envLogLevel      = "CHARTSTUDIES_LOG_LEVEL"
	envLogTimeFormat = "CHARTSTUDIES_LOG_TIME_FORMAT"
	envLogColor      = "CHARTSTUDIES_LOG_COLOR"
	envLogJSON       = "CHARTSTUDIES_LOG_JSON"
	envLogBackend    = "CHARTSTUDIES_LOG_BACKEND"
	envLogFile       = "CHARTSTUDIES_LOG_FILE"
)

func init() {
	log, err := NewLoggerFromEnv()
	if err != nil {
		panic(err)
	}
	DefaultLog = log
}

// NewLoggerFromEnv builds a logger from the CHARTSTUDIES_LOG_* variables.
// With CHARTSTUDIES_LOG_FILE set, output goes to a rotated file without colors.
func NewLoggerFromEnv() (logger.Logger, error) {
	level := getEnvWithDefault(envLogLevel, defaultLogLevel)
	timeFormat := getEnvWithDefault(envLogTimeFormat, defaultLogTimeFormat)

	colored, err := parseBoolEnv(envLogColor, defaultLogColored)
	if err != nil {
		return nil, err
	}
	jsonFormat, err := parseBoolEnv(envLogJSON, defaultLogJSON)
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stdout
	if file := os.Getenv(envLogFile); file != "" {
		out = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
		}
		colored = false
	}

	return newLogger(getEnvWithDefault(envLogBackend, defaultLogBackend), out, level, timeFormat, colored, jsonFormat)
}

func newLogger(backend string, out io.Writer, level, timeFormat string, colored, jsonFormat bool) (logger.Logger, error) {
	switch backend {
	case "zerolog":
		log, err := zerolog.NewWithWriter(out, level, timeFormat, colored, jsonFormat)
		if err != nil {
			return nil, err
		}
		return zerolog.NewAdapter(log), nil
	case "logrus":
		log, err := logruslog.New(level, timeFormat, colored, jsonFormat)
		if err != nil {
			return nil, err
		}
		log.Logger.SetOutput(out)
		return log, nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func parseBoolEnv(key, defaultValue string) (bool, error) {
	value := getEnvWithDefault(key, defaultValue)
	return strconv.ParseBool(value)
}
