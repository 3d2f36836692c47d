package zerolog

import (
	"fmt"

	"github.com/gambcl/chartstudies/pkg/logger"
	"github.com/rs/zerolog"
)

// Adapter exposes a zerolog logger through logger.Logger
type Adapter struct {
	*zerolog.Logger
}

var _ logger.Logger = (*Adapter)(nil)

func NewAdapter(l *zerolog.Logger) *Adapter {
	return &Adapter{l}
}

func (z *Adapter) GetLevel() logger.Level {
	return toLevel(zerolog.GlobalLevel())
}

func (z *Adapter) SetLevel(level logger.Level) {
	zerolog.SetGlobalLevel(toZerologLevel(level))
}

func (z *Adapter) Print(args ...any) { z.Logger.Print(args...) }

func (z *Adapter) Trace(args ...any) { z.Logger.Trace().Msg(fmt.Sprint(args...)) }

func (z *Adapter) Debug(args ...any) { z.Logger.Debug().Msg(fmt.Sprint(args...)) }

func (z *Adapter) Info(args ...any) { z.Logger.Info().Msg(fmt.Sprint(args...)) }

func (z *Adapter) Warn(args ...any) { z.Logger.Warn().Msg(fmt.Sprint(args...)) }

func (z *Adapter) Error(args ...any) { z.Logger.Error().Msg(fmt.Sprint(args...)) }

func (z *Adapter) Fatal(args ...any) { z.Logger.Fatal().Msg(fmt.Sprint(args...)) }

func (z *Adapter) Panic(args ...any) { z.Logger.Panic().Msg(fmt.Sprint(args...)) }

func (z *Adapter) Printf(format string, args ...any) { z.Logger.Printf(format, args...) }

func (z *Adapter) Tracef(format string, args ...any) { z.Logger.Trace().Msgf(format, args...) }

func (z *Adapter) Debugf(format string, args ...any) { z.Logger.Debug().Msgf(format, args...) }

func (z *Adapter) Infof(format string, args ...any) { z.Logger.Info().Msgf(format, args...) }

func (z *Adapter) Warnf(format string, args ...any) { z.Logger.Warn().Msgf(format, args...) }

func (z *Adapter) Errorf(format string, args ...any) { z.Logger.Error().Msgf(format, args...) }

func (z *Adapter) Fatalf(format string, args ...any) { z.Logger.Fatal().Msgf(format, args...) }

func (z *Adapter) Panicf(format string, args ...any) { z.Logger.Panic().Msgf(format, args...) }

func (z *Adapter) WithError(err error) logger.Logger {
	l := z.With().Err(err).Logger()
	return &Adapter{&l}
}

func (z *Adapter) WithField(key string, value any) logger.Logger {
	l := z.With().Interface(key, value).Logger()
	return &Adapter{&l}
}

func (z *Adapter) WithFields(fields map[string]any) logger.Logger {
	l := z.With().Fields(fields).Logger()
	return &Adapter{&l}
}

var levels = map[zerolog.Level]logger.Level{
	zerolog.Disabled:   logger.Disabled,
	zerolog.NoLevel:    logger.NoLevel,
	zerolog.TraceLevel: logger.TraceLevel,
	zerolog.DebugLevel: logger.DebugLevel,
	zerolog.InfoLevel:  logger.InfoLevel,
	zerolog.WarnLevel:  logger.WarnLevel,
	zerolog.ErrorLevel: logger.ErrorLevel,
	zerolog.FatalLevel: logger.FatalLevel,
	zerolog.PanicLevel: logger.PanicLevel,
}

func toLevel(level zerolog.Level) logger.Level {
	if l, ok := levels[level]; ok {
		return l
	}
	return logger.NoLevel
}

func toZerologLevel(level logger.Level) zerolog.Level {
	for zl, l := range levels {
		if l == level {
			return zl
		}
	}
	return zerolog.NoLevel
}
