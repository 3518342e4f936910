package temporal

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// ZerologAdapter routes Temporal SDK logs into zerolog.
type ZerologAdapter struct {
	logger zerolog.Logger
}

var (
	_ log.Logger     = (*ZerologAdapter)(nil)
	_ log.WithLogger = (*ZerologAdapter)(nil)
)

func NewZerologAdapter(logger zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{
		logger: logger.With().Str("component", "temporal-sdk").Logger(),
	}
}

func fields(keyvals []interface{}) map[string]interface{} {
	if len(keyvals) == 0 {
		return nil
	}
	out := make(map[string]interface{}, (len(keyvals)+1)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		if i+1 < len(keyvals) {
			out[key] = keyvals[i+1]
		} else {
			out[key] = "MISSING_VALUE"
		}
	}
	return out
}

func (a *ZerologAdapter) Debug(msg string, keyvals ...interface{}) {
	a.logger.Debug().Fields(fields(keyvals)).Msg(msg)
}

func (a *ZerologAdapter) Info(msg string, keyvals ...interface{}) {
	a.logger.Info().Fields(fields(keyvals)).Msg(msg)
}

func (a *ZerologAdapter) Warn(msg string, keyvals ...interface{}) {
	a.logger.Warn().Fields(fields(keyvals)).Msg(msg)
}

func (a *ZerologAdapter) Error(msg string, keyvals ...interface{}) {
	a.logger.Error().Fields(fields(keyvals)).Msg(msg)
}

// With returns an adapter that attaches keyvals to every entry.
func (a *ZerologAdapter) With(keyvals ...interface{}) log.Logger {
	return &ZerologAdapter{logger: a.logger.With().Fields(fields(keyvals)).Logger()}
}
