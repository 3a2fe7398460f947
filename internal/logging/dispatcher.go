package logging

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DispatcherLogger writes dispatcher key/value pairs as typed zerolog fields.
type DispatcherLogger struct {
	logger zerolog.Logger
}

// NewDispatcherLogger wraps logger for use by the command dispatcher.
func NewDispatcherLogger(logger zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{logger: logger.With().Str("component", "dispatcher").Logger()}
}

func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	withPairs(l.logger.Debug(), keysAndValues).Msg(msg)
}

func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	withPairs(l.logger.Info(), keysAndValues).Msg(msg)
}

// Warn is used for events the dispatcher had to drop.
func (l *DispatcherLogger) Warn(msg string, keysAndValues ...any) {
	withPairs(l.logger.Warn(), keysAndValues).Msg(msg)
}

func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	withPairs(l.logger.Error(), keysAndValues).Msg(msg)
}

// withPairs adds alternating key/value arguments to e. Pairs whose key is not
// a string are skipped, as is a trailing key without a value.
func withPairs(e *zerolog.Event, keysAndValues []any) *zerolog.Event {
	if e == nil {
		return e
	}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		switch v := keysAndValues[i+1].(type) {
		case string:
			e = e.Str(key, v)
		case int:
			e = e.Int(key, v)
		case int64:
			e = e.Int64(key, v)
		case uint32:
			e = e.Uint32(key, v)
		case bool:
			e = e.Bool(key, v)
		case float64:
			e = e.Float64(key, v)
		case time.Duration:
			e = e.Dur(key, v)
		case error:
			if key == "error" {
				e = e.Err(v)
			} else {
				e = e.AnErr(key, v)
			}
		case []string:
			e = e.Strs(key, v)
		case fmt.Stringer:
			e = e.Stringer(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	return e
}
