package telemetry

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// stdoutWriter resolves os.Stdout on every write so redirected output is honoured.
type stdoutWriter struct{}

func (stdoutWriter) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

var logger atomic.Pointer[zerolog.Logger]

func init() {
	zerolog.TimestampFieldName = "ts"
	zerolog.MessageFieldName = "msg"
	zerolog.TimeFieldFormat = "2006-01-02T15:04:05Z07:00"
	l := zerolog.New(stdoutWriter{}).With().Timestamp().Logger()
	logger.Store(&l)
}

// SetLevel changes the minimum level written. Unknown values fall back to info.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	l := logger.Load().Level(lvl)
	logger.Store(&l)
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	logger.Load().Info().Fields(fields).Msg(msg)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	logger.Load().Warn().Fields(fields).Msg(msg)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	logger.Load().Error().Fields(fields).Msg(msg)
}
