package utils

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds the root logger writing JSON lines to out.
// An unknown level name falls back to info.
func NewLogger(level string, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("app", "knob-agent").Logger()
}
