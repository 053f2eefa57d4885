// Package telemetry wires up the two loggers carried by a benchmark run:
// zerolog for the orchestrator/CLI layer, and charmbracelet/log for the
// per-seat agent/driver layer. It mirrors
// cmd/pokerforbots/shared/logging.go's SetupLogger/SetupStructuredLogger
// split, generalized to pick console-vs-JSON output by whether stderr is a
// terminal rather than by a single hardcoded choice.
package telemetry

import (
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// NewRunLogger builds the orchestrator/CLI layer's zerolog.Logger. When
// stderr is a terminal it renders pretty console output via
// zerolog.ConsoleWriter, the same as SetupLogger; otherwise it emits
// structured JSON with RFC3339Nano timestamps, the same as
// SetupStructuredLogger. debug raises the level to Debug.
func NewRunLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	if isatty.IsTerminal(os.Stderr.Fd()) {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).
			With().
			Timestamp().
			Logger()
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(os.Stderr).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewAgentLogger builds the per-seat agent/driver layer's logger. Callers
// attach per-seat context with WithPrefix/With, the same pattern
// internal/server/network_agent.go uses for per-connection sublogger.
func NewAgentLogger(debug bool) *charmlog.Logger {
	level := charmlog.InfoLevel
	if debug {
		level = charmlog.DebugLevel
	}

	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		Level:           level,
	})
	return logger
}
