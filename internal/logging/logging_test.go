package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "momentum-options/internal/errors"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestEventHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	LogTickerFailure(WithOperation(logger, "rank_panel"), "AAPL", errors.New("no closes"))
	LogNonConvergence(logger, apperrors.NewConvergenceError("strike", 50, 0.004))
	LogBatch(logger, "recommend_batch", 3, 1, 2*time.Second)

	out := buf.String()
	for _, want := range []string{
		`"event":"ticker_failed"`,
		`"symbol":"AAPL"`,
		`"operation":"rank_panel"`,
		`"error":"no closes"`,
		`"event":"non_convergence"`,
		`"solver":"strike"`,
		`"iterations":50`,
		`"succeeded":3`,
		`"failed":1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}

func TestConsoleLoggerWritesToGivenWriter(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultLogConfig()
	cfg.Level = "info"

	logger := newLogger(cfg, &buf)
	logger.Info().Msg("hello")

	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("console output = %q", buf.String())
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := WithLogger(context.Background(), WithSymbol(logger, "MSFT"))
	ctxLogger := FromContext(ctx)
	ctxLogger.Info().Msg("from context")
	if !strings.Contains(buf.String(), `"symbol":"MSFT"`) {
		t.Errorf("output = %q", buf.String())
	}

	// Missing logger yields a no-op logger rather than panicking.
	nopLogger := FromContext(context.Background())
	nopLogger.Info().Msg("dropped")
}
