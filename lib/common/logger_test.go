package common

import (
	"errors"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	}
	for in, want := range cases {
		got, err := ParseLogLevel(in)
		if err != nil {
			t.Errorf("ParseLogLevel(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLogLevel(%q) = %v, expected %v", in, got, want)
		}
	}

	if _, err := ParseLogLevel("loud"); !errors.Is(err, NewError(RetCInvalidConfig, "")) {
		t.Errorf("Expected InvalidConfig error, got %v", err)
	}
}

func TestInitLoggersRepeated(t *testing.T) {
	// the CLI and tests may initialise logging more than once per process
	for _, level := range []string{"info", "debug", "warn"} {
		if err := InitLoggers(level); err != nil {
			t.Fatalf("InitLoggers(%q) failed: %v", level, err)
		}
	}

	if err := InitLoggers("loud"); err == nil {
		t.Errorf("Expected an error for an unknown level")
	}
}
