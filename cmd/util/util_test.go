package util

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/hzrd/lib/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 40)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line exceeds %d characters: %q", Wrap, line)
		}
	}

	if got := WrapString("short text"); got != "short text" {
		t.Errorf("Expected short text to stay on one line, got %q", got)
	}
}

func TestGetStressConfig(t *testing.T) {
	defer viper.Reset()

	cmd := &cobra.Command{Use: "test"}
	SetupStressFlags(cmd)
	SetupLogFlags(cmd)

	if err := cmd.ParseFlags([]string{"--readers=3", "--duration=750ms", "--domain=global"}); err != nil {
		t.Fatalf("Unexpected error parsing flags: %v", err)
	}
	if err := BindCommandFlags(cmd); err != nil {
		t.Fatalf("Unexpected error binding flags: %v", err)
	}

	conf, err := GetStressConfig()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if conf.Readers != 3 || conf.Duration != 750*time.Millisecond || conf.Domain != common.DomainGlobal {
		t.Errorf("Flags were not applied: %+v", conf)
	}
	if conf.Writers != common.DefaultStressConfig().Writers {
		t.Errorf("Expected default writer count, got %d", conf.Writers)
	}

	viper.Set("domain", "remote")
	if _, err := GetStressConfig(); !errors.Is(err, common.NewError(common.RetCInvalidConfig, "")) {
		t.Errorf("Expected InvalidConfig error for unknown domain, got %v", err)
	}
}
