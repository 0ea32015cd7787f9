package util

import (
	"github.com/spf13/cobra"
	"strings"
	"testing"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line exceeds %d characters: %q", Wrap, line)
		}
	}

	if got := WrapString("short text"); got != "short text" {
		t.Errorf("Expected short text to stay unchanged, got %q", got)
	}
}

func TestTransportConfigFromFlagsAndEnv(t *testing.T) {
	t.Setenv("SKV_PORT", "6000")
	t.Setenv("SKV_WRITE_BUFFER", "64")

	cmd := &cobra.Command{Use: "test"}
	SetupTransportFlags(cmd)
	if err := cmd.ParseFlags([]string{"--host", "0.0.0.0", "--tcp-nodelay=false"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	InitConfig()
	if err := BindCommandFlags(cmd); err != nil {
		t.Fatalf("BindCommandFlags failed: %v", err)
	}

	config := GetTransportConfig()
	if config.Host != "0.0.0.0" {
		t.Errorf("Expected host from flag, got %s", config.Host)
	}
	if config.Port != 6000 {
		t.Errorf("Expected port from environment, got %d", config.Port)
	}
	if config.WriteBufferSize != 64*1024 {
		t.Errorf("Expected write buffer of 64 KB, got %d", config.WriteBufferSize)
	}
	if config.TCPNoDelay {
		t.Errorf("Expected TCP_NODELAY to be disabled by flag")
	}
	if config.TCPLingerSec != -1 {
		t.Errorf("Expected default linger -1, got %d", config.TCPLingerSec)
	}
}
