package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"serve", "tail", "mcp", "version"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Errorf("Expected subcommand %s, got %v (%v)", name, sub, err)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "9.9.9"
	defer func() { Version = "0.0.0" }()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(out.String(), "devlog version: 9.9.9") {
		t.Errorf("Unexpected output: %q", out.String())
	}
}
