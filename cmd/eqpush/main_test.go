package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestSubcommands(t *testing.T) {
	for _, name := range []string{"watch", "follow", "check", "completion"} {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{name})
			if err != nil || cmd.Name() != name {
				t.Errorf("rootCmd.Find(%q) = %v, %v", name, cmd, err)
			}
		})
	}
}

func TestValidLogFormats(t *testing.T) {
	tests := []struct {
		format string
		valid  bool
	}{
		{"text", true},
		{"json", true},
		{"jsonl", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			if got := validLogFormats[tt.format]; got != tt.valid {
				t.Errorf("validLogFormats[%q] = %v, want %v", tt.format, got, tt.valid)
			}
		})
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eqpush.yaml")
	data := "push:\n  prowl_api_key: abc\n  character_names: Fippy\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	old := configPath
	configPath = path
	t.Cleanup(func() { configPath = old })

	src, manager, err := loadConfig(newLogger(io.Discard))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if manager == nil {
		t.Fatal("loadConfig() should return a manager for a config file")
	}
	if got := src.Current().Push.ProwlAPIKey; got != "abc" {
		t.Errorf("ProwlAPIKey = %q, want abc", got)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	old := configPath
	configPath = filepath.Join(t.TempDir(), "missing.yaml")
	t.Cleanup(func() { configPath = old })

	if _, _, err := loadConfig(newLogger(io.Discard)); err == nil {
		t.Error("loadConfig() expected error for missing file")
	}
}

func TestCompletion(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"completion", "bash"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("completion bash error = %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("eqpush")) {
		t.Error("completion output should mention eqpush")
	}
}
