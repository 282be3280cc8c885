package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testRoster = `
[[account]]
protocol = "xmpp"
username = "me@example.com"
connected = true

[[group]]
name = "Friends"

  [[group.contact]]
    [[group.contact.buddy]]
    account = "xmpp:me@example.com"
    name = "alice@example.com"
    alias = "Alice"
    status = "online"

  [[group.contact]]
    [[group.contact.buddy]]
    account = "xmpp:me@example.com"
    name = "bob@example.com"
    alias = "Bob"
    status = "offline"
`

// writeFixture writes a config and roster into a temp dir and points the
// XDG directories there
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_DATA_HOME", dir)
	t.Setenv("XDG_CACHE_HOME", dir)

	rosterPath := filepath.Join(dir, "roster.toml")
	if err := os.WriteFile(rosterPath, []byte(testRoster), 0600); err != nil {
		t.Fatalf("failed to write roster: %v", err)
	}
	cfgPath := filepath.Join(dir, "config.toml")
	cfg := "[general]\ndata_dir = " + quote(dir) + "\n\n[buddylist]\nroster_file = " + quote(rosterPath) + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return cfgPath
}

func quote(s string) string {
	return "'" + s + "'"
}

func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		configFile, rosterFile, sortPolicy = "", "", ""
		showOffline, debugMode, outgoing = false, false, false
		for _, c := range []string{"show-offline"} {
			if f := rootCmd.PersistentFlags().Lookup(c); f != nil {
				f.Changed = false
			}
		}
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	resetFlags(t)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("expected %v to succeed, got %v", args, err)
	}
	return out.String()
}

func TestFlagDefaults(t *testing.T) {
	tests := []struct {
		name      string
		shorthand string
		def       string
	}{
		{"config", "c", ""},
		{"roster", "r", ""},
		{"sort", "s", ""},
		{"show-offline", "", "false"},
		{"debug", "", "false"},
	}
	for _, tt := range tests {
		flag := rootCmd.PersistentFlags().Lookup(tt.name)
		if flag == nil {
			t.Fatalf("--%s flag not found", tt.name)
		}
		if flag.DefValue != tt.def {
			t.Errorf("--%s default = %q, want %q", tt.name, flag.DefValue, tt.def)
		}
		if flag.Shorthand != tt.shorthand {
			t.Errorf("--%s shorthand = %q, want %q", tt.name, flag.Shorthand, tt.shorthand)
		}
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	for _, name := range []string{"dump", "log"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("expected subcommand %q, got %v (%v)", name, cmd, err)
		}
	}
}

func TestDumpPrintsOnlineBuddies(t *testing.T) {
	cfgPath := writeFixture(t)
	out := execute(t, "dump", "--config", cfgPath)

	if !strings.HasPrefix(out, "Friends\n") {
		t.Fatalf("expected outline to start with the group, got %q", out)
	}
	if !strings.Contains(out, "Alice") {
		t.Fatalf("expected Alice in outline, got %q", out)
	}
	if strings.Contains(out, "Bob") {
		t.Fatalf("expected offline Bob to be hidden, got %q", out)
	}
}

func TestDumpShowOfflineOverridesConfig(t *testing.T) {
	cfgPath := writeFixture(t)
	out := execute(t, "dump", "--config", cfgPath, "--show-offline", "--sort", "alphabetical")

	alice := strings.Index(out, "Alice")
	bob := strings.Index(out, "Bob")
	if alice < 0 || bob < 0 {
		t.Fatalf("expected both buddies in outline, got %q", out)
	}
	if alice > bob {
		t.Fatalf("expected alphabetical order, got %q", out)
	}
}

func TestLogRecordsMessage(t *testing.T) {
	cfgPath := writeFixture(t)
	out := execute(t, "log", "--config", cfgPath, "xmpp:me@example.com", "alice@example.com", "hello", "there")

	if out != "logged 11 bytes for alice@example.com\n" {
		t.Fatalf("expected confirmation, got %q", out)
	}
}

func TestLogRequiresMessage(t *testing.T) {
	resetFlags(t)
	rootCmd.SetArgs([]string{"log", "xmpp:me@example.com"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for missing arguments")
	}
}

func TestVersionTemplate(t *testing.T) {
	orig := []string{buildVersion, buildCommit, buildDate}
	defer SetVersionInfo(orig[0], orig[1], orig[2])

	SetVersionInfo("1.2.0", "none", "unknown")
	if got := versionTemplate(); got != "roster 1.2.0\n" {
		t.Fatalf("expected short version, got %q", got)
	}
	SetVersionInfo("1.2.0", "abc123", "2026-01-02")
	if got := versionTemplate(); !strings.Contains(got, "commit: abc123") {
		t.Fatalf("expected commit in version, got %q", got)
	}
}
