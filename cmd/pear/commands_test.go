package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "sqlite://"+filepath.Join(dir, "pear.db"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("PEAR_LOG_FORMAT", "text")
	t.Setenv("PEAR_SOURCE", "local")
	t.Setenv("PEAR_SOURCE_DIR", dir)
	t.Setenv("PEAR_STATE_FILE", filepath.Join(dir, "state.json"))
	t.Setenv("PEAR_LOCK_FILE", filepath.Join(dir, "run.lock"))
	t.Setenv("PEAR_DOMAINS_FILE", "")
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("NATS_URL", "")
	t.Setenv("GOOGLE_AI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := newRootCommand()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestMigrateCommand(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "Applied") {
		t.Errorf("unexpected output %q", out)
	}

	out, err = execute(t, "migrate")
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if !strings.Contains(out, "Applied 0 migrations") {
		t.Errorf("expected no pending migrations, got %q", out)
	}
}

func TestMembersAddAndList(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "members", "add", "Alice", "Smith", "--email", "alice@example.com", "--group", "Group 1.2")
	if err != nil {
		t.Fatalf("members add: %v", err)
	}
	if !strings.Contains(out, "Added member Alice Smith") {
		t.Errorf("unexpected add output %q", out)
	}

	out, err = execute(t, "members", "list")
	if err != nil {
		t.Fatalf("members list: %v", err)
	}
	if !strings.Contains(out, "Alice Smith") || !strings.Contains(out, "alice@example.com") {
		t.Errorf("unexpected list output %q", out)
	}

	out, err = execute(t, "members", "list", "--json")
	if err != nil {
		t.Fatalf("members list json: %v", err)
	}
	var members []map[string]any
	if err := json.Unmarshal([]byte(out), &members); err != nil {
		t.Fatalf("decode json: %v (%q)", err, out)
	}
	if len(members) != 1 || members[0]["full_name"] != "Alice Smith" {
		t.Errorf("unexpected members %v", members)
	}
}

func TestSessionsCommand_Empty(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "sessions")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if !strings.Contains(out, "No sessions") {
		t.Errorf("unexpected output %q", out)
	}

	out, err = execute(t, "sessions", "--json")
	if err != nil {
		t.Fatalf("sessions json: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("expected empty json list, got %q", out)
	}
}

func TestDomainsCommand(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "domains")
	if err != nil {
		t.Fatalf("domains: %v", err)
	}
	for _, want := range []string{"goals", "stuck", "sentiment"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output %q", want, out)
		}
	}
}

func TestDomainsCommand_OverrideFile(t *testing.T) {
	dir := setupEnv(t)
	path := filepath.Join(dir, "domains.toml")
	if err := os.WriteFile(path, []byte("[domains.goals]\nenabled = false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PEAR_DOMAINS_FILE", path)

	out, err := execute(t, "domains")
	if err != nil {
		t.Fatalf("domains: %v", err)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, " goals ") && !strings.Contains(line, "false") {
			t.Errorf("expected goals disabled, got %q", line)
		}
	}
}

func TestDedupCommand_Empty(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "dedup")
	if err != nil {
		t.Fatalf("dedup: %v", err)
	}
	if !strings.Contains(out, "would remove 0 duplicate records") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestClarifyCommand_Errors(t *testing.T) {
	setupEnv(t)

	if _, err := execute(t, "clarify", "abc"); err == nil {
		t.Error("expected error without --by")
	}
	if _, err := execute(t, "clarify", "abc", "--by", "coach", "--target", "3"); err == nil || !strings.Contains(err.Error(), "--goal") {
		t.Errorf("expected --goal error, got %v", err)
	}
	if _, err := execute(t, "clarify", "missing", "--by", "coach"); err == nil {
		t.Error("expected not found error")
	}
}

func TestRunCommand_DryRun(t *testing.T) {
	dir := setupEnv(t)
	if err := os.WriteFile(filepath.Join(dir, "Group 1.2 - 2025-10-01.txt"), []byte("Alice: hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "run", "--dry-run")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "Group 1.2 - 2025-10-01.txt") {
		t.Errorf("expected document listed, got %q", out)
	}
}

func TestInvalidConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("PEAR_SOURCE", "ftp")

	_, err := execute(t, "sessions")
	if err == nil || !strings.Contains(err.Error(), "PEAR_SOURCE") {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger("info", "", &buf).Info("hello", "k", "v")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected JSON for non-terminal writer, got %q", buf.String())
	}

	buf.Reset()
	newLogger("info", "text", &buf).Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected text output, got %q", buf.String())
	}

	buf.Reset()
	newLogger("warn", "json", &buf).Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("expected info dropped at warn level, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Domain", "Records"}, [][]string{{"goals", "3"}, {"stuck"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "goals") || !strings.Contains(out, "stuck") {
		t.Errorf("unexpected table %q", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("expected empty output without headers")
	}
}
