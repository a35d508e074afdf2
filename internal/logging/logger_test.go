package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docshell/internal/config"
	"docshell/internal/logging"
)

func TestNewFromConfigWritesJSONFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "info"

	logger, path, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "docshell-") {
		t.Fatalf("unexpected log path %q", path)
	}
	logger.Info("engine ready", logging.String(logging.FieldComponent, "convert"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log file is not JSON lines: %v (%q)", err, data)
	}
	if entry["msg"] != "engine ready" || entry["component"] != "convert" || entry["level"] != "info" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewFromConfigPrunesOldLogs(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.RetentionDays = 7

	stale := filepath.Join(cfg.Paths.LogDir, "docshell-20200101T000000.log")
	other := filepath.Join(cfg.Paths.LogDir, "notes.txt")
	for _, p := range []string{stale, other} {
		if err := os.WriteFile(p, []byte("old"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		old := time.Now().AddDate(0, 0, -30)
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	if _, _, err := logging.NewFromConfig(&cfg); err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale log removed, stat err = %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("unrelated file removed: %v", err)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleOutput(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		log     func(*slog.Logger)
		want    []string
		notWant []string
	}{
		{
			name:  "info header and curated fields",
			level: "info",
			log: func(l *slog.Logger) {
				logging.NewComponentLogger(l, "session").Info("document ready",
					logging.String(logging.FieldDocumentKey, "abc1234"),
					logging.String("title", "Plan.docx"),
					logging.Int64("size_bytes", 2048),
					logging.String(logging.FieldSocketID, "s-1"),
				)
			},
			want:    []string{"INFO [session] doc abc1234 – document ready", "- Title: Plan.docx", "- Size Bytes: 2.0 KiB", "+ 1 more field hidden"},
			notWant: []string{".go:", "s-1"},
		},
		{
			name:  "debug shows everything with source",
			level: "debug",
			log: func(l *slog.Logger) {
				l.Debug("frame", logging.String(logging.FieldSocketID, "s-1"))
			},
			want: []string{"DEBUG", "socket_id: s-1", ".go:"},
		},
		{
			name:  "context fields",
			level: "info",
			log: func(l *slog.Logger) {
				ctx := logging.ContextWithDocument(context.Background(), "k9")
				l.InfoContext(ctx, "save acknowledged")
			},
			want: []string{"doc k9 – save acknowledged"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "console.log")
			logger, err := logging.New(logging.Options{Level: tt.level, Format: "console", OutputPaths: []string{path}})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			tt.log(logger)
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			out := string(data)
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			for _, bad := range tt.notWant {
				if strings.Contains(out, bad) {
					t.Errorf("output unexpectedly contains %q:\n%s", bad, out)
				}
			}
		})
	}
}

func TestWarnWithContextFillsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "export failed", "session.export_failed", logging.String(logging.FieldImpact, "no file written"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry[logging.FieldEventType] != "session.export_failed" {
		t.Fatalf("event_type = %v", entry[logging.FieldEventType])
	}
	if entry[logging.FieldImpact] != "no file written" {
		t.Fatalf("impact overwritten: %v", entry[logging.FieldImpact])
	}
	if entry[logging.FieldErrorHint] == nil {
		t.Fatal("expected default error_hint")
	}
}

func TestWithLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	quiet := logging.WithLevelOverride(base, slog.LevelWarn)
	quiet.Info("hidden")
	quiet.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %s", buf.String())
	}
}
