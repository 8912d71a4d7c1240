package migrate

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"pressgate/migrations"
)

func TestSplitTableName(t *testing.T) {
	tests := []struct {
		in, schema, table string
	}{
		{"delegated_sessions", "", "delegated_sessions"},
		{"auth.delegated_sessions", "auth", "delegated_sessions"},
	}
	for _, tt := range tests {
		schema, table := splitTableName(tt.in)
		if schema != tt.schema || table != tt.table {
			t.Fatalf("splitTableName(%q) = %q, %q", tt.in, schema, table)
		}
	}
}

func TestMigrationsEmbedSessionTable(t *testing.T) {
	contents, err := migrations.Files.ReadFile("00001_create_delegated_sessions.sql")
	if err != nil {
		t.Fatalf("read embedded migration: %v", err)
	}
	sql := string(contents)
	for _, want := range []string{"-- +goose Up", "-- +goose Down", "CREATE TABLE IF NOT EXISTS " + sessionTable} {
		if !strings.Contains(sql, want) {
			t.Fatalf("expected migration to contain %q", want)
		}
	}
}

func TestGooseLoggerWritesThroughSlog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	gooseSlogLogger{logger: logger}.Printf("OK   %s (%d ms)\n", "00001_create_delegated_sessions.sql", 3)

	out := buf.String()
	if !strings.Contains(out, "00001_create_delegated_sessions.sql") || !strings.Contains(out, "component=goose") {
		t.Fatalf("unexpected log output %q", out)
	}

	gooseSlogLogger{}.Printf("dropped")
}
