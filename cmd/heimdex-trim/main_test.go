package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/heimdex/heimdex-trim/internal/db"
	"github.com/heimdex/heimdex-trim/internal/library"
	"github.com/heimdex/heimdex-trim/internal/logging"
	"github.com/heimdex/heimdex-trim/internal/store"
)

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"12", 12, false},
		{" 7 ", 7, false},
		{"00:00:05", 5, false},
		{"01:02:03", 3723, false},
		{"-1", 0, true},
		{"00:60:00", 0, true},
		{"1:2", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseSeconds(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSeconds(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSeconds(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEnsureAuthToken_IsStable(t *testing.T) {
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), logging.Discard())
	if err != nil {
		t.Fatalf("failed to create db: %v", err)
	}
	defer database.Close()
	repo := store.NewRepository(database.Conn())
	ctx := context.Background()

	first, err := ensureAuthToken(ctx, repo)
	if err != nil {
		t.Fatalf("ensureAuthToken() error = %v", err)
	}
	if len(first) != 64 {
		t.Errorf("token length = %d, want 64", len(first))
	}

	second, err := ensureAuthToken(ctx, repo)
	if err != nil {
		t.Fatalf("ensureAuthToken() error = %v", err)
	}
	if first != second {
		t.Error("token should be reused across runs")
	}

	stored, ok, err := repo.GetValue(ctx, "auth_token")
	if err != nil || !ok || stored != first {
		t.Errorf("stored token = %q ok=%v err=%v", stored, ok, err)
	}
}

func TestPrintLibrary(t *testing.T) {
	var buf bytes.Buffer
	printLibrary(&buf, nil)
	if !strings.Contains(buf.String(), "Library is empty.") {
		t.Errorf("empty output = %q", buf.String())
	}

	start, end := 2, 4
	buf.Reset()
	printLibrary(&buf, []library.SavedVideo{
		{ID: 1, URI: "file:///cache/a.mp4", Title: "Beach", Source: "/m/beach.mp4", StartSeconds: &start, EndSeconds: &end},
		{ID: 2, URI: "file:///cache/b.mp4", Title: "Legacy"},
	})
	out := buf.String()
	if !strings.Contains(out, "00:00:02-00:00:04") {
		t.Errorf("output missing range:\n%s", out)
	}
	if !strings.Contains(out, "Legacy") {
		t.Errorf("output missing legacy entry:\n%s", out)
	}
}
