package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/lift-control/lcc/internal/auth"
	"github.com/lift-control/lcc/internal/config"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	l, err := NewLogger(config.AuditConfig{Dir: filepath.Join(t.TempDir(), "audit"), MaxSizeMB: 1, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open audit file: %v", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("Invalid audit line %q: %v", scanner.Text(), err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestLogAction(t *testing.T) {
	l := newTestLogger(t)

	ctx := auth.WithClaims(context.Background(), &auth.Claims{Subject: "op-1"})
	l.LogAction(ctx, "move", 2, map[string]interface{}{"floor": 5}, nil)
	l.LogAction(context.Background(), "load", 1, nil, fmt.Errorf("%w: count -1", errors.New("INVALID_RANGE")))

	entries := readEntries(t, l.FilePath())
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.User != "op-1" || first.Unit != 2 || first.Action != "move" {
		t.Errorf("Unexpected first entry: %+v", first)
	}
	if first.Code != "SUCCESS" || first.Outcome != "SUCCESS" {
		t.Errorf("Expected success, got code=%s outcome=%s", first.Code, first.Outcome)
	}
	if first.ID == "" || first.ID == entries[1].ID {
		t.Errorf("Expected unique entry IDs, got %q and %q", first.ID, entries[1].ID)
	}
	if floor, ok := first.Params["floor"].(float64); !ok || floor != 5 {
		t.Errorf("Expected floor param 5, got %v", first.Params["floor"])
	}

	second := entries[1]
	if second.User != "system" {
		t.Errorf("Expected system user without claims, got %s", second.User)
	}
	if second.Code != "INVALID_RANGE" {
		t.Errorf("Expected INVALID_RANGE, got %s", second.Code)
	}
}

func TestCodeFromError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "SUCCESS"},
		{errors.New("NOT_FOUND: unit 9"), "NOT_FOUND"},
		{errors.New("UNAVAILABLE: unit 1 is out of service"), "UNAVAILABLE"},
		{errors.New("DECODE_ERROR: bad"), "DECODE_ERROR"},
		{errors.New("BAD_REQUEST: fault kind required"), "BAD_REQUEST"},
		{errors.New("boom"), "ERROR"},
	}
	for _, tt := range tests {
		if got := codeFromError(tt.err); got != tt.want {
			t.Errorf("codeFromError(%v): expected %s, got %s", tt.err, tt.want, got)
		}
	}
}

func TestRotateAndClose(t *testing.T) {
	l := newTestLogger(t)
	l.LogAction(context.Background(), "open", 0, nil, nil)

	if err := l.Rotate(); err != nil {
		t.Fatalf("Rotate() error = %v", err)
	}
	l.LogAction(context.Background(), "close", 0, nil, nil)

	entries := readEntries(t, l.FilePath())
	if len(entries) != 1 || entries[0].Action != "close" {
		t.Errorf("Expected only the post-rotation entry, got %+v", entries)
	}

	files, _ := filepath.Glob(filepath.Join(filepath.Dir(l.FilePath()), "audit-*.jsonl"))
	if len(files) != 1 {
		t.Errorf("Expected one rotated backup, got %v", files)
	}

	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := l.Rotate(); err == nil {
		t.Error("Expected Rotate on closed logger to fail")
	}
	// Writes after close are ignored.
	l.LogAction(context.Background(), "move", 0, nil, nil)
}
