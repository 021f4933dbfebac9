package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lift-control/lcc/internal/auth"
	"github.com/lift-control/lcc/internal/config"
)

// FileName is the audit file inside the configured directory.
const FileName = "audit.jsonl"

// Entry represents a single audit log entry.
type Entry struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"ts"`
	User      string                 `json:"user"`
	Unit      int                    `json:"unit"`
	Action    string                 `json:"action"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Outcome   string                 `json:"outcome"`
	Code      string                 `json:"code"`
}

// Logger writes audit entries as JSON lines.
type Logger struct {
	mu       sync.Mutex
	filePath string
	out      *lumberjack.Logger
}

// NewLogger creates the audit directory and opens the rotating audit file.
func NewLogger(cfg config.AuditConfig) (*Logger, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	filePath := filepath.Join(cfg.Dir, FileName)
	return &Logger{
		filePath: filePath,
		out: &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		},
	}, nil
}

// LogAction records an action on a unit. A nil err is logged as SUCCESS.
func (l *Logger) LogAction(ctx context.Context, action string, unitID int, params map[string]interface{}, err error) {
	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		User:      userFromContext(ctx),
		Unit:      unitID,
		Action:    action,
		Params:    params,
		Outcome:   "SUCCESS",
		Code:      codeFromError(err),
	}
	if err != nil {
		entry.Outcome = err.Error()
	}

	l.writeEntry(entry)
}

// writeEntry writes an audit entry to the log file.
func (l *Logger) writeEntry(entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal audit entry: %v\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out == nil {
		return
	}
	if _, err := l.out.Write(append(data, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write audit entry: %v\n", err)
	}
}

func userFromContext(ctx context.Context) string {
	if claims, ok := auth.GetClaimsFromContext(ctx); ok && claims.Subject != "" {
		return claims.Subject
	}
	return "system"
}

// codeFromError maps error text to standardized codes.
func codeFromError(err error) string {
	if err == nil {
		return "SUCCESS"
	}

	msg := err.Error()
	for _, code := range []string{"INVALID_RANGE", "NOT_FOUND", "UNAVAILABLE", "DECODE_ERROR", "BAD_REQUEST"} {
		if strings.Contains(msg, code) {
			return code
		}
	}
	return "ERROR"
}

// Rotate starts a new audit file, keeping the previous one as a backup.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out == nil {
		return fmt.Errorf("audit logger is closed")
	}
	return l.out.Rotate()
}

// FilePath returns the path to the active audit file.
func (l *Logger) FilePath() string {
	return l.filePath
}

// Close closes the audit file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out == nil {
		return nil
	}
	err := l.out.Close()
	l.out = nil
	return err
}
