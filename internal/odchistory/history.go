// Package odchistory appends one line per new session to the session
// history log (spec.md §6.4).
package odchistory

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const fileName = "odc_session_history.log"

// Log is the append-only session history writer.
type Log struct {
	mu   sync.Mutex
	path string
}

// Open binds a Log to <dir>/odc_session_history.log, creating dir if
// necessary.
func Open(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Log{path: filepath.Join(dir, fileName)}, nil
}

// Record appends one line "<ISO date>, <partitionId>, <ddsSessionId>"
// (spec.md §6.4), timestamped now.
func (l *Log) Record(now time.Time, partitionID, ddsSessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "%s, %s, %s\n", now.UTC().Format(time.RFC3339), partitionID, ddsSessionID)
	return err
}

// Path returns the history file's path.
func (l *Log) Path() string { return l.path }
