// Package journal appends human readable detection records to a log file.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// FileName is the journal file created inside the log directory.
	FileName = "detections.log"
	// TimeLayout formats the timestamp at the start of every line.
	TimeLayout = "2006-01-02 15:04:05"
)

// File is an append-only detection journal. Safe for concurrent use.
type File struct {
	path string

	mu sync.Mutex
	f  *os.File
}

// Open creates dir if needed and opens dir/detections.log for appending.
func Open(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &File{path: path, f: f}, nil
}

// Path returns the journal file path.
func (j *File) Path() string {
	return j.path
}

// Line renders the journal line for identity seen at ts, without the newline.
func Line(identity string, ts time.Time) string {
	return ts.Format(TimeLayout) + " - " + identity
}

// LogDetection appends one line for identity seen at ts.
func (j *File) LogDetection(identity string, ts time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.f == nil {
		return os.ErrClosed
	}
	if _, err := j.f.WriteString(Line(identity, ts) + "\n"); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (j *File) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.f == nil {
		return nil
	}
	err := j.f.Close()
	j.f = nil
	return err
}
