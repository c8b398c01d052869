// Package snapshot saves face crops to disk.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gocv.io/x/gocv"
)

const (
	// TimeLayout is the timestamp suffix of every snapshot file name.
	TimeLayout = "20060102_150405"
	// MaxNameLen caps the sanitized identity part of a file name.
	MaxNameLen = 64
)

// ErrEmptyImage is returned when asked to save an image without pixels.
var ErrEmptyImage = errors.New("empty image")

// Dir writes JPEG snapshots into one directory.
type Dir struct {
	path string
}

// NewDir creates path if needed.
func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Dir{path: path}, nil
}

// Path returns the snapshot directory.
func (d *Dir) Path() string {
	return d.path
}

// Sanitize keeps letters, digits and "-_." and replaces every other rune with
// "_", truncated to MaxNameLen runes.
func Sanitize(identity string) string {
	var b strings.Builder
	n := 0
	for _, r := range identity {
		if n == MaxNameLen {
			break
		}
		if isAlnum(r) || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		n++
	}
	return b.String()
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// FileName returns the snapshot file name for identity captured at ts.
func FileName(identity string, ts time.Time) string {
	return fmt.Sprintf("%s_%s.jpg", Sanitize(identity), ts.Format(TimeLayout))
}

// Save writes img as dir/<identity>_<timestamp>.jpg and returns the file path.
// A later snapshot of the same person within the same second replaces the earlier one.
func (d *Dir) Save(identity string, img gocv.Mat, ts time.Time) (string, error) {
	if img.Empty() {
		return "", ErrEmptyImage
	}

	path := filepath.Join(d.path, FileName(identity, ts))
	if !gocv.IMWrite(path, img) {
		return "", fmt.Errorf("write snapshot %s", path)
	}
	return path, nil
}
