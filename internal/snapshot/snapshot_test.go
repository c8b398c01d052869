package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "alice", "alice"},
		{"allowed punctuation", "j.doe-2_x", "j.doe-2_x"},
		{"spaces and slashes", "John Smith/../x", "John_Smith_.._x"},
		{"non-ascii", "zoë", "zo_"},
		{"empty", "", ""},
		{"truncated", strings.Repeat("a", 80), strings.Repeat("a", MaxNameLen)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	ts := time.Date(2024, 12, 31, 23, 59, 58, 0, time.UTC)
	if got, want := FileName("Jane Doe", ts), "Jane_Doe_20241231_235958.jpg"; got != want {
		t.Errorf("FileName() = %q, want %q", got, want)
	}
}

func TestDir_Save(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV test in short mode")
	}

	d, err := NewDir(filepath.Join(t.TempDir(), "snaps"))
	if err != nil {
		t.Fatalf("NewDir() error = %v", err)
	}

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 128, 255, 0), 40, 30, gocv.MatTypeCV8UC3)
	defer img.Close()

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	path, err := d.Save("alice", img, ts)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if filepath.Base(path) != "alice_20240102_030405.jpg" {
		t.Errorf("Save() path = %q", path)
	}

	saved := gocv.IMRead(path, gocv.IMReadColor)
	defer saved.Close()
	if saved.Cols() != 30 || saved.Rows() != 40 {
		t.Errorf("saved image is %dx%d, want 30x40", saved.Cols(), saved.Rows())
	}
}

func TestDir_SaveEmpty(t *testing.T) {
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	img := gocv.NewMat()
	defer img.Close()

	if _, err := d.Save("alice", img, time.Now()); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Save(empty) error = %v, want ErrEmptyImage", err)
	}

	entries, _ := os.ReadDir(d.Path())
	if len(entries) != 0 {
		t.Errorf("empty image left %d files behind", len(entries))
	}
}
