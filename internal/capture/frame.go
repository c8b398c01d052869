package capture

import (
	"time"

	"gocv.io/x/gocv"
)

// Frame is a captured image with its capture metadata.
// A Frame owns its Mat; whoever holds it must call Close.
type Frame struct {
	Mat       *gocv.Mat
	Seq       uint64
	Timestamp time.Time
}

// Valid reports whether the frame carries pixels.
func (f Frame) Valid() bool {
	return f.Mat != nil && !f.Mat.Empty()
}

// Width returns the frame width in pixels, or 0 for an invalid frame.
func (f Frame) Width() int {
	if f.Mat == nil {
		return 0
	}
	return f.Mat.Cols()
}

// Height returns the frame height in pixels, or 0 for an invalid frame.
func (f Frame) Height() int {
	if f.Mat == nil {
		return 0
	}
	return f.Mat.Rows()
}

// Clone returns a deep copy that shares no pixel memory with f.
func (f Frame) Clone() Frame {
	if f.Mat == nil {
		return Frame{Seq: f.Seq, Timestamp: f.Timestamp}
	}
	m := f.Mat.Clone()
	return Frame{Mat: &m, Seq: f.Seq, Timestamp: f.Timestamp}
}

// Close releases the pixel buffer. Safe on invalid frames.
func (f Frame) Close() {
	if f.Mat != nil {
		f.Mat.Close()
	}
}
