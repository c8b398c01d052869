// Package recognizer turns a frame into labelled face boxes.
package recognizer

import (
	"image"

	"gocv.io/x/gocv"
)

// Unknown labels a face that matched nobody in the gallery.
const Unknown = "Unknown"

// Recognizer defaults, matching the capture resolution of a typical webcam.
const (
	DefaultScale     = 0.5
	DefaultTolerance = 0.6
)

// Box is a face bounding box in pixel coordinates, edges inclusive-exclusive.
type Box struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// BoxFromRect converts an image.Rectangle into a Box.
func BoxFromRect(r image.Rectangle) Box {
	return Box{Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y, Left: r.Min.X}
}

// Rescale maps a box found on a frame resized by scale back to the original frame.
func (b Box) Rescale(scale float64) Box {
	if scale <= 0 || scale == 1 {
		return b
	}
	return Box{
		Top:    int(float64(b.Top) / scale),
		Right:  int(float64(b.Right) / scale),
		Bottom: int(float64(b.Bottom) / scale),
		Left:   int(float64(b.Left) / scale),
	}
}

// Clamp limits every edge to [0,width] horizontally and [0,height] vertically.
func (b Box) Clamp(width, height int) Box {
	return Box{
		Top:    clamp(b.Top, 0, height),
		Right:  clamp(b.Right, 0, width),
		Bottom: clamp(b.Bottom, 0, height),
		Left:   clamp(b.Left, 0, width),
	}
}

// Empty reports whether the box covers no pixels.
func (b Box) Empty() bool {
	return b.Right <= b.Left || b.Bottom <= b.Top
}

// Rect returns the box as an image.Rectangle. Only meaningful for non-empty boxes.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Detection is one face found in a frame.
type Detection struct {
	Box      Box    `json:"box"`
	Identity string `json:"identity"`
}

// Known reports whether the detection names a gallery person.
func (d Detection) Known() bool {
	return d.Identity != "" && d.Identity != Unknown
}

// Recognizer finds and identifies faces in a frame.
//
// Boxes are returned in the coordinates of the frame passed in, clamped to its
// bounds, whatever internal resizing the implementation does.
// Implementations must not retain frame after returning.
type Recognizer interface {
	Recognize(frame *gocv.Mat) ([]Detection, error)
	Close() error
}
