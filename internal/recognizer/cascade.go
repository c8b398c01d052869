package recognizer

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// CascadePaths lists where OpenCV distributions usually install the frontal face cascade.
var CascadePaths = []string{
	"haarcascade_frontalface_default.xml",
	"data/haarcascade_frontalface_default.xml",
	"/usr/local/share/opencv4/haarcascades/haarcascade_frontalface_default.xml",
	"/usr/share/opencv4/haarcascades/haarcascade_frontalface_default.xml",
	"/opt/homebrew/share/opencv4/haarcascades/haarcascade_frontalface_default.xml",
}

// CascadeRecognizer finds faces with an OpenCV Haar cascade. It has no notion of
// identity, so every face is labelled Unknown. It is the fallback when the dlib
// models are not installed.
type CascadeRecognizer struct {
	classifier gocv.CascadeClassifier
	scale      float64
	mu         sync.Mutex
}

// NewCascadeRecognizer loads the cascade at path, or the first of CascadePaths
// that exists when path is empty.
func NewCascadeRecognizer(path string, scale float64) (*CascadeRecognizer, error) {
	if scale <= 0 || scale > 1 {
		scale = DefaultScale
	}

	candidates := CascadePaths
	if path != "" {
		candidates = []string{path}
	}

	classifier := gocv.NewCascadeClassifier()
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if classifier.Load(p) {
			return &CascadeRecognizer{classifier: classifier, scale: scale}, nil
		}
	}
	classifier.Close()

	if path != "" {
		return nil, fmt.Errorf("failed to load face cascade from %s", path)
	}
	return nil, errors.New("no face cascade found")
}

// Recognize detects faces on a downscaled grayscale copy of frame.
func (r *CascadeRecognizer) Recognize(frame *gocv.Mat) ([]Detection, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	small := gocv.NewMat()
	defer small.Close()
	gocv.Resize(gray, &small, image.Point{}, r.scale, r.scale, gocv.InterpolationLinear)

	r.mu.Lock()
	rects := r.classifier.DetectMultiScale(small)
	r.mu.Unlock()

	width, height := frame.Cols(), frame.Rows()
	detections := make([]Detection, 0, len(rects))
	for _, rect := range rects {
		detections = append(detections, Detection{
			Box:      BoxFromRect(rect).Rescale(r.scale).Clamp(width, height),
			Identity: Unknown,
		})
	}
	return detections, nil
}

// Close releases the classifier.
func (r *CascadeRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.classifier.Close()
}
