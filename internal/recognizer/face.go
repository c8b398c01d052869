package recognizer

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/Kagami/go-face"
	"gocv.io/x/gocv"
)

// Config holds tuning for FaceRecognizer.
type Config struct {
	// Scale is applied to the frame before detection. 0.5 halves each side.
	Scale float64
	// Tolerance is the largest encoding distance still accepted as a match.
	Tolerance float64
}

// DefaultConfig returns the default recognizer tuning.
func DefaultConfig() Config {
	return Config{Scale: DefaultScale, Tolerance: DefaultTolerance}
}

// FaceRecognizer detects faces and computes 128-d encodings with dlib through
// go-face, then labels each face against a Gallery.
type FaceRecognizer struct {
	config  Config
	rec     *face.Recognizer
	gallery *Gallery
	mu      sync.Mutex // dlib models are not safe for concurrent use
}

// NewFaceRecognizer loads the dlib models from modelsDir.
func NewFaceRecognizer(modelsDir string, config Config) (*FaceRecognizer, error) {
	if config.Scale <= 0 || config.Scale > 1 {
		config.Scale = DefaultScale
	}
	if config.Tolerance <= 0 {
		config.Tolerance = DefaultTolerance
	}

	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("load face models from %s: %w", modelsDir, err)
	}

	return &FaceRecognizer{
		config:  config,
		rec:     rec,
		gallery: NewGallery(),
	}, nil
}

// SetGallery replaces the gallery used for labelling. A nil gallery labels everyone Unknown.
func (r *FaceRecognizer) SetGallery(g *Gallery) {
	if g == nil {
		g = NewGallery()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gallery = g
}

// DescribeFile returns the encodings of every face in the image at path.
// Any format OpenCV reads is accepted.
func (r *FaceRecognizer) DescribeFile(path string) ([]face.Descriptor, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("cannot decode image %s", path)
	}

	faces, err := r.detect(img)
	if err != nil {
		return nil, err
	}

	descs := make([]face.Descriptor, len(faces))
	for i, f := range faces {
		descs[i] = f.Descriptor
	}
	return descs, nil
}

// Recognize detects faces on a downscaled copy of frame and labels them.
func (r *FaceRecognizer) Recognize(frame *gocv.Mat) ([]Detection, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	small := gocv.NewMat()
	defer small.Close()
	if r.config.Scale != 1 {
		gocv.Resize(*frame, &small, image.Point{}, r.config.Scale, r.config.Scale, gocv.InterpolationLinear)
	} else {
		frame.CopyTo(&small)
	}

	faces, err := r.detect(small)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	gallery := r.gallery
	r.mu.Unlock()

	width, height := frame.Cols(), frame.Rows()
	detections := make([]Detection, 0, len(faces))
	for _, f := range faces {
		name, _ := gallery.Match(f.Descriptor, r.config.Tolerance)
		detections = append(detections, Detection{
			Box:      BoxFromRect(f.Rectangle).Rescale(r.config.Scale).Clamp(width, height),
			Identity: name,
		})
	}

	return detections, nil
}

// detect hands a JPEG of img to dlib.
func (r *FaceRecognizer) detect(img gocv.Mat) ([]face.Face, error) {
	buf, err := gocv.IMEncode(".jpg", img)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	r.mu.Lock()
	defer r.mu.Unlock()

	faces, err := r.rec.Recognize(buf.GetBytes())
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	return faces, nil
}

// Close releases the dlib models.
func (r *FaceRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec != nil {
		r.rec.Close()
		r.rec = nil
	}
	return nil
}
