package app

import (
	"context"
	"image"
	"image/color"
	"log"
	"time"

	"github.com/ayusman/facewatch/internal/pipeline"
	"github.com/ayusman/facewatch/internal/recognizer"
	"gocv.io/x/gocv"
)

var (
	knownColor   = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	unknownColor = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// Display shows an annotated frame. Returning false ends Run.
// The frame is only valid for the duration of the call.
type Display func(ann pipeline.Annotated) bool

// Step runs one consumer iteration: read the latest frame, tick the
// orchestrator, dispatch a fresh result and draw the overlay.
//
// ok is false when no frame is available yet. Otherwise the caller owns
// ann.Frame and must Close it.
func (a *App) Step() (ann pipeline.Annotated, ok bool) {
	frame, ok := a.source.Read()
	if !ok {
		return pipeline.Annotated{}, false
	}

	ann = a.orch.Tick(frame)
	a.disp.Dispatch(ann)

	DrawDetections(ann.Frame.Mat, ann.Result.Detections)
	if a.config.Preview {
		a.storePreview(ann.Frame.Mat)
	}
	return ann, true
}

// Run drives Step at the configured rate until ctx is done or display
// returns false. display may be nil for headless operation.
//
// Run never blocks on recognition: the frame shown on every tick is the
// latest capture paired with the newest completed result.
func (a *App) Run(ctx context.Context, display Display) error {
	a.mu.Lock()
	started := a.started && !a.stopped
	a.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	ticker := time.NewTicker(time.Second / time.Duration(a.config.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		ann, ok := a.Step()
		if !ok {
			continue
		}

		keepGoing := true
		if display != nil {
			keepGoing = display(ann)
		}
		ann.Frame.Close()

		if !keepGoing {
			log.Println("app: display requested exit")
			return nil
		}
	}
}

// DrawDetections draws a box and label for each detection onto mat.
// Known people are green, unknown faces red.
func DrawDetections(mat *gocv.Mat, dets []recognizer.Detection) {
	if mat == nil || mat.Empty() {
		return
	}
	for _, d := range dets {
		box := d.Box.Clamp(mat.Cols(), mat.Rows())
		if box.Empty() {
			continue
		}
		c := unknownColor
		if d.Known() {
			c = knownColor
		}
		gocv.Rectangle(mat, box.Rect(), c, 2)

		label := d.Identity
		if label == "" {
			label = recognizer.Unknown
		}
		y := box.Top - 8
		if y < 12 {
			y = box.Bottom + 16
		}
		gocv.PutText(mat, label, image.Pt(box.Left, y), gocv.FontHersheySimplex, 0.6, c, 2)
	}
}

func (a *App) storePreview(mat *gocv.Mat) {
	if mat == nil || mat.Empty() {
		return
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *mat)
	if err != nil {
		log.Printf("app: preview encode failed: %v", err)
		return
	}
	jpeg := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	a.previewMu.Lock()
	a.preview = jpeg
	a.previewMu.Unlock()
}
