package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ayusman/facewatch/internal/alert"
	"github.com/ayusman/facewatch/internal/recognizer"
	"gocv.io/x/gocv"
)

// DefaultAlertTimeout bounds a single background alert delivery.
const DefaultAlertTimeout = 30 * time.Second

// Journal records that an identity was seen.
type Journal interface {
	LogDetection(identity string, ts time.Time) error
}

// SnapshotSaver persists a face crop and returns where it was stored.
type SnapshotSaver interface {
	Save(identity string, img gocv.Mat, ts time.Time) (string, error)
}

// Event describes one dispatched known-person detection.
type Event struct {
	JobID     string         `json:"job_id"`
	Identity  string         `json:"identity"`
	Box       recognizer.Box `json:"box"`
	FrameSeq  uint64         `json:"frame_seq"`
	Timestamp time.Time      `json:"timestamp"`
	Snapshot  string         `json:"snapshot,omitempty"`
	Alerted   bool           `json:"alerted"`
}

// Observer receives every dispatched Event.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

// Observe calls f.
func (f ObserverFunc) Observe(ev Event) {
	f(ev)
}

// Dispatcher fans fresh recognition results out to the sinks. Every sink is
// optional and isolated: an error or panic in one is logged and the rest
// still run.
type Dispatcher struct {
	Journal   Journal
	Snapshots SnapshotSaver
	// Alerts is nil when alerting is not configured.
	Alerts    alert.Sender
	Throttle  *AlertThrottle
	Pool      *TaskPool
	Observers []Observer

	Caption      string
	AlertTimeout time.Duration
	// Now returns the time used for journal, snapshot and cooldown. Defaults to time.Now.
	Now func() time.Time
}

// Dispatch handles the known detections of ann. Annotations whose result was
// not adopted on this tick are ignored, so each completed job is dispatched once.
func (d *Dispatcher) Dispatch(ann Annotated) {
	if !ann.Fresh {
		return
	}

	width, height := ann.Frame.Width(), ann.Frame.Height()
	for _, det := range ann.Result.Known() {
		box := det.Box.Clamp(width, height)
		d.dispatchOne(ann, det.Identity, box)
	}
}

func (d *Dispatcher) dispatchOne(ann Annotated, identity string, box recognizer.Box) {
	now := d.now()
	ev := Event{
		JobID:     ann.Result.JobID,
		Identity:  identity,
		Box:       box,
		FrameSeq:  ann.Result.FrameSeq,
		Timestamp: now,
	}

	if d.Journal != nil {
		safely("journal", func() error {
			return d.Journal.LogDetection(identity, now)
		})
	}

	// The crop is shared by the snapshot and alert sinks.
	var crop *gocv.Mat
	if !box.Empty() && ann.Frame.Valid() {
		safely("crop", func() error {
			region := ann.Frame.Mat.Region(box.Rect())
			defer region.Close()
			c := region.Clone()
			crop = &c
			return nil
		})
	}
	if crop != nil {
		defer crop.Close()
	}

	if crop != nil && d.Snapshots != nil {
		safely("snapshot", func() error {
			path, err := d.Snapshots.Save(identity, *crop, now)
			ev.Snapshot = path
			return err
		})
	}

	if d.Alerts != nil && d.Throttle != nil && d.Throttle.ShouldAlert(identity, now) {
		safely("alert", func() error {
			return d.submitAlert(identity, crop, now)
		})
		ev.Alerted = true
	}

	for _, o := range d.Observers {
		safely("observer", func() error {
			o.Observe(ev)
			return nil
		})
	}
}

// submitAlert encodes the crop and hands delivery to the task pool.
func (d *Dispatcher) submitAlert(identity string, crop *gocv.Mat, now time.Time) error {
	var image []byte
	if crop != nil {
		buf, err := gocv.IMEncode(".jpg", *crop)
		if err != nil {
			log.Printf("dispatch: encode alert image for %s: %v", identity, err)
		} else {
			image = append([]byte(nil), buf.GetBytes()...)
			buf.Close()
		}
	}

	caption := d.Caption
	if caption == "" {
		caption = alert.DefaultCaption
	}
	a := alert.New(identity, image, caption, now)

	timeout := d.AlertTimeout
	if timeout <= 0 {
		timeout = DefaultAlertTimeout
	}
	send := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return d.Alerts.Send(ctx, a)
	}

	if d.Pool == nil {
		return send(context.Background())
	}
	if !d.Pool.Go("alert "+identity, send) {
		return fmt.Errorf("alert pool full, dropped alert for %s", identity)
	}
	return nil
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// safely runs fn, logging its error or panic instead of propagating it.
func safely(sink string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("dispatch: %s sink panic: %v", sink, r)
		}
	}()
	if err := fn(); err != nil {
		log.Printf("dispatch: %s sink: %v", sink, err)
	}
}
