package app

import (
	"context"
	"log"

	"github.com/ayusman/facewatch/internal/alert"
	"github.com/ayusman/facewatch/internal/pipeline"
	"github.com/ayusman/facewatch/internal/store"
)

// recordDetections persists every dispatched detection to the history store.
func recordDetections(s *store.Store) pipeline.Observer {
	return pipeline.ObserverFunc(func(ev pipeline.Event) {
		d := &store.Detection{
			JobID:      ev.JobID,
			Identity:   ev.Identity,
			Top:        ev.Box.Top,
			Right:      ev.Box.Right,
			Bottom:     ev.Box.Bottom,
			Left:       ev.Box.Left,
			FrameSeq:   ev.FrameSeq,
			Snapshot:   ev.Snapshot,
			Alerted:    ev.Alerted,
			DetectedAt: ev.Timestamp,
		}
		if err := s.Detections().Create(d); err != nil {
			log.Printf("store: record detection of %s: %v", ev.Identity, err)
		}
	})
}

// recordAlerts wraps next so that every delivery attempt, successful or not,
// lands in the alerts table. The delivery error is returned unchanged.
func recordAlerts(s *store.Store, next alert.Sender) alert.Sender {
	return alert.SenderFunc(func(ctx context.Context, a alert.Alert) error {
		err := next.Send(ctx, a)

		rec := &store.Alert{
			ID:       a.ID,
			Identity: a.Identity,
			Caption:  a.Caption,
			Success:  err == nil,
			SentAt:   a.Timestamp,
		}
		if err != nil {
			rec.Error = err.Error()
		}
		if cerr := s.Alerts().Create(rec); cerr != nil {
			log.Printf("store: record alert %s: %v", a.ID, cerr)
		}
		return err
	})
}
