package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ayusman/facewatch/internal/alert"
	"github.com/ayusman/facewatch/internal/config"
	"github.com/ayusman/facewatch/internal/hook"
	"github.com/ayusman/facewatch/internal/pipeline"
	"github.com/ayusman/facewatch/internal/recognizer"
	"github.com/ayusman/facewatch/internal/store"
)

func TestRecordDetections(t *testing.T) {
	s := newTestStore(t)
	ts := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

	recordDetections(s).Observe(pipeline.Event{
		JobID:     "job-1",
		Identity:  "alice",
		Box:       recognizer.Box{Top: 1, Right: 9, Bottom: 8, Left: 2},
		FrameSeq:  42,
		Timestamp: ts,
		Snapshot:  "snapshots/alice_20240501_083000.jpg",
		Alerted:   true,
	})

	list, err := s.Detections().List(store.DetectionFilter{Identity: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("stored %d detections, want 1", len(list))
	}
	d := list[0]
	if d.JobID != "job-1" || d.FrameSeq != 42 || !d.Alerted || d.Right != 9 || !d.DetectedAt.Equal(ts) {
		t.Errorf("unexpected detection %+v", d)
	}
}

func TestRecordAlerts(t *testing.T) {
	tests := []struct {
		name    string
		sendErr error
	}{
		{"success", nil},
		{"failure", errors.New("429 too many requests")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			next := alert.SenderFunc(func(ctx context.Context, a alert.Alert) error {
				return tt.sendErr
			})

			a := alert.New("bob", nil, "front door", time.Now())
			err := recordAlerts(s, next).Send(context.Background(), a)
			if !errors.Is(err, tt.sendErr) {
				t.Errorf("Send() error = %v, want %v", err, tt.sendErr)
			}

			got, err := s.Alerts().GetByID(a.ID)
			if err != nil {
				t.Fatalf("alert not recorded: %v", err)
			}
			if got.Success != (tt.sendErr == nil) || got.Caption != "front door" {
				t.Errorf("unexpected record %+v", got)
			}
			if tt.sendErr != nil && got.Error != tt.sendErr.Error() {
				t.Errorf("Error = %q, want %q", got.Error, tt.sendErr.Error())
			}
		})
	}
}

func TestAlertSenders_NothingConfigured(t *testing.T) {
	cfg := &config.Config{}
	sender, closers := AlertSenders(cfg, hook.NewManager(t.TempDir()), hook.NewExecutor(time.Second))
	if sender != nil {
		t.Errorf("sender = %#v, want nil so alerting is disabled", sender)
	}
	if len(closers) != 0 {
		t.Errorf("got %d closers, want 0", len(closers))
	}
}

func TestAlertSenders_Telegram(t *testing.T) {
	cfg := &config.Config{TelegramToken: "token", TelegramChatID: "42"}
	sender, _ := AlertSenders(cfg, nil, nil)
	if sender == nil {
		t.Fatal("Telegram credentials should enable alerting")
	}
	if _, ok := sender.(*alert.Telegram); !ok {
		t.Errorf("sender = %T, want *alert.Telegram", sender)
	}
}
