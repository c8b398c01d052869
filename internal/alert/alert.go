// Package alert delivers notifications about recognized people.
package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultCaption is attached to alerts raised by the live pipeline.
const DefaultCaption = "Detected by facewatch"

// Alert is one notification about a recognized person.
type Alert struct {
	ID        string    `json:"id"`
	Identity  string    `json:"identity"`
	Caption   string    `json:"caption"`
	Timestamp time.Time `json:"timestamp"`
	// Image is a JPEG crop of the face. May be empty.
	Image []byte `json:"-"`
}

// New creates an alert with a fresh ID.
func New(identity string, image []byte, caption string, ts time.Time) Alert {
	return Alert{
		ID:        uuid.NewString(),
		Identity:  identity,
		Caption:   caption,
		Timestamp: ts,
		Image:     image,
	}
}

// Text renders the human readable message for a.
func (a Alert) Text() string {
	text := "Recognized: " + a.Identity
	if a.Caption != "" {
		text += "\n" + a.Caption
	}
	return text
}

// Sender delivers an alert. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, a Alert) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, a Alert) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, a Alert) error {
	return f(ctx, a)
}

// Multi sends every alert through each sender in turn. One failing sender does
// not stop the others; their errors are joined.
type Multi []Sender

// Send delivers a to every sender.
func (m Multi) Send(ctx context.Context, a Alert) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

// Combine builds a Sender from the non-nil senders. It returns nil when none
// remain, which disables alerting.
func Combine(senders ...Sender) Sender {
	var m Multi
	for _, s := range senders {
		if s != nil {
			m = append(m, s)
		}
	}
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0]
	default:
		return m
	}
}
