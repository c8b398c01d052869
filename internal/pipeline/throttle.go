package pipeline

import (
	"sync"
	"time"

	"github.com/ayusman/facewatch/internal/recognizer"
)

// DefaultCooldown is the minimum gap between two alerts for the same person.
const DefaultCooldown = 60 * time.Second

// AlertThrottle is a per-identity cooldown gate.
type AlertThrottle struct {
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

// NewAlertThrottle creates a throttle with the given cooldown window.
// A non-positive window falls back to DefaultCooldown.
func NewAlertThrottle(window time.Duration) *AlertThrottle {
	if window <= 0 {
		window = DefaultCooldown
	}
	return &AlertThrottle{
		window: window,
		last:   make(map[string]time.Time),
	}
}

// Window returns the cooldown window.
func (t *AlertThrottle) Window() time.Duration {
	return t.window
}

// ShouldAlert reports whether identity may alert at now, and if so records now
// as its last alert time. Check and record happen under one lock, so two
// callers at the same instant never both get true. Unknown and empty
// identities are never alertable and never stored.
func (t *AlertThrottle) ShouldAlert(identity string, now time.Time) bool {
	if identity == "" || identity == recognizer.Unknown {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.last[identity]; ok && now.Sub(last) < t.window {
		return false
	}
	t.last[identity] = now
	return true
}

// LastAlert returns when identity last passed the gate.
func (t *AlertThrottle) LastAlert(identity string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.last[identity]
	return last, ok
}

// Len returns the number of identities that have alerted at least once.
func (t *AlertThrottle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}
