package alert

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/facewatch/internal/hook"
)

// Hooks runs every hook subscribed to the alert event.
type Hooks struct {
	manager  *hook.Manager
	executor *hook.Executor
}

// NewHooks returns a hook sender, or nil when no hook subscribes to alerts.
func NewHooks(manager *hook.Manager, executor *hook.Executor) *Hooks {
	if manager == nil || len(manager.Subscribers(hook.EventAlert)) == 0 {
		return nil
	}
	return &Hooks{manager: manager, executor: executor}
}

// Send runs each subscribed hook in name order. A failing hook does not stop
// the rest.
func (h *Hooks) Send(ctx context.Context, a Alert) error {
	if h == nil {
		return ErrNotConfigured
	}

	req := &hook.Request{
		Event:     hook.EventAlert,
		AlertID:   a.ID,
		Identity:  a.Identity,
		Caption:   a.Caption,
		Timestamp: a.Timestamp.Format(time.RFC3339),
	}
	if len(a.Image) > 0 {
		req.Image = base64.StdEncoding.EncodeToString(a.Image)
	}

	var errs []error
	for _, hk := range h.manager.Subscribers(hook.EventAlert) {
		resp, err := h.executor.Execute(ctx, hk, req)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !resp.Success {
			errs = append(errs, fmt.Errorf("hook %s: %s", hk.Manifest.Name, resp.Error))
		}
	}
	return errors.Join(errs...)
}
