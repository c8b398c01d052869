// Package hook runs external executables when facewatch raises an event.
//
// A hook lives in its own directory under the hooks directory and is described
// by a hook.json manifest. On every subscribed event the hook's executable is
// started with a JSON Request on stdin and must print a JSON Response.
package hook

import "slices"

// Event names a hook can subscribe to.
const (
	EventAlert     = "alert"
	EventDetection = "detection"
)

// ManifestFile is the manifest name looked up in every hook directory.
const ManifestFile = "hook.json"

// Manifest describes a hook's metadata and subscriptions.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Events      []string `json:"events"`
}

// Request is written to the hook's stdin.
type Request struct {
	Event     string `json:"event"`
	AlertID   string `json:"alert_id,omitempty"`
	Identity  string `json:"identity"`
	Caption   string `json:"caption,omitempty"`
	Timestamp string `json:"timestamp"`
	// Image is the base64 JPEG crop of the face, when available.
	Image string `json:"image,omitempty"`
}

// Response is read from the hook's stdout.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Subscribed reports whether h wants to run on event.
func (h *Hook) Subscribed(event string) bool {
	return slices.Contains(h.Manifest.Events, event)
}
