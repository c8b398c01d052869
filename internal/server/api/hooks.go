package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/facewatch/internal/hook"
)

// HookHandler lists hooks and runs them on demand.
//
//	GET  /api/hooks
//	POST /api/hooks/{name}/test
type HookHandler struct {
	manager  *hook.Manager
	executor *hook.Executor
}

// NewHookHandler creates a new HookHandler.
func NewHookHandler(m *hook.Manager, e *hook.Executor) *HookHandler {
	return &HookHandler{manager: m, executor: e}
}

type hookResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Events      []string `json:"events"`
}

// ServeHTTP implements the http.Handler interface.
func (h *HookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/hooks"), "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w)
		return
	}

	name, action, ok := strings.Cut(path, "/")
	if !ok || action != "test" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.test(w, r, name)
}

func (h *HookHandler) list(w http.ResponseWriter) {
	hooks := h.manager.List()
	resp := make([]hookResponse, 0, len(hooks))
	for _, hk := range hooks {
		events := hk.Manifest.Events
		if events == nil {
			events = []string{}
		}
		resp = append(resp, hookResponse{
			Name:        hk.Manifest.Name,
			Version:     hk.Manifest.Version,
			Description: hk.Manifest.Description,
			Events:      events,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"hooks": resp})
}

// test runs one hook with a synthetic alert so operators can check their setup.
func (h *HookHandler) test(w http.ResponseWriter, r *http.Request, name string) {
	hk, err := h.manager.Get(name)
	if err != nil {
		if errors.Is(err, hook.ErrHookNotFound) {
			writeError(w, http.StatusNotFound, "Hook not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp, err := h.executor.Execute(r.Context(), hk, &hook.Request{
		Event:     hook.EventAlert,
		Identity:  "test",
		Caption:   "facewatch hook test",
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
