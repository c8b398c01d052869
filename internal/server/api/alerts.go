package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/facewatch/internal/store"
)

// AlertHandler serves recorded alerts.
//
//	GET /api/alerts?identity=&limit=
//	GET /api/alerts/{id}
type AlertHandler struct {
	store *store.Store
}

// NewAlertHandler creates a new AlertHandler with the given store.
func NewAlertHandler(s *store.Store) *AlertHandler {
	return &AlertHandler{store: s}
}

type alertResponse struct {
	ID       string `json:"id"`
	Identity string `json:"identity"`
	Caption  string `json:"caption"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	SentAt   string `json:"sent_at"`
}

type listAlertsResponse struct {
	Alerts []alertResponse `json:"alerts"`
}

func toAlertResponse(a *store.Alert) alertResponse {
	return alertResponse{
		ID:       a.ID,
		Identity: a.Identity,
		Caption:  a.Caption,
		Success:  a.Success,
		Error:    a.Error,
		SentAt:   formatTime(a.SentAt),
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *AlertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/alerts"), "/")
	if id != "" {
		h.get(w, id)
		return
	}

	limit, ok := queryInt(r, "limit")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	alerts, err := h.store.Alerts().List(r.URL.Query().Get("identity"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list alerts")
		return
	}

	resp := listAlertsResponse{Alerts: make([]alertResponse, 0, len(alerts))}
	for _, a := range alerts {
		resp.Alerts = append(resp.Alerts, toAlertResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AlertHandler) get(w http.ResponseWriter, id string) {
	a, err := h.store.Alerts().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Alert not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get alert")
		return
	}
	writeJSON(w, http.StatusOK, toAlertResponse(a))
}
