package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/facewatch/internal/store"
)

// DetectionHandler serves recorded detections.
//
//	GET /api/detections?identity=&since=&limit=
//	GET /api/detections/{id}
type DetectionHandler struct {
	store *store.Store
}

// NewDetectionHandler creates a new DetectionHandler with the given store.
func NewDetectionHandler(s *store.Store) *DetectionHandler {
	return &DetectionHandler{store: s}
}

type detectionResponse struct {
	ID         int64  `json:"id"`
	JobID      string `json:"job_id"`
	Identity   string `json:"identity"`
	Box        [4]int `json:"box"` // top, right, bottom, left
	FrameSeq   uint64 `json:"frame_seq"`
	Snapshot   string `json:"snapshot,omitempty"`
	Alerted    bool   `json:"alerted"`
	DetectedAt string `json:"detected_at"`
}

type listDetectionsResponse struct {
	Detections []detectionResponse `json:"detections"`
}

func toDetectionResponse(d *store.Detection) detectionResponse {
	return detectionResponse{
		ID:         d.ID,
		JobID:      d.JobID,
		Identity:   d.Identity,
		Box:        [4]int{d.Top, d.Right, d.Bottom, d.Left},
		FrameSeq:   d.FrameSeq,
		Snapshot:   d.Snapshot,
		Alerted:    d.Alerted,
		DetectedAt: formatTime(d.DetectedAt),
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *DetectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/detections")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		h.list(w, r)
		return
	}

	id, err := strconv.ParseInt(path, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid detection id")
		return
	}
	h.get(w, id)
}

func (h *DetectionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	since, ok := queryTime(r, "since")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid since, expected RFC 3339")
		return
	}

	detections, err := h.store.Detections().List(store.DetectionFilter{
		Identity: r.URL.Query().Get("identity"),
		Since:    since,
		Limit:    limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list detections")
		return
	}

	resp := listDetectionsResponse{Detections: make([]detectionResponse, 0, len(detections))}
	for _, d := range detections {
		resp.Detections = append(resp.Detections, toDetectionResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DetectionHandler) get(w http.ResponseWriter, id int64) {
	d, err := h.store.Detections().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Detection not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get detection")
		return
	}
	writeJSON(w, http.StatusOK, toDetectionResponse(d))
}

// IdentityHandler serves per-identity detection counts on GET /api/identities.
type IdentityHandler struct {
	store *store.Store
}

// NewIdentityHandler creates a new IdentityHandler with the given store.
func NewIdentityHandler(s *store.Store) *IdentityHandler {
	return &IdentityHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
func (h *IdentityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	counts, err := h.store.Detections().CountByIdentity()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count detections")
		return
	}
	if counts == nil {
		counts = []store.IdentityCount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"identities": counts})
}
