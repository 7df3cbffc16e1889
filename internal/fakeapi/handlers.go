package fakeapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/lukasdemani/searcher-app/internal/model"
)

const maxRequestBody = 1 << 20 // 1 MB

var (
	errURLRequired = errors.New("the \"url\" field is required")
	errURLInvalid  = errors.New("the \"url\" field must be an absolute http(s) URL")
	errIDsRequired = errors.New("the \"ids\" field must list at least one ID")
)

type successResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func validateURLRequest(req model.URLRequest) error {
	if strings.TrimSpace(req.URL) == "" {
		return errURLRequired
	}
	u, err := url.Parse(req.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errURLInvalid
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	search := strings.ToLower(q.Get("search"))
	status := q.Get("status")

	s.mu.Lock()
	all := s.sortedLocked()
	s.mu.Unlock()

	matched := make([]model.AnalysisRecord, 0, len(all))
	for _, rec := range all {
		if status != "" && status != "all" && string(rec.Status) != status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(rec.URL), search) &&
			!strings.Contains(strings.ToLower(rec.Title), search) &&
			!strings.Contains(strings.ToLower(rec.HTMLVersion), search) {
			continue
		}
		matched = append(matched, rec)
	}

	start := min((page-1)*limit, len(matched))
	end := min(start+limit, len(matched))

	s.renderJSON(w, http.StatusOK, model.Page{
		Data: matched[start:end],
		PageMeta: model.PageMeta{
			Page:       page,
			Limit:      limit,
			Total:      len(matched),
			TotalPages: (len(matched) + limit - 1) / limit,
		},
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req model.URLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.renderError(w, http.StatusBadRequest, "Invalid request body. Please send a JSON object with a \"url\" field.")
		return
	}
	if err := validateURLRequest(req); err != nil {
		s.renderError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := s.settings.Now()
	s.mu.Lock()
	rec := model.AnalysisRecord{
		ID:        s.nextID,
		URL:       req.URL,
		Status:    model.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextID++
	s.records[rec.ID] = rec
	s.mu.Unlock()

	s.renderJSON(w, http.StatusCreated, model.RecordEnvelope{Message: "URL added successfully", Data: rec})
	s.startAnalysis(rec.ID)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	rec, found := s.records[id]
	s.mu.Unlock()
	if !found {
		s.renderError(w, http.StatusNotFound, "URL not found")
		return
	}
	s.renderJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if !s.exists(id) {
		s.renderError(w, http.StatusNotFound, "URL not found")
		return
	}
	s.renderJSON(w, http.StatusOK, successResponse{Message: "URL analysis started"})
	s.startAnalysis(id)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if !s.remove(id) {
		s.renderError(w, http.StatusNotFound, "URL not found")
		return
	}
	s.renderJSON(w, http.StatusOK, successResponse{Message: "URL deleted successfully"})
	s.broadcastStatus(id, model.StatusDeleted, nil)
}

func (s *Server) handleBulkAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeBulk(w, r)
	if !ok {
		return
	}
	s.renderJSON(w, http.StatusOK, successResponse{
		Message: "Bulk analysis started",
		Data:    map[string]int{"count": len(req.IDs)},
	})
	for _, id := range req.IDs {
		if s.exists(id) {
			s.startAnalysis(id)
		}
	}
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeBulk(w, r)
	if !ok {
		return
	}
	var deleted []int64
	for _, id := range req.IDs {
		if s.remove(id) {
			deleted = append(deleted, id)
		}
	}
	s.renderJSON(w, http.StatusOK, successResponse{
		Message: "Bulk deletion completed",
		Data:    map[string]int{"deleted": len(deleted), "total": len(req.IDs)},
	})
	for _, id := range deleted {
		s.broadcastStatus(id, model.StatusDeleted, nil)
	}
}

func (s *Server) decodeBulk(w http.ResponseWriter, r *http.Request) (model.BulkRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req model.BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.renderError(w, http.StatusBadRequest, "Invalid request body. Please send a JSON object with an \"ids\" field.")
		return req, false
	}
	if len(req.IDs) == 0 {
		s.renderError(w, http.StatusBadRequest, errIDsRequired.Error())
		return req, false
	}
	return req, true
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.renderError(w, http.StatusBadRequest, "Invalid URL ID")
		return 0, false
	}
	return id, true
}

func (s *Server) exists(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	return ok
}

func (s *Server) remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return false
	}
	delete(s.records, id)
	return true
}

// startAnalysis marks a record processing and, with an AnalyzeDelay,
// completes it later.
func (s *Server) startAnalysis(id int64) {
	s.mu.Lock()
	rec, ok := s.records[id]
	if ok {
		rec.Status = model.StatusProcessing
		rec.UpdatedAt = s.settings.Now()
		s.records[id] = rec
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	s.broadcastStatus(id, string(model.StatusProcessing), nil)
	if s.settings.AnalyzeDelay > 0 {
		time.AfterFunc(s.settings.AnalyzeDelay, func() { s.Complete(id) })
	}
}

func (s *Server) broadcastStatus(id int64, status string, data any) {
	s.Broadcast(model.StatusFrame{
		Type:   model.FrameTypeStatusUpdate,
		URLID:  id,
		Status: status,
		Data:   data,
	})
}

func (s *Server) renderJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"Internal Server Error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, status int, message string) {
	s.renderJSON(w, status, model.ErrorResponse{Error: message})
}
