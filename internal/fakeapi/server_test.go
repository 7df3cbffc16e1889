package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lukasdemani/searcher-app/internal/model"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(settings Settings) *Server {
	settings.Now = func() time.Time { return fixedNow }
	return New(settings, nil)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "key")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestList_PaginatesNewestFirst(t *testing.T) {
	s := newTestServer(Settings{})
	for i := 0; i < 5; i++ {
		s.Seed(model.AnalysisRecord{URL: "https://example.com", CreatedAt: fixedNow.Add(time.Duration(i) * time.Minute)})
	}

	rec := do(t, s, http.MethodGet, "/api/urls?page=2&limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var page model.Page
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(page.Data) != 2 || page.Data[0].ID != 3 || page.Data[1].ID != 2 {
		t.Errorf("data = %+v", page.Data)
	}
	if page.Total != 5 || page.TotalPages != 3 || page.Page != 2 || page.Limit != 2 {
		t.Errorf("meta = %+v", page.PageMeta)
	}
}

func TestList_SearchAndStatus(t *testing.T) {
	s := newTestServer(Settings{})
	s.Seed(
		model.AnalysisRecord{ID: 1, URL: "https://go.dev", Status: model.StatusCompleted},
		model.AnalysisRecord{ID: 2, URL: "https://example.com", Title: "Gophers", Status: model.StatusQueued},
		model.AnalysisRecord{ID: 3, URL: "https://example.org", Status: model.StatusCompleted},
	)

	var page model.Page
	rec := do(t, s, http.MethodGet, "/api/urls?search=GO&status=completed", "")
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].ID != 1 {
		t.Errorf("data = %+v", page.Data)
	}
}

func TestCreate(t *testing.T) {
	s := newTestServer(Settings{})

	rec := do(t, s, http.MethodPost, "/api/urls", `{"url":"https://example.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	var env model.RecordEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if env.Data.ID != 1 || env.Data.URL != "https://example.com" || !env.Data.CreatedAt.Equal(fixedNow) {
		t.Errorf("data = %+v", env.Data)
	}
	if got := s.Records()[0].Status; got != model.StatusProcessing {
		t.Errorf("stored status = %q, want %q", got, model.StatusProcessing)
	}
}

func TestCreate_Invalid(t *testing.T) {
	s := newTestServer(Settings{})

	for _, body := range []string{`not json`, `{"url":""}`, `{"url":"ftp://x"}`} {
		rec := do(t, s, http.MethodPost, "/api/urls", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want %d", body, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestRecordRoutes_NotFound(t *testing.T) {
	s := newTestServer(Settings{})

	for _, tt := range []struct{ method, target string }{
		{http.MethodGet, "/api/urls/9"},
		{http.MethodPut, "/api/urls/9/analyze"},
		{http.MethodDelete, "/api/urls/9"},
	} {
		rec := do(t, s, tt.method, tt.target, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.target, rec.Code, http.StatusNotFound)
		}
		var body model.ErrorResponse
		_ = json.NewDecoder(rec.Body).Decode(&body)
		if body.Error != "URL not found" {
			t.Errorf("error = %q", body.Error)
		}
	}
}

func TestBulkDelete(t *testing.T) {
	s := newTestServer(Settings{})
	s.Seed(model.AnalysisRecord{ID: 1}, model.AnalysisRecord{ID: 2}, model.AnalysisRecord{ID: 3})

	rec := do(t, s, http.MethodPost, "/api/urls/bulk-delete", `{"ids":[1,3,7]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if recs := s.Records(); len(recs) != 1 || recs[0].ID != 2 {
		t.Errorf("records = %+v", recs)
	}

	if rec := do(t, s, http.MethodPost, "/api/urls/bulk-delete", `{"ids":[]}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty ids: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAPIKey(t *testing.T) {
	s := New(Settings{APIKey: "secret"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/urls", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing key: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid key: status = %d, want %d", rec.Code, http.StatusOK)
	}

	// Health is outside the API prefix.
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestSetFailureAndRequests(t *testing.T) {
	s := newTestServer(Settings{})
	s.SetFailure(http.StatusInternalServerError)

	if rec := do(t, s, http.MethodGet, "/api/urls", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	s.SetFailure(0)
	if rec := do(t, s, http.MethodGet, "/api/urls", ""); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := s.Requests("GET /api/urls"); got != 2 {
		t.Errorf("Requests = %d, want 2", got)
	}
}

func dialPush(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) model.StatusFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame model.StatusFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func TestPush_AnalysisLifecycle(t *testing.T) {
	s := newTestServer(Settings{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialPush(t, ts)
	deadline := time.Now().Add(2 * time.Second)
	for s.Clients() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Post(ts.URL+"/api/urls", "application/json", strings.NewReader(`{"url":"https://example.com/login"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	_ = resp.Body.Close()

	frame := readFrame(t, conn)
	if frame.Type != model.FrameTypeStatusUpdate || frame.URLID != 1 || frame.Status != "processing" || frame.Data != nil {
		t.Errorf("processing frame = %+v", frame)
	}

	s.Complete(1)
	frame = readFrame(t, conn)
	data, ok := frame.Data.(map[string]any)
	if frame.Status != "completed" || !ok || data["title"] != "example.com" || data["has_login_form"] != true {
		t.Errorf("completed frame = %+v", frame)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/urls/1", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	_ = resp.Body.Close()

	if frame = readFrame(t, conn); frame.Status != model.StatusDeleted || frame.URLID != 1 {
		t.Errorf("deleted frame = %+v", frame)
	}
}

func TestPush_RefuseAndDrop(t *testing.T) {
	s := newTestServer(Settings{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	s.RefusePush(true)
	if _, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil); err == nil {
		t.Fatal("expected the upgrade to be refused")
	} else if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("response = %v, want 503", resp)
	}

	s.RefusePush(false)
	conn := dialPush(t, ts)
	deadline := time.Now().Add(2 * time.Second)
	for s.Clients() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	s.DropClients(websocket.CloseGoingAway)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("err = %v, want close 1001", err)
	}
}
