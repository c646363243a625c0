package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/parley/internal/ingest"
	"github.com/MikeSquared-Agency/parley/internal/query"
	"github.com/MikeSquared-Agency/parley/internal/sessionid"
	"github.com/MikeSquared-Agency/parley/internal/store"
)

func newTestServer() *Server {
	mem := store.NewMemory()
	logger := slog.New(slog.DiscardHandler)
	ing := ingest.New(mem, sessionid.New(mem, logger), nil, logger)
	return NewServer(8760, ing, query.New(mem, logger), logger)
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

const endOfCallBody = `{
	"type": "end-of-call-report",
	"endedReason": "customer-ended-call",
	"call": {"id": "call-xyz"},
	"artifact": {
		"transcript": "AI: Hello.\nUser: Hi.",
		"messages": [
			{"role": "assistant", "message": "Hello."},
			{"role": "user", "message": "Hi."}
		]
	}
}`

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer()

	w := do(t, srv, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestIngestEndpoint(t *testing.T) {
	srv := newTestServer()

	w := do(t, srv, "POST", "/api/transcript", endOfCallBody)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["success"] != true {
		t.Error("expected success true")
	}
	id, _ := body["sessionId"].(string)
	if !strings.HasPrefix(id, "pS_") {
		t.Errorf("expected server-allocated session id, got %q", id)
	}
}

func TestIngestEndpointRejectsGet(t *testing.T) {
	srv := newTestServer()

	w := do(t, srv, "GET", "/api/transcript", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestIngestEndpointAcksIrrelevantReport(t *testing.T) {
	srv := newTestServer()

	w := do(t, srv, "POST", "/api/transcript", `{"type":"status-update"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	// Nothing was ingested.
	w = do(t, srv, "GET", "/api/transcripts", "")
	var listing struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&listing); err != nil {
		t.Fatalf("failed to decode listing: %v", err)
	}
	if listing.Count != 0 {
		t.Errorf("expected empty store, got %d records", listing.Count)
	}
}

func TestIngestEndpointAcksMalformedBody(t *testing.T) {
	srv := newTestServer()

	w := do(t, srv, "POST", "/api/transcript", "not json at all")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 ack for malformed body, got %d", w.Code)
	}
}

func TestGetByID(t *testing.T) {
	srv := newTestServer()

	w := do(t, srv, "POST", "/api/transcript", endOfCallBody)
	var ingestResp struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(w.Body).Decode(&ingestResp); err != nil {
		t.Fatalf("failed to decode ingest response: %v", err)
	}

	w = do(t, srv, "GET", "/api/transcripts?id="+ingestResp.SessionID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var rec store.TranscriptRecord
	if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
		t.Fatalf("failed to decode record: %v", err)
	}
	if rec.SessionID != ingestResp.SessionID || rec.CallID != "call-xyz" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	srv := newTestServer()

	w := do(t, srv, "GET", "/api/transcripts?id=pS_1Jan26-9", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestGetLatest(t *testing.T) {
	srv := newTestServer()

	// Explicit empty result before any ingestion.
	w := do(t, srv, "GET", "/api/transcripts?latest=true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var empty map[string]any
	if err := json.NewDecoder(w.Body).Decode(&empty); err != nil {
		t.Fatalf("failed to decode empty latest: %v", err)
	}
	if empty["transcript"] != nil {
		t.Errorf("expected null transcript, got %v", empty["transcript"])
	}

	do(t, srv, "POST", "/api/transcript", endOfCallBody)

	w = do(t, srv, "GET", "/api/transcripts?latest=true", "")
	var rec store.TranscriptRecord
	if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
		t.Fatalf("failed to decode record: %v", err)
	}
	if rec.CallID != "call-xyz" {
		t.Errorf("latest returned wrong record: %+v", rec)
	}
}

func TestUnprocessedAndMarkProcessed(t *testing.T) {
	srv := newTestServer()

	w := do(t, srv, "POST", "/api/transcript", endOfCallBody)
	var ingestResp struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(w.Body).Decode(&ingestResp); err != nil {
		t.Fatalf("failed to decode ingest response: %v", err)
	}

	w = do(t, srv, "GET", "/api/transcripts?unprocessed=true", "")
	var listing struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&listing); err != nil {
		t.Fatalf("failed to decode listing: %v", err)
	}
	if listing.Count != 1 {
		t.Fatalf("expected 1 unprocessed, got %d", listing.Count)
	}

	// markProcessed requires POST.
	w = do(t, srv, "GET", "/api/transcripts?markProcessed="+ingestResp.SessionID, "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET markProcessed, got %d", w.Code)
	}

	w = do(t, srv, "POST", "/api/transcripts?markProcessed="+ingestResp.SessionID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	// Idempotent on repeat.
	w = do(t, srv, "POST", "/api/transcripts?markProcessed="+ingestResp.SessionID, "")
	if w.Code != http.StatusOK {
		t.Errorf("second markProcessed should succeed, got %d", w.Code)
	}

	w = do(t, srv, "GET", "/api/transcripts?unprocessed=true", "")
	if err := json.NewDecoder(w.Body).Decode(&listing); err != nil {
		t.Fatalf("failed to decode listing: %v", err)
	}
	if listing.Count != 0 {
		t.Errorf("expected 0 unprocessed after marking, got %d", listing.Count)
	}
}

func TestMarkProcessedUnknownID(t *testing.T) {
	srv := newTestServer()

	w := do(t, srv, "POST", "/api/transcripts?markProcessed=pS_1Jan26-9", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestMetadataListing(t *testing.T) {
	srv := newTestServer()

	do(t, srv, "POST", "/api/transcript", endOfCallBody)
	do(t, srv, "POST", "/api/transcript", strings.Replace(endOfCallBody, "call-xyz", "call-two", 1))

	w := do(t, srv, "GET", "/api/transcripts", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var listing struct {
		Transcripts []store.Entry `json:"transcripts"`
		Count       int           `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&listing); err != nil {
		t.Fatalf("failed to decode listing: %v", err)
	}
	if listing.Count != 2 {
		t.Fatalf("expected 2 entries, got %d", listing.Count)
	}
	for _, e := range listing.Transcripts {
		if e.IntegrityTag == "" {
			t.Errorf("entry %s missing integrity tag", e.Key)
		}
		if strings.HasPrefix(e.Key, "!") {
			t.Errorf("reserved key leaked into listing: %s", e.Key)
		}
	}
}
