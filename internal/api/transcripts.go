package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/parley/internal/ingest"
	"github.com/MikeSquared-Agency/parley/internal/query"
	"github.com/MikeSquared-Agency/parley/internal/store"
)

// handleIngest accepts end-of-call reports from the voice engine backend.
// Irrelevant or incomplete reports are acknowledged with success and no side
// effects: upstream retries on non-2xx, and a malformed report never
// self-corrects.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var report ingest.Report
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		s.logger.Warn("undecodable webhook body", "error", err)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	res, err := s.ingest.Ingest(r.Context(), &report)
	if err != nil {
		s.logger.Error("ingestion failed", "call_id", report.Call.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}

	body := map[string]any{"success": true}
	if res.SessionID != "" {
		body["sessionId"] = res.SessionID
	}
	writeJSON(w, http.StatusOK, body)
}

// handleTranscripts multiplexes the query operations on one route:
// ?id=<sessionId>, ?latest=true, ?unprocessed=true, ?markProcessed=<id>
// (POST only), or no parameters for the full metadata listing.
func (s *Server) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	switch {
	case q.Get("markProcessed") != "":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "markProcessed requires POST")
			return
		}
		s.markProcessed(w, r, q.Get("markProcessed"))
	case q.Get("id") != "":
		s.getByID(w, r, q.Get("id"))
	case q.Get("latest") == "true":
		s.getLatest(w, r)
	case q.Get("unprocessed") == "true":
		s.listUnprocessed(w, r)
	default:
		s.listAll(w, r)
	}
}

func (s *Server) getByID(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := s.query.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transcript not found")
		return
	}
	if err != nil {
		s.logger.Error("get transcript failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) getLatest(w http.ResponseWriter, r *http.Request) {
	rec, err := s.query.Latest(r.Context())
	if errors.Is(err, query.ErrNoLatest) {
		writeJSON(w, http.StatusOK, map[string]any{"transcript": nil})
		return
	}
	if err != nil {
		s.logger.Error("get latest failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listUnprocessed(w http.ResponseWriter, r *http.Request) {
	recs, err := s.query.Unprocessed(r.Context())
	if err != nil {
		s.logger.Error("list unprocessed failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transcripts": recs, "count": len(recs)})
}

func (s *Server) markProcessed(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := s.query.MarkProcessed(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transcript not found")
		return
	}
	if err != nil {
		s.logger.Error("mark processed failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "transcript": rec})
}

func (s *Server) listAll(w http.ResponseWriter, r *http.Request) {
	entries, err := s.query.ListAll(r.Context())
	if err != nil {
		s.logger.Error("list transcripts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transcripts": entries, "count": len(entries)})
}
