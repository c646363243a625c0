// Package ingest accepts end-of-call reports from the voice engine backend
// and persists them as transcript records.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/parley/internal/bus"
	"github.com/MikeSquared-Agency/parley/internal/sessionid"
	"github.com/MikeSquared-Agency/parley/internal/store"
)

// Publisher is the slice of the bus client the ingestion service needs.
type Publisher interface {
	Publish(subject string, data any) error
}

// Result describes what a delivery did. Ingested is false for irrelevant or
// incomplete reports, which are acknowledged without side effects.
type Result struct {
	SessionID string
	Ingested  bool
	Duplicate bool
}

// Service validates reports, allocates session identifiers, and writes
// records plus the latest pointer. Deliveries are at-least-once; a repeated
// call id resolves to its original session instead of a second allocation.
type Service struct {
	store  store.Store
	alloc  *sessionid.Allocator
	bus    Publisher
	logger *slog.Logger
	now    func() time.Time
}

func New(s store.Store, alloc *sessionid.Allocator, pub Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:  s,
		alloc:  alloc,
		bus:    pub,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Ingest processes one webhook delivery.
//
// Write ordering is deliberate: the record is reserved first, then the call
// index, then the latest pointer. The pointer can never reference a record
// that was not written. The pointer itself is last-writer-wins; racing
// ingestions may leave it on a session that is not chronologically latest,
// which is accepted.
func (s *Service) Ingest(ctx context.Context, report *Report) (*Result, error) {
	if report.Type != TypeEndOfCall {
		s.logger.Debug("ignoring report", "type", report.Type)
		return &Result{}, nil
	}
	if report.Call.ID == "" || report.Artifact.Transcript == "" {
		// Upstream retries on failure and an incomplete report will never
		// self-correct, so acknowledge it instead of provoking retries.
		s.logger.Warn("incomplete end-of-call report",
			"call_id", report.Call.ID,
			"has_transcript", report.Artifact.Transcript != "")
		return &Result{}, nil
	}

	if existing, err := s.lookupCall(ctx, report.Call.ID); err != nil {
		return nil, err
	} else if existing != "" {
		s.logger.Info("duplicate delivery", "call_id", report.Call.ID, "session_id", existing)
		return &Result{SessionID: existing, Ingested: true, Duplicate: true}, nil
	}

	now := s.now().UTC()
	sessionID, err := s.alloc.Allocate(ctx, now, func(id string) ([]byte, error) {
		return store.EncodeRecord(&store.TranscriptRecord{
			SessionID:   id,
			CallID:      report.Call.ID,
			Timestamp:   now,
			EndedReason: report.EndedReason,
			Transcript:  report.Artifact.Transcript,
			Messages:    toStoreMessages(report.Artifact.Messages),
			Processed:   false,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("allocate session: %w", err)
	}

	indexValue, err := json.Marshal(store.CallIndexEntry{SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("marshal call index: %w", err)
	}
	if err := s.store.Put(ctx, store.CallIndexKey(report.Call.ID), indexValue); err != nil {
		return nil, fmt.Errorf("write call index: %w", err)
	}

	pointerValue, err := json.Marshal(store.LatestPointer{SessionID: sessionID, Timestamp: now})
	if err != nil {
		return nil, fmt.Errorf("marshal latest pointer: %w", err)
	}
	if err := s.store.Put(ctx, store.KeyLatest, pointerValue); err != nil {
		return nil, fmt.Errorf("write latest pointer: %w", err)
	}

	s.logger.Info("transcript ingested",
		"session_id", sessionID,
		"call_id", report.Call.ID,
		"ended_reason", report.EndedReason)

	if s.bus != nil {
		evt := bus.StoredEvent{
			SessionID: sessionID,
			CallID:    report.Call.ID,
			Timestamp: now.Format(time.RFC3339),
		}
		if err := s.bus.Publish(bus.SubjectTranscriptStored, evt); err != nil {
			s.logger.Warn("failed to publish stored event", "session_id", sessionID, "error", err)
		}
	}

	return &Result{SessionID: sessionID, Ingested: true}, nil
}

func (s *Service) lookupCall(ctx context.Context, callID string) (string, error) {
	data, err := s.store.Get(ctx, store.CallIndexKey(callID))
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup call index: %w", err)
	}
	var entry store.CallIndexEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", fmt.Errorf("decode call index: %w", err)
	}
	return entry.SessionID, nil
}
