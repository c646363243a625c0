// Package query serves reads over ingested transcripts, plus the single
// processed-flag mutation.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/parley/internal/store"
)

// ErrNoLatest is returned by Latest before anything has been ingested.
var ErrNoLatest = errors.New("query: no transcript ingested yet")

type Service struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

func New(s store.Store, logger *slog.Logger) *Service {
	return &Service{store: s, logger: logger, now: time.Now}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Get returns the record stored under sessionID. store.ErrNotFound when the
// id is unknown; a reserved key is treated the same as an unknown id.
func (s *Service) Get(ctx context.Context, sessionID string) (*store.TranscriptRecord, error) {
	if store.IsMeta(sessionID) {
		return nil, store.ErrNotFound
	}
	data, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return store.DecodeRecord(data)
}

// Latest dereferences the latest pointer. ErrNoLatest when no pointer has
// been written yet.
func (s *Service) Latest(ctx context.Context) (*store.TranscriptRecord, error) {
	data, err := s.store.Get(ctx, store.KeyLatest)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoLatest
	}
	if err != nil {
		return nil, fmt.Errorf("read latest pointer: %w", err)
	}
	var ptr store.LatestPointer
	if err := json.Unmarshal(data, &ptr); err != nil {
		return nil, fmt.Errorf("decode latest pointer: %w", err)
	}
	return s.Get(ctx, ptr.SessionID)
}

// Unprocessed returns every record whose processed flag is still false, in
// key order. Reserved keys never enter the scan.
func (s *Service) Unprocessed(ctx context.Context) ([]*store.TranscriptRecord, error) {
	entries, err := s.store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	records := make([]*store.TranscriptRecord, 0, len(entries))
	for _, e := range entries {
		rec, err := s.Get(ctx, e.Key)
		if err != nil {
			// A record listed a moment ago may legitimately be unreadable
			// only if the store is failing; surface that.
			return nil, fmt.Errorf("read %s: %w", e.Key, err)
		}
		if !rec.Processed {
			records = append(records, rec)
		}
	}
	return records, nil
}

// MarkProcessed sets the processed flag and stamps processedAt on first call.
// Idempotent in effect: repeated calls leave processed true. Two concurrent
// calls race on processedAt with last-writer-wins, which is acceptable.
func (s *Service) MarkProcessed(ctx context.Context, sessionID string) (*store.TranscriptRecord, error) {
	rec, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rec.Processed = true
	if rec.ProcessedAt == nil {
		t := s.now().UTC()
		rec.ProcessedAt = &t
	}

	data, err := store.EncodeRecord(rec)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, sessionID, data); err != nil {
		return nil, fmt.Errorf("write processed flag: %w", err)
	}

	s.logger.Info("transcript marked processed", "session_id", sessionID)
	return rec, nil
}

// ListAll returns key/integrity-tag pairs for every record without fetching
// bodies.
func (s *Service) ListAll(ctx context.Context) ([]store.Entry, error) {
	entries, err := s.store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return entries, nil
}
