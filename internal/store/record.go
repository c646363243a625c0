package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// TranscriptMessage is one role/text pair as delivered by the upstream
// engine. Granularity may differ from the client's live log.
type TranscriptMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// TranscriptRecord is the persisted form of one ingested call. Records are
// addressable by session id for their entire lifetime and are never deleted
// by this service.
type TranscriptRecord struct {
	SessionID   string              `json:"sessionId"`
	CallID      string              `json:"callId"`
	Timestamp   time.Time           `json:"timestamp"`
	EndedReason string              `json:"endedReason,omitempty"`
	Transcript  string              `json:"transcript"`
	Messages    []TranscriptMessage `json:"messages,omitempty"`
	Processed   bool                `json:"processed"`
	ProcessedAt *time.Time          `json:"processedAt,omitempty"`
}

// LatestPointer references the most recently ingested record. It is a single
// shared key with last-writer-wins semantics: under racing ingestions it may
// briefly point at a session that is not chronologically latest, which is
// accepted rather than corrected.
type LatestPointer struct {
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
}

// CallIndexEntry maps an upstream call id back to its session, enabling
// duplicate webhook deliveries to resolve to the original ingestion.
type CallIndexEntry struct {
	SessionID string `json:"sessionId"`
}

// EncodeRecord marshals a record for storage.
func EncodeRecord(rec *TranscriptRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return data, nil
}

// DecodeRecord unmarshals a stored record body.
func DecodeRecord(data []byte) (*TranscriptRecord, error) {
	var rec TranscriptRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}
