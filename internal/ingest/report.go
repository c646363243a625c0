package ingest

import "github.com/MikeSquared-Agency/parley/internal/store"

// TypeEndOfCall is the only report type that triggers ingestion. Upstream
// delivers many other event types over the same webhook; they are
// acknowledged and ignored.
const TypeEndOfCall = "end-of-call-report"

// Report is the end-of-call webhook payload.
type Report struct {
	Type        string         `json:"type"`
	EndedReason string         `json:"endedReason,omitempty"`
	Call        ReportCall     `json:"call"`
	Artifact    ReportArtifact `json:"artifact"`
}

// ReportCall identifies the upstream call. The call id is upstream's, not a
// session identifier.
type ReportCall struct {
	ID        string `json:"id"`
	StartedAt string `json:"startedAt,omitempty"`
	EndedAt   string `json:"endedAt,omitempty"`
}

// ReportArtifact carries the transcript material assembled upstream.
type ReportArtifact struct {
	Transcript string          `json:"transcript,omitempty"`
	Messages   []ReportMessage `json:"messages,omitempty"`
}

// ReportMessage is one upstream utterance. The text field is named "message"
// on the wire.
type ReportMessage struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

func toStoreMessages(msgs []ReportMessage) []store.TranscriptMessage {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]store.TranscriptMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, store.TranscriptMessage{Role: m.Role, Text: m.Message})
	}
	return out
}
