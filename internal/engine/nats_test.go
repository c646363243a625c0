package engine

import (
	"testing"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Event
		ok   bool
	}{
		{
			"call start",
			`{"type":"call-start"}`,
			Event{Type: EventCallStart},
			true,
		},
		{
			"call end",
			`{"type":"call-end"}`,
			Event{Type: EventCallEnd},
			true,
		},
		{
			"partial transcript",
			`{"type":"transcript","role":"user","transcript":"hel","transcriptType":"partial"}`,
			Event{Type: EventTranscript, Role: "user", Text: "hel", Final: false},
			true,
		},
		{
			"final transcript",
			`{"type":"transcript","role":"user","transcript":"hello","transcriptType":"final"}`,
			Event{Type: EventTranscript, Role: "user", Text: "hello", Final: true},
			true,
		},
		{
			"transcript type defaults to final",
			`{"type":"transcript","role":"assistant","transcript":"hi"}`,
			Event{Type: EventTranscript, Role: "assistant", Text: "hi", Final: true},
			true,
		},
		{
			"role defaults to assistant",
			`{"type":"transcript","transcript":"hi"}`,
			Event{Type: EventTranscript, Role: "assistant", Text: "hi", Final: true},
			true,
		},
		{
			"unknown type rejected",
			`{"type":"speech-update"}`,
			Event{},
			false,
		},
		{
			"garbage rejected",
			`not json`,
			Event{},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeEvent([]byte(tt.data))
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.Type != tt.want.Type || got.Role != tt.want.Role ||
				got.Text != tt.want.Text || got.Final != tt.want.Final {
				t.Errorf("DecodeEvent = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeErrorEvent(t *testing.T) {
	got, ok := DecodeEvent([]byte(`{"type":"error","error":"connection refused"}`))
	if !ok {
		t.Fatal("error event should decode")
	}
	if got.Err == nil || got.Err.Error() != "connection refused" {
		t.Errorf("Err = %v", got.Err)
	}

	got, ok = DecodeEvent([]byte(`{"type":"error"}`))
	if !ok || got.Err == nil {
		t.Fatal("error event without message should still carry an error")
	}
}
