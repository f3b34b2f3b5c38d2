package websocket

import (
	"encoding/json"
	"testing"
)

func TestChannelForStream(t *testing.T) {
	tests := []struct {
		streamID string
		channel  string
		ok       bool
	}{
		{"assignment:case-4bb08fd4-73e4-4d67-a7ea-4e458a769503", "case:4bb08fd4-73e4-4d67-a7ea-4e458a769503", true},
		{"assignment:hearing-91fe3812-0f01-4b7a-8f4d-3a1d25cb392b", "hearing:91fe3812-0f01-4b7a-8f4d-3a1d25cb392b", true},
		{"association:defendant-1f0a2b3c-4d5e-6f70-8192-a3b4c5d6e7f8", "defendant:1f0a2b3c-4d5e-6f70-8192-a3b4c5d6e7f8", true},
		{"grant:defendant-1f0a2b3c-4d5e-6f70-8192-a3b4c5d6e7f8", "defendant:1f0a2b3c-4d5e-6f70-8192-a3b4c5d6e7f8", true},
		{"audit:case-4bb08fd4", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		channel, ok := channelForStream(tt.streamID)
		if ok != tt.ok || channel != tt.channel {
			t.Errorf("channelForStream(%q) = %q, %v; want %q, %v", tt.streamID, channel, ok, tt.channel, tt.ok)
		}
	}
}

func TestParseChannel(t *testing.T) {
	channelType, id := ParseChannel("case:abc-123")
	if channelType != ChannelTypeCase || id != "abc-123" {
		t.Errorf("ParseChannel() = %q, %q", channelType, id)
	}

	channelType, id = ParseChannel("no-separator")
	if channelType != "" || id != "no-separator" {
		t.Errorf("ParseChannel() = %q, %q", channelType, id)
	}

	if got := MakeChannel(ChannelTypeDefendant, "xyz"); got != "defendant:xyz" {
		t.Errorf("MakeChannel() = %q", got)
	}
}

func TestMessageBuilders(t *testing.T) {
	msg := NewMessage(MessageTypeEvent).
		WithChannel("case:abc").
		WithData(EventData{Stream: "assignment:case-abc", Event: "CaseAssignedToAdvocate", Version: 1}).
		WithRequestID("req-1")

	if msg.Type != MessageTypeEvent || msg.Channel != "case:abc" || msg.RequestID != "req-1" {
		t.Errorf("unexpected message %+v", msg)
	}
	if msg.Timestamp == 0 {
		t.Error("timestamp not set")
	}

	var data EventData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.Event != "CaseAssignedToAdvocate" || data.Version != 1 {
		t.Errorf("unexpected event data %+v", data)
	}
}
