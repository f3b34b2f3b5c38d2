package websocket

import (
	"strings"

	"github.com/caseaccessio/api/pkg/eventstore"
)

// Publisher broadcasts recorded stream events onto hub channels. It
// implements the command services' publisher port; publishing is best-effort
// and never blocks a command.
type Publisher struct {
	hub *Hub
}

// NewPublisher creates a publisher over a hub.
func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub}
}

// Publish maps each stored event's stream onto a channel and broadcasts it.
func (p *Publisher) Publish(streamID string, events []eventstore.StoredEvent) {
	channel, ok := channelForStream(streamID)
	if !ok {
		return
	}
	for _, event := range events {
		p.hub.BroadcastEvent(channel, EventData{
			Stream:  event.StreamID,
			Event:   event.Name,
			Version: event.Version,
			Data:    event.Data,
		})
	}
}

// channelForStream translates stream ids into subscription channels:
// assignment streams feed case or hearing channels, association and grant
// streams both feed the defendant channel.
func channelForStream(streamID string) (string, bool) {
	switch {
	case strings.HasPrefix(streamID, "assignment:case-"):
		return MakeChannel(ChannelTypeCase, strings.TrimPrefix(streamID, "assignment:case-")), true
	case strings.HasPrefix(streamID, "assignment:hearing-"):
		return MakeChannel(ChannelTypeHearing, strings.TrimPrefix(streamID, "assignment:hearing-")), true
	case strings.HasPrefix(streamID, "association:defendant-"):
		return MakeChannel(ChannelTypeDefendant, strings.TrimPrefix(streamID, "association:defendant-")), true
	case strings.HasPrefix(streamID, "grant:defendant-"):
		return MakeChannel(ChannelTypeDefendant, strings.TrimPrefix(streamID, "grant:defendant-")), true
	default:
		return "", false
	}
}
