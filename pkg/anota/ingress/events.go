// Package ingress is the inbound edge: it verifies the channel webhook,
// parses payloads into tagged events, and feeds a bounded worker pool that
// runs the classify→store/extract→reply pipeline.
package ingress

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// EventKind tags the variants of an inbound webhook event.
type EventKind string

const (
	EventText        EventKind = "text"
	EventInteractive EventKind = "interactive"
	EventStatus      EventKind = "status"
	EventUnknown     EventKind = "unknown"
)

// Event is one parsed inbound item. The webhook payload is loosely shaped;
// everything downstream consumes only this tagged form.
type Event struct {
	Kind EventKind

	// MessageID keys deduplication and background work.
	MessageID string

	// From is the sender's channel address.
	From string

	// SenderName is the display name the channel attached, if any.
	SenderName string

	Timestamp time.Time

	// Body is set for text events.
	Body string

	// ButtonID and ButtonTitle are set for interactive reply events.
	ButtonID    string
	ButtonTitle string
}

// Cloud API webhook payload shapes, pared down to the paths anota reads.
type webhookPayload struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Value webhookValue `json:"value"`
}

type webhookValue struct {
	Contacts []webhookContact `json:"contacts"`
	Messages []webhookMessage `json:"messages"`
	Statuses []webhookStatus  `json:"statuses"`
}

type webhookContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type webhookMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
	} `json:"interactive"`
}

type webhookStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ParsePayload decodes a webhook POST body into events. A payload that is
// not valid JSON for the channel shape is an error (the caller answers 400);
// individual messages of unhandled types become Unknown events instead.
func ParsePayload(data []byte) ([]Event, error) {
	var payload webhookPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}
	if payload.Object != "whatsapp_business_account" {
		return nil, fmt.Errorf("unexpected webhook object %q", payload.Object)
	}

	var events []Event
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			names := map[string]string{}
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}
			for _, m := range change.Value.Messages {
				events = append(events, parseMessage(m, names))
			}
			for _, s := range change.Value.Statuses {
				events = append(events, Event{
					Kind:      EventStatus,
					MessageID: s.ID,
					Timestamp: parseEpoch(s.Timestamp),
				})
			}
		}
	}
	return events, nil
}

func parseMessage(m webhookMessage, names map[string]string) Event {
	ev := Event{
		Kind:       EventUnknown,
		MessageID:  m.ID,
		From:       m.From,
		SenderName: names[m.From],
		Timestamp:  parseEpoch(m.Timestamp),
	}
	switch m.Type {
	case "text":
		if m.Text != nil {
			ev.Kind = EventText
			ev.Body = m.Text.Body
		}
	case "interactive":
		if m.Interactive != nil && m.Interactive.ButtonReply != nil {
			ev.Kind = EventInteractive
			ev.ButtonID = m.Interactive.ButtonReply.ID
			ev.ButtonTitle = m.Interactive.ButtonReply.Title
		}
	}
	return ev
}

func parseEpoch(s string) time.Time {
	epoch, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(epoch, 0)
}
