package whatsapp

import (
	"encoding/json"
	"fmt"

	"complaintbot/flow"
)

// Webhook payload shapes for the subset of Cloud API events the bot
// consumes. Statuses and unknown message types are ignored.
type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
	} `json:"interactive"`
	Document *struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		Caption  string `json:"caption"`
	} `json:"document"`
	Image *struct {
		ID      string `json:"id"`
		Caption string `json:"caption"`
	} `json:"image"`
}

// ParseEvents normalizes a webhook POST body into engine events. A payload
// with no usable messages yields an empty slice, not an error.
func ParseEvents(body []byte) ([]flow.Event, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("whatsapp: decode webhook payload: %w", err)
	}

	var events []flow.Event
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				evt, ok := normalizeMessage(msg)
				if !ok {
					continue
				}
				events = append(events, evt)
			}
		}
	}
	return events, nil
}

func normalizeMessage(msg inboundMessage) (flow.Event, bool) {
	if msg.From == "" {
		return flow.Event{}, false
	}
	evt := flow.Event{
		UserID:    msg.From,
		MessageID: msg.ID,
		Channel:   "wa",
	}
	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return flow.Event{}, false
		}
		evt.Kind = flow.KindText
		evt.Body = msg.Text.Body
	case "interactive":
		if msg.Interactive == nil || msg.Interactive.ButtonReply == nil {
			return flow.Event{}, false
		}
		// Button replies re-enter the flow as plain text answers.
		evt.Kind = flow.KindText
		evt.Body = msg.Interactive.ButtonReply.ID
	case "document":
		if msg.Document == nil {
			return flow.Event{}, false
		}
		evt.Kind = flow.KindDocument
		evt.Body = msg.Document.Caption
		evt.MediaRef = msg.Document.ID
	case "image":
		if msg.Image == nil {
			return flow.Event{}, false
		}
		evt.Kind = flow.KindImage
		evt.Body = msg.Image.Caption
		evt.MediaRef = msg.Image.ID
	default:
		return flow.Event{}, false
	}
	return evt, true
}
