// Package whatsapp implements the WhatsApp Cloud API channel: outbound
// messages, inbound webhook payload parsing and media retrieval.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"complaintbot/core/config"
	"complaintbot/core/logger"
	"complaintbot/core/netutil"
	"complaintbot/flow"
)

var bearerRe = regexp.MustCompile(`Bearer\s+[A-Za-z0-9._\-]+`)

// sanitizeErrorMessage prevents accidental leakage of the access token in logs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return bearerRe.ReplaceAllString(err.Error(), "Bearer <redacted>")
}

// Client talks to the Cloud API for one business phone number. It
// implements the engine's Messenger and MediaResolver collaborators.
type Client struct {
	apiBase       string
	phoneNumberID string
	token         string
	httpc         *http.Client

	uploadsDir string
	publicURL  string
}

// NewClient wires a Cloud API client from the channel config. uploadsDir
// and publicURL are where resolved media lands and how it is served back.
func NewClient(cfg config.WhatsAppConfig, uploadsDir, publicURL string) *Client {
	return &Client{
		apiBase:       strings.TrimRight(cfg.APIBase, "/"),
		phoneNumberID: cfg.PhoneNumberID,
		token:         cfg.Token,
		httpc:         netutil.BuildHTTPClient(),
		uploadsDir:    uploadsDir,
		publicURL:     strings.TrimRight(publicURL, "/"),
	}
}

type textPayload struct {
	Body string `json:"body"`
}

type buttonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type interactiveButton struct {
	Type  string      `json:"type"`
	Reply buttonReply `json:"reply"`
}

type interactivePayload struct {
	Type   string `json:"type"`
	Body   struct {
		Text string `json:"text"`
	} `json:"body"`
	Action struct {
		Buttons []interactiveButton `json:"buttons"`
	} `json:"action"`
}

type documentPayload struct {
	Link     string `json:"link"`
	Filename string `json:"filename"`
	Caption  string `json:"caption,omitempty"`
}

type outboundMessage struct {
	MessagingProduct string              `json:"messaging_product"`
	To               string              `json:"to"`
	Type             string              `json:"type"`
	Text             *textPayload        `json:"text,omitempty"`
	Interactive      *interactivePayload `json:"interactive,omitempty"`
	Document         *documentPayload    `json:"document,omitempty"`
}

// SendText delivers a plain text message.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	msg := outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &textPayload{Body: body},
	}
	return c.send(ctx, "text", msg)
}

// SendButtons delivers an interactive message with up to three reply buttons.
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []flow.Button) error {
	interactive := &interactivePayload{Type: "button"}
	interactive.Body.Text = body
	for _, b := range buttons {
		interactive.Action.Buttons = append(interactive.Action.Buttons, interactiveButton{
			Type:  "reply",
			Reply: buttonReply{ID: b.ID, Title: b.Title},
		})
	}
	msg := outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive:      interactive,
	}
	return c.send(ctx, "interactive", msg)
}

// SendDocument delivers a document hosted at a public URL.
func (c *Client) SendDocument(ctx context.Context, to, url, filename, caption string) error {
	msg := outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "document",
		Document:         &documentPayload{Link: url, Filename: filename, Caption: caption},
	}
	return c.send(ctx, "document", msg)
}

func (c *Client) send(ctx context.Context, kind string, msg outboundMessage) error {
	start := time.Now()
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("whatsapp: encode %s message: %w", kind, err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", c.apiBase, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		logger.WA.Error("send failed",
			slog.String("event", "wa.send"),
			slog.String("status", "error"),
			slog.String("msg_kind", kind),
			slog.String("err_kind", netutil.Classify(err)),
			slog.String("err", sanitizeErrorMessage(err)),
		)
		return fmt.Errorf("whatsapp: send %s: %s", kind, sanitizeErrorMessage(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		logger.WA.Error("send rejected",
			slog.String("event", "wa.send"),
			slog.String("status", "error"),
			slog.String("msg_kind", kind),
			slog.Int("http_code", resp.StatusCode),
			slog.String("err", logger.SanitizeLimit(string(detail), 300)),
		)
		return fmt.Errorf("whatsapp: send %s: http %d", kind, resp.StatusCode)
	}

	logger.WA.Debug("message sent",
		slog.String("event", "wa.send"),
		slog.String("status", "ok"),
		slog.String("msg_kind", kind),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}
