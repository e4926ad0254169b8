// Package telegram adapts the conversation engine to Telegram via long
// polling. Chat ids become the engine's user ids, inline keyboards carry
// the flow's reply buttons and received files are mirrored into the
// uploads directory.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"complaintbot/core/config"
	"complaintbot/core/logger"
	"complaintbot/core/netutil"
	"complaintbot/flow"
)

const defaultLongPollTimeout = 10

// TurnHandler runs one conversation turn for a normalized event.
type TurnHandler interface {
	HandleEvent(ctx context.Context, evt flow.Event) error
}

// Bot is the Telegram channel: it feeds inbound updates to the engine and
// implements the engine's Messenger and MediaResolver collaborators.
type Bot struct {
	bot        *tele.Bot
	uploadsDir string
	publicURL  string
}

// New connects to the Bot API using a long poller.
func New(cfg config.TelegramConfig, uploadsDir, publicURL string) (*Bot, error) {
	timeoutSec := cfg.LongPollTimeoutSeconds
	if timeoutSec <= 0 {
		timeoutSec = defaultLongPollTimeout
	}
	settings := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: time.Duration(timeoutSec) * time.Second},
		Client: netutil.BuildHTTPClient(),
	}
	start := time.Now()
	bot, err := tele.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	logger.TG.Info("polling mode",
		slog.String("event", "mode"),
		slog.String("mode", "polling"),
		slog.Int("timeout_seconds", timeoutSec),
		slog.Duration("duration", logger.Took(start)),
	)
	return &Bot{
		bot:        bot,
		uploadsDir: uploadsDir,
		publicURL:  strings.TrimRight(publicURL, "/"),
	}, nil
}

// Run registers the update handlers and polls until ctx is done.
func (b *Bot) Run(ctx context.Context, turns TurnHandler) error {
	relay := func(kind flow.EventKind) tele.HandlerFunc {
		return func(c tele.Context) error {
			evt, ok := normalizeUpdate(c, kind)
			if !ok {
				return nil
			}
			if err := turns.HandleEvent(ctx, evt); err != nil {
				logger.TG.Error("turn failed",
					slog.String("event", "tg.update"),
					slog.String("status", "error"),
					slog.String("user_id", evt.UserID),
					slog.Any("err", err),
				)
			}
			return nil
		}
	}

	b.bot.Handle(tele.OnText, relay(flow.KindText))
	b.bot.Handle(tele.OnDocument, relay(flow.KindDocument))
	b.bot.Handle(tele.OnPhoto, relay(flow.KindImage))
	b.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		defer func() { _ = c.Respond() }()
		evt, ok := normalizeUpdate(c, flow.KindText)
		if !ok {
			return nil
		}
		if err := turns.HandleEvent(ctx, evt); err != nil {
			logger.TG.Error("turn failed",
				slog.String("event", "tg.update"),
				slog.String("status", "error"),
				slog.String("user_id", evt.UserID),
				slog.Any("err", err),
			)
		}
		return nil
	})

	done := make(chan struct{})
	go func() {
		b.bot.Start()
		close(done)
	}()

	select {
	case <-ctx.Done():
		b.bot.Stop()
		<-done
	case <-done:
	}
	return nil
}

// normalizeUpdate flattens a telebot update into an engine event.
func normalizeUpdate(c tele.Context, kind flow.EventKind) (flow.Event, bool) {
	chat := c.Chat()
	if chat == nil {
		return flow.Event{}, false
	}
	evt := flow.Event{
		UserID:  strconv.FormatInt(chat.ID, 10),
		Kind:    kind,
		Channel: "tg",
	}
	if msg := c.Message(); msg != nil {
		evt.MessageID = strconv.Itoa(msg.ID)
		evt.Body = msg.Text
		if msg.Caption != "" {
			evt.Body = msg.Caption
		}
		if msg.Document != nil {
			evt.MediaRef = msg.Document.FileID
		}
		if msg.Photo != nil {
			evt.MediaRef = msg.Photo.FileID
		}
	}
	if cb := c.Callback(); cb != nil {
		evt.Body = callbackAnswer(cb.Data)
	}
	return evt, true
}

// callbackAnswer extracts the button id from telebot callback data, which
// arrives as "\f<unique>" or "\f<unique>|<payload>".
func callbackAnswer(data string) string {
	data = strings.TrimPrefix(data, "\f")
	if i := strings.IndexByte(data, '|'); i >= 0 {
		data = data[:i]
	}
	return strings.TrimSpace(data)
}

func chatRecipient(to string) (tele.Recipient, error) {
	id, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram: bad chat id %q: %w", to, err)
	}
	return tele.ChatID(id), nil
}

// SendText delivers a plain text message.
func (b *Bot) SendText(_ context.Context, to, body string) error {
	rcp, err := chatRecipient(to)
	if err != nil {
		return err
	}
	if _, err := b.bot.Send(rcp, body); err != nil {
		return fmt.Errorf("telegram: send text: %w", err)
	}
	return nil
}

// SendButtons delivers a message with an inline keyboard; pressed buttons
// come back as callbacks carrying the button id.
func (b *Bot) SendButtons(_ context.Context, to, body string, buttons []flow.Button) error {
	rcp, err := chatRecipient(to)
	if err != nil {
		return err
	}
	if _, err := b.bot.Send(rcp, body, buttonsMarkup(buttons)); err != nil {
		return fmt.Errorf("telegram: send buttons: %w", err)
	}
	return nil
}

func buttonsMarkup(buttons []flow.Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	row := make(tele.Row, 0, len(buttons))
	for _, btn := range buttons {
		row = append(row, markup.Data(btn.Title, btn.ID))
	}
	markup.Inline(row)
	return markup
}

// SendDocument delivers the rendered report. URLs under our own uploads
// base are uploaded from disk so the bot works without a public host.
func (b *Bot) SendDocument(_ context.Context, to, url, filename, caption string) error {
	rcp, err := chatRecipient(to)
	if err != nil {
		return err
	}
	file := tele.FromURL(url)
	if strings.HasPrefix(url, b.publicURL+"/uploads/") {
		file = tele.FromDisk(filepath.Join(b.uploadsDir, path.Base(url)))
	}
	doc := &tele.Document{
		File:     file,
		FileName: filename,
		Caption:  caption,
	}
	if _, err := b.bot.Send(rcp, doc); err != nil {
		return fmt.Errorf("telegram: send document: %w", err)
	}
	return nil
}

// Resolve downloads a received file into the uploads directory and returns
// the URL it is served from.
func (b *Bot) Resolve(_ context.Context, mediaRef string) (string, error) {
	start := time.Now()
	file, err := b.bot.FileByID(mediaRef)
	if err != nil {
		return "", fmt.Errorf("telegram: file lookup: %w", err)
	}
	rc, err := b.bot.File(&file)
	if err != nil {
		return "", fmt.Errorf("telegram: file download: %w", err)
	}
	defer rc.Close()

	ext := path.Ext(file.FilePath)
	if ext == "" {
		ext = ".bin"
	}
	filename := safeFileName(mediaRef) + ext
	if err := os.MkdirAll(b.uploadsDir, 0o755); err != nil {
		return "", fmt.Errorf("telegram: create uploads dir: %w", err)
	}
	dst, err := os.Create(filepath.Join(b.uploadsDir, filename))
	if err != nil {
		return "", fmt.Errorf("telegram: create media file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, rc); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("telegram: write media file: %w", err)
	}

	logger.TG.Info("media resolved",
		slog.String("event", "tg.media"),
		slog.String("status", "ok"),
		slog.String("media_ref", mediaRef),
		slog.String("filename", filename),
		slog.Duration("duration", logger.Took(start)),
	)
	return b.publicURL + "/uploads/" + filename, nil
}

// safeFileName keeps telegram file ids usable as filenames: anything
// outside the id alphabet is mapped to '_'.
func safeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
