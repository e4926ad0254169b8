// Package server exposes the webhook and uploads HTTP surface.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"complaintbot/core/config"
	"complaintbot/core/logger"
	"complaintbot/core/whatsapp"
	"complaintbot/flow"
)

// maxWebhookBody caps inbound webhook payload size.
const maxWebhookBody = 1 << 20

// Server serves the WhatsApp webhook endpoints and rendered artifacts.
type Server struct {
	echo        *echo.Echo
	engine      *flow.Engine
	verifyToken string
	uploadsDir  string
	listen      string
}

// New wires the routes. engine handles conversation turns synchronously
// inside the webhook request.
func New(cfg config.HTTPConfig, wa config.WhatsAppConfig, uploadsDir string, engine *flow.Engine) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	s := &Server{
		echo:        e,
		engine:      engine,
		verifyToken: wa.VerifyToken,
		uploadsDir:  uploadsDir,
		listen:      fmt.Sprintf("%s:%d", cfg.Listen, cfg.Port),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.health)
	s.echo.GET("/webhook", s.verifyWebhook)
	s.echo.POST("/webhook", s.receiveWebhook)
	s.echo.GET("/uploads/:filename", s.serveUpload)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// verifyWebhook answers the Cloud API subscription handshake: echo the
// challenge when the verify token matches, 403 otherwise.
func (s *Server) verifyWebhook(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	if mode == "subscribe" && token == s.verifyToken {
		return c.String(http.StatusOK, challenge)
	}
	return c.String(http.StatusForbidden, "Verification token mismatch")
}

// receiveWebhook runs the conversation turn for each message in the
// payload. The response is always 200 so the Cloud API does not redeliver;
// turn failures are logged and surfaced to the user inside the turn.
func (s *Server) receiveWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"status": "unreadable"})
	}
	events, err := whatsapp.ParseEvents(body)
	if err != nil {
		logger.HTTP.Warn("webhook payload rejected",
			slog.String("event", "http.webhook"),
			slog.String("status", "error"),
			slog.Any("err", err),
		)
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	ctx := c.Request().Context()
	for _, evt := range events {
		if err := s.engine.HandleEvent(ctx, evt); err != nil {
			logger.HTTP.Error("turn failed",
				slog.String("event", "http.webhook"),
				slog.String("status", "error"),
				slog.String("user_id", evt.UserID),
				slog.Any("err", err),
			)
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}

// serveUpload returns a rendered artifact or stored attachment. Only plain
// filenames are accepted; anything that resolves outside the uploads
// directory is rejected.
func (s *Server) serveUpload(c echo.Context) error {
	filename := c.Param("filename")
	if filename == "" || filename != filepath.Base(filename) ||
		strings.Contains(filename, "..") || strings.HasPrefix(filename, ".") {
		return c.String(http.StatusBadRequest, "invalid filename")
	}
	return c.File(filepath.Join(s.uploadsDir, filename))
}

// Start blocks until ctx is canceled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.listen); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	logger.HTTP.Info("server listening",
		slog.String("event", "http.start"),
		slog.String("status", "ok"),
		slog.String("listen", s.listen),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

// requestLogger emits one structured line per request in the service's
// log schema instead of echo's own format.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			logger.HTTP.Info("request",
				slog.String("event", "http.request"),
				slog.String("status", statusLabel(status)),
				slog.String("path", c.Request().Method+" "+c.Request().URL.Path),
				slog.Int("http_code", status),
				slog.Duration("duration", logger.Took(start)),
			)
			return err
		}
	}
}

func statusLabel(code int) string {
	if code >= 400 {
		return "error"
	}
	return "ok"
}
