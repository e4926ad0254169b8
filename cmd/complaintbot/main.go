package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"complaintbot/complaint"
	"complaintbot/core/bootstrap"
	"complaintbot/core/config"
	"complaintbot/core/logger"
	"complaintbot/core/telegram"
	"complaintbot/core/whatsapp"
	"complaintbot/flow"
	"complaintbot/pdf"
	"complaintbot/server"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := run(); err != nil {
		log.Fatalf("complaintbot: %v", err)
	}
}

func run() error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	log.Printf("loading config: %s", cfgPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	startedAt := time.Now()
	boot, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		return err
	}
	defer boot.DB.Close()
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	store := complaint.NewStore(boot.DB)
	renderer, err := pdf.New(cfg.Uploads.Dir, cfg.HTTP.PublicURL)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var messenger flow.Messenger
	var media flow.MediaResolver
	var tgBot *telegram.Bot
	switch cfg.Channel {
	case config.ChannelWhatsApp:
		wa := whatsapp.NewClient(cfg.WhatsApp, cfg.Uploads.Dir, cfg.HTTP.PublicURL)
		messenger, media = wa, wa
	case config.ChannelTelegram:
		tgBot, err = telegram.New(cfg.Telegram, cfg.Uploads.Dir, cfg.HTTP.PublicURL)
		if err != nil {
			return err
		}
		messenger, media = tgBot, tgBot
	default:
		return fmt.Errorf("unknown channel %q", cfg.Channel)
	}

	engine, err := flow.New(flow.Options{
		Store:     store,
		Messenger: messenger,
		Media:     media,
		Renderer:  renderer,
		Entry:     flow.EntryMode(cfg.Flow.Entry),
		PortalURL: cfg.Flow.PortalURL,
	})
	if err != nil {
		return err
	}

	logger.L.With("component", "app").Info("app ready",
		slog.String("event", "ready"),
		slog.String("channel", cfg.Channel),
		slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
	)

	switch cfg.Channel {
	case config.ChannelWhatsApp:
		srv := server.New(cfg.HTTP, cfg.WhatsApp, cfg.Uploads.Dir, engine)
		err = srv.Start(ctx)
	case config.ChannelTelegram:
		err = tgBot.Run(ctx, engine)
	}

	logger.L.With("component", "app").Info("shutting down...",
		slog.String("event", "shutdown"),
	)
	return err
}
