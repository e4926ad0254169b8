package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validWhatsAppConfig() *Config {
	return &Config{
		Channel: "whatsapp",
		WhatsApp: WhatsAppConfig{
			Token:         "tok",
			PhoneNumberID: "12345",
			VerifyToken:   "verify",
		},
		HTTP: HTTPConfig{Listen: "0.0.0.0", Port: 3000, PublicURL: "https://bot.example.com/"},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validWhatsAppConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Flow.Entry != EntryCategory {
		t.Errorf("entry default = %q, want %q", cfg.Flow.Entry, EntryCategory)
	}
	if cfg.WhatsApp.APIBase != "https://graph.facebook.com/v19.0" {
		t.Errorf("api_base default = %q", cfg.WhatsApp.APIBase)
	}
	if cfg.Uploads.Dir != "uploads" {
		t.Errorf("uploads dir default = %q", cfg.Uploads.Dir)
	}
	if cfg.HTTP.PublicURL != "https://bot.example.com" {
		t.Errorf("public_url not trimmed: %q", cfg.HTTP.PublicURL)
	}
}

func TestNormalizeRequiresWhatsAppCredentials(t *testing.T) {
	cfg := validWhatsAppConfig()
	cfg.WhatsApp.Token = ""
	if err := Normalize(cfg); err == nil {
		t.Error("missing whatsapp token accepted")
	}
}

func TestNormalizeRequiresPublicURLForWhatsApp(t *testing.T) {
	cfg := validWhatsAppConfig()
	cfg.HTTP.PublicURL = ""
	if err := Normalize(cfg); err == nil {
		t.Error("whatsapp channel without http.public_url accepted")
	}
}

func TestNormalizeRequiresPortalForMoneyLoss(t *testing.T) {
	cfg := validWhatsAppConfig()
	cfg.Flow.Entry = "money_loss"
	if err := Normalize(cfg); err == nil {
		t.Error("money_loss without portal_url accepted")
	}
	cfg.Flow.PortalURL = "https://cybercrime.gov.in"
	if err := Normalize(cfg); err != nil {
		t.Errorf("valid money_loss config rejected: %v", err)
	}
}

func TestNormalizeRejectsUnknownChannel(t *testing.T) {
	cfg := validWhatsAppConfig()
	cfg.Channel = "smoke-signals"
	if err := Normalize(cfg); err == nil {
		t.Error("unknown channel accepted")
	}
}

func TestNormalizeTelegramChannel(t *testing.T) {
	cfg := &Config{
		Channel:  "telegram",
		Telegram: TelegramConfig{Token: "123:abc"},
	}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	cfg.Telegram.Token = ""
	if err := Normalize(cfg); err == nil {
		t.Error("telegram channel without token accepted")
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
channel: whatsapp
flow:
  entry: category
whatsapp:
  token: tok
  phone_number_id: "12345"
  verify_token: verify
http:
  listen: 127.0.0.1
  port: 3000
  public_url: http://localhost:3000
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WhatsApp.PhoneNumberID != "12345" || cfg.HTTP.Port != 3000 {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing config file accepted")
	}
}
