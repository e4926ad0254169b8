package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coredatabase "complaintbot/core/database"
)

// Channel names accepted by Normalize.
const (
	// ChannelWhatsApp selects the WhatsApp Cloud API transport.
	ChannelWhatsApp = "whatsapp"
	// ChannelTelegram selects the Telegram long-poll transport.
	ChannelTelegram = "telegram"
)

// Entry gate names accepted by Normalize.
const (
	// EntryCategory starts the intake with a freeform category question.
	EntryCategory = "category"
	// EntryMoneyLoss starts the intake with the money-loss yes/no gate.
	EntryMoneyLoss = "money_loss"
)

// FlowConfig selects the conversation entry gate and related references.
type FlowConfig struct {
	Entry string `yaml:"entry" envconfig:"FLOW_ENTRY"`
	// PortalURL is sent to users declining the money-loss gate.
	PortalURL string `yaml:"portal_url" envconfig:"FLOW_PORTAL_URL"`
}

// WhatsAppConfig holds WhatsApp Cloud API credentials and endpoints.
type WhatsAppConfig struct {
	Token         string `yaml:"token" envconfig:"WA_TOKEN"`
	PhoneNumberID string `yaml:"phone_number_id" envconfig:"WA_PHONE_NUMBER_ID"`
	VerifyToken   string `yaml:"verify_token" envconfig:"WA_VERIFY_TOKEN"`
	APIBase       string `yaml:"api_base" envconfig:"WA_API_BASE"`
}

// TelegramConfig holds Telegram bot settings for the alternative channel.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// HTTPConfig specifies the webhook/artifact listener settings.
type HTTPConfig struct {
	Listen string `yaml:"listen" envconfig:"HTTP_LISTEN"`
	Port   int    `yaml:"port" envconfig:"HTTP_PORT"`
	// PublicURL prefixes generated /uploads links sent back to users.
	PublicURL string `yaml:"public_url" envconfig:"HTTP_PUBLIC_URL"`
}

// UploadsConfig locates the artifact directory served under /uploads.
type UploadsConfig struct {
	Dir string `yaml:"dir" envconfig:"UPLOADS_DIR"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
	File   string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// Config aggregates the full application configuration.
type Config struct {
	Channel  string              `yaml:"channel" envconfig:"CHANNEL"`
	Flow     FlowConfig          `yaml:"flow"`
	WhatsApp WhatsAppConfig      `yaml:"whatsapp"`
	Telegram TelegramConfig      `yaml:"telegram"`
	HTTP     HTTPConfig          `yaml:"http"`
	Uploads  UploadsConfig       `yaml:"uploads"`
	Database coredatabase.Config `yaml:"database"`
	Logging  LoggingConfig       `yaml:"logging"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	ch := strings.ToLower(strings.TrimSpace(cfg.Channel))
	if ch == "" {
		ch = ChannelWhatsApp
	}
	switch ch {
	case ChannelWhatsApp:
		if strings.TrimSpace(cfg.WhatsApp.Token) == "" {
			return fmt.Errorf("whatsapp.token is required when channel is 'whatsapp'")
		}
		if strings.TrimSpace(cfg.WhatsApp.PhoneNumberID) == "" {
			return fmt.Errorf("whatsapp.phone_number_id is required when channel is 'whatsapp'")
		}
		if strings.TrimSpace(cfg.WhatsApp.VerifyToken) == "" {
			return fmt.Errorf("whatsapp.verify_token is required when channel is 'whatsapp'")
		}
		if strings.TrimSpace(cfg.HTTP.Listen) == "" {
			return fmt.Errorf("http.listen is required when channel is 'whatsapp'")
		}
		if cfg.HTTP.Port <= 0 {
			return fmt.Errorf("http.port must be > 0 when channel is 'whatsapp'")
		}
		if strings.TrimSpace(cfg.HTTP.PublicURL) == "" {
			return fmt.Errorf("http.public_url is required when channel is 'whatsapp'")
		}
	case ChannelTelegram:
		if strings.TrimSpace(cfg.Telegram.Token) == "" {
			return fmt.Errorf("telegram.token is required when channel is 'telegram'")
		}
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid channel %q; allowed: whatsapp, telegram", cfg.Channel)
	}
	cfg.Channel = ch

	entry := strings.ToLower(strings.TrimSpace(cfg.Flow.Entry))
	if entry == "" {
		entry = EntryCategory
	}
	switch entry {
	case EntryCategory, EntryMoneyLoss:
	default:
		return fmt.Errorf("invalid flow.entry %q; allowed: category, money_loss", cfg.Flow.Entry)
	}
	cfg.Flow.Entry = entry

	if entry == EntryMoneyLoss && strings.TrimSpace(cfg.Flow.PortalURL) == "" {
		return fmt.Errorf("flow.portal_url is required when flow.entry is 'money_loss'")
	}

	if strings.TrimSpace(cfg.WhatsApp.APIBase) == "" {
		cfg.WhatsApp.APIBase = "https://graph.facebook.com/v19.0"
	}
	cfg.WhatsApp.APIBase = strings.TrimRight(cfg.WhatsApp.APIBase, "/")

	if strings.TrimSpace(cfg.Uploads.Dir) == "" {
		cfg.Uploads.Dir = "uploads"
	}
	cfg.HTTP.PublicURL = strings.TrimRight(strings.TrimSpace(cfg.HTTP.PublicURL), "/")

	return nil
}
