package config

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	WhatsApp     WhatsAppConfig     `yaml:"whatsapp"`
	Conversation ConversationConfig `yaml:"conversation"`
	Push         PushConfig         `yaml:"push"`
	WorkerPool   WorkerPoolConfig   `yaml:"worker_pool"`
	Admin        AdminConfig        `yaml:"admin"`
}

// WorkerPoolConfig holds the configuration for the notification fan-out pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for the optional web push mirror channel.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// WhatsAppConfig holds the Cloud API credentials and webhook settings.
type WhatsAppConfig struct {
	APIURL         string        `yaml:"api_url"`
	Token          string        `yaml:"token"`
	PhoneNumberID  string        `yaml:"phone_number_id"`
	VerifyToken    string        `yaml:"verify_token"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
	HTTPProxy      string        `yaml:"http_proxy"`
}

// ConversationConfig tunes the chat flows.
type ConversationConfig struct {
	PageSize          int           `yaml:"page_size"`
	ContextTTLMinutes int           `yaml:"context_ttl_minutes"`
	ContextTTL        time.Duration `yaml:"-"`
	Timezone          string        `yaml:"timezone"`
}

// AdminConfig protects the provisioning endpoints.
type AdminConfig struct {
	Token string `yaml:"token"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyEnv lets secrets come from the environment instead of the YAML file.
func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"WHATSAPP_TOKEN":           &cfg.WhatsApp.Token,
		"WHATSAPP_PHONE_NUMBER_ID": &cfg.WhatsApp.PhoneNumberID,
		"WHATSAPP_VERIFY_TOKEN":    &cfg.WhatsApp.VerifyToken,
		"DATABASE_DSN":             &cfg.Database.DSN,
		"ADMIN_TOKEN":              &cfg.Admin.Token,
		"VAPID_PUBLIC_KEY":         &cfg.Push.PublicKey,
		"VAPID_PRIVATE_KEY":        &cfg.Push.PrivateKey,
	}
	for key, target := range overrides {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.WhatsApp.APIURL == "" {
		cfg.WhatsApp.APIURL = "https://graph.facebook.com/v22.0"
	}
	if cfg.WhatsApp.TimeoutSeconds <= 0 {
		cfg.WhatsApp.TimeoutSeconds = 10
	}
	cfg.WhatsApp.Timeout = time.Duration(cfg.WhatsApp.TimeoutSeconds) * time.Second

	if cfg.Conversation.PageSize <= 0 || cfg.Conversation.PageSize > 7 {
		// 7 lot rows + prev + next + back fill the 10-row list limit.
		cfg.Conversation.PageSize = 7
	}
	if cfg.Conversation.ContextTTLMinutes <= 0 {
		cfg.Conversation.ContextTTLMinutes = 30
	}
	cfg.Conversation.ContextTTL = time.Duration(cfg.Conversation.ContextTTLMinutes) * time.Minute
	if cfg.Conversation.Timezone == "" {
		cfg.Conversation.Timezone = "America/Bogota"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		logrus.Warn("worker_pool.size is not set or invalid; defaulting to 4")
		cfg.WorkerPool.Size = 4
	}
}
