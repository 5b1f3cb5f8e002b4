package notify

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config is the notification content and transport configuration. Values come
// from notify.yaml (path overridable via NOTIFY_CONFIG) with env overrides on
// top, so deployments can retarget the base URL without a config file edit.
type Config struct {
	BaseURL   string `yaml:"base_url"`
	Subject   string `yaml:"subject"`
	FromEmail string `yaml:"from_email"`

	Mailer struct {
		Provider string `yaml:"provider"` // "mailgun" or "console"
		Domain   string `yaml:"domain"`
	} `yaml:"mailer"`
}

func defaultConfig() Config {
	cfg := Config{
		BaseURL:   "https://atlas.opendataatlas.org",
		Subject:   "New notifications from locations you follow",
		FromEmail: "notifications@opendataatlas.org",
	}
	cfg.Mailer.Provider = "console"
	return cfg
}

// LoadConfig reads path (missing file is fine, defaults apply) and layers
// environment overrides on top.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = "notify.yaml"
	}
	raw, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if v := os.Getenv("NOTIFY_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("NOTIFY_SUBJECT"); v != "" {
		cfg.Subject = v
	}
	if v := os.Getenv("NOTIFY_FROM_EMAIL"); v != "" {
		cfg.FromEmail = v
	}
	if v := os.Getenv("MAILER_PROVIDER"); v != "" {
		cfg.Mailer.Provider = v
	}
	if v := os.Getenv("MAILGUN_DOMAIN"); v != "" {
		cfg.Mailer.Domain = v
	}

	return cfg, nil
}
