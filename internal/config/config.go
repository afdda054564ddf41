package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDataDir = "TRACKRA_DATA_DIR"
	EnvBaseURL = "TRACKRA_BASE_URL"

	FileName = "config.yml"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port"`
		DataDir string `yaml:"data_dir" json:"dataDir"`
	} `yaml:"app" json:"app"`

	API struct {
		BaseURL                string `yaml:"base_url" json:"baseUrl"`
		RequestTimeoutSeconds  int    `yaml:"request_timeout_seconds" json:"requestTimeoutSeconds"`
		ResourceTimeoutSeconds int    `yaml:"resource_timeout_seconds" json:"resourceTimeoutSeconds"`
	} `yaml:"api" json:"api"`

	Polling struct {
		NotificationsSeconds int `yaml:"notifications_seconds" json:"notificationsSeconds"`
	} `yaml:"polling" json:"polling"`

	Reminders struct {
		Enabled   bool `yaml:"enabled" json:"enabled"`
		LeadHours int  `yaml:"lead_hours" json:"leadHours"`
	} `yaml:"reminders" json:"reminders"`

	Keychain struct {
		Service string `yaml:"service" json:"service"`
	} `yaml:"keychain" json:"keychain"`

	Posting struct {
		RequestsPerSecond float64 `yaml:"requests_per_second" json:"requestsPerSecond"`
		Burst             int     `yaml:"burst" json:"burst"`
		TimeoutSeconds    int     `yaml:"timeout_seconds" json:"timeoutSeconds"`
	} `yaml:"posting" json:"posting"`
}

func Default() Config {
	var cfg Config
	cfg.App.Port = 38472
	cfg.API.BaseURL = "https://script.google.com/macros/s/AKfycbwMp-NQ3-SlnrdIQMboGLKjxX_YmLdOTL9dC2fUy65ekFBtnfwpslP1IIYE5u8VBUrB/exec"
	cfg.API.RequestTimeoutSeconds = 30
	cfg.API.ResourceTimeoutSeconds = 60
	cfg.Polling.NotificationsSeconds = 300
	cfg.Reminders.Enabled = true
	cfg.Reminders.LeadHours = 24
	cfg.Keychain.Service = "co.kamy.Trackra"
	cfg.Posting.RequestsPerSecond = 1.0
	cfg.Posting.Burst = 2
	cfg.Posting.TimeoutSeconds = 15
	return cfg
}

// Load reads path on top of Default, so keys missing from the file keep
// their defaults, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	ApplyEnv(&cfg)
	return cfg, nil
}

func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		cfg.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		cfg.App.DataDir = v
	}
}

// DataDir is TRACKRA_DATA_DIR when set, otherwise Trackra under the user
// config directory.
func DataDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		return v, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "Trackra"), nil
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeoutSeconds) * time.Second
}

func (c Config) ResourceTimeout() time.Duration {
	return time.Duration(c.API.ResourceTimeoutSeconds) * time.Second
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.NotificationsSeconds) * time.Second
}

func (c Config) ReminderLead() time.Duration {
	return time.Duration(c.Reminders.LeadHours) * time.Hour
}

func (c Config) PostingTimeout() time.Duration {
	return time.Duration(c.Posting.TimeoutSeconds) * time.Second
}

// Current reads the live config held in v.
func Current(v *atomic.Value) Config {
	if cfg, ok := v.Load().(Config); ok {
		return cfg
	}
	return Default()
}
