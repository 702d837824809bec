package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port          string `yaml:"port"`
	DatabaseURL   string `yaml:"databaseURL"`
	LogLevel      string `yaml:"logLevel"`
	PublicBaseURL string `yaml:"publicBaseURL"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	ClassifierProvider string `yaml:"classifierProvider"`

	ClassifierAPIKey  string `yaml:"classifierAPIKey"`
	ClassifierModel   string `yaml:"classifierModel"`
	ClassifierBaseURL string `yaml:"classifierBaseURL"`

	MapsAPIKey  string `yaml:"mapsAPIKey"`
	MapsBaseURL string `yaml:"mapsBaseURL"`

	SMSAccountSID string `yaml:"smsAccountSID"`
	SMSAuthToken  string `yaml:"smsAuthToken"`
	SMSFromNumber string `yaml:"smsFromNumber"`
	SMSBaseURL    string `yaml:"smsBaseURL"`

	InboundRateLimitPerMinute int `yaml:"inboundRateLimitPerMinute"`
	ReplyMaxLen               int `yaml:"replyMaxLen"`
}

// Load reads config from path (defaults to config.yaml). Secrets can be
// overridden from the environment so they stay out of the file.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("CLASSIFIER_API_KEY"); v != "" {
		cfg.ClassifierAPIKey = v
	}
	if v := os.Getenv("MAPS_API_KEY"); v != "" {
		cfg.MapsAPIKey = v
	}
	if v := os.Getenv("SMS_ACCOUNT_SID"); v != "" {
		cfg.SMSAccountSID = v
	}
	if v := os.Getenv("SMS_AUTH_TOKEN"); v != "" {
		cfg.SMSAuthToken = v
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required (set in config.yaml or REDIS_ADDR)")
	}
	if cfg.ClassifierProvider != "" && cfg.ClassifierProvider != "gemini" {
		return fmt.Errorf("config: unsupported classifier provider %q", cfg.ClassifierProvider)
	}
	if cfg.ClassifierAPIKey == "" {
		return errors.New("config: classifierAPIKey is required (set in config.yaml or CLASSIFIER_API_KEY)")
	}
	if cfg.ClassifierModel == "" {
		return errors.New("config: classifierModel is required (set in config.yaml)")
	}
	if cfg.MapsAPIKey == "" {
		return errors.New("config: mapsAPIKey is required (set in config.yaml or MAPS_API_KEY)")
	}
	if cfg.SMSAccountSID == "" || cfg.SMSAuthToken == "" {
		return errors.New("config: smsAccountSID and smsAuthToken are required")
	}
	if cfg.SMSFromNumber == "" {
		return errors.New("config: smsFromNumber is required (set in config.yaml)")
	}
	return nil
}
