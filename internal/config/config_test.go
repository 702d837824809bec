package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testConfig = `port: "8080"
databaseURL: "postgres://localhost/homeline"
logLevel: "debug"
publicBaseURL: "https://sms.example.com"
redisAddr: "localhost:6379"
classifierAPIKey: "file-key"
classifierModel: "gemini-2.0-flash"
mapsAPIKey: "maps-key"
smsAccountSID: "AC123"
smsAuthToken: "token"
smsFromNumber: "+15559999999"
inboundRateLimitPerMinute: 10
replyMaxLen: 1600
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.ClassifierModel != "gemini-2.0-flash" {
		t.Fatalf("bad config: %+v", cfg)
	}
	if cfg.InboundRateLimitPerMinute != 10 || cfg.ReplyMaxLen != 1600 {
		t.Fatalf("numeric fields not parsed: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CLASSIFIER_API_KEY", "env-key")
	t.Setenv("DATABASE_URL", "postgres://db.internal/homeline")

	cfg, err := Load(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ClassifierAPIKey != "env-key" {
		t.Fatalf("env should override file, got %q", cfg.ClassifierAPIKey)
	}
	if cfg.DatabaseURL != "postgres://db.internal/homeline" {
		t.Fatalf("env should override file, got %q", cfg.DatabaseURL)
	}
}

func TestLoadValidation(t *testing.T) {
	missingModel := `port: "8080"
databaseURL: "postgres://localhost/homeline"
redisAddr: "localhost:6379"
classifierAPIKey: "key"
mapsAPIKey: "maps-key"
smsAccountSID: "AC123"
smsAuthToken: "token"
smsFromNumber: "+15559999999"
`
	if _, err := Load(writeConfig(t, missingModel)); err == nil {
		t.Fatal("missing classifier model should fail validation")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file should fail")
	}
}
