package core

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return configPath
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "test-key")

	config, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != 8083 || config.Host != "0.0.0.0" {
		t.Errorf("Expected 0.0.0.0:8083, got %s", config.Address())
	}
	if config.StorageDirectory != "generated_images" {
		t.Errorf("Expected default storage directory, got %q", config.StorageDirectory)
	}
	if config.Generator.MaxRetries != 3 || config.Generator.BaseDelay != 2*time.Second || config.Generator.RateLimitDelay != 60*time.Second {
		t.Errorf("Unexpected retry defaults %+v", config.Generator)
	}
	if config.Generator.ModelLabel != "Gemini 2.5 Flash" {
		t.Errorf("Unexpected model label %q", config.Generator.ModelLabel)
	}
	if config.Generator.APIKey != "test-key" {
		t.Errorf("Expected API key from environment")
	}
	if !config.Generator.IsEnabled() {
		t.Error("Expected generation to be enabled by default")
	}
	if config.Metadata.Type != "json" || config.PostProcessing.Policy != "passthrough" {
		t.Errorf("Unexpected metadata/post-processing defaults: %+v %+v", config.Metadata, config.PostProcessing)
	}
}

func TestLoadConfig_Success(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "")
	configPath := writeConfig(t, `port: 9090
host: 127.0.0.1
storageDirectory: /tmp/images
thumbnailWidth: 200
logging:
  level: debug
  format: json
metadata:
  type: sqlite
  connectionString: ":memory:"
generator:
  provider: pollinations
  maxRetries: 5
  baseDelay: 500ms
  rateLimitDelay: 30s
  timeout: 2m
postProcessing:
  policy: fitpad
`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Address() != "127.0.0.1:9090" {
		t.Errorf("Expected 127.0.0.1:9090, got %s", config.Address())
	}
	if config.Generator.Provider != "pollinations" || config.Generator.MaxRetries != 5 {
		t.Errorf("Unexpected generator config %+v", config.Generator)
	}
	if config.Generator.BaseDelay != 500*time.Millisecond || config.Generator.Timeout != 2*time.Minute {
		t.Errorf("Unexpected durations %+v", config.Generator)
	}
	if config.Metadata.Type != "sqlite" || config.PostProcessing.Policy != "fitpad" {
		t.Errorf("Unexpected config %+v", config)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		apiKey      string
		errContains string
	}{
		{"Missing API key", "generator:\n  provider: gemini\n", "", APIKeyEnvVar},
		{"Unknown provider", "generator:\n  provider: dalle\n", "k", "generator.provider"},
		{"Unknown policy", "postProcessing:\n  policy: crop\n", "k", "policy"},
		{"Outpaint without fitpad", "postProcessing:\n  outpaint: true\n", "k", "fitpad"},
		{"Outpaint with pollinations", "generator:\n  provider: pollinations\npostProcessing:\n  policy: fitpad\n  outpaint: true\n", "", "not supported"},
		{"Unknown store", "metadata:\n  type: mongo\n", "k", "metadata.type"},
		{"Sqlite without connection", "metadata:\n  type: sqlite\n", "k", "connectionString"},
		{"Bad log level", "logging:\n  level: loud\n", "k", "log level"},
		{"Negative retries", "generator:\n  maxRetries: -1\n", "k", "maxRetries"},
		{"Bad port", "port: 70000\n", "k", "port"},
		{"Malformed yaml", "port: [\n", "k", "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(APIKeyEnvVar, tt.apiKey)
			config, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatalf("Expected error, got config %+v", config)
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Expected error containing %q, got %v", tt.errContains, err)
			}
		})
	}
}

func TestLoadConfig_DisabledGeneratorNeedsNoKey(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "")
	config, err := LoadConfig(writeConfig(t, "generator:\n  enabled: false\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Generator.IsEnabled() {
		t.Error("Expected generation to be disabled")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Logging{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected info message to be filtered, got %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"key":"value"`) {
		t.Errorf("Expected JSON warn record, got %s", out)
	}
}
