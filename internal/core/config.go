package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/jo-hoe/goimagine/internal/backend/database"
	"github.com/jo-hoe/goimagine/internal/backend/generator"
	"github.com/jo-hoe/goimagine/internal/backend/imageprocessing"
	"gopkg.in/yaml.v3"
)

// APIKeyEnvVar holds the Gemini API key. The key is never read from the config file.
const APIKeyEnvVar = "GEMINI_API_KEY"

const (
	DefaultPort             = 8083
	DefaultHost             = "0.0.0.0"
	DefaultStorageDirectory = "generated_images"
	DefaultModelLabel       = "Gemini 2.5 Flash"
	DefaultThumbnailWidth   = 320
	DefaultTimeout          = 60 * time.Second
)

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Metadata struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
	Strict           bool   `yaml:"strict"`
	KeyPrefix        string `yaml:"keyPrefix"`
}

type Generator struct {
	// Enabled defaults to true; a disabled generator still serves the gallery.
	Enabled        *bool         `yaml:"enabled"`
	Provider       string        `yaml:"provider"`
	Endpoint       string        `yaml:"endpoint"`
	Model          string        `yaml:"model"`
	ModelLabel     string        `yaml:"modelLabel"`
	MaxRetries     int           `yaml:"maxRetries"`
	BaseDelay      time.Duration `yaml:"baseDelay"`
	RateLimitDelay time.Duration `yaml:"rateLimitDelay"`
	Timeout        time.Duration `yaml:"timeout"`
	APIKey         string        `yaml:"-"`
}

// IsEnabled reports whether image generation is switched on.
func (g Generator) IsEnabled() bool {
	return g.Enabled == nil || *g.Enabled
}

type PostProcessing struct {
	Policy   string `yaml:"policy"`
	Outpaint bool   `yaml:"outpaint"`
}

type ServiceConfig struct {
	Port             int            `yaml:"port"`
	Host             string         `yaml:"host"`
	StorageDirectory string         `yaml:"storageDirectory"`
	ThumbnailWidth   int            `yaml:"thumbnailWidth"`
	Logging          Logging        `yaml:"logging"`
	Metadata         Metadata       `yaml:"metadata"`
	Generator        Generator      `yaml:"generator"`
	PostProcessing   PostProcessing `yaml:"postProcessing"`
}

// Address returns host:port for the HTTP listener.
func (c *ServiceConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *ServiceConfig {
	config := &ServiceConfig{}
	config.applyDefaults()
	return config
}

// LoadConfig loads configuration from the specified YAML file. A missing file yields the
// defaults. The API key is taken from the environment.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	var config ServiceConfig

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	config.applyDefaults()
	config.Generator.APIKey = strings.TrimSpace(os.Getenv(APIKeyEnvVar))

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func (c *ServiceConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.StorageDirectory == "" {
		c.StorageDirectory = DefaultStorageDirectory
	}
	if c.ThumbnailWidth == 0 {
		c.ThumbnailWidth = DefaultThumbnailWidth
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Metadata.Type == "" {
		c.Metadata.Type = database.StoreTypeJSON
	}
	if c.Generator.Provider == "" {
		c.Generator.Provider = generator.ProviderGemini
	}
	if c.Generator.ModelLabel == "" {
		c.Generator.ModelLabel = DefaultModelLabel
	}
	if c.Generator.MaxRetries == 0 {
		c.Generator.MaxRetries = generator.DefaultMaxAttempts
	}
	if c.Generator.BaseDelay == 0 {
		c.Generator.BaseDelay = generator.DefaultBaseDelay
	}
	if c.Generator.RateLimitDelay == 0 {
		c.Generator.RateLimitDelay = generator.DefaultRateLimitDelay
	}
	if c.Generator.Timeout == 0 {
		c.Generator.Timeout = DefaultTimeout
	}
	if c.PostProcessing.Policy == "" {
		c.PostProcessing.Policy = string(imageprocessing.PolicyPassthrough)
	}
}

func (c *ServiceConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.ThumbnailWidth < 0 {
		return fmt.Errorf("thumbnailWidth must not be negative, got %d", c.ThumbnailWidth)
	}
	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	switch c.Metadata.Type {
	case database.StoreTypeJSON:
	case database.StoreTypeSQLite, database.StoreTypeRedis:
		if c.Metadata.ConnectionString == "" {
			return fmt.Errorf("metadata.connectionString is required for the %s store", c.Metadata.Type)
		}
	default:
		return fmt.Errorf("unsupported metadata.type: %s", c.Metadata.Type)
	}

	if c.Generator.Provider != generator.ProviderGemini && c.Generator.Provider != generator.ProviderPollinations {
		return fmt.Errorf("unsupported generator.provider: %s", c.Generator.Provider)
	}
	if c.Generator.MaxRetries < 1 {
		return fmt.Errorf("generator.maxRetries must be at least 1, got %d", c.Generator.MaxRetries)
	}
	if c.Generator.BaseDelay < 0 || c.Generator.RateLimitDelay < 0 || c.Generator.Timeout < 0 {
		return fmt.Errorf("generator delays and timeout must not be negative")
	}
	if c.Generator.IsEnabled() && c.Generator.Provider == generator.ProviderGemini && c.Generator.APIKey == "" {
		return fmt.Errorf("%s is not set; it is required by the gemini provider", APIKeyEnvVar)
	}

	if _, err := imageprocessing.ParsePolicy(c.PostProcessing.Policy); err != nil {
		return err
	}
	if c.PostProcessing.Outpaint {
		if c.PostProcessing.Policy != string(imageprocessing.PolicyFitPad) {
			return fmt.Errorf("postProcessing.outpaint requires the fitpad policy")
		}
		if !generator.SupportsReferenceImages(c.Generator.Provider) {
			return fmt.Errorf("postProcessing.outpaint is not supported by the %s provider", c.Generator.Provider)
		}
		if !c.Generator.IsEnabled() {
			return fmt.Errorf("postProcessing.outpaint requires generation to be enabled")
		}
	}
	return nil
}
