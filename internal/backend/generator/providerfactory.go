package generator

import (
	"fmt"
	"net/http"
	"time"
)

const (
	ProviderGemini       = "gemini"
	ProviderPollinations = "pollinations"
)

// ProviderOptions selects and configures a provider.
type ProviderOptions struct {
	Name     string
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// NewProvider creates the provider named in options. The returned provider performs a
// single attempt per call; wrap it with NewRetrier for retries.
func NewProvider(options ProviderOptions) (Provider, error) {
	client := &http.Client{Timeout: options.Timeout}

	switch options.Name {
	case ProviderGemini, "":
		if options.APIKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		return NewGeminiProvider(client, options.Endpoint, options.Model, options.APIKey), nil
	case ProviderPollinations:
		return NewPollinationsProvider(client, options.Endpoint), nil
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", options.Name)
	}
}

// SupportsReferenceImages reports whether the named provider accepts reference images.
func SupportsReferenceImages(name string) bool {
	return name == ProviderGemini || name == ""
}
