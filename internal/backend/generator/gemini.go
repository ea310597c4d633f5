package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel    = "gemini-2.5-flash-image-preview"

	retryInfoType = "type.googleapis.com/google.rpc.RetryInfo"
	// upper bound for error bodies kept in error messages
	maxErrorBodyBytes = 4096
)

// GeminiProvider calls the generateContent endpoint of the Gemini API.
type GeminiProvider struct {
	client   *http.Client
	endpoint string
	model    string
	apiKey   string
}

func NewGeminiProvider(client *http.Client, endpoint, model, apiKey string) *GeminiProvider {
	if endpoint == "" {
		endpoint = DefaultGeminiEndpoint
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{
		client:   client,
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		apiKey:   apiKey,
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	// older API revisions answer with snake_case keys
	InlineDataSnake *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ImageConfig        *geminiImageConfig `json:"imageConfig,omitempty"`
	ResponseModalities []string           `json:"responseModalities"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Type       string `json:"@type"`
			RetryDelay string `json:"retryDelay"`
		} `json:"details"`
	} `json:"error"`
}

// Generate performs a single generateContent call.
func (p *GeminiProvider) Generate(ctx context.Context, request Request) ([]byte, error) {
	body, err := json.Marshal(p.buildRequest(request))
	if err != nil {
		return nil, fmt.Errorf("failed to encode gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.endpoint, p.model)
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("x-goog-api-key", p.apiKey)

	response, err := p.client.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer func() {
		if cerr := response.Body.Close(); cerr != nil {
			slog.Warn("gemini: failed to close response body", "error", cerr)
		}
	}()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gemini response: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, p.upstreamError(response, responseBody)
	}

	return extractGeminiImage(responseBody)
}

func (p *GeminiProvider) buildRequest(request Request) geminiRequest {
	parts := []geminiPart{{Text: request.Prompt}}
	if len(request.ReferenceImage) > 0 {
		mimeType := request.ReferenceMIMEType
		if mimeType == "" {
			mimeType = http.DetectContentType(request.ReferenceImage)
		}
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(request.ReferenceImage),
		}})
	}

	config := geminiGenerationConfig{ResponseModalities: []string{"IMAGE"}}
	if request.AspectRatio.Width > 0 && request.AspectRatio.Height > 0 {
		config.ImageConfig = &geminiImageConfig{AspectRatio: request.AspectRatio.String()}
	}

	return geminiRequest{
		Contents:         []geminiContent{{Parts: parts}},
		GenerationConfig: config,
	}
}

func (p *GeminiProvider) upstreamError(response *http.Response, body []byte) *UpstreamError {
	upstream := &UpstreamError{
		Provider:   p.Name(),
		StatusCode: response.StatusCode,
		Message:    truncateBody(body),
		RetryAfter: parseRetryAfterHeader(response.Header.Get("Retry-After"), time.Now()),
	}

	var parsed geminiErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		upstream.Message = parsed.Error.Message
		upstream.Status = parsed.Error.Status
		for _, detail := range parsed.Error.Details {
			if detail.Type != retryInfoType || detail.RetryDelay == "" {
				continue
			}
			if delay, err := time.ParseDuration(detail.RetryDelay); err == nil && delay > 0 {
				upstream.RetryAfter = delay
			}
		}
	}
	return upstream
}

// extractGeminiImage returns the first inline image payload of a generateContent response.
func extractGeminiImage(body []byte) ([]byte, error) {
	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode gemini response: %w", err)
	}

	for _, candidate := range parsed.Candidates {
		for _, part := range candidate.Content.Parts {
			inline := part.InlineData
			if inline == nil {
				inline = part.InlineDataSnake
			}
			if inline == nil || inline.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(inline.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode inline image data: %w", err)
			}
			return data, nil
		}
	}
	return nil, ErrNoImageInResponse
}

func truncateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBodyBytes {
		return text[:maxErrorBodyBytes] + "..."
	}
	return text
}
