package generator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultPollinationsEndpoint = "https://image.pollinations.ai"

// PollinationsProvider fetches images from the key-less Pollinations endpoint. The
// response body is the raw image.
type PollinationsProvider struct {
	client   *http.Client
	endpoint string
}

func NewPollinationsProvider(client *http.Client, endpoint string) *PollinationsProvider {
	if endpoint == "" {
		endpoint = DefaultPollinationsEndpoint
	}
	return &PollinationsProvider{
		client:   client,
		endpoint: strings.TrimRight(endpoint, "/"),
	}
}

func (p *PollinationsProvider) Name() string {
	return "pollinations"
}

func (p *PollinationsProvider) Generate(ctx context.Context, request Request) ([]byte, error) {
	if len(request.ReferenceImage) > 0 {
		return nil, ErrReferenceUnsupported
	}

	width, height := request.Width, request.Height
	if width <= 0 || height <= 0 {
		width, height = sizeForRatio(request.AspectRatio.Width, request.AspectRatio.Height)
	}

	query := url.Values{}
	query.Set("width", strconv.Itoa(width))
	query.Set("height", strconv.Itoa(height))
	query.Set("nologo", "true")
	target := fmt.Sprintf("%s/prompt/%s?%s", p.endpoint, url.PathEscape(request.Prompt), query.Encode())

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create pollinations request: %w", err)
	}

	response, err := p.client.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("pollinations request failed: %w", err)
	}
	defer func() {
		if cerr := response.Body.Close(); cerr != nil {
			slog.Warn("pollinations: failed to close response body", "error", cerr)
		}
	}()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read pollinations response: %w", err)
	}

	if response.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			Provider:   p.Name(),
			StatusCode: response.StatusCode,
			Message:    truncateBody(body),
			RetryAfter: parseRetryAfterHeader(response.Header.Get("Retry-After"), time.Now()),
		}
	}
	if len(body) == 0 {
		return nil, ErrNoImageInResponse
	}
	return body, nil
}

// sizeForRatio picks a size of roughly one megapixel for the given ratio.
func sizeForRatio(ratioWidth, ratioHeight int) (int, int) {
	if ratioWidth <= 0 || ratioHeight <= 0 {
		return 1024, 1024
	}
	if ratioWidth >= ratioHeight {
		return 1024, 1024 * ratioHeight / ratioWidth
	}
	return 1024 * ratioWidth / ratioHeight, 1024
}
