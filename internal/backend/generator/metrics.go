package generator

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess     = "success"
	outcomeRateLimited = "rate_limited"
	outcomeUpstream    = "upstream_error"
	outcomeNoImage     = "no_image"
	outcomeError       = "error"
)

var generationAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "goimagine_generation_attempts_total",
		Help: "Image generation attempts against remote providers",
	},
	[]string{"provider", "outcome"},
)

func observeAttempt(provider, outcome string) {
	generationAttempts.WithLabelValues(provider, outcome).Inc()
}

func classifyOutcome(err error) string {
	if errors.Is(err, ErrNoImageInResponse) {
		return outcomeNoImage
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		if upstream.RateLimited() {
			return outcomeRateLimited
		}
		return outcomeUpstream
	}
	return outcomeError
}
