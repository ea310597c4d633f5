package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// State is a step of the retry state machine.
type State int

const (
	StateAttempting State = iota
	StateWaiting
	StateSucceeded
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateWaiting:
		return "waiting"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	DefaultMaxAttempts    = 3
	DefaultBaseDelay      = 2 * time.Second
	DefaultRateLimitDelay = 60 * time.Second
	// MaxBackoffDelay caps the exponential wait between two attempts.
	MaxBackoffDelay = 5 * time.Minute
)

const maxBackoffShift = 30

// RetryPolicy bounds the attempts made for one request.
type RetryPolicy struct {
	MaxAttempts int
	// BaseDelay is doubled after every failed attempt that was not rate limited.
	BaseDelay time.Duration
	// RateLimitDelay is used when a rate limited answer carries no retry hint.
	RateLimitDelay time.Duration
}

// DefaultRetryPolicy returns the policy used when nothing is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    DefaultMaxAttempts,
		BaseDelay:      DefaultBaseDelay,
		RateLimitDelay: DefaultRateLimitDelay,
	}
}

// Clock suspends the calling goroutine. Sleep returns early with the context error
// when ctx is done.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Transition is reported every time the state machine changes state.
type Transition struct {
	State   State
	Attempt int
	Delay   time.Duration
	Err     error
}

// Retrier wraps a Provider with bounded retries. It is itself a Provider.
type Retrier struct {
	provider     Provider
	policy       RetryPolicy
	clock        Clock
	onTransition func(Transition)
}

type RetrierOption func(*Retrier)

// WithClock replaces the clock used for waits.
func WithClock(clock Clock) RetrierOption {
	return func(r *Retrier) {
		r.clock = clock
	}
}

// WithTransitionHook registers a callback for every state change.
func WithTransitionHook(hook func(Transition)) RetrierOption {
	return func(r *Retrier) {
		r.onTransition = hook
	}
}

func NewRetrier(provider Provider, policy RetryPolicy, options ...RetrierOption) *Retrier {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.BaseDelay < 0 {
		policy.BaseDelay = 0
	}
	if policy.RateLimitDelay <= 0 {
		policy.RateLimitDelay = DefaultRateLimitDelay
	}
	retrier := &Retrier{
		provider: provider,
		policy:   policy,
		clock:    realClock{},
	}
	for _, option := range options {
		option(retrier)
	}
	return retrier
}

func (r *Retrier) Name() string {
	return r.provider.Name()
}

// Generate runs attempts until one succeeds, a final error occurs or the attempts are used up.
func (r *Retrier) Generate(ctx context.Context, request Request) ([]byte, error) {
	state := StateAttempting
	attempt := 0
	var delay time.Duration
	var lastErr error

	for {
		switch state {
		case StateAttempting:
			attempt++
			r.transition(Transition{State: StateAttempting, Attempt: attempt})

			data, err := r.provider.Generate(ctx, request)
			if err == nil {
				observeAttempt(r.Name(), outcomeSuccess)
				state = StateSucceeded
				r.transition(Transition{State: StateSucceeded, Attempt: attempt})
				return data, nil
			}
			lastErr = err
			observeAttempt(r.Name(), classifyOutcome(err))

			if final := r.finalError(ctx, err); final != nil {
				slog.Warn("generation attempt failed permanently",
					"provider", r.Name(), "attempt", attempt, "error", err)
				return nil, final
			}
			if attempt >= r.policy.MaxAttempts {
				state = StateExhausted
				continue
			}
			delay = r.delayFor(attempt, err)
			state = StateWaiting

		case StateWaiting:
			r.transition(Transition{State: StateWaiting, Attempt: attempt, Delay: delay, Err: lastErr})
			slog.Info("generation attempt failed, waiting before retry",
				"provider", r.Name(),
				"attempt", attempt,
				"max_attempts", r.policy.MaxAttempts,
				"delay", delay.String(),
				"error", lastErr)
			if err := r.clock.Sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("generation cancelled while waiting for retry: %w", err)
			}
			state = StateAttempting

		case StateExhausted:
			r.transition(Transition{State: StateExhausted, Attempt: attempt, Err: lastErr})
			slog.Error("generation attempts exhausted",
				"provider", r.Name(), "attempts", attempt, "error", lastErr)
			return nil, &GenerationError{Attempts: attempt, Last: lastErr}

		default:
			return nil, fmt.Errorf("unexpected retry state %s", state)
		}
	}
}

// finalError returns the error to surface immediately, or nil when the failure may be retried.
func (r *Retrier) finalError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("generation cancelled after %v: %w", err, ctxErr)
	}
	if errors.Is(err, ErrNoImageInResponse) || errors.Is(err, ErrReferenceUnsupported) {
		return err
	}
	return nil
}

func (r *Retrier) delayFor(attempt int, err error) time.Duration {
	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.RateLimited() {
		if upstream.RetryAfter > 0 {
			return upstream.RetryAfter
		}
		return r.policy.RateLimitDelay
	}
	shift := min(attempt-1, maxBackoffShift)
	if r.policy.BaseDelay > MaxBackoffDelay>>shift {
		return MaxBackoffDelay
	}
	return r.policy.BaseDelay << shift
}

func (r *Retrier) transition(t Transition) {
	if r.onTransition != nil {
		r.onTransition(t)
	}
}
