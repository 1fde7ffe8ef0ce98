// Package retry bounds and paces calls to the external embedding and chat services.
package retry

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"pdfchat/internal/domain"
)

// Policy describes how a failing call is retried.
type Policy struct {
	MaxAttempts      int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	RateLimitBackoff time.Duration
	// CallTimeout bounds each attempt; zero leaves the caller's deadline alone.
	CallTimeout time.Duration
	// Limiter paces attempts; nil disables pacing.
	Limiter *rate.Limiter
}

// NewLimiter returns a token bucket allowing rps requests per second.
// A non-positive rps disables pacing.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Do runs fn until it succeeds, fails permanently, or attempts run out.
// fn receives a context carrying the per-attempt timeout.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		if p.Limiter != nil {
			if werr := p.Limiter.Wait(ctx); werr != nil {
				if err != nil {
					return err
				}
				return werr
			}
		}

		err = p.call(ctx, fn)
		if err == nil {
			return nil
		}
		if attempt >= attempts || !Retryable(err) || ctx.Err() != nil {
			return err
		}

		wait := p.backoff(attempt)
		if errors.Is(err, domain.ErrRateLimited) && p.RateLimitBackoff > wait {
			wait = p.RateLimitBackoff
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(wait):
		}
	}
}

func (p Policy) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.CallTimeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, p.CallTimeout)
	defer cancel()
	return fn(callCtx)
}

func (p Policy) backoff(attempt int) time.Duration {
	d := p.InitialBackoff
	if d <= 0 {
		return 0
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return d
}

// Retryable reports whether err is a transient external failure.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, domain.ErrRateLimited) ||
		errors.Is(err, domain.ErrTimeout) ||
		errors.Is(err, domain.ErrEmbeddingService) ||
		errors.Is(err, domain.ErrLLMService)
}

// Classify wraps a raw client error as a ServiceError of the given kind,
// promoting throttling and deadline failures to their own kinds.
func Classify(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *domain.ServiceError
	if errors.As(err, &se) {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		kind = domain.ErrTimeout
	case isRateLimit(err):
		kind = domain.ErrRateLimited
	}
	return &domain.ServiceError{Kind: kind, Op: op, Err: err}
}

func isRateLimit(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}
