package marketdata

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"
)

// RetryConfig tunes the retrying quote provider.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration
}

// DefaultRetryConfig bounds a quote fetch to a few quick attempts; a price is
// optional input, so long retry loops only delay the caller.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:     2,
	InitialBackoff: 250 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
	Timeout:        10 * time.Second,
}

// RetryProvider wraps a Provider with bounded retries on transient failures.
type RetryProvider struct {
	provider Provider
	logger   *log.Logger
	config   RetryConfig
}

// NewRetryProvider wraps provider. Pass no config for the defaults.
func NewRetryProvider(provider Provider, logger *log.Logger, config ...RetryConfig) *RetryProvider {
	cfg := DefaultRetryConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[QUOTES] ", log.LstdFlags)
	}
	return &RetryProvider{
		provider: provider,
		logger:   logger,
		config:   cfg,
	}
}

// GetQuote fetches a quote, retrying transient failures with jittered backoff.
func (r *RetryProvider) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	var lastErr error
	backoff := r.config.InitialBackoff

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if fetchCtx.Err() != nil {
			return nil, fmt.Errorf("quote fetch for %s timed out: %w", symbol, fetchCtx.Err())
		}

		quote, err := r.provider.GetQuote(fetchCtx, symbol)
		if err == nil {
			return quote, nil
		}

		lastErr = err
		if !isTransientError(err) || attempt == r.config.MaxRetries {
			break
		}

		r.logger.Printf("Quote attempt %d for %s failed, retrying in %v: %v", attempt+1, symbol, backoff, err)
		select {
		case <-time.After(backoff):
			backoff = r.nextBackoff(backoff)
		case <-fetchCtx.Done():
			return nil, fmt.Errorf("quote fetch for %s timed out during backoff: %w", symbol, fetchCtx.Err())
		}
	}

	return nil, fmt.Errorf("quote fetch for %s failed after %d attempts: %w", symbol, r.config.MaxRetries+1, lastErr)
}

func (r *RetryProvider) nextBackoff(current time.Duration) time.Duration {
	backoff := time.Duration(float64(current) * 1.5)
	if backoff > r.config.MaxBackoff {
		backoff = r.config.MaxBackoff
	}

	maxJitter := int64(backoff / 4)
	if maxJitter > 0 {
		jitterVal, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
		if err == nil {
			backoff += time.Duration(jitterVal.Int64())
		}
	}
	return backoff
}

// isTransientError classifies failures worth retrying by message pattern; the
// quote endpoint is a plain HTTP dependency without structured error codes.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())

	transientPatterns := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"server error",
		"rate limit",
		"429",
		"502",
		"503",
		"504",
		"network",
		"dns",
		"tcp",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

var _ Provider = (*RetryProvider)(nil)
