package graph

import (
	"context"
	"strings"
	"time"
)

// RetryPolicy defines how node failures are retried.
type RetryPolicy struct {
	MaxRetries      int
	BackoffStrategy BackoffStrategy
	RetryableErrors []string
}

// BackoffStrategy defines different backoff strategies.
type BackoffStrategy int

const (
	FixedBackoff BackoffStrategy = iota
	ExponentialBackoff
	LinearBackoff
)

// executeWithRetry executes a node, retrying retryable errors per the
// graph's policy.
func (r *Runnable[S]) executeWithRetry(ctx context.Context, node Node[S], state S) (S, error) {
	var lastErr error
	var zero S

	maxAttempts := 1
	if r.graph.retryPolicy != nil {
		maxAttempts = r.graph.retryPolicy.MaxRetries + 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := node.Function(ctx, state)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if r.graph.retryPolicy == nil || attempt >= maxAttempts-1 || !r.isRetryable(err) {
			break
		}

		if delay := r.backoffDelay(attempt); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}

	return zero, lastErr
}

func (r *Runnable[S]) isRetryable(err error) bool {
	if r.graph.retryPolicy == nil {
		return false
	}
	errorStr := err.Error()
	for _, pattern := range r.graph.retryPolicy.RetryableErrors {
		if strings.Contains(errorStr, pattern) {
			return true
		}
	}
	return false
}

func (r *Runnable[S]) backoffDelay(attempt int) time.Duration {
	if r.graph.retryPolicy == nil {
		return 0
	}

	baseDelay := time.Second

	switch r.graph.retryPolicy.BackoffStrategy {
	case FixedBackoff:
		return baseDelay
	case ExponentialBackoff:
		return baseDelay * time.Duration(1<<attempt)
	case LinearBackoff:
		return baseDelay * time.Duration(attempt+1)
	default:
		return baseDelay
	}
}
