// Package service implements the request/response operations of the reactor.
package service

import (
	"context"

	"github.com/snowparadise/reactor/internal/ratelimit"
)

// RateLimiter decides whether subject may perform one more action under p.
type RateLimiter interface {
	Allow(ctx context.Context, subject string, p ratelimit.Policy) (ratelimit.Decision, error)
}
