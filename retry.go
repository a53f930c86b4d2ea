// go-r30x
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-r30x.
//
// go-r30x is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-r30x is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-r30x; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package r30x

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// RetryConfig configures retry behavior. Commands never retry on their own;
// this is for callers (ConnectDevice, polling, the CLI) that want to.
type RetryConfig struct {
	// ShouldRetry decides whether an error is worth another attempt.
	// IsRetryable is used when nil.
	ShouldRetry func(error) bool
	// OnRetry is told about every failed attempt that will be retried.
	// Debugf is used when nil.
	OnRetry func(attempt int, err error, wait time.Duration)
	// MaxAttempts bounds the attempts; 0 or 1 means a single call.
	MaxAttempts int
	// InitialBackoff is the wait after the first failure.
	InitialBackoff time.Duration
	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration
	// BackoffMultiplier grows the wait after each failure.
	BackoffMultiplier float64
	// Jitter adds up to this fraction of random extra wait.
	Jitter float64
	// RetryTimeout bounds all attempts together.
	RetryTimeout time.Duration
}

// DefaultRetryConfig suits a sensor that was just plugged in: quick first
// retries, at most a second apart.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetryTimeout:      10 * time.Second,
	}
}

// RetryableFunc is a function that can be retried. It receives the context
// bounded by RetryTimeout.
type RetryableFunc func(ctx context.Context) error

// backoff produces the waits between attempts.
type backoff struct {
	next       time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64
}

func newBackoff(config *RetryConfig) *backoff {
	return &backoff{
		next:       config.InitialBackoff,
		max:        config.MaxBackoff,
		multiplier: config.BackoffMultiplier,
		jitter:     config.Jitter,
	}
}

// wait returns the current wait with jitter applied and advances to the
// next one.
func (b *backoff) wait() time.Duration {
	d := b.next
	if b.jitter > 0 {
		d += time.Duration(rand.Float64() * b.jitter * float64(d))
	}
	grown := time.Duration(float64(b.next) * b.multiplier)
	if b.max > 0 && grown > b.max {
		grown = b.max
	}
	b.next = grown
	return d
}

// RetryWithConfig calls retryFunc until it succeeds, returns an error
// ShouldRetry rejects, or runs out of attempts or time. The last error from
// retryFunc is returned.
func RetryWithConfig(ctx context.Context, config *RetryConfig, retryFunc RetryableFunc) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if config.MaxAttempts <= 1 {
		return retryFunc(ctx)
	}

	if config.RetryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.RetryTimeout)
		defer cancel()
	}

	shouldRetry := config.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsRetryable
	}
	onRetry := config.OnRetry
	if onRetry == nil {
		onRetry = func(attempt int, err error, wait time.Duration) {
			Debugf("attempt %d failed, retrying in %v: %v", attempt, wait, err)
		}
	}

	b := newBackoff(config)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry context cancelled: %w", err)
		}
		err := retryFunc(ctx)
		if err == nil {
			if attempt > 1 {
				Debugf("succeeded on attempt %d", attempt)
			}
			return nil
		}
		if attempt >= config.MaxAttempts || !shouldRetry(err) {
			return err
		}

		wait := b.wait()
		onRetry(attempt, err, wait)
		if !sleepContext(ctx, wait) {
			return err
		}
	}
}

// sleepContext waits for d and reports false if ctx ended first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
