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

package polling

import (
	"context"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-r30x"
	"github.com/ZaparooProject/go-r30x/internal/syncutil"
)

// DeviceRecoverer restores a working device after poll errors or a host
// sleep. The device it hands back may differ from the one it started with.
type DeviceRecoverer interface {
	AttemptRecovery(ctx context.Context) error
	GetDevice() *r30x.Device
}

// ReopenFunc opens the sensor again from scratch, usually through
// r30x.ConnectDevice on the same port.
type ReopenFunc func(ctx context.Context) (*r30x.Device, error)

// DefaultRecoverer handshakes on the existing port first. When that fails
// and a ReopenFunc is set, it closes the device and opens a new one.
type DefaultRecoverer struct {
	device      *r30x.Device
	reopenFunc  ReopenFunc
	backoff     time.Duration
	maxAttempts int
	mu          syncutil.Mutex
}

// NewDefaultRecoverer uses three attempts 500ms apart when maxAttempts or
// backoff are not positive.
func NewDefaultRecoverer(
	device *r30x.Device,
	reopenFunc ReopenFunc,
	backoff time.Duration,
	maxAttempts int,
) *DefaultRecoverer {
	r := &DefaultRecoverer{
		device:      device,
		reopenFunc:  reopenFunc,
		backoff:     500 * time.Millisecond,
		maxAttempts: 3,
	}
	if backoff > 0 {
		r.backoff = backoff
	}
	if maxAttempts > 0 {
		r.maxAttempts = maxAttempts
	}
	return r
}

func (r *DefaultRecoverer) AttemptRecovery(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	attempts := 0
	err := r30x.RetryWithConfig(ctx, &r30x.RetryConfig{
		MaxAttempts:       r.maxAttempts,
		InitialBackoff:    r.backoff,
		MaxBackoff:        r.backoff,
		BackoffMultiplier: 1,
		ShouldRetry:       func(error) bool { return true },
		OnRetry: func(attempt int, err error, wait time.Duration) {
			r30x.Debugf("recovery attempt %d failed, next in %v: %v", attempt, wait, err)
		},
	}, func(ctx context.Context) error {
		attempts++
		return r.recoverOnce(ctx)
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("recovery interrupted: %w", ctxErr)
	}
	return fmt.Errorf("recovery failed after %d attempts: %w", attempts, err)
}

// recoverOnce tries the cheap path, then the reopen path.
func (r *DefaultRecoverer) recoverOnce(ctx context.Context) error {
	err := r30x.ErrTransportClosed
	if r.device.Transport().IsConnected() {
		if err = r.device.Init(ctx); err == nil {
			return nil
		}
	}
	if r.reopenFunc == nil {
		return err
	}

	_ = r.device.Close()
	dev, err := r.reopenFunc(ctx)
	if err != nil {
		return err
	}
	r.device = dev
	return nil
}

func (r *DefaultRecoverer) GetDevice() *r30x.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.device
}
