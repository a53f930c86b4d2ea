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
	"errors"
	"fmt"
	"time"
)

// WaitForFinger captures images until one succeeds, the context ends or a
// non-retryable error occurs. ErrNoFinger between attempts is expected and
// only costs one poll interval. interval <= 0 uses FingerPollInterval.
func (d *Device) WaitForFinger(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = FingerPollInterval
	}

	for attempt := 1; ; attempt++ {
		err := d.GenerateImage(ctx)
		if err == nil {
			if attempt > 1 {
				d.logf("finger captured after %d attempts", attempt)
			}
			return nil
		}
		if !errors.Is(err, ErrNoFinger) && !IsRetryable(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for finger: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
}

// WaitForRemoval polls until the sensor reports no finger, so the next
// capture is a fresh placement rather than the same press.
func (d *Device) WaitForRemoval(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = FingerPollInterval
	}

	for {
		err := d.GenerateImage(ctx)
		if errors.Is(err, ErrNoFinger) {
			return nil
		}
		if err != nil && !IsRetryable(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for finger removal: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
}
