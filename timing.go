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

import "time"

// DefaultConnectionRetries is how many handshakes ConnectDevice tries.
const DefaultConnectionRetries = 3

// FingerPollInterval paces image captures while waiting for a finger to
// arrive or leave.
const FingerPollInterval = 100 * time.Millisecond

// handshakeRetryConfig paces ConnectDevice handshakes. The first pause
// covers the ~200ms a sensor needs after power-on; the whole sequence
// gives up after 15s.
func handshakeRetryConfig(attempts int, onRetry func(int, error, time.Duration)) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2,
		Jitter:            0.1,
		RetryTimeout:      15 * time.Second,
		OnRetry:           onRetry,
	}
}
