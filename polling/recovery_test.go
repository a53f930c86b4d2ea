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
	"errors"
	"testing"
	"time"

	"github.com/ZaparooProject/go-r30x"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultRecoverer(t *testing.T) {
	t.Parallel()

	dev, _ := newSimDevice(t)

	r := NewDefaultRecoverer(dev, nil, 0, 0)
	assert.Equal(t, 3, r.maxAttempts)
	assert.Equal(t, 500*time.Millisecond, r.backoff)
	assert.Same(t, dev, r.GetDevice())

	r = NewDefaultRecoverer(dev, nil, 10*time.Millisecond, 5)
	assert.Equal(t, 5, r.maxAttempts)
	assert.Equal(t, 10*time.Millisecond, r.backoff)
}

func TestDefaultRecoverer_HandshakeSucceeds(t *testing.T) {
	t.Parallel()

	dev, sim := newSimDevice(t)
	r := NewDefaultRecoverer(dev, nil, time.Millisecond, 3)

	require.NoError(t, r.AttemptRecovery(context.Background()))
	assert.Equal(t, []byte{0x13, 0x0F, 0x1D}, sim.CommandLog())
}

func TestDefaultRecoverer_HandshakeFails(t *testing.T) {
	t.Parallel()

	dev, sim := newSimDevice(t)
	sim.SetSilent(true)
	r := NewDefaultRecoverer(dev, nil, time.Millisecond, 2)

	err := r.AttemptRecovery(context.Background())
	require.ErrorIs(t, err, r30x.ErrTimeout)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestDefaultRecoverer_Reopens(t *testing.T) {
	t.Parallel()

	dev, sim := newSimDevice(t)
	sim.SetSilent(true)
	fresh, _ := newSimDevice(t)

	var reopened int
	r := NewDefaultRecoverer(dev, func(context.Context) (*r30x.Device, error) {
		reopened++
		return fresh, nil
	}, time.Millisecond, 3)

	require.NoError(t, r.AttemptRecovery(context.Background()))
	assert.Equal(t, 1, reopened)
	assert.Same(t, fresh, r.GetDevice())
	assert.False(t, dev.Transport().IsConnected(), "old device closed before reopening")
}

func TestDefaultRecoverer_ClosedTransportSkipsHandshake(t *testing.T) {
	t.Parallel()

	dev, sim := newSimDevice(t)
	require.NoError(t, dev.Close())

	reopenErr := errors.New("port vanished")
	r := NewDefaultRecoverer(dev, func(context.Context) (*r30x.Device, error) {
		return nil, reopenErr
	}, time.Millisecond, 2)

	err := r.AttemptRecovery(context.Background())
	require.ErrorIs(t, err, reopenErr)
	assert.Empty(t, sim.CommandLog())
}

func TestDefaultRecoverer_ClosedWithoutReopen(t *testing.T) {
	t.Parallel()

	dev, _ := newSimDevice(t)
	require.NoError(t, dev.Close())

	err := NewDefaultRecoverer(dev, nil, time.Millisecond, 1).AttemptRecovery(context.Background())
	assert.ErrorIs(t, err, r30x.ErrTransportClosed)
}

func TestDefaultRecoverer_ContextCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	dev, sim := newSimDevice(t)
	sim.SetSilent(true)
	r := NewDefaultRecoverer(dev, nil, time.Hour, 3)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := r.AttemptRecovery(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
