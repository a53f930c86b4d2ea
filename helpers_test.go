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
	"testing"
	"time"

	testutil "github.com/ZaparooProject/go-r30x/internal/testing"
	"github.com/stretchr/testify/require"
)

// simTransport adapts the simulator link to Transport.
type simTransport struct {
	*testutil.SimLink
}

func (simTransport) Type() TransportType { return TransportMock }

// newMockDevice returns a silent device on a MockTransport with a short
// receive window.
func newMockDevice(t *testing.T, opts ...Option) (*Device, *MockTransport) {
	t.Helper()
	mock := NewMockTransport()
	opts = append([]Option{WithTimeout(50 * time.Millisecond), WithLogger(nil)}, opts...)
	dev, err := New(mock, opts...)
	require.NoError(t, err)
	return dev, mock
}

// newSimDevice returns a device wired to a fresh simulator. Packet length
// matches the simulator's factory setting.
func newSimDevice(t *testing.T, opts ...Option) (*Device, *testutil.VirtualR30X) {
	t.Helper()
	sim := testutil.NewVirtualR30X()
	opts = append([]Option{
		WithTimeout(200 * time.Millisecond),
		WithDataPacketLength(sim.DataLength()),
		WithLogger(t.Logf),
	}, opts...)
	dev, err := New(simTransport{testutil.NewSimLink(sim)}, opts...)
	require.NoError(t, err)
	return dev, sim
}

// ack builds a reply frame from the default address.
func ack(code ConfirmationCode, payload ...byte) []byte {
	return encodePacket(DefaultAddress, PacketAck, byte(code), payload)
}
