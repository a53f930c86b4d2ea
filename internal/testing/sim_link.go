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

package testing

import (
	"errors"
	"io"

	"github.com/ZaparooProject/go-r30x/internal/syncutil"
)

// ErrLinkClosed is returned by a closed SimLink.
var ErrLinkClosed = errors.New("simulated link closed")

// SimLink is a serial line between the host and a simulated sensor. It
// carries the byte methods of a transport. Bytes the host sends while its
// baud rate disagrees with the sensor's are lost, as on a real line.
type SimLink struct {
	sim       *VirtualR30X
	backend   io.ReadWriter
	bauds     []int
	baud      int
	writes    int
	mu        syncutil.Mutex
	connected bool
}

// NewSimLink connects to sim at the sensor's current baud rate.
func NewSimLink(sim *VirtualR30X) *SimLink {
	return NewSimLinkVia(sim, sim)
}

// NewSimLinkVia connects to sim through backend, which usually wraps sim
// in a NoisyLink.
func NewSimLinkVia(sim *VirtualR30X, backend io.ReadWriter) *SimLink {
	return &SimLink{
		sim:       sim,
		backend:   backend,
		baud:      sim.BaudRate(),
		connected: true,
	}
}

// Write sends bytes to the sensor.
func (l *SimLink) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return 0, ErrLinkClosed
	}
	l.writes++
	if l.baud != l.sim.BaudRate() {
		return len(p), nil
	}
	return l.backend.Write(p) //nolint:wrapcheck // pass-through
}

// Read returns the bytes the sensor has produced so far.
func (l *SimLink) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return 0, ErrLinkClosed
	}
	return l.backend.Read(p) //nolint:wrapcheck // pass-through
}

// SetBaudRate changes the host side line speed.
func (l *SimLink) SetBaudRate(baud int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.baud = baud
	l.bauds = append(l.bauds, baud)
	return nil
}

// Close disconnects the link.
func (l *SimLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = false
	return nil
}

// IsConnected reports whether Close has not been called.
func (l *SimLink) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// PortName identifies the link in traces.
func (*SimLink) PortName() string {
	return "sim"
}

// Simulator returns the sensor behind the link.
func (l *SimLink) Simulator() *VirtualR30X {
	return l.sim
}

// BaudRate returns the host side line speed.
func (l *SimLink) BaudRate() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.baud
}

// BaudChanges returns every rate passed to SetBaudRate.
func (l *SimLink) BaudChanges() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.bauds...)
}

// WriteCount returns the number of Write calls.
func (l *SimLink) WriteCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writes
}
