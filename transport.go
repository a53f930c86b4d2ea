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

import "github.com/ZaparooProject/go-r30x/internal/syncutil"

// Transport is the byte link to a sensor. It can be implemented by a serial
// port, a simulator or a test double.
type Transport interface {
	// Write sends raw bytes to the sensor
	Write(p []byte) (int, error)

	// Read returns whatever bytes are available now without waiting past a
	// single poll tick. (0, nil) means nothing arrived yet.
	Read(p []byte) (int, error)

	// SetBaudRate reopens the link at a new rate
	SetBaudRate(baud int) error

	// Close closes the transport connection
	Close() error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// PortNamer is implemented by transports bound to a named port. The name is
// attached to errors and wire traces.
type PortNamer interface {
	PortName() string
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

func portName(t Transport) string {
	if pn, ok := t.(PortNamer); ok {
		return pn.PortName()
	}
	return ""
}

// MockTransport replays queued replies and records every write. Each
// queued reply becomes readable after the write it answers, the way a
// sensor only talks after a command. A responder can be installed to
// generate replies from the written frames instead.
type MockTransport struct {
	readErr   error
	writeErr  error
	responder func(written []byte) []byte
	rx        []byte
	replies   [][]byte
	owed      int
	writes    [][]byte
	bauds     []int
	chunk     int
	mu        syncutil.Mutex
	connected bool
}

// NewMockTransport creates a new mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{connected: true}
}

// Write implements Transport
func (m *MockTransport) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return 0, ErrTransportClosed
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.writes = append(m.writes, append([]byte(nil), p...))
	if m.responder != nil {
		m.rx = append(m.rx, m.responder(p)...)
	}
	if len(m.replies) > 0 {
		m.rx = append(m.rx, m.replies[0]...)
		m.replies = m.replies[1:]
	} else {
		m.owed++
	}
	return len(p), nil
}

// Read implements Transport
func (m *MockTransport) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return 0, ErrTransportClosed
	}
	if m.readErr != nil {
		return 0, m.readErr
	}
	limit := len(p)
	if m.chunk > 0 && m.chunk < limit {
		limit = m.chunk
	}
	n := copy(p[:limit], m.rx)
	m.rx = m.rx[n:]
	return n, nil
}

// SetBaudRate implements Transport
func (m *MockTransport) SetBaudRate(baud int) error {
	m.mu.Lock()
	m.bauds = append(m.bauds, baud)
	m.mu.Unlock()
	return nil
}

// Close implements Transport
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	return nil
}

// IsConnected implements Transport
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Type implements Transport
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// Test helper methods

// Queue adds one reply made of chunks. It is readable at once when a
// write is still waiting for its reply, otherwise after the next write.
func (m *MockTransport) Queue(chunks ...[]byte) {
	var reply []byte
	for _, c := range chunks {
		reply = append(reply, c...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owed > 0 {
		m.owed--
		m.rx = append(m.rx, reply...)
		return
	}
	m.replies = append(m.replies, reply)
}

// Inject makes bytes readable immediately, independent of writes.
func (m *MockTransport) Inject(chunks ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.rx = append(m.rx, c...)
	}
}

// QueueAck appends an encoded Ack frame from address.
func (m *MockTransport) QueueAck(address uint32, code ConfirmationCode, payload []byte) {
	m.Queue(encodePacket(address, PacketAck, byte(code), payload))
}

// SetResponder installs a function called with every written frame whose
// return value is appended to the receive side.
func (m *MockTransport) SetResponder(fn func(written []byte) []byte) {
	m.mu.Lock()
	m.responder = fn
	m.mu.Unlock()
}

// SetChunkSize limits how many bytes a single Read returns. 0 means no limit.
func (m *MockTransport) SetChunkSize(n int) {
	m.mu.Lock()
	m.chunk = n
	m.mu.Unlock()
}

// SetReadError makes every Read fail with err (nil clears it).
func (m *MockTransport) SetReadError(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

// SetWriteError makes every Write fail with err (nil clears it).
func (m *MockTransport) SetWriteError(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// Writes returns a copy of every frame written so far.
func (m *MockTransport) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// WriteCount returns how many writes were made.
func (m *MockTransport) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

// LastWrite returns the most recent write, or nil.
func (m *MockTransport) LastWrite() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.writes) == 0 {
		return nil
	}
	return m.writes[len(m.writes)-1]
}

// BaudRates returns every rate passed to SetBaudRate.
func (m *MockTransport) BaudRates() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.bauds...)
}

// Pending returns how many queued bytes have not been read.
func (m *MockTransport) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rx)
}

// Reset clears queued bytes, recorded writes and injected errors.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	m.rx = nil
	m.writes = nil
	m.bauds = nil
	m.readErr = nil
	m.writeErr = nil
	m.connected = true
	m.mu.Unlock()
}
