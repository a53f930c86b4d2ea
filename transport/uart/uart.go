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

// Package uart connects an R30X sensor over a serial port.
package uart

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/ZaparooProject/go-r30x"
	"github.com/ZaparooProject/go-r30x/internal/syncutil"
	"go.bug.st/serial"
)

// openPort is replaced in tests
var openPort = serial.Open

// Transport implements r30x.Transport on top of a serial port.
type Transport struct {
	port     serial.Port
	portName string
	baud     int
	mu       syncutil.Mutex
}

func isWindows() bool {
	return runtime.GOOS == "windows"
}

// readTimeout is the longest a single Read may block. Windows drivers do not
// honour timeouts below a few milliseconds.
func readTimeout() time.Duration {
	if isWindows() {
		return 10 * time.Millisecond
	}
	return time.Millisecond
}

// windowsPostWriteDelay gives the Windows driver time to flush
func windowsPostWriteDelay() {
	if isWindows() {
		time.Sleep(5 * time.Millisecond)
	}
}

func serialMode(baud int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// New opens portName at baud (8N1). A baud of 0 uses r30x.DefaultBaudRate.
func New(portName string, baud int) (*Transport, error) {
	if baud <= 0 {
		baud = r30x.DefaultBaudRate
	}
	port, err := openPort(portName, serialMode(baud))
	if err != nil {
		return nil, fmt.Errorf("failed to open UART port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(readTimeout()); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set UART read timeout: %w", err)
	}

	// stale bytes from a previous session would confuse the first decode
	_ = port.ResetInputBuffer()

	return &Transport{
		port:     port,
		portName: portName,
		baud:     baud,
	}, nil
}

// Write implements r30x.Transport
func (t *Transport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return 0, r30x.ErrTransportClosed
	}

	total := 0
	for total < len(p) {
		n, err := t.port.Write(p[total:])
		if err != nil {
			if isInterruptedSystemCall(err) {
				continue
			}
			return total, fmt.Errorf("UART write failed: %w", err)
		}
		if n == 0 {
			return total, errors.New("UART write made no progress")
		}
		total += n
	}

	if err := t.drainWithRetry("write"); err != nil {
		return total, err
	}
	windowsPostWriteDelay()
	return total, nil
}

// Read implements r30x.Transport. The serial read timeout keeps each call
// to at most one poll tick, and a timeout surfaces as (0, nil).
func (t *Transport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return 0, r30x.ErrTransportClosed
	}

	n, err := t.port.Read(p)
	if err != nil {
		if isInterruptedSystemCall(err) {
			return n, nil
		}
		var portErr *serial.PortError
		if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
			return n, r30x.ErrTransportClosed
		}
		return n, fmt.Errorf("UART read failed: %w", err)
	}
	return n, nil
}

// SetBaudRate implements r30x.Transport
func (t *Transport) SetBaudRate(baud int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return r30x.ErrTransportClosed
	}
	if err := t.port.SetMode(serialMode(baud)); err != nil {
		return fmt.Errorf("UART set baud rate %d failed: %w", baud, err)
	}
	t.baud = baud
	_ = t.port.ResetInputBuffer()
	return nil
}

// BaudRate returns the rate the port is currently configured for.
func (t *Transport) BaudRate() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.baud
}

// Close closes the transport connection
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("UART close failed: %w", err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Type returns the transport type
func (*Transport) Type() r30x.TransportType {
	return r30x.TransportUART
}

// PortName returns the device path the transport was opened on.
func (t *Transport) PortName() string {
	return t.portName
}

// isInterruptedSystemCall checks if an error is caused by an interrupted system call
func isInterruptedSystemCall(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "interrupted system call") ||
		strings.Contains(errStr, "eintr")
}

// drainWithRetry waits for the output buffer to empty, retrying when a
// signal interrupts the call.
func (t *Transport) drainWithRetry(operation string) error {
	const maxRetries = 3
	baseDelay := 2 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := t.port.Drain()
		if err == nil {
			return nil
		}

		if isInterruptedSystemCall(err) && attempt < maxRetries-1 {
			time.Sleep(baseDelay * time.Duration(1<<attempt))
			continue
		}

		return fmt.Errorf("UART %s drain failed: %w", operation, err)
	}

	return fmt.Errorf("UART %s drain failed after %d retries", operation, maxRetries)
}

var (
	_ r30x.Transport = (*Transport)(nil)
	_ r30x.PortNamer = (*Transport)(nil)
)
