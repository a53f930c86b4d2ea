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
	"fmt"
	"time"
)

// Logger receives the driver's debug output. Debugf is the default.
type Logger func(format string, args ...any)

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// Logger receives wire dumps and command outcomes
	Logger Logger
	// Timeout is the default receive window for commands
	Timeout time.Duration
	// Address is the sensor address packets are framed with
	Address uint32
	// Password is what ConnectDevice verifies during the handshake
	Password uint32
	// BaudRate is the rate the link was opened at
	BaudRate int
	// DataPacketLength is the sensor's configured data packet size
	DataPacketLength int
	// TraceSize is how many frames the wire trace keeps
	TraceSize int
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		Logger:           Debugf,
		Timeout:          DefaultTimeout,
		Address:          DefaultAddress,
		Password:         DefaultPassword,
		BaudRate:         DefaultBaudRate,
		DataPacketLength: DefaultDataPacketLength,
		TraceSize:        16,
	}
}

// Option configures a Device at construction time.
type Option func(*DeviceConfig) error

// WithTimeout sets the default receive window.
func WithTimeout(timeout time.Duration) Option {
	return func(c *DeviceConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: timeout must be positive, got %v", ErrBadValue, timeout)
		}
		c.Timeout = timeout
		return nil
	}
}

// WithAddress sets the sensor address.
func WithAddress(address uint32) Option {
	return func(c *DeviceConfig) error {
		c.Address = address
		return nil
	}
}

// WithPassword sets the handshake password.
func WithPassword(password uint32) Option {
	return func(c *DeviceConfig) error {
		c.Password = password
		return nil
	}
}

// WithBaudRate records the rate the transport was opened at.
func WithBaudRate(baud int) Option {
	return func(c *DeviceConfig) error {
		if _, err := baudMultiple(baud); err != nil {
			return err
		}
		c.BaudRate = baud
		return nil
	}
}

// WithDataPacketLength sets the data packet size the sensor is configured for.
func WithDataPacketLength(n int) Option {
	return func(c *DeviceConfig) error {
		if _, ok := dataLengthCode(n); !ok {
			return fmt.Errorf("%w: data packet length must be 32, 64, 128 or 256, got %d", ErrBadValue, n)
		}
		c.DataPacketLength = n
		return nil
	}
}

// WithLogger replaces the debug logger. nil silences the device.
func WithLogger(logger Logger) Option {
	return func(c *DeviceConfig) error {
		c.Logger = logger
		return nil
	}
}

// WithTraceSize sets how many frames error traces carry.
func WithTraceSize(n int) Option {
	return func(c *DeviceConfig) error {
		c.TraceSize = n
		return nil
	}
}

// baudMultiple validates a baud rate and returns its 9600 multiplier.
func baudMultiple(baud int) (byte, error) {
	if baud <= 0 || baud%baudUnit != 0 || baud/baudUnit > maxBaudMultiple {
		return 0, fmt.Errorf("%w: baud rate must be 9600 x 1..%d, got %d", ErrBadValue, maxBaudMultiple, baud)
	}
	return byte(baud / baudUnit), nil
}
