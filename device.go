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

	"github.com/ZaparooProject/go-r30x/detection"
)

// Device represents one R30X fingerprint sensor behind a Transport.
//
// Thread Safety: Device is NOT thread-safe. The protocol is half-duplex and
// every command mutates the Session during its receive phase, so at most one
// command may be outstanding. Call all methods from a single goroutine or
// wrap each full operation in a mutex. The polling package does this for you.
type Device struct {
	transport Transport
	config    *DeviceConfig
	trace     *TraceBuffer
	pending   []byte
	session   Session
}

// New creates a device on an already-open transport. No bytes are exchanged;
// use VerifyPassword or ConnectDevice to handshake.
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, errors.New("transport is nil")
	}
	config := DefaultDeviceConfig()
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply device option: %w", err)
		}
	}

	return &Device{
		transport: transport,
		config:    config,
		trace:     NewTraceBuffer(string(transport.Type()), portName(transport), config.TraceSize),
		session: Session{
			Address:          config.Address,
			Password:         config.Password,
			BaudRate:         config.BaudRate,
			SecurityLevel:    DefaultSecurityLevel,
			DataPacketLength: config.DataPacketLength,
		},
	}, nil
}

// Session returns a snapshot of the connection state and last results.
func (d *Device) Session() Session {
	return d.session
}

// Transport returns the link the device talks through.
func (d *Device) Transport() Transport {
	return d.transport
}

// Config returns the device configuration.
func (d *Device) Config() DeviceConfig {
	return *d.config
}

// SetTimeout sets the default receive window for commands.
func (d *Device) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrBadValue, timeout)
	}
	d.config.Timeout = timeout
	return nil
}

// Close releases the serial port. The sensor keeps its settings.
func (d *Device) Close() error {
	if d.transport == nil {
		return nil
	}
	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("closing %s link: %w", d.transport.Type(), err)
	}
	return nil
}

func (d *Device) logf(format string, args ...any) {
	if d.config.Logger != nil {
		d.config.Logger(format, args...)
	}
}

// exchange runs one command: send, wait for the reply, record its
// confirmation code. A reply with a code other than OK is returned together
// with a *SensorError so callers can still inspect the payload.
func (d *Device) exchange(ctx context.Context, code byte, payload []byte, timeout time.Duration) (*Packet, error) {
	name := commandName(code)
	d.trace.Clear()

	if err := d.sendPacket(PacketCommand, code, payload); err != nil {
		d.session.LastConfirmationCode = CodeOf(err)
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	pkt, err := d.receivePacket(ctx, timeout)
	if err != nil {
		d.session.LastConfirmationCode = CodeOf(err)
		d.logf("%s failed: %v", name, err)
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	d.session.LastConfirmationCode = pkt.Confirmation()
	if pkt.Confirmation() != CodeOK {
		d.logf("%s: sensor returned 0x%02X (%s)", name, pkt.Code, pkt.Confirmation())
		return pkt, &SensorError{Command: name, Code: pkt.Confirmation()}
	}
	return pkt, nil
}

// expectPayload guards parsers against short replies.
func expectPayload(command string, pkt *Packet, n int) error {
	if len(pkt.Payload) < n {
		return fmt.Errorf("%s: %w: reply payload %d bytes, need %d", command, ErrBadPacket, len(pkt.Payload), n)
	}
	return nil
}

// TransportFactory opens the port at path, for example uart.New with a
// fixed baud rate.
type TransportFactory func(path string) (Transport, error)

// TransportFromDeviceFactory opens a port found by detection. The
// "baud" metadata key carries the rate the probe succeeded at.
type TransportFromDeviceFactory func(device detection.DeviceInfo) (Transport, error)

// DeviceDetector finds candidate sensors for auto-detection.
type DeviceDetector func(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error)

// ConnectOption tunes ConnectDevice.
type ConnectOption func(*connectConfig) error

type connectConfig struct {
	transportFactory       TransportFactory
	transportDeviceFactory TransportFromDeviceFactory
	deviceDetector         DeviceDetector
	deviceOptions          []Option
	connectionRetries      int
	autoDetect             bool
	skipHandshake          bool
}

// WithAutoDetection ignores the path and opens the first sensor detection
// reports.
func WithAutoDetection() ConnectOption {
	return func(c *connectConfig) error {
		c.autoDetect = true
		return nil
	}
}

// WithDeviceOptions passes opts on to New.
func WithDeviceOptions(opts ...Option) ConnectOption {
	return func(c *connectConfig) error {
		c.deviceOptions = append(c.deviceOptions, opts...)
		return nil
	}
}

func WithTransportFactory(factory TransportFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportFactory = factory
		return nil
	}
}

func WithTransportFromDeviceFactory(factory TransportFromDeviceFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportDeviceFactory = factory
		return nil
	}
}

// WithConnectionRetries sets how many handshakes are tried before giving
// up. A sensor that was just powered on often misses the first one.
func WithConnectionRetries(maxAttempts int) ConnectOption {
	return func(c *connectConfig) error {
		if maxAttempts < 1 {
			return fmt.Errorf("connection retries must be at least 1, got %d", maxAttempts)
		}
		c.connectionRetries = maxAttempts
		return nil
	}
}

// WithDeviceDetector replaces detection.DetectAll during auto-detection.
func WithDeviceDetector(detector DeviceDetector) ConnectOption {
	return func(c *connectConfig) error {
		c.deviceDetector = detector
		return nil
	}
}

// WithoutHandshake skips Init after connecting.
func WithoutHandshake() ConnectOption {
	return func(c *connectConfig) error {
		c.skipHandshake = true
		return nil
	}
}

func applyConnectOptions(opts []ConnectOption) (*connectConfig, error) {
	config := &connectConfig{connectionRetries: DefaultConnectionRetries}
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("invalid connect option: %w", err)
		}
	}
	return config, nil
}

// ConnectDevice opens a transport for path (or the first auto-detected
// sensor), creates the Device and runs Init as the handshake.
//
// For example:
//
//	dev, err := r30x.ConnectDevice(ctx, "/dev/ttyUSB0",
//	    r30x.WithTransportFactory(func(p string) (r30x.Transport, error) { return uart.New(p, 57600) }))
func ConnectDevice(ctx context.Context, path string, opts ...ConnectOption) (*Device, error) {
	config, err := applyConnectOptions(opts)
	if err != nil {
		return nil, err
	}

	transport, err := createTransport(ctx, path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	device, err := New(transport, config.deviceOptions...)
	if err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	if config.skipHandshake {
		return device, nil
	}

	retryConfig := handshakeRetryConfig(config.connectionRetries, func(attempt int, err error, wait time.Duration) {
		device.logf("handshake attempt %d/%d failed, retrying in %v: %v",
			attempt, config.connectionRetries, wait.Round(time.Millisecond), err)
	})
	err = RetryWithConfig(ctx, retryConfig, device.Init)
	if err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("handshake failed after %d attempts: %w", config.connectionRetries, err)
	}
	return device, nil
}

func createTransport(ctx context.Context, path string, config *connectConfig) (Transport, error) {
	if config.autoDetect || path == "" {
		return createAutoDetectedTransport(ctx, config.transportDeviceFactory, config.deviceDetector)
	}
	if config.transportFactory == nil {
		return nil, errors.New("transport factory not provided")
	}
	transport, err := config.transportFactory(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport for path %s: %w", path, err)
	}
	return transport, nil
}

func createAutoDetectedTransport(
	ctx context.Context,
	factory TransportFromDeviceFactory,
	detector DeviceDetector,
) (Transport, error) {
	if factory == nil {
		return nil, errors.New("transport device factory not provided")
	}
	opts := detection.DefaultOptions()
	if detector == nil {
		detector = detection.DetectAll
	}

	devices, err := detector(ctx, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to detect devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, ErrDeviceNotFound
	}
	Debugf("auto-detected %s", devices[0])
	return factory(devices[0])
}
