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

// Package detection finds R30X fingerprint sensors attached to the host.
//
// Transport-specific detectors register themselves from their init
// functions. Import them for side effects:
//
//	import _ "github.com/ZaparooProject/go-r30x/detection/uart"
package detection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Mode controls how invasive detection is allowed to be.
type Mode int

const (
	// Passive only inspects port descriptors and never opens a port
	Passive Mode = iota
	// Safe opens candidate ports and sends a single password check
	Safe
	// Full runs the complete handshake (password, system parameters,
	// template count) on every port
	Full
)

// Confidence is how sure a detector is that a sensor sits at a path.
type Confidence int

const (
	// Low means only that the port exists
	Low Confidence = iota
	// Medium means the port descriptor matches a known USB-UART bridge
	Medium
	// High means a sensor answered on the port
	High
)

var confidenceNames = [...]string{Low: "low", Medium: "medium", High: "high"}

func (c Confidence) String() string {
	if c < 0 || int(c) >= len(confidenceNames) {
		return "unknown"
	}
	return confidenceNames[c]
}

// DeviceInfo describes a detected sensor.
type DeviceInfo struct {
	// Metadata holds descriptor details such as "vidpid", "manufacturer"
	// and, after a successful probe, "baud"
	Metadata map[string]string
	// Transport type, e.g. "uart"
	Transport string
	// Path to open, e.g. "/dev/ttyUSB0" or "COM3"
	Path string
	// Name is a human-readable label
	Name string
	// Confidence level of the detection
	Confidence Confidence
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s device at %s (confidence: %s)", d.Transport, d.Path, d.Confidence)
}

// Options configures detection.
type Options struct {
	// USB VID:PID pairs to skip (e.g., ["1234:5678", "ABCD:EF01"])
	Blocklist []string
	// Device paths to explicitly ignore (e.g., ["/dev/ttyUSB0", "COM2"])
	IgnorePaths []string
	// Which transports to check (empty = all)
	Transports []string
	// BaudRates are tried in order when probing a port
	BaudRates []int
	// CacheTTL is how long results stay valid
	CacheTTL time.Duration
	// Timeout bounds the whole detection run
	Timeout time.Duration
	// ProbeTimeout bounds a single port probe at one baud rate
	ProbeTimeout time.Duration
	// Mode is the detection invasiveness level
	Mode Mode
	// Password is sent by Safe and Full probes
	Password uint32
	// Address is the module address probes talk to
	Address uint32
	// EnableCache turns on result caching
	EnableCache bool
}

// DefaultOptions returns options matching a sensor with factory settings.
func DefaultOptions() Options {
	return Options{
		Mode:         Safe,
		Timeout:      10 * time.Second,
		ProbeTimeout: 500 * time.Millisecond,
		BaudRates:    []int{57600},
		Password:     0xFFFFFFFF,
		Address:      0xFFFFFFFF,
		Blocklist:    DefaultBlocklist(),
		EnableCache:  true,
		CacheTTL:     30 * time.Second,
	}
}

// Detector finds sensors on one kind of transport.
type Detector interface {
	// Detect searches for devices using the given options
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
	// Transport returns the transport type this detector handles
	Transport() string
}

var (
	// ErrNoDevicesFound indicates no sensor was detected
	ErrNoDevicesFound = errors.New("no R30X devices found")
	// ErrDetectionTimeout indicates detection timed out
	ErrDetectionTimeout = errors.New("detection timeout")
	// ErrUnsupportedPlatform indicates the platform doesn't support this detection method
	ErrUnsupportedPlatform = errors.New("platform not supported")
	// ErrNoDetectors means no registered detector handles the requested transports
	ErrNoDetectors = errors.New("no detectors available for specified transports")
)

var registry []Detector

// RegisterDetector adds a detector to the global registry. Detectors are
// consulted in registration order.
func RegisterDetector(d Detector) {
	registry = append(registry, d)
}

func getDetectors(transports []string) []Detector {
	if len(transports) == 0 {
		return registry
	}
	return slices.DeleteFunc(slices.Clone(registry), func(d Detector) bool {
		return !slices.Contains(transports, d.Transport())
	})
}

type detectionResult struct {
	err     error
	devices []DeviceInfo
}

// DetectAll runs every registered detector matching opts.Transports
// concurrently. Devices are listed in registration order and returned even
// when other detectors fail.
func DetectAll(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	detectors := getDetectors(opts.Transports)
	if len(detectors) == 0 {
		return nil, ErrNoDetectors
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	results := make([]detectionResult, len(detectors))
	var wg sync.WaitGroup
	for i, d := range detectors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = runSingleDetector(ctx, d, opts)
		}()
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return nil, ErrDetectionTimeout
	}

	var devices []DeviceInfo
	var errs []error
	for _, res := range results {
		devices = append(devices, res.devices...)
		if res.err != nil {
			errs = append(errs, res.err)
		}
	}
	switch {
	case len(devices) > 0:
		return devices, nil
	case ctx.Err() != nil:
		return nil, ErrDetectionTimeout
	case len(errs) > 0:
		return nil, errors.Join(errs...)
	default:
		return nil, ErrNoDevicesFound
	}
}

func runSingleDetector(ctx context.Context, detector Detector, opts *Options) detectionResult {
	transport := detector.Transport()
	if opts.EnableCache {
		if cached, found := getCached(transport, opts.Mode, opts.CacheTTL); found {
			// entries were stored under older ignore lists
			return detectionResult{devices: filterDevices(cached, opts)}
		}
	}

	devices, err := detector.Detect(ctx, opts)
	if err != nil && !errors.Is(err, ErrNoDevicesFound) {
		return detectionResult{err: fmt.Errorf("%s detection: %w", transport, err)}
	}
	if !opts.EnableCache {
		return detectionResult{devices: devices}
	}

	if len(devices) == 0 {
		// an unplugged sensor must not linger until the TTL runs out
		clearCacheForTransport(transport)
	} else {
		setCached(transport, opts.Mode, devices)
	}
	return detectionResult{devices: devices}
}

func filterDevices(devices []DeviceInfo, opts *Options) []DeviceInfo {
	if len(opts.IgnorePaths) == 0 && len(opts.Blocklist) == 0 {
		return devices
	}

	var filtered []DeviceInfo
	for _, device := range devices {
		if IsPathIgnored(device.Path, opts.IgnorePaths) {
			continue
		}
		if vidpid, ok := device.Metadata["vidpid"]; ok && IsBlocked(vidpid, opts.Blocklist) {
			continue
		}
		filtered = append(filtered, device)
	}
	return filtered
}

// ClearDetectionCache drops every cached result.
func ClearDetectionCache() {
	clearCache()
}

// ClearDetectionCacheForTransport drops cached results for one transport.
func ClearDetectionCacheForTransport(transport string) {
	clearCacheForTransport(transport)
}
