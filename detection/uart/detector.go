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

// Package uart detects R30X sensors on serial ports. Importing it registers
// the detector with the detection package.
package uart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ZaparooProject/go-r30x"
	"github.com/ZaparooProject/go-r30x/detection"
	"github.com/ZaparooProject/go-r30x/transport/uart"
	"go.bug.st/serial/enumerator"
)

const transportName = "uart"

// Replaced in tests.
var (
	listPorts = enumerator.GetDetailedPortsList
	probeFn   = probeDevice
)

// knownBridges are USB-UART chips sold on sensor breakout cables.
var knownBridges = []string{
	"1A86:7523", // QinHeng CH340
	"1A86:55D4", // QinHeng CH9102
	"10C4:EA60", // Silicon Labs CP210x
	"0403:6001", // FTDI FT232R
	"0403:6015", // FTDI FT231X
	"067B:2303", // Prolific PL2303
}

var sensorKeywords = []string{"fingerprint", "r30", "r50", "as608", "zfm", "fpm10"}

type detector struct{}

// New returns the serial port detector.
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

func (*detector) Transport() string {
	return transportName
}

type serialPort struct {
	Path    string
	VIDPID  string
	Product string
	Serial  string
	IsUSB   bool
}

// likelySensor reports whether the descriptor looks like a sensor cable.
func (p *serialPort) likelySensor() bool {
	vidpid := strings.ToUpper(p.VIDPID)
	for _, known := range knownBridges {
		if vidpid == known {
			return true
		}
	}
	product := strings.ToLower(p.Product)
	for _, kw := range sensorKeywords {
		if strings.Contains(product, kw) {
			return true
		}
	}
	return false
}

func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := enumerate()
	if err != nil {
		return nil, err
	}

	ports = d.filterPorts(ports, opts)
	var devices []detection.DeviceInfo
	for i := range ports {
		if ctx.Err() != nil {
			break
		}
		if device, ok := d.processPort(ctx, &ports[i], opts); ok {
			devices = append(devices, device)
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// enumerate lists serial ports, likely sensor cables first.
func enumerate() ([]serialPort, error) {
	details, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	ports := make([]serialPort, 0, len(details))
	for _, pd := range details {
		if pd == nil || pd.Name == "" {
			continue
		}
		ports = append(ports, serialPort{
			Path:    pd.Name,
			IsUSB:   pd.IsUSB,
			VIDPID:  detection.FormatVIDPID(pd.VID, pd.PID),
			Product: pd.Product,
			Serial:  pd.SerialNumber,
		})
	}
	sort.SliceStable(ports, func(i, j int) bool {
		return ports[i].likelySensor() && !ports[j].likelySensor()
	})
	return ports, nil
}

// filterPorts compacts ports in place, dropping blocked and ignored entries.
func (*detector) filterPorts(ports []serialPort, opts *detection.Options) []serialPort {
	kept := ports[:0]
	for _, port := range ports {
		if detection.IsBlocked(port.VIDPID, opts.Blocklist) {
			continue
		}
		if detection.IsPathIgnored(port.Path, opts.IgnorePaths) {
			continue
		}
		kept = append(kept, port)
	}
	return kept
}

func (*detector) processPort(ctx context.Context, port *serialPort,
	opts *detection.Options,
) (detection.DeviceInfo, bool) {
	device := detection.DeviceInfo{
		Transport:  transportName,
		Path:       port.Path,
		Name:       port.Product,
		Confidence: detection.Low,
		Metadata:   make(map[string]string),
	}
	if device.Name == "" {
		device.Name = port.Path
	}
	if port.VIDPID != "" {
		device.Metadata["vidpid"] = port.VIDPID
	}
	if port.Serial != "" {
		device.Metadata["serial"] = port.Serial
	}
	if port.likelySensor() {
		device.Confidence = detection.Medium
	}

	if opts.Mode == detection.Passive {
		return device, device.Confidence == detection.Medium
	}

	// probing modes only report ports where a sensor answered
	baud, ok := probeFn(ctx, port.Path, opts)
	if !ok {
		return detection.DeviceInfo{}, false
	}
	device.Confidence = detection.High
	device.Metadata["baud"] = strconv.Itoa(baud)
	return device, true
}

// probeDevice opens path at each configured baud rate and reports the first
// rate a sensor answers on.
func probeDevice(ctx context.Context, path string, opts *detection.Options) (int, bool) {
	bauds := opts.BaudRates
	if len(bauds) == 0 {
		bauds = []int{r30x.DefaultBaudRate}
	}
	for _, baud := range bauds {
		if ctx.Err() != nil {
			return 0, false
		}
		if probeAt(ctx, path, baud, opts) {
			return baud, true
		}
	}
	return 0, false
}

func probeAt(ctx context.Context, path string, baud int, opts *detection.Options) bool {
	transport, err := uart.New(path, baud)
	if err != nil {
		return false
	}
	defer func() { _ = transport.Close() }()

	timeout := opts.ProbeTimeout
	if timeout <= 0 {
		timeout = r30x.DefaultTimeout
	}
	device, err := r30x.New(transport,
		r30x.WithTimeout(timeout),
		r30x.WithAddress(opts.Address),
		r30x.WithPassword(opts.Password),
		r30x.WithBaudRate(baud),
		r30x.WithLogger(nil),
	)
	if err != nil {
		return false
	}

	if opts.Mode == detection.Full {
		return device.Init(ctx) == nil
	}

	// a refused password still proves a sensor is listening
	err = device.VerifyPassword(ctx, opts.Password)
	var sensorErr *r30x.SensorError
	return err == nil || errors.As(err, &sensorErr)
}
