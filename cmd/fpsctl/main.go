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

// Command fpsctl manages an R30X fingerprint sensor over a serial port.
//
// With no arguments it opens an interactive shell. A single command can be
// given on the command line instead, for example:
//
//	fpsctl -device /dev/ttyUSB0 enroll 3
//	fpsctl -watch
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ZaparooProject/go-r30x"
	"github.com/ZaparooProject/go-r30x/detection"
	_ "github.com/ZaparooProject/go-r30x/detection/uart"
	"github.com/ZaparooProject/go-r30x/fingerops"
	"github.com/ZaparooProject/go-r30x/internal/syncutil"
	"github.com/ZaparooProject/go-r30x/polling"
	"github.com/ZaparooProject/go-r30x/transport/uart"
)

// Package-level flag variables
var (
	flagConfig   string
	flagDevice   string
	flagBaud     int
	flagAddress  string
	flagPassword string
	flagTimeout  time.Duration
	flagDebug    bool
	flagLogDir   string
	flagWatch    bool
	flagStress   int
)

func init() {
	flag.StringVar(&flagConfig, "config", "", "YAML config file (default "+defaultConfigFile+" if present)")
	flag.StringVar(&flagDevice, "device", "", "Serial port (auto-detect if empty)")
	flag.IntVar(&flagBaud, "baud", r30x.DefaultBaudRate, "Link baud rate")
	flag.StringVar(&flagAddress, "address", "", "Sensor address, e.g. 0xFFFFFFFF")
	flag.StringVar(&flagPassword, "password", "", "Sensor password, e.g. 0x00000000")
	flag.DurationVar(&flagTimeout, "timeout", r30x.DefaultTimeout, "Response timeout")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
	flag.StringVar(&flagLogDir, "log-dir", "", "Write a session log to this directory")
	flag.BoolVar(&flagWatch, "watch", false, "Identify every finger placed on the sensor")
	flag.IntVar(&flagStress, "stress", 0, "Run N link stress iterations and exit")
}

// applyFlags overrides the config with every flag given on the command line.
func applyFlags(cfg *Config, set map[string]bool) error {
	if set["device"] {
		cfg.Device = flagDevice
	}
	if set["baud"] {
		cfg.Baud = flagBaud
	}
	if set["timeout"] {
		cfg.Timeout = flagTimeout
	}
	if set["debug"] {
		cfg.Debug = flagDebug
	}
	if set["log-dir"] {
		cfg.LogDir = flagLogDir
	}
	if set["address"] {
		v, err := parseUint32(flagAddress)
		if err != nil {
			return fmt.Errorf("-address: %w", err)
		}
		cfg.Address = hexUint32(v)
	}
	if set["password"] {
		v, err := parseUint32(flagPassword)
		if err != nil {
			return fmt.Errorf("-password: %w", err)
		}
		cfg.Password = hexUint32(v)
	}
	return cfg.Validate()
}

func parseConfig() (*Config, error) {
	cfg, err := LoadConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if err := applyFlags(cfg, set); err != nil {
		return nil, err
	}

	if cfg.Debug {
		r30x.SetDebugEnabled(true)
	}
	if cfg.LockTimeout > 0 {
		syncutil.SetLockTimeout(cfg.LockTimeout)
	}
	return cfg, nil
}

// transportFactories builds the two factories ConnectDevice needs.
func transportFactories(cfg *Config) (r30x.TransportFactory, r30x.TransportFromDeviceFactory) {
	fromPath := func(path string) (r30x.Transport, error) {
		if path == "" {
			return nil, errors.New("empty device path")
		}
		transport, err := uart.New(path, cfg.Baud)
		if err != nil {
			return nil, fmt.Errorf("failed to create UART transport for %s: %w", path, err)
		}
		return transport, nil
	}
	fromDevice := func(device detection.DeviceInfo) (r30x.Transport, error) {
		if device.Transport != "uart" {
			return nil, fmt.Errorf("unsupported transport type: %s", device.Transport)
		}
		baud := cfg.Baud
		if s, ok := device.Metadata["baud"]; ok {
			if n, err := strconv.Atoi(s); err == nil {
				baud = n
			}
		}
		transport, err := uart.New(device.Path, baud)
		if err != nil {
			return nil, fmt.Errorf("failed to create UART transport: %w", err)
		}
		return transport, nil
	}
	return fromPath, fromDevice
}

func connectOptions(cfg *Config) []r30x.ConnectOption {
	fromPath, fromDevice := transportFactories(cfg)
	opts := []r30x.ConnectOption{
		r30x.WithDeviceOptions(cfg.DeviceOptions()...),
		r30x.WithConnectionRetries(cfg.ConnectRetries),
	}
	if cfg.Device == "" {
		detectOpts := cfg.DetectionOptions()
		opts = append(opts,
			r30x.WithAutoDetection(),
			r30x.WithTransportFromDeviceFactory(fromDevice),
			r30x.WithDeviceDetector(func(ctx context.Context, _ *detection.Options) ([]detection.DeviceInfo, error) {
				return detection.DetectAll(ctx, &detectOpts)
			}))
	} else {
		opts = append(opts, r30x.WithTransportFactory(fromPath))
	}
	return opts
}

func connectToDevice(ctx context.Context, cfg *Config) (*r30x.Device, error) {
	if cfg.Debug {
		if cfg.Device == "" {
			_, _ = fmt.Println("Auto-detecting R30X sensors...")
		} else {
			_, _ = fmt.Printf("Opening device: %s\n", cfg.Device)
		}
	}

	device, err := r30x.ConnectDevice(ctx, cfg.Device, connectOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to R30X sensor: %w", err)
	}

	if cfg.Debug {
		s := device.Session()
		_, _ = fmt.Printf("Connected: %d baud, security level %d, %d byte packets\n",
			s.BaudRate, s.SecurityLevel, s.DataPacketLength)
	}
	return device, nil
}

func pollConfig(cfg *Config) *polling.Config {
	pc := polling.DefaultConfig()
	if cfg.Poll.Interval > 0 {
		pc.PollInterval = cfg.Poll.Interval
	}
	if cfg.Poll.RemovalPolls > 0 {
		pc.RemovalPolls = cfg.Poll.RemovalPolls
	}
	return pc
}

// identifyPlaced reports who is on the sensor. Only context errors stop the
// watch loop.
func identifyPlaced(ctx context.Context, device *r30x.Device) error {
	res, err := fingerops.New(device).Identify(ctx)
	switch {
	case err == nil:
		_, _ = fmt.Printf("Finger matched location %d (score %d)\n", res.FingerID, res.Score)
	case r30x.IsNoMatch(err):
		_, _ = fmt.Println("Finger not recognised")
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		_, _ = fmt.Printf("Identify failed: %v\n", err)
	}
	return nil
}

func runWatchMode(ctx context.Context, device *r30x.Device, cfg *Config) error {
	pc := pollConfig(cfg)
	session := polling.NewSession(device, pc)

	defer func() {
		if err := session.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close session: %v\n", err)
		}
	}()

	reopen := func(ctx context.Context) (*r30x.Device, error) {
		return connectToDevice(ctx, cfg)
	}
	session.SetRecoverer(polling.NewDefaultRecoverer(device, reopen, pc.RecoveryBackoff, pc.RecoveryAttempts))
	session.SetOnFingerPlaced(identifyPlaced)
	session.SetOnFingerRemoved(func() {
		_, _ = fmt.Println("Finger removed - ready for next finger...")
	})
	if cfg.Debug {
		session.SetOnPollError(func(err error) {
			_, _ = fmt.Fprintf(os.Stderr, "poll error: %v\n", err)
		})
	}

	_, _ = fmt.Println("Watching for fingers. Press Ctrl+C to stop...")

	done := make(chan error, 1)
	go func() {
		done <- session.Start(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("watch stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func runShell(ctx context.Context, device *r30x.Device, cfg *Config, args []string) error {
	e := newEnv(device, cfg, os.Stdout)
	if len(args) > 0 {
		return runCommand(ctx, e, args)
	}
	sh := newShell(ctx, e)
	sh.Println("R30X shell. Type help for commands.")
	sh.Run()
	return nil
}

func run(ctx context.Context, cfg *Config, args []string) error {
	if cfg.Debug || cfg.LogDir != "" {
		path, err := r30x.InitSessionLog(cfg.LogDir)
		if err != nil {
			return err
		}
		defer func() { _ = r30x.CloseSessionLog() }()
		_, _ = fmt.Fprintf(os.Stderr, "Session log: %s\n", path)
	}

	// detect needs no sensor and must not claim the port it reports.
	if len(args) > 0 && args[0] == "detect" {
		return runCommand(ctx, newEnv(nil, cfg, os.Stdout), args)
	}

	device, err := connectToDevice(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := device.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close device: %v\n", err)
		}
	}()

	switch {
	case flagStress > 0:
		result := runStressTest(ctx, device, flagStress, os.Stdout, cfg.LogDir)
		if !result.Success {
			return fmt.Errorf("stress test failed after %d operations", result.Passed)
		}
		return nil
	case flagWatch:
		return runWatchMode(ctx, device, cfg)
	default:
		return runShell(ctx, device, cfg, args)
	}
}

func main() {
	flag.Parse()
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		_, _ = fmt.Print("\nShutting down gracefully...\n")
		cancel()
	}()

	if err := run(ctx, cfg, flag.Args()); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
