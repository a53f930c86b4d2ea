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

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ZaparooProject/go-r30x"
	"github.com/ZaparooProject/go-r30x/detection"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "fpsctl.yaml"

// hexUint32 accepts "0xFFFFFFFF" as well as plain decimal in YAML.
type hexUint32 uint32

func (h *hexUint32) UnmarshalYAML(node *yaml.Node) error {
	v, err := parseUint32(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*h = hexUint32(v)
	return nil
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid 32-bit value %q", s)
	}
	return uint32(v), nil
}

// DetectConfig is the detection section of the config file.
type DetectConfig struct {
	Mode        string   `yaml:"mode"` // passive, safe, full
	Blocklist   []string `yaml:"blocklist"`
	IgnorePaths []string `yaml:"ignore_paths"`
	BaudRates   []int    `yaml:"baud_rates"`
}

// PollConfig is the watch mode section of the config file.
type PollConfig struct {
	Interval     time.Duration `yaml:"interval"`
	RemovalPolls int           `yaml:"removal_polls"`
}

// Config is everything fpsctl reads from its YAML file and flags.
type Config struct {
	Device         string        `yaml:"device"` // empty = auto-detect
	LogDir         string        `yaml:"log_dir"`
	Detect         DetectConfig  `yaml:"detect"`
	Poll           PollConfig    `yaml:"poll"`
	Timeout        time.Duration `yaml:"timeout"`
	LockTimeout    time.Duration `yaml:"lock_timeout"`
	Baud           int           `yaml:"baud"`
	DataLength     int           `yaml:"data_length"`
	ConnectRetries int           `yaml:"connect_retries"`
	Address        hexUint32     `yaml:"address"`
	Password       hexUint32     `yaml:"password"`
	Debug          bool          `yaml:"debug"`
}

// Defaults returns the settings of a sensor fresh from the factory.
func Defaults() *Config {
	return &Config{
		Baud:           r30x.DefaultBaudRate,
		Address:        r30x.DefaultAddress,
		Password:       r30x.DefaultPassword,
		Timeout:        r30x.DefaultTimeout,
		DataLength:     r30x.DefaultDataPacketLength,
		ConnectRetries: r30x.DefaultConnectionRetries,
		Detect:         DetectConfig{Mode: "safe"},
	}
}

// LoadConfig reads path over the defaults. A missing file at the default
// location is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Defaults()
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse yaml %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks values the device would reject later with a less useful
// message.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.ConnectRetries < 1 {
		return fmt.Errorf("connect_retries must be at least 1, got %d", c.ConnectRetries)
	}
	if _, err := parseMode(c.Detect.Mode); err != nil {
		return err
	}
	for _, entry := range c.Detect.Blocklist {
		if detection.ParseVIDPID(entry) == "" {
			return fmt.Errorf("blocklist entry %q is not a VID:PID pair", entry)
		}
	}
	return nil
}

// DeviceOptions converts the config into device options.
func (c *Config) DeviceOptions() []r30x.Option {
	return []r30x.Option{
		r30x.WithTimeout(c.Timeout),
		r30x.WithAddress(uint32(c.Address)),
		r30x.WithPassword(uint32(c.Password)),
		r30x.WithBaudRate(c.Baud),
		r30x.WithDataPacketLength(c.DataLength),
	}
}

// DetectionOptions converts the detect section into detection options.
func (c *Config) DetectionOptions() detection.Options {
	opts := detection.DefaultOptions()
	opts.Mode, _ = parseMode(c.Detect.Mode)
	opts.Address = uint32(c.Address)
	opts.Password = uint32(c.Password)
	opts.IgnorePaths = append(opts.IgnorePaths, c.Detect.IgnorePaths...)
	for _, entry := range c.Detect.Blocklist {
		opts.Blocklist = append(opts.Blocklist, detection.ParseVIDPID(entry))
	}
	if len(c.Detect.BaudRates) > 0 {
		opts.BaudRates = c.Detect.BaudRates
	} else {
		opts.BaudRates = []int{c.Baud}
	}
	return opts
}

func parseMode(s string) (detection.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "passive":
		return detection.Passive, nil
	case "", "safe":
		return detection.Safe, nil
	case "full":
		return detection.Full, nil
	default:
		return detection.Safe, fmt.Errorf("unknown detection mode %q", s)
	}
}
