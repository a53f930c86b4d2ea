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

package polling

import "time"

// SleepRecoveryConfig configures recovery after the host sleeps. A USB-UART
// bridge often comes back with a reset sensor or a stale port.
type SleepRecoveryConfig struct {
	// Enabled turns on sleep detection
	Enabled bool

	// TimeDiscontinuityThreshold is how far past the poll interval a gap
	// between two polls must be to count as a sleep. Default: 2 seconds
	TimeDiscontinuityThreshold time.Duration
}

// DefaultSleepRecoveryConfig returns the default sleep detection settings.
func DefaultSleepRecoveryConfig() SleepRecoveryConfig {
	return SleepRecoveryConfig{
		Enabled:                    true,
		TimeDiscontinuityThreshold: 2 * time.Second,
	}
}

// DetectSleep reports whether elapsed exceeds pollInterval plus the threshold.
func (cfg SleepRecoveryConfig) DetectSleep(elapsed, pollInterval time.Duration) bool {
	if !cfg.Enabled {
		return false
	}
	return elapsed > pollInterval+cfg.TimeDiscontinuityThreshold
}

// Config holds polling configuration options
type Config struct {
	// PollInterval is the pause between two image captures
	PollInterval time.Duration
	// RemovalPolls is how many consecutive empty captures mean the finger
	// was lifted. Sensors sometimes miss a pressed finger for one frame.
	RemovalPolls int
	// ErrorThreshold is how many consecutive failed polls trigger recovery
	ErrorThreshold int
	// RecoveryAttempts bounds each recovery run
	RecoveryAttempts int
	// RecoveryBackoff is the delay between recovery attempts
	RecoveryBackoff time.Duration
	// SleepRecovery configures automatic recovery after host sleep/wake cycles
	SleepRecovery SleepRecoveryConfig
}

// DefaultConfig returns the default polling configuration
func DefaultConfig() *Config {
	return &Config{
		PollInterval:     100 * time.Millisecond,
		RemovalPolls:     2,
		ErrorThreshold:   3,
		RecoveryAttempts: 3,
		RecoveryBackoff:  500 * time.Millisecond,
		SleepRecovery:    DefaultSleepRecoveryConfig(),
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.RemovalPolls <= 0 {
		c.RemovalPolls = d.RemovalPolls
	}
	if c.ErrorThreshold <= 0 {
		c.ErrorThreshold = d.ErrorThreshold
	}
	if c.RecoveryAttempts <= 0 {
		c.RecoveryAttempts = d.RecoveryAttempts
	}
	if c.RecoveryBackoff <= 0 {
		c.RecoveryBackoff = d.RecoveryBackoff
	}
	return c
}
