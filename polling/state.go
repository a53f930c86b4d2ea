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

// FingerDetectionState is the finger presence state machine.
type FingerDetectionState int

const (
	// StateIdle means no finger on the sensor
	StateIdle FingerDetectionState = iota
	// StateProcessing means the placement callback is running
	StateProcessing
	// StatePresent means the finger was handled and is still pressed
	StatePresent
)

func (s FingerDetectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StatePresent:
		return "present"
	default:
		return "unknown"
	}
}

// FingerState tracks the finger on the sensor.
type FingerState struct {
	PlacedAt       time.Time
	LastSeen       time.Time
	Placements     int
	misses         int
	DetectionState FingerDetectionState
}

// Present reports whether a finger is currently on the sensor.
func (fs *FingerState) Present() bool {
	return fs.DetectionState != StateIdle
}

// TransitionToProcessing records a new placement.
func (fs *FingerState) TransitionToProcessing(now time.Time) {
	fs.DetectionState = StateProcessing
	fs.PlacedAt = now
	fs.LastSeen = now
	fs.Placements++
	fs.misses = 0
}

// TransitionToPresent marks the placement as handled.
func (fs *FingerState) TransitionToPresent() {
	fs.DetectionState = StatePresent
}

// Seen refreshes a finger that stayed on the sensor.
func (fs *FingerState) Seen(now time.Time) {
	fs.LastSeen = now
	fs.misses = 0
}

// Missed counts an empty capture and reports whether removalPolls have now
// passed in a row.
func (fs *FingerState) Missed(removalPolls int) bool {
	fs.misses++
	return fs.misses >= removalPolls
}

// TransitionToIdle resets to idle state
func (fs *FingerState) TransitionToIdle() {
	fs.DetectionState = StateIdle
	fs.PlacedAt = time.Time{}
	fs.LastSeen = time.Time{}
	fs.misses = 0
}
