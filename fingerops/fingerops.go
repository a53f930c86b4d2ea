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

// Package fingerops builds enroll, identify and verify workflows on top of
// the R30X command set.
package fingerops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-r30x"
)

var (
	// ErrLibraryFull means there is no free location left for enrollment
	ErrLibraryFull = errors.New("template library is full")
	// ErrInvalidLocation means a location outside 1..LibrarySize
	ErrInvalidLocation = errors.New("invalid library location")
)

// Step is a point in a workflow where the user has to act.
type Step int

const (
	// StepPlaceFinger asks for the finger
	StepPlaceFinger Step = iota
	// StepRemoveFinger asks to lift the finger
	StepRemoveFinger
	// StepPlaceAgain asks for the same finger a second time
	StepPlaceAgain
	// StepStoring is reported before the template is written to flash
	StepStoring
)

func (s Step) String() string {
	switch s {
	case StepPlaceFinger:
		return "place finger"
	case StepRemoveFinger:
		return "remove finger"
	case StepPlaceAgain:
		return "place same finger again"
	case StepStoring:
		return "storing template"
	default:
		return "unknown"
	}
}

// Prompter is told about every step so a UI can guide the user.
type Prompter func(Step)

// FingerOperations runs multi-command workflows against one sensor.
type FingerOperations struct {
	device       *r30x.Device
	prompt       Prompter
	pollInterval time.Duration
	librarySize  int
}

// New creates a new FingerOperations instance
func New(device *r30x.Device) *FingerOperations {
	return &FingerOperations{
		device:       device,
		pollInterval: r30x.FingerPollInterval,
	}
}

// SetPrompter installs a step callback. nil disables prompts.
func (f *FingerOperations) SetPrompter(p Prompter) {
	f.prompt = p
}

// SetPollInterval changes how often a finger is polled for.
func (f *FingerOperations) SetPollInterval(d time.Duration) {
	if d > 0 {
		f.pollInterval = d
	}
}

// Device returns the underlying device.
func (f *FingerOperations) Device() *r30x.Device {
	return f.device
}

func (f *FingerOperations) step(s Step) {
	if f.prompt != nil {
		f.prompt(s)
	}
}

// LibrarySize returns the number of usable template locations, read from
// the sensor once and cached. It never exceeds r30x.LibraryCapacity.
func (f *FingerOperations) LibrarySize(ctx context.Context) (int, error) {
	if f.librarySize > 0 {
		return f.librarySize, nil
	}
	params, err := f.device.ReadSystemParameters(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read library size: %w", err)
	}
	if params.LibrarySize <= 0 {
		return 0, fmt.Errorf("sensor reports library size %d", params.LibrarySize)
	}
	// location arguments are validated against the driver's capacity
	f.librarySize = min(params.LibrarySize, r30x.LibraryCapacity)
	return f.librarySize, nil
}

func (f *FingerOperations) checkLocation(ctx context.Context, location int) error {
	size, err := f.LibrarySize(ctx)
	if err != nil {
		return err
	}
	if location < 1 || location > size {
		return fmt.Errorf("%w: %d (library holds 1..%d)", ErrInvalidLocation, location, size)
	}
	return nil
}

// capture waits for a finger and extracts its features into buf.
func (f *FingerOperations) capture(ctx context.Context, buf r30x.CharBuffer) error {
	if err := f.device.WaitForFinger(ctx, f.pollInterval); err != nil {
		return err
	}
	if err := f.device.GenerateCharacter(ctx, buf); err != nil {
		return fmt.Errorf("failed to extract features: %w", err)
	}
	return nil
}
