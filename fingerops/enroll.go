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

package fingerops

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-r30x"
)

// EnrollOptions tunes Enroll.
type EnrollOptions struct {
	// Location to store at, 1-based. 0 picks the first free slot, trying
	// the one after the last stored template first.
	Location int
	// AllowDuplicates skips the library search after the first scan
	AllowDuplicates bool
}

// EnrollResult describes a stored template.
type EnrollResult struct {
	Location int
	// Score is the match score between the two scans
	Score int
}

// Enroll scans the same finger twice, merges both scans into a template
// and stores it. Unless AllowDuplicates is set a finger that is already in
// the library is rejected with r30x.ErrDuplicate.
func (f *FingerOperations) Enroll(ctx context.Context, opts EnrollOptions) (EnrollResult, error) {
	location, err := f.enrollLocation(ctx, opts.Location)
	if err != nil {
		return EnrollResult{}, err
	}

	f.step(StepPlaceFinger)
	if err := f.capture(ctx, r30x.CharBuffer1); err != nil {
		return EnrollResult{}, fmt.Errorf("enroll first scan: %w", err)
	}

	if !opts.AllowDuplicates {
		if err := f.rejectDuplicate(ctx); err != nil {
			return EnrollResult{}, err
		}
	}

	f.step(StepRemoveFinger)
	if err := f.device.WaitForRemoval(ctx, f.pollInterval); err != nil {
		return EnrollResult{}, fmt.Errorf("enroll: %w", err)
	}

	f.step(StepPlaceAgain)
	if err := f.capture(ctx, r30x.CharBuffer2); err != nil {
		return EnrollResult{}, fmt.Errorf("enroll second scan: %w", err)
	}

	score, err := f.device.MatchTemplates(ctx)
	if err != nil {
		return EnrollResult{}, fmt.Errorf("enroll: scans differ: %w", err)
	}
	if err := f.device.GenerateTemplate(ctx); err != nil {
		return EnrollResult{}, fmt.Errorf("enroll: %w", err)
	}

	f.step(StepStoring)
	if err := f.device.SaveTemplate(ctx, r30x.CharBuffer1, location); err != nil {
		return EnrollResult{}, fmt.Errorf("enroll: %w", err)
	}
	return EnrollResult{Location: location, Score: score}, nil
}

func (f *FingerOperations) enrollLocation(ctx context.Context, location int) (int, error) {
	if location != 0 {
		return location, f.checkLocation(ctx, location)
	}
	size, err := f.LibrarySize(ctx)
	if err != nil {
		return 0, err
	}
	count, err := f.device.GetTemplateCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count templates: %w", err)
	}
	if count >= size {
		return 0, ErrLibraryFull
	}

	// count+1 is free unless the library has gaps
	free, err := f.locationFree(ctx, count+1)
	if err != nil || free {
		return count + 1, err
	}
	for loc := 1; loc <= size; loc++ {
		free, err := f.locationFree(ctx, loc)
		if err != nil {
			return 0, err
		}
		if free {
			return loc, nil
		}
	}
	return 0, ErrLibraryFull
}

// locationFree loads location into buffer 1; the sensor refuses with
// CodeInvalidTemplate when nothing is stored there. The buffer is
// overwritten by the first scan afterwards.
func (f *FingerOperations) locationFree(ctx context.Context, location int) (bool, error) {
	err := f.device.LoadTemplate(ctx, r30x.CharBuffer1, location)
	switch {
	case err == nil:
		return false, nil
	case r30x.IsSensorCode(err, r30x.CodeInvalidTemplate):
		return true, nil
	default:
		return false, fmt.Errorf("failed to check location %d: %w", location, err)
	}
}

func (f *FingerOperations) rejectDuplicate(ctx context.Context) error {
	size, err := f.LibrarySize(ctx)
	if err != nil {
		return err
	}
	hit, err := f.device.SearchLibrary(ctx, r30x.CharBuffer1, 1, size)
	switch {
	case err == nil:
		return fmt.Errorf("%w: matches location %d", r30x.ErrDuplicate, hit.FingerID)
	case errors.Is(err, r30x.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("enroll duplicate check: %w", err)
	}
}
