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
	"fmt"

	"github.com/ZaparooProject/go-r30x"
)

// Identify waits for a finger and searches the whole library for it.
// A finger that is not enrolled gives an error for which r30x.IsNoMatch
// is true.
func (f *FingerOperations) Identify(ctx context.Context) (r30x.SearchResult, error) {
	size, err := f.LibrarySize(ctx)
	if err != nil {
		return r30x.SearchResult{}, err
	}

	f.step(StepPlaceFinger)
	if err := f.capture(ctx, r30x.CharBuffer1); err != nil {
		return r30x.SearchResult{}, fmt.Errorf("identify: %w", err)
	}
	hit, err := f.device.SearchLibrary(ctx, r30x.CharBuffer1, 1, size)
	if err != nil {
		return r30x.SearchResult{}, fmt.Errorf("identify: %w", err)
	}
	return hit, nil
}

// Verify waits for a finger and compares it with the template stored at
// location. It returns the match score.
func (f *FingerOperations) Verify(ctx context.Context, location int) (int, error) {
	if err := f.checkLocation(ctx, location); err != nil {
		return 0, err
	}

	f.step(StepPlaceFinger)
	if err := f.capture(ctx, r30x.CharBuffer1); err != nil {
		return 0, fmt.Errorf("verify: %w", err)
	}
	if err := f.device.LoadTemplate(ctx, r30x.CharBuffer2, location); err != nil {
		return 0, fmt.Errorf("verify: %w", err)
	}
	score, err := f.device.MatchTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("verify: %w", err)
	}
	return score, nil
}
