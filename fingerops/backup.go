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

// ExportTemplate reads the template at location off the sensor.
func (f *FingerOperations) ExportTemplate(ctx context.Context, location int) ([]byte, error) {
	if err := f.checkLocation(ctx, location); err != nil {
		return nil, err
	}
	if err := f.device.LoadTemplate(ctx, r30x.CharBuffer1, location); err != nil {
		return nil, fmt.Errorf("export template %d: %w", location, err)
	}
	data, err := f.device.ExportCharacter(ctx, r30x.CharBuffer1)
	if err != nil {
		return nil, fmt.Errorf("export template %d: %w", location, err)
	}
	return data, nil
}

// ImportTemplate writes a previously exported template to location.
func (f *FingerOperations) ImportTemplate(ctx context.Context, location int, data []byte) error {
	if err := f.checkLocation(ctx, location); err != nil {
		return err
	}
	if err := f.device.ImportCharacter(ctx, r30x.CharBuffer1, data); err != nil {
		return fmt.Errorf("import template %d: %w", location, err)
	}
	if err := f.device.SaveTemplate(ctx, r30x.CharBuffer1, location); err != nil {
		return fmt.Errorf("import template %d: %w", location, err)
	}
	return nil
}

// Delete removes the template at location.
func (f *FingerOperations) Delete(ctx context.Context, location int) error {
	if err := f.checkLocation(ctx, location); err != nil {
		return err
	}
	return f.device.DeleteTemplate(ctx, location, 1)
}
