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

package r30x

import "context"

// GenerateImage captures a finger image into the image buffer. With no
// finger on the sensor it fails with ErrNoFinger.
func (d *Device) GenerateImage(ctx context.Context) error {
	_, err := d.exchange(ctx, cmdGenerateImage, nil, 0)
	return err
}

// GenerateCharacter extracts a character file from the image buffer into buf.
func (d *Device) GenerateCharacter(ctx context.Context, buf CharBuffer) error {
	if err := checkBuffer("GenerateCharacter", buf); err != nil {
		return err
	}
	_, err := d.exchange(ctx, cmdGenerateCharacter, []byte{byte(buf)}, 0)
	return err
}

// GenerateTemplate combines both character buffers into a template, written
// back to both buffers.
func (d *Device) GenerateTemplate(ctx context.Context) error {
	_, err := d.exchange(ctx, cmdGenerateTemplate, nil, 0)
	return err
}
