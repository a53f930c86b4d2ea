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

import (
	"context"
	"fmt"
)

// ExportCharacter downloads the character file (or template) held in buf.
func (d *Device) ExportCharacter(ctx context.Context, buf CharBuffer) ([]byte, error) {
	if err := checkBuffer("ExportCharacter", buf); err != nil {
		return nil, err
	}
	return d.download(ctx, cmdExportCharacter, []byte{byte(buf)})
}

// ImportCharacter uploads a character file into buf.
func (d *Device) ImportCharacter(ctx context.Context, buf CharBuffer, data []byte) error {
	if err := checkBuffer("ImportCharacter", buf); err != nil {
		return err
	}
	if len(data) == 0 {
		return badValue("ImportCharacter", "no data")
	}
	return d.upload(ctx, cmdImportCharacter, []byte{byte(buf)}, data)
}

// ExportImage downloads the raw image buffer.
func (d *Device) ExportImage(ctx context.Context) ([]byte, error) {
	return d.download(ctx, cmdExportImage, nil)
}

// ImportImage uploads a raw image into the image buffer.
func (d *Device) ImportImage(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return badValue("ImportImage", "no data")
	}
	return d.upload(ctx, cmdImportImage, nil, data)
}

// download issues a command and, once the sensor acknowledges it, collects
// the data packets that follow.
func (d *Device) download(ctx context.Context, code byte, payload []byte) ([]byte, error) {
	if _, err := d.exchange(ctx, code, payload, 0); err != nil {
		return nil, err
	}
	data, err := d.receiveDataStream(ctx, 0)
	if err != nil {
		d.session.LastConfirmationCode = CodeOf(err)
		return nil, fmt.Errorf("%s: %w", commandName(code), err)
	}
	d.logf("%s: received %d bytes", commandName(code), len(data))
	return data, nil
}

// upload issues a command and, once the sensor acknowledges it, sends data
// as a packet stream.
func (d *Device) upload(ctx context.Context, code byte, payload, data []byte) error {
	if _, err := d.exchange(ctx, code, payload, 0); err != nil {
		return err
	}
	if err := d.sendDataStream(data); err != nil {
		d.session.LastConfirmationCode = CodeOf(err)
		return fmt.Errorf("%s: %w", commandName(code), err)
	}
	d.logf("%s: sent %d bytes", commandName(code), len(data))
	return nil
}
