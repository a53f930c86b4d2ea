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

// Init runs the startup sequence against a freshly opened sensor: verify
// the configured password, read the system parameters into the session and
// count the stored templates. ConnectDevice calls it as its handshake.
func (d *Device) Init(ctx context.Context) error {
	if err := d.VerifyPassword(ctx, d.config.Password); err != nil {
		return err
	}

	sp, err := d.ReadSystemParameters(ctx)
	if err != nil {
		return err
	}
	if sp.DeviceAddress != d.session.Address {
		d.logf("sensor reports address 0x%08X, session uses 0x%08X", sp.DeviceAddress, d.session.Address)
	}

	if _, err := d.GetTemplateCount(ctx); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	d.logf("sensor ready: %d/%d templates, security %d, %d-byte packets at %d baud",
		d.session.TemplateCount, sp.LibrarySize, sp.SecurityLevel, sp.DataPacketLength, sp.BaudRate)
	return nil
}
