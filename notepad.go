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

	"github.com/ZaparooProject/go-r30x/internal/frame"
)

func checkPage(command string, page int) error {
	if page < 0 || page >= NotepadPages {
		return badValue(command, "page must be 0..%d, got %d", NotepadPages-1, page)
	}
	return nil
}

// WriteNotepad stores up to 32 bytes of user data in page. Shorter data is
// zero padded.
func (d *Device) WriteNotepad(ctx context.Context, page int, data []byte) error {
	if err := checkPage("WriteNotepad", page); err != nil {
		return err
	}
	if len(data) > NotepadPageSize {
		return badValue("WriteNotepad", "data is %d bytes, page holds %d", len(data), NotepadPageSize)
	}
	wire := make([]byte, 1+NotepadPageSize)
	wire[0] = byte(page)
	copy(wire[1:], data)
	_, err := d.exchange(ctx, cmdWriteNotepad, frame.Reverse(wire), 0)
	return err
}

// ReadNotepad returns the 32 bytes stored in page.
func (d *Device) ReadNotepad(ctx context.Context, page int) ([]byte, error) {
	if err := checkPage("ReadNotepad", page); err != nil {
		return nil, err
	}
	pkt, err := d.exchange(ctx, cmdReadNotepad, []byte{byte(page)}, 0)
	if err != nil {
		return nil, err
	}
	if err := expectPayload("ReadNotepad", pkt, NotepadPageSize); err != nil {
		return nil, err
	}
	return frame.Reverse(pkt.Payload)[:NotepadPageSize], nil
}
