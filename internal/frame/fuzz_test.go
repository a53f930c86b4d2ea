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

package frame

import "testing"

// Run with: go test -fuzz=FuzzDecode -fuzztime=30s ./internal/frame/

// FuzzDecode feeds arbitrary receive buffers to the decoder. Noise on the
// line must never panic and a successful decode must re-encode to the same
// bytes.
func FuzzDecode(f *testing.F) {
	f.Add(Encode(TypeAck, BroadcastAddress, 0x00, nil), 0)
	f.Add(Encode(TypeAck, BroadcastAddress, 0x00, []byte{0x01, 0x00, 0x02, 0x00}), 64)
	f.Add(Encode(TypeData, BroadcastAddress, 0x00, make256(0x11)), 256)
	f.Add([]byte{}, 64)
	f.Add([]byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x07, 0x00, 0x00, 0x00}, 64)
	f.Add([]byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x07, 0xFF, 0xFF, 0x00}, 64)

	f.Fuzz(func(t *testing.T, buf []byte, maxPayload int) {
		if maxPayload < 0 || maxPayload > MaxPayloadLength {
			maxPayload = MaxPayloadLength
		}
		d, n, err := Decode(buf, BroadcastAddress, maxPayload)
		if n > len(buf) {
			t.Fatalf("consumed %d bytes of %d", n, len(buf))
		}
		if err != nil {
			return
		}
		again := Encode(d.Type, d.Address, d.Code, d.Payload)
		if string(again) != string(buf[:n]) {
			t.Fatalf("re-encode mismatch: % X vs % X", again, buf[:n])
		}
	})
}
