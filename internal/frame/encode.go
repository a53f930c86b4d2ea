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

// Encode builds the wire bytes of one packet.
//
// The payload is given least-significant byte first, the way multi-byte
// register values are laid out in the module, and is emitted in reverse so
// that every numeric field appears high byte first on the wire.
func Encode(typ byte, address uint32, code byte, payload []byte) []byte {
	length := uint16(len(payload) + Overhead)
	sum := Checksum(typ, length, code, payload)

	out := make([]byte, 0, HeaderLength+int(length))
	out = append(out,
		StartCodeHigh, StartCodeLow,
		byte(address>>24), byte(address>>16), byte(address>>8), byte(address),
		typ,
		byte(length>>8), byte(length),
		code,
	)
	for i := len(payload) - 1; i >= 0; i-- {
		out = append(out, payload[i])
	}
	return append(out, byte(sum>>8), byte(sum))
}

// Reverse returns a reversed copy of b. It converts between the codec's
// payload order and wire order for opaque data.
func Reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
