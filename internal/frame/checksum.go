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

// Checksum computes the 16-bit packet checksum: the sum of the type byte,
// both length bytes, the code byte and every payload byte, truncated to
// 16 bits. Payload order does not matter for a sum.
func Checksum(typ byte, length uint16, code byte, payload []byte) uint16 {
	sum := uint16(typ) + (length >> 8) + (length & 0xFF) + uint16(code)
	for _, b := range payload {
		sum += uint16(b)
	}
	return sum
}
