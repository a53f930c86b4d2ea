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

// Start code that opens every packet, high byte first on the wire.
const (
	StartCode     = 0xEF01
	StartCodeHigh = 0xEF
	StartCodeLow  = 0x01
)

// Packet identifiers carried in the type byte.
const (
	TypeCommand   = 0x01
	TypeData      = 0x02
	TypeAck       = 0x07
	TypeEndOfData = 0x08
)

// Frame layout
const (
	// HeaderLength covers start code, address, type and length field.
	HeaderLength = 9
	// MinFrameLength is the smallest buffer worth scanning: header plus the
	// confirmation byte.
	MinFrameLength = HeaderLength + 1
	// Overhead is what the length field counts besides the payload
	// (code byte + 2 checksum bytes).
	Overhead = 3
	// MaxPayloadLength is the largest data packet size the sensor supports.
	MaxPayloadLength = 256
	// MaxFrameLength bounds a single frame on the wire.
	MaxFrameLength = HeaderLength + Overhead + MaxPayloadLength
)

// BroadcastAddress is the factory default module address.
const BroadcastAddress uint32 = 0xFFFFFFFF

// IsKnownType reports whether b is one of the four packet identifiers.
func IsKnownType(b byte) bool {
	switch b {
	case TypeCommand, TypeData, TypeAck, TypeEndOfData:
		return true
	default:
		return false
	}
}
