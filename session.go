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
	"encoding/binary"
	"fmt"
)

// Session is the connection context threaded through every command: the
// framing address, credentials, negotiated link settings and the result
// fields of the most recent operations.
type Session struct {
	// Address frames every packet and must match on every reply. Only
	// SetAddress changes it.
	Address uint32
	// Password is only ever sent by VerifyPassword and SetPassword.
	Password uint32
	// BaudRate is the rate the driver believes the link runs at.
	BaudRate int
	// SecurityLevel is the matching threshold, 1 (lenient) to 5 (strict).
	SecurityLevel int
	// DataPacketLength bounds response payloads and data packet chunks.
	DataPacketLength int

	LastConfirmationCode ConfirmationCode
	// FingerID is the 1-based location of the last match. 0 means no match.
	FingerID       int
	MatchScore     int
	TemplateCount  int
	StatusRegister StatusRegister
}

// clearMatch resets the search and match results. 0 is never a location.
func (s *Session) clearMatch() {
	s.FingerID = 0
	s.MatchScore = 0
}

// StatusRegister is the sensor's 16-bit status word.
type StatusRegister uint16

const (
	statusBusy      StatusRegister = 1 << 0
	statusPass      StatusRegister = 1 << 1
	statusPWD       StatusRegister = 1 << 2
	statusImgBufSta StatusRegister = 1 << 3
)

// Busy reports that the sensor is executing a command.
func (s StatusRegister) Busy() bool { return s&statusBusy != 0 }

// Matched reports that the last match succeeded.
func (s StatusRegister) Matched() bool { return s&statusPass != 0 }

// PasswordVerified reports that the handshake password was accepted.
func (s StatusRegister) PasswordVerified() bool { return s&statusPWD != 0 }

// ImageBufferValid reports that the image buffer holds a valid image.
func (s StatusRegister) ImageBufferValid() bool { return s&statusImgBufSta != 0 }

func (s StatusRegister) String() string {
	return fmt.Sprintf("0x%04X[busy=%t matched=%t pwd=%t img=%t]",
		uint16(s), s.Busy(), s.Matched(), s.PasswordVerified(), s.ImageBufferValid())
}

// SystemParameters is the decoded read-system-parameters reply.
type SystemParameters struct {
	StatusRegister   StatusRegister
	SystemID         uint16
	LibrarySize      int
	SecurityLevel    int
	DeviceAddress    uint32
	DataPacketLength int
	BaudRate         int
}

const sysParaLength = 16

// packetLengthCodes maps the sensor's data length register to bytes.
var packetLengthCodes = [...]int{32, 64, 128, 256}

func dataLengthCode(n int) (byte, bool) {
	for i, v := range packetLengthCodes {
		if v == n {
			return byte(i), true
		}
	}
	return 0, false
}

// parseSystemParameters decodes the 16-byte reply. The payload is held
// least-significant first, so the status word sits at the top.
func parseSystemParameters(p []byte) (SystemParameters, error) {
	if len(p) < sysParaLength {
		return SystemParameters{}, fmt.Errorf("%w: system parameters need %d bytes, got %d",
			ErrBadPacket, sysParaLength, len(p))
	}
	sp := SystemParameters{
		StatusRegister: StatusRegister(binary.LittleEndian.Uint16(p[14:16])),
		SystemID:       binary.LittleEndian.Uint16(p[12:14]),
		LibrarySize:    int(binary.LittleEndian.Uint16(p[10:12])),
		SecurityLevel:  int(p[8]),
		DeviceAddress:  binary.LittleEndian.Uint32(p[4:8]),
		BaudRate:       int(p[0]) * baudUnit,
	}
	if code := int(p[2]); code < len(packetLengthCodes) {
		sp.DataPacketLength = packetLengthCodes[code]
	} else {
		return sp, fmt.Errorf("%w: data length code %d", ErrBadPacket, code)
	}
	return sp, nil
}
