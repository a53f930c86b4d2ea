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

package testing

import (
	"bytes"
	"encoding/binary"

	"github.com/ZaparooProject/go-r30x/internal/frame"
)

// processCommand executes one instruction. p is the command payload held
// least-significant byte first, exactly as the host built it.
//
//nolint:gocyclo,cyclop,funlen,revive // one case per instruction
func (v *VirtualR30X) processCommand(op byte, p []byte) {
	switch op {
	case opVerifyPassword:
		if len(p) < 4 || binary.LittleEndian.Uint32(p) != v.password {
			v.passwordVerified = false
			v.respond(codeWrongPassword, nil)
			return
		}
		v.passwordVerified = true
		v.respond(codeOK, nil)

	case opSetPassword:
		if len(p) < 4 {
			v.respond(codeReceiveError, nil)
			return
		}
		v.password = binary.LittleEndian.Uint32(p)
		v.respond(codeOK, nil)

	case opSetAddress:
		if len(p) < 4 {
			v.respond(codeReceiveError, nil)
			return
		}
		v.address = binary.LittleEndian.Uint32(p)
		v.respond(codeOK, nil)

	case opSetSystemParameter:
		v.setSystemParameter(p)

	case opReadSystemParameters:
		v.respond(codeOK, v.systemParameters())

	case opPortControl:
		if len(p) < 1 || p[0] > 1 {
			v.respond(codeReceiveError, nil)
			return
		}
		v.respond(codeOK, nil)
		v.portDisabled = p[0] == 0

	case opGetRandomCode:
		v.randomState ^= v.randomState << 13
		v.randomState ^= v.randomState >> 17
		v.randomState ^= v.randomState << 5
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, v.randomState)
		v.respond(codeOK, out)

	case opGenerateImage:
		v.respond(v.capture(), nil)

	case opGenerateCharacter:
		buf, ok := v.bufferArg(p, 0)
		if !ok {
			return
		}
		if v.image == nil {
			v.respond(codeNoValidImage, nil)
			return
		}
		v.charBuf[buf] = featuresOf(v.image)
		v.respond(codeOK, nil)

	case opGenerateTemplate:
		if v.charBuf[1] == nil || !bytes.Equal(v.charBuf[1], v.charBuf[2]) {
			v.respond(codeCombineFail, nil)
			return
		}
		v.charBuf[2] = append([]byte(nil), v.charBuf[1]...)
		v.respond(codeOK, nil)

	case opMatchTemplates:
		v.lastMatch = v.charBuf[1] != nil && bytes.Equal(v.charBuf[1], v.charBuf[2])
		if !v.lastMatch {
			v.respond(codeNoMatch, []byte{0, 0})
			return
		}
		v.respond(codeOK, le16(matchScore))

	case opSearchLibrary, opHighSpeedSearch:
		if len(p) < 5 {
			v.respond(codeReceiveError, nil)
			return
		}
		buf, ok := v.bufferArg(p, 4)
		if !ok {
			return
		}
		count := int(binary.LittleEndian.Uint16(p[0:2]))
		start := int(binary.LittleEndian.Uint16(p[2:4]))
		v.search(v.charBuf[buf], start, count)

	case opCaptureRangeSearch:
		if len(p) < 5 {
			v.respond(codeReceiveError, nil)
			return
		}
		count := int(binary.LittleEndian.Uint16(p[0:2]))
		start := int(binary.LittleEndian.Uint16(p[2:4]))
		v.captureAndSearch(start, count)

	case opCaptureFullSearch:
		v.captureAndSearch(0, v.librarySize)

	case opSaveTemplate:
		page, buf, ok := v.locationArgs(p)
		if !ok {
			return
		}
		if v.charBuf[buf] == nil {
			v.respond(codeInvalidTemplate, nil)
			return
		}
		v.library[page] = append([]byte(nil), v.charBuf[buf]...)
		v.respond(codeOK, nil)

	case opLoadTemplate:
		page, buf, ok := v.locationArgs(p)
		if !ok {
			return
		}
		tmpl, found := v.library[page]
		if !found {
			v.respond(codeInvalidTemplate, nil)
			return
		}
		v.charBuf[buf] = append([]byte(nil), tmpl...)
		v.respond(codeOK, nil)

	case opDeleteTemplate:
		if len(p) < 4 {
			v.respond(codeReceiveError, nil)
			return
		}
		count := int(binary.LittleEndian.Uint16(p[0:2]))
		start := int(binary.LittleEndian.Uint16(p[2:4]))
		if start+count > v.librarySize {
			v.respond(codeBadLocation, nil)
			return
		}
		for page := start; page < start+count; page++ {
			delete(v.library, page)
		}
		v.respond(codeOK, nil)

	case opClearLibrary:
		v.library = make(map[int][]byte)
		v.respond(codeOK, nil)

	case opTemplateCount:
		v.respond(codeOK, le16(len(v.library)))

	case opWriteNotepad:
		if len(p) < 1+notepadPageSize {
			v.respond(codeReceiveError, nil)
			return
		}
		wire := frame.Reverse(p)
		page := int(wire[0])
		if page >= notepadPages {
			v.respond(codeBadNotepadPage, nil)
			return
		}
		copy(v.notepad[page][:], wire[1:1+notepadPageSize])
		v.respond(codeOK, nil)

	case opReadNotepad:
		if len(p) < 1 || int(p[0]) >= notepadPages {
			v.respond(codeBadNotepadPage, nil)
			return
		}
		v.respond(codeOK, frame.Reverse(v.notepad[p[0]][:]))

	case opExportCharacter:
		buf, ok := v.bufferArg(p, 0)
		if !ok {
			return
		}
		if v.charBuf[buf] == nil {
			v.respond(codeInvalidTemplate, nil)
			return
		}
		v.respond(codeOK, nil)
		v.sendStream(v.charBuf[buf])

	case opExportImage:
		if v.image == nil {
			v.respond(codeNoValidImage, nil)
			return
		}
		v.respond(codeOK, nil)
		v.sendStream(v.image)

	case opImportCharacter:
		buf, ok := v.bufferArg(p, 0)
		if !ok {
			return
		}
		v.upload = &upload{op: op, target: buf}
		v.respond(codeOK, nil)

	case opImportImage:
		v.upload = &upload{op: op}
		v.respond(codeOK, nil)

	default:
		v.respond(codeReceiveError, nil)
	}
}

// capture fills the image buffer from the finger on the sensor.
func (v *VirtualR30X) capture() byte {
	if v.finger == nil {
		return codeNoFinger
	}
	v.image = v.finger.Image()
	return codeOK
}

func (v *VirtualR30X) captureAndSearch(start, count int) {
	if code := v.capture(); code != codeOK {
		v.respond(code, []byte{0, 0, 0, 0})
		return
	}
	v.charBuf[1] = featuresOf(v.image)
	v.search(v.charBuf[1], start, count)
}

// search scans pages [start, start+count) for features and replies with
// {score, page} held least-significant first.
func (v *VirtualR30X) search(features []byte, start, count int) {
	if start+count > v.librarySize {
		v.respond(codeBadLocation, []byte{0, 0, 0, 0})
		return
	}
	if features != nil {
		for page := start; page < start+count; page++ {
			if tmpl, ok := v.library[page]; ok && bytes.Equal(tmpl, features) {
				v.lastMatch = true
				v.respond(codeOK, append(le16(matchScore), le16(page)...))
				return
			}
		}
	}
	v.lastMatch = false
	v.respond(codeNotFound, []byte{0, 0, 0, 0})
}

func (v *VirtualR30X) setSystemParameter(p []byte) {
	if len(p) < 2 {
		v.respond(codeReceiveError, nil)
		return
	}
	value, param := int(p[0]), p[1]
	switch param {
	case 4:
		if value < 1 || value > 12 {
			v.respond(codeBadRegisterConfig, nil)
			return
		}
		v.respond(codeOK, nil)
		v.baudMultiple = value
	case 5:
		if value < 1 || value > 5 {
			v.respond(codeBadRegisterConfig, nil)
			return
		}
		v.securityLevel = value
		v.respond(codeOK, nil)
	case 6:
		if value > 3 {
			v.respond(codeBadRegisterConfig, nil)
			return
		}
		v.dataLength = 32 << value
		v.respond(codeOK, nil)
	default:
		v.respond(codeInvalidRegister, nil)
	}
}

// systemParameters builds the 16-byte reply, least-significant byte first.
func (v *VirtualR30X) systemParameters() []byte {
	var status uint16
	if v.lastMatch {
		status |= 1 << 1
	}
	if v.passwordVerified {
		status |= 1 << 2
	}
	if v.image != nil {
		status |= 1 << 3
	}

	p := make([]byte, 16)
	binary.LittleEndian.PutUint16(p[14:16], status)
	binary.LittleEndian.PutUint16(p[12:14], v.systemID)
	binary.LittleEndian.PutUint16(p[10:12], uint16(v.librarySize))
	p[8] = byte(v.securityLevel)
	binary.LittleEndian.PutUint32(p[4:8], v.address)
	for code := byte(0); code < 4; code++ {
		if 32<<code == v.dataLength {
			p[2] = code
		}
	}
	p[0] = byte(v.baudMultiple)
	return p
}

// bufferArg reads a character buffer id at p[i], replying on failure.
func (v *VirtualR30X) bufferArg(p []byte, i int) (byte, bool) {
	if len(p) <= i || (p[i] != 1 && p[i] != 2) {
		v.respond(codeReceiveError, nil)
		return 0, false
	}
	return p[i], true
}

// locationArgs reads {page lo, page hi, buffer} for save and load.
func (v *VirtualR30X) locationArgs(p []byte) (int, byte, bool) {
	if len(p) < 3 {
		v.respond(codeReceiveError, nil)
		return 0, 0, false
	}
	buf, ok := v.bufferArg(p, 2)
	if !ok {
		return 0, 0, false
	}
	page := int(binary.LittleEndian.Uint16(p[0:2]))
	if page >= v.librarySize {
		v.respond(codeBadLocation, nil)
		return 0, 0, false
	}
	return page, buf, true
}

func le16(v int) []byte {
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, uint16(v))
	return out
}
