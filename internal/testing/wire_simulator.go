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

// Package testing provides test utilities including a wire-level R30X
// simulator.
//
// VirtualR30X implements io.ReadWriter and behaves like the sensor at the
// packet level: it decodes command frames, keeps a template library, two
// character buffers, an image buffer and the notepad, and answers with Ack
// frames and data packet streams. Fingers are modelled by VirtualFinger;
// the same finger always yields the same image and character file.
package testing

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/ZaparooProject/go-r30x/internal/frame"
	"github.com/ZaparooProject/go-r30x/internal/syncutil"
)

// Instruction codes understood by the simulator.
const (
	opGenerateImage        = 0x01
	opGenerateCharacter    = 0x02
	opMatchTemplates       = 0x03
	opSearchLibrary        = 0x04
	opGenerateTemplate     = 0x05
	opSaveTemplate         = 0x06
	opLoadTemplate         = 0x07
	opExportCharacter      = 0x08
	opImportCharacter      = 0x09
	opExportImage          = 0x0A
	opImportImage          = 0x0B
	opDeleteTemplate       = 0x0C
	opClearLibrary         = 0x0D
	opSetSystemParameter   = 0x0E
	opReadSystemParameters = 0x0F
	opSetPassword          = 0x12
	opVerifyPassword       = 0x13
	opGetRandomCode        = 0x14
	opSetAddress           = 0x15
	opPortControl          = 0x17
	opWriteNotepad         = 0x18
	opReadNotepad          = 0x19
	opHighSpeedSearch      = 0x1B
	opTemplateCount        = 0x1D
	opCaptureRangeSearch   = 0x32
	opCaptureFullSearch    = 0x34
)

// Confirmation codes the simulator emits.
const (
	codeOK                 = 0x00
	codeReceiveError       = 0x01
	codeNoFinger           = 0x02
	codeNoMatch            = 0x08
	codeNotFound           = 0x09
	codeCombineFail        = 0x0A
	codeBadLocation        = 0x0B
	codeInvalidTemplate    = 0x0C
	codePacketRejected     = 0x0E
	codeWrongPassword      = 0x13
	codeNoValidImage       = 0x15
	codeInvalidRegister    = 0x1A
	codeBadRegisterConfig  = 0x1B
	codeBadNotepadPage     = 0x1C
	codeMustVerifyPassword = 0x21
)

// Simulated buffer sizes. Real sensors use 36864-byte images; a smaller
// image keeps streams short while still spanning several data packets.
const (
	CharFileSize = 512
	ImageSize    = 1152

	notepadPages    = 16
	notepadPageSize = 32
	matchScore      = 180
)

// Defaults reported by a fresh simulator.
const (
	DefaultAddress     uint32 = 0xFFFFFFFF
	DefaultPassword    uint32 = 0xFFFFFFFF
	DefaultLibrarySize        = 1000
	DefaultSystemID    uint16 = 0x0009
)

// VirtualFinger is a finger that can be placed on the simulated sensor.
type VirtualFinger struct {
	Name string
}

// NewVirtualFinger creates a finger identified by name.
func NewVirtualFinger(name string) *VirtualFinger {
	return &VirtualFinger{Name: name}
}

// Image returns the raw image this finger produces.
func (f *VirtualFinger) Image() []byte {
	return expand([]byte("image:"+f.Name), ImageSize)
}

// Features returns the character file extracted from this finger's image.
func (f *VirtualFinger) Features() []byte {
	return featuresOf(f.Image())
}

func featuresOf(image []byte) []byte {
	return expand(image, CharFileSize)
}

// expand stretches a seed into n deterministic bytes.
func expand(seed []byte, n int) []byte {
	out := make([]byte, 0, n+sha256.Size)
	block := sha256.Sum256(seed)
	for len(out) < n {
		out = append(out, block[:]...)
		block = sha256.Sum256(block[:])
	}
	return out[:n]
}

// upload tracks an import waiting for its data packets.
type upload struct {
	data   []byte
	op     byte
	target byte
}

// VirtualR30X simulates an R30X sensor at the wire protocol level.
// It implements io.ReadWriter to plug directly into transport layer tests.
// Read returns (0, nil) while no response is pending.
type VirtualR30X struct {
	library             map[int][]byte
	forced              map[byte]byte
	finger              *VirtualFinger
	upload              *upload
	charBuf             [3][]byte
	image               []byte
	commandLog          []byte
	rxBuffer            []byte
	txBuffer            bytes.Buffer
	notepad             [notepadPages][notepadPageSize]byte
	mu                  syncutil.Mutex
	address             uint32
	password            uint32
	randomState         uint32
	librarySize         int
	securityLevel       int
	dataLength          int
	baudMultiple        int
	badFrames           int
	systemID            uint16
	requirePassword     bool
	passwordVerified    bool
	lastMatch           bool
	portDisabled        bool
	silent              bool
	injectChecksumError bool
	dropNextResponse    bool
}

// NewVirtualR30X creates a sensor with factory settings: broadcast address
// and password, security level 3, 128-byte packets, 57600 baud, empty library.
func NewVirtualR30X() *VirtualR30X {
	return &VirtualR30X{
		library:       make(map[int][]byte),
		forced:        make(map[byte]byte),
		address:       DefaultAddress,
		password:      DefaultPassword,
		librarySize:   DefaultLibrarySize,
		systemID:      DefaultSystemID,
		securityLevel: 3,
		dataLength:    128,
		baudMultiple:  6,
		randomState:   0x2545F491,
	}
}

// Write implements io.Writer - receives bytes from the host.
func (v *VirtualR30X) Write(data []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.rxBuffer = append(v.rxBuffer, data...)
	v.processReceivedData()
	return len(data), nil
}

// Read implements io.Reader - returns response bytes to the host.
func (v *VirtualR30X) Read(buf []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.txBuffer.Len() == 0 {
		return 0, nil
	}
	return v.txBuffer.Read(buf) //nolint:wrapcheck // bytes.Buffer only fails on empty
}

// processReceivedData consumes every complete frame in the receive buffer.
// Bytes that cannot start a frame are skipped one at a time.
func (v *VirtualR30X) processReceivedData() {
	for len(v.rxBuffer) > 0 {
		if v.rxBuffer[0] != frame.StartCodeHigh ||
			(len(v.rxBuffer) > 1 && v.rxBuffer[1] != frame.StartCodeLow) {
			v.rxBuffer = v.rxBuffer[1:]
			v.badFrames++
			continue
		}
		if !frame.Complete(v.rxBuffer) {
			return
		}

		size := frame.HeaderLength + int(binary.BigEndian.Uint16(v.rxBuffer[7:9]))
		d, _, err := frame.Decode(v.rxBuffer[:size], v.address, 0)
		v.rxBuffer = v.rxBuffer[size:]

		switch {
		case err == nil:
			v.handlePacket(d)
		case errors.Is(err, frame.ErrAddress):
			// addressed to another sensor on the bus
		default:
			v.badFrames++
			if !v.silent && !v.portDisabled {
				v.respond(codeReceiveError, nil)
			}
		}
	}
}

func (v *VirtualR30X) handlePacket(d frame.Decoded) {
	if d.Type == frame.TypeData || d.Type == frame.TypeEndOfData {
		v.receiveData(d)
		return
	}
	if d.Type != frame.TypeCommand {
		return
	}

	v.commandLog = append(v.commandLog, d.Code)
	if v.silent || v.portDisabled {
		return
	}
	if code, ok := v.forced[d.Code]; ok {
		v.respond(code, nil)
		return
	}
	if v.requirePassword && !v.passwordVerified && d.Code != opVerifyPassword {
		v.respond(codeMustVerifyPassword, nil)
		return
	}
	v.processCommand(d.Code, d.Payload)
}

// receiveData collects an import stream. The wire content of a data packet
// starts in the code position.
func (v *VirtualR30X) receiveData(d frame.Decoded) {
	if v.upload == nil {
		v.badFrames++
		return
	}
	v.upload.data = append(v.upload.data, d.Code)
	v.upload.data = append(v.upload.data, frame.Reverse(d.Payload)...)
	if d.Type != frame.TypeEndOfData {
		return
	}

	up := v.upload
	v.upload = nil
	switch up.op {
	case opImportCharacter:
		v.charBuf[up.target] = up.data
	case opImportImage:
		v.image = up.data
	}
}

// respond queues an Ack frame. payload is least-significant byte first.
func (v *VirtualR30X) respond(code byte, payload []byte) {
	v.queueFrame(frame.TypeAck, code, payload)
}

func (v *VirtualR30X) queueFrame(typ, code byte, payload []byte) {
	if v.dropNextResponse {
		v.dropNextResponse = false
		return
	}
	out := frame.Encode(typ, v.address, code, payload)
	if v.injectChecksumError {
		v.injectChecksumError = false
		out[len(out)-1] ^= 0xFF
	}
	v.txBuffer.Write(out)
}

// sendStream queues data as Data packets closed by an EndOfData packet.
func (v *VirtualR30X) sendStream(data []byte) {
	for off := 0; off < len(data); off += v.dataLength {
		end := min(off+v.dataLength, len(data))
		typ := byte(frame.TypeData)
		if end == len(data) {
			typ = frame.TypeEndOfData
		}
		chunk := data[off:end]
		v.queueFrame(typ, chunk[0], frame.Reverse(chunk[1:]))
	}
}
