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
	"fmt"
	"time"
)

// Instruction codes
const (
	cmdGenerateImage        = 0x01
	cmdGenerateCharacter    = 0x02
	cmdMatchTemplates       = 0x03
	cmdSearchLibrary        = 0x04
	cmdGenerateTemplate     = 0x05
	cmdSaveTemplate         = 0x06
	cmdLoadTemplate         = 0x07
	cmdExportCharacter      = 0x08
	cmdImportCharacter      = 0x09
	cmdExportImage          = 0x0A
	cmdImportImage          = 0x0B
	cmdDeleteTemplate       = 0x0C
	cmdClearLibrary         = 0x0D
	cmdSetSystemParameter   = 0x0E
	cmdReadSystemParameters = 0x0F
	cmdSetPassword          = 0x12
	cmdVerifyPassword       = 0x13
	cmdGetRandomCode        = 0x14
	cmdSetAddress           = 0x15
	cmdPortControl          = 0x17
	cmdWriteNotepad         = 0x18
	cmdReadNotepad          = 0x19
	cmdHighSpeedSearch      = 0x1B
	cmdTemplateCount        = 0x1D
	cmdCaptureRangeSearch   = 0x32
	cmdCaptureFullSearch    = 0x34
)

// System parameter registers written by cmdSetSystemParameter.
const (
	paramBaudRate      = 4
	paramSecurityLevel = 5
	paramDataLength    = 6
)

var commandNames = map[byte]string{
	cmdGenerateImage:        "GenerateImage",
	cmdGenerateCharacter:    "GenerateCharacter",
	cmdMatchTemplates:       "MatchTemplates",
	cmdSearchLibrary:        "SearchLibrary",
	cmdGenerateTemplate:     "GenerateTemplate",
	cmdSaveTemplate:         "SaveTemplate",
	cmdLoadTemplate:         "LoadTemplate",
	cmdExportCharacter:      "ExportCharacter",
	cmdImportCharacter:      "ImportCharacter",
	cmdExportImage:          "ExportImage",
	cmdImportImage:          "ImportImage",
	cmdDeleteTemplate:       "DeleteTemplate",
	cmdClearLibrary:         "ClearLibrary",
	cmdSetSystemParameter:   "SetSystemParameter",
	cmdReadSystemParameters: "ReadSystemParameters",
	cmdSetPassword:          "SetPassword",
	cmdVerifyPassword:       "VerifyPassword",
	cmdGetRandomCode:        "GetRandomCode",
	cmdSetAddress:           "SetAddress",
	cmdPortControl:          "PortControl",
	cmdWriteNotepad:         "WriteNotepad",
	cmdReadNotepad:          "ReadNotepad",
	cmdHighSpeedSearch:      "HighSpeedSearch",
	cmdTemplateCount:        "GetTemplateCount",
	cmdCaptureRangeSearch:   "CaptureAndRangeSearch",
	cmdCaptureFullSearch:    "CaptureAndFullSearch",
}

func commandName(code byte) string {
	if name, ok := commandNames[code]; ok {
		return name
	}
	return fmt.Sprintf("command 0x%02X", code)
}

// Session defaults. Address and password default to the broadcast value.
const (
	DefaultTimeout          = 2000 * time.Millisecond
	DefaultBaudRate         = 57600
	DefaultDataPacketLength = 64
	DefaultSecurityLevel    = 3
	DefaultPassword         = 0xFFFFFFFF
	DefaultAddress          = 0xFFFFFFFF
)

// Limits enforced before anything is sent.
const (
	// LibraryCapacity is the number of template locations, numbered from 1.
	LibraryCapacity = 1000
	// MaxRangeSearchTimeout is the longest capture window the sensor accepts.
	MaxRangeSearchTimeout = 25500 * time.Millisecond
	// NotepadPages is the number of 32-byte user pages.
	NotepadPages    = 16
	NotepadPageSize = 32

	baudUnit        = 9600
	maxBaudMultiple = 12
	minSecurity     = 1
	maxSecurity     = 5

	// rangeSearchStep is the sensor's unit for the capture timeout byte.
	rangeSearchStep = 140 * time.Millisecond
	// rangeSearchSlack is added to the capture window before giving up.
	rangeSearchSlack = 100 * time.Millisecond
	// fullSearchTimeout is the fixed wait for CaptureAndFullSearch.
	fullSearchTimeout = 3000 * time.Millisecond
)
