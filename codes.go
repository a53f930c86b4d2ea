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

import "fmt"

// ConfirmationCode is the single result byte the sensor returns for every
// command. Values at or above 0xF0 never come from the sensor; the driver
// uses them to report host-side outcomes through the same type.
type ConfirmationCode byte

// Sensor confirmation codes.
const (
	CodeOK                   ConfirmationCode = 0x00
	CodeReceiveError         ConfirmationCode = 0x01
	CodeNoFinger             ConfirmationCode = 0x02
	CodeEnrollFail           ConfirmationCode = 0x03
	CodeImageDisorder        ConfirmationCode = 0x04
	CodeImageWet             ConfirmationCode = 0x05
	CodeImageDisorder2       ConfirmationCode = 0x06
	CodeFeatureFail          ConfirmationCode = 0x07
	CodeNoMatch              ConfirmationCode = 0x08
	CodeNotFound             ConfirmationCode = 0x09
	CodeCombineFail          ConfirmationCode = 0x0A
	CodeBadLocation          ConfirmationCode = 0x0B
	CodeInvalidTemplate      ConfirmationCode = 0x0C
	CodeTemplateUploadFail   ConfirmationCode = 0x0D
	CodePacketRejected       ConfirmationCode = 0x0E
	CodeImageUploadFail      ConfirmationCode = 0x0F
	CodeDeleteFail           ConfirmationCode = 0x10
	CodeClearFail            ConfirmationCode = 0x11
	CodeWrongPassword        ConfirmationCode = 0x13
	CodeNoValidImage         ConfirmationCode = 0x15
	CodeFlashWriteError      ConfirmationCode = 0x18
	CodeNoDefinition         ConfirmationCode = 0x19
	CodeInvalidRegister      ConfirmationCode = 0x1A
	CodeBadRegisterConfig    ConfirmationCode = 0x1B
	CodeBadNotepadPage       ConfirmationCode = 0x1C
	CodePortError            ConfirmationCode = 0x1D
	CodeAddressChanged       ConfirmationCode = 0x20
	CodeMustVerifyPassword   ConfirmationCode = 0x21
	CodeSecondScanNoFinger   ConfirmationCode = 0x41
	CodeSecondEnrollFail     ConfirmationCode = 0x42
	CodeSecondFeatureFail    ConfirmationCode = 0x43
	CodeSecondImageDisorder  ConfirmationCode = 0x44
	CodeDuplicateFingerprint ConfirmationCode = 0x45
)

// Host-local codes. These are never put on the wire.
const (
	CodeTimeout       ConfirmationCode = 0xF1
	CodeBadPacket     ConfirmationCode = 0xF2
	CodeWrongResponse ConfirmationCode = 0xF3
	CodeBadValue      ConfirmationCode = 0xF4
)

var codeMeanings = map[ConfirmationCode]string{
	CodeOK:                   "success",
	CodeReceiveError:         "packet receive error",
	CodeNoFinger:             "no finger detected",
	CodeEnrollFail:           "failed to enroll finger",
	CodeImageDisorder:        "image too disorderly to generate character file",
	CodeImageWet:             "image too wet to generate character file",
	CodeImageDisorder2:       "image too disorderly to generate character file",
	CodeFeatureFail:          "not enough features to generate character file",
	CodeNoMatch:              "fingers do not match",
	CodeNotFound:             "no matching template found",
	CodeCombineFail:          "failed to combine character files",
	CodeBadLocation:          "location beyond library",
	CodeInvalidTemplate:      "template invalid or unreadable",
	CodeTemplateUploadFail:   "template upload failed",
	CodePacketRejected:       "sensor cannot accept more packets",
	CodeImageUploadFail:      "image upload failed",
	CodeDeleteFail:           "failed to delete template",
	CodeClearFail:            "failed to clear library",
	CodeWrongPassword:        "wrong password",
	CodeNoValidImage:         "no valid primary image",
	CodeFlashWriteError:      "flash write error",
	CodeNoDefinition:         "no definition error",
	CodeInvalidRegister:      "invalid register number",
	CodeBadRegisterConfig:    "incorrect register configuration",
	CodeBadNotepadPage:       "wrong notepad page",
	CodePortError:            "communication port operation failed",
	CodeAddressChanged:       "address changed",
	CodeMustVerifyPassword:   "password must be verified first",
	CodeSecondScanNoFinger:   "no finger on second scan",
	CodeSecondEnrollFail:     "failed to enroll second scan",
	CodeSecondFeatureFail:    "not enough features on second scan",
	CodeSecondImageDisorder:  "second scan too disorderly",
	CodeDuplicateFingerprint: "fingerprint already enrolled",
	CodeTimeout:              "no response from sensor",
	CodeBadPacket:            "malformed response packet",
	CodeWrongResponse:        "unexpected response packet",
	CodeBadValue:             "invalid argument",
}

// String returns a human-readable meaning for the code.
func (c ConfirmationCode) String() string {
	if m, ok := codeMeanings[c]; ok {
		return m
	}
	return fmt.Sprintf("unknown code 0x%02X", byte(c))
}

// IsHostLocal reports whether c was produced by the driver rather than the sensor.
func (c ConfirmationCode) IsHostLocal() bool {
	return c >= 0xF0
}
