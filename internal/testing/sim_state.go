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

// PlaceFinger puts a finger on the sensor window.
func (v *VirtualR30X) PlaceFinger(f *VirtualFinger) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.finger = f
}

// RemoveFinger lifts the finger off the sensor.
func (v *VirtualR30X) RemoveFinger() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.finger = nil
}

// SetRequirePassword makes every command other than VerifyPassword fail
// with 0x21 until the password has been verified.
func (v *VirtualR30X) SetRequirePassword(required bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.requirePassword = required
	v.passwordVerified = false
}

// SetPassword changes the stored password without a command round trip.
func (v *VirtualR30X) SetPassword(password uint32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.password = password
}

// SetAddress changes the module address without a command round trip.
func (v *VirtualR30X) SetAddress(address uint32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.address = address
}

// SetDataLength sets the data packet content length (32, 64, 128 or 256).
func (v *VirtualR30X) SetDataLength(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dataLength = n
}

// SetLibrarySize changes the template capacity the sensor reports. Some
// modules report 1500 or 3000 pages.
func (v *VirtualR30X) SetLibrarySize(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.librarySize = n
}

// ForceCode makes every subsequent op command reply with code.
func (v *VirtualR30X) ForceCode(op, code byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.forced[op] = code
}

// ClearForced removes all forced replies.
func (v *VirtualR30X) ClearForced() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.forced = make(map[byte]byte)
}

// InjectChecksumError corrupts the checksum of the next outgoing frame.
func (v *VirtualR30X) InjectChecksumError() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.injectChecksumError = true
}

// DropNextResponse discards the next outgoing frame.
func (v *VirtualR30X) DropNextResponse() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dropNextResponse = true
}

// SetSilent stops the sensor from answering anything.
func (v *VirtualR30X) SetSilent(silent bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.silent = silent
}

// StoreTemplate writes data directly into library page (0-based).
func (v *VirtualR30X) StoreTemplate(page int, data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.library[page] = append([]byte(nil), data...)
}

// Template returns the template stored at page (0-based).
func (v *VirtualR30X) Template(page int) ([]byte, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	t, ok := v.library[page]
	return append([]byte(nil), t...), ok
}

// TemplateCount returns the number of stored templates.
func (v *VirtualR30X) TemplateCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.library)
}

// CharBuffer returns the contents of character buffer 1 or 2.
func (v *VirtualR30X) CharBuffer(id byte) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	if id != 1 && id != 2 {
		return nil
	}
	return append([]byte(nil), v.charBuf[id]...)
}

// Image returns the image buffer.
func (v *VirtualR30X) Image() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.image...)
}

// Notepad returns the contents of a notepad page in wire order.
func (v *VirtualR30X) Notepad(page int) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	if page < 0 || page >= notepadPages {
		return nil
	}
	out := make([]byte, notepadPageSize)
	copy(out, v.notepad[page][:])
	return out
}

// Address returns the current module address.
func (v *VirtualR30X) Address() uint32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.address
}

// Password returns the stored password.
func (v *VirtualR30X) Password() uint32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.password
}

// SecurityLevel returns the configured security level.
func (v *VirtualR30X) SecurityLevel() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.securityLevel
}

// DataLength returns the data packet content length.
func (v *VirtualR30X) DataLength() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dataLength
}

// BaudRate returns the line speed in bits per second.
func (v *VirtualR30X) BaudRate() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.baudMultiple * 9600
}

// PortEnabled reports whether the sensor still answers commands.
func (v *VirtualR30X) PortEnabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.portDisabled
}

// CommandLog returns the instruction codes received so far.
func (v *VirtualR30X) CommandLog() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.commandLog...)
}

// BadFrames returns how many malformed frames or stray bytes were seen.
func (v *VirtualR30X) BadFrames() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.badFrames
}

// Pending returns the number of response bytes not yet read.
func (v *VirtualR30X) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.txBuffer.Len()
}

// Reset returns the sensor to factory state, keeping any placed finger.
func (v *VirtualR30X) Reset() {
	fresh := NewVirtualR30X()
	v.mu.Lock()
	defer v.mu.Unlock()
	finger := v.finger
	v.library = fresh.library
	v.forced = fresh.forced
	v.upload = nil
	v.charBuf = [3][]byte{}
	v.image = nil
	v.commandLog = nil
	v.rxBuffer = nil
	v.txBuffer.Reset()
	v.notepad = [notepadPages][notepadPageSize]byte{}
	v.address = fresh.address
	v.password = fresh.password
	v.randomState = fresh.randomState
	v.librarySize = fresh.librarySize
	v.securityLevel = fresh.securityLevel
	v.dataLength = fresh.dataLength
	v.baudMultiple = fresh.baudMultiple
	v.badFrames = 0
	v.systemID = fresh.systemID
	v.requirePassword = false
	v.passwordVerified = false
	v.lastMatch = false
	v.portDisabled = false
	v.silent = false
	v.injectChecksumError = false
	v.dropNextResponse = false
	v.finger = finger
}
