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
	"context"
	"encoding/binary"
	"errors"
	"fmt"
)

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// VerifyPassword performs the handshake. Most sensors refuse every other
// command until the right password has been presented.
func (d *Device) VerifyPassword(ctx context.Context, password uint32) error {
	if _, err := d.exchange(ctx, cmdVerifyPassword, le32(password), 0); err != nil {
		return err
	}
	d.session.Password = password
	return nil
}

// SetPassword changes the sensor password.
func (d *Device) SetPassword(ctx context.Context, password uint32) error {
	if _, err := d.exchange(ctx, cmdSetPassword, le32(password), 0); err != nil {
		return err
	}
	d.session.Password = password
	return nil
}

// SetAddress changes the sensor address. The sensor answers from the new
// address, so the session switches before the reply is read and keeps the
// new address even if the reply never arrives. CodeAddressChanged counts as
// success.
func (d *Device) SetAddress(ctx context.Context, address uint32) error {
	payload := le32(address)
	d.trace.Clear()
	if err := d.sendPacket(PacketCommand, cmdSetAddress, payload); err != nil {
		d.session.LastConfirmationCode = CodeOf(err)
		return fmt.Errorf("SetAddress: %w", err)
	}
	d.session.Address = address

	pkt, err := d.receivePacket(ctx, 0)
	if err != nil {
		d.session.LastConfirmationCode = CodeOf(err)
		return fmt.Errorf("SetAddress: %w", err)
	}
	d.session.LastConfirmationCode = pkt.Confirmation()
	switch pkt.Confirmation() {
	case CodeOK, CodeAddressChanged:
		d.logf("address set to 0x%08X", address)
		return nil
	default:
		return &SensorError{Command: "SetAddress", Code: pkt.Confirmation()}
	}
}

// SetBaudRate switches the sensor to baud (9600 x 1..12) and then reopens the
// transport at that rate.
func (d *Device) SetBaudRate(ctx context.Context, baud int) error {
	n, err := baudMultiple(baud)
	if err != nil {
		return fmt.Errorf("SetBaudRate: %w", err)
	}
	if _, err := d.exchange(ctx, cmdSetSystemParameter, []byte{n, paramBaudRate}, 0); err != nil {
		return err
	}
	d.session.BaudRate = baud
	if err := d.transport.SetBaudRate(baud); err != nil {
		return fmt.Errorf("SetBaudRate: sensor switched to %d but transport did not: %w", baud, err)
	}
	return nil
}

// SetSecurityLevel sets the matching threshold, 1 (lenient) to 5 (strict).
func (d *Device) SetSecurityLevel(ctx context.Context, level int) error {
	if level < minSecurity || level > maxSecurity {
		return badValue("SetSecurityLevel", "level must be %d..%d, got %d", minSecurity, maxSecurity, level)
	}
	if _, err := d.exchange(ctx, cmdSetSystemParameter, []byte{byte(level), paramSecurityLevel}, 0); err != nil {
		return err
	}
	d.session.SecurityLevel = level
	return nil
}

// SetDataLength sets the data packet size to 32, 64, 128 or 256 bytes.
func (d *Device) SetDataLength(ctx context.Context, length int) error {
	code, ok := dataLengthCode(length)
	if !ok {
		return badValue("SetDataLength", "length must be 32, 64, 128 or 256, got %d", length)
	}
	if _, err := d.exchange(ctx, cmdSetSystemParameter, []byte{code, paramDataLength}, 0); err != nil {
		return err
	}
	d.session.DataPacketLength = length
	return nil
}

// PortControl enables or disables the sensor's UART. Disabling it leaves
// the sensor deaf until power cycled.
func (d *Device) PortControl(ctx context.Context, enable bool) error {
	var v byte
	if enable {
		v = 1
	}
	_, err := d.exchange(ctx, cmdPortControl, []byte{v}, 0)
	return err
}

// ReadSystemParameters reads the sensor's configuration and refreshes the
// session's security level, data packet length, baud rate and status.
func (d *Device) ReadSystemParameters(ctx context.Context) (SystemParameters, error) {
	pkt, err := d.exchange(ctx, cmdReadSystemParameters, nil, 0)
	if err != nil {
		return SystemParameters{}, err
	}
	sp, err := parseSystemParameters(pkt.Payload)
	if err != nil {
		return SystemParameters{}, fmt.Errorf("ReadSystemParameters: %w", err)
	}

	d.session.StatusRegister = sp.StatusRegister
	d.session.SecurityLevel = sp.SecurityLevel
	d.session.DataPacketLength = sp.DataPacketLength
	d.session.BaudRate = sp.BaudRate
	return sp, nil
}

// GetRandomCode asks the sensor's generator for a 32-bit random number.
func (d *Device) GetRandomCode(ctx context.Context) (uint32, error) {
	pkt, err := d.exchange(ctx, cmdGetRandomCode, nil, 0)
	if err != nil {
		return 0, err
	}
	if err := expectPayload("GetRandomCode", pkt, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(pkt.Payload[:4]), nil
}

// IsSensorCode reports whether err is a sensor report carrying code.
func IsSensorCode(err error, code ConfirmationCode) bool {
	var se *SensorError
	return errors.As(err, &se) && se.Code == code
}
