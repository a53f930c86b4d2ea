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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgumentValidation_NoIO(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tests := []struct {
		call func(d *Device) error
		name string
	}{
		{name: "security 0", call: func(d *Device) error { return d.SetSecurityLevel(ctx, 0) }},
		{name: "security 6", call: func(d *Device) error { return d.SetSecurityLevel(ctx, 6) }},
		{name: "data length 48", call: func(d *Device) error { return d.SetDataLength(ctx, 48) }},
		{name: "baud 0", call: func(d *Device) error { return d.SetBaudRate(ctx, 0) }},
		{name: "baud 124800", call: func(d *Device) error { return d.SetBaudRate(ctx, 124800) }},
		{name: "baud 10000", call: func(d *Device) error { return d.SetBaudRate(ctx, 10000) }},
		{name: "buffer 0", call: func(d *Device) error { return d.GenerateCharacter(ctx, 0) }},
		{name: "buffer 3", call: func(d *Device) error { return d.SaveTemplate(ctx, 3, 1) }},
		{name: "location 0", call: func(d *Device) error { return d.SaveTemplate(ctx, CharBuffer1, 0) }},
		{name: "location 1001", call: func(d *Device) error { return d.LoadTemplate(ctx, CharBuffer1, 1001) }},
		{name: "delete 1000+2", call: func(d *Device) error { return d.DeleteTemplate(ctx, 1000, 2) }},
		{name: "delete count 0", call: func(d *Device) error { return d.DeleteTemplate(ctx, 1, 0) }},
		{name: "search past end", call: func(d *Device) error {
			_, err := d.SearchLibrary(ctx, CharBuffer1, 500, 502)
			return err
		}},
		{name: "range search timeout", call: func(d *Device) error {
			_, err := d.CaptureAndRangeSearch(ctx, 26*time.Second, 1, 10)
			return err
		}},
		{name: "notepad page 16", call: func(d *Device) error { return d.WriteNotepad(ctx, 16, nil) }},
		{name: "notepad page -1", call: func(d *Device) error {
			_, err := d.ReadNotepad(ctx, -1)
			return err
		}},
		{name: "notepad 33 bytes", call: func(d *Device) error { return d.WriteNotepad(ctx, 0, make([]byte, 33)) }},
		{name: "import empty", call: func(d *Device) error { return d.ImportCharacter(ctx, CharBuffer1, nil) }},
		{name: "import image empty", call: func(d *Device) error { return d.ImportImage(ctx, nil) }},
		{name: "export buffer 9", call: func(d *Device) error {
			_, err := d.ExportCharacter(ctx, 9)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dev, mock := newMockDevice(t)
			err := tt.call(dev)
			require.ErrorIs(t, err, ErrBadValue)
			assert.Equal(t, CodeBadValue, CodeOf(err))
			assert.Zero(t, mock.WriteCount())
		})
	}
}

func TestArgumentValidation_Boundaries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tests := []struct {
		call func(d *Device) error
		name string
	}{
		{name: "security 1", call: func(d *Device) error { return d.SetSecurityLevel(ctx, 1) }},
		{name: "security 5", call: func(d *Device) error { return d.SetSecurityLevel(ctx, 5) }},
		{name: "data length 32", call: func(d *Device) error { return d.SetDataLength(ctx, 32) }},
		{name: "data length 256", call: func(d *Device) error { return d.SetDataLength(ctx, 256) }},
		{name: "delete 1000+1", call: func(d *Device) error { return d.DeleteTemplate(ctx, 1000, 1) }},
		{name: "location 1000", call: func(d *Device) error { return d.SaveTemplate(ctx, CharBuffer2, 1000) }},
		{name: "baud 115200", call: func(d *Device) error { return d.SetBaudRate(ctx, 115200) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dev, mock := newMockDevice(t)
			mock.Queue(ack(CodeOK))
			require.NoError(t, tt.call(dev))
			assert.Equal(t, 1, mock.WriteCount())
		})
	}
}

func TestSetAddress_SwitchesBeforeReply(t *testing.T) {
	t.Parallel()

	dev, mock := newMockDevice(t)
	mock.QueueAck(0x12345678, CodeOK, nil)

	require.NoError(t, dev.SetAddress(context.Background(), 0x12345678))
	assert.Equal(t, uint32(0x12345678), dev.Session().Address)

	// the command itself still went to the old address
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, mock.LastWrite()[2:6])
}

func TestSetAddress_AddressChangedIsSuccess(t *testing.T) {
	t.Parallel()

	dev, mock := newMockDevice(t)
	mock.QueueAck(0x01, CodeAddressChanged, nil)

	require.NoError(t, dev.SetAddress(context.Background(), 0x01))
	assert.Equal(t, CodeAddressChanged, dev.Session().LastConfirmationCode)
}

func TestSetAddress_KeepsAddressOnTimeout(t *testing.T) {
	t.Parallel()

	dev, _ := newMockDevice(t, WithTimeout(10*time.Millisecond))

	err := dev.SetAddress(context.Background(), 0x42)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, uint32(0x42), dev.Session().Address)
}

func TestSetBaudRate_ReopensTransport(t *testing.T) {
	t.Parallel()

	dev, mock := newMockDevice(t)
	mock.Queue(ack(CodeOK))

	require.NoError(t, dev.SetBaudRate(context.Background(), 115200))
	assert.Equal(t, []int{115200}, mock.BaudRates())
	assert.Equal(t, 115200, dev.Session().BaudRate)

	// {multiple, register} reversed on the wire
	w := mock.LastWrite()
	assert.Equal(t, []byte{0x0E, 0x04, 0x0C}, w[9:12])
}

func TestSetBaudRate_SensorRefuses(t *testing.T) {
	t.Parallel()

	dev, mock := newMockDevice(t)
	mock.Queue(ack(CodeBadRegisterConfig))

	err := dev.SetBaudRate(context.Background(), 19200)
	require.Error(t, err)
	assert.True(t, IsSensorCode(err, CodeBadRegisterConfig))
	assert.Empty(t, mock.BaudRates())
	assert.Equal(t, DefaultBaudRate, dev.Session().BaudRate)
}

func TestVerifyPassword_Wrong(t *testing.T) {
	t.Parallel()

	dev, mock := newMockDevice(t, WithPassword(7))
	mock.Queue(ack(CodeWrongPassword))

	err := dev.VerifyPassword(context.Background(), 9)
	require.ErrorIs(t, err, ErrWrongPassword)
	assert.Equal(t, uint32(7), dev.Session().Password)
	assert.Equal(t, CodeWrongPassword, dev.Session().LastConfirmationCode)
}

func TestSetPassword_UpdatesSession(t *testing.T) {
	t.Parallel()

	dev, mock := newMockDevice(t)
	mock.Queue(ack(CodeOK))

	require.NoError(t, dev.SetPassword(context.Background(), 0xCAFEBABE))
	assert.Equal(t, uint32(0xCAFEBABE), dev.Session().Password)
	assert.Equal(t, []byte{0xCA, 0xFE, 0xBA, 0xBE}, mock.LastWrite()[10:14])
}

func TestReadSystemParameters(t *testing.T) {
	t.Parallel()

	// held least-significant first: baud x6, -, code 3 (256), -, addr, security 4,
	// -, library 1000, system id 9, status pwd|img
	payload := []byte{
		0x06, 0x00, 0x03, 0x00,
		0xFF, 0xFF, 0xFF, 0xFF,
		0x04, 0x00,
		0xE8, 0x03,
		0x09, 0x00,
		0x0C, 0x00,
	}
	dev, mock := newMockDevice(t)
	mock.Queue(ack(CodeOK, payload...))

	sp, err := dev.ReadSystemParameters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SystemParameters{
		StatusRegister:   0x000C,
		SystemID:         9,
		LibrarySize:      1000,
		SecurityLevel:    4,
		DeviceAddress:    DefaultAddress,
		DataPacketLength: 256,
		BaudRate:         57600,
	}, sp)

	s := dev.Session()
	assert.Equal(t, 4, s.SecurityLevel)
	assert.Equal(t, 256, s.DataPacketLength)
	assert.True(t, s.StatusRegister.PasswordVerified())
	assert.True(t, s.StatusRegister.ImageBufferValid())
	assert.False(t, s.StatusRegister.Busy())
	assert.False(t, s.StatusRegister.Matched())
}

func TestReadSystemParameters_Short(t *testing.T) {
	t.Parallel()

	dev, mock := newMockDevice(t)
	mock.Queue(ack(CodeOK, 0x01, 0x02))

	_, err := dev.ReadSystemParameters(context.Background())
	require.ErrorIs(t, err, ErrBadPacket)
}

func TestGetRandomCode(t *testing.T) {
	t.Parallel()

	dev, mock := newMockDevice(t)
	mock.Queue(ack(CodeOK, 0x78, 0x56, 0x34, 0x12))

	n, err := dev.GetRandomCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), n)
	// on the wire most significant first
	assert.Equal(t, []byte{0x12, 0x34, 0x56, 0x78}, ack(CodeOK, 0x78, 0x56, 0x34, 0x12)[10:14])
}

func TestStatusRegister_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0x0003[busy=true matched=true pwd=false img=false]", StatusRegister(3).String())
}
