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
	"errors"
	"testing"
	"time"

	"github.com/ZaparooProject/go-r30x/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyPassword_WireBytes(t *testing.T) {
	t.Parallel()

	dev, mock := newMockDevice(t)
	mock.Queue(ack(CodeOK))

	require.NoError(t, dev.VerifyPassword(context.Background(), 0))
	assert.Equal(t, []byte{
		0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0x00, 0x07, 0x13, 0x00, 0x00, 0x00, 0x00, 0x00, 0x1B,
	}, mock.LastWrite())
	assert.Equal(t, CodeOK, dev.Session().LastConfirmationCode)
}

func TestReceivePacket_RoundTrip(t *testing.T) {
	t.Parallel()

	dev, mock := newMockDevice(t)
	mock.Inject(ack(CodeOK, 0x34, 0x12))

	pkt, err := dev.receivePacket(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, PacketAck, pkt.Type)
	assert.Equal(t, CodeOK, pkt.Confirmation())
	assert.Equal(t, []byte{0x34, 0x12}, pkt.Payload)
	assert.Equal(t, uint32(DefaultAddress), pkt.Address)
}

func TestReceivePacket_Failures(t *testing.T) {
	t.Parallel()

	valid := ack(CodeOK, 0x01)

	tests := []struct {
		want   error
		code   ConfirmationCode
		name   string
		stream []byte
	}{
		{
			name:   "silence",
			stream: nil,
			want:   ErrTimeout,
			code:   CodeTimeout,
		},
		{
			name:   "short frame",
			stream: valid[:9],
			want:   ErrBadPacket,
			code:   CodeBadPacket,
		},
		{
			name: "checksum flipped",
			stream: func() []byte {
				b := append([]byte(nil), valid...)
				b[len(b)-1] ^= 0x01
				return b
			}(),
			want: ErrBadPacket,
			code: CodeBadPacket,
		},
		{
			name:   "other address",
			stream: encodePacket(0x12345678, PacketAck, 0, []byte{0x01}),
			want:   ErrBadPacket,
			code:   CodeBadPacket,
		},
		{
			name:   "bad start code",
			stream: append([]byte{0xEE}, valid[1:]...),
			want:   ErrBadPacket,
			code:   CodeBadPacket,
		},
		{
			name:   "unknown packet type",
			stream: encodePacket(DefaultAddress, PacketType(0x05), 0, []byte{0x01}),
			want:   ErrWrongResponse,
			code:   CodeWrongResponse,
		},
		{
			name:   "zero length",
			stream: []byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x07, 0x00, 0x00, 0x00, 0x07},
			want:   ErrWrongResponse,
			code:   CodeWrongResponse,
		},
		{
			name:   "payload above packet length",
			stream: ack(CodeOK, make([]byte, 80)...),
			want:   ErrBadPacket,
			code:   CodeBadPacket,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dev, mock := newMockDevice(t, WithTimeout(20*time.Millisecond))
			mock.Queue(tt.stream)

			_, err := dev.exchange(context.Background(), cmdTemplateCount, nil, 0)
			require.Error(t, err)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.code, CodeOf(err))
			assert.Equal(t, tt.code, dev.Session().LastConfirmationCode)
			assert.True(t, HasTrace(err))
		})
	}
}

func TestReceivePacket_ChunkedReads(t *testing.T) {
	t.Parallel()

	dev, mock := newMockDevice(t)
	mock.SetChunkSize(3)
	mock.Queue(ack(CodeOK, 0x05, 0x00))

	n, err := dev.GetTemplateCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestReceivePacket_KeepsTrailingBytes(t *testing.T) {
	t.Parallel()

	dev, mock := newMockDevice(t)
	first := encodePacket(DefaultAddress, PacketData, 0xAA, []byte{0xBB})
	second := encodePacket(DefaultAddress, PacketEndOfData, 0xCC, []byte{0xDD})
	mock.Inject(first, second)

	data, err := dev.receiveDataStream(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, data)
	assert.Nil(t, dev.pending)
}

func TestReceivePacket_ContextCancelled(t *testing.T) {
	t.Parallel()

	dev, _ := newMockDevice(t, WithTimeout(5*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := dev.receivePacket(ctx, 0)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestReceivePacket_ReadError(t *testing.T) {
	t.Parallel()

	dev, mock := newMockDevice(t)
	mock.SetReadError(errors.New("usb unplugged"))

	_, err := dev.receivePacket(context.Background(), 0)
	require.ErrorIs(t, err, ErrTransportRead)
	assert.True(t, IsRetryable(err))
}

func TestSendPacket_WriteError(t *testing.T) {
	t.Parallel()

	dev, mock := newMockDevice(t)
	require.NoError(t, mock.Close())

	err := dev.GenerateImage(context.Background())
	require.ErrorIs(t, err, ErrTransportWrite)
	assert.True(t, IsFatal(err))
	assert.Equal(t, CodeTimeout, dev.Session().LastConfirmationCode)
}

func TestSendPacket_ClearsPending(t *testing.T) {
	t.Parallel()

	dev, mock := newMockDevice(t)
	dev.pending = []byte{0x01, 0x02}
	mock.Queue(ack(CodeOK))

	require.NoError(t, dev.GenerateImage(context.Background()))
	assert.Nil(t, dev.pending)
}

func TestSendPacket_DropsLateReply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dev, mock := newMockDevice(t, WithTimeout(20*time.Millisecond))
	require.ErrorIs(t, dev.GenerateImage(ctx), ErrTimeout)

	// GenerateImage answers after its window closed
	late := ack(CodeNoFinger)
	mock.Queue(late)
	mock.Queue(ack(CodeOK, 0x05, 0x00))

	n, err := dev.GetTemplateCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, CodeOK, dev.Session().LastConfirmationCode)

	entries := dev.trace.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, TraceRX, entries[0].Direction)
	assert.Equal(t, late, entries[0].Data)
	assert.Equal(t, "stale, dropped", entries[0].Note)
}

func TestSendPacket_DrainIgnoresReadError(t *testing.T) {
	t.Parallel()

	dev, mock := newMockDevice(t, WithTimeout(20*time.Millisecond))
	mock.SetReadError(errors.New("usb unplugged"))

	err := dev.GenerateImage(context.Background())
	require.ErrorIs(t, err, ErrTransportRead)
	assert.Len(t, mock.Writes(), 1, "command still sent")
}

func TestSendDataStream_Chunks(t *testing.T) {
	t.Parallel()

	dev, mock := newMockDevice(t, WithDataPacketLength(32))
	data := make([]byte, 70)
	for i := range data {
		data[i] = byte(i)
	}

	require.NoError(t, dev.sendDataStream(data))
	writes := mock.Writes()
	require.Len(t, writes, 3)

	var got []byte
	for i, w := range writes {
		d, _, err := frame.Decode(w, DefaultAddress, 0)
		require.NoError(t, err)
		if i == len(writes)-1 {
			assert.Equal(t, byte(frame.TypeEndOfData), d.Type)
		} else {
			assert.Equal(t, byte(frame.TypeData), d.Type)
		}
		got = append(got, d.Code)
		got = append(got, frame.Reverse(d.Payload)...)
	}
	assert.Equal(t, data, got)
}

func TestPacketType_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "command", PacketCommand.String())
	assert.Equal(t, "end-of-data", PacketEndOfData.String())
	assert.Equal(t, "type(0x05)", PacketType(0x05).String())
}
