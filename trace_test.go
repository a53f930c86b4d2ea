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
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceBuffer_Ring(t *testing.T) {
	t.Parallel()

	tb := NewTraceBuffer("mock", "sim", 2)
	tb.RecordTX([]byte{0x01}, "command")
	tb.RecordRX([]byte{0x02}, "")
	tb.RecordTimeout("2s")
	require.Equal(t, 2, tb.Len())

	err := tb.WrapError(ErrTimeout)
	te := GetTrace(err)
	require.NotNil(t, te)
	assert.Equal(t, TraceRX, te.Trace[0].Direction)
	assert.Equal(t, "TIMEOUT: 2s", te.Trace[1].Note)
	require.ErrorIs(t, err, ErrTimeout)

	out := te.FormatTrace()
	assert.True(t, strings.HasPrefix(out, "[mock:sim] Wire trace (2 entries):"))
	assert.Contains(t, out, "< 02")

	tb.Clear()
	assert.Zero(t, tb.Len())
	require.NoError(t, tb.WrapError(nil))
	assert.Nil(t, GetTrace(errors.New("plain")))
}

func TestFormatHexBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "(empty)", formatHexBytes(nil))
	assert.Equal(t, "EF 01", formatHexBytes([]byte{0xEF, 0x01}))
	long := formatHexBytes(make([]byte, 40))
	assert.True(t, strings.HasSuffix(long, "... (40 bytes total)"))
}

func TestTraceBuffer_RingOrderAfterWrap(t *testing.T) {
	t.Parallel()

	tb := NewTraceBuffer("mock", "", 3)
	for i := range 7 {
		tb.RecordTX([]byte{byte(i)}, "")
	}
	var got []byte
	for _, e := range tb.Entries() {
		got = append(got, e.Data[0])
	}
	assert.Equal(t, []byte{4, 5, 6}, got)
}

func TestTraceEntry_Summary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
		data []byte
	}{
		{name: "command", data: encodePacket(DefaultAddress, PacketCommand, cmdTemplateCount, nil), want: "GetTemplateCount"},
		{name: "ack", data: encodePacket(DefaultAddress, PacketAck, byte(CodeNoFinger), nil), want: "ack: no finger detected"},
		{name: "data", data: encodePacket(DefaultAddress, PacketData, 0xAA, []byte{1}), want: "data"},
		{name: "end", data: encodePacket(DefaultAddress, PacketEndOfData, 0xAA, nil), want: "end of data"},
		{name: "short", data: []byte{0xEF, 0x01, 0xFF}, want: ""},
		{name: "noise", data: make([]byte, 12), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, TraceEntry{Data: tt.data}.Summary())
		})
	}
}

func TestFormatTrace_Annotated(t *testing.T) {
	t.Parallel()

	tb := NewTraceBuffer("uart", "/dev/ttyUSB0", 4)
	tb.RecordTX(encodePacket(DefaultAddress, PacketCommand, cmdGenerateImage, nil), "Command")
	tb.RecordRX(encodePacket(DefaultAddress, PacketAck, byte(CodeNoFinger), nil), "")

	out := GetTrace(tb.WrapError(ErrNoFinger)).FormatTrace()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[1], "[GenerateImage] (Command)"), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], "[ack: no finger detected]"), lines[2])
	assert.Equal(t, "[uart:] (no trace data)", (&TraceableError{Transport: "uart"}).FormatTrace())
	assert.False(t, HasTrace(errors.New("plain")))
}
