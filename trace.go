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
	"fmt"
	"strings"
	"time"

	"github.com/ZaparooProject/go-r30x/internal/frame"
)

// TraceDirection tells whether bytes went to or came from the sensor.
type TraceDirection string

const (
	TraceTX TraceDirection = "TX"
	TraceRX TraceDirection = "RX"
)

// TraceEntry is one write, one read or one timeout on the link.
type TraceEntry struct {
	Timestamp time.Time
	Direction TraceDirection
	Note      string
	Data      []byte
}

// Summary names the packet at the start of Data, e.g. "GetTemplateCount"
// for a command or "ack: no finger detected" for a reply. It is empty when
// Data does not start with a packet header.
func (e TraceEntry) Summary() string {
	d := e.Data
	if len(d) < frame.MinFrameLength || d[0] != frame.StartCodeHigh || d[1] != frame.StartCodeLow {
		return ""
	}
	typ, code := d[6], d[9]
	switch typ {
	case frame.TypeCommand:
		return commandName(code)
	case frame.TypeAck:
		return "ack: " + ConfirmationCode(code).String()
	case frame.TypeData:
		return "data"
	case frame.TypeEndOfData:
		return "end of data"
	default:
		return fmt.Sprintf("type 0x%02X", typ)
	}
}

func (e TraceEntry) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "[%s] %s: %s", e.Timestamp.Format("15:04:05.000"), e.Direction, formatHexBytes(e.Data))
	if s := e.Summary(); s != "" {
		_, _ = fmt.Fprintf(&sb, " [%s]", s)
	}
	if e.Note != "" {
		_, _ = fmt.Fprintf(&sb, " (%s)", e.Note)
	}
	return sb.String()
}

// TraceableError carries the frames exchanged during the failed command.
//
//	var te *r30x.TraceableError
//	if errors.As(err, &te) {
//	    log.Printf("Wire trace:\n%s", te.FormatTrace())
//	}
type TraceableError struct {
	Err       error
	Transport string
	Port      string
	Trace     []TraceEntry
}

func (e *TraceableError) Error() string {
	return e.Err.Error()
}

func (e *TraceableError) Unwrap() error {
	return e.Err
}

// FormatTrace renders the trace one entry per line, ">" for sent and "<"
// for received bytes.
func (e *TraceableError) FormatTrace() string {
	if len(e.Trace) == 0 {
		return fmt.Sprintf("[%s:%s] (no trace data)", e.Transport, e.Port)
	}

	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "[%s:%s] Wire trace (%d entries):\n", e.Transport, e.Port, len(e.Trace))
	for _, entry := range e.Trace {
		arrow := ">"
		if entry.Direction == TraceRX {
			arrow = "<"
		}
		_, _ = fmt.Fprintf(&sb, "  %s %s", arrow, formatHexBytes(entry.Data))
		if s := entry.Summary(); s != "" {
			_, _ = fmt.Fprintf(&sb, " [%s]", s)
		}
		if entry.Note != "" {
			_, _ = fmt.Fprintf(&sb, " (%s)", entry.Note)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// formatHexBytes formats a byte slice as space-separated hex values,
// truncated after 32 bytes.
func formatHexBytes(data []byte) string {
	if len(data) == 0 {
		return "(empty)"
	}
	n := min(len(data), 32)
	parts := make([]string, n)
	for i := range n {
		parts[i] = fmt.Sprintf("%02X", data[i])
	}
	if len(data) > n {
		return strings.Join(parts, " ") + fmt.Sprintf(" ... (%d bytes total)", len(data))
	}
	return strings.Join(parts, " ")
}

// TraceBuffer is a ring of the most recent entries for one device. The
// device clears it at the start of every command.
type TraceBuffer struct {
	transport string
	port      string
	ring      []TraceEntry
	start     int
	n         int
}

// NewTraceBuffer creates a ring holding size entries (16 when size <= 0).
func NewTraceBuffer(transport, port string, size int) *TraceBuffer {
	if size <= 0 {
		size = 16
	}
	return &TraceBuffer{
		transport: transport,
		port:      port,
		ring:      make([]TraceEntry, size),
	}
}

// RecordTX records bytes written to the sensor.
func (tb *TraceBuffer) RecordTX(data []byte, note string) {
	tb.record(TraceTX, data, note)
}

// RecordRX records bytes read from the sensor.
func (tb *TraceBuffer) RecordRX(data []byte, note string) {
	tb.record(TraceRX, data, note)
}

// RecordTimeout records a receive window that ended with nothing usable.
func (tb *TraceBuffer) RecordTimeout(note string) {
	tb.record(TraceRX, nil, "TIMEOUT: "+note)
}

func (tb *TraceBuffer) record(dir TraceDirection, data []byte, note string) {
	entry := TraceEntry{
		Timestamp: time.Now(),
		Direction: dir,
		Note:      note,
		Data:      append([]byte(nil), data...),
	}
	size := len(tb.ring)
	if tb.n < size {
		tb.ring[(tb.start+tb.n)%size] = entry
		tb.n++
		return
	}
	tb.ring[tb.start] = entry
	tb.start = (tb.start + 1) % size
}

// Entries returns the buffered entries, oldest first.
func (tb *TraceBuffer) Entries() []TraceEntry {
	out := make([]TraceEntry, tb.n)
	for i := range tb.n {
		out[i] = tb.ring[(tb.start+i)%len(tb.ring)]
	}
	return out
}

// WrapError attaches the buffered entries to err. Returns nil if err is nil.
func (tb *TraceBuffer) WrapError(err error) error {
	if err == nil {
		return nil
	}
	return &TraceableError{
		Err:       err,
		Transport: tb.transport,
		Port:      tb.port,
		Trace:     tb.Entries(),
	}
}

// Len returns the number of buffered entries.
func (tb *TraceBuffer) Len() int {
	return tb.n
}

// Clear empties the ring.
func (tb *TraceBuffer) Clear() {
	tb.start, tb.n = 0, 0
}

// HasTrace reports whether err carries a wire trace.
func HasTrace(err error) bool {
	var te *TraceableError
	return errors.As(err, &te)
}

// GetTrace returns the wire trace in err, or nil.
func GetTrace(err error) *TraceableError {
	var te *TraceableError
	if errors.As(err, &te) {
		return te
	}
	return nil
}
