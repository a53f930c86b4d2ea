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

	"github.com/ZaparooProject/go-r30x/internal/frame"
)

// PacketType is the packet identifier byte following the address.
type PacketType byte

const (
	PacketCommand   PacketType = frame.TypeCommand
	PacketData      PacketType = frame.TypeData
	PacketAck       PacketType = frame.TypeAck
	PacketEndOfData PacketType = frame.TypeEndOfData
)

func (t PacketType) String() string {
	switch t {
	case PacketCommand:
		return "command"
	case PacketData:
		return "data"
	case PacketAck:
		return "ack"
	case PacketEndOfData:
		return "end-of-data"
	default:
		return fmt.Sprintf("type(0x%02X)", byte(t))
	}
}

// Packet is one decoded frame. Code is the instruction on the way out and
// the confirmation code on the way back. Payload is held least-significant
// byte first: the codec reverses it on the wire, so a multi-byte field is
// read with binary.LittleEndian.
type Packet struct {
	Payload []byte
	Address uint32
	Type    PacketType
	Code    byte
}

// Confirmation returns Code as a ConfirmationCode.
func (p *Packet) Confirmation() ConfirmationCode {
	return ConfirmationCode(p.Code)
}

// encodePacket builds the full wire frame for one packet.
func encodePacket(address uint32, typ PacketType, code byte, payload []byte) []byte {
	return frame.Encode(byte(typ), address, code, payload)
}

// decodePacket runs the decode steps over an accumulated receive buffer and
// returns the packet plus the number of bytes it consumed. A buffer that
// ends before a required position is a bad packet, never a separate class.
func decodePacket(buf []byte, address uint32, maxPayload int) (*Packet, int, error) {
	if len(buf) < frame.MinFrameLength {
		return nil, 0, fmt.Errorf("%w: %d bytes, need at least %d", ErrBadPacket, len(buf), frame.MinFrameLength)
	}
	d, n, err := frame.Decode(buf, address, maxPayload)
	if err != nil {
		return nil, n, fmt.Errorf("%w: %w", decodeErrorKind(err), err)
	}
	return &Packet{
		Payload: d.Payload,
		Address: d.Address,
		Type:    PacketType(d.Type),
		Code:    d.Code,
	}, n, nil
}

// decodeErrorKind maps a decode step failure onto ErrWrongResponse (frame
// of unexpected shape) or ErrBadPacket (everything else).
func decodeErrorKind(err error) error {
	if errors.Is(err, frame.ErrUnknownType) || errors.Is(err, frame.ErrZeroLength) {
		return ErrWrongResponse
	}
	return ErrBadPacket
}

// sendPacket writes one frame. Success means the bytes were dispatched, not
// that the sensor executed anything; the outcome arrives with the reply.
func (d *Device) sendPacket(typ PacketType, code byte, payload []byte) error {
	out := encodePacket(d.session.Address, typ, code, payload)
	d.pending = nil
	if typ == PacketCommand {
		d.drainStale()
	}
	d.trace.RecordTX(out, typ.String())
	d.logf("TX %s % X", typ, out)

	n, err := d.transport.Write(out)
	if err != nil {
		return d.trace.WrapError(d.linkError("send", ErrTransportWrite, err))
	}
	if n != len(out) {
		return d.trace.WrapError(NewTransportError("send", portName(d.transport),
			fmt.Errorf("%w: wrote %d of %d bytes", ErrTransportWrite, n, len(out)), ErrorTypeTransient))
	}
	return nil
}

// staleLimit bounds how much a single drain discards, so a link that never
// goes quiet cannot stall the next command.
const staleLimit = 4 * frame.MaxFrameLength

// drainStale discards whatever is already waiting on the link, typically a
// reply that arrived after its command timed out. Read errors end the drain
// and are left for the write or the receive to report.
func (d *Device) drainStale() {
	var stale []byte
	chunk := make([]byte, frame.MaxFrameLength)
	for len(stale) < staleLimit {
		n, err := d.transport.Read(chunk)
		if err != nil || n == 0 {
			break
		}
		stale = append(stale, chunk[:n]...)
	}
	if len(stale) > 0 {
		d.trace.RecordRX(stale, "stale, dropped")
		d.logf("dropped %d stale bytes: % X", len(stale), stale)
	}
}

// sendDataStream uploads data as Data packets of at most DataPacketLength
// bytes, the last one marked EndOfData. Data packets carry no instruction
// byte, so the first content byte travels in the code position.
func (d *Device) sendDataStream(data []byte) error {
	size := d.session.DataPacketLength
	for off := 0; off < len(data); off += size {
		end := min(off+size, len(data))
		typ := PacketData
		if end == len(data) {
			typ = PacketEndOfData
		}
		chunk := data[off:end]
		if err := d.sendPacket(typ, chunk[0], frame.Reverse(chunk[1:])); err != nil {
			return err
		}
	}
	return nil
}

// linkError classifies a raw transport failure. Device-gone errors are
// permanent so pollers stop instead of spinning.
func (d *Device) linkError(op string, kind, err error) *TransportError {
	typ := ErrorTypeTransient
	if IsFatal(err) {
		typ = ErrorTypePermanent
	}
	return NewTransportError(op, portName(d.transport), fmt.Errorf("%w: %w", kind, err), typ)
}
