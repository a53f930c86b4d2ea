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

package frame

import (
	"errors"
	"fmt"
)

// Decode errors. Callers classify them; none of them is retried here.
var (
	ErrIncomplete  = errors.New("frame incomplete")
	ErrStartCode   = errors.New("bad start code")
	ErrAddress     = errors.New("address mismatch")
	ErrUnknownType = errors.New("unknown packet type")
	ErrZeroLength  = errors.New("zero length field")
	ErrLength      = errors.New("invalid length field")
	ErrTooLarge    = errors.New("payload exceeds data packet length")
	ErrChecksum    = errors.New("checksum mismatch")
)

// Decoded is one validated packet.
type Decoded struct {
	Payload []byte // least-significant byte first
	Address uint32
	Length  uint16
	Type    byte
	Code    byte
}

// Reader walks a receive buffer with an explicit cursor. Each step consumes
// the bytes it validates and never reads past the filled part of the buffer.
type Reader struct {
	buf []byte
	pos int
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Pos returns the number of bytes consumed so far.
func (r *Reader) Pos() int {
	return r.pos
}

func (r *Reader) next() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("%w: need byte %d, have %d", ErrIncomplete, r.pos+1, len(r.buf))
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// ReadStart checks the two start code bytes.
func (r *Reader) ReadStart() error {
	for _, want := range [...]byte{StartCodeHigh, StartCodeLow} {
		got, err := r.next()
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("%w: got 0x%02X at offset %d, want 0x%02X", ErrStartCode, got, r.pos-1, want)
		}
	}
	return nil
}

// ReadAddress checks the four address bytes, high byte first, against want.
func (r *Reader) ReadAddress(want uint32) error {
	for shift := 24; shift >= 0; shift -= 8 {
		got, err := r.next()
		if err != nil {
			return err
		}
		if exp := byte(want >> shift); got != exp {
			return fmt.Errorf("%w: got 0x%02X at offset %d, want 0x%02X", ErrAddress, got, r.pos-1, exp)
		}
	}
	return nil
}

// ReadType returns the packet identifier if it is one of the known types.
func (r *Reader) ReadType() (byte, error) {
	typ, err := r.next()
	if err != nil {
		return 0, err
	}
	if !IsKnownType(typ) {
		return 0, fmt.Errorf("%w: 0x%02X", ErrUnknownType, typ)
	}
	return typ, nil
}

// ReadLength returns the raw length field and the payload length it implies.
// maxPayload bounds the payload; zero disables the bound.
func (r *Reader) ReadLength(maxPayload int) (length uint16, payloadLen int, err error) {
	hi, err := r.next()
	if err != nil {
		return 0, 0, err
	}
	lo, err := r.next()
	if err != nil {
		return 0, 0, err
	}
	if hi == 0 && lo == 0 {
		return 0, 0, ErrZeroLength
	}
	length = uint16(hi)<<8 | uint16(lo)
	if length < Overhead {
		return 0, 0, fmt.Errorf("%w: %d", ErrLength, length)
	}
	payloadLen = int(length) - Overhead
	if maxPayload > 0 && payloadLen > maxPayload {
		return 0, 0, fmt.Errorf("%w: %d > %d", ErrTooLarge, payloadLen, maxPayload)
	}
	return length, payloadLen, nil
}

// ReadCode returns the instruction or confirmation code byte.
func (r *Reader) ReadCode() (byte, error) {
	return r.next()
}

// ReadPayload reads n payload bytes and stores them reversed, so the first
// byte on the wire ends up last.
func (r *Reader) ReadPayload(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("%w: payload needs %d bytes, have %d", ErrIncomplete, n, len(r.buf)-r.pos)
	}
	payload := Reverse(r.buf[r.pos : r.pos+n])
	r.pos += n
	return payload, nil
}

// ReadChecksum reads the trailing checksum, high byte first.
func (r *Reader) ReadChecksum() (uint16, error) {
	hi, err := r.next()
	if err != nil {
		return 0, err
	}
	lo, err := r.next()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// Decode validates one packet at the start of buf and returns it together
// with the number of bytes it occupied.
func Decode(buf []byte, address uint32, maxPayload int) (Decoded, int, error) {
	var d Decoded
	r := NewReader(buf)

	if err := r.ReadStart(); err != nil {
		return d, r.Pos(), err
	}
	if err := r.ReadAddress(address); err != nil {
		return d, r.Pos(), err
	}
	d.Address = address

	typ, err := r.ReadType()
	if err != nil {
		return d, r.Pos(), err
	}
	d.Type = typ

	length, payloadLen, err := r.ReadLength(maxPayload)
	if err != nil {
		return d, r.Pos(), err
	}
	d.Length = length

	if d.Code, err = r.ReadCode(); err != nil {
		return d, r.Pos(), err
	}
	if d.Payload, err = r.ReadPayload(payloadLen); err != nil {
		return d, r.Pos(), err
	}

	got, err := r.ReadChecksum()
	if err != nil {
		return d, r.Pos(), err
	}
	if want := Checksum(d.Type, d.Length, d.Code, d.Payload); got != want {
		return d, r.Pos(), fmt.Errorf("%w: got 0x%04X, want 0x%04X", ErrChecksum, got, want)
	}
	return d, r.Pos(), nil
}

// Complete reports whether buf holds at least one whole frame according to
// its length field. It does not validate anything else.
func Complete(buf []byte) bool {
	if len(buf) < MinFrameLength {
		return false
	}
	length := int(buf[7])<<8 | int(buf[8])
	return len(buf) >= HeaderLength+length
}
