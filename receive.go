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
	"fmt"
	"time"

	"github.com/ZaparooProject/go-r30x/internal/frame"
)

// pollInterval is the receive loop tick.
const pollInterval = time.Millisecond

// receivePacket waits up to timeout for one response frame and decodes it.
// Zero bytes is ErrTimeout. Anything that arrived but does not decode is
// ErrBadPacket or ErrWrongResponse. Bytes past the end of the frame are kept
// for the next call so back-to-back data packets are not lost.
func (d *Device) receivePacket(ctx context.Context, timeout time.Duration) (*Packet, error) {
	if timeout <= 0 {
		timeout = d.config.Timeout
	}
	port := portName(d.transport)

	buf, err := d.collect(ctx, timeout)
	if err != nil {
		return nil, d.trace.WrapError(err)
	}
	if len(buf) == 0 {
		d.trace.RecordTimeout(timeout.String())
		return nil, d.trace.WrapError(NewTimeoutError("receive", port))
	}
	d.trace.RecordRX(buf, "")
	d.logf("RX % X", buf)

	pkt, n, err := decodePacket(buf, d.session.Address, d.session.DataPacketLength)
	if err != nil {
		return nil, d.trace.WrapError(NewTransportError("receive", port, err, ErrorTypeTransient))
	}
	if n < len(buf) {
		d.pending = append([]byte(nil), buf[n:]...)
	}
	return pkt, nil
}

// collect polls the transport once per tick until a complete frame is
// buffered, the buffer is full or the timeout expires. The buffer is sized
// to the largest frame the current DataPacketLength allows.
func (d *Device) collect(ctx context.Context, timeout time.Duration) ([]byte, error) {
	limit := frame.HeaderLength + frame.Overhead + d.session.DataPacketLength
	buf := make([]byte, 0, limit)
	buf = append(buf, d.pending...)
	d.pending = nil
	chunk := make([]byte, limit)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()

	for {
		if room := limit - len(buf); room > 0 {
			n, err := d.transport.Read(chunk[:room])
			if err != nil {
				return nil, d.linkError("receive", ErrTransportRead, err)
			}
			buf = append(buf, chunk[:n]...)
		}
		if frame.Complete(buf) || len(buf) >= limit {
			return buf, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("receive: %w", ctx.Err())
		case <-deadline.C:
			return buf, nil
		case <-tick.C:
		}
	}
}

// receiveDataStream reads Data packets until EndOfData and returns their
// contents concatenated in wire order.
func (d *Device) receiveDataStream(ctx context.Context, timeout time.Duration) ([]byte, error) {
	var out []byte
	for {
		pkt, err := d.receivePacket(ctx, timeout)
		if err != nil {
			return nil, err
		}
		switch pkt.Type {
		case PacketData, PacketEndOfData:
			out = append(out, pkt.Code)
			out = append(out, frame.Reverse(pkt.Payload)...)
		default:
			return nil, d.trace.WrapError(NewTransportError("receive", portName(d.transport),
				fmt.Errorf("%w: %s packet inside data stream", ErrWrongResponse, pkt.Type), ErrorTypeTransient))
		}
		if pkt.Type == PacketEndOfData {
			return out, nil
		}
	}
}
