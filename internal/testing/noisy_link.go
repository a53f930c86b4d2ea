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

import (
	"io"
	"math/rand/v2"
	"time"
)

// LinkNoise describes how a USB-UART bridge distorts the sensor's byte
// stream on its way to the host.
type LinkNoise struct {
	// Latency is the upper bound of the random delay before each read.
	Latency time.Duration
	// Stall pauses delivery once, after StallAfter bytes have been read.
	Stall      time.Duration
	StallAfter int
	// PacketSize cuts chunks at bulk transfer boundaries: 32 on CH340
	// bridges, 64 on FTDI. Zero disables it.
	PacketSize int
	// MinPiece enables random splitting with pieces of at least this size.
	MinPiece int
	Seed     uint64
}

// DefaultLinkNoise mimics a slow CH340 bridge.
func DefaultLinkNoise() LinkNoise {
	return LinkNoise{Latency: 2 * time.Millisecond, PacketSize: 32, MinPiece: 1}
}

// NoisyLink is an io.ReadWriter that replays backend replies in short,
// delayed chunks. Writes reach the backend untouched.
type NoisyLink struct {
	backend io.ReadWriter
	noise   LinkNoise
	rng     *rand.Rand

	pending []byte
	chunks  []int
	total   int
	stalled bool
}

// NewNoisyLink wraps backend. A zero Seed picks a random one.
func NewNoisyLink(backend io.ReadWriter, noise LinkNoise) *NoisyLink {
	seed := noise.Seed
	if seed == 0 {
		seed = rand.Uint64() //nolint:gosec // test code
	}
	return &NoisyLink{
		backend: backend,
		noise:   noise,
		rng:     rand.New(rand.NewPCG(seed, ^seed)), //nolint:gosec // test code
	}
}

func (l *NoisyLink) Write(p []byte) (int, error) {
	return l.backend.Write(p) //nolint:wrapcheck // pass-through
}

func (l *NoisyLink) Read(p []byte) (int, error) {
	if l.noise.Latency > 0 {
		time.Sleep(time.Duration(l.rng.Int64N(int64(l.noise.Latency) + 1)))
	}
	if len(l.pending) == 0 {
		if err := l.fill(); err != nil || len(l.pending) == 0 {
			return 0, err
		}
	}

	if !l.stalled && l.noise.StallAfter > 0 && l.total >= l.noise.StallAfter {
		l.stalled = true
		time.Sleep(l.noise.Stall)
	}

	n := min(l.chunks[0], len(p))
	if !l.stalled && l.noise.StallAfter > 0 {
		n = min(n, l.noise.StallAfter-l.total)
	}
	copy(p, l.pending[:n])
	l.pending = l.pending[n:]
	l.total += n
	if l.chunks[0] -= n; l.chunks[0] == 0 {
		l.chunks = l.chunks[1:]
	}
	return n, nil
}

// fill pulls everything the backend has ready and plans how it is chopped.
func (l *NoisyLink) fill() error {
	buf := make([]byte, 1024)
	n, err := l.backend.Read(buf)
	if err != nil {
		return err //nolint:wrapcheck // pass-through
	}
	l.pending = append(l.pending, buf[:n]...)

	offset := l.total
	for left := n; left > 0; {
		size := left
		if pkt := l.noise.PacketSize; pkt > 0 {
			size = min(size, pkt-offset%pkt)
		}
		if lo := l.noise.MinPiece; lo > 0 && size > lo {
			size = lo + l.rng.IntN(size-lo+1)
		}
		l.chunks = append(l.chunks, size)
		offset += size
		left -= size
	}
	return nil
}

// Rearm lets the stall fire again, counting from zero.
func (l *NoisyLink) Rearm() {
	l.total = 0
	l.stalled = false
}

// Drop discards bytes that were read from the backend but not delivered.
func (l *NoisyLink) Drop() {
	l.pending = nil
	l.chunks = nil
}
