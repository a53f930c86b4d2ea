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
	"time"
)

// CharBuffer selects one of the sensor's two character buffers.
type CharBuffer byte

const (
	CharBuffer1 CharBuffer = 1
	CharBuffer2 CharBuffer = 2
)

func (b CharBuffer) valid() bool {
	return b == CharBuffer1 || b == CharBuffer2
}

// SearchResult is a library hit. FingerID is 1-based.
type SearchResult struct {
	FingerID int
	Score    int
}

func checkBuffer(command string, buf CharBuffer) error {
	if !buf.valid() {
		return badValue(command, "buffer must be 1 or 2, got %d", buf)
	}
	return nil
}

func checkLocation(command string, location int) error {
	if location < 1 || location > LibraryCapacity {
		return badValue(command, "location must be 1..%d, got %d", LibraryCapacity, location)
	}
	return nil
}

// checkRange validates a span of locations [start, start+count).
func checkRange(command string, start, count int) error {
	if err := checkLocation(command, start); err != nil {
		return err
	}
	if count < 1 || start+count > LibraryCapacity+1 {
		return badValue(command, "range %d+%d exceeds library of %d", start, count, LibraryCapacity)
	}
	return nil
}

// wireLocation converts a 1-based location to the sensor's 0-based page.
func wireLocation(location int) uint16 {
	return uint16(location - 1)
}

// SaveTemplate stores the template in buf at location.
func (d *Device) SaveTemplate(ctx context.Context, buf CharBuffer, location int) error {
	if err := checkBuffer("SaveTemplate", buf); err != nil {
		return err
	}
	if err := checkLocation("SaveTemplate", location); err != nil {
		return err
	}
	loc := wireLocation(location)
	_, err := d.exchange(ctx, cmdSaveTemplate, []byte{byte(loc), byte(loc >> 8), byte(buf)}, 0)
	return err
}

// LoadTemplate loads the template at location into buf.
func (d *Device) LoadTemplate(ctx context.Context, buf CharBuffer, location int) error {
	if err := checkBuffer("LoadTemplate", buf); err != nil {
		return err
	}
	if err := checkLocation("LoadTemplate", location); err != nil {
		return err
	}
	loc := wireLocation(location)
	_, err := d.exchange(ctx, cmdLoadTemplate, []byte{byte(loc), byte(loc >> 8), byte(buf)}, 0)
	return err
}

// DeleteTemplate deletes count templates starting at start.
func (d *Device) DeleteTemplate(ctx context.Context, start, count int) error {
	if err := checkRange("DeleteTemplate", start, count); err != nil {
		return err
	}
	loc := wireLocation(start)
	_, err := d.exchange(ctx, cmdDeleteTemplate,
		[]byte{byte(count), byte(count >> 8), byte(loc), byte(loc >> 8)}, 0)
	return err
}

// ClearLibrary deletes every stored template.
func (d *Device) ClearLibrary(ctx context.Context) error {
	_, err := d.exchange(ctx, cmdClearLibrary, nil, 0)
	return err
}

// GetTemplateCount returns how many templates are stored.
func (d *Device) GetTemplateCount(ctx context.Context) (int, error) {
	pkt, err := d.exchange(ctx, cmdTemplateCount, nil, 0)
	if err != nil {
		return 0, err
	}
	if err := expectPayload("GetTemplateCount", pkt, 2); err != nil {
		return 0, err
	}
	d.session.TemplateCount = int(binary.LittleEndian.Uint16(pkt.Payload[:2]))
	return d.session.TemplateCount, nil
}

// SearchLibrary searches count locations from start for the character file
// in buf.
func (d *Device) SearchLibrary(ctx context.Context, buf CharBuffer, start, count int) (SearchResult, error) {
	return d.search(ctx, cmdSearchLibrary, buf, start, count)
}

// HighSpeedSearch is SearchLibrary using the sensor's fast search, suited to
// good quality images.
func (d *Device) HighSpeedSearch(ctx context.Context, buf CharBuffer, start, count int) (SearchResult, error) {
	return d.search(ctx, cmdHighSpeedSearch, buf, start, count)
}

func (d *Device) search(ctx context.Context, code byte, buf CharBuffer, start, count int) (SearchResult, error) {
	name := commandName(code)
	if err := checkBuffer(name, buf); err != nil {
		return SearchResult{}, err
	}
	if err := checkRange(name, start, count); err != nil {
		return SearchResult{}, err
	}
	loc := wireLocation(start)
	payload := []byte{byte(count), byte(count >> 8), byte(loc), byte(loc >> 8), byte(buf)}
	return d.matchResult(ctx, code, payload, 0)
}

// MatchTemplates compares the character files in both buffers and returns
// the score.
func (d *Device) MatchTemplates(ctx context.Context) (int, error) {
	pkt, err := d.exchange(ctx, cmdMatchTemplates, nil, 0)
	if err != nil {
		d.session.clearMatch()
		return 0, err
	}
	if err := expectPayload("MatchTemplates", pkt, 2); err != nil {
		d.session.clearMatch()
		return 0, err
	}
	d.session.MatchScore = int(binary.LittleEndian.Uint16(pkt.Payload[:2]))
	return d.session.MatchScore, nil
}

// CaptureAndRangeSearch waits up to timeout for a finger, captures it and
// searches count locations from start in one command.
func (d *Device) CaptureAndRangeSearch(
	ctx context.Context, timeout time.Duration, start, count int,
) (SearchResult, error) {
	const name = "CaptureAndRangeSearch"
	if timeout < 0 || timeout > MaxRangeSearchTimeout {
		return SearchResult{}, badValue(name, "timeout must be 0..%v, got %v", MaxRangeSearchTimeout, timeout)
	}
	if err := checkRange(name, start, count); err != nil {
		return SearchResult{}, err
	}
	loc := wireLocation(start)
	payload := []byte{byte(count), byte(count >> 8), byte(loc), byte(loc >> 8), byte(timeout / rangeSearchStep)}
	return d.matchResult(ctx, cmdCaptureRangeSearch, payload, timeout+rangeSearchSlack)
}

// CaptureAndFullSearch captures a finger and searches the whole library.
func (d *Device) CaptureAndFullSearch(ctx context.Context) (SearchResult, error) {
	return d.matchResult(ctx, cmdCaptureFullSearch, nil, fullSearchTimeout)
}

// matchResult runs a search command and records its hit. Any failure,
// including a sensor report, leaves FingerID and MatchScore at 0.
func (d *Device) matchResult(ctx context.Context, code byte, payload []byte, timeout time.Duration) (SearchResult, error) {
	pkt, err := d.exchange(ctx, code, payload, timeout)
	if err == nil {
		err = expectPayload(commandName(code), pkt, 4)
	}
	if err != nil {
		d.session.clearMatch()
		return SearchResult{}, err
	}

	d.session.FingerID = int(binary.LittleEndian.Uint16(pkt.Payload[2:4])) + 1
	d.session.MatchScore = int(binary.LittleEndian.Uint16(pkt.Payload[0:2]))
	d.logf("%s: finger %d score %d", commandName(code), d.session.FingerID, d.session.MatchScore)
	return SearchResult{FingerID: d.session.FingerID, Score: d.session.MatchScore}, nil
}

// IsNoMatch reports whether err means the finger was read fine but is not
// in the library (or the two buffers differ).
func IsNoMatch(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoMatch)
}

// String formats a hit for display.
func (r SearchResult) String() string {
	return fmt.Sprintf("finger %d (score %d)", r.FingerID, r.Score)
}
