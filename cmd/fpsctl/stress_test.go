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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/ZaparooProject/go-r30x"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStressTest_Passes(t *testing.T) {
	t.Parallel()

	dev, _ := newSimDevice(t)
	ctx := context.Background()
	require.NoError(t, dev.WriteNotepad(ctx, stressPage, []byte("keep me")))

	var out bytes.Buffer
	result := runStressTest(ctx, dev, 3, &out, t.TempDir())

	assert.True(t, result.Success, out.String())
	assert.Equal(t, 15, result.Passed)
	assert.Zero(t, result.Failed)
	assert.Empty(t, result.CrashFile)
	assert.Contains(t, out.String(), "[PASS]")

	page, err := dev.ReadNotepad(ctx, stressPage)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(bytes.TrimRight(page, "\x00")), "page is restored")
}

func TestRunStressTest_WritesCrashReport(t *testing.T) {
	t.Parallel()

	dev, sim := newSimDevice(t)
	sim.ForceCode(0x19, byte(r30x.CodeReceiveError))

	var out bytes.Buffer
	result := runStressTest(context.Background(), dev, 3, &out, t.TempDir())

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Passed)
	require.NotEmpty(t, result.CrashFile)

	data, err := os.ReadFile(result.CrashFile)
	require.NoError(t, err)
	var report CrashReport
	require.NoError(t, json.Unmarshal(data, &report))

	assert.Equal(t, "notepad_tiny_read", report.Operation)
	assert.Equal(t, 1, report.Iteration)
	assert.Contains(t, report.Error, "packet receive error")
	assert.NotEmpty(t, report.Parameters)
	require.Len(t, report.OperationLog, 4)
	assert.True(t, report.OperationLog[2].Success)
	assert.NotEmpty(t, report.OperationLog[2].DataHex)
	assert.False(t, report.OperationLog[3].Success)
}

func TestRunStressTest_CancelledContext(t *testing.T) {
	t.Parallel()

	dev, _ := newSimDevice(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	result := runStressTest(ctx, dev, 3, &out, t.TempDir())
	assert.False(t, result.Success)
	assert.Zero(t, result.Passed)
}

func TestTestSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tiny", testSizeTiny.String())
	assert.Equal(t, "unknown", testSize(7).String())
	assert.Equal(t, 4, testSizeTiny.bytes())
	assert.Equal(t, r30x.NotepadPageSize, testSizeFull.bytes())
}

func TestFormatHexString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "00 AB FF", formatHexString([]byte{0x00, 0xAB, 0xFF}))
	assert.Empty(t, formatHexString(nil))
}
