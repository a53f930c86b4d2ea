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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Session log tests share package state and must not run in parallel.

func TestSessionLog_Lifecycle(t *testing.T) {
	dir := t.TempDir()

	path, err := InitSessionLog(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "r30x_"))
	assert.Equal(t, path, GetSessionLogPath())

	id := GetSessionLogID()
	require.Len(t, id, 36)
	assert.Contains(t, filepath.Base(path), id[:8])

	Debugf("captured %d", 42)
	Debugln("plain", "line")
	require.NoError(t, CloseSessionLog())
	assert.Empty(t, GetSessionLogPath())

	content, err := os.ReadFile(path) //nolint:gosec // test temp dir
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "=== R30X Debug Session Log ===")
	assert.Contains(t, text, "Session: "+id)
	assert.Contains(t, text, "DEBUG: captured 42")
	assert.Contains(t, text, "DEBUG: plainline")
	assert.Contains(t, text, "=== Session ended ===")
}

func TestSessionLog_CloseWithoutInit(t *testing.T) {
	require.NoError(t, CloseSessionLog())
}

func TestSessionLog_ReinitReplacesFile(t *testing.T) {
	first, err := InitSessionLog(t.TempDir())
	require.NoError(t, err)
	second, err := InitSessionLog(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseSessionLog() })

	assert.NotEqual(t, first, second)
	assert.Equal(t, second, GetSessionLogPath())
}

func TestSessionLog_BadDirectory(t *testing.T) {
	_, err := InitSessionLog(filepath.Join(t.TempDir(), "missing", "dir"))
	require.Error(t, err)
}

func TestSetDebugEnabled(t *testing.T) {
	was := DebugEnabled()
	t.Cleanup(func() { SetDebugEnabled(was) })

	SetDebugEnabled(true)
	assert.True(t, DebugEnabled())
	SetDebugEnabled(false)
	assert.False(t, DebugEnabled())
}

func TestDebugf_ConsoleOnlyWhenEnabled(t *testing.T) {
	was, out := DebugEnabled(), console
	t.Cleanup(func() {
		SetDebugEnabled(was)
		console = out
	})

	var buf bytes.Buffer
	console = &buf

	SetDebugEnabled(false)
	Debugf("hidden %d", 1)
	assert.Empty(t, buf.String())

	SetDebugEnabled(true)
	Debugf("shown %d", 2)
	assert.Equal(t, "DEBUG: shown 2\n", buf.String())
}
