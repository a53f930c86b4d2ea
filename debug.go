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
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// console receives debug lines when debug output is on. R30X_DEBUG or
// DEBUG in the environment turns it on at startup.
var (
	console      io.Writer = os.Stderr
	debugEnabled atomic.Bool
)

func init() {
	for _, key := range []string{"R30X_DEBUG", "DEBUG"} {
		if os.Getenv(key) != "" {
			debugEnabled.Store(true)
		}
	}
}

// Debugf logs a formatted line to the session log and, in debug mode, to
// stderr.
func Debugf(format string, args ...any) {
	debugLine(fmt.Sprintf(format, args...))
}

// Debugln is Debugf with fmt.Sprint formatting.
func Debugln(args ...any) {
	debugLine(fmt.Sprint(args...))
}

func debugLine(message string) {
	sessionFile.write(message)
	if debugEnabled.Load() {
		_, _ = fmt.Fprintln(console, "DEBUG:", message)
	}
}

func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

func DebugEnabled() bool {
	return debugEnabled.Load()
}
