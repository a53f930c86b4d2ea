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
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const logClock = "15:04:05.000"

// sessionLog mirrors every debug line into a file so field reports carry
// the full exchange even when console output was off.
type sessionLog struct {
	file *os.File
	path string
	id   string
	mu   sync.Mutex
}

var sessionFile sessionLog

func (s *sessionLog) open(dir string) (string, error) {
	id := uuid.NewString()
	name := fmt.Sprintf("r30x_%s_%s.log", time.Now().Format("20060102_150405"), id[:8])
	path := filepath.Join(dir, name)

	f, err := os.Create(path) //nolint:gosec // name is generated here
	if err != nil {
		return "", fmt.Errorf("failed to create session log: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		_ = s.file.Close()
	}
	s.file, s.path, s.id = f, path, id

	header := [][2]string{
		{"Session", id},
		{"Started", time.Now().Format(time.RFC3339)},
		{"PID", fmt.Sprint(os.Getpid())},
		{"OS", runtime.GOOS + "/" + runtime.GOARCH},
		{"Go Version", runtime.Version()},
		{"Command Line", strings.Join(os.Args, " ")},
	}
	_, _ = fmt.Fprintln(f, "=== R30X Debug Session Log ===")
	for _, kv := range header {
		_, _ = fmt.Fprintf(f, "%s: %s\n", kv[0], kv[1])
	}
	_, _ = fmt.Fprint(f, "===============================\n\n")
	return path, nil
}

func (s *sessionLog) write(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		_, _ = fmt.Fprintf(s.file, "%s DEBUG: %s\n", time.Now().Format(logClock), message)
	}
}

func (s *sessionLog) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	_, _ = fmt.Fprintf(s.file, "\n%s === Session ended ===\n", time.Now().Format(logClock))
	err := s.file.Close()
	s.file, s.path, s.id = nil, "", ""
	if err != nil {
		return fmt.Errorf("failed to close session log: %w", err)
	}
	return nil
}

func (s *sessionLog) current() (path, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path, s.id
}

// InitSessionLog starts a log file named r30x_<time>_<id>.log in dir, or
// the working directory when dir is empty, and returns its path. An open
// log is closed first.
func InitSessionLog(dir string) (string, error) {
	return sessionFile.open(dir)
}

// CloseSessionLog ends the session log. It is a no-op without one.
func CloseSessionLog() error {
	return sessionFile.close()
}

// GetSessionLogPath returns the open log's path, or "".
func GetSessionLogPath() string {
	path, _ := sessionFile.current()
	return path
}

// GetSessionLogID returns the UUID written into the open log's header.
func GetSessionLogID() string {
	_, id := sessionFile.current()
	return id
}
