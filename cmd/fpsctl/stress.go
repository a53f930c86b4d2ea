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
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZaparooProject/go-r30x"
)

// stressPage is the notepad page the stress test overwrites. Its content is
// restored afterwards.
const stressPage = r30x.NotepadPages - 1

// StressTestResult is the outcome of a stress run.
type StressTestResult struct {
	CrashFile string
	Passed    int
	Failed    int
	Duration  time.Duration
	Success   bool
}

// CrashReport is written as JSON when a round trip fails.
type CrashReport struct {
	Timestamp    time.Time  `json:"timestamp"`
	Port         string     `json:"port,omitempty"`
	Operation    string     `json:"operation"`
	Error        string     `json:"error"`
	ExpectedHex  string     `json:"expected_hex,omitempty"`
	ActualHex    string     `json:"actual_hex,omitempty"`
	WireTrace    string     `json:"wire_trace,omitempty"`
	Parameters   string     `json:"parameters,omitempty"`
	OperationLog []LogEntry `json:"operation_log"`
	Iteration    int        `json:"iteration"`
}

// LogEntry is one step of the operation log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
	DataHex   string    `json:"data_hex,omitempty"`
	Error     string    `json:"error,omitempty"`
	Success   bool      `json:"success"`
}

type stressFailure struct {
	err       error
	operation string
	expected  []byte
	actual    []byte
}

type stressRun struct {
	device    *r30x.Device
	out       io.Writer
	opLog     []LogEntry
	iteration int
}

type testSize int

const (
	testSizeTiny   testSize = iota // 1-4 bytes
	testSizeMedium                 // half a page
	testSizeFull                   // whole page
)

func (s testSize) String() string {
	switch s {
	case testSizeTiny:
		return "tiny"
	case testSizeMedium:
		return "medium"
	case testSizeFull:
		return "full"
	default:
		return "unknown"
	}
}

func (s testSize) bytes() int {
	switch s {
	case testSizeTiny:
		return 4
	case testSizeMedium:
		return r30x.NotepadPageSize / 2
	default:
		return r30x.NotepadPageSize
	}
}

func printStressTestBanner(out io.Writer, iterations int) {
	_, _ = fmt.Fprintln(out, "================================================================================")
	_, _ = fmt.Fprintln(out, "                         R30X Link Stress Test")
	_, _ = fmt.Fprintln(out, "================================================================================")
	_, _ = fmt.Fprintf(out, "Iterations: %d (parameters, random code, notepad tiny/medium/full)\n", iterations)
}

// runStressTest repeats command and notepad round trips over the link. The
// first failure stops the run and writes a crash report into dir.
func runStressTest(ctx context.Context, device *r30x.Device, iterations int, out io.Writer, dir string) *StressTestResult {
	printStressTestBanner(out, iterations)
	started := time.Now()
	sr := &stressRun{device: device, out: out, opLog: make([]LogEntry, 0, 32)}
	result := &StressTestResult{}

	original, err := device.ReadNotepad(ctx, stressPage)
	if err == nil {
		defer func() {
			if err := device.WriteNotepad(context.WithoutCancel(ctx), stressPage, original); err != nil {
				_, _ = fmt.Fprintf(out, "  [!] Failed to restore notepad page %d: %v\n", stressPage, err)
			}
		}()
	}

	for sr.iteration = 1; sr.iteration <= iterations; sr.iteration++ {
		if ctx.Err() != nil {
			break
		}
		if fail := sr.iterate(ctx, result); fail != nil {
			result.Failed++
			_, _ = fmt.Fprintf(out, "\n  [!] FAILURE at iteration %d (%s): %v\n", sr.iteration, fail.operation, fail.err)
			filename, writeErr := writeCrashReport(sr.crashReport(ctx, fail), dir)
			if writeErr != nil {
				_, _ = fmt.Fprintf(out, "  [!] Failed to write crash report: %v\n", writeErr)
			} else {
				_, _ = fmt.Fprintf(out, "  Creating crash report... %s\n", filename)
				result.CrashFile = filename
			}
			break
		}
	}

	result.Duration = time.Since(started)
	result.Success = result.Failed == 0 && ctx.Err() == nil
	printStressSummary(out, result)
	return result
}

func (r *stressRun) iterate(ctx context.Context, result *StressTestResult) *stressFailure {
	_, _ = fmt.Fprintf(r.out, "[%d] ", r.iteration)

	if err := r.step("parameters", nil, func() error {
		_, err := r.device.ReadSystemParameters(ctx)
		return err
	}); err != nil {
		return &stressFailure{operation: "parameters", err: err}
	}
	result.Passed++

	if err := r.step("random", nil, func() error {
		_, err := r.device.GetRandomCode(ctx)
		return err
	}); err != nil {
		return &stressFailure{operation: "random", err: err}
	}
	result.Passed++

	for _, size := range []testSize{testSizeTiny, testSizeMedium, testSizeFull} {
		if fail := r.notepadRoundTrip(ctx, size); fail != nil {
			return fail
		}
		result.Passed++
	}
	_, _ = fmt.Fprintln(r.out, "OK")
	return nil
}

func (r *stressRun) notepadRoundTrip(ctx context.Context, size testSize) *stressFailure {
	want := make([]byte, r30x.NotepadPageSize)
	if _, err := rand.Read(want[:size.bytes()]); err != nil {
		return &stressFailure{operation: "generate", err: err}
	}

	op := "notepad_" + size.String()
	if err := r.step(op+"_write", want, func() error {
		return r.device.WriteNotepad(ctx, stressPage, want[:size.bytes()])
	}); err != nil {
		return &stressFailure{operation: op + "_write", err: err}
	}

	var got []byte
	if err := r.step(op+"_read", nil, func() error {
		var err error
		got, err = r.device.ReadNotepad(ctx, stressPage)
		return err
	}); err != nil {
		return &stressFailure{operation: op + "_read", err: err}
	}

	if !bytes.Equal(want, got) {
		return &stressFailure{
			operation: op + "_verify",
			err:       errors.New("notepad content mismatch"),
			expected:  want,
			actual:    got,
		}
	}
	return nil
}

// step runs fn and appends its outcome to the operation log.
func (r *stressRun) step(op string, data []byte, fn func() error) error {
	entry := LogEntry{Timestamp: time.Now(), Operation: op}
	if len(data) > 0 {
		entry.DataHex = hex.EncodeToString(data)
	}
	err := fn()
	entry.Success = err == nil
	if err != nil {
		entry.Error = err.Error()
	}
	r.opLog = append(r.opLog, entry)
	return err
}

func (r *stressRun) crashReport(ctx context.Context, fail *stressFailure) *CrashReport {
	report := &CrashReport{
		Timestamp:    time.Now(),
		Operation:    fail.operation,
		Error:        fail.err.Error(),
		Iteration:    r.iteration,
		OperationLog: r.opLog,
	}
	if pn, ok := r.device.Transport().(r30x.PortNamer); ok {
		report.Port = pn.PortName()
	}
	if len(fail.expected) > 0 {
		report.ExpectedHex = formatHexString(fail.expected)
	}
	if len(fail.actual) > 0 {
		report.ActualHex = formatHexString(fail.actual)
	}
	var te *r30x.TraceableError
	if errors.As(fail.err, &te) {
		report.WireTrace = te.FormatTrace()
	}
	if ctx.Err() == nil {
		if sp, err := r.device.ReadSystemParameters(ctx); err == nil {
			report.Parameters = fmt.Sprintf("%+v", sp)
		}
	}
	return report
}

func writeCrashReport(report *CrashReport, dir string) (string, error) {
	timestamp := report.Timestamp.Format("20060102_150405")
	filename := filepath.Join(dir, fmt.Sprintf("stress_test_crash_%s.json", timestamp))

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal crash report: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write crash report: %w", err)
	}
	return filename, nil
}

func formatHexString(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

func printStressSummary(out io.Writer, result *StressTestResult) {
	status := "PASS"
	if !result.Success {
		status = "FAIL"
	}
	_, _ = fmt.Fprintln(out, "================================================================================")
	_, _ = fmt.Fprintf(out, "[%s] %d operations passed, %d failed - %s\n",
		status, result.Passed, result.Failed, result.Duration.Round(100*time.Millisecond))
	if result.CrashFile != "" {
		_, _ = fmt.Fprintf(out, "Crash report: %s\n", result.CrashFile)
	}
	_, _ = fmt.Fprintln(out, "================================================================================")
}
