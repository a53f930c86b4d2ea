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
	"io"
	"runtime"
	"syscall"
)

// Receive and validation outcomes. Every command reports one of these (or a
// *SensorError) when it does not complete with CodeOK.
var (
	// ErrTimeout means no byte arrived within the receive window.
	ErrTimeout = errors.New("timeout waiting for response")
	// ErrBadPacket covers framing garbage: short frames, start code or
	// address mismatch, bad length, checksum mismatch.
	ErrBadPacket = errors.New("bad packet")
	// ErrWrongResponse means a frame arrived with an unknown packet type or
	// an all-zero length field.
	ErrWrongResponse = errors.New("wrong response")
	// ErrBadValue is an argument validation failure. Nothing was sent.
	ErrBadValue = errors.New("bad value")
)

// Transport errors
var (
	ErrTransportWrite  = errors.New("transport write failed")
	ErrTransportRead   = errors.New("transport read failed")
	ErrTransportClosed = errors.New("transport is closed")
	ErrDeviceNotFound  = errors.New("device not found")
)

// Sentinels for the device-reported codes callers most often branch on.
// A *SensorError carrying the matching code satisfies errors.Is.
var (
	ErrNoFinger       = errors.New("no finger detected")
	ErrNoMatch        = errors.New("fingers do not match")
	ErrNotFound       = errors.New("no matching template")
	ErrBadLocation    = errors.New("location beyond library")
	ErrWrongPassword  = errors.New("wrong password")
	ErrFlashWrite     = errors.New("flash write error")
	ErrDuplicate      = errors.New("fingerprint already enrolled")
	ErrPacketRejected = errors.New("sensor rejected data packet")
)

var codeSentinels = map[ConfirmationCode]error{
	CodeNoFinger:             ErrNoFinger,
	CodeSecondScanNoFinger:   ErrNoFinger,
	CodeNoMatch:              ErrNoMatch,
	CodeNotFound:             ErrNotFound,
	CodeBadLocation:          ErrBadLocation,
	CodeWrongPassword:        ErrWrongPassword,
	CodeFlashWriteError:      ErrFlashWrite,
	CodeDuplicateFingerprint: ErrDuplicate,
	CodePacketRejected:       ErrPacketRejected,
}

// ErrorType classifies a link failure.
type ErrorType int

const (
	// ErrorTypeTransient is noise or a short read; the next command may work.
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent means the port or adapter is gone.
	ErrorTypePermanent
	// ErrorTypeTimeout means the sensor stayed silent.
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

// Retryable reports whether another attempt can succeed.
func (t ErrorType) Retryable() bool {
	return t != ErrorTypePermanent
}

// TransportError wraps a link-level failure with the operation and port.
type TransportError struct {
	Err  error
	Op   string
	Port string
	Type ErrorType
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the failure is worth retrying.
func (e *TransportError) Temporary() bool {
	return e.Type.Retryable()
}

// SensorError is a valid response frame whose confirmation code is not OK.
// These are business outcomes (no finger, no match, wrong password) rather
// than link failures.
type SensorError struct {
	Command string
	Code    ConfirmationCode
}

func (e *SensorError) Error() string {
	return fmt.Sprintf("%s: sensor returned 0x%02X (%s)", e.Command, byte(e.Code), e.Code)
}

// Is matches the code-specific sentinels (ErrNoFinger, ErrNotFound, ...) and
// any other *SensorError with the same code.
func (e *SensorError) Is(target error) bool {
	var other *SensorError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	sentinel, ok := codeSentinels[e.Code]
	return ok && sentinel == target
}

// CodeOf maps an error returned by a command back to a confirmation code.
// nil is CodeOK. Anything that is not a sensor report, a framing failure or
// a validation failure is treated as "no valid response" (CodeTimeout).
func CodeOf(err error) ConfirmationCode {
	if err == nil {
		return CodeOK
	}
	var se *SensorError
	switch {
	case errors.As(err, &se):
		return se.Code
	case errors.Is(err, ErrBadValue):
		return CodeBadValue
	case errors.Is(err, ErrBadPacket):
		return CodeBadPacket
	case errors.Is(err, ErrWrongResponse):
		return CodeWrongResponse
	default:
		return CodeTimeout
	}
}

// retryableErrors are link outcomes that say nothing about the sensor
// itself; a second attempt often succeeds.
var retryableErrors = []error{
	ErrTimeout, ErrBadPacket, ErrWrongResponse, ErrTransportRead, ErrTransportWrite,
}

// fatalErrors mean the port is closed or the adapter is gone.
var fatalErrors = []error{
	ErrTransportClosed, ErrDeviceNotFound, io.EOF, io.ErrClosedPipe,
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether repeating the command may succeed. Sensor
// reports are final except "no finger" (a finger can still arrive) and
// "receive error".
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Temporary()
	}
	var se *SensorError
	if errors.As(err, &se) {
		return se.Code == CodeNoFinger || se.Code == CodeReceiveError
	}
	return isAny(err, retryableErrors)
}

// IsFatal reports whether the link is gone and polling should stop rather
// than retry. IsRetryable answers the narrower per-command question.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) && te.Type == ErrorTypePermanent {
		return true
	}
	return isDeviceGoneError(err) || isAny(err, fatalErrors)
}

// Errnos raised when a USB serial adapter is unplugged mid-transfer. The
// Windows values are not defined by syscall on other platforms.
var deviceGoneErrnos = map[syscall.Errno]bool{
	syscall.EIO:    true,
	syscall.ENXIO:  true,
	syscall.ENODEV: true,
}

var windowsDeviceGoneErrnos = map[syscall.Errno]bool{
	5:   true, // ERROR_ACCESS_DENIED
	31:  true, // ERROR_GEN_FAILURE
	433: true, // ERROR_NO_SUCH_DEVICE
}

func isDeviceGoneError(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	if deviceGoneErrnos[errno] {
		return true
	}
	return runtime.GOOS == "windows" && windowsDeviceGoneErrnos[errno]
}

// NewTransportError builds a TransportError.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{Op: op, Port: port, Err: err, Type: errType}
}

// NewTimeoutError reports a silent sensor.
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTimeout, ErrorTypeTimeout)
}

// NewTransportWriteError reports a failed write.
func NewTransportWriteError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportWrite, ErrorTypeTransient)
}

// NewTransportReadError reports a failed read.
func NewTransportReadError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportRead, ErrorTypeTransient)
}

// badValue reports an argument rejected before any I/O.
func badValue(command, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", command, ErrBadValue, fmt.Sprintf(format, args...))
}
