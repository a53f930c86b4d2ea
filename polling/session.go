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

// Package polling watches an R30X sensor for fingers in a single goroutine
// and reports placements and removals through callbacks.
package polling

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-r30x"
	"github.com/ZaparooProject/go-r30x/internal/syncutil"
)

var (
	// ErrSessionClosed is returned once Close has been called
	ErrSessionClosed = errors.New("polling session closed")
	// ErrAlreadyRunning is returned by Start while another Start is active
	ErrAlreadyRunning = errors.New("polling session already running")
)

// PlacedFunc runs in the polling goroutine right after a new finger was
// captured. The sensor's image buffer holds that capture.
type PlacedFunc func(ctx context.Context, device *r30x.Device) error

// Metrics counts what the polling loop has done.
type Metrics struct {
	LastPoll   time.Time
	LastError  error
	Polls      int
	Placements int
	Removals   int
	Errors     int
	Recoveries int
}

// Session polls one sensor. Polls and callbacks run on the goroutine
// running Start. Do runs fn on the caller's goroutine while that loop is
// paused, so the two never use the device at the same time.
type Session struct {
	OnFingerPlaced  PlacedFunc
	OnFingerRemoved func()
	OnPollError     func(err error)
	recoverer       DeviceRecoverer
	pauseChan       chan struct{}
	resumeChan      chan struct{}
	ackChan         chan struct{}
	closeChan       chan struct{}
	stopped         chan struct{}
	metrics         Metrics
	state           FingerState
	config          Config
	consecutiveErrs int
	stateMutex      syncutil.RWMutex
	doMutex         syncutil.Mutex
	closed          atomic.Bool
	isPaused        atomic.Bool
	running         atomic.Bool
}

// NewSession creates a polling session for device. A nil config uses
// DefaultConfig. Recovery repeats the handshake until SetRecoverer installs
// something stronger.
func NewSession(device *r30x.Device, config *Config) *Session {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := config.withDefaults()
	return &Session{
		config:     cfg,
		recoverer:  NewDefaultRecoverer(device, nil, cfg.RecoveryBackoff, cfg.RecoveryAttempts),
		pauseChan:  make(chan struct{}, 1),
		resumeChan: make(chan struct{}, 1),
		ackChan:    make(chan struct{}, 1),
		closeChan:  make(chan struct{}),
	}
}

// SetRecoverer replaces the recovery strategy.
func (s *Session) SetRecoverer(r DeviceRecoverer) {
	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()
	s.recoverer = r
}

// SetOnFingerPlaced sets the callback for a new finger.
func (s *Session) SetOnFingerPlaced(callback PlacedFunc) {
	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()
	s.OnFingerPlaced = callback
}

// SetOnFingerRemoved sets the callback for a lifted finger.
func (s *Session) SetOnFingerRemoved(callback func()) {
	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()
	s.OnFingerRemoved = callback
}

// SetOnPollError sets the callback for failed polls.
func (s *Session) SetOnPollError(callback func(error)) {
	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()
	s.OnPollError = callback
}

// GetDevice returns the device currently being polled.
func (s *Session) GetDevice() *r30x.Device {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.recoverer.GetDevice()
}

// GetState returns the current finger state
func (s *Session) GetState() FingerState {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.state
}

// GetMetrics returns a snapshot of the loop counters.
func (s *Session) GetMetrics() Metrics {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.metrics
}

// Start polls until ctx ends, Close is called, a callback fails or recovery
// gives up. It blocks.
func (s *Session) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	stopped := make(chan struct{})
	s.stateMutex.Lock()
	s.stopped = stopped
	s.stateMutex.Unlock()
	defer func() {
		close(stopped)
		s.running.Store(false)
	}()

	return s.runPollingLoop(ctx)
}

func (s *Session) runPollingLoop(ctx context.Context) error {
	interval := s.config.PollInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastPoll time.Time
	for {
		resumed, err := s.handleContextAndPause(ctx)
		if err != nil {
			return err
		}
		if resumed {
			lastPoll = time.Time{}
		}

		now := time.Now()
		if !lastPoll.IsZero() && s.config.SleepRecovery.DetectSleep(now.Sub(lastPoll), interval) {
			if err := s.recover(ctx, "host sleep detected"); err != nil {
				return err
			}
		}
		lastPoll = now

		if err := s.pollOnce(ctx); err != nil {
			return err
		}

		resumed, err = s.waitForNextPollOrPause(ctx, ticker)
		if err != nil {
			return err
		}
		if resumed {
			lastPoll = time.Time{}
		}
	}
}

// pollOnce captures one image and feeds the result to the state machine.
func (s *Session) pollOnce(ctx context.Context) error {
	device := s.GetDevice()
	err := device.GenerateImage(ctx)

	s.stateMutex.Lock()
	s.metrics.Polls++
	s.metrics.LastPoll = time.Now()
	s.stateMutex.Unlock()

	switch {
	case err == nil:
		s.consecutiveErrs = 0
		return s.fingerSeen(ctx, device)
	case errors.Is(err, r30x.ErrNoFinger):
		s.consecutiveErrs = 0
		s.fingerMissed()
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	}

	var sensorErr *r30x.SensorError
	if errors.As(err, &sensorErr) {
		// the sensor answered, so a finger is there but the image was poor
		s.consecutiveErrs = 0
		s.reportError(err)
		s.stateMutex.Lock()
		if s.state.Present() {
			s.state.Seen(time.Now())
		}
		s.stateMutex.Unlock()
		return nil
	}

	return s.handlePollingError(ctx, err)
}

// handlePollingError handles link-level failures. A finger cannot be tracked
// across a broken link, so a present finger is reported as removed.
func (s *Session) handlePollingError(ctx context.Context, err error) error {
	s.consecutiveErrs++
	s.reportError(err)
	s.fingerGone()

	if !r30x.IsFatal(err) && s.consecutiveErrs < s.config.ErrorThreshold {
		return nil
	}
	return s.recover(ctx, err.Error())
}

func (s *Session) reportError(err error) {
	s.stateMutex.Lock()
	s.metrics.Errors++
	s.metrics.LastError = err
	onError := s.OnPollError
	s.stateMutex.Unlock()

	if onError != nil {
		onError(err)
	}
}

func (s *Session) recover(ctx context.Context, reason string) error {
	s.stateMutex.Lock()
	s.metrics.Recoveries++
	recoverer := s.recoverer
	s.stateMutex.Unlock()

	r30x.Debugf("polling: recovering sensor (%s)", reason)
	s.fingerGone()
	if err := recoverer.AttemptRecovery(ctx); err != nil {
		return fmt.Errorf("polling stopped: %w", err)
	}
	s.consecutiveErrs = 0
	return nil
}

func (s *Session) fingerSeen(ctx context.Context, device *r30x.Device) error {
	now := time.Now()
	s.stateMutex.Lock()
	if s.state.Present() {
		s.state.Seen(now)
		s.stateMutex.Unlock()
		return nil
	}
	s.state.TransitionToProcessing(now)
	s.metrics.Placements++
	onPlaced := s.OnFingerPlaced
	s.stateMutex.Unlock()

	var err error
	if onPlaced != nil {
		err = safeCallCallback(ctx, onPlaced, device)
	}

	s.stateMutex.Lock()
	s.state.TransitionToPresent()
	s.stateMutex.Unlock()

	if err != nil {
		return fmt.Errorf("callback error during polling: %w", err)
	}
	return nil
}

func (s *Session) fingerMissed() {
	s.stateMutex.Lock()
	if !s.state.Present() || !s.state.Missed(s.config.RemovalPolls) {
		s.stateMutex.Unlock()
		return
	}
	s.stateMutex.Unlock()
	s.fingerGone()
}

// fingerGone moves to idle and fires OnFingerRemoved if a finger was present.
func (s *Session) fingerGone() {
	s.stateMutex.Lock()
	wasPresent := s.state.Present()
	if wasPresent {
		s.state.TransitionToIdle()
		s.metrics.Removals++
	}
	onRemoved := s.OnFingerRemoved
	s.stateMutex.Unlock()

	if wasPresent && onRemoved != nil {
		onRemoved()
	}
}

// safeCallCallback runs the placement callback, turning a panic into an error.
func safeCallCallback(ctx context.Context, callback PlacedFunc, device *r30x.Device) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("OnFingerPlaced callback panicked: %v", r)
		}
	}()
	if err := callback(ctx, device); err != nil {
		return fmt.Errorf("OnFingerPlaced callback failed: %w", err)
	}
	return nil
}

// Do runs fn with exclusive use of the device. While the loop is running it
// is paused first and resumed afterwards.
func (s *Session) Do(ctx context.Context, fn func(ctx context.Context, device *r30x.Device) error) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.doMutex.Lock()
	defer s.doMutex.Unlock()

	paused, err := s.pauseWithAck(ctx)
	if err != nil {
		return err
	}
	if paused {
		defer s.Resume()
	}
	return fn(ctx, s.GetDevice())
}

// Pause temporarily stops the polling loop after the current poll.
func (s *Session) Pause() {
	if s.isPaused.CompareAndSwap(false, true) {
		select {
		case s.pauseChan <- struct{}{}:
		default:
		}
	}
}

// Resume restarts the polling loop after a pause
func (s *Session) Resume() {
	if s.isPaused.CompareAndSwap(true, false) {
		select {
		case s.resumeChan <- struct{}{}:
		default:
		}
	}
}

// pauseWithAck pauses a running loop and waits until it has stopped
// touching the device. It reports whether this call did the pausing.
func (s *Session) pauseWithAck(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !s.running.Load() || !s.isPaused.CompareAndSwap(false, true) {
		return false, nil
	}

	s.stateMutex.RLock()
	stopped := s.stopped
	s.stateMutex.RUnlock()

	// drop an ack left over from a plain Pause
	select {
	case <-s.ackChan:
	default:
	}
	select {
	case s.pauseChan <- struct{}{}:
	default:
	}

	select {
	case <-s.ackChan:
		return true, nil
	case <-stopped:
		s.isPaused.Store(false)
		return false, nil
	case <-ctx.Done():
		s.Resume()
		return false, ctx.Err()
	}
}

// handleContextAndPause honours a pause requested while the loop was busy.
func (s *Session) handleContextAndPause(ctx context.Context) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-s.closeChan:
		return false, ErrSessionClosed
	case <-s.pauseChan:
		return true, s.ackAndWaitForResume(ctx)
	default:
		return false, nil
	}
}

func (s *Session) waitForNextPollOrPause(ctx context.Context, ticker *time.Ticker) (bool, error) {
	select {
	case <-ticker.C:
		return false, nil
	case <-s.pauseChan:
		return true, s.ackAndWaitForResume(ctx)
	case <-s.closeChan:
		return false, ErrSessionClosed
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (s *Session) ackAndWaitForResume(ctx context.Context) error {
	select {
	case s.ackChan <- struct{}{}:
	default:
	}

	select {
	case <-s.resumeChan:
		return nil
	case <-s.closeChan:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the loop. The device itself is left open.
func (s *Session) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.closeChan)
	}
	s.isPaused.Store(false)

	select {
	case <-s.pauseChan:
	default:
	}
	select {
	case <-s.resumeChan:
	default:
	}
	return nil
}
