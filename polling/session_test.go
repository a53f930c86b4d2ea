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

package polling

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZaparooProject/go-r30x"
	testutil "github.com/ZaparooProject/go-r30x/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type simTransport struct {
	*testutil.SimLink
}

func (simTransport) Type() r30x.TransportType { return r30x.TransportMock }

func newSimDevice(t *testing.T) (*r30x.Device, *testutil.VirtualR30X) {
	t.Helper()
	sim := testutil.NewVirtualR30X()
	dev, err := r30x.New(simTransport{testutil.NewSimLink(sim)},
		r30x.WithTimeout(30*time.Millisecond),
		r30x.WithDataPacketLength(sim.DataLength()),
		r30x.WithLogger(nil),
	)
	require.NoError(t, err)
	return dev, sim
}

func fastConfig() *Config {
	return &Config{
		PollInterval:     2 * time.Millisecond,
		RemovalPolls:     2,
		ErrorThreshold:   2,
		RecoveryAttempts: 1,
		RecoveryBackoff:  time.Millisecond,
	}
}

// startSession runs Start in the background and returns its result channel.
func startSession(t *testing.T, s *Session) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = s.Close()
	})
	require.Eventually(t, s.running.Load, waitFor, time.Millisecond)
	return cancel, done
}

func waitErr(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(waitFor):
		t.Fatal("polling loop did not stop")
		return nil
	}
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(waitFor):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{PollInterval: time.Second}.withDefaults()
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, DefaultConfig().RemovalPolls, cfg.RemovalPolls)
	assert.Equal(t, DefaultConfig().ErrorThreshold, cfg.ErrorThreshold)
	assert.Equal(t, DefaultConfig().RecoveryAttempts, cfg.RecoveryAttempts)
	assert.Equal(t, DefaultConfig().RecoveryBackoff, cfg.RecoveryBackoff)
}

func TestSleepRecoveryConfig_DetectSleep(t *testing.T) {
	t.Parallel()

	cfg := DefaultSleepRecoveryConfig()
	assert.False(t, cfg.DetectSleep(150*time.Millisecond, 100*time.Millisecond))
	assert.True(t, cfg.DetectSleep(5*time.Second, 100*time.Millisecond))

	cfg.Enabled = false
	assert.False(t, cfg.DetectSleep(time.Hour, 100*time.Millisecond))
}

func TestFingerState_Transitions(t *testing.T) {
	t.Parallel()

	var fs FingerState
	assert.False(t, fs.Present())
	assert.Equal(t, "idle", fs.DetectionState.String())

	now := time.Now()
	fs.TransitionToProcessing(now)
	assert.True(t, fs.Present())
	assert.Equal(t, 1, fs.Placements)
	assert.Equal(t, "processing", fs.DetectionState.String())

	fs.TransitionToPresent()
	assert.False(t, fs.Missed(2))
	fs.Seen(now.Add(time.Second))
	assert.False(t, fs.Missed(2), "a sighting resets the miss count")
	assert.True(t, fs.Missed(2))

	fs.TransitionToIdle()
	assert.False(t, fs.Present())
	assert.True(t, fs.PlacedAt.IsZero())
	assert.Equal(t, 1, fs.Placements, "placements survive removal")
	assert.Equal(t, "unknown", FingerDetectionState(7).String())
}

func TestSession_PlacementAndRemoval(t *testing.T) {
	t.Parallel()

	dev, sim := newSimDevice(t)
	s := NewSession(dev, fastConfig())

	placed := make(chan struct{}, 4)
	removed := make(chan struct{}, 4)
	s.SetOnFingerPlaced(func(context.Context, *r30x.Device) error {
		placed <- struct{}{}
		return nil
	})
	s.SetOnFingerRemoved(func() { removed <- struct{}{} })

	cancel, done := startSession(t, s)

	sim.PlaceFinger(testutil.NewVirtualFinger("left-index"))
	waitSignal(t, placed, "placement")

	// the same press must not be reported twice
	polls := s.GetMetrics().Polls
	require.Eventually(t, func() bool { return s.GetMetrics().Polls > polls+3 }, waitFor, time.Millisecond)
	assert.Empty(t, placed)
	assert.Equal(t, StatePresent, s.GetState().DetectionState)

	sim.RemoveFinger()
	waitSignal(t, removed, "removal")
	st := s.GetState()
	assert.False(t, st.Present())

	cancel()
	require.ErrorIs(t, waitErr(t, done), context.Canceled)

	m := s.GetMetrics()
	assert.Equal(t, 1, m.Placements)
	assert.Equal(t, 1, m.Removals)
	assert.Zero(t, m.Errors)
}

func TestSession_CallbackDrivesDevice(t *testing.T) {
	t.Parallel()

	dev, sim := newSimDevice(t)
	s := NewSession(dev, fastConfig())
	finger := testutil.NewVirtualFinger("thumb")

	got := make(chan error, 1)
	s.SetOnFingerPlaced(func(ctx context.Context, d *r30x.Device) error {
		got <- d.GenerateCharacter(ctx, r30x.CharBuffer1)
		return nil
	})
	startSession(t, s)

	sim.PlaceFinger(finger)
	select {
	case err := <-got:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("callback never ran")
	}
	assert.Equal(t, finger.Features(), sim.CharBuffer(1))
}

func TestSession_CallbackErrorStopsLoop(t *testing.T) {
	t.Parallel()

	dev, sim := newSimDevice(t)
	s := NewSession(dev, fastConfig())
	boom := errors.New("boom")
	s.SetOnFingerPlaced(func(context.Context, *r30x.Device) error { return boom })

	_, done := startSession(t, s)
	sim.PlaceFinger(testutil.NewVirtualFinger("a"))

	err := waitErr(t, done)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "OnFingerPlaced callback failed")
}

func TestSession_CallbackPanicBecomesError(t *testing.T) {
	t.Parallel()

	dev, sim := newSimDevice(t)
	s := NewSession(dev, fastConfig())
	s.SetOnFingerPlaced(func(context.Context, *r30x.Device) error { panic("bad reader") })

	_, done := startSession(t, s)
	sim.PlaceFinger(testutil.NewVirtualFinger("a"))

	err := waitErr(t, done)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked: bad reader")
}

func TestSession_PoorImageKeepsFinger(t *testing.T) {
	t.Parallel()

	dev, sim := newSimDevice(t)
	s := NewSession(dev, fastConfig())
	var removals, pollErrs atomic.Int32
	placed := make(chan struct{}, 1)
	s.SetOnFingerPlaced(func(context.Context, *r30x.Device) error {
		placed <- struct{}{}
		return nil
	})
	s.SetOnFingerRemoved(func() { removals.Add(1) })
	s.SetOnPollError(func(err error) {
		if r30x.IsSensorCode(err, r30x.CodeEnrollFail) {
			pollErrs.Add(1)
		}
	})
	startSession(t, s)

	sim.PlaceFinger(testutil.NewVirtualFinger("a"))
	waitSignal(t, placed, "placement")

	sim.ForceCode(0x01, byte(r30x.CodeEnrollFail))
	require.Eventually(t, func() bool { return pollErrs.Load() >= 3 }, waitFor, time.Millisecond)
	assert.Zero(t, removals.Load())
	st := s.GetState()
	assert.True(t, st.Present())
}

func TestSession_Do(t *testing.T) {
	t.Parallel()

	dev, sim := newSimDevice(t)
	sim.StoreTemplate(0, make([]byte, testutil.CharFileSize))
	s := NewSession(dev, fastConfig())
	startSession(t, s)

	var count int
	err := s.Do(context.Background(), func(ctx context.Context, d *r30x.Device) error {
		assert.True(t, s.isPaused.Load())
		// fn runs here, on the caller's goroutine, with the loop parked
		before := s.GetMetrics().Polls
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, before, s.GetMetrics().Polls)
		var err error
		count, err = d.GetTemplateCount(ctx)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.False(t, s.isPaused.Load())

	polls := s.GetMetrics().Polls
	require.Eventually(t, func() bool { return s.GetMetrics().Polls > polls }, waitFor, time.Millisecond,
		"polling resumes after Do")
}

func TestSession_DoWithoutLoop(t *testing.T) {
	t.Parallel()

	dev, _ := newSimDevice(t)
	s := NewSession(dev, nil)

	err := s.Do(context.Background(), func(ctx context.Context, d *r30x.Device) error {
		return d.VerifyPassword(ctx, r30x.DefaultPassword)
	})
	require.NoError(t, err)

	require.NoError(t, s.Close())
	err = s.Do(context.Background(), func(context.Context, *r30x.Device) error { return nil })
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_CloseUnblocksPausedLoop(t *testing.T) {
	t.Parallel()

	dev, _ := newSimDevice(t)
	s := NewSession(dev, fastConfig())
	_, done := startSession(t, s)

	s.Pause()
	require.NoError(t, s.Close())
	assert.ErrorIs(t, waitErr(t, done), ErrSessionClosed)
	assert.ErrorIs(t, s.Start(context.Background()), ErrSessionClosed)
}

func TestSession_AlreadyRunning(t *testing.T) {
	t.Parallel()

	dev, _ := newSimDevice(t)
	s := NewSession(dev, fastConfig())
	startSession(t, s)

	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)
}

func TestSession_SilentSensorGivesUp(t *testing.T) {
	t.Parallel()

	dev, sim := newSimDevice(t)
	sim.SetSilent(true)
	s := NewSession(dev, fastConfig())
	var pollErrs atomic.Int32
	s.SetOnPollError(func(error) { pollErrs.Add(1) })

	_, done := startSession(t, s)

	err := waitErr(t, done)
	require.ErrorIs(t, err, r30x.ErrTimeout)
	assert.Contains(t, err.Error(), "polling stopped")
	assert.EqualValues(t, 2, pollErrs.Load())
	assert.Equal(t, 1, s.GetMetrics().Recoveries)
}

// stubRecoverer runs fn on every recovery.
type stubRecoverer struct {
	device *r30x.Device
	fn     func() error
	calls  atomic.Int32
}

func (r *stubRecoverer) AttemptRecovery(context.Context) error {
	r.calls.Add(1)
	return r.fn()
}

func (r *stubRecoverer) GetDevice() *r30x.Device { return r.device }

func TestSession_LinkLossReportsRemovalAndRecovers(t *testing.T) {
	t.Parallel()

	dev, sim := newSimDevice(t)
	s := NewSession(dev, fastConfig())
	rec := &stubRecoverer{device: dev, fn: func() error {
		sim.SetSilent(false)
		return nil
	}}
	s.SetRecoverer(rec)

	placed := make(chan struct{}, 4)
	removed := make(chan struct{}, 4)
	s.SetOnFingerPlaced(func(context.Context, *r30x.Device) error {
		placed <- struct{}{}
		return nil
	})
	s.SetOnFingerRemoved(func() { removed <- struct{}{} })
	startSession(t, s)

	sim.PlaceFinger(testutil.NewVirtualFinger("a"))
	waitSignal(t, placed, "placement")

	sim.SetSilent(true)
	waitSignal(t, removed, "removal on link loss")

	// once recovered the finger that is still there counts as a new placement
	waitSignal(t, placed, "placement after recovery")
	assert.EqualValues(t, 1, rec.calls.Load())
	assert.Same(t, dev, s.GetDevice())
}
