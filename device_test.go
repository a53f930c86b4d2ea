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
	"errors"
	"testing"
	"time"

	"github.com/ZaparooProject/go-r30x/detection"
	testutil "github.com/ZaparooProject/go-r30x/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simFactory(sim *testutil.VirtualR30X, opened *[]string) TransportFactory {
	return func(path string) (Transport, error) {
		*opened = append(*opened, path)
		return simTransport{testutil.NewSimLink(sim)}, nil
	}
}

func TestConnectDevice_Handshake(t *testing.T) {
	t.Parallel()

	sim := testutil.NewVirtualR30X()
	sim.StoreTemplate(0, []byte{1})
	sim.StoreTemplate(1, []byte{2})
	var opened []string

	dev, err := ConnectDevice(context.Background(), "/dev/ttyUSB0",
		WithTransportFactory(simFactory(sim, &opened)),
		WithDeviceOptions(WithLogger(nil)))
	require.NoError(t, err)

	assert.Equal(t, []string{"/dev/ttyUSB0"}, opened)
	s := dev.Session()
	assert.Equal(t, 128, s.DataPacketLength)
	assert.Equal(t, 2, s.TemplateCount)
	assert.True(t, s.StatusRegister.PasswordVerified())
	assert.Equal(t, []byte{0x13, 0x0F, 0x1D}, sim.CommandLog())
}

func TestConnectDevice_WrongPasswordNotRetried(t *testing.T) {
	t.Parallel()

	sim := testutil.NewVirtualR30X()
	sim.SetPassword(1234)
	var opened []string

	_, err := ConnectDevice(context.Background(), "/dev/ttyUSB0",
		WithTransportFactory(simFactory(sim, &opened)),
		WithDeviceOptions(WithLogger(nil)))
	require.ErrorIs(t, err, ErrWrongPassword)
	assert.Len(t, sim.CommandLog(), 1)
}

func TestConnectDevice_RetriesSilentSensor(t *testing.T) {
	t.Parallel()

	sim := testutil.NewVirtualR30X()
	sim.DropNextResponse()
	var opened []string

	dev, err := ConnectDevice(context.Background(), "/dev/ttyUSB0",
		WithTransportFactory(simFactory(sim, &opened)),
		WithConnectionRetries(2),
		WithDeviceOptions(WithLogger(nil), WithTimeout(30*time.Millisecond)))
	require.NoError(t, err)
	assert.NotNil(t, dev)
	assert.Equal(t, []byte{0x13, 0x13, 0x0F, 0x1D}, sim.CommandLog())
}

func TestConnectDevice_GivesUp(t *testing.T) {
	t.Parallel()

	sim := testutil.NewVirtualR30X()
	sim.SetSilent(true)
	var opened []string

	_, err := ConnectDevice(context.Background(), "/dev/ttyUSB0",
		WithTransportFactory(simFactory(sim, &opened)),
		WithConnectionRetries(1),
		WithDeviceOptions(WithLogger(nil), WithTimeout(20*time.Millisecond)))
	require.ErrorIs(t, err, ErrTimeout)
}

func TestConnectDevice_WithoutHandshake(t *testing.T) {
	t.Parallel()

	sim := testutil.NewVirtualR30X()
	var opened []string

	_, err := ConnectDevice(context.Background(), "COM3",
		WithTransportFactory(simFactory(sim, &opened)),
		WithoutHandshake())
	require.NoError(t, err)
	assert.Empty(t, sim.CommandLog())
}

func TestConnectDevice_OptionErrors(t *testing.T) {
	t.Parallel()

	_, err := ConnectDevice(context.Background(), "/dev/ttyUSB0")
	require.Error(t, err)

	_, err = ConnectDevice(context.Background(), "/dev/ttyUSB0", WithConnectionRetries(0))
	require.Error(t, err)

	_, err = ConnectDevice(context.Background(), "/dev/ttyUSB0",
		WithTransportFactory(func(string) (Transport, error) { return nil, errors.New("busy") }))
	require.Error(t, err)
}

func TestConnectDevice_AutoDetect(t *testing.T) {
	t.Parallel()

	sim := testutil.NewVirtualR30X()
	var picked detection.DeviceInfo

	dev, err := ConnectDevice(context.Background(), "",
		WithDeviceDetector(func(context.Context, *detection.Options) ([]detection.DeviceInfo, error) {
			return []detection.DeviceInfo{{Transport: "uart", Path: "/dev/ttyACM0"}}, nil
		}),
		WithTransportFromDeviceFactory(func(info detection.DeviceInfo) (Transport, error) {
			picked = info
			return simTransport{testutil.NewSimLink(sim)}, nil
		}),
		WithDeviceOptions(WithLogger(nil)))
	require.NoError(t, err)
	assert.NotNil(t, dev)
	assert.Equal(t, "/dev/ttyACM0", picked.Path)
}

func TestConnectDevice_AutoDetectNothing(t *testing.T) {
	t.Parallel()

	_, err := ConnectDevice(context.Background(), "",
		WithAutoDetection(),
		WithDeviceDetector(func(context.Context, *detection.Options) ([]detection.DeviceInfo, error) {
			return nil, nil
		}),
		WithTransportFromDeviceFactory(func(detection.DeviceInfo) (Transport, error) {
			t.Fatal("factory must not be called")
			return nil, nil
		}))
	require.ErrorIs(t, err, ErrDeviceNotFound)
}
