// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package pmbus

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/platinasystems/pmbus/sim"
)

type clock struct {
	t     time.Time
	slept time.Duration
}

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

// newTestPSU returns a PSU on dev whose time only moves when the test
// advances it.
func newTestPSU(dev *sim.Device, cfg Config) (*PSU, *clock) {
	cfg.Bus = dev
	cfg.Address = dev.Addr
	h := New(cfg)
	c := &clock{t: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
	h.now = func() time.Time { return c.t }
	h.sleep = func(d time.Duration) { c.slept += d }
	return h, c
}

type mockLines struct {
	mock.Mock
}

func (m *mockLines) SetLine(id string, level bool) error {
	args := m.Called(id, level)
	return args.Error(0)
}

func TestNewDefaults(t *testing.T) {
	h := New(Config{})
	cfg := h.Config()
	assert.Equal(t, uint8(DefaultAddress), cfg.Address)
	assert.Equal(t, DefaultInterval, cfg.Interval)
	assert.Equal(t, DefaultSettle, cfg.Settle)
	assert.Equal(t, DefaultGap, cfg.Gap)
	assert.Equal(t, DefaultRanges, cfg.Ranges)
	assert.Equal(t, 240.0, h.Telemetry().Vin)
	assert.Equal(t, DefaultProfile(), h.Profile())
}

func TestInitErrors(t *testing.T) {
	saved := DefaultBus
	DefaultBus = nil
	defer func() { DefaultBus = saved }()

	err := New(Config{Name: "psu0"}).Init()
	assert.True(t, errors.Is(err, ErrNoBus))
	assert.EqualError(t, err, "psu0: no bus")

	err = New(Config{Bus: sim.New(0x58), Address: 0x80}).Init()
	assert.True(t, errors.Is(err, ErrAddress))
}

func TestInitDefaultBus(t *testing.T) {
	saved := DefaultBus
	defer func() { DefaultBus = saved }()
	dev := sim.NewGeneric(DefaultAddress)
	DefaultBus = dev

	h := New(Config{})
	h.sleep = func(time.Duration) {}
	require.NoError(t, h.Init())
	assert.Equal(t, "PSU-1000", h.Ident().Model)
}

func TestInit(t *testing.T) {
	dev := sim.NewDPS750(0x58)
	dev.SetByte(0x7a, 0x80)
	dev.SetWord(0x79, 0x0800)

	lines := new(mockLines)
	lines.On("SetLine", "PSU0_I2C_EN", false).Return(nil).Once()
	lines.On("SetLine", "PSU0_PWRON_L", false).Return(nil).Once()

	var diag bytes.Buffer
	h, c := newTestPSU(dev, Config{
		Name:      "psu0",
		Lines:     lines,
		PowerLine: Line{ID: "PSU0_PWRON_L"},
		BusLine:   Line{ID: "PSU0_I2C_EN"},
		Diag:      &diag,
	})
	require.NoError(t, h.Init())
	lines.AssertExpectations(t)

	assert.GreaterOrEqual(t, c.slept, DefaultSettle)
	assert.Equal(t, Ident{
		Id:            "DELL",
		Model:         "DPS750TB1",
		Revision:      "A0",
		Location:      "CN",
		Date:          "140512",
		Serial:        "CN1797254A01",
		PMBusRevision: 0,
		VoutMode:      0x17,
		VoutCommand:   0x1800,
	}, h.Ident())

	assert.Equal(t, 1, dev.Clears())
	assert.Equal(t, Status{}, h.Status())

	out := diag.String()
	assert.Contains(t, out, "manf.:    'DELL'")
	assert.Contains(t, out, "model:    'DPS750TB1'")
	assert.Contains(t, out, "serial:   'CN1797254A01'")
	assert.Contains(t, out, "psu0: init complete")
	assert.NotContains(t, out, "on time")
}

func TestInitLineError(t *testing.T) {
	lines := new(mockLines)
	lines.On("SetLine", "EN", true).Return(errors.New("no such pin"))

	h, _ := newTestPSU(sim.NewGeneric(0x58), Config{
		Name:    "psu1",
		Lines:   lines,
		BusLine: Line{ID: "EN", ActiveHigh: true},
	})
	assert.EqualError(t, h.Init(), "psu1: EN: no such pin")
}

func TestReportPowerOn(t *testing.T) {
	h, _ := newTestPSU(sim.NewD1U86T(0x58), Config{})
	require.NoError(t, h.Init())

	var out bytes.Buffer
	h.Report(&out)
	assert.Contains(t, out.String(),
		"on time:  39755840 s (025ea040) 460 days, 1 years")
}

func TestPowerPolarity(t *testing.T) {
	for _, tc := range []struct {
		activeHigh    bool
		enable, stdby bool
	}{
		{false, false, true},
		{true, true, false},
	} {
		lines := new(mockLines)
		lines.On("SetLine", "PSON", tc.enable).Return(nil).Once()
		lines.On("SetLine", "PSON", tc.stdby).Return(nil).Once()

		h, _ := newTestPSU(sim.NewGeneric(0x58), Config{
			Lines:     lines,
			PowerLine: Line{ID: "PSON", ActiveHigh: tc.activeHigh},
		})
		assert.NoError(t, h.Enable())
		assert.NoError(t, h.Standby())
		lines.AssertExpectations(t)
	}
}

func TestPowerWithoutLines(t *testing.T) {
	h, _ := newTestPSU(sim.NewGeneric(0x58), Config{
		PowerLine: Line{ID: "PSON"},
	})
	assert.NoError(t, h.Enable())
	assert.NoError(t, h.Standby())
}

func TestScanWithoutBus(t *testing.T) {
	saved := DefaultBus
	DefaultBus = nil
	defer func() { DefaultBus = saved }()

	h := New(Config{Name: "psu0"})
	defer h.Close()
	h.sleep = func(time.Duration) {}
	assert.True(t, errors.Is(h.Init(), ErrNoBus))

	assert.NotPanics(t, func() {
		assert.True(t, h.Scan())
		h.ClearFaults()
		h.Detect()
	})
	assert.Equal(t, 240.0, h.Telemetry().Vin)
	assert.NotZero(t, h.Stats().BusErrors)
	assert.NotZero(t, h.Stats().Rejected)
}

func TestClose(t *testing.T) {
	h, _ := newTestPSU(sim.NewGeneric(0x58), Config{})
	assert.NotNil(t, h.conn.Log)
	assert.NoError(t, h.Close())
	assert.Nil(t, h.conn.Log)
	assert.NoError(t, h.Close())
}
