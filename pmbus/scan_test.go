// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package pmbus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinasystems/pmbus/sim"
)

func TestScanRateLimit(t *testing.T) {
	dev := sim.NewDPS750(0x58)
	h, c := newTestPSU(dev, Config{})
	require.True(t, h.Scan())

	n := dev.Transactions()
	assert.False(t, h.Scan())
	c.advance(999 * time.Millisecond)
	assert.False(t, h.Scan())
	assert.Equal(t, n, dev.Transactions())

	c.advance(time.Millisecond)
	assert.True(t, h.Scan())
	assert.Greater(t, dev.Transactions(), n)
	assert.Equal(t, uint64(2), h.Stats().Scans)
}

func TestScanDPS750(t *testing.T) {
	dev := sim.NewDPS750(0x58)
	h, _ := newTestPSU(dev, Config{})
	require.True(t, h.Scan())

	tm := h.Telemetry()
	assert.Equal(t, 230.0, tm.Vin)
	assert.Equal(t, 1.5, tm.Iin)
	assert.Equal(t, 330.0, tm.Pin)
	assert.Equal(t, 12.0, tm.Vout)
	assert.Equal(t, 25.0, tm.Iout)
	assert.Equal(t, 300.0, tm.Pout)
	assert.Equal(t, [MaxTemperatures]float64{31, 38, 0}, tm.Temperature)
	assert.Equal(t, [MaxFans]float64{1500, 0}, tm.Fan)

	// sensors beyond the model's counts are never addressed
	assert.Equal(t, 0, dev.Reads(0x8f))
	assert.Equal(t, 0, dev.Reads(0x91))

	st := h.Stats()
	assert.Equal(t, 9, st.Accepted)
	assert.Equal(t, 0, st.Rejected)
	assert.Equal(t, 0, st.BusErrors)
}

func TestScanRange(t *testing.T) {
	dev := sim.NewGeneric(0x58)
	h, c := newTestPSU(dev, Config{})
	require.True(t, h.Scan())
	require.Equal(t, 230.0, h.Telemetry().Vin)

	// bounds are inclusive
	dev.SetLinear(0x88, 264)
	c.advance(time.Second)
	require.True(t, h.Scan())
	assert.Equal(t, 264.0, h.Telemetry().Vin)

	dev.SetLinear(0x88, 300)
	dev.SetLinear(0x8d, -20)
	c.advance(time.Second)
	require.True(t, h.Scan())
	assert.Equal(t, 264.0, h.Telemetry().Vin)
	assert.Equal(t, 31.0, h.Telemetry().Temperature[0])
	assert.Equal(t, 2, h.Stats().Rejected)
}

func TestScanRangeLower(t *testing.T) {
	dev := sim.NewGeneric(0x58)
	dev.SetLinear(0x88, 90)
	dev.SetLinear(0x89, 0)
	dev.SetLinear(0x8d, -10)
	dev.SetLinear(0x90, 0)
	h, c := newTestPSU(dev, Config{})
	require.True(t, h.Scan())
	tm := h.Telemetry()
	assert.Equal(t, 90.0, tm.Vin)
	assert.Equal(t, 0.0, tm.Iin)
	assert.Equal(t, -10.0, tm.Temperature[0])
	assert.Equal(t, 0.0, tm.Fan[0])
	assert.Equal(t, 0, h.Stats().Rejected)

	dev.SetLinear(0x88, 89.5)
	dev.SetLinear(0x8d, -10.5)
	c.advance(time.Second)
	require.True(t, h.Scan())
	tm = h.Telemetry()
	assert.Equal(t, 90.0, tm.Vin)
	assert.Equal(t, -10.0, tm.Temperature[0])
	assert.Equal(t, 2, h.Stats().Rejected)
}

func TestScanSetRanges(t *testing.T) {
	dev := sim.NewGeneric(0x58)
	h, _ := newTestPSU(dev, Config{})
	r := DefaultRanges
	r.Vin = Range{100, 200}
	h.SetRanges(r)
	require.True(t, h.Scan())
	assert.Equal(t, 240.0, h.Telemetry().Vin)
}

func TestScanVoutCeiling(t *testing.T) {
	dev := sim.NewDPS750(0x58)
	h, c := newTestPSU(dev, Config{})
	require.True(t, h.Scan())

	dev.SetWord(0x8b, 16*512)
	c.advance(time.Second)
	require.True(t, h.Scan())
	assert.Equal(t, 12.0, h.Telemetry().Vout)

	dev.SetWord(0x8b, 16*512-1)
	c.advance(time.Second)
	require.True(t, h.Scan())
	assert.InDelta(t, 16.0, h.Telemetry().Vout, 1.0/256)
}

func TestScanVoutLinear16(t *testing.T) {
	dev := sim.NewGeneric(0x58)
	dev.SetWord(0x8b, 5*512)
	h, _ := newTestPSU(dev, Config{
		Signatures: []Signature{{
			Model:        "PSU-1000",
			Temperatures: 3,
			Fans:         2,
			Vout:         VoutFormat{Decode: VoutLinear16},
		}},
	})
	require.True(t, h.Scan())
	assert.Equal(t, 5.0, h.Telemetry().Vout)
}

func TestScanBusError(t *testing.T) {
	dev := sim.NewGeneric(0x58)
	dev.Fail(0x88, errors.New("timeout"))
	h, _ := newTestPSU(dev, Config{})
	require.True(t, h.Scan())
	// a failed read decodes as zero, below the input range
	assert.Equal(t, 240.0, h.Telemetry().Vin)
	assert.Equal(t, 1, h.Stats().BusErrors)
	assert.Equal(t, 1, h.Stats().Rejected)
}

func TestScanReadings(t *testing.T) {
	dev := sim.NewDPS750(0x58)
	dev.SetLinear(0x8c, 80)
	ch := make(chan Reading, 16)
	h, _ := newTestPSU(dev, Config{Readings: ch})
	require.True(t, h.Scan())
	close(ch)

	var fields []Field
	var rejected []Reading
	for rd := range ch {
		fields = append(fields, rd.Field)
		if !rd.Accepted {
			rejected = append(rejected, rd)
		}
	}
	assert.Equal(t, []Field{FieldVin, FieldIin, FieldPin, FieldVout,
		FieldIout, FieldPout, "temp1", "temp2", "fan1"}, fields)
	require.Len(t, rejected, 1)
	assert.Equal(t, ReadIout, rejected[0].Cmd)
	assert.Equal(t, 80.0, rejected[0].Value)
	assert.Contains(t, rejected[0].String(), "i_out 0x8c")
	assert.Contains(t, rejected[0].String(), "rejected")
}

func TestScanReadingsFull(t *testing.T) {
	ch := make(chan Reading, 1)
	h, _ := newTestPSU(sim.NewGeneric(0x58), Config{Readings: ch})
	require.True(t, h.Scan())
	assert.Len(t, ch, 1)
	assert.Equal(t, FieldVin, (<-ch).Field)
}

func TestScanRedetect(t *testing.T) {
	dev := sim.NewDPS750(0x58)
	dev.Fail(0x9a, errors.New("busy"))
	h, c := newTestPSU(dev, Config{})
	require.NoError(t, h.Init())
	assert.Empty(t, h.Ident().Model)
	assert.Empty(t, h.Profile().Signature)

	dev.Fail(0x9a, nil)
	c.advance(time.Second)
	require.True(t, h.Scan())
	assert.Equal(t, "DPS750TB1", h.Ident().Model)
	assert.Equal(t, "DPS750TB1", h.Profile().Signature)
	assert.Equal(t, 12.0, h.Telemetry().Vout)
}
