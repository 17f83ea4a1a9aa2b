// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package pmbus

import (
	"fmt"
	"time"
)

// Telemetry is the last accepted reading of each sensor.
type Telemetry struct {
	Vin, Iin, Pin    float64
	Vout, Iout, Pout float64

	Temperature [MaxTemperatures]float64
	Fan         [MaxFans]float64
}

// Range is an inclusive plausibility window.
type Range struct {
	Min, Max float64
}

func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Ranges bound each telemetry field. A decoded value outside its range
// is dropped and the field keeps its previous value.
type Ranges struct {
	Vin, Iin, Pin    Range
	Vout, Iout, Pout Range
	Temperature      Range
	Fan              Range
	// VoutCeiling bounds fixed point output voltage, exclusive.
	VoutCeiling float64
}

// DefaultRanges suit a 750 W, 12 V, universal input supply.
var DefaultRanges = Ranges{
	Vin:         Range{90, 264},
	Iin:         Range{0, 16},
	Pin:         Range{0, 750},
	Vout:        Range{0, 9999},
	Iout:        Range{0, 70},
	Pout:        Range{0, 750},
	Temperature: Range{-10, 100},
	Fan:         Range{0, 3000},
	VoutCeiling: 16,
}

// Field names a telemetry value in a Reading.
type Field string

const (
	FieldVin  Field = "v_in"
	FieldIin  Field = "i_in"
	FieldPin  Field = "p_in"
	FieldVout Field = "v_out"
	FieldIout Field = "i_out"
	FieldPout Field = "p_out"
)

func TemperatureField(i int) Field { return Field(fmt.Sprint("temp", i+1)) }
func FanField(i int) Field         { return Field(fmt.Sprint("fan", i+1)) }

// Reading is the outcome of one scanned register.
type Reading struct {
	Field    Field
	Cmd      Cmd
	Raw      uint16
	Value    float64
	Accepted bool
}

func (r Reading) String() string {
	verdict := "accepted"
	if !r.Accepted {
		verdict = "rejected"
	}
	return fmt.Sprintf("%s %v raw 0x%04x value %g %s",
		r.Field, r.Cmd, r.Raw, r.Value, verdict)
}

// ScanStats summarizes the last completed scan.
type ScanStats struct {
	Time      time.Time
	Scans     uint64
	Accepted  int
	Rejected  int
	BusErrors int
}

// Scan polls status and telemetry. It returns false without touching the
// bus when called within Interval of the previous scan.
func (h *PSU) Scan() bool {
	now := h.now()
	if !h.last.IsZero() && now.Sub(h.last) < h.cfg.Interval {
		return false
	}
	h.last = now

	h.stats = ScanStats{Time: now, Scans: h.stats.Scans + 1}
	h.conn.ResetErrors()

	if len(h.ident.Model) == 0 {
		h.Detect()
	}

	h.refreshStatus()

	r := &h.cfg.Ranges
	t := &h.telemetry
	h.linear(FieldVin, ReadVin, &t.Vin, r.Vin)
	h.linear(FieldIin, ReadIin, &t.Iin, r.Iin)
	h.linear(FieldPin, ReadPin, &t.Pin, r.Pin)
	h.vout()
	h.linear(FieldIout, ReadIout, &t.Iout, r.Iout)
	h.linear(FieldPout, ReadPout, &t.Pout, r.Pout)

	for i := 0; i < h.profile.Temperatures && i < MaxTemperatures; i++ {
		h.linear(TemperatureField(i), ReadTemp1+Cmd(i),
			&t.Temperature[i], r.Temperature)
	}
	for i := 0; i < h.profile.Fans && i < MaxFans; i++ {
		h.linear(FanField(i), ReadFan1+Cmd(i), &t.Fan[i], r.Fan)
	}

	h.stats.BusErrors = h.conn.Errors
	return true
}

func (h *PSU) linear(f Field, cmd Cmd, dst *float64, r Range) {
	raw := h.conn.Get16(cmd)
	v := Linear11(raw)
	h.accept(Reading{f, cmd, raw, v, r.Contains(v)}, dst)
}

func (h *PSU) vout() {
	raw := h.conn.Get16(ReadVout)
	rd := Reading{Field: FieldVout, Cmd: ReadVout, Raw: raw}
	switch h.profile.Vout.Decode {
	case VoutFixed:
		rd.Value = h.profile.Vout.Scale * float64(raw)
		rd.Accepted = rd.Value < h.cfg.Ranges.VoutCeiling
	case VoutLinear16:
		rd.Value = Linear16(raw, h.ident.VoutMode)
		rd.Accepted = h.cfg.Ranges.Vout.Contains(rd.Value)
	default:
		rd.Value = Linear11(raw)
		rd.Accepted = h.cfg.Ranges.Vout.Contains(rd.Value)
	}
	h.accept(rd, &h.telemetry.Vout)
}

func (h *PSU) accept(rd Reading, dst *float64) {
	if rd.Accepted {
		*dst = rd.Value
		h.stats.Accepted++
	} else {
		h.stats.Rejected++
	}
	if h.cfg.Readings != nil {
		select {
		case h.cfg.Readings <- rd:
		default:
		}
	}
}
