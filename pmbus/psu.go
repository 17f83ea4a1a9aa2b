// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package pmbus drives a PMBus power supply: identification, model
// profile, fault status and range checked telemetry.
//
// A PSU holds no lock; callers serialize Init, Scan, ClearFaults, Enable,
// Standby and the accessors.
package pmbus

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/platinasystems/log"
)

const (
	DefaultAddress  = 0x58
	DefaultInterval = time.Second
	DefaultSettle   = 500 * time.Millisecond
	DefaultGap      = time.Millisecond
)

var (
	ErrNoBus   = errors.New("no bus")
	ErrAddress = errors.New("address out of 7-bit range")
)

// Lines drives named control lines such as PS_ON and an i2c buffer
// enable.
type Lines interface {
	SetLine(id string, level bool) error
}

// Line is a control line and its polarity. An empty ID is not driven.
type Line struct {
	ID         string
	ActiveHigh bool
}

// Level returns the electrical level for the asserted or deasserted
// state.
func (l Line) Level(assert bool) bool { return assert == l.ActiveHigh }

type Config struct {
	// Name prefixes log messages, e.g. "psu0".
	Name string
	// Address is the 7-bit device address, default 0x58.
	Address uint8
	// Bus defaults to DefaultBus.
	Bus   Bus
	Lines Lines
	// PowerLine is PS_ON; asserted means the output is enabled.
	PowerLine Line
	// BusLine enables the device's i2c buffer.
	BusLine Line
	// Diag receives the identification report written by Init.
	Diag io.Writer

	Interval time.Duration
	Settle   time.Duration
	Gap      time.Duration

	Ranges Ranges
	// Signatures are matched ahead of the built-in table.
	Signatures []Signature
	// Readings, if not nil, receives every scanned value without
	// blocking; values are dropped when the channel is full.
	Readings chan<- Reading
	// Now, if not nil, replaces time.Now for scan rate limiting.
	Now func() time.Time
}

type PSU struct {
	cfg  Config
	conn Conn

	ident     Ident
	profile   Profile
	status    Status
	telemetry Telemetry
	stats     ScanStats

	last time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// New returns an uninitialized PSU with defaults filled into cfg.
func New(cfg Config) *PSU {
	if cfg.Address == 0 {
		cfg.Address = DefaultAddress
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Settle == 0 {
		cfg.Settle = DefaultSettle
	}
	if cfg.Gap == 0 {
		cfg.Gap = DefaultGap
	}
	if cfg.Ranges == (Ranges{}) {
		cfg.Ranges = DefaultRanges
	}
	if cfg.Bus == nil {
		cfg.Bus = DefaultBus
	}
	h := &PSU{
		cfg:     cfg,
		profile: DefaultProfile(),
		now:     time.Now,
		sleep:   time.Sleep,
	}
	if cfg.Now != nil {
		h.now = cfg.Now
	}
	h.telemetry.Vin = 240
	h.conn = Conn{
		Bus:  cfg.Bus,
		Addr: cfg.Address,
		Gap:  cfg.Gap,
		Log:  log.NewRateLimited(ErrLogLimit, ErrLogPeriod),
	}
	h.conn.sleep = func(d time.Duration) { h.sleep(d) }
	return h
}

func (h *PSU) name() string {
	if len(h.cfg.Name) > 0 {
		return h.cfg.Name
	}
	return fmt.Sprintf("pmbus@0x%02x", h.cfg.Address)
}

// Init enables the device, reads its identity, detects the model and
// clears latched faults.
func (h *PSU) Init() error {
	if h.cfg.Bus == nil {
		return fmt.Errorf("%s: %w", h.name(), ErrNoBus)
	}
	if h.cfg.Address > 0x7f {
		return fmt.Errorf("%s: 0x%x: %w", h.name(), h.cfg.Address,
			ErrAddress)
	}
	if err := h.setLine(h.cfg.BusLine, true); err != nil {
		return err
	}
	if err := h.setLine(h.cfg.PowerLine, true); err != nil {
		return err
	}
	h.sleep(h.cfg.Settle)

	c := &h.conn
	c.GetString(MfrId, MfrIdCap, &h.ident.Id)
	c.GetString(MfrLocation, MfrLocationCap, &h.ident.Location)
	c.GetString(MfrDate, MfrDateCap, &h.ident.Date)
	c.GetString(MfrSerial, MfrSerialCap, &h.ident.Serial)

	h.Detect()
	h.ClearFaults()

	if h.cfg.Diag != nil {
		h.Report(h.cfg.Diag)
	}
	log.Printf("notice: %s: %s %s rev %s serial %s", h.name(),
		h.ident.Id, h.ident.Model, h.ident.Revision, h.ident.Serial)
	return nil
}

// Report writes the identification and power on time.
func (h *PSU) Report(w io.Writer) {
	fmt.Fprintf(w, "manf.:    '%s'\n", h.ident.Id)
	fmt.Fprintf(w, "model:    '%s'\n", h.ident.Model)
	fmt.Fprintf(w, "revision: '%s'\n", h.ident.Revision)
	fmt.Fprintf(w, "date:     '%s'\n", h.ident.Date)
	fmt.Fprintf(w, "serial:   '%s'\n", h.ident.Serial)
	if h.profile.HasPowerOn && h.profile.PowerOn != 0 {
		on := h.profile.PowerOn
		days := on / 86400
		fmt.Fprintf(w, "on time:  %d s (%08x) %d days, %d years\n",
			on, on, days, days/365)
	}
	fmt.Fprintf(w, "\n%s: init complete\n", h.name())
}

func (h *PSU) Name() string         { return h.name() }
func (h *PSU) Config() Config       { return h.cfg }
func (h *PSU) Ident() Ident         { return h.ident }
func (h *PSU) Profile() Profile     { return h.profile }
func (h *PSU) Status() Status       { return h.status }
func (h *PSU) Telemetry() Telemetry { return h.telemetry }
func (h *PSU) Stats() ScanStats     { return h.stats }

// Close stops the bus error logger. The bus itself belongs to the caller.
func (h *PSU) Close() error { return h.conn.Close() }

// SetRanges replaces the telemetry plausibility windows.
func (h *PSU) SetRanges(r Ranges) { h.cfg.Ranges = r }
