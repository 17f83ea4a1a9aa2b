// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package sim provides an in-memory PMBus device that satisfies
// pmbus.Bus for tests and bench runs without hardware.
package sim

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

var ErrNak = errors.New("nak")

// Device answers reads from a register file. Registers hold the exact
// bytes returned: one for byte registers, low then high for words, and a
// count byte followed by data for blocks.
type Device struct {
	Addr uint8

	mutex sync.Mutex
	regs  map[uint8][]byte
	fail  map[uint8]error
	short map[uint8]int

	transactions int
	clears       int
	reads        map[uint8]int
	writes       map[uint8][]byte

	addr    uint8
	buf     []byte
	pointer uint8
	valid   bool
}

func New(addr uint8) *Device {
	return &Device{
		Addr:   addr,
		regs:   make(map[uint8][]byte),
		fail:   make(map[uint8]error),
		short:  make(map[uint8]int),
		reads:  make(map[uint8]int),
		writes: make(map[uint8][]byte),
	}
}

func (d *Device) set(cmd uint8, b []byte) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.regs[cmd] = b
}

func (d *Device) SetByte(cmd, v uint8) { d.set(cmd, []byte{v}) }

// SetBytes stores b as the register contents, without a count byte.
func (d *Device) SetBytes(cmd uint8, b []byte) { d.set(cmd, append([]byte{}, b...)) }

func (d *Device) SetWord(cmd uint8, v uint16) {
	d.set(cmd, []byte{uint8(v), uint8(v >> 8)})
}

// SetLinear stores f in LINEAR11 format.
func (d *Device) SetLinear(cmd uint8, f float64) { d.SetWord(cmd, linear11(f)) }

// SetBlock stores a block with its count byte.
func (d *Device) SetBlock(cmd uint8, data []byte) {
	d.set(cmd, append([]byte{uint8(len(data))}, data...))
}

func (d *Device) SetString(cmd uint8, s string) { d.SetBlock(cmd, []byte(s)) }

// Fail makes every transaction addressing cmd return err; nil clears it.
func (d *Device) Fail(cmd uint8, err error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if err == nil {
		delete(d.fail, cmd)
	} else {
		d.fail[cmd] = err
	}
}

// Short truncates reads of cmd to n bytes.
func (d *Device) Short(cmd uint8, n int) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.short[cmd] = n
}

// Transactions returns the count of completed transmissions and reads.
func (d *Device) Transactions() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.transactions
}

// Clears returns how many CLEAR_FAULTS commands were received.
func (d *Device) Clears() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.clears
}

// Reads returns how many reads addressed cmd.
func (d *Device) Reads(cmd uint8) int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.reads[cmd]
}

// Written returns the data last written to cmd.
func (d *Device) Written(cmd uint8) ([]byte, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	b, found := d.writes[cmd]
	return b, found
}

func (d *Device) BeginTransmission(addr uint8) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.addr = addr
	d.buf = d.buf[:0]
}

func (d *Device) Write(b byte) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.buf = append(d.buf, b)
}

func (d *Device) EndTransmission(stop bool) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.transactions++
	d.valid = false
	if d.addr != d.Addr {
		return fmt.Errorf("0x%02x: %w", d.addr, ErrNak)
	}
	if len(d.buf) == 0 {
		return nil
	}
	cmd := d.buf[0]
	if err := d.fail[cmd]; err != nil {
		return err
	}
	switch {
	case !stop:
		d.pointer = cmd
		d.valid = true
	case len(d.buf) == 1:
		d.send(cmd)
	default:
		d.writes[cmd] = append([]byte{}, d.buf[1:]...)
	}
	return nil
}

const clearFaults = 0x03

// Status registers zeroed by CLEAR_FAULTS.
var statusRegs = []uint8{0x78, 0x79, 0x7a, 0x7b, 0x7c, 0x7d, 0x7e, 0x7f,
	0x80, 0x81}

func (d *Device) send(cmd uint8) {
	if cmd != clearFaults {
		d.writes[cmd] = nil
		return
	}
	d.clears++
	for _, reg := range statusRegs {
		if b, found := d.regs[reg]; found {
			d.regs[reg] = make([]byte, len(b))
		}
	}
}

func (d *Device) RequestFrom(addr uint8, n int) ([]byte, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.transactions++
	if addr != d.Addr {
		return nil, fmt.Errorf("0x%02x: %w", addr, ErrNak)
	}
	if !d.valid {
		return nil, fmt.Errorf("read without command: %w", ErrNak)
	}
	d.valid = false
	d.reads[d.pointer]++
	if err := d.fail[d.pointer]; err != nil {
		return nil, err
	}
	reg := d.regs[d.pointer]
	if len(reg) > n {
		reg = reg[:n]
	}
	if m, found := d.short[d.pointer]; found && len(reg) > m {
		out := append([]byte{}, reg[:m]...)
		return out, fmt.Errorf("0x%02x: short read %d of %d",
			d.pointer, m, n)
	}
	return append([]byte{}, reg...), nil
}

func linear11(f float64) uint16 {
	for n := -16; n < 16; n++ {
		y := math.Round(f / math.Exp2(float64(n)))
		if y >= -1024 && y <= 1023 {
			return uint16(n&0x1f)<<11 | uint16(int(y)&0x7ff)
		}
	}
	return 0x7bff
}
