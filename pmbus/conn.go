// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package pmbus

import (
	"time"

	"github.com/platinasystems/log"
)

// Bus is a byte oriented two-wire transport. Writes between
// BeginTransmission and EndTransmission are sent as one transaction;
// EndTransmission(false) holds the bus for a repeated start read.
//
// RequestFrom may return fewer than n bytes along with an error.
type Bus interface {
	BeginTransmission(addr uint8)
	Write(b byte)
	EndTransmission(stop bool) error
	RequestFrom(addr uint8, n int) ([]byte, error)
}

// DefaultBus is used by a PSU whose Config leaves Bus nil.
var DefaultBus Bus

// Conn composes Bus transactions into PMBus register accesses for one
// device address. Transport errors are counted and logged, never
// returned; short reads are zero filled. A nil Bus fails every
// transaction with ErrNoBus.
type Conn struct {
	Bus  Bus
	Addr uint8
	// Gap is slept before every transaction.
	Gap time.Duration

	// Errors counts failed transactions since the last ResetErrors.
	Errors int
	// Transactions counts attempted bus transactions.
	Transactions int
	// Log, if not nil, receives transport errors.
	Log *log.RateLimited

	sleep func(time.Duration)
}

// Bus error lines logged per PSU and period.
const (
	ErrLogLimit  = 10
	ErrLogPeriod = time.Minute
)

func (c *Conn) pause() {
	if c.Gap <= 0 {
		return
	}
	if c.sleep != nil {
		c.sleep(c.Gap)
	} else {
		time.Sleep(c.Gap)
	}
}

func (c *Conn) fail(cmd Cmd, err error) {
	c.Errors++
	if c.Log != nil {
		c.Log.Printf("debug: pmbus 0x%02x cmd %v: %v (%d errors)",
			c.Addr, cmd, err, c.Errors)
	}
}

// Close stops the error logger.
func (c *Conn) Close() error {
	if c.Log == nil {
		return nil
	}
	err := c.Log.Close()
	c.Log = nil
	return err
}

// ResetErrors clears the error count, returning its previous value.
func (c *Conn) ResetErrors() int {
	n := c.Errors
	c.Errors = 0
	return n
}

func (c *Conn) read(cmd Cmd, n int) []byte {
	c.pause()
	c.Transactions++
	buf := make([]byte, n)
	if c.Bus == nil {
		c.fail(cmd, ErrNoBus)
		return buf
	}
	c.Bus.BeginTransmission(c.Addr)
	c.Bus.Write(byte(cmd))
	if err := c.Bus.EndTransmission(false); err != nil {
		c.fail(cmd, err)
		return buf
	}
	b, err := c.Bus.RequestFrom(c.Addr, n)
	if err != nil {
		c.fail(cmd, err)
	}
	copy(buf, b)
	return buf
}

func (c *Conn) Get8(cmd Cmd) byte { return c.read(cmd, 1)[0] }

// Get reads n bytes with no count byte.
func (c *Conn) Get(cmd Cmd, n int) []byte { return c.read(cmd, n) }

// Get16 reads two bytes, low byte first.
func (c *Conn) Get16(cmd Cmd) uint16 {
	b := c.read(cmd, 2)
	return uint16(b[0]) | uint16(b[1])<<8
}

// GetBlock reads a count byte followed by that many data bytes, capped
// at size-1.
func (c *Conn) GetBlock(cmd Cmd, size int) []byte {
	if size < 2 {
		return nil
	}
	b := c.read(cmd, size)
	n := int(b[0])
	if n > size-1 {
		n = size - 1
	}
	return b[1 : 1+n]
}

// GetString reads a block into *s of the given buffer capacity. A
// reported length of zero, or one that would not fit capacity-1, leaves
// *s untouched and nothing beyond the count byte is read. The reported
// length is returned.
func (c *Conn) GetString(cmd Cmd, capacity int, s *string) int {
	n := int(c.Get8(cmd))
	if n > 0 && n < capacity-1 {
		b := c.GetBlock(cmd, n+1)
		*s = string(trimNul(b))
	}
	return n
}

func trimNul(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

func (c *Conn) Set8(cmd Cmd, v byte) {
	c.pause()
	c.Transactions++
	if c.Bus == nil {
		c.fail(cmd, ErrNoBus)
		return
	}
	c.Bus.BeginTransmission(c.Addr)
	c.Bus.Write(byte(cmd))
	c.Bus.Write(v)
	if err := c.Bus.EndTransmission(true); err != nil {
		c.fail(cmd, err)
	}
}

// Send issues a command with no data, e.g. CLEAR_FAULTS.
func (c *Conn) Send(cmd Cmd) {
	c.pause()
	c.Transactions++
	if c.Bus == nil {
		c.fail(cmd, ErrNoBus)
		return
	}
	c.Bus.BeginTransmission(c.Addr)
	c.Bus.Write(byte(cmd))
	if err := c.Bus.EndTransmission(true); err != nil {
		c.fail(cmd, err)
	}
}
