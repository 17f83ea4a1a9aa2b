// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package smbus adapts a Linux SMBus adapter, /dev/i2c-INDEX, to
// pmbus.Bus.
//
// Buffered writes are mapped to SMBus transfers on EndTransmission: a
// lone command byte with stop is a send-byte, a command and one byte is a
// byte-data write, a command and two bytes a word-data write, and longer
// writes an i2c block write. A command ended without stop is held for the
// following RequestFrom, which reads 1 byte as byte-data, 2 as word-data
// and more as an i2c block read.
package smbus

import (
	"errors"
	"fmt"

	"github.com/platinasystems/i2c"
)

var ErrNoCommand = errors.New("read without command")

const blockMax = 32

type transfer func(addr uint8, rw i2c.RW, cmd uint8, size i2c.SMBusSize,
	data *i2c.SMBusData) error

type Bus struct {
	// Index selects /dev/i2c-INDEX.
	Index int

	addr uint8
	buf  []byte
	cmd  uint8
	held bool

	do transfer
}

func New(index int) *Bus {
	b := &Bus{Index: index}
	b.do = b.transfer
	return b
}

func (b *Bus) transfer(addr uint8, rw i2c.RW, cmd uint8, size i2c.SMBusSize,
	data *i2c.SMBusData) (err error) {
	var bus i2c.Bus

	err = bus.Open(b.Index)
	if err != nil {
		return
	}
	defer bus.Close()

	err = bus.ForceSlaveAddress(int(addr))
	if err != nil {
		return
	}

	err = bus.Do(rw, cmd, size, data)
	return
}

func (b *Bus) BeginTransmission(addr uint8) {
	b.addr = addr
	b.buf = b.buf[:0]
	b.held = false
}

func (b *Bus) Write(v byte) { b.buf = append(b.buf, v) }

func (b *Bus) EndTransmission(stop bool) error {
	if len(b.buf) == 0 {
		return nil
	}
	cmd := b.buf[0]
	if !stop {
		if len(b.buf) > 1 {
			return fmt.Errorf("i2c-%d: 0x%02x: %d bytes before read",
				b.Index, b.addr, len(b.buf))
		}
		b.cmd = cmd
		b.held = true
		return nil
	}
	var data i2c.SMBusData
	var size i2c.SMBusSize
	payload := b.buf[1:]
	switch len(payload) {
	case 0:
		// send-byte carries its byte in the command field
		size = i2c.Byte
	case 1:
		size = i2c.ByteData
		data[0] = payload[0]
	case 2:
		size = i2c.WordData
		data[0] = payload[0]
		data[1] = payload[1]
	default:
		if len(payload) > blockMax {
			return fmt.Errorf("i2c-%d: 0x%02x: %d byte write exceeds %d",
				b.Index, b.addr, len(payload), blockMax)
		}
		size = i2c.I2CBlockData
		data[0] = uint8(len(payload))
		copy(data[1:], payload)
	}
	return b.wrap(b.do(b.addr, i2c.Write, cmd, size, &data), cmd)
}

func (b *Bus) RequestFrom(addr uint8, n int) ([]byte, error) {
	if !b.held || addr != b.addr {
		return nil, fmt.Errorf("i2c-%d: 0x%02x: %w", b.Index, addr,
			ErrNoCommand)
	}
	b.held = false
	var data i2c.SMBusData
	var out []byte
	var err error
	switch {
	case n <= 0:
		return nil, nil
	case n == 1:
		err = b.do(addr, i2c.Read, b.cmd, i2c.ByteData, &data)
		out = data[:1]
	case n == 2:
		err = b.do(addr, i2c.Read, b.cmd, i2c.WordData, &data)
		out = data[:2]
	default:
		if n > blockMax {
			n = blockMax
		}
		data[0] = uint8(n)
		err = b.do(addr, i2c.Read, b.cmd, i2c.I2CBlockData, &data)
		out = data[1 : 1+n]
	}
	if err != nil {
		return nil, b.wrap(err, b.cmd)
	}
	return append([]byte{}, out...), nil
}

func (b *Bus) wrap(err error, cmd uint8) error {
	if err != nil {
		err = fmt.Errorf("i2c-%d: 0x%02x: 0x%02x: %v", b.Index, b.addr,
			cmd, err)
	}
	return err
}
