// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package i2cdev is a pmbus.Bus over a raw /dev/i2c-N character device.
// Each transmission is a plain write; reads follow as a separate read, so
// devices that require a repeated start should use package smbus.
package i2cdev

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// I2C_SLAVE from linux/i2c-dev.h
const i2cSlave = 0x0703

type port interface {
	setAddress(addr uint8) error
	write(b []byte) error
	read(b []byte) (int, error)
	close() error
}

type fdPort int

func (fd fdPort) setAddress(addr uint8) error {
	return unix.IoctlSetInt(int(fd), i2cSlave, int(addr))
}

func (fd fdPort) write(b []byte) error {
	n, err := unix.Write(int(fd), b)
	if err == nil && n != len(b) {
		err = fmt.Errorf("wrote %d of %d", n, len(b))
	}
	return err
}

func (fd fdPort) read(b []byte) (int, error) { return unix.Read(int(fd), b) }
func (fd fdPort) close() error               { return unix.Close(int(fd)) }

type Bus struct {
	path string
	port port
	addr uint8
	// bound is the address last set with I2C_SLAVE, valid if set.
	bound uint8
	set   bool
	buf   []byte
}

// Open the character device, e.g. "/dev/i2c-0".
func Open(path string) (*Bus, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", path, err)
	}
	return &Bus{path: path, port: fdPort(fd)}, nil
}

func (b *Bus) Close() error { return b.port.close() }

func (b *Bus) bind(addr uint8) error {
	if b.set && b.bound == addr {
		return nil
	}
	if err := b.port.setAddress(addr); err != nil {
		b.set = false
		return fmt.Errorf("%s: I2C_SLAVE 0x%02x: %v", b.path, addr, err)
	}
	b.bound, b.set = addr, true
	return nil
}

func (b *Bus) BeginTransmission(addr uint8) {
	b.addr = addr
	b.buf = b.buf[:0]
}

func (b *Bus) Write(v byte) { b.buf = append(b.buf, v) }

// EndTransmission writes the buffered bytes; stop has no effect on a raw
// character device.
func (b *Bus) EndTransmission(stop bool) error {
	if len(b.buf) == 0 {
		return nil
	}
	if err := b.bind(b.addr); err != nil {
		return err
	}
	if err := b.port.write(b.buf); err != nil {
		return fmt.Errorf("%s: 0x%02x: write: %v", b.path, b.addr, err)
	}
	return nil
}

func (b *Bus) RequestFrom(addr uint8, n int) ([]byte, error) {
	if err := b.bind(addr); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	i, err := b.port.read(buf)
	if i < 0 {
		i = 0
	}
	if err == nil && i < n {
		err = fmt.Errorf("short read %d of %d", i, n)
	}
	if err != nil {
		return buf[:i], fmt.Errorf("%s: 0x%02x: read: %v", b.path, addr,
			err)
	}
	return buf, nil
}
