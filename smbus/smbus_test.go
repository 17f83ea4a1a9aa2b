// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package smbus

import (
	"errors"
	"testing"

	"github.com/platinasystems/i2c"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	addr uint8
	rw   i2c.RW
	cmd  uint8
	size i2c.SMBusSize
	data i2c.SMBusData
}

type recorder struct {
	calls []call
	reply i2c.SMBusData
	err   error
}

func (r *recorder) do(addr uint8, rw i2c.RW, cmd uint8, size i2c.SMBusSize,
	data *i2c.SMBusData) error {
	r.calls = append(r.calls, call{addr, rw, cmd, size, *data})
	if rw == i2c.Read {
		if size == i2c.I2CBlockData {
			copy(data[1:], r.reply[:])
		} else {
			*data = r.reply
		}
	}
	return r.err
}

func newTestBus() (*Bus, *recorder) {
	r := new(recorder)
	b := New(3)
	b.do = r.do
	return b, r
}

func TestReadWord(t *testing.T) {
	b, r := newTestBus()
	r.reply[0], r.reply[1] = 0x34, 0x12

	b.BeginTransmission(0x58)
	b.Write(0x79)
	require.NoError(t, b.EndTransmission(false))
	assert.Empty(t, r.calls)

	buf, err := b.RequestFrom(0x58, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x34, 0x12}, buf)
	require.Len(t, r.calls, 1)
	assert.Equal(t, i2c.Read, r.calls[0].rw)
	assert.Equal(t, uint8(0x79), r.calls[0].cmd)
	assert.Equal(t, i2c.WordData, r.calls[0].size)
}

func TestReadByteAndBlock(t *testing.T) {
	b, r := newTestBus()
	r.reply[0] = 4

	b.BeginTransmission(0x58)
	b.Write(0x99)
	b.EndTransmission(false)
	buf, err := b.RequestFrom(0x58, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, buf)
	assert.Equal(t, i2c.ByteData, r.calls[0].size)

	copy(r.reply[:], []byte{4, 'D', 'E', 'L', 'L'})
	b.BeginTransmission(0x58)
	b.Write(0x99)
	b.EndTransmission(false)
	buf, err = b.RequestFrom(0x58, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 'D', 'E', 'L', 'L'}, buf)
	assert.Equal(t, i2c.I2CBlockData, r.calls[1].size)
	assert.Equal(t, uint8(5), r.calls[1].data[0])
}

func TestReadWithoutCommand(t *testing.T) {
	b, _ := newTestBus()
	_, err := b.RequestFrom(0x58, 2)
	assert.True(t, errors.Is(err, ErrNoCommand))

	b.BeginTransmission(0x58)
	b.Write(0x88)
	b.EndTransmission(false)
	_, err = b.RequestFrom(0x59, 2)
	assert.True(t, errors.Is(err, ErrNoCommand))
}

func TestWrites(t *testing.T) {
	b, r := newTestBus()

	b.BeginTransmission(0x58)
	b.Write(0x03)
	require.NoError(t, b.EndTransmission(true))

	b.BeginTransmission(0x58)
	b.Write(0x01)
	b.Write(0x80)
	require.NoError(t, b.EndTransmission(true))

	b.BeginTransmission(0x58)
	b.Write(0x21)
	b.Write(0x00)
	b.Write(0x18)
	require.NoError(t, b.EndTransmission(true))

	require.Len(t, r.calls, 3)
	assert.Equal(t, i2c.Byte, r.calls[0].size)
	assert.Equal(t, uint8(0x03), r.calls[0].cmd)
	assert.Equal(t, i2c.ByteData, r.calls[1].size)
	assert.Equal(t, uint8(0x80), r.calls[1].data[0])
	assert.Equal(t, i2c.WordData, r.calls[2].size)
	assert.Equal(t, []byte{0x00, 0x18}, r.calls[2].data[:2])
	for _, c := range r.calls {
		assert.Equal(t, i2c.Write, c.rw)
		assert.Equal(t, uint8(0x58), c.addr)
	}
}

func TestError(t *testing.T) {
	b, r := newTestBus()
	r.err = errors.New("remote I/O error")
	b.BeginTransmission(0x58)
	b.Write(0x03)
	assert.EqualError(t, b.EndTransmission(true),
		"i2c-3: 0x58: 0x03: remote I/O error")

	b.BeginTransmission(0x58)
	b.Write(0x88)
	b.EndTransmission(false)
	_, err := b.RequestFrom(0x58, 2)
	assert.Error(t, err)
}
