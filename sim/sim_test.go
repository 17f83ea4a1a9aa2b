// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func read(d *Device, cmd uint8, n int) ([]byte, error) {
	d.BeginTransmission(d.Addr)
	d.Write(cmd)
	if err := d.EndTransmission(false); err != nil {
		return nil, err
	}
	return d.RequestFrom(d.Addr, n)
}

func TestReadWord(t *testing.T) {
	d := New(0x58)
	d.SetWord(0x88, 0xf9e6)
	b, err := read(d, 0x88, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xe6, 0xf9}, b)
	assert.Equal(t, 1, d.Reads(0x88))
	assert.Equal(t, 2, d.Transactions())
}

func TestNak(t *testing.T) {
	d := New(0x58)
	d.BeginTransmission(0x59)
	d.Write(0x88)
	assert.True(t, errors.Is(d.EndTransmission(false), ErrNak))

	_, err := d.RequestFrom(0x58, 2)
	assert.True(t, errors.Is(err, ErrNak))
}

func TestFailAndShort(t *testing.T) {
	d := New(0x58)
	d.SetString(0x9a, "DPS750TB1")
	d.Short(0x9a, 3)
	b, err := read(d, 0x9a, 32)
	assert.Error(t, err)
	assert.Equal(t, []byte{9, 'D', 'P'}, b)

	boom := errors.New("boom")
	d.Fail(0x9a, boom)
	_, err = read(d, 0x9a, 32)
	assert.Equal(t, boom, err)
	d.Fail(0x9a, nil)
}

func TestClearFaults(t *testing.T) {
	d := NewDPS750(0x58)
	d.SetByte(0x7d, 0x40)
	d.SetWord(0x79, 0x0004)
	d.BeginTransmission(0x58)
	d.Write(0x03)
	require.NoError(t, d.EndTransmission(true))
	assert.Equal(t, 1, d.Clears())
	b, err := read(d, 0x7d, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, b)
	b, err = read(d, 0x79, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0}, b)
}

func TestWrite(t *testing.T) {
	d := New(0x58)
	d.BeginTransmission(0x58)
	d.Write(0x01)
	d.Write(0x80)
	require.NoError(t, d.EndTransmission(true))
	b, found := d.Written(0x01)
	assert.True(t, found)
	assert.Equal(t, []byte{0x80}, b)
}

func TestPresets(t *testing.T) {
	for model, preset := range Presets {
		d := preset(0x58)
		b, err := read(d, 0x9a, 32)
		require.NoError(t, err, model)
		require.NotEmpty(t, b, model)
		assert.Equal(t, len(b)-1, int(b[0]), model)
	}
}
