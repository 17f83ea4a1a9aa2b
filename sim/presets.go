// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package sim

// Presets by model name.
var Presets = map[string]func(addr uint8) *Device{
	"DPS750TB1":            NewDPS750,
	"D1U86T-W-800-12-HB4C": NewD1U86T,
	"generic":              NewGeneric,
}

func common(d *Device) {
	d.SetByte(0x98, 0x22)
	d.SetByte(0x20, 0x17)
	d.SetWord(0x21, 0x1800)
	d.SetWord(0x78, 0)
	d.SetWord(0x79, 0)
	for reg := uint8(0x7a); reg <= 0x81; reg++ {
		d.SetByte(reg, 0)
	}
	d.SetLinear(0x88, 230)
	d.SetLinear(0x89, 1.5)
	d.SetLinear(0x97, 330)
	d.SetLinear(0x8b, 12.0)
	d.SetLinear(0x8c, 25)
	d.SetLinear(0x96, 300)
	d.SetLinear(0x8d, 31)
	d.SetLinear(0x8e, 38)
	d.SetLinear(0x8f, 44)
	d.SetLinear(0x90, 1500)
	d.SetLinear(0x91, 1480)
}

// NewDPS750 resembles a Dell DPS-750TB with PMBus revision 0, where
// READ_VOUT is a raw count of 1/512 V.
func NewDPS750(addr uint8) *Device {
	d := New(addr)
	common(d)
	d.SetString(0x99, "DELL")
	d.SetString(0x9a, "DPS750TB1")
	d.SetString(0x9b, "A0")
	d.SetString(0x9c, "CN")
	d.SetString(0x9d, "140512")
	d.SetString(0x9e, "CN1797254A01")
	d.SetByte(0x98, 0)
	d.SetWord(0x8b, 12*512)
	return d
}

func NewD1U86T(addr uint8) *Device {
	d := New(addr)
	common(d)
	d.SetString(0x99, "MURATA")
	d.SetString(0x9a, "D1U86T-W-800-12-HB4C")
	d.SetString(0x9b, "A1")
	d.SetString(0x9c, "US")
	d.SetString(0x9d, "1901")
	d.SetString(0x9e, "M1234567")
	d.SetBlock(0xe5, []byte{0x02, 0x5e, 0xa0, 0x40})
	return d
}

func NewGeneric(addr uint8) *Device {
	d := New(addr)
	common(d)
	d.SetString(0x99, "ACME")
	d.SetString(0x9a, "PSU-1000")
	d.SetString(0x9b, "01")
	return d
}
