// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package pmbus

import "fmt"

// Cmd is a PMBus command code, the register index sent after the address.
type Cmd uint8

const (
	ClearFaultsCmd Cmd = 0x03
	VoutMode       Cmd = 0x20
	VoutCommand    Cmd = 0x21

	StatusByte        Cmd = 0x78
	StatusWord        Cmd = 0x79
	StatusVout        Cmd = 0x7a
	StatusIout        Cmd = 0x7b
	StatusInput       Cmd = 0x7c
	StatusTemperature Cmd = 0x7d
	StatusCml         Cmd = 0x7e
	StatusOther       Cmd = 0x7f
	StatusMfrSpecific Cmd = 0x80
	StatusFans        Cmd = 0x81

	ReadVin   Cmd = 0x88
	ReadIin   Cmd = 0x89
	ReadVout  Cmd = 0x8b
	ReadIout  Cmd = 0x8c
	ReadTemp1 Cmd = 0x8d
	ReadFan1  Cmd = 0x90
	ReadPout  Cmd = 0x96
	ReadPin   Cmd = 0x97

	PMBusRevision Cmd = 0x98
	MfrId         Cmd = 0x99
	MfrModel      Cmd = 0x9a
	MfrRevision   Cmd = 0x9b
	MfrLocation   Cmd = 0x9c
	MfrDate       Cmd = 0x9d
	MfrSerial     Cmd = 0x9e

	// muRata D1U86T cumulative power-on seconds.
	MfrPowerOn Cmd = 0xe5
)

// Inactive marks an unused slot of the active status table.
const Inactive Cmd = 0

func (c Cmd) String() string { return fmt.Sprintf("0x%02x", uint8(c)) }

// Category is one of the PMBus fault status domains.
type Category int

const (
	CatVout Category = iota
	CatIout
	CatInput
	CatTemperature
	CatCml
	CatOther
	CatMfrSpecific
	CatFans
	NCategory
)

var categoryNames = [NCategory]string{
	CatVout:        "vout",
	CatIout:        "iout",
	CatInput:       "input",
	CatTemperature: "temperature",
	CatCml:         "cml",
	CatOther:       "other",
	CatMfrSpecific: "mfr_specific",
	CatFans:        "fans",
}

func (c Category) String() string {
	if c >= 0 && c < NCategory {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Register returns the status register of the category.
func (c Category) Register() Cmd { return StatusVout + Cmd(c) }

// CategoryByName maps configuration names to categories.
func CategoryByName(s string) (Category, bool) {
	for i, name := range categoryNames {
		if name == s {
			return Category(i), true
		}
	}
	return 0, false
}

const (
	MaxTemperatures = 3
	MaxFans         = 2
)

// Identity string capacities, including the length prefix and terminator
// of the on-wire buffer.
const (
	MfrIdCap       = 8
	MfrModelCap    = 24
	MfrRevisionCap = 4
	MfrLocationCap = 8
	MfrDateCap     = 8
	MfrSerialCap   = 16
)
