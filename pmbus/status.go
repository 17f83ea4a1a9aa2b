// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package pmbus

// Status is the last read fault status of the device.
type Status struct {
	// Byte is STATUS_BYTE (0x78), read as a word.
	Byte uint16
	Word uint16
	// Category holds one STATUS_* byte per fault category.
	Category [NCategory]byte
}

func (s Status) Vout() byte        { return s.Category[CatVout] }
func (s Status) Iout() byte        { return s.Category[CatIout] }
func (s Status) Input() byte       { return s.Category[CatInput] }
func (s Status) Temperature() byte { return s.Category[CatTemperature] }
func (s Status) Cml() byte         { return s.Category[CatCml] }
func (s Status) Other() byte       { return s.Category[CatOther] }
func (s Status) MfrSpecific() byte { return s.Category[CatMfrSpecific] }
func (s Status) Fans() byte        { return s.Category[CatFans] }

// Faulted reports whether any status bit is set.
func (s Status) Faulted() bool {
	if s.Byte != 0 || s.Word != 0 {
		return true
	}
	for _, b := range s.Category {
		if b != 0 {
			return true
		}
	}
	return false
}

func (h *PSU) refreshStatus() {
	c := &h.conn
	h.status.Byte = c.Get16(StatusByte)
	h.status.Word = c.Get16(StatusWord)
	for i, reg := range h.profile.Active {
		if reg != Inactive {
			h.status.Category[i] = c.Get8(reg)
		}
	}
}

// ClearFaults sends CLEAR_FAULTS and zeroes the local status without
// reading it back.
func (h *PSU) ClearFaults() {
	h.conn.Send(ClearFaultsCmd)
	h.status = Status{}
}
