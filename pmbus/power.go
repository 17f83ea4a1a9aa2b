// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package pmbus

import (
	"fmt"

	"github.com/platinasystems/log"
)

func (h *PSU) setLine(l Line, assert bool) error {
	if len(l.ID) == 0 || h.cfg.Lines == nil {
		return nil
	}
	if err := h.cfg.Lines.SetLine(l.ID, l.Level(assert)); err != nil {
		return fmt.Errorf("%s: %s: %v", h.name(), l.ID, err)
	}
	return nil
}

// Enable asserts the power line. Nothing is read back.
func (h *PSU) Enable() error {
	log.Print("notice: ", h.name(), " enable")
	return h.setLine(h.cfg.PowerLine, true)
}

// Standby deasserts the power line, leaving standby power.
func (h *PSU) Standby() error {
	log.Print("notice: ", h.name(), " standby")
	return h.setLine(h.cfg.PowerLine, false)
}
