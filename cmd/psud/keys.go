// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package psud

import (
	"fmt"

	"github.com/platinasystems/pmbus/pmbus"
)

func key(u *unit, name string) string { return u.cfg.Name + "." + name }

func (c *Command) publishIdent(u *unit) {
	id := u.psu.Ident()
	c.pub.Print(key(u, "mfg_id"), id.Id)
	c.pub.Print(key(u, "mfg_model"), id.Model)
	c.pub.Print(key(u, "mfg_revision"), id.Revision)
	c.pub.Print(key(u, "mfg_location"), id.Location)
	c.pub.Print(key(u, "mfg_date"), id.Date)
	c.pub.Print(key(u, "sn"), id.Serial)
	if p := u.psu.Profile(); p.HasPowerOn {
		c.pub.Print(key(u, "power_on.units.s"), p.PowerOn)
	}
}

func hex8(b byte) string    { return fmt.Sprintf("0x%02x", b) }
func hex16(w uint16) string { return fmt.Sprintf("0x%04x", w) }

func (c *Command) publishStatus(u *unit) {
	s := u.psu.Status()
	p := u.psu.Profile()
	c.pub.Print(key(u, "status_byte"), hex16(s.Byte))
	c.pub.Print(key(u, "status_word"), hex16(s.Word))
	c.pub.Print(key(u, "faulted"), s.Faulted())
	for i := pmbus.Category(0); i < pmbus.NCategory; i++ {
		if p.IsActive(i) {
			c.pub.Print(key(u, "status_"+i.String()),
				hex8(s.Category[i]))
		}
	}
}

func (c *Command) publishTelemetry(u *unit) {
	t := u.psu.Telemetry()
	p := u.psu.Profile()
	c.pub.Print(key(u, "v_in.units.V"), t.Vin)
	c.pub.Print(key(u, "i_in.units.A"), t.Iin)
	c.pub.Print(key(u, "p_in.units.W"), t.Pin)
	c.pub.Print(key(u, "v_out.units.V"), t.Vout)
	c.pub.Print(key(u, "i_out.units.A"), t.Iout)
	c.pub.Print(key(u, "p_out.units.W"), t.Pout)
	for i := 0; i < p.Temperatures; i++ {
		c.pub.Print(key(u, fmt.Sprintf("temp%d.units.C", i+1)),
			t.Temperature[i])
	}
	for i := 0; i < p.Fans; i++ {
		c.pub.Print(key(u, fmt.Sprintf("fan%d_speed.units.rpm", i+1)),
			t.Fan[i])
	}
	c.pub.Print(key(u, "rejected"), u.rejected)
}
