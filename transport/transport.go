// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package transport opens the pmbus.Bus configured for a PSU.
package transport

import (
	"fmt"

	"github.com/platinasystems/pmbus/config"
	"github.com/platinasystems/pmbus/i2cdev"
	"github.com/platinasystems/pmbus/pmbus"
	"github.com/platinasystems/pmbus/sim"
	"github.com/platinasystems/pmbus/smbus"
)

// Open returns an smbus adapter, a raw i2c-dev bus or, for transport sim,
// a preset simulated device at addr. The caller closes buses that
// implement io.Closer.
func Open(p *config.PSU, addr uint8) (pmbus.Bus, error) {
	switch p.Transport {
	case config.TransportSim:
		preset, found := sim.Presets[p.Sim]
		if !found {
			return nil, fmt.Errorf("%s: %q: no such sim", p.Name, p.Sim)
		}
		return preset(addr), nil
	case config.TransportI2CDev:
		return i2cdev.Open(fmt.Sprintf("/dev/i2c-%d", p.Bus))
	case "", config.TransportSMBus:
		return smbus.New(p.Bus), nil
	}
	return nil, fmt.Errorf("%s: %q: unknown transport", p.Name, p.Transport)
}
