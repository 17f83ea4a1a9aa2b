// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package pmbus provides a command to identify and poll one PMBus power
// supply.
package pmbus

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/parms"
	"gopkg.in/yaml.v3"

	"github.com/platinasystems/pmbus/config"
	"github.com/platinasystems/pmbus/goes/lang"
	"github.com/platinasystems/pmbus/gpioline"
	"github.com/platinasystems/pmbus/pmbus"
	"github.com/platinasystems/pmbus/transport"
)

type Command struct {
	// Init, if not nil, is called once to populate the GPIO pin map.
	Init func()

	stdout   io.Writer
	terminal func() bool
	lines    pmbus.Lines
}

func (*Command) String() string { return "pmbus" }

func (*Command) Usage() string {
	return `pmbus [-clear] [-on|-standby] [-yaml] [-config FILE -psu NAME]
	[-bus N] [-address ADDR] [-transport smbus|i2cdev|sim] [-sim MODEL]
	[-pson PIN] [-settle DURATION]`
}

func (*Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "identify and poll a pmbus power supply",
		lang.DeDE: "PMBus-Netzteil identifizieren und abfragen",
		lang.FrFR: "identifier et interroger une alimentation pmbus",
	}
}

func (c *Command) Main(args ...string) error {
	flag, args := flags.New(args, "-clear", "-on", "-standby", "-yaml")
	parm, args := parms.New(args, "-config", "-psu", "-bus", "-address",
		"-transport", "-sim", "-pson", "-settle")
	if len(args) > 0 {
		return fmt.Errorf("%v: unexpected", args)
	}
	if flag.ByName["-on"] && flag.ByName["-standby"] {
		return fmt.Errorf("-on and -standby are exclusive")
	}

	cfg := new(config.Config)
	p, err := c.psu(cfg, parm.ByName)
	if err != nil {
		return err
	}
	addr, err := p.Addr()
	if err != nil {
		return err
	}
	settle := cfg.Settle
	if s := parm.ByName["-settle"]; len(s) > 0 {
		if settle, err = time.ParseDuration(s); err != nil {
			return fmt.Errorf("-settle: %v", err)
		}
	}
	sigs, err := cfg.PmbusSignatures()
	if err != nil {
		return err
	}
	bus, err := transport.Open(p, addr)
	if err != nil {
		return err
	}
	if closer, ok := bus.(io.Closer); ok {
		defer closer.Close()
	}

	if c.stdout == nil {
		c.stdout = os.Stdout
	}
	if c.terminal == nil {
		c.terminal = func() bool {
			return isatty.IsTerminal(os.Stdout.Fd())
		}
	}
	if c.lines == nil && len(p.PowerLine.ID)+len(p.BusLine.ID) > 0 {
		c.lines = gpioline.New(c.Init)
	}

	pcfg := pmbus.Config{
		Name:       p.Name,
		Address:    addr,
		Bus:        bus,
		Lines:      c.lines,
		PowerLine:  p.PowerLine.Pmbus(),
		BusLine:    p.BusLine.Pmbus(),
		Settle:     settle,
		Gap:        cfg.Gap,
		Ranges:     cfg.Ranges.Pmbus(),
		Signatures: sigs,
	}
	text := !flag.ByName["-yaml"]
	if text && c.terminal() {
		pcfg.Diag = c.stdout
	}
	h := pmbus.New(pcfg)
	defer h.Close()
	if err = h.Init(); err != nil {
		return err
	}
	switch {
	case flag.ByName["-on"]:
		err = h.Enable()
	case flag.ByName["-standby"]:
		err = h.Standby()
	}
	if err != nil {
		return err
	}
	if flag.ByName["-clear"] {
		h.ClearFaults()
	}
	h.Scan()

	r := newReport(h)
	switch {
	case !text:
		return yaml.NewEncoder(c.stdout).Encode(r)
	case c.terminal():
		r.table(c.stdout)
	default:
		r.lines(c.stdout)
	}
	return nil
}

// psu returns the named entry of the config file, if any, with command
// line overrides.
func (c *Command) psu(cfg *config.Config, parm map[string]string) (*config.PSU, error) {
	p := &config.PSU{Name: "psu0", Transport: config.TransportSMBus}
	if fn := parm["-config"]; len(fn) > 0 {
		loaded, err := config.New(fn).Load()
		if err != nil {
			return nil, err
		}
		*cfg = *loaded
		name := parm["-psu"]
		found := false
		for i := range cfg.PSUs {
			if len(name) == 0 || cfg.PSUs[i].Name == name {
				*p = cfg.PSUs[i]
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%s: %s: not found", fn, name)
		}
	}
	if s := parm["-bus"]; len(s) > 0 {
		i, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("-bus: %v", err)
		}
		p.Bus = i
	}
	if s := parm["-address"]; len(s) > 0 {
		p.Address = s
	}
	if s := parm["-transport"]; len(s) > 0 {
		p.Transport = s
	}
	if s := parm["-sim"]; len(s) > 0 {
		p.Sim = s
		if len(parm["-transport"]) == 0 {
			p.Transport = config.TransportSim
		}
	}
	if s := parm["-pson"]; len(s) > 0 {
		p.PowerLine = config.Line{ID: s}
	}
	return p, nil
}
