// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package psud provides the PMBus power supply daemon that publishes
// identity, status and telemetry to redis and MQTT.
package psud

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/platinasystems/log"
	"github.com/platinasystems/parms"

	"github.com/platinasystems/pmbus/config"
	"github.com/platinasystems/pmbus/goes"
	"github.com/platinasystems/pmbus/goes/lang"
	"github.com/platinasystems/pmbus/gpioline"
	"github.com/platinasystems/pmbus/pmbus"
	"github.com/platinasystems/pmbus/publisher"
	"github.com/platinasystems/pmbus/transport"
)

const (
	holdOffMin = time.Second
	holdOffMax = 30 * time.Second
)

// Lines are the control and sense lines of every PSU.
type Lines interface {
	pmbus.Lines
	Line(name string) (bool, error)
}

type Command struct {
	// Init, if not nil, is called once to populate the GPIO pin map.
	Init func()

	mutex sync.Mutex
	stop  chan struct{}
	once  sync.Once
	cfg   *config.Config
	pub   *publisher.Cache
	units []*unit
	lines Lines

	now    func() time.Time
	newBus func(p *config.PSU, addr uint8) (pmbus.Bus, error)
}

type unit struct {
	cfg      config.PSU
	psu      *pmbus.PSU
	bus      pmbus.Bus
	readings chan pmbus.Reading

	ready    bool
	enabled  bool
	rejected int
	holdOff  backoff.Backoff
	retry    time.Time
}

func (*Command) String() string { return "psud" }

func (*Command) Usage() string { return "psud [-config FILE]" }

func (*Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "pmbus power supply daemon, publishes to redis and mqtt",
		lang.DeDE: "PMBus-Netzteil-Dienst, veröffentlicht nach redis und mqtt",
		lang.FrFR: "démon d'alimentation pmbus, publie vers redis et mqtt",
	}
}

func (*Command) Kind() goes.Kind { return goes.Daemon }

func (c *Command) Main(args ...string) error {
	parm, args := parms.New(args, "-config")
	if len(args) > 0 {
		return fmt.Errorf("%v: unexpected", args)
	}
	fn := parm.ByName["-config"]
	if len(fn) == 0 {
		fn = config.DefaultFile
	}
	l := config.New(fn)
	cfg, err := l.Load()
	if err != nil {
		return err
	}
	pubs, err := dial(cfg)
	if err != nil {
		return err
	}
	return c.run(cfg, l.Watch, pubs...)
}

// run owns pubs and closes them on return, including setup failures.
func (c *Command) run(cfg *config.Config, watch func(func(*config.Config)),
	pubs ...publisher.Publisher) error {
	defer c.shutdown()
	if err := c.setup(cfg, pubs...); err != nil {
		return err
	}
	if watch != nil {
		watch(c.reload)
	}

	tick := cfg.Interval / 4
	if tick <= 0 {
		tick = pmbus.DefaultInterval / 4
	}
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-c.stopCh():
			return nil
		case <-t.C:
			if err := c.update(); err != nil {
				log.Print("warning: psud: ", err)
			}
		}
	}
}

func (c *Command) Close() error {
	c.once.Do(func() { close(c.stopCh()) })
	return nil
}

func (c *Command) stopCh() chan struct{} {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.stop == nil {
		c.stop = make(chan struct{})
	}
	return c.stop
}

func dial(cfg *config.Config) ([]publisher.Publisher, error) {
	var pubs []publisher.Publisher
	if len(cfg.Redis.Network) > 0 {
		r, err := publisher.DialRedis(cfg.Redis.Network,
			cfg.Redis.Address, cfg.Redis.Hash)
		if err != nil {
			return nil, fmt.Errorf("redis: %v", err)
		}
		pubs = append(pubs, r)
	}
	if len(cfg.MQTT.Broker) > 0 {
		m, err := publisher.DialMQTT(cfg.MQTT)
		if err != nil {
			for _, pub := range pubs {
				pub.Close()
			}
			return nil, err
		}
		pubs = append(pubs, m)
	}
	if len(pubs) == 0 {
		log.Print("warning: psud: no redis or mqtt configured")
	}
	return pubs, nil
}

func (c *Command) setup(cfg *config.Config, pubs ...publisher.Publisher) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.now == nil {
		c.now = time.Now
	}
	if c.newBus == nil {
		c.newBus = transport.Open
	}
	if c.lines == nil {
		c.lines = gpioline.New(c.Init)
	}
	c.pub = publisher.NewCache(pubs...)
	sigs, err := cfg.PmbusSignatures()
	if err != nil {
		return err
	}
	c.cfg = cfg
	for i := range cfg.PSUs {
		p := cfg.PSUs[i]
		addr, err := p.Addr()
		if err != nil {
			return err
		}
		bus, err := c.newBus(&p, addr)
		if err != nil {
			return err
		}
		u := &unit{
			cfg:      p,
			bus:      bus,
			readings: make(chan pmbus.Reading, 16),
			holdOff: backoff.Backoff{
				Min:    holdOffMin,
				Max:    holdOffMax,
				Factor: 2,
			},
		}
		u.psu = pmbus.New(pmbus.Config{
			Name:       p.Name,
			Address:    addr,
			Bus:        bus,
			Lines:      c.lines,
			PowerLine:  p.PowerLine.Pmbus(),
			BusLine:    p.BusLine.Pmbus(),
			Interval:   cfg.Interval,
			Settle:     cfg.Settle,
			Gap:        cfg.Gap,
			Ranges:     cfg.Ranges.Pmbus(),
			Signatures: sigs,
			Readings:   u.readings,
			Now:        c.now,
		})
		c.units = append(c.units, u)
	}
	return nil
}

// reload applies the telemetry ranges of a changed configuration; other
// changes take effect on restart.
func (c *Command) reload(cfg *config.Config) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	r := cfg.Ranges.Pmbus()
	for _, u := range c.units {
		u.psu.SetRanges(r)
	}
}

func (c *Command) shutdown() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for _, u := range c.units {
		u.psu.Close()
		if closer, ok := u.bus.(io.Closer); ok {
			closer.Close()
		}
	}
	if c.pub != nil {
		c.pub.Close()
	}
}

func (c *Command) unit(name string) (*unit, error) {
	for _, u := range c.units {
		if u.cfg.Name == name {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%s: not found", name)
}

// SetAdminState enables or disables the named PSU's output.
func (c *Command) SetAdminState(name, state string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	u, err := c.unit(name)
	if err != nil {
		return err
	}
	switch state {
	case "enable":
		err = u.psu.Enable()
		if err == nil {
			u.enabled = true
		}
	case "disable":
		err = u.psu.Standby()
		if err == nil {
			u.enabled = false
		}
	default:
		return fmt.Errorf("%s: %q: invalid, must be enable|disable",
			name, state)
	}
	return err
}

// ClearFaults sends CLEAR_FAULTS to the named PSU.
func (c *Command) ClearFaults(name string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	u, err := c.unit(name)
	if err != nil {
		return err
	}
	if !u.ready {
		return fmt.Errorf("%s: not initialized", name)
	}
	u.psu.ClearFaults()
	c.publishStatus(u)
	return c.pub.Flush()
}

func (c *Command) update() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := c.now()
	for _, u := range c.units {
		c.updateUnit(u, now)
	}
	return c.pub.Flush()
}

// present is false only when the active low present line reads high.
func (c *Command) present(u *unit) bool {
	if len(u.cfg.PresentLine) == 0 {
		return true
	}
	t, err := c.lines.Line(u.cfg.PresentLine)
	if err != nil {
		log.Print("warning: ", u.cfg.Name, ": ", err)
		return true
	}
	return !t
}

func (c *Command) psuStatus(u *unit) string {
	if len(u.cfg.PowerOkLine) == 0 {
		return "undetermined"
	}
	t, err := c.lines.Line(u.cfg.PowerOkLine)
	if err != nil {
		return err.Error()
	}
	if !t {
		return "powered_off"
	}
	return "powered_on"
}

func (c *Command) updateUnit(u *unit, now time.Time) {
	if !c.present(u) {
		if u.ready {
			log.Print("notice: ", u.cfg.Name, " removed")
			c.forget(u)
			u.ready = false
		}
		c.pub.Print(key(u, "status"), "not_installed")
		return
	}
	if !u.ready {
		if now.Before(u.retry) {
			return
		}
		if err := u.psu.Init(); err != nil {
			d := u.holdOff.Duration()
			u.retry = now.Add(d)
			log.Print("warning: ", err, ", retry in ", d)
			return
		}
		u.holdOff.Reset()
		u.ready = true
		u.enabled = true
		c.publishIdent(u)
	}
	c.pub.Print(key(u, "status"), c.psuStatus(u))
	admin := "disabled"
	if u.enabled {
		admin = "enabled"
	}
	c.pub.Print(key(u, "admin.state"), admin)
	if u.psu.Scan() {
		c.drain(u)
		c.publishStatus(u)
		c.publishTelemetry(u)
	}
}

func (c *Command) drain(u *unit) {
	for {
		select {
		case rd := <-u.readings:
			if !rd.Accepted {
				u.rejected++
				log.Print("debug: ", u.cfg.Name, ": ", rd)
			}
		default:
			return
		}
	}
}

// forget deletes every published key of the unit.
func (c *Command) forget(u *unit) {
	prefix := u.cfg.Name + "."
	for _, k := range c.pub.Keys() {
		if strings.HasPrefix(k, prefix) && k != key(u, "status") {
			c.pub.Delete(k)
		}
	}
}
