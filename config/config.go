// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package config loads the PSU daemon's YAML configuration.
//
//	interval: 1s
//	redis:
//	  network: unix
//	  address: /run/goes/socks/redisd
//	mqtt:
//	  broker: tcp://localhost:1883
//	  encoding: cbor
//	ranges:
//	  vin: {min: 180, max: 264}
//	signatures:
//	  - model: DPS750TB1
//	    disable: [other, mfr_specific]
//	    temperatures: 2
//	    fans: 1
//	    vout: {decode: fixed, scale: 0.001953125}
//	    vout_revisions: [0]
//	psus:
//	  - name: psu0
//	    bus: 1
//	    address: 0x58
//	    power_line: {id: PSU0_PWRON_L}
//	    present_line: PSU0_PRSNT_L
package config

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/platinasystems/pmbus/pmbus"
	"github.com/platinasystems/pmbus/publisher"
)

const (
	TransportSMBus  = "smbus"
	TransportI2CDev = "i2cdev"
	TransportSim    = "sim"
)

type Config struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	// Settle and Gap override the driver defaults when not zero.
	Settle time.Duration `mapstructure:"settle" yaml:"settle"`
	Gap    time.Duration `mapstructure:"gap" yaml:"gap"`

	Redis      Redis                `mapstructure:"redis" yaml:"redis"`
	MQTT       publisher.MQTTConfig `mapstructure:"mqtt" yaml:"mqtt"`
	Ranges     Ranges               `mapstructure:"ranges" yaml:"ranges"`
	Signatures []Signature          `mapstructure:"signatures" yaml:"signatures"`
	PSUs       []PSU                `mapstructure:"psus" yaml:"psus"`
}

type Redis struct {
	// Network is "unix" or "tcp"; empty disables redis.
	Network string `mapstructure:"network" yaml:"network"`
	Address string `mapstructure:"address" yaml:"address"`
	Hash    string `mapstructure:"hash" yaml:"hash"`
}

type Range struct {
	Min float64 `mapstructure:"min" yaml:"min"`
	Max float64 `mapstructure:"max" yaml:"max"`
}

// Ranges override the default plausibility windows field by field.
type Ranges struct {
	Vin         *Range   `mapstructure:"vin" yaml:"vin,omitempty"`
	Iin         *Range   `mapstructure:"iin" yaml:"iin,omitempty"`
	Pin         *Range   `mapstructure:"pin" yaml:"pin,omitempty"`
	Vout        *Range   `mapstructure:"vout" yaml:"vout,omitempty"`
	Iout        *Range   `mapstructure:"iout" yaml:"iout,omitempty"`
	Pout        *Range   `mapstructure:"pout" yaml:"pout,omitempty"`
	Temperature *Range   `mapstructure:"temperature" yaml:"temperature,omitempty"`
	Fan         *Range   `mapstructure:"fan" yaml:"fan,omitempty"`
	VoutCeiling *float64 `mapstructure:"vout_ceiling" yaml:"vout_ceiling,omitempty"`
}

type Vout struct {
	Decode string  `mapstructure:"decode" yaml:"decode"`
	Scale  float64 `mapstructure:"scale" yaml:"scale"`
}

type Signature struct {
	Model          string   `mapstructure:"model" yaml:"model"`
	Disable        []string `mapstructure:"disable" yaml:"disable"`
	Temperatures   int      `mapstructure:"temperatures" yaml:"temperatures"`
	Fans           int      `mapstructure:"fans" yaml:"fans"`
	Vout           Vout     `mapstructure:"vout" yaml:"vout"`
	VoutRevisions  []int    `mapstructure:"vout_revisions" yaml:"vout_revisions"`
	PowerOnCounter bool     `mapstructure:"power_on_counter" yaml:"power_on_counter"`
	PowerOnRaw     bool     `mapstructure:"power_on_raw" yaml:"power_on_raw"`
}

type Line struct {
	ID         string `mapstructure:"id" yaml:"id"`
	ActiveHigh bool   `mapstructure:"active_high" yaml:"active_high"`
}

type PSU struct {
	Name string `mapstructure:"name" yaml:"name"`
	// Transport is smbus, i2cdev or sim; default smbus.
	Transport string `mapstructure:"transport" yaml:"transport"`
	// Bus is the adapter index, /dev/i2c-BUS.
	Bus int `mapstructure:"bus" yaml:"bus"`
	// Address in decimal or 0x hex; default 0x58.
	Address string `mapstructure:"address" yaml:"address"`
	// Sim names the simulated model when Transport is sim.
	Sim string `mapstructure:"sim" yaml:"sim"`

	PowerLine Line `mapstructure:"power_line" yaml:"power_line"`
	BusLine   Line `mapstructure:"bus_line" yaml:"bus_line"`
	// PresentLine and PowerOkLine are optional active low and active
	// high inputs reported in the PSU status.
	PresentLine string `mapstructure:"present_line" yaml:"present_line"`
	PowerOkLine string `mapstructure:"power_ok_line" yaml:"power_ok_line"`
}

func (p *PSU) Addr() (uint8, error) {
	if len(p.Address) == 0 {
		return pmbus.DefaultAddress, nil
	}
	u, err := strconv.ParseUint(p.Address, 0, 8)
	if err != nil || u > 0x7f {
		return 0, fmt.Errorf("%s: address %q: %w", p.Name, p.Address,
			pmbus.ErrAddress)
	}
	return uint8(u), nil
}

func (l Line) Pmbus() pmbus.Line { return pmbus.Line{ID: l.ID, ActiveHigh: l.ActiveHigh} }

func (r *Range) apply(dst *pmbus.Range) {
	if r != nil {
		*dst = pmbus.Range{Min: r.Min, Max: r.Max}
	}
}

// Pmbus returns the default ranges with the configured overrides.
func (r *Ranges) Pmbus() pmbus.Ranges {
	out := pmbus.DefaultRanges
	r.Vin.apply(&out.Vin)
	r.Iin.apply(&out.Iin)
	r.Pin.apply(&out.Pin)
	r.Vout.apply(&out.Vout)
	r.Iout.apply(&out.Iout)
	r.Pout.apply(&out.Pout)
	r.Temperature.apply(&out.Temperature)
	r.Fan.apply(&out.Fan)
	if r.VoutCeiling != nil {
		out.VoutCeiling = *r.VoutCeiling
	}
	return out
}

func voutDecode(s string) (pmbus.VoutDecode, error) {
	for _, d := range []pmbus.VoutDecode{pmbus.VoutLinear11,
		pmbus.VoutFixed, pmbus.VoutLinear16} {
		if s == d.String() {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%q: unknown vout decode", s)
}

func (s *Signature) Pmbus() (pmbus.Signature, error) {
	sig := pmbus.Signature{
		Model:          s.Model,
		Temperatures:   s.Temperatures,
		Fans:           s.Fans,
		PowerOnCounter: s.PowerOnCounter,
		PowerOnRaw:     s.PowerOnRaw,
	}
	if len(s.Model) == 0 {
		return sig, fmt.Errorf("signature without model")
	}
	for _, name := range s.Disable {
		c, found := pmbus.CategoryByName(name)
		if !found {
			return sig, fmt.Errorf("%s: %q: unknown status category",
				s.Model, name)
		}
		sig.Disable = append(sig.Disable, c)
	}
	if len(s.Vout.Decode) > 0 {
		d, err := voutDecode(s.Vout.Decode)
		if err != nil {
			return sig, fmt.Errorf("%s: %v", s.Model, err)
		}
		sig.Vout = pmbus.VoutFormat{Decode: d, Scale: s.Vout.Scale}
	}
	for _, rev := range s.VoutRevisions {
		if rev < 0 || rev > 0xff {
			return sig, fmt.Errorf("%s: vout revision %d out of range",
				s.Model, rev)
		}
		sig.VoutRevisions = append(sig.VoutRevisions, byte(rev))
	}
	return sig, nil
}

// PmbusSignatures converts the configured table.
func (c *Config) PmbusSignatures() ([]pmbus.Signature, error) {
	var sigs []pmbus.Signature
	for i := range c.Signatures {
		sig, err := c.Signatures[i].Pmbus()
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

// Validate checks what decoding cannot.
func (c *Config) Validate() error {
	if c.Interval < 0 {
		return fmt.Errorf("interval %v: negative", c.Interval)
	}
	if _, err := c.PmbusSignatures(); err != nil {
		return err
	}
	names := make(map[string]bool)
	for i := range c.PSUs {
		p := &c.PSUs[i]
		if len(p.Name) == 0 {
			p.Name = fmt.Sprint("psu", i)
		}
		if names[p.Name] {
			return fmt.Errorf("%s: duplicate", p.Name)
		}
		names[p.Name] = true
		if _, err := p.Addr(); err != nil {
			return err
		}
		switch p.Transport {
		case "":
			p.Transport = TransportSMBus
		case TransportSMBus, TransportI2CDev, TransportSim:
		default:
			return fmt.Errorf("%s: %q: unknown transport", p.Name,
				p.Transport)
		}
	}
	return nil
}

// Parse YAML from r.
func Parse(r io.Reader) (*Config, error) {
	l := newLoader()
	l.v.SetConfigType("yaml")
	if err := l.v.ReadConfig(r); err != nil {
		return nil, err
	}
	return l.decode()
}
