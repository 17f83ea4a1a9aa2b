// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package gpioline

import (
	"fmt"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/platinasystems/fdt"
	"github.com/platinasystems/gpio"
	"github.com/platinasystems/log"
)

// LoadTree rebuilds the pin map from the gpio controllers and aliases of
// a flattened device tree then sets each pin direction.
func LoadTree(fn string) error {
	b, err := ioutil.ReadFile(fn)
	if err != nil {
		return err
	}
	gpio.Aliases = make(gpio.GpioAliasMap)
	gpio.Pins = make(gpio.PinMap)

	t := &fdt.Tree{Debug: false, IsLittleEndian: false}
	t.Parse(b)
	t.MatchNode("aliases", gatherAliases)
	t.EachProperty("gpio-controller", "", gatherPins)

	for name, pin := range gpio.Pins {
		if err := pin.SetDirection(); err != nil {
			log.Print("warning: ", name, ": ", err)
		}
	}
	if len(gpio.Pins) == 0 {
		return fmt.Errorf("%s: no gpio pins", fn)
	}
	return nil
}

func gatherAliases(n *fdt.Node) {
	for p, pn := range n.Properties {
		if strings.Contains(p, "gpio") {
			val := strings.Split(string(pn), "\x00")
			v := strings.Split(val[0], "/")
			gpio.Aliases[p] = v[len(v)-1]
		}
	}
}

func gatherPins(n *fdt.Node, name string, value string) {
	for bank, alias := range gpio.Aliases {
		if alias != n.Name {
			continue
		}
		for _, c := range n.Children {
			var mode string
			desc := false
			for p := range c.Properties {
				switch p {
				case "gpio-pin-desc":
					desc = true
				case "output-high", "output-low", "input":
					mode = p
				}
			}
			pn := strings.Split(c.Name, "@")
			if !desc || len(mode) == 0 || len(pn) != 2 {
				continue
			}
			i, _ := strconv.Atoi(pn[1])
			gpio.Pins[pn[0]] = gpio.GpioPinMode[mode] |
				gpio.GpioBankToBase[bank] |
				gpio.Pin(i)
		}
	}
}
