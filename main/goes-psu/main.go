// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// This is a PSU monitor run as daemons w/in another distro.
package main

import (
	"os"

	"github.com/platinasystems/log"

	"github.com/platinasystems/pmbus/cmd/pmbus"
	"github.com/platinasystems/pmbus/cmd/psud"
	"github.com/platinasystems/pmbus/goes"
	"github.com/platinasystems/pmbus/gpioline"
)

// DeviceTree is the flattened device tree naming the PSU control pins.
var DeviceTree = "/boot/linux.dtb"

func gpioInit() {
	if fn := os.Getenv("GOES_DTB"); len(fn) > 0 {
		DeviceTree = fn
	}
	if err := gpioline.LoadTree(DeviceTree); err != nil {
		log.Print("warning: ", err)
	}
}

func main() {
	g := make(goes.ByName)
	g.Plot(
		&psud.Command{Init: gpioInit},
		&pmbus.Command{Init: gpioInit},
	)
	g.Main()
}
