// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package gpioline drives named GPIO pins for PSU power and bus enable
// control.
package gpioline

import (
	"fmt"
	"sync"

	"github.com/platinasystems/gpio"
)

type Pin interface {
	SetValue(bool) error
	Value() (bool, error)
}

type Lines struct {
	// Init, if not nil, is called once before the first pin access to
	// populate the pin map, e.g. from the device tree.
	Init func()
	init sync.Once

	lookup func(name string) (Pin, bool)
}

func New(init func()) *Lines {
	return &Lines{Init: init, lookup: lookupPin}
}

func lookupPin(name string) (Pin, bool) {
	pin, found := gpio.Pins[name]
	return &pin, found
}

func (l *Lines) pin(name string) (Pin, error) {
	if l.Init != nil {
		l.init.Do(l.Init)
	}
	pin, found := l.lookup(name)
	if !found {
		return nil, fmt.Errorf("%s: not found", name)
	}
	return pin, nil
}

// SetLine sets the named pin to the given electrical level.
func (l *Lines) SetLine(name string, level bool) error {
	pin, err := l.pin(name)
	if err != nil {
		return err
	}
	return pin.SetValue(level)
}

// Line returns the electrical level of the named pin.
func (l *Lines) Line(name string) (bool, error) {
	pin, err := l.pin(name)
	if err != nil {
		return false, err
	}
	return pin.Value()
}
