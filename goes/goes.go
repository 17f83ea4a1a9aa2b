// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package goes dispatches a multi-call program to the command named by
// the program itself or by its first argument.
package goes

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/platinasystems/flags"
	"github.com/platinasystems/log"

	"github.com/platinasystems/pmbus/goes/lang"
	"github.com/platinasystems/pmbus/pidfile"
)

const (
	Builtin Kind = 1 + iota
	Daemon
	Disabled
)

var (
	Exit = os.Exit

	// Stdout receives help, usage and apropos text.
	Stdout io.Writer = os.Stdout
)

type Kind int

type Cmd interface {
	Apropos() lang.Alt
	Main(...string) error
	// String returns the command name.
	String() string
	Usage() string
	/* Optional
	Close() error
	Kind() Kind
	*/
}

type kinder interface {
	Kind() Kind
}

type Goes struct {
	Name    string
	Main    func(...string) error
	Close   func() error
	Kind    Kind
	Usage   string
	Apropos lang.Alt
}

type ByName map[string]*Goes

// Plot commands on map.
func (byName ByName) Plot(cmds ...Cmd) {
	for _, v := range cmds {
		g := &Goes{
			Name:    v.String(),
			Main:    v.Main,
			Kind:    Builtin,
			Usage:   v.Usage(),
			Apropos: v.Apropos(),
		}
		if _, found := byName[g.Name]; found {
			panic(fmt.Errorf("%s: duplicate", g.Name))
		}
		if method, found := v.(io.Closer); found {
			g.Close = method.Close
		}
		if method, found := v.(kinder); found {
			g.Kind = method.Kind()
			if g.Kind == Disabled {
				continue
			}
		}
		byName[g.Name] = g
	}
}

func (byName ByName) Keys() []string {
	keys := make([]string, 0, len(byName))
	for k := range byName {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (byName ByName) apropos() {
	for _, k := range byName.Keys() {
		fmt.Fprintf(Stdout, "%-12s %s\n", k, byName[k].Apropos)
	}
}

// Main runs the command named by args[0], or by args[1] if args[0] isn't
// a command. When run without args this uses os.Args and exits instead of
// returning an error.
//
// A command followed by "-h", "-help" or "-usage" prints its usage, and
// "-apropos" its description, instead of running.
//
// A daemon is run in the foreground with its pid recorded by name in
// pidfile.Dir; SIGTERM or SIGINT calls its Close.
func (byName ByName) Main(args ...string) (err error) {
	if len(args) == 0 {
		args = os.Args
		if len(args) == 0 {
			return
		}
		defer func() {
			if err != nil && err != io.EOF {
				fmt.Fprintf(os.Stderr, "%s: %v\n",
					filepath.Base(os.Args[0]), err)
				Exit(1)
			}
		}()
	}
	if _, found := byName[filepath.Base(args[0])]; found {
		args[0] = filepath.Base(args[0])
	} else {
		args = args[1:]
	}
	if len(args) == 0 {
		byName.apropos()
		return nil
	}
	name := args[0]
	g := byName[name]
	if g == nil {
		return fmt.Errorf("%s: command not found", name)
	}
	flag, args := flags.New(args[1:], "-h", "-help", "-usage", "-apropos")
	switch {
	case flag.ByName["-h"], flag.ByName["-help"], flag.ByName["-usage"]:
		fmt.Fprintln(Stdout, "usage:", g.Usage)
		return nil
	case flag.ByName["-apropos"]:
		fmt.Fprintln(Stdout, g.Apropos)
		return nil
	}
	if g.Kind == Daemon {
		if _, err := pidfile.New(g.Name); err != nil {
			log.Print("warning: ", g.Name, ": ", err)
		} else {
			defer pidfile.Remove(g.Name)
		}
	}
	if g.Kind == Daemon && g.Close != nil {
		sigch := make(chan os.Signal, 1)
		signal.Notify(sigch, syscall.SIGTERM, os.Interrupt)
		defer signal.Stop(sigch)
		go g.wait(sigch)
	}
	err = g.Main(args...)
	if g.Kind != Daemon && g.Close != nil {
		if t := g.Close(); err == nil {
			err = t
		}
	}
	return
}

func (g *Goes) wait(ch chan os.Signal) {
	if sig, ok := <-ch; ok {
		log.Print("notice: ", g.Name, ": ", sig)
		g.Close()
	}
}
