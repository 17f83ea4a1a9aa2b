// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package pidfile records daemon pids in /run/goes/pids
package pidfile

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var Dir = "/run/goes/pids"

// New writes the current pid to Dir/name and returns the file name.
func New(name string) (string, error) {
	if err := os.MkdirAll(Dir, 0755); err != nil {
		return "", err
	}
	fn := Path(name)
	err := ioutil.WriteFile(fn, []byte(fmt.Sprintln(os.Getpid())), 0644)
	if err != nil {
		return "", err
	}
	return fn, nil
}

// Path returns Dir + "/" + name if name isn't already prefaced by Dir
func Path(name string) string {
	if strings.HasPrefix(name, Dir) {
		return name
	}
	return filepath.Join(Dir, name)
}

// Pid returns the pid recorded for name.
func Pid(name string) (int, error) {
	b, err := ioutil.ReadFile(Path(name))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(b)))
}

// Remove deletes the record of name if it is still this process.
func Remove(name string) {
	if pid, err := Pid(name); err == nil && pid == os.Getpid() {
		os.Remove(Path(name))
	}
}
