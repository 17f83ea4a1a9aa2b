// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package lang provides text in alternative languages.
//
// The language precedence is the value of the "LANG" environment variable
// followed by a configurable default; then en_US.UTF-8.
//
// Use this build ldflag to configure the default,
//
//	-X github.com/platinasystems/pmbus/goes/lang.Default=fr_FR.UTF-8
package lang

import "os"

const (
	DeDE = "de_DE.UTF-8"
	EnUS = "en_US.UTF-8"
	FrFR = "fr_FR.UTF-8"
)

var (
	Default = EnUS

	// Lang overrides LANG when not empty.
	Lang string
)

type Alt map[string]string

// If available, this returns text in the prefered language.
func (m Alt) String() string {
	env := Lang
	if len(env) == 0 {
		env = os.Getenv("LANG")
	}
	for _, lang := range []string{env, Default, EnUS} {
		if s, found := m[lang]; found {
			return s
		}
	}
	return ""
}
