// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package lang

import "testing"

var hello = Alt{
	EnUS: "hello",
	FrFR: "bonjour",
}

func Test(t *testing.T) {
	defer func() { Lang = "" }()
	for lang, expect := range hello {
		Lang = lang
		if s := hello.String(); s != expect {
			t.Fatalf("%q != %q", s, expect)
		} else {
			t.Logf("%s: %s", lang, s)
		}
	}
	Lang = "ja_JP.UTF-8"
	if s := hello.String(); s != "hello" {
		t.Fatalf("%q != default", s)
	}
}
