// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package pmbus

import (
	"strings"

	"github.com/platinasystems/log"
)

// Ident holds the MFR_* identification strings and the revision and
// output voltage registers read at detection.
type Ident struct {
	Id       string
	Model    string
	Revision string
	Location string
	Date     string
	Serial   string

	PMBusRevision byte
	VoutMode      byte
	VoutCommand   uint16
}

// VoutDecode selects how READ_VOUT is converted.
type VoutDecode int

const (
	VoutLinear11 VoutDecode = iota
	// VoutFixed multiplies the raw word by Scale.
	VoutFixed
	// VoutLinear16 uses the VOUT_MODE exponent.
	VoutLinear16
)

func (d VoutDecode) String() string {
	switch d {
	case VoutFixed:
		return "fixed"
	case VoutLinear16:
		return "linear16"
	}
	return "linear11"
}

// VoutFormat is the output voltage decode of a profile.
type VoutFormat struct {
	Decode VoutDecode
	Scale  float64
}

// Profile is the per-model configuration derived by Detect.
type Profile struct {
	// Signature is the matched model signature, empty for the default.
	Signature string
	// Active holds the status register read for each category, or
	// Inactive.
	Active       [NCategory]Cmd
	Temperatures int
	Fans         int
	Vout         VoutFormat

	HasPowerOn bool
	// PowerOn is the cumulative power on time in seconds.
	PowerOn uint32
}

// DefaultProfile has every status category active, 3 temperature sensors
// and 2 fans.
func DefaultProfile() Profile {
	p := Profile{
		Temperatures: MaxTemperatures,
		Fans:         MaxFans,
	}
	for c := Category(0); c < NCategory; c++ {
		p.Active[c] = c.Register()
	}
	return p
}

// IsActive reports whether the category's status register is read.
func (p *Profile) IsActive(c Category) bool { return p.Active[c] != Inactive }

// Signature overrides the default profile for models whose MFR_MODEL
// starts with Model.
type Signature struct {
	Model        string
	Disable      []Category
	Temperatures int
	Fans         int
	Vout         VoutFormat
	// VoutRevisions limits Vout to these PMBUS_REVISION values; empty
	// applies it always.
	VoutRevisions  []byte
	PowerOnCounter bool
	// PowerOnRaw reads the counter as 4 bytes without a count byte.
	PowerOnRaw bool
}

// Signatures is the built-in table, searched in order.
var Signatures = []Signature{
	{
		Model:         "DPS750TB1",
		Disable:       []Category{CatOther, CatMfrSpecific},
		Temperatures:  2,
		Fans:          1,
		Vout:          VoutFormat{Decode: VoutFixed, Scale: 1.0 / 0x200},
		VoutRevisions: []byte{0},
	},
	{
		Model:          "D1U86T-W-800-12-HB4C",
		Temperatures:   MaxTemperatures,
		Fans:           MaxFans,
		PowerOnCounter: true,
	},
}

// Unknown models may lack STATUS_FANS.
var fallbackDisable = []Category{CatFans}

// Match returns the first signature whose model prefixes model.
func Match(table []Signature, model string) (Signature, bool) {
	for _, sig := range table {
		if len(sig.Model) > 0 && strings.HasPrefix(model, sig.Model) {
			return sig, true
		}
	}
	return Signature{}, false
}

func (sig *Signature) apply(p *Profile, id *Ident) {
	p.Signature = sig.Model
	for _, c := range sig.Disable {
		if c >= 0 && c < NCategory {
			p.Active[c] = Inactive
		}
	}
	p.Temperatures = clamp(sig.Temperatures, MaxTemperatures)
	p.Fans = clamp(sig.Fans, MaxFans)
	if len(sig.VoutRevisions) == 0 {
		p.Vout = sig.Vout
		return
	}
	for _, rev := range sig.VoutRevisions {
		if rev == id.PMBusRevision {
			p.Vout = sig.Vout
			return
		}
	}
}

func clamp(n, limit int) int {
	if n < 0 {
		return 0
	}
	if n > limit {
		return limit
	}
	return n
}

// NewProfile derives a profile from the identification registers using
// the first matching signature of table.
func NewProfile(table []Signature, id *Ident) Profile {
	p := DefaultProfile()
	if sig, found := Match(table, id.Model); found {
		sig.apply(&p, id)
	} else {
		for _, c := range fallbackDisable {
			p.Active[c] = Inactive
		}
	}
	return p
}

// Detect reads the model identification registers and rebuilds the
// profile.
func (h *PSU) Detect() {
	c := &h.conn
	c.GetString(MfrModel, MfrModelCap, &h.ident.Model)
	c.GetString(MfrRevision, MfrRevisionCap, &h.ident.Revision)

	h.ident.PMBusRevision = c.Get8(PMBusRevision)
	h.ident.VoutMode = c.Get8(VoutMode)
	h.ident.VoutCommand = c.Get16(VoutCommand)

	sigs := h.signatures()
	h.profile = NewProfile(sigs, &h.ident)
	if sig, found := Match(sigs, h.ident.Model); found && sig.PowerOnCounter {
		var v uint32
		var b []byte
		if sig.PowerOnRaw {
			b = c.Get(MfrPowerOn, 4)
		} else {
			b = c.GetBlock(MfrPowerOn, 5)
		}
		for i := 0; i < 4; i++ {
			v <<= 8
			if i < len(b) {
				v |= uint32(b[i])
			}
		}
		h.profile.HasPowerOn = true
		h.profile.PowerOn = v
	}
	if h.profile.Signature == "" {
		log.Printf("notice: %s: model %q unknown, default profile",
			h.name(), h.ident.Model)
	}
}

// Configured signatures take precedence over the built-in table.
func (h *PSU) signatures() []Signature {
	return append(append([]Signature{}, h.cfg.Signatures...), Signatures...)
}
