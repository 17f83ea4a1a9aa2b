// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package pmbus

import (
	"fmt"
	"io"
	"strconv"

	"github.com/platinasystems/pmbus/pmbus"
)

type report struct {
	Name          string  `yaml:"name"`
	Manufacturer  string  `yaml:"mfg_id"`
	Model         string  `yaml:"mfg_model"`
	Revision      string  `yaml:"mfg_revision"`
	Location      string  `yaml:"mfg_location"`
	Date          string  `yaml:"mfg_date"`
	Serial        string  `yaml:"sn"`
	PMBusRevision string  `yaml:"pmbus_revision"`
	Signature     string  `yaml:"signature"`
	Vout          string  `yaml:"vout_decode"`
	PowerOn       *uint32 `yaml:"power_on_s,omitempty"`

	Status    []field `yaml:"status"`
	Telemetry []field `yaml:"telemetry"`
	Rejected  int     `yaml:"rejected"`
	BusErrors int     `yaml:"bus_errors"`
}

type field struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

func newReport(h *pmbus.PSU) *report {
	id := h.Ident()
	p := h.Profile()
	s := h.Status()
	t := h.Telemetry()
	st := h.Stats()
	r := &report{
		Name:          h.Name(),
		Manufacturer:  id.Id,
		Model:         id.Model,
		Revision:      id.Revision,
		Location:      id.Location,
		Date:          id.Date,
		Serial:        id.Serial,
		PMBusRevision: fmt.Sprintf("0x%02x", id.PMBusRevision),
		Signature:     p.Signature,
		Vout:          p.Vout.Decode.String(),
		Rejected:      st.Rejected,
		BusErrors:     st.BusErrors,
	}
	if len(r.Signature) == 0 {
		r.Signature = "default"
	}
	if p.HasPowerOn {
		on := p.PowerOn
		r.PowerOn = &on
	}
	r.Status = append(r.Status,
		field{"status_byte", fmt.Sprintf("0x%04x", s.Byte)},
		field{"status_word", fmt.Sprintf("0x%04x", s.Word)},
		field{"faulted", fmt.Sprint(s.Faulted())})
	for c := pmbus.Category(0); c < pmbus.NCategory; c++ {
		if p.IsActive(c) {
			r.Status = append(r.Status, field{"status_" + c.String(),
				fmt.Sprintf("0x%02x", s.Category[c])})
		}
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
	r.Telemetry = append(r.Telemetry,
		field{"v_in.units.V", f(t.Vin)},
		field{"i_in.units.A", f(t.Iin)},
		field{"p_in.units.W", f(t.Pin)},
		field{"v_out.units.V", f(t.Vout)},
		field{"i_out.units.A", f(t.Iout)},
		field{"p_out.units.W", f(t.Pout)})
	for i := 0; i < p.Temperatures; i++ {
		r.Telemetry = append(r.Telemetry,
			field{fmt.Sprintf("temp%d.units.C", i+1),
				f(t.Temperature[i])})
	}
	for i := 0; i < p.Fans; i++ {
		r.Telemetry = append(r.Telemetry,
			field{fmt.Sprintf("fan%d_speed.units.rpm", i+1),
				f(t.Fan[i])})
	}
	return r
}

func (r *report) fields() []field {
	fs := []field{
		{"mfg_id", r.Manufacturer},
		{"mfg_model", r.Model},
		{"mfg_revision", r.Revision},
		{"mfg_location", r.Location},
		{"mfg_date", r.Date},
		{"sn", r.Serial},
		{"pmbus_revision", r.PMBusRevision},
		{"signature", r.Signature},
		{"vout_decode", r.Vout},
	}
	if r.PowerOn != nil {
		fs = append(fs, field{"power_on.units.s", fmt.Sprint(*r.PowerOn)})
	}
	fs = append(fs, r.Status...)
	fs = append(fs, r.Telemetry...)
	return append(fs,
		field{"rejected", fmt.Sprint(r.Rejected)},
		field{"bus_errors", fmt.Sprint(r.BusErrors)})
}

// lines prints NAME.KEY: VALUE for scripts.
func (r *report) lines(w io.Writer) {
	for _, f := range r.fields() {
		fmt.Fprintf(w, "%s.%s: %s\n", r.Name, f.Key, f.Value)
	}
}

func (r *report) table(w io.Writer) {
	width := 0
	fs := r.fields()
	for _, f := range fs {
		if len(f.Key) > width {
			width = len(f.Key)
		}
	}
	fmt.Fprintf(w, "%s:\n", r.Name)
	for _, f := range fs {
		fmt.Fprintf(w, "    %-*s %s\n", width, f.Key, f.Value)
	}
}
