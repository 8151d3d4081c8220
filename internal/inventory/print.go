/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package inventory

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"
	"github.com/mikelane/vmreap/internal/fleet"
)

// PrintState writes a table of every machine and snapshot image held by
// providers.
func PrintState(w io.Writer, providers []*fleet.Provider, now time.Time) error {
	machines := uitable.New()
	machines.MaxColWidth = 60
	machines.AddRow("PROVIDER", "MACHINE", "STATE", "SINCE", "EXTERNAL ID", "JENKINS NODE")

	images := uitable.New()
	images.MaxColWidth = 60
	images.AddRow("PROVIDER", "BASE IMAGE", "MIN READY", "SNAPSHOT", "STATE", "SINCE", "CURRENT")

	for _, p := range providers {
		for _, m := range p.Machines {
			machines.AddRow(p.Name, m.Name, string(m.State), since(m.StateTime, now), m.ExternalID, m.JenkinsName)
		}
		for _, b := range p.BaseImages {
			if len(b.SnapshotImages) == 0 {
				images.AddRow(p.Name, b.Name, strconv.Itoa(b.MinReady), "-", "-", "-", "")
				continue
			}
			for _, s := range b.SnapshotImages {
				current := ""
				if b.IsCurrent(s) {
					current = "*"
				}
				images.AddRow(p.Name, b.Name, strconv.Itoa(b.MinReady), s.Name, string(s.State), since(s.StateTime, now), current)
			}
		}
	}

	if _, err := fmt.Fprintln(w, machines); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, images)
	return err
}

func since(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
