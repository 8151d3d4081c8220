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

package reaper

import (
	"time"

	"github.com/mikelane/vmreap/internal/fleet"
)

const (
	// DefaultLifetime is how long a machine or image may sit in one state.
	DefaultLifetime = 24 * time.Hour
	// DefaultFlavorMinRAM is the RAM in MB of the flavor resolved at start.
	DefaultFlavorMinRAM = 1024
)

// Options controls a reaper run.
type Options struct {
	// Lifetime is the age past which a machine or image is retired.
	Lifetime time.Duration
	// AllServers deletes every machine regardless of state or age.
	AllServers bool
	// AllImages deletes every snapshot image, current snapshots included.
	AllImages bool
	// FlavorMinRAM is the minimum RAM of the flavor looked up at start.
	FlavorMinRAM int
}

func (o Options) withDefaults() Options {
	if o.Lifetime <= 0 {
		o.Lifetime = DefaultLifetime
	}
	if o.FlavorMinRAM <= 0 {
		o.FlavorMinRAM = DefaultFlavorMinRAM
	}
	return o
}

// Reason explains why an entity was deleted.
type Reason string

const (
	ReasonAllServers    Reason = "all-servers"
	ReasonTombstoned    Reason = "tombstoned"
	ReasonExpired       Reason = "expired"
	ReasonOvercommitted Reason = "overcommitted"
	ReasonAllImages     Reason = "all-images"
	ReasonStale         Reason = "stale"
)

// MachineRetirement reports whether the machine sweep deletes m and why.
func MachineRetirement(m *fleet.Machine, now time.Time, opts Options) (Reason, bool) {
	switch {
	case opts.AllServers:
		return ReasonAllServers, true
	case m.State == fleet.StateDelete:
		return ReasonTombstoned, true
	case m.State != fleet.StateReady && m.Age(now) > opts.Lifetime:
		return ReasonExpired, true
	default:
		return "", false
	}
}

// ImageRetirement reports whether the image sweep deletes snapshot s of
// base image b and why.
func ImageRetirement(b *fleet.BaseImage, s *fleet.SnapshotImage, now time.Time, opts Options) (Reason, bool) {
	switch {
	case opts.AllImages:
		return ReasonAllImages, true
	case !b.IsCurrent(s) && s.Age(now) > opts.Lifetime:
		return ReasonStale, true
	default:
		return "", false
	}
}

// Overcommitment is how many machines p holds beyond what its capacity
// allows once minReady headroom is reserved.
func Overcommitment(p *fleet.Provider, minReady int) int {
	return len(p.Machines) - len(p.ReadyMachines()) + minReady - p.MaxServers
}
