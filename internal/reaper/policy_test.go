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
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mikelane/vmreap/internal/events"
	"github.com/mikelane/vmreap/internal/fleet"
)

func TestMachineRetirement(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	defaults := Options{Lifetime: 24 * time.Hour}

	tests := []struct {
		name       string
		state      fleet.State
		age        time.Duration
		opts       Options
		wantReason Reason
		wantDelete bool
	}{
		{"used past lifetime", fleet.StateUsed, 25 * time.Hour, defaults, ReasonExpired, true},
		{"used within lifetime", fleet.StateUsed, 23 * time.Hour, defaults, "", false},
		{"used exactly at lifetime", fleet.StateUsed, 24 * time.Hour, defaults, "", false},
		{"ready past lifetime", fleet.StateReady, 72 * time.Hour, defaults, "", false},
		{"building past lifetime", fleet.StateBuilding, 25 * time.Hour, defaults, ReasonExpired, true},
		{"hold past lifetime", fleet.StateHold, 25 * time.Hour, defaults, ReasonExpired, true},
		{"tombstoned and fresh", fleet.StateDelete, time.Second, defaults, ReasonTombstoned, true},
		{"ready with all servers", fleet.StateReady, 0, Options{Lifetime: 24 * time.Hour, AllServers: true}, ReasonAllServers, true},
		{"short lifetime", fleet.StateError, 2 * time.Hour, Options{Lifetime: time.Hour}, ReasonExpired, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fleet.Machine{Name: "m", State: tt.state, StateTime: now.Add(-tt.age)}
			reason, ok := MachineRetirement(m, now, tt.opts)
			if ok != tt.wantDelete || reason != tt.wantReason {
				t.Errorf("MachineRetirement() = (%q, %v), want (%q, %v)", reason, ok, tt.wantReason, tt.wantDelete)
			}
		})
	}
}

func TestImageRetirement(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	defaults := Options{Lifetime: 24 * time.Hour}

	tests := []struct {
		name       string
		current    string
		age        time.Duration
		opts       Options
		wantReason Reason
		wantDelete bool
	}{
		{"stale non-current", "other", 25 * time.Hour, defaults, ReasonStale, true},
		{"stale with no current snapshot", "", 25 * time.Hour, defaults, ReasonStale, true},
		{"fresh non-current", "other", time.Hour, defaults, "", false},
		{"stale current", "snap", 72 * time.Hour, defaults, "", false},
		{"current with all images", "snap", 0, Options{Lifetime: 24 * time.Hour, AllImages: true}, ReasonAllImages, true},
		{"fresh with all images", "other", 0, Options{Lifetime: 24 * time.Hour, AllImages: true}, ReasonAllImages, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &fleet.BaseImage{Name: "precise", CurrentSnapshot: tt.current}
			snap := &fleet.SnapshotImage{Name: "snap", StateTime: now.Add(-tt.age)}
			reason, ok := ImageRetirement(base, snap, now, tt.opts)
			if ok != tt.wantDelete || reason != tt.wantReason {
				t.Errorf("ImageRetirement() = (%q, %v), want (%q, %v)", reason, ok, tt.wantReason, tt.wantDelete)
			}
		})
	}
}

func TestOvercommitment(t *testing.T) {
	machines := func(states ...fleet.State) []*fleet.Machine {
		var out []*fleet.Machine
		for _, s := range states {
			out = append(out, &fleet.Machine{State: s})
		}
		return out
	}

	tests := []struct {
		name     string
		provider *fleet.Provider
		minReady int
		want     int
	}{
		{
			name:     "six used against five servers",
			provider: &fleet.Provider{MaxServers: 5, Machines: machines(fleet.StateUsed, fleet.StateUsed, fleet.StateUsed, fleet.StateUsed, fleet.StateUsed, fleet.StateUsed)},
			want:     1,
		},
		{
			name:     "ready machines do not count",
			provider: &fleet.Provider{MaxServers: 2, Machines: machines(fleet.StateReady, fleet.StateReady, fleet.StateUsed)},
			want:     -1,
		},
		{
			name:     "building machines count",
			provider: &fleet.Provider{MaxServers: 2, Machines: machines(fleet.StateBuilding, fleet.StateBuilding, fleet.StateHold)},
			want:     1,
		},
		{
			name:     "min ready is reserved",
			provider: &fleet.Provider{MaxServers: 4, Machines: machines(fleet.StateUsed)},
			minReady: 5,
			want:     2,
		},
		{
			name:     "empty provider",
			provider: &fleet.Provider{MaxServers: 10},
			want:     -10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overcommitment(tt.provider, tt.minReady); got != tt.want {
				t.Errorf("Overcommitment() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOptions_withDefaults(t *testing.T) {
	got := Options{}.withDefaults()
	if got.Lifetime != DefaultLifetime {
		t.Errorf("Lifetime = %v, want %v", got.Lifetime, DefaultLifetime)
	}
	if got.FlavorMinRAM != DefaultFlavorMinRAM {
		t.Errorf("FlavorMinRAM = %d, want %d", got.FlavorMinRAM, DefaultFlavorMinRAM)
	}

	custom := Options{Lifetime: time.Hour, FlavorMinRAM: 4096, AllImages: true}.withDefaults()
	if custom.Lifetime != time.Hour || custom.FlavorMinRAM != 4096 || !custom.AllImages {
		t.Errorf("withDefaults() overwrote explicit options: %+v", custom)
	}
}

func TestResult_Err(t *testing.T) {
	var empty *Result
	if empty.HadErrors() || empty.Err() != nil {
		t.Error("nil Result should report no errors")
	}

	boom := errors.New("quota exceeded")
	result := &Result{
		Failures: []Failure{
			{Kind: events.KindMachine, Name: "devstack-1", Phase: PhaseMachineSweep, Err: boom},
			{Kind: events.KindImage, Name: "precise-1", Phase: PhaseImageSweep, Err: errors.New("timeout")},
		},
	}

	if !result.HadErrors() {
		t.Error("HadErrors() = false, want true")
	}
	err := result.Err()
	if !errors.Is(err, boom) {
		t.Errorf("Err() = %v, want it to wrap %v", err, boom)
	}
	for _, want := range []string{"machine devstack-1 (machine-sweep)", "image precise-1 (image-sweep)"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Err() = %q, missing %q", err.Error(), want)
		}
	}
}

func TestConvergenceError(t *testing.T) {
	err := error(&ConvergenceError{Provider: "rax-dfw", Overcommitment: 2})
	if !errors.Is(err, ErrUnableToReduceOvercommitment) {
		t.Error("ConvergenceError should wrap ErrUnableToReduceOvercommitment")
	}
	if !strings.Contains(err.Error(), "overcommitted by 2") {
		t.Errorf("Error() = %q", err.Error())
	}
}
