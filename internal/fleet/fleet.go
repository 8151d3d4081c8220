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

// Package fleet holds the in-memory snapshot of a provider's machines and
// disk images that the reaper makes its retirement decisions over.
package fleet

import (
	"time"
)

// State is the lifecycle state of a machine or snapshot image.
type State string

const (
	// StateBuilding means the resource is still being provisioned.
	StateBuilding State = "building"
	// StateReady means the resource is idle and available to CI.
	StateReady State = "ready"
	// StateUsed means a CI job has consumed the machine.
	StateUsed State = "used"
	// StateError means provisioning failed.
	StateError State = "error"
	// StateHold means an operator exempted the machine from cleanup.
	StateHold State = "hold"
	// StateDelete is a tombstone set by an external actor.
	StateDelete State = "delete"
)

// Protected reports whether the overcommitment resolver must leave a
// machine in this state alone.
func (s State) Protected() bool {
	switch s {
	case StateReady, StateBuilding, StateHold:
		return true
	default:
		return false
	}
}

// Provider is a compute backend hosting a pool of machines under a
// capacity limit.
type Provider struct {
	Name string
	// MaxServers is the capacity limit. Zero means unbounded.
	MaxServers int

	// Cloud endpoint details. Secrets are not part of the inventory.
	AuthURL   string
	Username  string
	ProjectID string
	Region    string

	Machines   []*Machine
	BaseImages []*BaseImage
}

// ReadyMachines returns the machines currently in the ready state.
func (p *Provider) ReadyMachines() []*Machine {
	var ready []*Machine
	for _, m := range p.Machines {
		if m.State == StateReady {
			ready = append(ready, m)
		}
	}
	return ready
}

// RemoveMachine drops m from the provider's machine collection.
// It returns false if m was not present.
func (p *Provider) RemoveMachine(m *Machine) bool {
	for i, candidate := range p.Machines {
		if candidate == m {
			p.Machines = append(p.Machines[:i], p.Machines[i+1:]...)
			return true
		}
	}
	return false
}

// MinReady sums the standing headroom requested by every base image.
func (p *Provider) MinReady() int {
	total := 0
	for _, b := range p.BaseImages {
		total += b.MinReady
	}
	return total
}

// Machine is a single CI worker VM.
type Machine struct {
	Name       string
	Provider   string
	ExternalID string
	// JenkinsName is the CI node the machine registered as, if any.
	JenkinsName string
	State       State
	StateTime   time.Time
}

// Age returns how long the machine has been in its current state.
func (m *Machine) Age(now time.Time) time.Duration {
	return now.Sub(m.StateTime)
}

// BaseImage is an image lineage with a designated current snapshot.
type BaseImage struct {
	Name     string
	Provider string
	MinReady int
	// CurrentSnapshot names the active snapshot. Empty when none is set.
	CurrentSnapshot string

	SnapshotImages []*SnapshotImage
}

// IsCurrent reports whether s is the base image's active snapshot.
func (b *BaseImage) IsCurrent(s *SnapshotImage) bool {
	return b.CurrentSnapshot != "" && b.CurrentSnapshot == s.Name
}

// RemoveSnapshot drops s from the base image's snapshot collection.
func (b *BaseImage) RemoveSnapshot(s *SnapshotImage) bool {
	for i, candidate := range b.SnapshotImages {
		if candidate == s {
			b.SnapshotImages = append(b.SnapshotImages[:i], b.SnapshotImages[i+1:]...)
			return true
		}
	}
	return false
}

// SnapshotImage is a point-in-time disk image built from a server.
type SnapshotImage struct {
	Name      string
	Provider  string
	BaseImage string
	// ExternalID is the cloud image id.
	ExternalID string
	// ServerExternalID is the cloud id of the server the image was built from.
	ServerExternalID string
	State            State
	StateTime        time.Time
}

// Age returns how long the image has been in its current state.
func (s *SnapshotImage) Age(now time.Time) time.Duration {
	return now.Sub(s.StateTime)
}
