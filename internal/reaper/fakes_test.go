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
	"context"
	"fmt"
	"time"

	"github.com/mikelane/vmreap/internal/compute"
	"github.com/mikelane/vmreap/internal/events"
	"github.com/mikelane/vmreap/internal/fleet"
	"github.com/mikelane/vmreap/internal/inventory"
)

// fakeStore is an in-memory inventory.Store.
type fakeStore struct {
	providers       map[string]*fleet.Provider
	deletedMachines []string
	deletedImages   []string
	machineErrs     map[string]error
}

func newFakeStore(providers ...*fleet.Provider) *fakeStore {
	s := &fakeStore{
		providers:   map[string]*fleet.Provider{},
		machineErrs: map[string]error{},
	}
	for _, p := range providers {
		s.providers[p.Name] = p
	}
	return s
}

func (s *fakeStore) GetProvider(_ context.Context, name string) (*fleet.Provider, error) {
	p, ok := s.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s: %w", name, inventory.ErrNotFound)
	}
	return p, nil
}

func (s *fakeStore) ListProviders(context.Context) ([]*fleet.Provider, error) {
	var out []*fleet.Provider
	for _, p := range s.providers {
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeStore) DeleteMachine(_ context.Context, m *fleet.Machine) error {
	if err := s.machineErrs[m.Name]; err != nil {
		return err
	}
	s.deletedMachines = append(s.deletedMachines, m.Name)
	return nil
}

func (s *fakeStore) DeleteSnapshotImage(_ context.Context, img *fleet.SnapshotImage) error {
	s.deletedImages = append(s.deletedImages, img.Name)
	return nil
}

// fakeCompute is an in-memory compute.Client that records every call.
type fakeCompute struct {
	servers         map[string]bool
	images          map[string]bool
	flavors         []compute.Flavor
	flavorErr       error
	getServerErrs   map[string]error
	deleteServerErr map[string]error
	getImageErrs    map[string]error
	deleteImageErrs map[string]error
	calls           []string
}

func newFakeCompute() *fakeCompute {
	return &fakeCompute{
		servers:         map[string]bool{},
		images:          map[string]bool{},
		flavors:         []compute.Flavor{{ID: "2", Name: "m1.small", RAM: 2048, VCPUs: 1}, {ID: "1", Name: "m1.tiny", RAM: 512, VCPUs: 1}},
		getServerErrs:   map[string]error{},
		deleteServerErr: map[string]error{},
		getImageErrs:    map[string]error{},
		deleteImageErrs: map[string]error{},
	}
}

func (c *fakeCompute) GetServer(_ context.Context, id string) (*compute.Server, error) {
	c.calls = append(c.calls, "get-server:"+id)
	if err := c.getServerErrs[id]; err != nil {
		return nil, err
	}
	if !c.servers[id] {
		return nil, fmt.Errorf("server %s: %w", id, compute.ErrNotFound)
	}
	return &compute.Server{ID: id, Status: "ACTIVE"}, nil
}

func (c *fakeCompute) DeleteServer(_ context.Context, id string) error {
	c.calls = append(c.calls, "delete-server:"+id)
	if err := c.deleteServerErr[id]; err != nil {
		return err
	}
	delete(c.servers, id)
	return nil
}

func (c *fakeCompute) GetImage(_ context.Context, id string) (*compute.Image, error) {
	c.calls = append(c.calls, "get-image:"+id)
	if err := c.getImageErrs[id]; err != nil {
		return nil, err
	}
	if !c.images[id] {
		return nil, fmt.Errorf("image %s: %w", id, compute.ErrNotFound)
	}
	return &compute.Image{ID: id, Status: "ACTIVE"}, nil
}

func (c *fakeCompute) DeleteImage(_ context.Context, id string) error {
	c.calls = append(c.calls, "delete-image:"+id)
	if err := c.deleteImageErrs[id]; err != nil {
		return err
	}
	delete(c.images, id)
	return nil
}

func (c *fakeCompute) ListFlavors(context.Context) ([]compute.Flavor, error) {
	if c.flavorErr != nil {
		return nil, c.flavorErr
	}
	return c.flavors, nil
}

func (c *fakeCompute) deleted(kind string) []string {
	var out []string
	prefix := "delete-" + kind + ":"
	for _, call := range c.calls {
		if len(call) > len(prefix) && call[:len(prefix)] == prefix {
			out = append(out, call[len(prefix):])
		}
	}
	return out
}

// fakeJenkins is an in-memory jenkins.Client.
type fakeJenkins struct {
	nodes   map[string]bool
	deleted []string
	err     error
}

func newFakeJenkins(nodes ...string) *fakeJenkins {
	j := &fakeJenkins{nodes: map[string]bool{}}
	for _, n := range nodes {
		j.nodes[n] = true
	}
	return j
}

func (j *fakeJenkins) Ping(context.Context) error { return j.err }

func (j *fakeJenkins) NodeExists(_ context.Context, name string) (bool, error) {
	if j.err != nil {
		return false, j.err
	}
	return j.nodes[name], nil
}

func (j *fakeJenkins) DeleteNode(_ context.Context, name string) error {
	if j.err != nil {
		return j.err
	}
	delete(j.nodes, name)
	j.deleted = append(j.deleted, name)
	return nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return p.err
}

// fleetBuilder assembles provider snapshots relative to a fixed clock.
type fleetBuilder struct {
	now      time.Time
	provider *fleet.Provider
	cloud    *fakeCompute
}

func newFleet(now time.Time, name string, maxServers int, cloud *fakeCompute) *fleetBuilder {
	return &fleetBuilder{
		now:      now,
		provider: &fleet.Provider{Name: name, MaxServers: maxServers},
		cloud:    cloud,
	}
}

// machine adds a machine whose server exists in the cloud.
func (b *fleetBuilder) machine(name string, state fleet.State, age time.Duration) *fleet.Machine {
	m := &fleet.Machine{
		Name:        name,
		Provider:    b.provider.Name,
		ExternalID:  "srv-" + name,
		JenkinsName: name,
		State:       state,
		StateTime:   b.now.Add(-age),
	}
	b.cloud.servers[m.ExternalID] = true
	b.provider.Machines = append(b.provider.Machines, m)
	return m
}

func (b *fleetBuilder) baseImage(name string, minReady int) *fleet.BaseImage {
	base := &fleet.BaseImage{Name: name, Provider: b.provider.Name, MinReady: minReady}
	b.provider.BaseImages = append(b.provider.BaseImages, base)
	return base
}

// snapshot adds a snapshot image whose image and template server exist in
// the cloud.
func (b *fleetBuilder) snapshot(base *fleet.BaseImage, name string, age time.Duration) *fleet.SnapshotImage {
	s := &fleet.SnapshotImage{
		Name:             name,
		Provider:         b.provider.Name,
		BaseImage:        base.Name,
		ExternalID:       "img-" + name,
		ServerExternalID: "tmpl-" + name,
		State:            fleet.StateReady,
		StateTime:        b.now.Add(-age),
	}
	b.cloud.images[s.ExternalID] = true
	b.cloud.servers[s.ServerExternalID] = true
	base.SnapshotImages = append(base.SnapshotImages, s)
	return s
}

func machineNames(ds []Deletion) []string {
	names := make([]string, 0, len(ds))
	for _, d := range ds {
		names = append(names, d.Name)
	}
	return names
}
