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
	"context"
	"errors"
	"sort"

	"github.com/mikelane/vmreap/internal/fleet"
)

// ErrNotFound is returned when a provider does not exist in the inventory.
var ErrNotFound = errors.New("not found in inventory")

// Store is the persistent inventory of providers, machines and images.
type Store interface {
	// GetProvider returns a snapshot of the provider with its machines,
	// base images and snapshot images populated.
	GetProvider(ctx context.Context, name string) (*fleet.Provider, error)
	// ListProviders returns snapshots of every provider.
	ListProviders(ctx context.Context) ([]*fleet.Provider, error)
	// DeleteMachine removes the machine record.
	DeleteMachine(ctx context.Context, m *fleet.Machine) error
	// DeleteSnapshotImage removes the snapshot image record.
	DeleteSnapshotImage(ctx context.Context, s *fleet.SnapshotImage) error
}

// sortProvider orders the children of p by name so snapshots are stable
// across backends.
func sortProvider(p *fleet.Provider) {
	sort.Slice(p.Machines, func(i, j int) bool {
		return p.Machines[i].Name < p.Machines[j].Name
	})
	sort.Slice(p.BaseImages, func(i, j int) bool {
		return p.BaseImages[i].Name < p.BaseImages[j].Name
	})
	for _, b := range p.BaseImages {
		sort.Slice(b.SnapshotImages, func(i, j int) bool {
			return b.SnapshotImages[i].Name < b.SnapshotImages[j].Name
		})
	}
}
