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
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/mikelane/vmreap/internal/fleet"
)

// BadgerStore implements Store with a local Badger database.
type BadgerStore struct {
	db *badger.DB
}

type providerRecord struct {
	Name       string `json:"name"`
	MaxServers int    `json:"max_servers"`
	AuthURL    string `json:"auth_url,omitempty"`
	Username   string `json:"username,omitempty"`
	ProjectID  string `json:"project_id,omitempty"`
	Region     string `json:"region,omitempty"`
}

type machineRecord struct {
	Name        string      `json:"name"`
	ExternalID  string      `json:"external_id,omitempty"`
	JenkinsName string      `json:"jenkins_name,omitempty"`
	State       fleet.State `json:"state"`
	StateTime   time.Time   `json:"state_time"`
}

type baseImageRecord struct {
	Name            string `json:"name"`
	MinReady        int    `json:"min_ready"`
	CurrentSnapshot string `json:"current_snapshot,omitempty"`
}

type snapshotRecord struct {
	Name             string      `json:"name"`
	BaseImage        string      `json:"base_image"`
	ExternalID       string      `json:"external_id,omitempty"`
	ServerExternalID string      `json:"server_external_id,omitempty"`
	State            fleet.State `json:"state"`
	StateTime        time.Time   `json:"state_time"`
}

// NewBadgerStore opens (or creates) the database at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(filepath.Clean(path))
	opts.Logger = nil
	opts = opts.WithValueLogFileSize(1 << 20)
	return openBadger(opts)
}

// NewInMemoryBadgerStore returns a store that is discarded on Close.
func NewInMemoryBadgerStore() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadger(opts)
}

func openBadger(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func providerKey(name string) []byte {
	return []byte("provider/" + name)
}

func machinePrefix(provider string) []byte {
	return []byte("machine/" + provider + "/")
}

func machineKey(provider, name string) []byte {
	return append(machinePrefix(provider), name...)
}

func baseImagePrefix(provider string) []byte {
	return []byte("baseimage/" + provider + "/")
}

func baseImageKey(provider, name string) []byte {
	return append(baseImagePrefix(provider), name...)
}

func snapshotPrefix(provider string) []byte {
	return []byte("snapshot/" + provider + "/")
}

func snapshotKey(provider, base, name string) []byte {
	return append(snapshotPrefix(provider), base+"/"+name...)
}

// SaveProvider writes the provider and every child record it carries.
func (s *BadgerStore) SaveProvider(ctx context.Context, p *fleet.Provider) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, providerKey(p.Name), providerRecord{
			Name:       p.Name,
			MaxServers: p.MaxServers,
			AuthURL:    p.AuthURL,
			Username:   p.Username,
			ProjectID:  p.ProjectID,
			Region:     p.Region,
		}); err != nil {
			return err
		}
		for _, m := range p.Machines {
			if err := setJSON(txn, machineKey(p.Name, m.Name), machineRecord{
				Name:        m.Name,
				ExternalID:  m.ExternalID,
				JenkinsName: m.JenkinsName,
				State:       m.State,
				StateTime:   m.StateTime,
			}); err != nil {
				return err
			}
		}
		for _, b := range p.BaseImages {
			if err := setJSON(txn, baseImageKey(p.Name, b.Name), baseImageRecord{
				Name:            b.Name,
				MinReady:        b.MinReady,
				CurrentSnapshot: b.CurrentSnapshot,
			}); err != nil {
				return err
			}
			for _, snap := range b.SnapshotImages {
				if err := setJSON(txn, snapshotKey(p.Name, b.Name, snap.Name), snapshotRecord{
					Name:             snap.Name,
					BaseImage:        b.Name,
					ExternalID:       snap.ExternalID,
					ServerExternalID: snap.ServerExternalID,
					State:            snap.State,
					StateTime:        snap.StateTime,
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// GetProvider implements Store.
func (s *BadgerStore) GetProvider(ctx context.Context, name string) (*fleet.Provider, error) {
	var out *fleet.Provider
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = loadProvider(txn, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListProviders implements Store.
func (s *BadgerStore) ListProviders(ctx context.Context) ([]*fleet.Provider, error) {
	var providers []*fleet.Provider
	err := s.db.View(func(txn *badger.Txn) error {
		var names []string
		prefix := []byte("provider/")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), "provider/"))
		}
		it.Close()

		for _, name := range names {
			p, err := loadProvider(txn, name)
			if err != nil {
				return err
			}
			providers = append(providers, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return providers, nil
}

// DeleteMachine implements Store.
func (s *BadgerStore) DeleteMachine(ctx context.Context, m *fleet.Machine) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(machineKey(m.Provider, m.Name))
	})
	if err != nil {
		return fmt.Errorf("failed to delete machine %s: %w", m.Name, err)
	}
	return nil
}

// DeleteSnapshotImage implements Store.
func (s *BadgerStore) DeleteSnapshotImage(ctx context.Context, img *fleet.SnapshotImage) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(snapshotKey(img.Provider, img.BaseImage, img.Name))
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot image %s: %w", img.Name, err)
	}
	return nil
}

func loadProvider(txn *badger.Txn, name string) (*fleet.Provider, error) {
	var rec providerRecord
	if err := getJSON(txn, providerKey(name), &rec); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("provider %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get provider %s: %w", name, err)
	}

	out := &fleet.Provider{
		Name:       rec.Name,
		MaxServers: rec.MaxServers,
		AuthURL:    rec.AuthURL,
		Username:   rec.Username,
		ProjectID:  rec.ProjectID,
		Region:     rec.Region,
	}

	err := scanJSON(txn, machinePrefix(name), func() any { return &machineRecord{} }, func(v any) {
		m := v.(*machineRecord)
		out.Machines = append(out.Machines, &fleet.Machine{
			Name:        m.Name,
			Provider:    name,
			ExternalID:  m.ExternalID,
			JenkinsName: m.JenkinsName,
			State:       m.State,
			StateTime:   m.StateTime,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load machines for provider %s: %w", name, err)
	}

	byName := make(map[string]*fleet.BaseImage)
	err = scanJSON(txn, baseImagePrefix(name), func() any { return &baseImageRecord{} }, func(v any) {
		b := v.(*baseImageRecord)
		base := &fleet.BaseImage{
			Name:            b.Name,
			Provider:        name,
			MinReady:        b.MinReady,
			CurrentSnapshot: b.CurrentSnapshot,
		}
		byName[b.Name] = base
		out.BaseImages = append(out.BaseImages, base)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load base images for provider %s: %w", name, err)
	}

	err = scanJSON(txn, snapshotPrefix(name), func() any { return &snapshotRecord{} }, func(v any) {
		snap := v.(*snapshotRecord)
		base, ok := byName[snap.BaseImage]
		if !ok {
			return
		}
		base.SnapshotImages = append(base.SnapshotImages, &fleet.SnapshotImage{
			Name:             snap.Name,
			Provider:         name,
			BaseImage:        snap.BaseImage,
			ExternalID:       snap.ExternalID,
			ServerExternalID: snap.ServerExternalID,
			State:            snap.State,
			StateTime:        snap.StateTime,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot images for provider %s: %w", name, err)
	}

	sortProvider(out)
	return out, nil
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(data []byte) error {
		return json.Unmarshal(data, v)
	})
}

// scanJSON decodes every value under prefix into a fresh record from
// newRecord and hands it to visit.
func scanJSON(txn *badger.Txn, prefix []byte, newRecord func() any, visit func(any)) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		rec := newRecord()
		if err := it.Item().Value(func(data []byte) error {
			return json.Unmarshal(data, rec)
		}); err != nil {
			return err
		}
		visit(rec)
	}
	return nil
}
