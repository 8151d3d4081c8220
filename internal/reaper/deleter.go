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

	"github.com/mikelane/vmreap/internal/compute"
	"github.com/mikelane/vmreap/internal/fleet"
	"github.com/mikelane/vmreap/internal/inventory"
	"github.com/mikelane/vmreap/internal/jenkins"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Deleter tears down machines and snapshot images. Cloud resources go
// first, then the Jenkins node, then the inventory record. A resource the
// cloud no longer knows about is treated as already deleted.
type Deleter struct {
	Store   inventory.Store
	Compute compute.Client
	// Jenkins is optional. When nil, node deregistration is skipped.
	Jenkins jenkins.Client
}

// DeleteMachine deletes m and removes it from p.
func (d *Deleter) DeleteMachine(ctx context.Context, p *fleet.Provider, m *fleet.Machine) error {
	if err := d.deleteServer(ctx, m.ExternalID); err != nil {
		return err
	}

	if d.Jenkins != nil && m.JenkinsName != "" {
		exists, err := d.Jenkins.NodeExists(ctx, m.JenkinsName)
		if err != nil {
			return fmt.Errorf("failed to look up jenkins node %s: %w", m.JenkinsName, err)
		}
		if exists {
			if err := d.Jenkins.DeleteNode(ctx, m.JenkinsName); err != nil {
				return fmt.Errorf("failed to delete jenkins node %s: %w", m.JenkinsName, err)
			}
		}
	}

	if err := d.Store.DeleteMachine(ctx, m); err != nil {
		return fmt.Errorf("failed to remove machine record: %w", err)
	}
	p.RemoveMachine(m)
	return nil
}

// DeleteImage deletes the server s was built from, then s itself, and
// removes s from b.
func (d *Deleter) DeleteImage(ctx context.Context, b *fleet.BaseImage, s *fleet.SnapshotImage) error {
	logger := log.FromContext(ctx)

	if err := d.deleteServer(ctx, s.ServerExternalID); err != nil {
		return err
	}

	if s.ExternalID != "" {
		found := true
		if _, err := d.Compute.GetImage(ctx, s.ExternalID); err != nil {
			if !compute.IsNotFound(err) {
				return fmt.Errorf("failed to look up image %s: %w", s.ExternalID, err)
			}
			logger.Info("Image not found in provider", "imageID", s.ExternalID)
			found = false
		}
		if found {
			if err := d.Compute.DeleteImage(ctx, s.ExternalID); err != nil && !compute.IsNotFound(err) {
				return fmt.Errorf("failed to delete image %s: %w", s.ExternalID, err)
			}
		}
	}

	if err := d.Store.DeleteSnapshotImage(ctx, s); err != nil {
		return fmt.Errorf("failed to remove snapshot image record: %w", err)
	}
	b.RemoveSnapshot(s)
	return nil
}

// deleteServer deletes the server with the given cloud id. An empty id or
// a server the cloud cannot find is not an error.
func (d *Deleter) deleteServer(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	if _, err := d.Compute.GetServer(ctx, id); err != nil {
		if compute.IsNotFound(err) {
			log.FromContext(ctx).Info("Server not found in provider", "serverID", id)
			return nil
		}
		return fmt.Errorf("failed to look up server %s: %w", id, err)
	}

	if err := d.Compute.DeleteServer(ctx, id); err != nil && !compute.IsNotFound(err) {
		return fmt.Errorf("failed to delete server %s: %w", id, err)
	}
	return nil
}
