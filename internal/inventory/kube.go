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
	"fmt"
	"time"

	fleetv1alpha1 "github.com/mikelane/vmreap/api/v1alpha1"
	"github.com/mikelane/vmreap/internal/fleet"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// KubeStore implements Store on top of fleet custom resources.
type KubeStore struct {
	client    client.Client
	namespace string
}

// NewKubeStore creates a store reading resources from namespace.
func NewKubeStore(c client.Client, namespace string) *KubeStore {
	return &KubeStore{
		client:    c,
		namespace: namespace,
	}
}

// GetProvider implements Store.
func (s *KubeStore) GetProvider(ctx context.Context, name string) (*fleet.Provider, error) {
	var provider fleetv1alpha1.Provider
	if err := s.client.Get(ctx, client.ObjectKey{Namespace: s.namespace, Name: name}, &provider); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, fmt.Errorf("provider %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get provider %s: %w", name, err)
	}

	return s.load(ctx, &provider)
}

// ListProviders implements Store.
func (s *KubeStore) ListProviders(ctx context.Context) ([]*fleet.Provider, error) {
	var list fleetv1alpha1.ProviderList
	if err := s.client.List(ctx, &list, client.InNamespace(s.namespace)); err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	providers := make([]*fleet.Provider, 0, len(list.Items))
	for i := range list.Items {
		p, err := s.load(ctx, &list.Items[i])
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}

// DeleteMachine implements Store.
func (s *KubeStore) DeleteMachine(ctx context.Context, m *fleet.Machine) error {
	obj := &fleetv1alpha1.Machine{
		ObjectMeta: metav1.ObjectMeta{
			Name:      m.Name,
			Namespace: s.namespace,
		},
	}
	if err := s.client.Delete(ctx, obj); client.IgnoreNotFound(err) != nil {
		return fmt.Errorf("failed to delete machine %s: %w", m.Name, err)
	}
	return nil
}

// DeleteSnapshotImage implements Store.
func (s *KubeStore) DeleteSnapshotImage(ctx context.Context, img *fleet.SnapshotImage) error {
	obj := &fleetv1alpha1.SnapshotImage{
		ObjectMeta: metav1.ObjectMeta{
			Name:      img.Name,
			Namespace: s.namespace,
		},
	}
	if err := s.client.Delete(ctx, obj); client.IgnoreNotFound(err) != nil {
		return fmt.Errorf("failed to delete snapshot image %s: %w", img.Name, err)
	}
	return nil
}

// load assembles the provider snapshot from its child resources.
func (s *KubeStore) load(ctx context.Context, provider *fleetv1alpha1.Provider) (*fleet.Provider, error) {
	logger := log.FromContext(ctx)

	children := []client.ListOption{
		client.InNamespace(s.namespace),
		client.MatchingLabels{fleetv1alpha1.ProviderLabel: provider.Name},
	}

	var machines fleetv1alpha1.MachineList
	if err := s.client.List(ctx, &machines, children...); err != nil {
		return nil, fmt.Errorf("failed to list machines for provider %s: %w", provider.Name, err)
	}

	var baseImages fleetv1alpha1.BaseImageList
	if err := s.client.List(ctx, &baseImages, children...); err != nil {
		return nil, fmt.Errorf("failed to list base images for provider %s: %w", provider.Name, err)
	}

	var snapshots fleetv1alpha1.SnapshotImageList
	if err := s.client.List(ctx, &snapshots, children...); err != nil {
		return nil, fmt.Errorf("failed to list snapshot images for provider %s: %w", provider.Name, err)
	}

	out := &fleet.Provider{
		Name:       provider.Name,
		MaxServers: provider.Spec.MaxServers,
		AuthURL:    provider.Spec.AuthURL,
		Username:   provider.Spec.Username,
		ProjectID:  provider.Spec.ProjectID,
		Region:     provider.Spec.Region,
	}

	for i := range machines.Items {
		m := &machines.Items[i]
		out.Machines = append(out.Machines, &fleet.Machine{
			Name:        m.Name,
			Provider:    provider.Name,
			ExternalID:  m.Spec.ExternalID,
			JenkinsName: m.Spec.JenkinsName,
			State:       fleet.State(m.Status.State),
			StateTime:   stateTime(m.Status.StateTime, m.CreationTimestamp),
		})
	}

	byName := make(map[string]*fleet.BaseImage, len(baseImages.Items))
	for i := range baseImages.Items {
		b := &baseImages.Items[i]
		base := &fleet.BaseImage{
			Name:            b.Name,
			Provider:        provider.Name,
			MinReady:        b.Spec.MinReady,
			CurrentSnapshot: b.Status.CurrentSnapshot,
		}
		byName[b.Name] = base
		out.BaseImages = append(out.BaseImages, base)
	}

	for i := range snapshots.Items {
		snap := &snapshots.Items[i]
		base, ok := byName[snap.Spec.BaseImage]
		if !ok {
			logger.Info("Skipping snapshot image with unknown base image",
				"snapshot", snap.Name, "baseImage", snap.Spec.BaseImage)
			continue
		}
		base.SnapshotImages = append(base.SnapshotImages, &fleet.SnapshotImage{
			Name:             snap.Name,
			Provider:         provider.Name,
			BaseImage:        base.Name,
			ExternalID:       snap.Spec.ExternalID,
			ServerExternalID: snap.Spec.ServerExternalID,
			State:            fleet.State(snap.Status.State),
			StateTime:        stateTime(snap.Status.StateTime, snap.CreationTimestamp),
		})
	}

	sortProvider(out)
	return out, nil
}

// stateTime falls back to the creation time for records that have not yet
// been given a state transition.
func stateTime(t *metav1.Time, created metav1.Time) time.Time {
	if t != nil {
		return t.Time
	}
	return created.Time
}
