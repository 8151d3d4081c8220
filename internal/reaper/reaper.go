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
	"github.com/mikelane/vmreap/internal/jenkins"
	"github.com/mikelane/vmreap/internal/metrics"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// ComputeFactory builds a cloud client for a provider.
type ComputeFactory func(ctx context.Context, p *fleet.Provider) (compute.Client, error)

// Reaper runs retirement policy against one provider at a time.
type Reaper struct {
	Store      inventory.Store
	NewCompute ComputeFactory
	// Jenkins is optional. When nil, node deregistration is skipped.
	Jenkins jenkins.Client
	Options Options
	// Metrics and Events are optional.
	Metrics *metrics.Recorder
	Events  events.Publisher
	// Now defaults to time.Now.
	Now func() time.Time
}

// run is the state of a single Run call.
type run struct {
	*Reaper
	opts     Options
	provider *fleet.Provider
	deleter  *Deleter
	result   *Result
	now      time.Time
}

// Run loads the named provider and applies the machine sweep, the image
// sweep and the overcommitment resolver to it.
//
// Failing to load the provider, build its cloud client or find a flavor
// aborts the run before anything is deleted. A *ConvergenceError is
// returned together with the partial Result. Individual deletion failures
// are only recorded on the Result.
func (r *Reaper) Run(ctx context.Context, providerName string) (*Result, error) {
	logger := log.FromContext(ctx).WithValues("provider", providerName)
	ctx = log.IntoContext(ctx, logger)

	started := r.clock()

	provider, err := r.Store.GetProvider(ctx, providerName)
	if err != nil {
		return nil, fmt.Errorf("failed to load provider %s: %w", providerName, err)
	}
	logger.Info("Working with provider", "maxServers", provider.MaxServers)

	client, err := r.NewCompute(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute client for provider %s: %w", providerName, err)
	}

	opts := r.Options.withDefaults()
	flavor, err := compute.FindFlavor(ctx, client, opts.FlavorMinRAM)
	if err != nil {
		return nil, fmt.Errorf("failed to find flavor for provider %s: %w", providerName, err)
	}
	logger.Info("Found flavor", "flavor", flavor.Name, "ram", flavor.RAM, "vcpus", flavor.VCPUs)

	rn := &run{
		Reaper:   r,
		opts:     opts,
		provider: provider,
		deleter: &Deleter{
			Store:   r.Store,
			Compute: client,
			Jenkins: r.Jenkins,
		},
		result: &Result{
			Provider:  provider.Name,
			Flavor:    flavor,
			StartedAt: started,
		},
		now: started,
	}

	rn.sweepMachines(ctx)
	minReady := rn.sweepImages(ctx)
	err = rn.resolveOvercommitment(ctx, minReady)

	rn.result.FinishedAt = r.clock()
	r.Metrics.SetOvercommitment(provider.Name, rn.result.Overcommitment)
	r.Metrics.ObserveRun(provider.Name, rn.result.FinishedAt.Sub(started), err == nil && !rn.result.HadErrors())

	logger.Info("Run finished",
		"machinesDeleted", len(rn.result.MachinesDeleted),
		"imagesDeleted", len(rn.result.ImagesDeleted),
		"failures", len(rn.result.Failures))
	return rn.result, err
}

func (r *Reaper) clock() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// sweepMachines deletes the machines retirement policy selects. It works on
// a copy of the machine list so deletions do not disturb the iteration.
func (rn *run) sweepMachines(ctx context.Context) {
	candidates := append([]*fleet.Machine(nil), rn.provider.Machines...)
	for _, m := range candidates {
		reason, ok := MachineRetirement(m, rn.now, rn.opts)
		if !ok {
			continue
		}
		rn.deleteMachine(ctx, m, reason, PhaseMachineSweep)
	}
}

// sweepImages deletes stale snapshot images and returns the min-ready
// headroom summed over every base image.
func (rn *run) sweepImages(ctx context.Context) int {
	minReady := rn.provider.MinReady()
	for _, b := range rn.provider.BaseImages {
		snapshots := append([]*fleet.SnapshotImage(nil), b.SnapshotImages...)
		for _, s := range snapshots {
			reason, ok := ImageRetirement(b, s, rn.now, rn.opts)
			if !ok {
				continue
			}
			rn.deleteImage(ctx, b, s, reason)
		}
	}
	return minReady
}

// resolveOvercommitment deletes unprotected machines until the provider is
// no longer overcommitted. A provider without a server limit is never
// overcommitted.
func (rn *run) resolveOvercommitment(ctx context.Context, minReady int) error {
	logger := log.FromContext(ctx)

	if rn.provider.MaxServers <= 0 {
		logger.V(1).Info("Provider has no server limit, skipping overcommitment check")
		return nil
	}

	overcommitment := Overcommitment(rn.provider, minReady)
	for overcommitment > 0 {
		logger.Info("Overcommitted", "machines", overcommitment, "minReady", minReady)
		last := overcommitment

		candidates := append([]*fleet.Machine(nil), rn.provider.Machines...)
		for _, m := range candidates {
			if overcommitment <= 0 {
				break
			}
			if m.State.Protected() {
				continue
			}
			if rn.deleteMachine(ctx, m, ReasonOvercommitted, PhaseResolver) {
				overcommitment--
			}
		}

		if overcommitment == last {
			rn.result.Overcommitment = overcommitment
			return &ConvergenceError{Provider: rn.provider.Name, Overcommitment: overcommitment}
		}
	}

	rn.result.Overcommitment = max(overcommitment, 0)
	return nil
}

// deleteMachine deletes m and records the outcome. It reports whether the
// machine is gone.
func (rn *run) deleteMachine(ctx context.Context, m *fleet.Machine, reason Reason, phase Phase) bool {
	logger := log.FromContext(ctx).WithValues("machine", m.Name)
	logger.Info("Deleting machine", "reason", reason, "state", m.State)

	if err := rn.deleter.DeleteMachine(ctx, rn.provider, m); err != nil {
		logger.Error(err, "Failed to delete machine")
		rn.result.Failures = append(rn.result.Failures, Failure{
			Kind:  events.KindMachine,
			Name:  m.Name,
			Phase: phase,
			Err:   err,
		})
		rn.Metrics.DeletionFailed(rn.provider.Name, string(events.KindMachine))
		return false
	}

	rn.result.MachinesDeleted = append(rn.result.MachinesDeleted, Deletion{
		Name:       m.Name,
		ExternalID: m.ExternalID,
		Reason:     reason,
		Phase:      phase,
	})
	rn.Metrics.MachineReaped(rn.provider.Name, string(reason))
	rn.publish(ctx, events.Event{
		Kind:       events.KindMachine,
		Provider:   rn.provider.Name,
		Name:       m.Name,
		ExternalID: m.ExternalID,
		Reason:     string(reason),
	})
	return true
}

func (rn *run) deleteImage(ctx context.Context, b *fleet.BaseImage, s *fleet.SnapshotImage, reason Reason) {
	logger := log.FromContext(ctx).WithValues("image", s.Name, "baseImage", b.Name)
	logger.Info("Deleting image", "reason", reason)

	if err := rn.deleter.DeleteImage(ctx, b, s); err != nil {
		logger.Error(err, "Failed to delete image")
		rn.result.Failures = append(rn.result.Failures, Failure{
			Kind:  events.KindImage,
			Name:  s.Name,
			Phase: PhaseImageSweep,
			Err:   err,
		})
		rn.Metrics.DeletionFailed(rn.provider.Name, string(events.KindImage))
		return
	}

	rn.result.ImagesDeleted = append(rn.result.ImagesDeleted, Deletion{
		Name:       s.Name,
		ExternalID: s.ExternalID,
		Reason:     reason,
		Phase:      PhaseImageSweep,
	})
	rn.Metrics.ImageReaped(rn.provider.Name)
	rn.publish(ctx, events.Event{
		Kind:       events.KindImage,
		Provider:   rn.provider.Name,
		Name:       s.Name,
		ExternalID: s.ExternalID,
		Reason:     string(reason),
	})
}

// publish announces a deletion. Delivery problems are logged and otherwise
// ignored.
func (rn *run) publish(ctx context.Context, e events.Event) {
	if rn.Events == nil {
		return
	}
	e.DeletedAt = rn.clock()
	if err := rn.Events.Publish(ctx, e); err != nil {
		log.FromContext(ctx).Error(err, "Failed to publish deletion event", "subject", e.Subject())
	}
}
