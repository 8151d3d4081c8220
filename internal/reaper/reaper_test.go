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
	"errors"
	"time"

	"github.com/mikelane/vmreap/internal/compute"
	"github.com/mikelane/vmreap/internal/events"
	"github.com/mikelane/vmreap/internal/fleet"
	"github.com/mikelane/vmreap/internal/inventory"
	"github.com/mikelane/vmreap/internal/metrics"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ = Describe("Reaper", func() {
	const provider = "rax-dfw"

	var (
		ctx   context.Context
		now   time.Time
		cloud *fakeCompute
		ci    *fakeJenkins
		store *fakeStore
		f     *fleetBuilder
		r     *Reaper
	)

	newReaper := func(maxServers int) {
		f = newFleet(now, provider, maxServers, cloud)
		store = newFakeStore(f.provider)
		r = &Reaper{
			Store: store,
			NewCompute: func(context.Context, *fleet.Provider) (compute.Client, error) {
				return cloud, nil
			},
			Jenkins: ci,
			Options: Options{Lifetime: 24 * time.Hour},
			Now:     func() time.Time { return now },
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
		cloud = newFakeCompute()
		ci = newFakeJenkins()
	})

	Describe("Scenario: machines past their lifetime", func() {
		It("deletes every expired non-ready machine without errors", func() {
			newReaper(0)
			f.machine("used-1", fleet.StateUsed, 25*time.Hour)
			f.machine("error-1", fleet.StateError, 25*time.Hour)
			f.machine("hold-1", fleet.StateHold, 25*time.Hour)
			ci.nodes["used-1"] = true

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())

			Expect(machineNames(result.MachinesDeleted)).To(ConsistOf("used-1", "error-1", "hold-1"))
			Expect(result.HadErrors()).To(BeFalse())
			Expect(result.Err()).NotTo(HaveOccurred())
			Expect(cloud.deleted("server")).To(ConsistOf("srv-used-1", "srv-error-1", "srv-hold-1"))
			Expect(store.deletedMachines).To(ConsistOf("used-1", "error-1", "hold-1"))
			Expect(ci.deleted).To(ConsistOf("used-1"))
			Expect(f.provider.Machines).To(BeEmpty())
		})

		It("keeps ready machines regardless of age", func() {
			newReaper(0)
			f.machine("ready-1", fleet.StateReady, 72*time.Hour)
			f.machine("used-1", fleet.StateUsed, 23*time.Hour)

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.MachinesDeleted).To(BeEmpty())
			Expect(f.provider.Machines).To(HaveLen(2))
		})

		It("deletes tombstoned machines regardless of age", func() {
			newReaper(0)
			f.machine("doomed", fleet.StateDelete, time.Minute)

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.MachinesDeleted).To(HaveLen(1))
			Expect(result.MachinesDeleted[0].Reason).To(Equal(ReasonTombstoned))
		})

		It("deletes every machine when all servers are requested", func() {
			newReaper(0)
			f.machine("ready-1", fleet.StateReady, time.Minute)
			f.machine("building-1", fleet.StateBuilding, time.Minute)
			r.Options.AllServers = true

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())
			Expect(machineNames(result.MachinesDeleted)).To(ConsistOf("ready-1", "building-1"))
		})
	})

	Describe("Scenario: provider over capacity", func() {
		It("deletes exactly enough machines to clear the overcommitment", func() {
			newReaper(5)
			for _, name := range []string{"m1", "m2", "m3", "m4", "m5", "m6"} {
				f.machine(name, fleet.StateUsed, time.Hour)
			}

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.MachinesDeleted).To(HaveLen(1))
			Expect(result.MachinesDeleted[0].Reason).To(Equal(ReasonOvercommitted))
			Expect(result.MachinesDeleted[0].Phase).To(Equal(PhaseResolver))
			Expect(result.Overcommitment).To(Equal(0))
			Expect(f.provider.Machines).To(HaveLen(5))
			Expect(Overcommitment(f.provider, 0)).To(Equal(0))
		})

		It("never deletes ready, building or held machines", func() {
			newReaper(3)
			f.machine("ready-1", fleet.StateReady, time.Hour)
			f.machine("building-1", fleet.StateBuilding, time.Hour)
			f.machine("hold-1", fleet.StateHold, time.Hour)
			f.machine("used-1", fleet.StateUsed, time.Hour)
			f.machine("used-2", fleet.StateUsed, time.Hour)

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())

			// 5 machines - 1 ready + 0 min ready - 3 max servers
			Expect(machineNames(result.MachinesDeleted)).To(ConsistOf("used-1"))
		})

		It("reserves min-ready headroom for every base image", func() {
			newReaper(4)
			f.machine("ready-1", fleet.StateReady, time.Hour)
			f.machine("ready-2", fleet.StateReady, time.Hour)
			f.machine("used-1", fleet.StateUsed, time.Hour)
			f.machine("used-2", fleet.StateUsed, time.Hour)
			f.baseImage("precise", 2)
			f.baseImage("oneiric", 1)

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())

			// 4 machines - 2 ready + 3 min ready - 4 max servers
			Expect(machineNames(result.MachinesDeleted)).To(ConsistOf("used-1"))
		})

		It("counts min ready for base images whose snapshots were all deleted", func() {
			newReaper(2)
			f.machine("used-1", fleet.StateUsed, time.Hour)
			f.machine("used-2", fleet.StateUsed, time.Hour)
			base := f.baseImage("precise", 1)
			f.snapshot(base, "precise-old", 48*time.Hour)

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())

			Expect(machineNames(result.ImagesDeleted)).To(ConsistOf("precise-old"))
			Expect(machineNames(result.MachinesDeleted)).To(ConsistOf("used-1"))
		})

		It("skips the resolver for providers without a server limit", func() {
			newReaper(0)
			for _, name := range []string{"m1", "m2", "m3"} {
				f.machine(name, fleet.StateUsed, time.Hour)
			}
			f.baseImage("precise", 10)

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.MachinesDeleted).To(BeEmpty())
			Expect(result.Overcommitment).To(Equal(0))
		})

		It("continues past a failed deletion within the same pass", func() {
			newReaper(1)
			f.machine("stuck", fleet.StateUsed, time.Hour)
			f.machine("used-1", fleet.StateUsed, time.Hour)
			cloud.deleteServerErr["srv-stuck"] = errors.New("server in task_state deleting")

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())

			Expect(machineNames(result.MachinesDeleted)).To(ConsistOf("used-1"))
			Expect(result.Failures).To(HaveLen(1))
			Expect(result.Failures[0].Name).To(Equal("stuck"))
			Expect(result.Failures[0].Phase).To(Equal(PhaseResolver))
			Expect(result.HadErrors()).To(BeTrue())
		})
	})

	Describe("Scenario: overcommitment cannot be reduced", func() {
		It("aborts with a convergence error when only protected machines remain", func() {
			newReaper(1)
			f.machine("building-1", fleet.StateBuilding, time.Hour)
			f.machine("building-2", fleet.StateBuilding, time.Hour)
			f.machine("hold-1", fleet.StateHold, time.Hour)

			result, err := r.Run(ctx, provider)
			Expect(err).To(MatchError(ErrUnableToReduceOvercommitment))

			var convergence *ConvergenceError
			Expect(errors.As(err, &convergence)).To(BeTrue())
			Expect(convergence.Provider).To(Equal(provider))
			Expect(convergence.Overcommitment).To(Equal(2))

			Expect(result).NotTo(BeNil())
			Expect(result.MachinesDeleted).To(BeEmpty())
			Expect(cloud.deleted("server")).To(BeEmpty())
		})

		It("aborts once a later pass stops making progress", func() {
			newReaper(1)
			f.machine("stuck", fleet.StateUsed, time.Hour)
			f.machine("used-1", fleet.StateUsed, time.Hour)
			f.machine("hold-1", fleet.StateHold, time.Hour)
			cloud.deleteServerErr["srv-stuck"] = errors.New("server in error state")

			result, err := r.Run(ctx, provider)
			Expect(err).To(MatchError(ErrUnableToReduceOvercommitment))

			Expect(machineNames(result.MachinesDeleted)).To(ConsistOf("used-1"))
			Expect(result.Failures).To(HaveLen(2))
			Expect(result.Overcommitment).To(Equal(1))
		})
	})

	Describe("Scenario: snapshot images", func() {
		It("deletes stale snapshots but keeps the current one", func() {
			newReaper(0)
			base := f.baseImage("precise", 0)
			f.snapshot(base, "precise-1", 48*time.Hour)
			current := f.snapshot(base, "precise-2", 48*time.Hour)
			f.snapshot(base, "precise-3", time.Hour)
			base.CurrentSnapshot = current.Name

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())

			Expect(machineNames(result.ImagesDeleted)).To(ConsistOf("precise-1"))
			Expect(store.deletedImages).To(ConsistOf("precise-1"))
			Expect(base.SnapshotImages).To(HaveLen(2))
		})

		It("deletes the originating server before the image", func() {
			newReaper(0)
			base := f.baseImage("precise", 0)
			f.snapshot(base, "precise-1", 48*time.Hour)

			_, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())

			Expect(cloud.calls).To(Equal([]string{
				"get-server:tmpl-precise-1",
				"delete-server:tmpl-precise-1",
				"get-image:img-precise-1",
				"delete-image:img-precise-1",
			}))
		})

		It("deletes the current snapshot when all images are requested", func() {
			newReaper(0)
			base := f.baseImage("precise", 0)
			current := f.snapshot(base, "precise-1", time.Minute)
			base.CurrentSnapshot = current.Name
			r.Options.AllImages = true

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())

			Expect(machineNames(result.ImagesDeleted)).To(ConsistOf("precise-1"))
			Expect(result.ImagesDeleted[0].Reason).To(Equal(ReasonAllImages))
			Expect(cloud.deleted("image")).To(ConsistOf("img-precise-1"))
			Expect(base.SnapshotImages).To(BeEmpty())
		})

		It("removes the record when neither the server nor the image exist", func() {
			newReaper(0)
			base := f.baseImage("precise", 0)
			f.snapshot(base, "precise-1", 48*time.Hour)
			cloud.servers = map[string]bool{}
			cloud.images = map[string]bool{}

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.HadErrors()).To(BeFalse())
			Expect(store.deletedImages).To(ConsistOf("precise-1"))
			Expect(cloud.deleted("server")).To(BeEmpty())
			Expect(cloud.deleted("image")).To(BeEmpty())
		})
	})

	Describe("Scenario: cloud no longer knows the server", func() {
		It("still deregisters the node and removes the record", func() {
			newReaper(0)
			m := f.machine("gone-1", fleet.StateUsed, 25*time.Hour)
			delete(cloud.servers, m.ExternalID)
			ci.nodes["gone-1"] = true

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.HadErrors()).To(BeFalse())
			Expect(machineNames(result.MachinesDeleted)).To(ConsistOf("gone-1"))
			Expect(cloud.deleted("server")).To(BeEmpty())
			Expect(ci.deleted).To(ConsistOf("gone-1"))
			Expect(store.deletedMachines).To(ConsistOf("gone-1"))
		})
	})

	Describe("Deletion failures", func() {
		It("isolates a failing machine from the rest of the sweep", func() {
			newReaper(0)
			f.machine("bad", fleet.StateUsed, 25*time.Hour)
			f.machine("good", fleet.StateUsed, 25*time.Hour)
			cloud.getServerErrs["srv-bad"] = errors.New("503 service unavailable")

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())

			Expect(machineNames(result.MachinesDeleted)).To(ConsistOf("good"))
			Expect(result.Failures).To(HaveLen(1))
			Expect(result.Failures[0].Kind).To(Equal(events.KindMachine))
			Expect(result.Failures[0].Phase).To(Equal(PhaseMachineSweep))
			Expect(result.Err()).To(MatchError(ContainSubstring("503 service unavailable")))
			Expect(f.provider.Machines).To(HaveLen(1))
		})

		It("keeps the inventory record when the jenkins node cannot be removed", func() {
			newReaper(0)
			f.machine("used-1", fleet.StateUsed, 25*time.Hour)
			ci.err = errors.New("jenkins unavailable")

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Failures).To(HaveLen(1))
			Expect(store.deletedMachines).To(BeEmpty())
			Expect(f.provider.Machines).To(HaveLen(1))
		})

		It("records a failed inventory removal and keeps sweeping", func() {
			newReaper(0)
			f.machine("used-1", fleet.StateUsed, 25*time.Hour)
			f.machine("used-2", fleet.StateUsed, 25*time.Hour)
			store.machineErrs["used-1"] = errors.New("conflict")

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())

			Expect(machineNames(result.MachinesDeleted)).To(ConsistOf("used-2"))
			Expect(result.Failures).To(HaveLen(1))
			Expect(result.Failures[0].Err).To(MatchError(ContainSubstring("conflict")))
		})

		It("isolates a failing snapshot image from the rest of the sweep", func() {
			newReaper(0)
			base := f.baseImage("precise", 0)
			f.snapshot(base, "precise-1", 48*time.Hour)
			f.snapshot(base, "precise-2", 48*time.Hour)
			cloud.deleteImageErrs["img-precise-1"] = errors.New("409 image in use")

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())

			Expect(machineNames(result.ImagesDeleted)).To(ConsistOf("precise-2"))
			Expect(store.deletedImages).To(ConsistOf("precise-2"))
			Expect(result.Failures).To(HaveLen(1))
			Expect(result.Failures[0].Kind).To(Equal(events.KindImage))
			Expect(result.Failures[0].Phase).To(Equal(PhaseImageSweep))
			Expect(result.Failures[0].Name).To(Equal("precise-1"))
			Expect(result.HadErrors()).To(BeTrue())
			Expect(result.Err()).To(MatchError(ContainSubstring("409 image in use")))
			Expect(base.SnapshotImages).To(HaveLen(1))
		})

		It("records a failed image lookup and keeps the record", func() {
			newReaper(0)
			base := f.baseImage("precise", 0)
			f.snapshot(base, "precise-1", 48*time.Hour)
			cloud.getImageErrs["img-precise-1"] = errors.New("503 service unavailable")

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.ImagesDeleted).To(BeEmpty())
			Expect(store.deletedImages).To(BeEmpty())
			Expect(result.Failures).To(HaveLen(1))
			Expect(result.Failures[0].Kind).To(Equal(events.KindImage))
			Expect(cloud.deleted("image")).To(BeEmpty())
		})
	})

	Describe("Jenkins integration", func() {
		It("treats a missing jenkins client as a no-op", func() {
			newReaper(0)
			f.machine("used-1", fleet.StateUsed, 25*time.Hour)
			r.Jenkins = nil

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.HadErrors()).To(BeFalse())
			Expect(store.deletedMachines).To(ConsistOf("used-1"))
		})

		It("skips deregistration for nodes jenkins does not know", func() {
			newReaper(0)
			f.machine("used-1", fleet.StateUsed, 25*time.Hour)

			_, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())
			Expect(ci.deleted).To(BeEmpty())
		})
	})

	Describe("Run setup", func() {
		It("fails before deleting anything when no flavor fits", func() {
			newReaper(0)
			f.machine("used-1", fleet.StateUsed, 25*time.Hour)
			cloud.flavors = []compute.Flavor{{Name: "m1.nano", RAM: 256}}

			result, err := r.Run(ctx, provider)
			Expect(err).To(HaveOccurred())
			Expect(result).To(BeNil())
			Expect(cloud.deleted("server")).To(BeEmpty())
		})

		It("reports the flavor it found", func() {
			newReaper(0)

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Flavor.Name).To(Equal("m1.small"))
		})

		It("wraps unknown providers with the inventory sentinel", func() {
			newReaper(0)

			_, err := r.Run(ctx, "missing")
			Expect(err).To(MatchError(inventory.ErrNotFound))
		})

		It("surfaces compute client construction failures", func() {
			newReaper(0)
			r.NewCompute = func(context.Context, *fleet.Provider) (compute.Client, error) {
				return nil, errors.New("authentication failed")
			}

			_, err := r.Run(ctx, provider)
			Expect(err).To(MatchError(ContainSubstring("authentication failed")))
		})
	})

	Describe("Reporting", func() {
		It("publishes an event and counts every deletion", func() {
			newReaper(0)
			f.machine("used-1", fleet.StateUsed, 25*time.Hour)
			base := f.baseImage("precise", 0)
			f.snapshot(base, "precise-1", 48*time.Hour)

			publisher := &recordingPublisher{}
			recorder := metrics.NewRecorder()
			r.Events = publisher
			r.Metrics = recorder

			_, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())

			Expect(publisher.events).To(HaveLen(2))
			Expect(publisher.events[0].Subject()).To(Equal("vmreap.rax-dfw.machine.deleted"))
			Expect(publisher.events[0].Reason).To(Equal(string(ReasonExpired)))
			Expect(publisher.events[0].DeletedAt).To(Equal(now))
			Expect(publisher.events[1].Subject()).To(Equal("vmreap.rax-dfw.image.deleted"))

			count, err := testutil.GatherAndCount(recorder.Registry(), "vmreap_machines_reaped_total", "vmreap_images_reaped_total")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
		})

		It("does not fail the run when publishing fails", func() {
			newReaper(0)
			f.machine("used-1", fleet.StateUsed, 25*time.Hour)
			r.Events = &recordingPublisher{err: errors.New("nats not connected")}

			result, err := r.Run(ctx, provider)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.HadErrors()).To(BeFalse())
		})
	})
})
