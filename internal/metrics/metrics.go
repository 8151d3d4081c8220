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

// Package metrics exposes Prometheus instrumentation for reaper runs.
//
// A Recorder owns its own registry so one-shot runs can push exactly the
// reaper's series to a Pushgateway while serve mode exposes them on
// /metrics. All Recorder methods are safe to call on a nil receiver.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "vmreap"

// Recorder collects reaper metrics.
type Recorder struct {
	registry *prometheus.Registry

	machinesReaped   *prometheus.CounterVec
	imagesReaped     *prometheus.CounterVec
	deletionFailures *prometheus.CounterVec
	overcommitment   *prometheus.GaugeVec
	runDuration      *prometheus.HistogramVec
}

// NewRecorder creates a Recorder registered on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		machinesReaped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "machines_reaped_total",
			Help:      "Machines deleted, by provider and retirement reason.",
		}, []string{"provider", "reason"}),
		imagesReaped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_reaped_total",
			Help:      "Snapshot images deleted, by provider.",
		}, []string{"provider"}),
		deletionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deletion_failures_total",
			Help:      "Failed deletions, by provider and entity kind.",
		}, []string{"provider", "kind"}),
		overcommitment: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overcommitment",
			Help:      "Overcommitment left after the last run.",
		}, []string{"provider"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a reaper run.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"provider", "success"}),
	}

	r.registry.MustRegister(
		r.machinesReaped,
		r.imagesReaped,
		r.deletionFailures,
		r.overcommitment,
		r.runDuration,
	)
	return r
}

// Registry returns the registry the Recorder's collectors live on.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// MachineReaped counts a deleted machine.
func (r *Recorder) MachineReaped(provider, reason string) {
	if r == nil {
		return
	}
	r.machinesReaped.WithLabelValues(provider, reason).Inc()
}

// ImageReaped counts a deleted snapshot image.
func (r *Recorder) ImageReaped(provider string) {
	if r == nil {
		return
	}
	r.imagesReaped.WithLabelValues(provider).Inc()
}

// DeletionFailed counts a failed deletion of the given entity kind.
func (r *Recorder) DeletionFailed(provider, kind string) {
	if r == nil {
		return
	}
	r.deletionFailures.WithLabelValues(provider, kind).Inc()
}

// SetOvercommitment records the overcommitment left after a run.
func (r *Recorder) SetOvercommitment(provider string, value int) {
	if r == nil {
		return
	}
	r.overcommitment.WithLabelValues(provider).Set(float64(value))
}

// ObserveRun records how long a run took.
func (r *Recorder) ObserveRun(provider string, d time.Duration, success bool) {
	if r == nil {
		return
	}
	r.runDuration.WithLabelValues(provider, strconv.FormatBool(success)).Observe(d.Seconds())
}

// Handler serves the Recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Push sends the collected series to a Pushgateway under job.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if r == nil || url == "" {
		return nil
	}
	return push.New(url, job).Gatherer(r.registry).PushContext(ctx)
}
