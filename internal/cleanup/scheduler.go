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

package cleanup

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/mikelane/vmreap/internal/reaper"
	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Runner reaps a single provider.
type Runner interface {
	Run(ctx context.Context, provider string) (*reaper.Result, error)
}

// Scheduler runs the reaper for a fixed set of providers on a cron schedule.
// Runs are serialized so at most one reap is in flight per process,
// whether it was started by the schedule or by Trigger.
type Scheduler struct {
	runner    Runner
	schedule  cron.Schedule
	providers []string

	mu sync.Mutex
	// fatal carries a convergence failure from a triggered run to Start.
	fatal chan error
}

// NewScheduler creates a new cleanup scheduler from a cron spec.
// Standard five-field specs and descriptors such as "@hourly" or
// "@every 15m" are accepted.
//
// Parameters:
//   - runner: Reaper used for each provider
//   - spec: Cron expression controlling when passes run
//   - providers: Names of the providers reaped on every pass
//
// Returns a configured Scheduler ready to start.
func NewScheduler(runner Runner, spec string, providers []string) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return newScheduler(runner, schedule, providers), nil
}

func newScheduler(runner Runner, schedule cron.Schedule, providers []string) *Scheduler {
	return &Scheduler{
		runner:    runner,
		schedule:  schedule,
		providers: slices.Clone(providers),
		fatal:     make(chan error, 1),
	}
}

// Manages reports whether provider is reaped by this scheduler.
func (s *Scheduler) Manages(provider string) bool {
	return slices.Contains(s.providers, provider)
}

// Start begins the cleanup scheduler, running a pass each time the schedule
// fires until the context is canceled.
//
// Failed deletions and per-provider setup errors are logged and the
// schedule continues. A provider whose overcommitment cannot be reduced
// stops the scheduler, whether the run was scheduled or started by Trigger.
//
// Returns nil on graceful shutdown, or the *reaper.ConvergenceError that
// stopped it.
func (s *Scheduler) Start(ctx context.Context) error {
	logger := log.FromContext(ctx)

	for {
		now := time.Now()
		next := s.schedule.Next(now)
		if next.IsZero() {
			return errors.New("schedule never fires")
		}
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case err := <-s.fatal:
			timer.Stop()
			return err
		case <-timer.C:
			err := s.cleanup(ctx)
			if err == nil {
				continue
			}
			var convergence *reaper.ConvergenceError
			if errors.As(err, &convergence) {
				return err
			}
			// Continue to next tick - don't stop scheduler on transient errors
			logger.Error(err, "cleanup pass failed")
		}
	}
}

// Trigger reaps one provider immediately, waiting for any run in progress.
// A convergence failure is also handed to Start, which returns it.
func (s *Scheduler) Trigger(ctx context.Context, provider string) (*reaper.Result, error) {
	result, err := s.run(ctx, provider)

	var convergence *reaper.ConvergenceError
	if errors.As(err, &convergence) {
		select {
		case s.fatal <- err:
		default:
		}
	}
	return result, err
}

func (s *Scheduler) run(ctx context.Context, provider string) (*reaper.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.runner.Run(ctx, provider)
}

// cleanup performs a single pass over every provider. Every provider is
// attempted even when an earlier one fails.
//
// Returns the combined run errors, nil when every run completed.
func (s *Scheduler) cleanup(ctx context.Context) error {
	logger := log.FromContext(ctx)

	var errs error
	for _, provider := range s.providers {
		result, err := s.run(ctx, provider)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if result.HadErrors() {
			logger.Error(result.Err(), "Reap finished with failed deletions",
				"provider", provider, "failures", len(result.Failures))
		}
	}
	return errs
}
