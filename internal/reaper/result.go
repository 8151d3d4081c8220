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
	"errors"
	"fmt"
	"time"

	"github.com/mikelane/vmreap/internal/compute"
	"github.com/mikelane/vmreap/internal/events"
	"go.uber.org/multierr"
)

// ErrUnableToReduceOvercommitment is wrapped by ConvergenceError.
var ErrUnableToReduceOvercommitment = errors.New("unable to reduce overcommitment")

// ConvergenceError aborts a run whose resolver pass deleted nothing while
// the provider was still overcommitted.
type ConvergenceError struct {
	Provider       string
	Overcommitment int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("provider %s: %v (overcommitted by %d)", e.Provider, ErrUnableToReduceOvercommitment, e.Overcommitment)
}

func (e *ConvergenceError) Unwrap() error {
	return ErrUnableToReduceOvercommitment
}

// Phase names the step of a run a deletion happened in.
type Phase string

const (
	PhaseMachineSweep Phase = "machine-sweep"
	PhaseImageSweep   Phase = "image-sweep"
	PhaseResolver     Phase = "resolver"
)

// Failure is one deletion that did not complete.
type Failure struct {
	Kind  events.Kind
	Name  string
	Phase Phase
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s (%s): %v", f.Kind, f.Name, f.Phase, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Deletion is one entity removed by a run.
type Deletion struct {
	Name       string
	ExternalID string
	Reason     Reason
	Phase      Phase
}

// Result summarizes a run.
type Result struct {
	Provider        string
	Flavor          *compute.Flavor
	MachinesDeleted []Deletion
	ImagesDeleted   []Deletion
	Failures        []Failure
	// Overcommitment left when the run ended. Zero for unbounded providers.
	Overcommitment int
	StartedAt      time.Time
	FinishedAt     time.Time
}

// HadErrors reports whether any deletion failed.
func (r *Result) HadErrors() bool {
	return r != nil && len(r.Failures) > 0
}

// Err combines every failure into one error, or returns nil.
func (r *Result) Err() error {
	if r == nil {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return multierr.Combine(errs...)
}
