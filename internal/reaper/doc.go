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

// Package reaper decides which CI machines and snapshot images to retire and
// tears them down.
//
// A run works on one provider's inventory snapshot and proceeds in three
// steps that share a single Deleter:
//
//   - Machine sweep: deletes machines that have sat in a non-ready state
//     longer than the configured lifetime, machines tombstoned with the
//     delete state, or every machine when AllServers is set.
//   - Image sweep: deletes snapshot images older than the lifetime unless
//     they are their base image's current snapshot, or every image when
//     AllImages is set.
//   - Overcommitment resolver: while the provider's used machines plus the
//     standing headroom of its base images exceed MaxServers, deletes
//     machines that are not ready, building or held.
//
// Per-entity failures never stop a run. They are collected on the Result
// and reported through Result.Err. A resolver pass that removes nothing
// while the provider is still overcommitted aborts the run with a
// *ConvergenceError.
//
// Example usage:
//
//	r := &reaper.Reaper{
//		Store:      store,
//		NewCompute: factory,
//		Jenkins:    jenkinsClient, // nil skips node deregistration
//		Options:    reaper.Options{Lifetime: 24 * time.Hour},
//	}
//	result, err := r.Run(ctx, "rax-dfw")
package reaper
