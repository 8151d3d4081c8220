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

// Package cost estimates what a reaper run gives back.
//
// Costs are derived from the flavor the reaper resolves at the start of a
// run, using configurable per-resource prices:
//
//	CPU Cost = vCPUs × (CPU Price Per Hour)
//	Memory Cost = (RAM GB) × (Memory Price Per Hour)
//	Hourly Cost = (CPU Cost + Memory Cost) × machines deleted
//	Daily Cost = Hourly Cost × 24
//
// Default Pricing, overridable through VMREAP_COST_CURRENCY,
// VMREAP_COST_CPU_PER_HOUR and VMREAP_COST_MEMORY_PER_HOUR:
//
//   - CPU: $0.04 per core per hour
//   - Memory: $0.005 per GB per hour
//
// Example usage:
//
//	estimator := cost.NewEstimator(&cfg.Pricing)
//	estimate := estimator.EstimateReclaimed(result.Flavor, len(result.MachinesDeleted))
//	fmt.Printf("Reclaimed %s %s/hour\n", estimate.HourlyCost, estimate.Currency)
package cost
