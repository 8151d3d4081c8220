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

// Package cost provides cost estimation for reclaimed CI machines
package cost

import (
	"fmt"

	"github.com/mikelane/vmreap/internal/compute"
)

// hoursPerDay converts an hourly rate into the daily figure in an Estimate.
const hoursPerDay = 24

// Config defines the pricing configuration for cost estimation
type Config struct {
	Currency          string
	CPUCostPerHour    float64
	MemoryCostPerHour float64
}

// DefaultConfig returns the default pricing configuration
func DefaultConfig() *Config {
	return &Config{
		CPUCostPerHour:    0.04,  // $0.04 per vCPU-hour
		MemoryCostPerHour: 0.005, // $0.005 per GB-hour
		Currency:          "USD",
	}
}

// Estimate is the cost freed by a reaper run.
type Estimate struct {
	Currency   string
	Machines   int
	HourlyCost string
	DailyCost  string
}

// Estimator prices servers by flavor. It is immutable once built.
type Estimator struct {
	config Config
}

// NewEstimator creates a new cost estimator with the given configuration.
// If config is nil, default configuration is used.
func NewEstimator(config *Config) *Estimator {
	if config == nil {
		config = DefaultConfig()
	}
	return &Estimator{config: *config}
}

// FlavorHourlyCost calculates the cost of running one server of flavor f for an hour.
func (e *Estimator) FlavorHourlyCost(f compute.Flavor) float64 {
	memoryGB := float64(f.RAM) / 1024
	return float64(f.VCPUs)*e.config.CPUCostPerHour + memoryGB*e.config.MemoryCostPerHour
}

// EstimateReclaimed estimates the cost no longer incurred after deleting
// machines servers of flavor f. A nil flavor yields a zero estimate.
func (e *Estimator) EstimateReclaimed(f *compute.Flavor, machines int) *Estimate {
	var hourly float64
	if f != nil {
		hourly = e.FlavorHourlyCost(*f) * float64(machines)
	}

	return &Estimate{
		Currency:   e.config.Currency,
		Machines:   machines,
		HourlyCost: formatCost(hourly),
		DailyCost:  formatCost(hourly * hoursPerDay),
	}
}

// formatCost formats a cost value as a string with 4 decimal places for transparency
func formatCost(cost float64) string {
	return fmt.Sprintf("%.4f", cost)
}
