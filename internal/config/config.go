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

// Package config loads reaper settings from the environment and the
// secure credentials file shared with the rest of the gate tooling.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mikelane/vmreap/internal/cost"
)

const (
	// DefaultLifetime is used when VMREAP_MACHINE_LIFETIME is unset.
	DefaultLifetime = 24 * time.Hour
	// DefaultNamespace holds the fleet custom resources.
	DefaultNamespace = "vmreap-system"

	// InventoryKube reads the fleet from Kubernetes custom resources.
	InventoryKube = "kube"
	// InventoryBadger reads the fleet from a local Badger database.
	InventoryBadger = "badger"
)

// Config holds settings taken from environment variables.
type Config struct {
	SecureConfigPath string
	SkipJenkins      bool
	Lifetime         time.Duration
	Namespace        string
	Inventory        string
	BadgerPath       string
	NATSURL          string
	PushgatewayURL   string
	WebhookSecret    string
	Pricing          cost.Config
}

// Load reads configuration from environment variables with defaults.
func Load() (Config, error) {
	lifetime, err := ParseDuration(getEnv("VMREAP_MACHINE_LIFETIME", ""), DefaultLifetime)
	if err != nil {
		return Config{}, fmt.Errorf("VMREAP_MACHINE_LIFETIME: %w", err)
	}

	pricing, err := loadPricing()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		SecureConfigPath: getEnv("DEVSTACK_GATE_SECURE_CONFIG", defaultSecureConfigPath()),
		SkipJenkins:      getEnv("SKIP_DEVSTACK_GATE_JENKINS", "") != "",
		Lifetime:         lifetime,
		Namespace:        getEnv("VMREAP_NAMESPACE", DefaultNamespace),
		Inventory:        getEnv("VMREAP_INVENTORY", InventoryKube),
		BadgerPath:       getEnv("VMREAP_BADGER_PATH", ""),
		NATSURL:          getEnv("NATS_URL", ""),
		PushgatewayURL:   getEnv("VMREAP_PUSHGATEWAY_URL", ""),
		WebhookSecret:    getEnv("VMREAP_WEBHOOK_SECRET", ""),
		Pricing:          pricing,
	}

	switch cfg.Inventory {
	case InventoryKube:
	case InventoryBadger:
		if cfg.BadgerPath == "" {
			return Config{}, fmt.Errorf("VMREAP_BADGER_PATH is required for the %s inventory", InventoryBadger)
		}
	default:
		return Config{}, fmt.Errorf("unknown inventory %q (want %s or %s)", cfg.Inventory, InventoryKube, InventoryBadger)
	}

	return cfg, nil
}

// ParseDuration parses a duration string and returns a time.Duration.
// Supports formats like "24h", "90m", "2d" (days).
// Returns def if s is empty.
func ParseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}

	// Handle days specially (e.g., "2d" -> 48h)
	if strings.HasSuffix(s, "d") {
		daysStr := strings.TrimSuffix(s, "d")
		var days int
		if _, err := fmt.Sscanf(daysStr, "%d", &days); err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid duration format: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid duration format: %s", s)
	}
	return d, nil
}

// loadPricing overrides the default cost rates from VMREAP_COST_*.
func loadPricing() (cost.Config, error) {
	pricing := *cost.DefaultConfig()
	pricing.Currency = getEnv("VMREAP_COST_CURRENCY", pricing.Currency)

	rates := []struct {
		key  string
		rate *float64
	}{
		{"VMREAP_COST_CPU_PER_HOUR", &pricing.CPUCostPerHour},
		{"VMREAP_COST_MEMORY_PER_HOUR", &pricing.MemoryCostPerHour},
	}
	for _, r := range rates {
		v := getEnv(r.key, "")
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return cost.Config{}, fmt.Errorf("%s: invalid rate %q", r.key, v)
		}
		*r.rate = f
	}
	return pricing, nil
}

func defaultSecureConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "devstack-gate-secure.conf"
	}
	return filepath.Join(home, "devstack-gate-secure.conf")
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}
