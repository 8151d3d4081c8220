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

package compute

import (
	"context"
	"fmt"
	"sort"
)

// FindFlavor returns the smallest flavor with at least minRAM megabytes.
func FindFlavor(ctx context.Context, c Client, minRAM int) (*Flavor, error) {
	flavors, err := c.ListFlavors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flavors: %w", err)
	}

	var candidates []Flavor
	for _, f := range flavors {
		if f.RAM >= minRAM {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no flavor with at least %d MB of RAM", minRAM)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RAM < candidates[j].RAM
	})
	return &candidates[0], nil
}
