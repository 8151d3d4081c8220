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

package webhook

import (
	"github.com/mikelane/vmreap/internal/reaper"
)

// ReapRequest is the body of POST /reap.
type ReapRequest struct {
	Provider string `json:"provider"`
}

// ReapResponse summarizes a triggered run.
type ReapResponse struct {
	Provider        string   `json:"provider"`
	MachinesDeleted []string `json:"machinesDeleted"`
	ImagesDeleted   []string `json:"imagesDeleted"`
	Failures        []string `json:"failures,omitempty"`
	Overcommitment  int      `json:"overcommitment"`
	Error           string   `json:"error,omitempty"`
}

func newReapResponse(provider string, result *reaper.Result, err error) *ReapResponse {
	resp := &ReapResponse{
		Provider:        provider,
		MachinesDeleted: []string{},
		ImagesDeleted:   []string{},
	}
	if err != nil {
		resp.Error = err.Error()
	}
	if result == nil {
		return resp
	}

	for _, d := range result.MachinesDeleted {
		resp.MachinesDeleted = append(resp.MachinesDeleted, d.Name)
	}
	for _, d := range result.ImagesDeleted {
		resp.ImagesDeleted = append(resp.ImagesDeleted, d.Name)
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, f.Error())
	}
	resp.Overcommitment = result.Overcommitment
	return resp
}
