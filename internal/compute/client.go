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
	"errors"
)

// ErrNotFound is returned when the cloud has no record of a server or image.
var ErrNotFound = errors.New("not found in provider")

// Client is the subset of the cloud compute API used by the reaper.
type Client interface {
	// GetServer looks up a server by its cloud id.
	GetServer(ctx context.Context, id string) (*Server, error)
	// DeleteServer deletes a server by its cloud id.
	DeleteServer(ctx context.Context, id string) error
	// GetImage looks up an image by its cloud id.
	GetImage(ctx context.Context, id string) (*Image, error)
	// DeleteImage deletes an image by its cloud id.
	DeleteImage(ctx context.Context, id string) error
	// ListFlavors returns every flavor the cloud offers.
	ListFlavors(ctx context.Context) ([]Flavor, error)
}

// Server is a live cloud server.
type Server struct {
	ID     string
	Name   string
	Status string
}

// Image is a live cloud image.
type Image struct {
	ID     string
	Name   string
	Status string
}

// Flavor is a server size offered by the cloud.
type Flavor struct {
	ID    string
	Name  string
	RAM   int // MB
	VCPUs int
	Disk  int // GB
}

// IsNotFound reports whether err means the resource no longer exists.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
