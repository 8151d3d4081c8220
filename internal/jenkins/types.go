// MIT License
//
// Copyright (c) 2025 Mike Lane
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package jenkins

import (
	"context"
	"errors"
)

// Client interface defines the contract for interacting with Jenkins
type Client interface {
	// Ping verifies that Jenkins is reachable with the configured credentials
	Ping(ctx context.Context) error
	// NodeExists reports whether a node with the given name is registered
	NodeExists(ctx context.Context, name string) (bool, error)
	// DeleteNode deregisters the named node
	DeleteNode(ctx context.Context, name string) error
}

// errNodeNotDeleted is returned when Jenkins answers a delete without
// confirming it.
var errNodeNotDeleted = errors.New("jenkins did not confirm node deletion")

// api is the slice of the Jenkins REST API the client is built on.
type api interface {
	info(ctx context.Context) error
	nodeNames(ctx context.Context) ([]string, error)
	deleteNode(ctx context.Context, name string) (bool, error)
}
