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
	"fmt"
	"io"
	"math/rand"
	"net"
	"syscall"
	"time"

	"github.com/bndr/gojenkins"
)

// RetryConfig defines the retry behavior for API calls
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultRetryConfig returns the retry behavior used by NewClient
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// jenkinsClient implements the Client interface
type jenkinsClient struct {
	api         api
	retryConfig *RetryConfig
}

// NewClient connects to the Jenkins server and returns a client for it.
// Connectivity is verified once, through Ping, before returning.
func NewClient(ctx context.Context, server, user, apiKey string) (Client, error) {
	j := gojenkins.CreateJenkins(nil, server, user, apiKey)
	c, err := connect(ctx, &gojenkinsAPI{jenkins: j}, DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to jenkins at %s: %w", server, err)
	}
	return c, nil
}

func connect(ctx context.Context, a api, retryConfig *RetryConfig) (*jenkinsClient, error) {
	c := newClient(a, retryConfig)
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func newClient(a api, retryConfig *RetryConfig) *jenkinsClient {
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}
	return &jenkinsClient{api: a, retryConfig: retryConfig}
}

// Ping verifies that Jenkins is reachable
func (c *jenkinsClient) Ping(ctx context.Context) error {
	err := c.executeWithRetry(ctx, func() error {
		return c.api.info(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to get jenkins info: %w", err)
	}
	return nil
}

// NodeExists reports whether the named node is registered
func (c *jenkinsClient) NodeExists(ctx context.Context, name string) (bool, error) {
	var names []string
	err := c.executeWithRetry(ctx, func() error {
		var err error
		names, err = c.api.nodeNames(ctx)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to list jenkins nodes: %w", err)
	}

	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// DeleteNode deregisters the named node
func (c *jenkinsClient) DeleteNode(ctx context.Context, name string) error {
	err := c.executeWithRetry(ctx, func() error {
		ok, err := c.api.deleteNode(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			return errNodeNotDeleted
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete jenkins node %s: %w", name, err)
	}
	return nil
}

// executeWithRetry executes an operation with exponential backoff retry
func (c *jenkinsClient) executeWithRetry(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		if !c.isRetryableError(lastErr) {
			return lastErr
		}

		if attempt == c.retryConfig.MaxRetries {
			break
		}

		backoff := c.calculateBackoff(attempt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", c.retryConfig.MaxRetries, lastErr)
}

// isRetryableError determines if an error should trigger a retry
func (c *jenkinsClient) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, errNodeNotDeleted) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// calculateBackoff calculates the backoff duration for a retry attempt
func (c *jenkinsClient) calculateBackoff(attempt int) time.Duration {
	base := float64(c.retryConfig.InitialBackoff)
	for i := 0; i < attempt; i++ {
		base *= c.retryConfig.BackoffFactor
	}

	// Add jitter (±20%)
	jitter := (rand.Float64() * 0.4) - 0.2
	backoff := time.Duration(base * (1 + jitter))

	if backoff > c.retryConfig.MaxBackoff {
		backoff = c.retryConfig.MaxBackoff
	}

	return backoff
}

// gojenkinsAPI implements api on top of gojenkins
type gojenkinsAPI struct {
	jenkins *gojenkins.Jenkins
}

// info initializes the connection, which polls the server root.
func (a *gojenkinsAPI) info(ctx context.Context) error {
	_, err := a.jenkins.Init(ctx)
	return err
}

func (a *gojenkinsAPI) nodeNames(ctx context.Context) ([]string, error) {
	nodes, err := a.jenkins.GetAllNodes(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			names = append(names, n.GetName())
		}
	}
	return names, nil
}

func (a *gojenkinsAPI) deleteNode(ctx context.Context, name string) (bool, error) {
	return a.jenkins.DeleteNode(ctx, name)
}
