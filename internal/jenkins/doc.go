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

// Package jenkins provides the CI scheduler integration for the reaper.
//
// Machines that joined Jenkins as build nodes have to be deregistered when
// they are reaped, otherwise Jenkins keeps scheduling jobs onto executors
// that no longer exist.
//
// Key features:
//   - Connectivity check at startup
//   - Node existence lookup and node deletion
//   - Retry logic with exponential backoff for transient failures
//
// Authentication:
//
// The client authenticates with a Jenkins user name and API token, read from
// the [jenkins] section of the secure config file:
//
//	[jenkins]
//	server = https://jenkins.example.com
//	user = reaper
//	apikey = 0123456789abcdef
//
// Example usage:
//
//	client, err := jenkins.NewClient(ctx, server, user, apiKey)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	exists, err := client.NodeExists(ctx, "devstack-rax-dfw-42")
//	if err == nil && exists {
//	    err = client.DeleteNode(ctx, "devstack-rax-dfw-42")
//	}
//
// Retry Logic:
//
// Failed requests are retried with exponential backoff:
//   - Initial backoff: 100 milliseconds
//   - Maximum backoff: 30 seconds
//   - Maximum retries: 3
//   - Backoff factor: 2.0
//
// Retries are performed for transient errors (network failures, timeouts and
// node deletions Jenkins did not acknowledge). Other errors are returned
// immediately.
package jenkins
