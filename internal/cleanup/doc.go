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

// Package cleanup runs the reaper periodically in serve mode.
//
// This package implements a background scheduler that reaps every
// configured provider whenever its cron schedule fires, and exposes
// Trigger so the webhook server can request an immediate run.
//
// Key features:
//   - Cron schedules, including descriptors such as "@every 15m"
//   - At most one reap in flight per process
//   - Graceful shutdown via context cancellation
//   - Stops with an error when a provider cannot be brought back under
//     its server limit
//
// Example usage:
//
//	scheduler, err := cleanup.NewScheduler(r, "@every 15m", []string{"rax-dfw", "hpcloud"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := scheduler.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package cleanup
