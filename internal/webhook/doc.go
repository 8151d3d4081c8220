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

// Package webhook provides the HTTP trigger server used in serve mode.
//
// Besides the cron schedule, operators and CI jobs can ask for an immediate
// reap of a provider by posting to /reap. The server also exposes the
// reaper's Prometheus metrics and a health check.
//
// Key features:
//   - Validates request signatures using HMAC-SHA256
//   - Runs the reaper synchronously and returns the run summary as JSON
//   - Provides per-provider rate limiting
//   - Health check and metrics endpoints
//
// Request Security:
//
// All /reap requests must include a valid X-Vmreap-Signature-256 header
// containing an HMAC-SHA256 signature computed with the shared secret.
// Requests with invalid or missing signatures are rejected with HTTP 401.
//
// Triggering a run:
//
//	body='{"provider":"rax-dfw"}'
//	sig="sha256=$(echo -n "$body" | openssl dgst -sha256 -hmac "$SECRET" | cut -d' ' -f2)"
//	curl -X POST -H "X-Vmreap-Signature-256: $sig" -d "$body" http://vmreap:8080/reap
//
// Unknown providers receive HTTP 404. A run that could not complete
// receives HTTP 500 with the error in the response body.
//
// Rate Limiting:
//
// Requests are rate-limited per provider using a token bucket algorithm.
// The default limit is 2 requests per minute per provider. Requests
// exceeding the limit receive HTTP 429 Too Many Requests.
//
// Example usage:
//
//	server := webhook.NewServer("", 8080, scheduler, "webhook-secret", recorder.Handler())
//	if err := server.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package webhook
