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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mikelane/vmreap/internal/reaper"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// maxBodyBytes bounds the size of a /reap request body.
const maxBodyBytes = 64 << 10

// Trigger runs the reaper on demand.
type Trigger interface {
	Manages(provider string) bool
	Trigger(ctx context.Context, provider string) (*reaper.Result, error)
}

// Server handles reap trigger requests
type Server struct {
	addr          string
	port          int
	trigger       Trigger
	webhookSecret string
	metrics       http.Handler
	server        *http.Server
	rateLimiter   *RateLimiter
}

// RateLimiter provides per-provider rate limiting
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*bucket
	limit    int
	window   time.Duration
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

// NewServer creates a new trigger server. A nil metrics handler leaves
// /metrics unregistered.
func NewServer(addr string, port int, trigger Trigger, webhookSecret string, metrics http.Handler) *Server {
	return &Server{
		addr:          addr,
		port:          port,
		trigger:       trigger,
		webhookSecret: webhookSecret,
		metrics:       metrics,
		rateLimiter:   NewRateLimiter(2, time.Minute), // 2 reaps per minute per provider
	}
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*bucket),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request for the given provider should be allowed
func (rl *RateLimiter) Allow(provider string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.limiters[provider]
	if !exists {
		b = &bucket{
			tokens:    rl.limit,
			lastReset: time.Now(),
		}
		rl.limiters[provider] = b
	}

	// Reset bucket if window has passed
	if time.Since(b.lastReset) >= rl.window {
		b.tokens = rl.limit
		b.lastReset = time.Now()
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}

	return false
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/reap", s.handleReap)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

// Start starts the trigger server and blocks until ctx is canceled
func (s *Server) Start(ctx context.Context) error {
	logger := log.FromContext(ctx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.addr, s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting trigger server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.FromContext(ctx).Info("Shutting down trigger server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReap validates a trigger request and runs the reaper for the
// requested provider
func (s *Server) handleReap(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	// Only accept POST requests
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		logger.Error(err, "Failed to read request body")
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.Body.Close() }()

	if !ValidateSignature(payload, r.Header.Get(SignatureHeader), s.webhookSecret) {
		logger.Info("Invalid trigger signature")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var req ReapRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		logger.Error(err, "Failed to parse JSON payload")
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Provider == "" {
		http.Error(w, "provider is required", http.StatusBadRequest)
		return
	}

	if !s.trigger.Manages(req.Provider) {
		logger.Info("Trigger for unmanaged provider", "provider", req.Provider)
		http.Error(w, "Unknown provider", http.StatusNotFound)
		return
	}

	if !s.rateLimiter.Allow(req.Provider) {
		logger.Info("Rate limit exceeded", "provider", req.Provider)
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	logger.Info("Reap triggered", "provider", req.Provider)
	result, err := s.trigger.Trigger(r.Context(), req.Provider)
	status := http.StatusOK
	if err != nil {
		logger.Error(err, "Triggered reap failed", "provider", req.Provider)
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := newReapResponse(req.Provider, result, err)
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		logger.Error(encErr, "Failed to write response")
	}
}
