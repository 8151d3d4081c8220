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

package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/mikelane/vmreap/internal/cleanup"
	"github.com/mikelane/vmreap/internal/reaper"
	"github.com/mikelane/vmreap/internal/webhook"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

type serveOptions struct {
	schedule string
	listen   string
}

func newServeCommand(common *commonOptions) *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve PROVIDER...",
		Short: "Reap providers on a schedule and on demand over HTTP",
		Long: `serve reaps every named provider whenever the cron schedule fires and
accepts signed POST /reap requests for immediate runs. Metrics are served
on /metrics.

The request signing secret is read from VMREAP_WEBHOOK_SECRET.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args, *common, opts)
		},
	}

	cmd.Flags().StringVar(&opts.schedule, "schedule", "@every 15m", "Cron schedule for reap passes")
	cmd.Flags().StringVar(&opts.listen, "listen", ":8080", "Address of the trigger and metrics server")
	return cmd
}

func runServe(cmd *cobra.Command, providers []string, common commonOptions, opts serveOptions) error {
	ctx := cmd.Context()
	logger := log.FromContext(ctx)

	host, portStr, err := net.SplitHostPort(opts.listen)
	if err != nil {
		return fmt.Errorf("--listen: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("--listen: invalid port %q", portStr)
	}

	a, err := newApp(ctx, common, reaper.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error(err, "Failed to release resources")
		}
	}()

	scheduler, err := cleanup.NewScheduler(a.reaper, opts.schedule, providers)
	if err != nil {
		return err
	}

	secret := a.cfg.WebhookSecret
	if secret == "" {
		logger.Info("VMREAP_WEBHOOK_SECRET is not set, all /reap requests will be rejected")
	}
	server := webhook.NewServer(host, port, scheduler, secret, a.recorder.Handler())

	logger.Info("Serving", "providers", providers, "schedule", opts.schedule, "listen", opts.listen)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Start(gctx)
	})
	g.Go(func() error {
		return server.Start(gctx)
	})
	return g.Wait()
}
