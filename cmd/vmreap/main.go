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

// Command vmreap retires expired CI machines and stale snapshot images.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	fleetv1alpha1 "github.com/mikelane/vmreap/api/v1alpha1"
	"github.com/mikelane/vmreap/internal/cost"
	"github.com/mikelane/vmreap/internal/inventory"
	"github.com/mikelane/vmreap/internal/reaper"
	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

var scheme = runtime.NewScheme()

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(fleetv1alpha1.AddToScheme(scheme))
}

func main() {
	ctx := ctrl.SetupSignalHandler()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		common  commonOptions
		options reaper.Options
	)

	zapOpts := zap.Options{Development: true}
	goflags := flag.NewFlagSet("vmreap", flag.ExitOnError)
	zapOpts.BindFlags(goflags)

	cmd := &cobra.Command{
		Use:   "vmreap PROVIDER",
		Short: "Delete expired CI machines and stale snapshot images",
		Long: `vmreap deletes machines that have sat in a non-ready state longer than
their lifetime, snapshot images that are no longer current, and, when the
provider is over its server limit, enough used machines to make room for
the standing ready headroom of every base image.

The command exits non-zero if any deletion failed.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			ctrl.SetLogger(zap.New(zap.UseFlagOptions(&zapOpts)))
			cmd.SetContext(log.IntoContext(cmd.Context(), ctrl.Log.WithName("vmreap")))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), cmd.OutOrStdout(), args[0], common, options)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&common.lifetime, "lifetime", "", "Age past which machines and images are deleted (e.g. 24h, 2d); overrides VMREAP_MACHINE_LIFETIME")
	flags.BoolVar(&common.skipJenkins, "skip-jenkins", false, "Do not connect to Jenkins; nodes are not deregistered")
	flags.AddGoFlagSet(goflags)

	cmd.Flags().BoolVar(&options.AllServers, "all-servers", false, "Delete every known machine")
	cmd.Flags().BoolVar(&options.AllImages, "all-images", false, "Delete every known snapshot image, current ones included")

	cmd.AddCommand(newServeCommand(&common))
	return cmd
}

// runOnce reaps a single provider and prints the fleet before and after.
func runOnce(ctx context.Context, out io.Writer, provider string, common commonOptions, options reaper.Options) error {
	logger := log.FromContext(ctx)

	if options.AllServers {
		logger.Info("Reaping all known machines")
	}
	if options.AllImages {
		logger.Info("Reaping all known images")
	}

	a, err := newApp(ctx, common, options)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error(err, "Failed to release resources")
		}
	}()

	if err := printFleet(ctx, out, a.store, "Known machines (start):"); err != nil {
		return err
	}

	result, runErr := a.reaper.Run(ctx, provider)

	if result != nil {
		estimate := cost.NewEstimator(&a.cfg.Pricing).EstimateReclaimed(result.Flavor, len(result.MachinesDeleted))
		logger.Info("Reap summary",
			"machinesDeleted", len(result.MachinesDeleted),
			"imagesDeleted", len(result.ImagesDeleted),
			"failures", len(result.Failures),
			"reclaimedHourlyCost", estimate.HourlyCost,
			"reclaimedDailyCost", estimate.DailyCost,
			"currency", estimate.Currency)
	}

	if err := printFleet(ctx, out, a.store, "\nKnown machines (end):"); err != nil {
		logger.Error(err, "Failed to print fleet state")
	}

	if a.cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		defer cancel()
		if err := a.recorder.Push(pushCtx, a.cfg.PushgatewayURL, "vmreap"); err != nil {
			logger.Error(err, "Failed to push metrics", "url", a.cfg.PushgatewayURL)
		}
	}

	return runError(result, runErr)
}

func printFleet(ctx context.Context, out io.Writer, store inventory.Store, title string) error {
	providers, err := store.ListProviders(ctx)
	if err != nil {
		return fmt.Errorf("failed to list providers: %w", err)
	}
	if _, err := fmt.Fprintln(out, title); err != nil {
		return err
	}
	return inventory.PrintState(out, providers, time.Now())
}
