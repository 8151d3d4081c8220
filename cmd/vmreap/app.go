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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikelane/vmreap/internal/compute"
	"github.com/mikelane/vmreap/internal/config"
	"github.com/mikelane/vmreap/internal/events"
	"github.com/mikelane/vmreap/internal/fleet"
	"github.com/mikelane/vmreap/internal/inventory"
	"github.com/mikelane/vmreap/internal/jenkins"
	"github.com/mikelane/vmreap/internal/metrics"
	"github.com/mikelane/vmreap/internal/reaper"
	"go.uber.org/multierr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// commonOptions are the flags shared by every command.
type commonOptions struct {
	lifetime    string
	skipJenkins bool
}

// app holds the collaborators of one process.
type app struct {
	cfg       config.Config
	store     inventory.Store
	recorder  *metrics.Recorder
	publisher events.Publisher
	reaper    *reaper.Reaper

	closers []func() error
}

func (a *app) Close() error {
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, a.closers[i]())
	}
	return errs
}

// newApp wires configuration, inventory, cloud, Jenkins, metrics and event
// publishing into a reaper.
func newApp(ctx context.Context, common commonOptions, opts reaper.Options) (*app, error) {
	logger := log.FromContext(ctx)

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if common.lifetime != "" {
		if cfg.Lifetime, err = config.ParseDuration(common.lifetime, cfg.Lifetime); err != nil {
			return nil, fmt.Errorf("--lifetime: %w", err)
		}
	}
	if common.skipJenkins {
		cfg.SkipJenkins = true
	}
	opts.Lifetime = cfg.Lifetime

	secure, err := config.LoadSecure(cfg.SecureConfigPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, recorder: metrics.NewRecorder(), publisher: events.Nop{}}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	if a.store, err = a.openStore(); err != nil {
		return nil, err
	}

	var ci jenkins.Client
	if cfg.SkipJenkins {
		logger.Info("Skipping Jenkins, nodes will not be deregistered")
	} else {
		if secure.Jenkins == nil {
			return nil, fmt.Errorf("secure config %s has no [jenkins] section; set SKIP_DEVSTACK_GATE_JENKINS to run without it", cfg.SecureConfigPath)
		}
		if ci, err = jenkins.NewClient(ctx, secure.Jenkins.Server, secure.Jenkins.User, secure.Jenkins.APIKey); err != nil {
			return nil, err
		}
	}

	if cfg.NATSURL != "" {
		publisher, err := events.NewNATSPublisher(ctx, cfg.NATSURL)
		if err != nil {
			return nil, err
		}
		a.publisher = publisher
		a.closers = append(a.closers, func() error {
			publisher.Close()
			return nil
		})
	}

	a.reaper = &reaper.Reaper{
		Store:      a.store,
		NewCompute: novaFactory(secure),
		Jenkins:    ci,
		Options:    opts,
		Metrics:    a.recorder,
		Events:     a.publisher,
	}

	ok = true
	return a, nil
}

func (a *app) openStore() (inventory.Store, error) {
	switch a.cfg.Inventory {
	case config.InventoryBadger:
		store, err := inventory.NewBadgerStore(a.cfg.BadgerPath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		restConfig, err := ctrl.GetConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
		}
		c, err := client.New(restConfig, client.Options{Scheme: scheme})
		if err != nil {
			return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
		}
		return inventory.NewKubeStore(c, a.cfg.Namespace), nil
	}
}

// novaFactory builds compute clients from the provider's inventory record
// and its secure config section.
func novaFactory(secure *config.SecureConfig) reaper.ComputeFactory {
	return func(_ context.Context, p *fleet.Provider) (compute.Client, error) {
		creds, ok := secure.Provider(p.Name)
		if !ok {
			return nil, fmt.Errorf("no [provider:%s] section in secure config", p.Name)
		}
		c, err := compute.NewNovaClient(novaCredentials(p, creds))
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// novaCredentials prefers values from the secure config over the
// inventory record.
func novaCredentials(p *fleet.Provider, creds config.ProviderCredentials) compute.Credentials {
	out := compute.Credentials{
		AuthURL:  p.AuthURL,
		Username: p.Username,
		Password: creds.Password,
		Project:  p.ProjectID,
		Region:   p.Region,
	}
	if creds.AuthURL != "" {
		out.AuthURL = creds.AuthURL
	}
	if creds.Username != "" {
		out.Username = creds.Username
	}
	if creds.ProjectID != "" {
		out.Project = creds.ProjectID
	}
	if creds.Region != "" {
		out.Region = creds.Region
	}
	return out
}

var errDeletionsFailed = errors.New("one or more deletions failed")

// runError turns the outcome of a run into the command's error.
func runError(result *reaper.Result, err error) error {
	if err != nil {
		return err
	}
	if result.HadErrors() {
		return fmt.Errorf("%w: %w", errDeletionsFailed, result.Err())
	}
	return nil
}

// pushTimeout bounds the Pushgateway request at the end of a one-shot run.
const pushTimeout = 10 * time.Second
