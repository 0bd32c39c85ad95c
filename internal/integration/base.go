// Package integration holds the contract shared by every platform client:
// a configuration handle, a logger scoped to the concrete client, call
// metrics, and a health check that reports instead of failing.
package integration

import (
	"context"
	"errors"
	"time"

	"github.com/systmms/devops/internal/config"
	opserrors "github.com/systmms/devops/internal/errors"
	"github.com/systmms/devops/internal/logging"
	"github.com/systmms/devops/internal/telemetry"
)

// HealthChecker is implemented by every integration client.
type HealthChecker interface {
	// HealthCheck reports whether the integration is reachable and
	// authenticated.
	HealthCheck(ctx context.Context) bool
}

// Options are the settings every client constructor accepts.
type Options struct {
	// Config is used for setting resolution. When nil the default config
	// file is loaded.
	Config   *config.Config
	Logger   *logging.Logger
	Recorder *telemetry.Recorder
}

// Base is embedded by the per-integration base clients.
type Base struct {
	integration opserrors.Integration
	name        string
	cfg         *config.Config
	logger      *logging.Logger
	recorder    *telemetry.Recorder
}

// NewBase builds the shared client state for the client called name.
func NewBase(integration opserrors.Integration, name string, o Options) (*Base, error) {
	cfg := o.Config
	if cfg == nil {
		loaded, err := config.Load("")
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	logger := o.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Base{
		integration: integration,
		name:        name,
		cfg:         cfg,
		logger:      logger.Named(name),
		recorder:    o.Recorder,
	}, nil
}

// Config returns the configuration the client resolves settings from.
func (b *Base) Config() *config.Config {
	return b.cfg
}

// Logger returns the logger scoped to the client name.
func (b *Base) Logger() *logging.Logger {
	return b.logger
}

// Name returns the concrete client name.
func (b *Base) Name() string {
	return b.name
}

// Integration returns the platform this client talks to.
func (b *Base) Integration() opserrors.Integration {
	return b.integration
}

// Observe records the outcome of operation op started at start. It is meant
// to be deferred with a pointer to the named error result:
//
//	defer c.Observe("ListPods", time.Now(), &err)
func (b *Base) Observe(op string, start time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	elapsed := time.Since(start)
	b.recorder.Observe(string(b.integration), op, elapsed, err)

	if err != nil {
		b.logger.Debug("%s failed after %s: %v", op, elapsed, err)
		return
	}
	b.logger.Debug("%s completed in %s", op, elapsed)
}

// Probe runs probe and converts its outcome into a health result. Errors
// from the taxonomy are logged as warnings; anything else is unexpected and
// logged as an error. Either way the result is false.
func (b *Base) Probe(ctx context.Context, probe func(context.Context) error) bool {
	err := probe(ctx)
	if err == nil {
		return true
	}
	if errors.Is(err, opserrors.ErrDevOps) {
		b.logger.Warn("%s health check failed: %v", b.integration, err)
	} else {
		b.logger.Error("%s health check failed with unexpected error: %v", b.integration, err)
	}
	return false
}
