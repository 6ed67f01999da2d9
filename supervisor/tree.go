// Package supervisor runs the long-lived parts of the server (HTTP listener,
// stats refresher) under a suture supervisor that restarts them on failure.
package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"venues-server/logging"
)

type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	FailureThreshold float64
	// FailureDecay is the rate, in seconds, at which failures decay.
	FailureDecay float64
	// FailureBackoff is the wait once the threshold is exceeded.
	FailureBackoff time.Duration
	// ShutdownTimeout bounds how long a service may take to stop.
	ShutdownTimeout time.Duration
}

func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

type Tree struct {
	root   *suture.Supervisor
	logger zerolog.Logger
}

func NewTree(cfg TreeConfig) *Tree {
	defaults := DefaultTreeConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = defaults.FailureDecay
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = defaults.FailureBackoff
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}

	logger := logging.Component("supervisor")
	root := suture.New("venues-server", suture.Spec{
		EventHook:        eventHook(logger),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	})
	return &Tree{root: root, logger: logger}
}

// Add registers a service. It starts with Serve, or immediately if the tree
// is already running.
func (t *Tree) Add(svc suture.Service) suture.ServiceToken {
	return t.root.Add(svc)
}

// Serve blocks until ctx is done and every service has stopped. A
// cancelled context is a clean shutdown.
func (t *Tree) Serve(ctx context.Context) error {
	err := t.root.Serve(ctx)
	if ctx.Err() != nil || errors.Is(err, suture.ErrTerminateSupervisorTree) {
		return nil
	}
	return err
}

func eventHook(logger zerolog.Logger) suture.EventHook {
	return func(e suture.Event) {
		event := logger.Warn()
		if e.Type() == suture.EventTypeServicePanic {
			event = logger.Error()
		}
		event.Fields(e.Map()).Msg(e.String())
	}
}
