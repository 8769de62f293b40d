package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumos/internal/config"
)

// App is the main application container that manages all services and their lifecycle.
type App struct {
	cfg      *config.Config
	services *Services
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a new App instance with all services initialized but not started.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		services: services,
	}, nil
}

// Start brings lumos up in order: bus handlers and broker routes first, so no
// message arriving right after connect is lost, then the broker connection,
// then the lamp loop and the servers. A lamp must not publish and a panel
// must not accept commands before the broker is reachable.
func (a *App) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	// Fatal error handler - cancels the app context to trigger shutdown
	onFatalError := func(err error) {
		log.Error().Err(err).Msg("Fatal error, initiating shutdown")
		a.cancel()
	}

	if err := a.services.Wire(a.ctx); err != nil {
		return err
	}

	broker := a.services.Broker
	if err := broker.Start(a.ctx); err != nil {
		return err
	}
	log.Info().Str("broker", broker.Client.URL()).Str("client_id", broker.Client.ID()).Msg("Broker connected")

	if err := a.services.StartBackground(a.ctx, onFatalError); err != nil {
		return err
	}

	event := log.Info().Str("command_topic", a.cfg.Topics.Command).Str("display_topic", a.cfg.Topics.Display)
	if a.services.Panel != nil {
		event = event.Str("panel", fmt.Sprintf("%s:%d", a.cfg.Panel.Host, a.cfg.Panel.Port))
	}
	if a.services.Lamp != nil {
		event = event.Str("lamp", a.services.Lamp.Lamp.Name())
	}
	event.Msg("Lumos started")
	return nil
}

// Stop gracefully shuts down all services.
func (a *App) Stop() error {
	log.Info().Msg("Shutting down...")

	if a.cancel != nil {
		a.cancel()
	}

	if a.services != nil {
		return a.services.Stop()
	}

	return nil
}

// Wait blocks until a shutdown signal arrives or a service fails.
func (a *App) Wait() {
	if a.ctx != nil {
		<-a.ctx.Done()
	}
}

// ClearState clears the persisted lamp settings.
// This is useful for resetting state on startup with --reset-state flag.
func (a *App) ClearState() error {
	if a.services != nil {
		return a.services.ClearState()
	}
	return nil
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
