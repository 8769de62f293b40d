package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumos/internal/config"
	"github.com/dokzlo13/lumos/internal/db"
	"github.com/dokzlo13/lumos/internal/eventbus"
	"github.com/dokzlo13/lumos/internal/ledger"
	"github.com/dokzlo13/lumos/internal/state"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger
	Store  *state.Store
	Bus    *eventbus.Bus

	// High-level services
	Broker *BrokerService
	Panel  *PanelService // nil when disabled
	Lamp   *LampService  // nil when disabled
	Health *HealthService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	s.Ledger = ledger.New(database.DB)
	s.Store = state.NewStore(database.DB)
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())
	s.Broker = NewBrokerService(cfg, s.Bus)

	if cfg.Panel.Enabled {
		s.Panel, err = NewPanelService(cfg, s.Broker.Client, s.Ledger)
		if err != nil {
			s.Close()
			return nil, err
		}
	}

	if cfg.Lamp.Enabled {
		s.Lamp, err = NewLampService(cfg, s.Broker.Client, s.Store, s.Ledger)
		if err != nil {
			s.Close()
			return nil, err
		}
	}

	s.Health = NewHealthService(cfg, s.Broker.Ready)

	return s, nil
}

// Wire subscribes the panel and lamp to the bus and registers the broker
// routes feeding it. Routes are sent to the broker once it connects.
func (s *Services) Wire(ctx context.Context) error {
	if s.Panel != nil {
		s.Panel.Subscribe(s.Bus)
		if err := s.Broker.Route(s.cfg.Topics.Display, eventbus.EventTypeDisplay); err != nil {
			return err
		}
	}

	if s.Lamp != nil {
		s.Lamp.Subscribe(ctx, s.Bus)
		if err := s.Broker.Route(s.cfg.Topics.Command, eventbus.EventTypeCommand); err != nil {
			return err
		}
		if s.cfg.Topics.Room != "" {
			if err := s.Broker.Route(s.cfg.Topics.Room, eventbus.EventTypeRoom); err != nil {
				return err
			}
		}
	}

	return nil
}

// StartBackground starts the lamp loop, the panel server, health and ledger cleanup.
// The onFatalError callback is called when a service cannot keep running.
func (s *Services) StartBackground(ctx context.Context, onFatalError func(error)) error {
	if s.Lamp != nil {
		if err := s.Lamp.Start(ctx); err != nil {
			return err
		}
	}
	if s.Panel != nil {
		s.Panel.Start(ctx, onFatalError)
	}
	s.Health.Start(ctx)

	go s.runLedgerCleanup(ctx)

	return nil
}

// runLedgerCleanup periodically cleans up old ledger entries.
func (s *Services) runLedgerCleanup(ctx context.Context) {
	retention := s.cfg.Ledger.Retention()
	interval := s.cfg.Ledger.CleanupInterval.Duration()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.Ledger.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
			} else if deleted > 0 {
				log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old ledger entries")
			}
		}
	}
}

// ClearState clears all persisted lamp state.
func (s *Services) ClearState() error {
	return s.Store.Clear("")
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
	defer cancel()

	// Disconnect first so no new messages reach the bus
	if s.Broker != nil {
		s.Broker.Close()
	}
	if s.Bus != nil {
		s.Bus.Close(ctx)
	}

	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Panel != nil {
		s.Panel.Close()
	}
	if s.Lamp != nil {
		s.Lamp.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
