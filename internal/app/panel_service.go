package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumos/internal/command"
	"github.com/dokzlo13/lumos/internal/config"
	"github.com/dokzlo13/lumos/internal/eventbus"
	"github.com/dokzlo13/lumos/internal/ledger"
	"github.com/dokzlo13/lumos/internal/middleware"
	"github.com/dokzlo13/lumos/internal/panel"
	"github.com/dokzlo13/lumos/internal/web"
)

// PanelService runs the control panel and its web server.
type PanelService struct {
	cfg    *config.Config
	Panel  *panel.Panel
	Server *web.Server
}

// NewPanelService creates the panel publishing commands through b.
func NewPanelService(cfg *config.Config, b command.Broker, l *ledger.Ledger) (*PanelService, error) {
	publisher := command.NewPublisher(b, cfg.Topics.Command).WithRateLimit(cfg.Panel.RateLimitRPS)

	p, err := panel.New(publisher, panel.Options{
		DefaultValue: cfg.Panel.DefaultValue,
		Limits: command.Limits{
			Min:    cfg.Panel.Min,
			Max:    cfg.Panel.Max,
			Policy: command.Policy(cfg.Panel.Policy),
		},
		NotifyTimeout: cfg.Panel.NotifyTimeout.Duration(),
		Live:          cfg.Panel.Live,
		LiveStrategy:  middleware.Strategy(cfg.Panel.LiveStrategy),
		LiveWindow:    cfg.Panel.LiveWindow.Duration(),
	})
	if err != nil {
		return nil, err
	}

	server := web.NewServer(cfg.Panel.Host, cfg.Panel.Port, p)
	if l != nil {
		p.WithRecorder(l)
		server.WithHistory(l)
	}

	return &PanelService{
		cfg:    cfg,
		Panel:  p,
		Server: server,
	}, nil
}

// Subscribe applies display reports from the bus to the page.
func (s *PanelService) Subscribe(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.EventTypeDisplay, func(event eventbus.Event) {
		if err := s.Panel.HandleDisplay(event.Topic, event.Payload); err != nil {
			log.Warn().Err(err).Str("topic", event.Topic).Msg("Ignoring display message")
		}
	})
}

// Start runs the web server in the background.
func (s *PanelService) Start(ctx context.Context, onFatalError func(error)) {
	go func() {
		if err := s.Server.Run(ctx, s.cfg.ShutdownTimeout.Duration()); err != nil {
			onFatalError(err)
		}
	}()
}

// Close stops pending panel timers.
func (s *PanelService) Close() {
	s.Panel.Close()
}
