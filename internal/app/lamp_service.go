package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumos/internal/color"
	"github.com/dokzlo13/lumos/internal/command"
	"github.com/dokzlo13/lumos/internal/config"
	"github.com/dokzlo13/lumos/internal/eventbus"
	"github.com/dokzlo13/lumos/internal/lamp"
	"github.com/dokzlo13/lumos/internal/ledger"
	"github.com/dokzlo13/lumos/internal/state"
)

// LampService runs the fixture daemon.
type LampService struct {
	cfg    *config.Config
	Lamp   *lamp.Service
	Room   *lamp.TopicRoom
	script *lamp.ScriptPolicy
}

// NewLampService creates the lamp, loading its script policy when configured.
func NewLampService(cfg *config.Config, b command.Broker, store *state.Store, l *ledger.Ledger) (*LampService, error) {
	s := &LampService{cfg: cfg}

	initial := color.FromRGB8(color.RGB8{R: cfg.Lamp.RoomColor.R, G: cfg.Lamp.RoomColor.G, B: cfg.Lamp.RoomColor.B})
	var room lamp.RoomSensor = lamp.StaticRoom(initial)
	if cfg.Topics.Room != "" {
		s.Room = lamp.NewTopicRoom(initial)
		room = s.Room
	}

	builtin := lamp.BuiltinPolicy{Scale: cfg.Lamp.InputScale}
	var policy lamp.Policy = builtin
	if cfg.Lamp.Script != "" {
		script, err := lamp.NewScriptPolicy(cfg.Lamp.Script, builtin)
		if err != nil {
			return nil, err
		}
		s.script = script
		policy = script
	}

	s.Lamp = lamp.NewService(b, room, policy, lamp.Options{
		Name:         cfg.Lamp.Name,
		DisplayTopic: cfg.Topics.Display,
		Interval:     cfg.Lamp.Interval.Duration(),
	})
	if store != nil {
		s.Lamp.WithStore(store)
	}
	if l != nil {
		s.Lamp.WithRecorder(l)
	}

	return s, nil
}

// Subscribe handles commands and room readings from the bus.
func (s *LampService) Subscribe(ctx context.Context, bus *eventbus.Bus) {
	bus.Subscribe(eventbus.EventTypeCommand, func(event eventbus.Event) {
		if err := s.Lamp.HandleCommand(ctx, event.Payload); err != nil {
			log.Warn().Err(err).Str("topic", event.Topic).Msg("Failed to handle command")
		}
	})

	if s.Room == nil {
		return
	}
	bus.Subscribe(eventbus.EventTypeRoom, func(event eventbus.Event) {
		c, err := s.Room.Handle(event.Payload)
		if err != nil {
			log.Warn().Err(err).Str("topic", event.Topic).Msg("Ignoring room reading")
			return
		}
		log.Debug().Str("room", c.Hex()).Msg("Room color updated")
	})
}

// Start restores the last settings and runs the update loop.
func (s *LampService) Start(ctx context.Context) error {
	if err := s.Lamp.Restore(); err != nil {
		return err
	}
	go s.Lamp.Run(ctx)
	log.Info().Str("lamp", s.Lamp.Name()).Msg("Lamp started")
	return nil
}

// Close releases the script runtime.
func (s *LampService) Close() {
	if s.script != nil {
		s.script.Close()
	}
}
