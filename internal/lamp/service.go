package lamp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumos/internal/color"
	"github.com/dokzlo13/lumos/internal/command"
	"github.com/dokzlo13/lumos/internal/display"
	"github.com/dokzlo13/lumos/internal/ledger"
	"github.com/dokzlo13/lumos/internal/state"
)

const (
	source       = "lamp"
	settingsKind = "lamp_settings"
)

// Recorder stores lamp events for auditing.
type Recorder interface {
	Append(eventType ledger.EventType, source, topic string, payload any) error
}

// Options configures a lamp.
type Options struct {
	Name         string
	DisplayTopic string
	Interval     time.Duration
}

// Service is a single lamp. Until the first command arrives it stays dark and
// publishes nothing.
type Service struct {
	opts   Options
	broker command.Broker
	room   RoomSensor
	policy Policy

	store    *state.TypedStore[Settings]
	recorder Recorder

	mu       sync.Mutex
	settings *Settings
	shown    *color.RGB8
}

// NewService creates a lamp reporting on the display topic through broker.
func NewService(broker command.Broker, room RoomSensor, policy Policy, opts Options) *Service {
	if opts.Name == "" {
		opts.Name = "lamp"
	}
	if opts.DisplayTopic == "" {
		opts.DisplayTopic = display.DefaultTopic
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if policy == nil {
		policy = BuiltinPolicy{Scale: DefaultInputScale}
	}
	return &Service{
		opts:   opts,
		broker: broker,
		room:   room,
		policy: policy,
	}
}

// WithStore persists settings so they survive a restart.
func (s *Service) WithStore(store *state.Store) *Service {
	s.store = state.NewTypedStore[Settings](store, settingsKind)
	return s
}

// WithRecorder records every color change.
func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

// Name returns the lamp name.
func (s *Service) Name() string {
	return s.opts.Name
}

// Restore loads the persisted settings, if any.
func (s *Service) Restore() error {
	if s.store == nil {
		return nil
	}
	settings, found, err := s.store.Get(s.opts.Name)
	if err != nil {
		return fmt.Errorf("failed to restore lamp settings: %w", err)
	}
	if !found {
		return nil
	}

	s.mu.Lock()
	s.settings = &settings
	s.mu.Unlock()

	log.Info().Str("lamp", s.opts.Name).Str("mode", settings.Mode).Msg("Restored lamp settings")
	return nil
}

// Settings returns the current settings. ok is false before the first command.
func (s *Service) Settings() (Settings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return Settings{}, false
	}
	return *s.settings, true
}

// HandleCommand applies a command body received on the command topic.
func (s *Service) HandleCommand(ctx context.Context, body []byte) error {
	payload, err := command.Decode(body)
	if err != nil {
		return err
	}
	settings := SettingsFrom(payload)

	s.mu.Lock()
	s.settings = &settings
	s.mu.Unlock()

	log.Info().
		Str("lamp", s.opts.Name).
		Str("mode", settings.Mode).
		Float64("brightness", settings.Brightness).
		Float64("temperature", settings.Temperature).
		Msg("Lamp settings changed")

	if s.store != nil {
		if err := s.store.Set(s.opts.Name, settings); err != nil {
			log.Warn().Err(err).Msg("Failed to persist lamp settings")
		}
	}

	_, err = s.Update(ctx)
	return err
}

// Update recomputes the lamp color and publishes it when it changed.
// It reports whether a message was published.
func (s *Service) Update(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings == nil {
		return false, nil
	}

	room := s.room.Color()
	c, err := s.policy.Decide(*s.settings, room)
	if err != nil {
		return false, fmt.Errorf("failed to decide lamp color: %w", err)
	}

	rgb := c.RGB8()
	if s.shown != nil && *s.shown == rgb {
		return false, nil
	}

	body, err := display.Encode(c)
	if err != nil {
		return false, err
	}
	if err := s.broker.Publish(ctx, s.opts.DisplayTopic, body); err != nil {
		return false, fmt.Errorf("failed to publish lamp color: %w", err)
	}
	s.shown = &rgb

	log.Info().Str("lamp", s.opts.Name).Str("color", c.Hex()).Str("room", room.Hex()).Msg("Lamp color set")

	if s.recorder != nil {
		if err := s.recorder.Append(ledger.EventLampColor, source, s.opts.DisplayTopic, rgb); err != nil {
			log.Warn().Err(err).Msg("Failed to record lamp color")
		}
	}
	return true, nil
}

// Run recomputes the color on every tick until ctx is done, following room changes.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Update(ctx); err != nil {
				log.Error().Err(err).Str("lamp", s.opts.Name).Msg("Lamp update failed")
			}
		}
	}
}
