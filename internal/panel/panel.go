// Package panel is the control panel application context. It owns the form model
// and wires the mode selector, the command publisher, notifications and the
// inbound display path together. Every event handler runs to completion under a
// single lock, so handlers never interleave; only the broker round trip of a
// built command happens outside it.
package panel

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumos/internal/command"
	"github.com/dokzlo13/lumos/internal/display"
	"github.com/dokzlo13/lumos/internal/ledger"
	"github.com/dokzlo13/lumos/internal/middleware"
	"github.com/dokzlo13/lumos/internal/mode"
	"github.com/dokzlo13/lumos/internal/notify"
	"github.com/dokzlo13/lumos/internal/ui"
)

var (
	// ErrModeInactive is returned when submitting a mode whose controls are disabled.
	ErrModeInactive = errors.New("mode is not active")
	// ErrUnknownElement is returned for input on an element that is not a numeric input.
	ErrUnknownElement = errors.New("unknown input element")
	// ErrDisabled is returned for input on a disabled element.
	ErrDisabled = errors.New("input is disabled")
)

const source = "panel"

// Recorder stores panel events for auditing.
type Recorder interface {
	Append(eventType ledger.EventType, source, topic string, payload any) error
}

// Options configures a Panel.
type Options struct {
	DefaultValue  int
	Limits        command.Limits
	NotifyTimeout time.Duration

	// Live publishes slider input of the active mode without an explicit submit.
	Live         bool
	LiveStrategy middleware.Strategy
	LiveWindow   time.Duration
}

// Panel is the control panel application context.
type Panel struct {
	// mu serializes event handlers. sendMu orders publishes: it is taken
	// before mu is released, so commands leave in the order they were built
	// while the form stays responsive during a slow broker.
	mu     sync.Mutex
	sendMu sync.Mutex

	form      *ui.Form
	selector  *mode.Selector
	publisher *command.Publisher
	notifier  *notify.Notifier
	updater   *display.Updater
	recorder  Recorder
	limits    command.Limits

	live middleware.Collector[mode.Mode]
}

// New creates a panel over a fresh form. The form starts idle with every input disabled.
func New(publisher *command.Publisher, opts Options) (*Panel, error) {
	if opts.Limits == (command.Limits{}) {
		opts.Limits = command.DefaultLimits
	}

	form := ui.NewForm(strconv.Itoa(opts.DefaultValue))

	p := &Panel{
		form:      form,
		selector:  mode.NewSelector(form, opts.DefaultValue),
		publisher: publisher,
		notifier:  notify.New(form, opts.NotifyTimeout),
		updater:   display.NewUpdater(form),
		limits:    opts.Limits,
	}

	if opts.Live {
		collector, err := middleware.New(opts.LiveStrategy, opts.LiveWindow, p.flushLive)
		if err != nil {
			return nil, fmt.Errorf("live publishing: %w", err)
		}
		p.live = collector
	}

	p.selector.Refresh()
	return p, nil
}

// WithRecorder records published commands and display updates.
func (p *Panel) WithRecorder(r Recorder) *Panel {
	p.recorder = r
	return p
}

// Form returns the form model backing the page.
func (p *Panel) Form() *ui.Form {
	return p.form
}

// State returns the current selector state.
func (p *Panel) State() mode.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selector.State()
}

// Topic returns the command topic.
func (p *Panel) Topic() string {
	return p.publisher.Topic()
}

// CheckChanged handles a change of the checkbox belonging to m.
func (p *Panel) CheckChanged(m mode.Mode, checked bool) mode.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selector.Toggle(m, checked)
}

// Input handles manual entry on a numeric input. The value is clamped to the
// configured range before it is stored; non-numeric entry is refused.
func (p *Panel) Input(id, raw string) (int, error) {
	owner, v, err := p.input(id, raw)
	if err != nil {
		return 0, err
	}

	// Outside the lock: an immediate collector flushes synchronously.
	if p.live != nil {
		p.live.AddEvent(owner)
	}

	return v, nil
}

func (p *Panel) input(id, raw string) (mode.Mode, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	owner, ok := inputOwner(id)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownElement, id)
	}
	if !p.form.Enabled(id) {
		return 0, 0, fmt.Errorf("%w: %s", ErrDisabled, id)
	}

	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q is not a number", command.ErrInvalidReading, raw)
	}
	v = p.limits.Clamp(v)
	p.form.SetValue(id, strconv.Itoa(v))

	return owner, v, nil
}

// Submit reads the active mode's inputs, builds the command and publishes it once.
// A failed publish leaves the form as it was.
func (p *Panel) Submit(ctx context.Context, m mode.Mode) (command.Payload, error) {
	p.mu.Lock()
	payload, err := p.prepare(m)
	if err != nil {
		p.mu.Unlock()
		return command.Payload{}, err
	}
	return payload, p.handOff(ctx, payload)
}

// prepare validates the mode's inputs and builds its payload. Callers hold mu.
func (p *Panel) prepare(m mode.Mode) (command.Payload, error) {
	group := mode.Controls(m)
	if active, ok := p.selector.Active(); !ok || active != m || !p.form.Enabled(group.Submit) {
		return command.Payload{}, fmt.Errorf("%w: %s", ErrModeInactive, m)
	}

	reading, err := command.ParseReading(p.form.Value(group.Brightness), p.form.Value(group.Temperature))
	if err == nil {
		reading, err = p.limits.Apply(reading)
	}
	if err != nil {
		p.reject(m.String(), err)
		return command.Payload{}, err
	}

	// Reflect clamping back to the page
	p.form.SetValue(group.Brightness, strconv.Itoa(reading.Brightness))
	p.form.SetValue(group.Temperature, strconv.Itoa(reading.Temperature))

	return command.BuildPayload(m, reading.Brightness, reading.Temperature), nil
}

// Send publishes a payload that arrived already built, bypassing the form.
// The mode must be valid and the reading is subject to the configured limits.
func (p *Panel) Send(ctx context.Context, payload command.Payload) (command.Payload, error) {
	p.mu.Lock()

	m, err := mode.ParseMode(payload.Mode)
	if err != nil {
		err = fmt.Errorf("%w: %v", command.ErrInvalidReading, err)
		p.reject(payload.Mode, err)
		p.mu.Unlock()
		return command.Payload{}, err
	}
	reading, err := p.limits.Apply(command.Reading{Brightness: payload.Brightness, Temperature: payload.Temperature})
	if err != nil {
		p.reject(payload.Mode, err)
		p.mu.Unlock()
		return command.Payload{}, err
	}

	payload = command.BuildPayload(m, reading.Brightness, reading.Temperature)
	return payload, p.handOff(ctx, payload)
}

// handOff is entered holding mu. It takes the send lock, releases mu and publishes.
func (p *Panel) handOff(ctx context.Context, payload command.Payload) error {
	p.sendMu.Lock()
	p.mu.Unlock()
	defer p.sendMu.Unlock()

	return p.publish(ctx, payload)
}

// reject reports a command refused before reaching the broker.
func (p *Panel) reject(modeName string, err error) {
	log.Warn().Err(err).Str("mode", modeName).Msg("Rejected command")
	p.record(ledger.EventCommandRejected, p.publisher.Topic(), map[string]any{"mode": modeName, "error": err.Error()})
	p.notifier.Error("Invalid value, nothing was sent")
}

// publish hands the payload to the publisher and reports the outcome on the page.
func (p *Panel) publish(ctx context.Context, payload command.Payload) error {
	if err := p.publisher.Publish(ctx, payload); err != nil {
		log.Error().Err(err).Str("mode", payload.Mode).Msg("Failed to publish command")
		p.record(ledger.EventCommandFailed, p.publisher.Topic(), payload)
		p.notifier.Error("Failed to send settings")
		return err
	}

	p.record(ledger.EventCommandPublished, p.publisher.Topic(), payload)
	p.notifier.Info("Settings sent")
	return nil
}

// HandleDisplay applies a color report from the fixture to the page background.
// Malformed messages are dropped.
func (p *Panel) HandleDisplay(topic string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.updater.Handle(body)
	if err != nil {
		return err
	}
	p.record(ledger.EventDisplayApplied, topic, c.RGB8())
	return nil
}

// Close stops pending timers.
func (p *Panel) Close() {
	if p.live != nil {
		p.live.Close()
	}
	p.notifier.Close()
}

// flushLive publishes the latest slider burst if its mode is still active.
func (p *Panel) flushLive(modes []mode.Mode) {
	m := modes[len(modes)-1]

	p.mu.Lock()
	if active, ok := p.selector.Active(); !ok || active != m {
		p.mu.Unlock()
		log.Debug().Str("mode", m.String()).Msg("Dropping live update for inactive mode")
		return
	}
	payload, err := p.prepare(m)
	if err != nil {
		p.mu.Unlock()
		log.Debug().Err(err).Msg("Live update not sent")
		return
	}
	if err := p.handOff(context.Background(), payload); err != nil {
		log.Debug().Err(err).Msg("Live update not sent")
	}
}

func (p *Panel) record(eventType ledger.EventType, topic string, payload any) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Append(eventType, source, topic, payload); err != nil {
		log.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to record event")
	}
}

// inputOwner returns the mode a numeric input belongs to.
func inputOwner(id string) (mode.Mode, bool) {
	for _, m := range []mode.Mode{mode.Manual, mode.Automatic} {
		g := mode.Controls(m)
		if id == g.Brightness || id == g.Temperature {
			return m, true
		}
	}
	return 0, false
}
