package mode

import (
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumos/internal/ui"
)

// DefaultValue is the value disabled inputs are reset to.
const DefaultValue = 50

// Group is the set of controls that belong to one mode.
type Group struct {
	Check       string
	Brightness  string
	Temperature string
	Submit      string
}

// Inputs returns the controls enabled together with the mode.
func (g Group) Inputs() []string {
	return []string{g.Brightness, g.Temperature, g.Submit}
}

// Controls returns the control group of a mode.
func Controls(m Mode) Group {
	if m == Automatic {
		return Group{
			Check:       ui.AutoCheck,
			Brightness:  ui.AutoLumos,
			Temperature: ui.AutoTemp,
			Submit:      ui.AutoButton,
		}
	}
	return Group{
		Check:       ui.ManualCheck,
		Brightness:  ui.ManualLumos,
		Temperature: ui.ManualTemp,
		Submit:      ui.ManualButton,
	}
}

// Selector keeps the two mode checkboxes mutually exclusive and the input groups
// enabled or disabled accordingly. It is not safe for concurrent use; callers
// serialize events.
type Selector struct {
	controls     ui.Controls
	defaultValue string
}

// NewSelector creates a selector over the given controls.
// Disabled inputs are reset to defaultValue.
func NewSelector(controls ui.Controls, defaultValue int) *Selector {
	return &Selector{
		controls:     controls,
		defaultValue: strconv.Itoa(defaultValue),
	}
}

// State derives the selector state from the checkboxes.
// If both are somehow checked, manual wins; Refresh repairs that.
func (s *Selector) State() State {
	switch {
	case s.controls.Checked(ui.ManualCheck):
		return StateManual
	case s.controls.Checked(ui.AutoCheck):
		return StateAutomatic
	default:
		return StateIdle
	}
}

// Active returns the active mode, if any.
func (s *Selector) Active() (Mode, bool) {
	return s.State().Mode()
}

// Toggle handles a checkbox change event.
func (s *Selector) Toggle(m Mode, checked bool) State {
	if checked {
		s.SetMode(m)
	} else {
		s.ClearMode(m)
	}
	return s.State()
}

// SetMode makes m the active mode and clears the other one.
func (s *Selector) SetMode(m Mode) {
	s.controls.SetChecked(Controls(m).Check, true)
	s.controls.SetChecked(Controls(m.Other()).Check, false)
	s.Refresh()

	log.Debug().Str("mode", m.String()).Msg("Mode selected")
}

// ClearMode unchecks m without selecting the other mode.
func (s *Selector) ClearMode(m Mode) {
	s.controls.SetChecked(Controls(m).Check, false)
	s.Refresh()

	log.Debug().Str("mode", m.String()).Msg("Mode cleared")
}

// Refresh recomputes the enabled state of every group from both checkboxes.
// It runs after every change so the case where both are cleared is covered too.
func (s *Selector) Refresh() {
	state := s.State()
	active, hasActive := state.Mode()

	// Repair a double check left by an external writer.
	if hasActive {
		s.controls.SetChecked(Controls(active.Other()).Check, false)
	}

	for _, m := range []Mode{Manual, Automatic} {
		s.apply(Controls(m), hasActive && active == m)
	}
}

func (s *Selector) apply(g Group, enabled bool) {
	for _, id := range g.Inputs() {
		s.controls.SetEnabled(id, enabled)
	}
	if !enabled {
		s.controls.SetValue(g.Brightness, s.defaultValue)
		s.controls.SetValue(g.Temperature, s.defaultValue)
	}
}
