package ui

import (
	"sync"

	"github.com/dokzlo13/lumos/internal/color"
)

// element is the state of a single form element.
type element struct {
	Checked bool   `json:"checked"`
	Enabled bool   `json:"enabled"`
	Value   string `json:"value"`
}

// NotificationState is the current content of the notification element.
type NotificationState struct {
	Text    string           `json:"text"`
	Kind    NotificationKind `json:"kind"`
	Visible bool             `json:"visible"`
}

// Snapshot is a point-in-time copy of the whole form, served to the browser.
type Snapshot struct {
	Elements     map[string]element `json:"elements"`
	Background   string             `json:"background"`
	Notification NotificationState  `json:"notification"`
	Version      uint64             `json:"version"`
}

// Form is an in-memory form model implementing Controls, Display and Notifications.
// Unknown identifiers read as zero values; writes to them are ignored.
type Form struct {
	mu           sync.RWMutex
	elements     map[string]*element
	background   color.Color
	notification NotificationState
	version      uint64
}

// NewForm creates a form with every known element present, unchecked and disabled.
// Numeric inputs start at defaultValue.
func NewForm(defaultValue string) *Form {
	f := &Form{
		elements:   make(map[string]*element, len(Elements)),
		background: color.White,
	}
	for _, id := range Elements {
		f.elements[id] = &element{}
	}
	for _, id := range []string{ManualLumos, ManualTemp, AutoLumos, AutoTemp} {
		f.elements[id].Value = defaultValue
	}
	return f
}

// Has reports whether the form knows the element.
func (f *Form) Has(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.elements[id]
	return ok
}

func (f *Form) Checked(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if e, ok := f.elements[id]; ok {
		return e.Checked
	}
	return false
}

func (f *Form) SetChecked(id string, checked bool) {
	f.update(id, func(e *element) { e.Checked = checked })
}

func (f *Form) Enabled(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if e, ok := f.elements[id]; ok {
		return e.Enabled
	}
	return false
}

func (f *Form) SetEnabled(id string, enabled bool) {
	f.update(id, func(e *element) { e.Enabled = enabled })
}

func (f *Form) Value(id string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if e, ok := f.elements[id]; ok {
		return e.Value
	}
	return ""
}

func (f *Form) SetValue(id string, value string) {
	f.update(id, func(e *element) { e.Value = value })
}

// SetBackground implements Display.
func (f *Form) SetBackground(c color.Color) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.background = c
	f.version++
}

// Background returns the current page background.
func (f *Form) Background() color.Color {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.background
}

// SetNotification implements Notifications.
func (f *Form) SetNotification(text string, kind NotificationKind, visible bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notification = NotificationState{Text: text, Kind: kind, Visible: visible}
	f.version++
}

// Notification returns the current notification state.
func (f *Form) Notification() NotificationState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.notification
}

// Snapshot copies the form state.
func (f *Form) Snapshot() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	elements := make(map[string]element, len(f.elements))
	for id, e := range f.elements {
		elements[id] = *e
	}

	return Snapshot{
		Elements:     elements,
		Background:   f.background.Hex(),
		Notification: f.notification,
		Version:      f.version,
	}
}

func (f *Form) update(id string, modify func(e *element)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.elements[id]
	if !ok {
		return
	}
	modify(e)
	f.version++
}
