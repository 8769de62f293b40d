// Package ui defines the adapter between the panel logic and whatever renders the form.
// The panel never touches a page directly; it reads and writes named elements through
// Controls and Display.
package ui

import "github.com/dokzlo13/lumos/internal/color"

// Element identifiers of the control panel page.
const (
	ManualCheck  = "manualCheck"
	AutoCheck    = "autoCheck"
	ManualLumos  = "manualLumos"
	ManualTemp   = "manualTemp"
	AutoLumos    = "autoLumos"
	AutoTemp     = "autoTemp"
	ManualButton = "manualButton"
	AutoButton   = "autoButton"
	Notification = "notification"
)

// Elements lists every element the panel expects to exist at startup.
var Elements = []string{
	ManualCheck, AutoCheck,
	ManualLumos, ManualTemp, AutoLumos, AutoTemp,
	ManualButton, AutoButton,
	Notification,
}

// Controls reads and writes form element state by identifier.
type Controls interface {
	Checked(id string) bool
	SetChecked(id string, checked bool)
	Enabled(id string) bool
	SetEnabled(id string, enabled bool)
	Value(id string) string
	SetValue(id string, value string)
}

// Display applies page-level presentation changes.
type Display interface {
	SetBackground(c color.Color)
}

// NotificationKind selects the styling of a notification.
type NotificationKind string

const (
	NotifyInfo  NotificationKind = "info"
	NotifyError NotificationKind = "error"
)

// Notifications shows or hides the transient notification element.
type Notifications interface {
	SetNotification(text string, kind NotificationKind, visible bool)
}
