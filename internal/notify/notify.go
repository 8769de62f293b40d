// Package notify shows transient notifications on the panel.
package notify

import (
	"sync"
	"time"

	"github.com/dokzlo13/lumos/internal/ui"
)

// DefaultTimeout is how long a notification stays visible.
const DefaultTimeout = 5 * time.Second

// Notifier shows a notification and hides it after a fixed delay.
// A new notification while one is visible restarts the delay.
type Notifier struct {
	mu      sync.Mutex
	target  ui.Notifications
	timeout time.Duration
	timer   *time.Timer
	seq     uint64
}

// New creates a notifier. A zero timeout uses DefaultTimeout.
func New(target ui.Notifications, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Notifier{target: target, timeout: timeout}
}

// Show displays text and (re)starts the hide timer.
func (n *Notifier) Show(text string, kind ui.NotificationKind) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.target.SetNotification(text, kind, true)

	if n.timer != nil {
		n.timer.Stop()
	}
	n.seq++
	seq := n.seq
	n.timer = time.AfterFunc(n.timeout, func() { n.hide(seq) })
}

// Info shows an informational notification.
func (n *Notifier) Info(text string) {
	n.Show(text, ui.NotifyInfo)
}

// Error shows an error notification.
func (n *Notifier) Error(text string) {
	n.Show(text, ui.NotifyError)
}

// hide clears the notification unless a newer one replaced it.
func (n *Notifier) hide(seq uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if seq != n.seq {
		return
	}
	n.target.SetNotification("", ui.NotifyInfo, false)
	n.timer = nil
}

// Close stops the pending hide timer.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
	}
}
