// Package notify is the best-effort alert side channel. Delivery is
// permission-gated and fire-and-forget: nothing here may ever fail a
// message send.
package notify

import "go.uber.org/zap"

// Permission mirrors the browser notification permission model.
type Permission string

const (
	PermissionGranted     Permission = "granted"
	PermissionDenied      Permission = "denied"
	PermissionUnrequested Permission = "unrequested"
)

// Notifier is the platform notification capability. Recipient is the
// participant the alert is addressed to.
type Notifier interface {
	PermissionState(recipient string) Permission
	RequestPermission(recipient string) Permission
	Show(recipient, title, body string) error
}

// Dispatcher gates a Notifier behind its permission state. A nil
// Dispatcher or nil Notifier means the capability is absent and every
// dispatch is a silent no-op.
type Dispatcher struct {
	notifier Notifier
	log      *zap.Logger
}

func NewDispatcher(notifier Notifier, log *zap.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, log: log}
}

// Dispatch shows a notification if permitted. Requests permission at
// most once per call when it has not been decided yet. Never returns
// an error: denial, absence and delivery failure all degrade silently.
func (d *Dispatcher) Dispatch(recipient, title, body string) {
	if d == nil || d.notifier == nil {
		return
	}

	state := d.notifier.PermissionState(recipient)
	if state == PermissionUnrequested {
		state = d.notifier.RequestPermission(recipient)
	}
	if state != PermissionGranted {
		return
	}

	if err := d.notifier.Show(recipient, title, body); err != nil && d.log != nil {
		d.log.Debug("notification delivery failed",
			zap.String("recipient", recipient),
			zap.Error(err),
		)
	}
}
