// Package alert pushes operational notifications (ticket opened/closed,
// role request submitted) to external messengers. Alerting is
// best-effort everywhere: failures are logged by callers, never allowed
// to block a workflow transition.
package alert

import (
	"context"
	"errors"
)

// Notifier delivers a short ops notification.
type Notifier interface {
	Notify(ctx context.Context, event, text string) error
}

// Multi fans a notification out to every configured notifier and joins
// their failures.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event, text string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
