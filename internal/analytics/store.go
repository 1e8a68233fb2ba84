package analytics

import "context"

// Store defines the interface for persisting analytics events.
type Store interface {
	SaveClick(ctx context.Context, event *ClickEvent) error
	SaveThrottle(ctx context.Context, event *ThrottleEvent) error
}
