package listener

import "context"

// Listener is a network front end for the bridge. Start blocks until the
// context is cancelled or serving fails; Stop drains in-flight requests.
type Listener interface {
	// Addr returns the configured listen address.
	Addr() string

	// Start serves until ctx is done or the listener fails.
	Start(ctx context.Context) error

	// Stop shuts the listener down gracefully. Safe to call more than once.
	Stop() error

	// Type identifies the listener kind, e.g. "api".
	Type() string
}
