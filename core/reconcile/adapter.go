package reconcile

import "context"

// Source supplies the authoritative user set.
type Source interface {
	// FetchAll returns the complete source set for one pass.
	FetchAll(ctx context.Context) ([]User, error)
}

// Target looks users up in, and writes users to, the directory being reconciled.
// Implementations used with Options.Workers > 1 must be safe for concurrent use
// across distinct identifiers.
type Target interface {
	// Resolve returns the user stored under identifier, or nil when absent.
	Resolve(ctx context.Context, identifier string) (*User, error)

	// Persist replaces the stored user matching the given user's identity
	// with the given user's values.
	Persist(ctx context.Context, user User) error
}

// Observer receives decision events as they are made.
// Observers may be called from several goroutines when Options.Workers > 1.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }
