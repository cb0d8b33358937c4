package audit

import "context"

// Sink receives audit events. Implementations must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a queryable sink used for local retention.
type Store interface {
	Sink
	ListByHash(ctx context.Context, contentHash string) ([]Event, error)
}
