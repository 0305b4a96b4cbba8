package progress

import "context"

// Store persists the whole progress snapshot at once.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
	Close() error
}
