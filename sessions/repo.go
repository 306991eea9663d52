package sessions

import "context"

// Repo persists the single session record. Absence of a record means the
// client is anonymous; Get then returns Anonymous() and a nil error.
type Repo interface {
	// Get returns the stored session
	Get(ctx context.Context) (SessionUser, error)

	// Put replaces the stored session
	Put(ctx context.Context, user SessionUser) error

	// Update applies fn to the stored session and writes the result as one
	// atomic step. If fn returns an error nothing is written.
	Update(ctx context.Context, fn func(*SessionUser) error) (SessionUser, error)

	// Delete removes the stored session. Deleting an absent session is not an error.
	Delete(ctx context.Context) error
}
