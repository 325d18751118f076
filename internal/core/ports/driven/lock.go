package driven

import "context"

// Locker provides mutual exclusion keyed by an arbitrary string.
// It backs the per-document ingestion lock.
type Locker interface {
	// Lock blocks until the key is held or ctx is done.
	// The returned function releases the lock; it is safe to call once.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
