// Package remote defines the external collaborators of the engine: the
// realtime document store holding the session's collections, and the
// provider of the anonymous session identity. Implementations live in the
// postgres and memory subpackages.
package remote

import (
	"context"
	"time"
)

// Collection names inside a session partition.
const (
	CollectionCategories = "categories"
	CollectionCards      = "cards"
	CollectionSettings   = "settings"
)

// Document is one entry of a remote collection: an id, a flat payload, and
// a store-assigned creation timestamp. A zero CreatedAt means the store had
// no timestamp for the document.
type Document struct {
	ID        string
	Data      map[string]any
	CreatedAt time.Time
}

// SnapshotFunc receives the complete current state of a subscribed
// collection. It is invoked once with the initial state and again after
// every change; deltas are never delivered.
type SnapshotFunc func(docs []Document)

// Unsubscribe tears down one subscription. Calling it more than once is
// harmless. After it returns no further snapshots are delivered.
type Unsubscribe func()

// Store is a partitioned realtime document store. A Store handle is already
// scoped to one app+identity session partition; no entity is ever shared
// across partitions.
//
// Writes are fire-and-forget with respect to local state: a returned nil
// only means the store accepted the write. Observable state changes arrive
// through the subscription snapshot, so the system is eventually, not
// optimistically, consistent with its own writes.
type Store interface {
	// Create adds a document with a store-assigned id and timestamp.
	Create(ctx context.Context, collection string, data map[string]any) (string, error)

	// Set writes a document under a caller-chosen id, replacing any
	// existing payload. Used for fixed-id documents such as
	// settings/security.
	Set(ctx context.Context, collection, id string, data map[string]any) error

	// Update merges a partial payload into an existing document.
	// Returns domain.ErrNotFound if the document does not exist.
	Update(ctx context.Context, collection, id string, patch map[string]any) error

	// Delete removes a document. Deleting an absent document is an error.
	Delete(ctx context.Context, collection, id string) error

	// Get reads one document. Absence is domain.ErrNotFound.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Subscribe opens a long-lived snapshot subscription on a collection.
	// The initial snapshot is delivered before Subscribe returns a handle
	// or shortly after, and a fresh complete snapshot follows every change.
	Subscribe(ctx context.Context, collection string, fn SnapshotFunc) (Unsubscribe, error)

	// Close releases the store's resources. Subscriptions still open are
	// torn down.
	Close()
}

// AuthProvider yields the opaque per-device identity that names the session
// partition. Anonymous identities are acceptable; the value only has to be
// stable for the device.
type AuthProvider interface {
	// Identity returns the current identity, creating one if needed.
	Identity(ctx context.Context) (string, error)

	// OnIdentityChange registers a callback fired when the identity is
	// replaced. The returned cancel removes the registration.
	OnIdentityChange(fn func(identity string)) (cancel func())
}
