package port

import "context"

// ObjectStore is durable blob storage keyed by slash-separated paths.
// Get returns an error matching domain.ErrNotFound for absent keys.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error

	Get(ctx context.Context, key string) ([]byte, error)

	// List returns all keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	Exists(ctx context.Context, key string) (bool, error)

	// PutIfAbsent writes data only when key does not exist yet.
	// It reports whether this call created the object.
	PutIfAbsent(ctx context.Context, key string, data []byte) (bool, error)
}
