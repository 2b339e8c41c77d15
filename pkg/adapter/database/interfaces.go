// Package database defines the handle a migration step runs against.
// The contract is narrow: one administrative command entry point
// plus the four per-collection index operations, each failing with a *CommandError
// that carries a typed Kind.
package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// IdentityIndexName is the name of the implicit, undroppable primary key index.
const IdentityIndexName = "_id_"

// IndexModel describes an index to create.
type IndexModel struct {
	// Name is the stable index name. It must always be set so re-runs address the same index.
	Name string
	// Keys is the ordered field to direction mapping.
	Keys bson.D
	// Unique rejects documents with duplicate key values.
	Unique bool
	// Sparse skips documents lacking the indexed fields.
	Sparse bool
	// Background requests a background build on servers that still honour the flag.
	Background bool
}

// IndexSpec is an index as reported by listIndexes.
type IndexSpec struct {
	Name   string
	Keys   bson.D
	Unique bool
	Sparse bool
}

// CollectionOptions is the validator state attached to a collection.
type CollectionOptions struct {
	// Validator is the validator document, nil or empty when none is set.
	Validator bson.D
	// ValidationLevel is "off", "moderate" or "strict"; empty means the server default.
	ValidationLevel string
	// ValidationAction is "warn", "error" or empty for the server default.
	ValidationAction string
}

// Collection exposes the per-collection index operations.
type Collection interface {
	// Name returns the collection name.
	Name() string
	// DropIndexes drops every index except the identity index.
	DropIndexes(ctx context.Context) error
	// CreateIndex creates an index and returns its name.
	// Creating an index identical to an existing one succeeds.
	CreateIndex(ctx context.Context, model IndexModel) (string, error)
	// ListIndexes lists the indexes of the collection, including the identity index.
	ListIndexes(ctx context.Context) ([]IndexSpec, error)
	// DropIndex drops a single index by name.
	DropIndex(ctx context.Context, name string) error
}

// Database is the handle injected into migration steps.
type Database interface {
	// Name returns the database name.
	Name() string
	// RunCommand runs an administrative command document such as collMod or create.
	RunCommand(ctx context.Context, cmd bson.D) error
	// Collection returns a handle for the named collection. It performs no I/O.
	Collection(name string) Collection
	// CollectionOptions returns the validator state of a collection.
	// A missing collection yields a *CommandError of KindNamespaceNotFound.
	CollectionOptions(ctx context.Context, name string) (CollectionOptions, error)
}

// DBConnection is a named, live connection to a database server.
type DBConnection interface {
	// Type returns the connection type, e.g. "mongodb".
	Type() string
	// Name returns the configured connection name.
	Name() string
	// Database returns the handle for the configured database.
	Database() Database
	// Close releases the underlying client.
	Close(ctx context.Context) error
}

// DBProvider opens and caches connections by configured name.
type DBProvider interface {
	// GetConnection returns the connection with the given name, establishing it if needed.
	GetConnection(ctx context.Context, name string) (DBConnection, error)
	// CloseAll closes every connection opened by this provider.
	CloseAll(ctx context.Context) error
	// Type returns the connection type handled by this provider.
	Type() string
}
