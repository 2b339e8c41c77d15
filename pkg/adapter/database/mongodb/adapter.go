// Package mongodb implements the database handle on top of the official MongoDB Go driver.
package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tigerroll/docschema/pkg/adapter/database"
)

// Database adapts *mongo.Database to database.Database.
type Database struct {
	db *mongo.Database
}

// NewDatabase wraps db.
func NewDatabase(db *mongo.Database) *Database {
	return &Database{db: db}
}

// Name returns the database name.
func (d *Database) Name() string {
	return d.db.Name()
}

// RunCommand runs an administrative command and classifies any failure.
func (d *Database) RunCommand(ctx context.Context, cmd bson.D) error {
	name, coll := database.CommandTarget(cmd)
	if err := d.db.RunCommand(ctx, cmd).Err(); err != nil {
		return classify(err, name, coll, "")
	}
	return nil
}

// Collection returns the handle for the named collection.
func (d *Database) Collection(name string) database.Collection {
	return &Collection{coll: d.db.Collection(name)}
}

// CollectionOptions reads the validator state through listCollections.
func (d *Database) CollectionOptions(ctx context.Context, name string) (database.CollectionOptions, error) {
	specs, err := d.db.ListCollectionSpecifications(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return database.CollectionOptions{}, classify(err, "listCollections", name, "")
	}
	if len(specs) == 0 {
		return database.CollectionOptions{}, &database.CommandError{
			Op:         "listCollections",
			Collection: name,
			Kind:       database.KindNamespaceNotFound,
			Code:       database.CodeNamespaceNotFound,
			Message:    "ns does not exist",
		}
	}

	var raw struct {
		Validator        bson.D `bson:"validator"`
		ValidationLevel  string `bson:"validationLevel"`
		ValidationAction string `bson:"validationAction"`
	}
	if len(specs[0].Options) > 0 {
		if err := bson.Unmarshal(specs[0].Options, &raw); err != nil {
			return database.CollectionOptions{}, &database.CommandError{
				Op:         "listCollections",
				Collection: name,
				Message:    "failed to decode collection options: " + err.Error(),
				Err:        err,
			}
		}
	}
	return database.CollectionOptions{
		Validator:        raw.Validator,
		ValidationLevel:  raw.ValidationLevel,
		ValidationAction: raw.ValidationAction,
	}, nil
}

// Collection adapts *mongo.Collection to database.Collection.
type Collection struct {
	coll *mongo.Collection
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.coll.Name()
}

// DropIndexes drops every non-identity index.
func (c *Collection) DropIndexes(ctx context.Context) error {
	if _, err := c.coll.Indexes().DropAll(ctx); err != nil {
		return classify(err, "dropIndexes", c.coll.Name(), "")
	}
	return nil
}

// CreateIndex creates the index described by model.
func (c *Collection) CreateIndex(ctx context.Context, model database.IndexModel) (string, error) {
	opts := options.Index().SetName(model.Name)
	if model.Unique {
		opts.SetUnique(true)
	}
	if model.Sparse {
		opts.SetSparse(true)
	}
	if model.Background {
		opts.SetBackground(true)
	}

	name, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: model.Keys, Options: opts})
	if err != nil {
		return "", classify(err, "createIndex", c.coll.Name(), model.Name)
	}
	return name, nil
}

// ListIndexes lists the indexes of the collection.
func (c *Collection) ListIndexes(ctx context.Context) ([]database.IndexSpec, error) {
	specs, err := c.coll.Indexes().ListSpecifications(ctx)
	if err != nil {
		return nil, classify(err, "listIndexes", c.coll.Name(), "")
	}

	out := make([]database.IndexSpec, 0, len(specs))
	for _, s := range specs {
		spec := database.IndexSpec{Name: s.Name}
		if len(s.KeysDocument) > 0 {
			if err := bson.Unmarshal(s.KeysDocument, &spec.Keys); err != nil {
				return nil, &database.CommandError{
					Op:         "listIndexes",
					Collection: c.coll.Name(),
					Index:      s.Name,
					Message:    "failed to decode index keys: " + err.Error(),
					Err:        err,
				}
			}
		}
		if s.Unique != nil {
			spec.Unique = *s.Unique
		}
		if s.Sparse != nil {
			spec.Sparse = *s.Sparse
		}
		out = append(out, spec)
	}
	return out, nil
}

// DropIndex drops a single index by name.
func (c *Collection) DropIndex(ctx context.Context, name string) error {
	if _, err := c.coll.Indexes().DropOne(ctx, name); err != nil {
		return classify(err, "dropIndex", c.coll.Name(), name)
	}
	return nil
}

// classify converts a driver error into a *database.CommandError.
// Server errors keep their code so the Kind comes from the code, not the message.
func classify(err error, op, collection, index string) error {
	ce := &database.CommandError{
		Op:         op,
		Collection: collection,
		Index:      index,
		Message:    err.Error(),
		Err:        err,
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		ce.Code = cmdErr.Code
		ce.Message = cmdErr.Message
		ce.Kind = database.KindFromCode(cmdErr.Code)
	}
	return ce
}

var (
	_ database.Database   = (*Database)(nil)
	_ database.Collection = (*Collection)(nil)
)
