// Package inmemory provides a database.Database that keeps collection metadata in memory.
// It reproduces the server behaviour migration steps depend on: namespace errors,
// implicit collection creation by createIndex, index conflict codes and an
// undroppable identity index. Faults can be injected per operation.
package inmemory

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/tigerroll/docschema/pkg/adapter/database"
)

// Fault makes matching operations fail with Err. Empty Collection or Index match anything.
type Fault struct {
	Op         string
	Collection string
	Index      string
	Err        error
	// Times is how many matching calls fail; zero means every call.
	Times int
}

type collection struct {
	options database.CollectionOptions
	indexes []database.IndexSpec
}

// Database is an in-memory database.Database. It is safe for concurrent use.
type Database struct {
	name        string
	mu          sync.Mutex
	collections map[string]*collection
	faults      []*Fault
	calls       []string
}

// New creates an empty in-memory database.
func New(name string) *Database {
	return &Database{
		name:        name,
		collections: make(map[string]*collection),
	}
}

// Name returns the database name.
func (d *Database) Name() string {
	return d.name
}

// InjectFault registers a fault checked before every operation.
func (d *Database) InjectFault(f Fault) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults = append(d.faults, &f)
}

// Calls returns the operations performed so far, formatted as "op collection[.index]".
func (d *Database) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

// Exists reports whether the collection exists.
func (d *Database) Exists(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.collections[name]
	return ok
}

// CreateCollection creates an empty collection with only the identity index.
func (d *Database) CreateCollection(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.collections[name]; !ok {
		d.collections[name] = newCollection()
	}
}

func newCollection() *collection {
	return &collection{
		indexes: []database.IndexSpec{{Name: database.IdentityIndexName, Keys: bson.D{{Key: "_id", Value: int32(1)}}}},
	}
}

// record logs the call and returns an injected fault, if any. d.mu must be held.
func (d *Database) record(op, coll, index string) error {
	call := op + " " + coll
	if index != "" {
		call += "." + index
	}
	d.calls = append(d.calls, strings.TrimSpace(call))

	for i, f := range d.faults {
		if f.Op != op || (f.Collection != "" && f.Collection != coll) || (f.Index != "" && f.Index != index) {
			continue
		}
		err := f.Err
		if f.Times > 0 {
			f.Times--
			if f.Times == 0 {
				d.faults = append(d.faults[:i], d.faults[i+1:]...)
			}
		}
		return err
	}
	return nil
}

func serverError(op, coll, index string, code int32, msg string) error {
	return &database.CommandError{
		Op:         op,
		Collection: coll,
		Index:      index,
		Kind:       database.KindFromCode(code),
		Code:       code,
		Message:    msg,
	}
}

// RunCommand supports the collMod and create commands.
func (d *Database) RunCommand(ctx context.Context, cmd bson.D) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, coll := database.CommandTarget(cmd)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record(name, coll, ""); err != nil {
		return err
	}

	switch name {
	case "collMod":
		c, ok := d.collections[coll]
		if !ok {
			return serverError(name, coll, "", database.CodeNamespaceNotFound, "ns does not exist")
		}
		applyValidatorOptions(&c.options, cmd)
		return nil
	case "create":
		if _, ok := d.collections[coll]; ok {
			return serverError(name, coll, "", database.CodeNamespaceExists, "Collection already exists. NS: "+d.name+"."+coll)
		}
		c := newCollection()
		applyValidatorOptions(&c.options, cmd)
		d.collections[coll] = c
		return nil
	default:
		return &database.CommandError{Op: name, Collection: coll, Code: 59, Message: fmt.Sprintf("no such command: '%s'", name)}
	}
}

func applyValidatorOptions(opts *database.CollectionOptions, cmd bson.D) {
	if v, ok := database.Lookup(cmd, "validator"); ok {
		if doc, ok := v.(bson.D); ok {
			opts.Validator = copyDoc(doc)
		} else {
			opts.Validator = bson.D{}
		}
	}
	if v, ok := database.Lookup(cmd, "validationLevel"); ok {
		opts.ValidationLevel, _ = v.(string)
	}
	if v, ok := database.Lookup(cmd, "validationAction"); ok {
		opts.ValidationAction, _ = v.(string)
	}
}

// Collection returns a handle for the named collection.
func (d *Database) Collection(name string) database.Collection {
	return &Collection{db: d, name: name}
}

// CollectionOptions returns a copy of the validator state.
func (d *Database) CollectionOptions(ctx context.Context, name string) (database.CollectionOptions, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("listCollections", name, ""); err != nil {
		return database.CollectionOptions{}, err
	}
	c, ok := d.collections[name]
	if !ok {
		return database.CollectionOptions{}, serverError("listCollections", name, "", database.CodeNamespaceNotFound, "ns does not exist")
	}
	out := c.options
	out.Validator = copyDoc(c.options.Validator)
	return out, nil
}

// Collection is the in-memory database.Collection.
type Collection struct {
	db   *Database
	name string
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// DropIndexes drops every index except the identity index.
func (c *Collection) DropIndexes(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if err := c.db.record("dropIndexes", c.name, ""); err != nil {
		return err
	}
	coll, ok := c.db.collections[c.name]
	if !ok {
		return serverError("dropIndexes", c.name, "", database.CodeNamespaceNotFound, "ns not found")
	}
	coll.indexes = coll.indexes[:1]
	return nil
}

// CreateIndex creates an index, creating the collection first if needed.
func (c *Collection) CreateIndex(ctx context.Context, model database.IndexModel) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := model.Name
	if name == "" {
		name = DefaultIndexName(model.Keys)
	}

	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if err := c.db.record("createIndex", c.name, name); err != nil {
		return "", err
	}

	coll, ok := c.db.collections[c.name]
	if !ok {
		coll = newCollection()
		c.db.collections[c.name] = coll
	}

	want := database.IndexSpec{Name: name, Keys: copyDoc(model.Keys), Unique: model.Unique, Sparse: model.Sparse}
	for _, existing := range coll.indexes {
		sameKeys := keysEqual(existing.Keys, want.Keys)
		sameOptions := existing.Unique == want.Unique && existing.Sparse == want.Sparse
		switch {
		case existing.Name == name && sameKeys && sameOptions:
			return name, nil
		case existing.Name == name && !sameKeys:
			return "", serverError("createIndex", c.name, name, database.CodeIndexKeySpecsConflict,
				fmt.Sprintf("An existing index has the same name as the requested index. Requested index: %s, existing index: %s", name, existing.Name))
		case existing.Name == name:
			return "", serverError("createIndex", c.name, name, database.CodeIndexOptionsConflict,
				fmt.Sprintf("An equivalent index already exists with the same name but different options. Requested index: %s", name))
		case sameKeys && sameOptions:
			return "", serverError("createIndex", c.name, name, database.CodeIndexOptionsConflict,
				fmt.Sprintf("Index already exists with a different name: %s", existing.Name))
		}
	}
	coll.indexes = append(coll.indexes, want)
	return name, nil
}

// ListIndexes lists indexes. A missing collection yields an empty list, as the driver does.
func (c *Collection) ListIndexes(ctx context.Context) ([]database.IndexSpec, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if err := c.db.record("listIndexes", c.name, ""); err != nil {
		return nil, err
	}
	coll, ok := c.db.collections[c.name]
	if !ok {
		return []database.IndexSpec{}, nil
	}
	out := make([]database.IndexSpec, len(coll.indexes))
	for i, idx := range coll.indexes {
		out[i] = idx
		out[i].Keys = copyDoc(idx.Keys)
	}
	return out, nil
}

// DropIndex drops a single index. The identity index cannot be dropped.
func (c *Collection) DropIndex(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if err := c.db.record("dropIndex", c.name, name); err != nil {
		return err
	}
	coll, ok := c.db.collections[c.name]
	if !ok {
		return serverError("dropIndex", c.name, name, database.CodeNamespaceNotFound, "ns not found")
	}
	if name == database.IdentityIndexName {
		return serverError("dropIndex", c.name, name, database.CodeInvalidOptions, "cannot drop _id index")
	}
	for i, idx := range coll.indexes {
		if idx.Name == name {
			coll.indexes = append(coll.indexes[:i], coll.indexes[i+1:]...)
			return nil
		}
	}
	return serverError("dropIndex", c.name, name, database.CodeIndexNotFound, fmt.Sprintf("index not found with name [%s]", name))
}

// DefaultIndexName builds the server's default name, e.g. "username_1_organization_1".
func DefaultIndexName(keys bson.D) string {
	parts := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		parts = append(parts, k.Key, fmt.Sprint(k.Value))
	}
	return strings.Join(parts, "_")
}

// keysEqual compares key documents by field order and numeric direction.
func keysEqual(a, b bson.D) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key || fmt.Sprint(a[i].Value) != fmt.Sprint(b[i].Value) {
			return false
		}
	}
	return true
}

// copyDoc deep-copies nested documents and arrays so callers never share state with the store.
func copyDoc(doc bson.D) bson.D {
	if doc == nil {
		return nil
	}
	out := make(bson.D, len(doc))
	for i, e := range doc {
		out[i] = bson.E{Key: e.Key, Value: copyValue(e.Value)}
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch x := v.(type) {
	case bson.D:
		return copyDoc(x)
	case bson.A:
		out := make(bson.A, len(x))
		for i := range x {
			out[i] = copyValue(x[i])
		}
		return out
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.String {
			out := make([]string, rv.Len())
			for i := range out {
				out[i] = rv.Index(i).String()
			}
			return out
		}
		return v
	}
}

var (
	_ database.Database   = (*Database)(nil)
	_ database.Collection = (*Collection)(nil)
)
