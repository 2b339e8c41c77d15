package v20250708131842_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/tigerroll/docschema/pkg/adapter/database"
	"github.com/tigerroll/docschema/pkg/adapter/database/inmemory"
	"github.com/tigerroll/docschema/pkg/migration"
	step "github.com/tigerroll/docschema/pkg/migration/v20250708131842"
	"github.com/tigerroll/docschema/pkg/support/util/exception"
)

// seeded returns a database holding both collections with the pre-migration users indexes.
func seeded(t *testing.T) *inmemory.Database {
	t.Helper()
	ctx := context.Background()
	db := inmemory.New("app")
	db.CreateCollection(step.EventsCollection)
	users := db.Collection(step.UsersCollection)
	_, err := users.CreateIndex(ctx, database.IndexModel{Name: "keycloakId_1", Keys: bson.D{{Key: "keycloakId", Value: int32(1)}}, Unique: true})
	require.NoError(t, err)
	_, err = users.CreateIndex(ctx, database.IndexModel{Name: "username_1_organization_1", Keys: bson.D{{Key: "username", Value: int32(1)}, {Key: "organization", Value: int32(1)}}, Unique: true})
	require.NoError(t, err)
	_, err = users.CreateIndex(ctx, database.IndexModel{Name: "email_1", Keys: bson.D{{Key: "email", Value: int32(1)}}})
	require.NoError(t, err)
	return db
}

func indexes(t *testing.T, db database.Database, coll string) map[string]database.IndexSpec {
	t.Helper()
	specs, err := db.Collection(coll).ListIndexes(context.Background())
	require.NoError(t, err)
	out := make(map[string]database.IndexSpec, len(specs))
	for _, s := range specs {
		out[s.Name] = s
	}
	return out
}

func indexNames(t *testing.T, db database.Database, coll string) []string {
	t.Helper()
	var names []string
	for name := range indexes(t, db, coll) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func required(t *testing.T, opts database.CollectionOptions) bson.A {
	t.Helper()
	schema, ok := database.Lookup(opts.Validator, "$jsonSchema")
	require.True(t, ok, "validator has no $jsonSchema")
	req, ok := database.Lookup(schema.(bson.D), "required")
	require.True(t, ok)
	return req.(bson.A)
}

func TestApply_TargetState(t *testing.T) {
	ctx := context.Background()
	db := seeded(t)

	require.NoError(t, step.New().Apply(ctx, db))

	users, err := db.CollectionOptions(ctx, step.UsersCollection)
	require.NoError(t, err)
	assert.Equal(t, bson.A{"username"}, required(t, users))
	assert.Equal(t, "moderate", users.ValidationLevel)
	assert.Equal(t, "warn", users.ValidationAction)

	events, err := db.CollectionOptions(ctx, step.EventsCollection)
	require.NoError(t, err)
	assert.Equal(t, bson.A{"topic", "message", "offset", "timestamp"}, required(t, events))
	assert.Equal(t, "moderate", events.ValidationLevel)

	assert.Equal(t, []string{"_id_", "keycloakId_1", "username_1_organization_1"}, indexNames(t, db, step.UsersCollection))
	kc := indexes(t, db, step.UsersCollection)["keycloakId_1"]
	assert.True(t, kc.Unique)
	assert.True(t, kc.Sparse)
	uo := indexes(t, db, step.UsersCollection)["username_1_organization_1"]
	assert.True(t, uo.Unique)
	assert.False(t, uo.Sparse)
	assert.Equal(t, []string{"_id_"}, indexNames(t, db, step.EventsCollection))
}

func TestApply_Order(t *testing.T) {
	db := seeded(t)

	require.NoError(t, step.New().Apply(context.Background(), db))

	assert.Equal(t, []string{
		"dropIndexes users",
		"dropIndexes events",
		"collMod users",
		"createIndex users.username_1_organization_1",
		"createIndex users.keycloakId_1",
		"collMod events",
	}, db.Calls()[len(db.Calls())-6:])
}

func TestApply_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := seeded(t)
	s := step.New()

	require.NoError(t, s.Apply(ctx, db))
	firstUsers, err := db.CollectionOptions(ctx, step.UsersCollection)
	require.NoError(t, err)
	firstIndexes := indexes(t, db, step.UsersCollection)

	require.NoError(t, s.Apply(ctx, db))
	secondUsers, err := db.CollectionOptions(ctx, step.UsersCollection)
	require.NoError(t, err)
	assert.Equal(t, firstUsers, secondUsers)
	assert.Equal(t, firstIndexes, indexes(t, db, step.UsersCollection))
}

func TestApply_FreshDatabase(t *testing.T) {
	ctx := context.Background()
	db := inmemory.New("app")

	exec, err := migration.NewExecutor(0).Execute(ctx, step.New(), db, migration.DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, migration.StatusCompleted, exec.Status)
	assert.Equal(t, 2, exec.Count(migration.OutcomeTolerated), "both drops tolerate a missing collection")

	users, err := db.CollectionOptions(ctx, step.UsersCollection)
	require.NoError(t, err)
	assert.Equal(t, bson.A{"username"}, required(t, users))
	events, err := db.CollectionOptions(ctx, step.EventsCollection)
	require.NoError(t, err)
	assert.Equal(t, "warn", events.ValidationAction)
	assert.Equal(t, []string{"_id_", "keycloakId_1", "username_1_organization_1"}, indexNames(t, db, step.UsersCollection))

	require.NoError(t, step.New().Apply(ctx, db), "second run on the now-populated database")
}

func TestApply_CollectionCreatedConcurrently(t *testing.T) {
	ctx := context.Background()
	db := seeded(t)
	db.InjectFault(inmemory.Fault{
		Op:         "collMod",
		Collection: step.UsersCollection,
		Err:        &database.CommandError{Op: "collMod", Collection: step.UsersCollection, Kind: database.KindNamespaceNotFound, Code: database.CodeNamespaceNotFound, Message: "ns does not exist"},
		Times:      1,
	})

	require.NoError(t, step.New().Apply(ctx, db))
	users, err := db.CollectionOptions(ctx, step.UsersCollection)
	require.NoError(t, err)
	assert.Equal(t, "moderate", users.ValidationLevel)
}

func TestApply_DropFailureAborts(t *testing.T) {
	ctx := context.Background()
	db := seeded(t)
	db.InjectFault(inmemory.Fault{Op: "dropIndexes", Collection: step.UsersCollection, Err: errors.New("not authorized")})

	err := step.New().Apply(ctx, db)
	require.Error(t, err)
	assert.True(t, exception.IsMigrationError(err))
	assert.True(t, exception.IsRetryable(err))
	assert.NotContains(t, db.Calls(), "dropIndexes events")
	assert.NotContains(t, db.Calls(), "collMod users")
}

func TestApply_IndexConflictIsDistinguishable(t *testing.T) {
	ctx := context.Background()
	db := seeded(t)
	conflict := &database.CommandError{
		Op: "createIndex", Collection: step.UsersCollection, Index: "keycloakId_1",
		Kind: database.KindIndexConflict, Code: database.CodeIndexOptionsConflict,
		Message: "An equivalent index already exists with the same name but different options",
	}
	db.InjectFault(inmemory.Fault{Op: "createIndex", Index: "keycloakId_1", Err: conflict, Times: 1})

	err := step.New().Apply(ctx, db)
	require.Error(t, err)
	assert.True(t, database.IsIndexConflict(err))
	assert.False(t, exception.IsRetryable(err))
	assert.Contains(t, err.Error(), "users.keycloakId_1")
	assert.NotContains(t, db.Calls(), "collMod events", "up stops at the conflict")

	// An identical existing index is not a conflict.
	require.NoError(t, step.New().Apply(ctx, db))
	_, err = db.Collection(step.UsersCollection).CreateIndex(ctx, database.IndexModel{
		Name: "keycloakId_1", Keys: bson.D{{Key: "keycloakId", Value: int32(1)}}, Unique: true, Sparse: true,
	})
	assert.NoError(t, err)
}

func TestRevert_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := seeded(t)
	s := step.New()
	require.NoError(t, s.Apply(ctx, db))

	exec, err := migration.NewExecutor(0).Execute(ctx, s, db, migration.DirectionDown)
	require.NoError(t, err)
	assert.Equal(t, migration.StatusCompleted, exec.Status)

	for _, name := range s.Collections() {
		opts, err := db.CollectionOptions(ctx, name)
		require.NoError(t, err)
		assert.Empty(t, opts.Validator, name)
		assert.Equal(t, "off", opts.ValidationLevel, name)
		assert.Equal(t, "warn", opts.ValidationAction, name)
	}
	// email_1 existed before up and is not restored.
	assert.Equal(t, []string{"_id_", "keycloakId_1", "username_1_organization_1"}, indexNames(t, db, step.UsersCollection))
	kc := indexes(t, db, step.UsersCollection)["keycloakId_1"]
	assert.True(t, kc.Unique)
	assert.False(t, kc.Sparse)
	assert.Equal(t, []string{"_id_"}, indexNames(t, db, step.EventsCollection))
}

func TestRevert_ContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	db := seeded(t)
	s := step.New()
	require.NoError(t, s.Apply(ctx, db))

	dropErr := errors.New("drop refused")
	db.InjectFault(inmemory.Fault{Op: "dropIndex", Collection: step.UsersCollection, Index: "username_1_organization_1", Err: dropErr})
	restoreErr := errors.New("restore refused")
	db.InjectFault(inmemory.Fault{Op: "createIndex", Collection: step.UsersCollection, Index: "keycloakId_1", Err: restoreErr})

	exec, err := migration.NewExecutor(0).Execute(ctx, s, db, migration.DirectionDown)
	require.NoError(t, err)
	assert.Equal(t, migration.StatusPartial, exec.Status)
	assert.Equal(t, []error{dropErr, restoreErr}, exec.Warnings.WrappedErrors())

	calls := db.Calls()
	assert.Contains(t, calls, "dropIndex users.keycloakId_1")
	assert.Contains(t, calls, "createIndex users.username_1_organization_1", "second restore runs after the first fails")
	assert.Contains(t, calls, "collMod events")
	assert.Contains(t, calls, "listIndexes events")

	events, err := db.CollectionOptions(ctx, step.EventsCollection)
	require.NoError(t, err)
	assert.Equal(t, "off", events.ValidationLevel)
}

func TestRevert_MissingCollectionsNeverFail(t *testing.T) {
	ctx := context.Background()
	db := inmemory.New("app")

	exec, err := migration.NewExecutor(0).Execute(ctx, step.New(), db, migration.DirectionDown)
	require.NoError(t, err)
	assert.Equal(t, migration.StatusPartial, exec.Status)
	assert.Equal(t, 2, exec.Count(migration.OutcomeWarned), "collMod on each missing collection")
	assert.Equal(t, []string{"_id_", "keycloakId_1", "username_1_organization_1"}, indexNames(t, db, step.UsersCollection))
}

func TestRevert_StepAloneReturnsNil(t *testing.T) {
	db := inmemory.New("app")
	db.InjectFault(inmemory.Fault{Op: "listIndexes", Err: errors.New("unavailable")})

	assert.NoError(t, step.New().Revert(context.Background(), db))
}
