//go:build integration

package v20250708131842_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/tigerroll/docschema/pkg/adapter/database"
	dbconfig "github.com/tigerroll/docschema/pkg/adapter/database/config"
	"github.com/tigerroll/docschema/pkg/adapter/database/mongodb"
	"github.com/tigerroll/docschema/pkg/migration"
	step "github.com/tigerroll/docschema/pkg/migration/v20250708131842"
)

func startMongo(t *testing.T) *mongodb.Connection {
	t.Helper()
	ctx := context.Background()

	container, err := tcmongo.Run(ctx, "mongo:7.0")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	conn, err := mongodb.Connect(ctx, "integration", dbconfig.DatabaseConfig{
		Type:                          dbconfig.TypeMongoDB,
		URI:                           uri,
		Database:                      "docschema_it",
		ServerSelectionTimeoutSeconds: 30,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(context.Background()) })
	return conn
}

func TestIntegration_UpDownRoundTrip(t *testing.T) {
	conn := startMongo(t)
	db := conn.Database()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	executor := migration.NewExecutor(time.Minute)

	// Fresh database, twice.
	for i := 0; i < 2; i++ {
		exec, err := executor.Execute(ctx, step.New(), db, migration.DirectionUp)
		require.NoError(t, err, "run %d", i+1)
		assert.Equal(t, migration.StatusCompleted, exec.Status)
	}

	users, err := db.CollectionOptions(ctx, step.UsersCollection)
	require.NoError(t, err)
	assert.Equal(t, "moderate", users.ValidationLevel)
	assert.Equal(t, "warn", users.ValidationAction)
	assert.Equal(t, bson.A{"username"}, required(t, users))

	assert.Equal(t, []string{"_id_", "keycloakId_1", "username_1_organization_1"}, indexNames(t, db, step.UsersCollection))
	kc := indexes(t, db, step.UsersCollection)["keycloakId_1"]
	assert.True(t, kc.Unique)
	assert.True(t, kc.Sparse)

	exec, err := executor.Execute(ctx, step.New(), db, migration.DirectionDown)
	require.NoError(t, err)
	assert.Equal(t, migration.StatusCompleted, exec.Status)

	users, err = db.CollectionOptions(ctx, step.UsersCollection)
	require.NoError(t, err)
	assert.Empty(t, users.Validator)
	assert.Equal(t, "off", users.ValidationLevel)
	assert.Equal(t, []string{"_id_", "keycloakId_1", "username_1_organization_1"}, indexNames(t, db, step.UsersCollection))
	assert.False(t, indexes(t, db, step.UsersCollection)["keycloakId_1"].Sparse)
}

func TestIntegration_ServerErrorsAreClassified(t *testing.T) {
	conn := startMongo(t)
	db := conn.Database()
	ctx := context.Background()

	err := db.Collection("nope").DropIndexes(ctx)
	assert.True(t, database.IsNamespaceNotFound(err), "got %v", err)

	_, err = db.Collection("idx").CreateIndex(ctx, database.IndexModel{Name: "k_1", Keys: bson.D{{Key: "k", Value: 1}}})
	require.NoError(t, err)
	_, err = db.Collection("idx").CreateIndex(ctx, database.IndexModel{Name: "k_1", Keys: bson.D{{Key: "k", Value: 1}}, Unique: true})
	assert.True(t, database.IsIndexConflict(err), "got %v", err)

	assert.True(t, database.IsIndexNotFound(db.Collection("idx").DropIndex(ctx, "missing_1")))
}

func TestIntegration_SameKeysUnderAnotherNameConflicts(t *testing.T) {
	conn := startMongo(t)
	db := conn.Database()
	ctx := context.Background()
	require.NoError(t, step.New().Apply(ctx, db))

	_, err := db.Collection(step.UsersCollection).CreateIndex(ctx, database.IndexModel{
		Name: "keycloak_lookup", Keys: bson.D{{Key: "keycloakId", Value: 1}}, Unique: true, Sparse: true,
	})
	require.Error(t, err)
	assert.True(t, database.IsIndexConflict(err), "got %v", err)
}
