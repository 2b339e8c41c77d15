package mongodb

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tigerroll/docschema/pkg/adapter/database"
	config "github.com/tigerroll/docschema/pkg/core/config"
)

func TestClassify_ServerCodes(t *testing.T) {
	cases := []struct {
		code int32
		kind database.Kind
	}{
		{26, database.KindNamespaceNotFound},
		{27, database.KindIndexNotFound},
		{48, database.KindNamespaceExists},
		{85, database.KindIndexConflict},
		{86, database.KindIndexConflict},
		{13, database.KindUnknown},
	}
	for _, tc := range cases {
		driverErr := fmt.Errorf("driver: %w", mongo.CommandError{Code: tc.code, Message: "server says no", Name: "X"})
		err := classify(driverErr, "dropIndexes", "users", "")

		var ce *database.CommandError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, tc.kind, ce.Kind, "code %d", tc.code)
		assert.Equal(t, tc.code, ce.Code)
		assert.Equal(t, "server says no", ce.Message)
		assert.Equal(t, "users", ce.Collection)
	}
}

func TestClassify_NonServerError(t *testing.T) {
	err := classify(context.DeadlineExceeded, "collMod", "events", "")

	assert.Equal(t, database.KindUnknown, database.KindOf(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "collMod events")
}

func TestProvider_UnknownConnection(t *testing.T) {
	p := NewProvider(config.NewConfig())

	_, err := p.GetConnection(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'missing' not found")
}

func TestProvider_InvalidConnectionConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Docschema.AdapterConfigs["default"] = map[string]interface{}{"type": "mongodb", "database": "app"}
	p := NewProvider(cfg)

	_, err := p.GetConnection(context.Background(), "default")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uri is required")
	assert.NoError(t, p.CloseAll(context.Background()))
}
