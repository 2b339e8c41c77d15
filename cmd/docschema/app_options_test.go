package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestGetApplicationOptions_GraphIsComplete(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MONGODB_DATABASE", "app")

	options, err := GetApplicationOptions("", embeddedConfig)
	require.NoError(t, err)

	var deps dependencies
	options = append(options, fx.Populate(&deps))
	assert.NoError(t, fx.ValidateApp(options...))
}

func TestGetApplicationOptions_BadConfig(t *testing.T) {
	_, err := GetApplicationOptions("", []byte("docschema: [unterminated"))
	assert.Error(t, err)
}
