package v20250708131842

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/tigerroll/docschema/pkg/adapter/database"
)

const (
	UsersCollection  = "users"
	EventsCollection = "events"

	validationLevelModerate = "moderate"
	validationLevelOff      = "off"
	validationActionWarn    = "warn"
)

// collectionSpec is the target state of one collection and the indexes Revert restores.
type collectionSpec struct {
	name          string
	schema        bson.D
	indexes       []database.IndexModel
	legacyIndexes []database.IndexModel
}

func objectIDArray() bson.D {
	return bson.D{
		{Key: "bsonType", Value: "array"},
		{Key: "items", Value: bson.D{{Key: "bsonType", Value: "objectId"}}},
	}
}

func typed(bsonType string) bson.D {
	return bson.D{{Key: "bsonType", Value: bsonType}}
}

func usersSchema() bson.D {
	return bson.D{
		{Key: "bsonType", Value: "object"},
		{Key: "required", Value: bson.A{"username"}},
		{Key: "properties", Value: bson.D{
			{Key: "username", Value: typed("string")},
			{Key: "keycloakId", Value: typed("string")},
			{Key: "firstname", Value: typed("string")},
			{Key: "lastname", Value: typed("string")},
			{Key: "email", Value: typed("string")},
			{Key: "organization", Value: typed("string")},
			{Key: "currentConfig", Value: typed("objectId")},
			{Key: "configs", Value: objectIDArray()},
			{Key: "adaptations", Value: objectIDArray()},
			{Key: "strategies", Value: objectIDArray()},
			{Key: "biosignals", Value: objectIDArray()},
			{Key: "createdAt", Value: typed("date")},
			{Key: "updatedAt", Value: typed("date")},
		}},
		{Key: "additionalProperties", Value: true},
	}
}

func eventsSchema() bson.D {
	return bson.D{
		{Key: "bsonType", Value: "object"},
		{Key: "required", Value: bson.A{"topic", "message", "offset", "timestamp"}},
		{Key: "properties", Value: bson.D{
			{Key: "topic", Value: typed("string")},
			{Key: "message", Value: bson.D{
				{Key: "bsonType", Value: "object"},
				{Key: "required", Value: bson.A{"key", "value"}},
				{Key: "properties", Value: bson.D{
					{Key: "key", Value: typed("string")},
					{Key: "value", Value: typed("object")},
				}},
			}},
			{Key: "offset", Value: typed("string")},
			{Key: "timestamp", Value: typed("string")},
			{Key: "createdAt", Value: typed("date")},
			{Key: "updatedAt", Value: typed("date")},
		}},
		{Key: "additionalProperties", Value: true},
	}
}

// collectionSpecs returns the collections in processing order. Each call builds fresh
// documents so no caller can mutate another's copy.
func collectionSpecs() []collectionSpec {
	return []collectionSpec{
		{
			name:   UsersCollection,
			schema: usersSchema(),
			indexes: []database.IndexModel{
				{
					Name:   "username_1_organization_1",
					Keys:   bson.D{{Key: "username", Value: int32(1)}, {Key: "organization", Value: int32(1)}},
					Unique: true,
				},
				{
					Name:   "keycloakId_1",
					Keys:   bson.D{{Key: "keycloakId", Value: int32(1)}},
					Unique: true,
					Sparse: true,
				},
			},
			// Pre-migration definitions. Any other index that existed before up is not restored.
			legacyIndexes: []database.IndexModel{
				{
					Name:       "keycloakId_1",
					Keys:       bson.D{{Key: "keycloakId", Value: int32(1)}},
					Unique:     true,
					Background: true,
				},
				{
					Name:       "username_1_organization_1",
					Keys:       bson.D{{Key: "username", Value: int32(1)}, {Key: "organization", Value: int32(1)}},
					Unique:     true,
					Background: true,
				},
			},
		},
		{
			name:   EventsCollection,
			schema: eventsSchema(),
		},
	}
}

func validatorCommand(verb, collection string, schema bson.D) bson.D {
	return bson.D{
		{Key: verb, Value: collection},
		{Key: "validator", Value: bson.D{{Key: "$jsonSchema", Value: schema}}},
		{Key: "validationLevel", Value: validationLevelModerate},
		{Key: "validationAction", Value: validationActionWarn},
	}
}

func clearValidatorCommand(collection string) bson.D {
	return bson.D{
		{Key: "collMod", Value: collection},
		{Key: "validator", Value: bson.D{}},
		{Key: "validationLevel", Value: validationLevelOff},
		{Key: "validationAction", Value: validationActionWarn},
	}
}
