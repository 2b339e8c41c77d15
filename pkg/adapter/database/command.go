package database

import "go.mongodb.org/mongo-driver/bson"

// CommandTarget returns the command name and the collection it targets.
// The first element of a command document names the command and, for
// collection-level commands such as collMod or create, holds the collection name.
func CommandTarget(cmd bson.D) (name, collection string) {
	if len(cmd) == 0 {
		return "", ""
	}
	name = cmd[0].Key
	if s, ok := cmd[0].Value.(string); ok {
		collection = s
	}
	return name, collection
}

// Lookup returns the value of key in doc.
func Lookup(doc bson.D, key string) (interface{}, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}
