package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/tigerroll/docschema/pkg/adapter/database"
)

// writeStatus renders the validator state and indexes of each collection as a table.
func writeStatus(ctx context.Context, w io.Writer, db database.Database, collections []string) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Collection", "Validator", "Level", "Action", "Indexes"})
	table.SetAutoWrapText(false)

	for _, name := range collections {
		opts, err := db.CollectionOptions(ctx, name)
		if database.IsNamespaceNotFound(err) {
			table.Append([]string{name, "(collection missing)", "-", "-", "-"})
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read options of %s: %w", name, err)
		}

		specs, err := db.Collection(name).ListIndexes(ctx)
		if err != nil {
			return fmt.Errorf("failed to list indexes of %s: %w", name, err)
		}
		indexes := make([]string, 0, len(specs))
		for _, s := range specs {
			indexes = append(indexes, describeIndex(s))
		}

		table.Append([]string{
			name,
			describeValidator(opts.Validator),
			orDash(opts.ValidationLevel),
			orDash(opts.ValidationAction),
			strings.Join(indexes, ", "),
		})
	}
	table.Render()
	return nil
}

func describeValidator(v bson.D) string {
	if len(v) == 0 {
		return "none"
	}
	schema, ok := database.Lookup(v, "$jsonSchema")
	if !ok {
		return "custom"
	}
	doc, ok := schema.(bson.D)
	if !ok {
		return "$jsonSchema"
	}
	req, ok := database.Lookup(doc, "required")
	if !ok {
		return "$jsonSchema"
	}
	var fields []string
	switch r := req.(type) {
	case bson.A:
		for _, f := range r {
			fields = append(fields, fmt.Sprint(f))
		}
	case []string:
		fields = r
	}
	return "$jsonSchema required=[" + strings.Join(fields, ",") + "]"
}

func describeIndex(s database.IndexSpec) string {
	var flags []string
	if s.Unique {
		flags = append(flags, "unique")
	}
	if s.Sparse {
		flags = append(flags, "sparse")
	}
	if len(flags) == 0 {
		return s.Name
	}
	return s.Name + " (" + strings.Join(flags, ",") + ")"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
