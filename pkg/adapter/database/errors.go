package database

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a database failure so callers never match on message text.
type Kind int

const (
	// KindUnknown is any failure without a more specific classification.
	KindUnknown Kind = iota
	// KindNamespaceNotFound means the collection does not exist.
	KindNamespaceNotFound
	// KindNamespaceExists means the collection already exists.
	KindNamespaceExists
	// KindIndexNotFound means the named index does not exist.
	KindIndexNotFound
	// KindIndexConflict means an index with the same name or keys exists with a different definition.
	KindIndexConflict
)

// Server error codes mapped onto a Kind.
const (
	CodeNamespaceNotFound     int32 = 26
	CodeIndexNotFound         int32 = 27
	CodeNamespaceExists       int32 = 48
	CodeInvalidOptions        int32 = 72
	CodeIndexOptionsConflict  int32 = 85
	CodeIndexKeySpecsConflict int32 = 86
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNamespaceNotFound:
		return "NamespaceNotFound"
	case KindNamespaceExists:
		return "NamespaceExists"
	case KindIndexNotFound:
		return "IndexNotFound"
	case KindIndexConflict:
		return "IndexConflict"
	default:
		return "Unknown"
	}
}

// KindFromCode maps a server error code to a Kind.
func KindFromCode(code int32) Kind {
	switch code {
	case CodeNamespaceNotFound:
		return KindNamespaceNotFound
	case CodeNamespaceExists:
		return KindNamespaceExists
	case CodeIndexNotFound:
		return KindIndexNotFound
	case CodeIndexOptionsConflict, CodeIndexKeySpecsConflict:
		return KindIndexConflict
	default:
		return KindUnknown
	}
}

// CommandError is the structured failure returned by every Database and Collection operation.
type CommandError struct {
	// Op is the operation that failed (e.g. "dropIndexes", "collMod", "createIndex").
	Op string
	// Collection is the collection the operation targeted, if any.
	Collection string
	// Index is the index name the operation targeted, if any.
	Index string
	// Kind is the classification of the failure.
	Kind Kind
	// Code is the server error code, zero when not reported by a server.
	Code int32
	// Message is the human-readable server or driver message.
	Message string
	// Err is the underlying driver error.
	Err error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Collection != "" {
		b.WriteString(" ")
		b.WriteString(e.Collection)
	}
	if e.Index != "" {
		b.WriteString(".")
		b.WriteString(e.Index)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Code != 0 {
		fmt.Fprintf(&b, " (%s, code %d)", e.Kind, e.Code)
	}
	return b.String()
}

// Unwrap returns the underlying driver error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *CommandError in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// IsNamespaceNotFound reports whether err means the collection does not exist.
func IsNamespaceNotFound(err error) bool {
	return KindOf(err) == KindNamespaceNotFound
}

// IsNamespaceExists reports whether err means the collection already exists.
func IsNamespaceExists(err error) bool {
	return KindOf(err) == KindNamespaceExists
}

// IsIndexNotFound reports whether err means the index does not exist.
func IsIndexNotFound(err error) bool {
	return KindOf(err) == KindIndexNotFound
}

// IsIndexConflict reports whether err means an index exists with a conflicting definition.
func IsIndexConflict(err error) bool {
	return KindOf(err) == KindIndexConflict
}
