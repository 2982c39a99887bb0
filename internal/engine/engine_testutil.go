package engine

import (
	"testing"

	language "github.com/hanpama/schemamap/internal/language"
	schema "github.com/hanpama/schemamap/internal/schema"
)

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

func newTestSchema(types ...*schema.Type) *schema.Schema {
	s := schema.NewSchema()
	for _, t := range types {
		s.AddType(t)
	}
	if _, ok := s.Types["Query"]; ok {
		s.SetQueryType("Query")
	}
	if _, ok := s.Types["Subscription"]; ok {
		s.SetSubscriptionType("Subscription")
	}
	return s
}

func newObjectType(name string, fields ...*schema.Field) *schema.Type {
	t := schema.NewType(name, schema.TypeKindObject)
	for _, f := range fields {
		t.AddField(f)
	}
	return t
}
