package introspection

import (
	schema "github.com/hanpama/schemamap/internal/schema"
)

// extendSchema returns a copy of sch whose query type carries the __schema
// and __type fields, with the introspection meta types added. Non-root types
// are shared with the original schema.
func extendSchema(sch *schema.Schema) *schema.Schema {
	out := schema.NewSchema()
	for _, t := range sch.Types {
		out.AddType(t)
	}
	out.SetQueryType(sch.QueryType)
	out.SetMutationType(sch.MutationType)
	out.SetSubscriptionType(sch.SubscriptionType)

	for _, t := range metaTypes() {
		out.AddType(t)
	}

	if q := sch.GetQueryType(); q != nil {
		qc := schema.NewType(q.Name, q.Kind)
		qc.Interfaces = q.Interfaces
		for _, f := range q.Fields {
			qc.AddField(f)
		}
		qc.AddField(&schema.Field{
			Name: "__schema",
			Type: schema.NonNullType(schema.NamedType("__Schema")),
		})
		qc.AddField(&schema.Field{
			Name: "__type",
			Type: schema.NamedType("__Type"),
			Arguments: []*schema.InputValue{
				{Name: "name", Type: schema.NonNullType(schema.NamedType("String"))},
			},
		})
		out.AddType(qc)
	}
	return out
}

func metaTypes() []*schema.Type {
	typeRef := func() *schema.TypeRef { return schema.NamedType("__Type") }
	listOf := func(name string) *schema.TypeRef {
		return schema.ListType(schema.NonNullType(schema.NamedType(name)))
	}

	schemaType := schema.NewType("__Schema", schema.TypeKindObject).
		AddField(&schema.Field{Name: "types", Type: schema.NonNullType(listOf("__Type"))}).
		AddField(&schema.Field{Name: "queryType", Type: schema.NonNullType(typeRef())}).
		AddField(&schema.Field{Name: "mutationType", Type: typeRef()}).
		AddField(&schema.Field{Name: "subscriptionType", Type: typeRef()}).
		AddField(&schema.Field{Name: "directives", Type: schema.NonNullType(listOf("__Directive"))})

	typeType := schema.NewType("__Type", schema.TypeKindObject).
		AddField(&schema.Field{Name: "kind", Type: schema.NonNullType(schema.NamedType("String"))}).
		AddField(&schema.Field{Name: "name", Type: schema.NamedType("String")}).
		AddField(&schema.Field{Name: "fields", Type: listOf("__Field")}).
		AddField(&schema.Field{Name: "interfaces", Type: listOf("__Type")}).
		AddField(&schema.Field{Name: "possibleTypes", Type: listOf("__Type")}).
		AddField(&schema.Field{Name: "enumValues", Type: listOf("__EnumValue")}).
		AddField(&schema.Field{Name: "inputFields", Type: listOf("__InputValue")}).
		AddField(&schema.Field{Name: "ofType", Type: typeRef()})

	fieldType := schema.NewType("__Field", schema.TypeKindObject).
		AddField(&schema.Field{Name: "name", Type: schema.NonNullType(schema.NamedType("String"))}).
		AddField(&schema.Field{Name: "args", Type: schema.NonNullType(listOf("__InputValue"))}).
		AddField(&schema.Field{Name: "type", Type: schema.NonNullType(typeRef())}).
		AddField(&schema.Field{Name: "isDeprecated", Type: schema.NonNullType(schema.NamedType("Boolean"))}).
		AddField(&schema.Field{Name: "deprecationReason", Type: schema.NamedType("String")})

	inputValueType := schema.NewType("__InputValue", schema.TypeKindObject).
		AddField(&schema.Field{Name: "name", Type: schema.NonNullType(schema.NamedType("String"))}).
		AddField(&schema.Field{Name: "type", Type: schema.NonNullType(typeRef())}).
		AddField(&schema.Field{Name: "defaultValue", Type: schema.NamedType("String")})

	enumValueType := schema.NewType("__EnumValue", schema.TypeKindObject).
		AddField(&schema.Field{Name: "name", Type: schema.NonNullType(schema.NamedType("String"))}).
		AddField(&schema.Field{Name: "isDeprecated", Type: schema.NonNullType(schema.NamedType("Boolean"))}).
		AddField(&schema.Field{Name: "deprecationReason", Type: schema.NamedType("String")})

	directiveType := schema.NewType("__Directive", schema.TypeKindObject).
		AddField(&schema.Field{Name: "name", Type: schema.NonNullType(schema.NamedType("String"))}).
		AddField(&schema.Field{Name: "locations", Type: schema.NonNullType(listOf("String"))}).
		AddField(&schema.Field{Name: "args", Type: schema.NonNullType(listOf("__InputValue"))})

	return []*schema.Type{schemaType, typeType, fieldType, inputValueType, enumValueType, directiveType}
}
