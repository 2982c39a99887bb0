// Package introspection answers __schema and __type queries by wrapping the
// host runtime: meta fields resolve against the schema model, everything else
// is delegated.
package introspection

import (
	"context"
	"fmt"
	"sort"

	engine "github.com/hanpama/schemamap/internal/engine"
	schema "github.com/hanpama/schemamap/internal/schema"
)

// Wrap returns a runtime that intercepts introspection fields, plus a copy
// of sch extended with the introspection meta types. The original schema is
// left untouched and stays the source of truth for introspection answers.
func Wrap(base engine.Runtime, sch *schema.Schema) (engine.Runtime, *schema.Schema) {
	extended := extendSchema(sch)
	return &runtime{base: base, source: sch, queryType: sch.QueryType}, extended
}

type runtime struct {
	base      engine.Runtime
	source    *schema.Schema
	queryType string
}

// enumValue carries one enum member through field completion.
type enumValue struct {
	Name string
}

func (r *runtime) NewRequestScope(ctx context.Context) context.Context {
	return r.base.NewRequestScope(ctx)
}

func (r *runtime) ResolveField(ctx context.Context, task engine.FieldTask) (any, error) {
	switch src := task.Source.(type) {
	case *schema.Schema:
		return resolveSchemaField(src, task.Field), nil
	case *schema.Type:
		return resolveTypeField(r.source, src, task.Field), nil
	case *schema.TypeRef:
		return resolveTypeRefField(r.source, src, task.Field), nil
	case *schema.Field:
		return resolveFieldField(src, task.Field), nil
	case *schema.InputValue:
		return resolveInputValueField(src, task.Field), nil
	case enumValue:
		return resolveEnumValueField(src, task.Field), nil
	}

	if task.ObjectType == r.queryType {
		switch task.Field {
		case "__schema":
			return r.source, nil
		case "__type":
			name, _ := task.Args["name"].(string)
			if t := r.source.Types[name]; t != nil {
				return t, nil
			}
			return nil, nil
		}
	}

	return r.base.ResolveField(ctx, task)
}

func (r *runtime) ResolveWave(ctx context.Context, tasks []engine.FieldTask) []engine.FieldResult {
	return r.base.ResolveWave(ctx, tasks)
}

func (r *runtime) ResolveStream(ctx context.Context, task engine.FieldTask) (<-chan engine.StreamEvent, error) {
	return r.base.ResolveStream(ctx, task)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) SerializeLeaf(ctx context.Context, typeName string, value any) (any, error) {
	return r.base.SerializeLeaf(ctx, typeName, value)
}

func resolveSchemaField(sch *schema.Schema, field string) any {
	switch field {
	case "types":
		names := make([]string, 0, len(sch.Types))
		for name := range sch.Types {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]*schema.Type, len(names))
		for i, name := range names {
			out[i] = sch.Types[name]
		}
		return out
	case "queryType":
		return sch.GetQueryType()
	case "mutationType":
		return sch.GetMutationType()
	case "subscriptionType":
		return sch.GetSubscriptionType()
	case "directives":
		return []any{}
	}
	return nil
}

func resolveTypeField(sch *schema.Schema, t *schema.Type, field string) any {
	switch field {
	case "kind":
		return string(t.Kind)
	case "name":
		return t.Name
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		return append([]*schema.Field(nil), t.Fields...)
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		out := []*schema.Type{}
		for _, name := range t.Interfaces {
			if def := sch.Types[name]; def != nil {
				out = append(out, def)
			}
		}
		return out
	case "possibleTypes":
		if t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion {
			return nil
		}
		out := []*schema.Type{}
		for _, name := range t.PossibleTypes {
			if def := sch.Types[name]; def != nil {
				out = append(out, def)
			}
		}
		return out
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil
		}
		out := make([]enumValue, len(t.EnumValues))
		for i, name := range t.EnumValues {
			out[i] = enumValue{Name: name}
		}
		return out
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return append([]*schema.InputValue(nil), t.InputFields...)
	case "ofType":
		// Named types never wrap another type.
		return nil
	}
	return nil
}

func resolveTypeRefField(sch *schema.Schema, tr *schema.TypeRef, field string) any {
	switch tr.Kind {
	case schema.TypeRefKindNonNull, schema.TypeRefKindList:
		switch field {
		case "kind":
			return string(tr.Kind)
		case "ofType":
			return tr.OfType
		default:
			return nil
		}
	default:
		if def := sch.Types[tr.Named]; def != nil {
			return resolveTypeField(sch, def, field)
		}
		return nil
	}
}

func resolveFieldField(f *schema.Field, field string) any {
	switch field {
	case "name":
		return f.Name
	case "args":
		return append([]*schema.InputValue(nil), f.Arguments...)
	case "type":
		return f.Type
	case "isDeprecated":
		return false
	}
	return nil
}

func resolveInputValueField(iv *schema.InputValue, field string) any {
	switch field {
	case "name":
		return iv.Name
	case "type":
		return iv.Type
	case "defaultValue":
		if iv.DefaultValue == nil {
			return nil
		}
		return fmt.Sprintf("%v", iv.DefaultValue)
	}
	return nil
}

func resolveEnumValueField(ev enumValue, field string) any {
	switch field {
	case "name":
		return ev.Name
	case "isDeprecated":
		return false
	}
	return nil
}
