package schema

import (
	"fmt"
	"strconv"

	language "github.com/hanpama/schemamap/internal/language"
)

// BuildFromSDL parses an SDL document and returns the corresponding Schema.
// Root operation types default to Query/Mutation/Subscription when no explicit
// schema definition is present.
func BuildFromSDL(sdl string) (*Schema, error) {
	doc, err := language.ParseSchema("schema.graphql", sdl)
	if err != nil {
		return nil, err
	}
	return BuildFromDocument(doc)
}

// BuildFromDocument builds a Schema from a parsed SDL document.
func BuildFromDocument(doc *language.SchemaDocument) (*Schema, error) {
	s := NewSchema()

	for _, def := range doc.Definitions {
		t, err := buildDefinition(def)
		if err != nil {
			return nil, err
		}
		s.AddType(t)
	}

	// Explicit schema definition wins; otherwise conventional root names.
	applied := false
	for _, sd := range doc.Schema {
		for _, ot := range sd.OperationTypes {
			switch ot.Operation {
			case language.Query:
				s.SetQueryType(ot.Type)
			case language.Mutation:
				s.SetMutationType(ot.Type)
			case language.Subscription:
				s.SetSubscriptionType(ot.Type)
			}
			applied = true
		}
	}
	if !applied {
		if _, ok := s.Types["Query"]; ok {
			s.SetQueryType("Query")
		}
		if _, ok := s.Types["Mutation"]; ok {
			s.SetMutationType("Mutation")
		}
		if _, ok := s.Types["Subscription"]; ok {
			s.SetSubscriptionType("Subscription")
		}
	}
	if s.QueryType == "" {
		return nil, fmt.Errorf("schema does not define a query root type")
	}
	return s, nil
}

func buildDefinition(def *language.Definition) (*Type, error) {
	switch def.Kind {
	case language.Object, language.Interface:
		kind := TypeKindObject
		if def.Kind == language.Interface {
			kind = TypeKindInterface
		}
		t := NewType(def.Name, kind)
		t.Interfaces = append(t.Interfaces, def.Interfaces...)
		for _, fd := range def.Fields {
			f, err := buildField(fd)
			if err != nil {
				return nil, err
			}
			t.AddField(f)
		}
		return t, nil
	case language.Union:
		t := NewType(def.Name, TypeKindUnion)
		t.PossibleTypes = append(t.PossibleTypes, def.Types...)
		return t, nil
	case language.Enum:
		t := NewType(def.Name, TypeKindEnum)
		for _, ev := range def.EnumValues {
			t.EnumValues = append(t.EnumValues, ev.Name)
		}
		return t, nil
	case language.Scalar:
		return NewType(def.Name, TypeKindScalar), nil
	case language.InputObject:
		t := NewType(def.Name, TypeKindInputObject)
		for _, fd := range def.Fields {
			iv, err := buildInputValue(fd.Name, fd.Type, fd.DefaultValue)
			if err != nil {
				return nil, err
			}
			t.InputFields = append(t.InputFields, iv)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported definition kind %q for type %s", def.Kind, def.Name)
	}
}

func buildField(fd *language.FieldDefinition) (*Field, error) {
	f := &Field{Name: fd.Name, Type: typeRefFromAST(fd.Type)}
	for _, ad := range fd.Arguments {
		iv, err := buildInputValue(ad.Name, ad.Type, ad.DefaultValue)
		if err != nil {
			return nil, err
		}
		f.Arguments = append(f.Arguments, iv)
	}
	return f, nil
}

func buildInputValue(name string, t *language.Type, defaultValue *language.Value) (*InputValue, error) {
	iv := &InputValue{Name: name, Type: typeRefFromAST(t)}
	if defaultValue != nil {
		v, err := constValueToGo(defaultValue)
		if err != nil {
			return nil, fmt.Errorf("default value for %s: %w", name, err)
		}
		iv.DefaultValue = v
	}
	return iv, nil
}

func typeRefFromAST(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return NonNullType(typeRefFromAST(&language.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.NamedType != "" {
		return NamedType(t.NamedType)
	}
	if t.Elem != nil {
		return ListType(typeRefFromAST(t.Elem))
	}
	return nil
}

// constValueToGo converts a constant AST value (no variables) to a Go value.
func constValueToGo(v *language.Value) (any, error) {
	switch v.Kind {
	case language.IntValue:
		iv, err := strconv.Atoi(v.Raw)
		return iv, err
	case language.FloatValue:
		return strconv.ParseFloat(v.Raw, 64)
	case language.StringValue, language.BlockValue, language.EnumValue:
		return v.Raw, nil
	case language.BooleanValue:
		return v.Raw == "true", nil
	case language.NullValue:
		return nil, nil
	case language.ListValue:
		out := make([]any, len(v.Children))
		for i, c := range v.Children {
			cv, err := constValueToGo(c.Value)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	case language.ObjectValue:
		m := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			cv, err := constValueToGo(c.Value)
			if err != nil {
				return nil, err
			}
			m[c.Name] = cv
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported constant value kind %d", v.Kind)
	}
}
