package schemamap

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// resolveParameters materializes the call arguments for one invocation by
// running each parameter descriptor against the field context. The first
// unresolvable parameter aborts the invocation.
func resolveParameters(ctx context.Context, d *HandlerDescriptor, fc *FieldContext, c *Coordinator) ([]reflect.Value, error) {
	in := make([]reflect.Value, len(d.Params))
	for i, p := range d.Params {
		v, err := resolveParameter(ctx, p, fc, c)
		if err != nil {
			name := p.Name
			if name == "" {
				name = fmt.Sprintf("#%d (%s)", i, p.Type)
			}
			return nil, &ArgumentResolutionError{Parameter: name, Cause: err}
		}
		in[i] = v
	}
	return in, nil
}

func resolveParameter(ctx context.Context, p ParameterDescriptor, fc *FieldContext, c *Coordinator) (reflect.Value, error) {
	switch p.Source {
	case SourceExecutionContext:
		if p.Type == ctxType {
			return reflect.ValueOf(ctx), nil
		}
		return reflect.ValueOf(fc), nil

	case SourceContextBag:
		if fc.Bag == nil {
			return reflect.Value{}, fmt.Errorf("no context bag in scope")
		}
		return reflect.ValueOf(fc.Bag), nil

	case SourceBatchLoader:
		if c == nil {
			return reflect.Value{}, fmt.Errorf("no batch coordinator in scope")
		}
		reg, ok := c.registry.lookupHandle(p.Type)
		if !ok {
			return reflect.Value{}, &UnregisteredLoaderError{KeyType: p.keyType, ValueType: p.valueType}
		}
		return reg.makeHandle(c), nil

	case SourceParent:
		return coerceParent(fc.Parent, p.Type)

	default: // SourceNamedArgument, SourceObjectArgument
		raw, ok := fc.Args[p.Name]
		if !ok || raw == nil {
			if p.Required {
				return reflect.Value{}, fmt.Errorf("required argument %q is missing", p.Name)
			}
			return reflect.Zero(p.Type), nil
		}
		return coerceToType(raw, p.Type, p.Name)
	}
}

func coerceParent(parent any, t reflect.Type) (reflect.Value, error) {
	if parent == nil {
		return reflect.Zero(t), nil
	}
	pv := reflect.ValueOf(parent)
	if pv.Type().AssignableTo(t) {
		return pv, nil
	}
	if m, ok := parent.(map[string]any); ok {
		return coerceToType(m, t, "")
	}
	return reflect.Value{}, fmt.Errorf("parent value %s is not assignable to %s", pv.Type(), t)
}

// coerceToType converts a raw argument value, as produced by schema-level
// input coercion, into the handler's declared parameter type. Struct fields
// match by their `graphql` tag first, then by exact field name; a field
// tagged `,nonnull` must be present.
func coerceToType(raw any, t reflect.Type, path string) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(raw)
	if rv.IsValid() && rv.Type().AssignableTo(t) && t.Kind() != reflect.Interface {
		return rv, nil
	}

	switch t.Kind() {
	case reflect.Interface:
		if t.NumMethod() == 0 {
			if raw == nil {
				return reflect.Zero(t), nil
			}
			return reflect.ValueOf(raw), nil
		}

	case reflect.Pointer:
		ev, err := coerceToType(raw, t.Elem(), path)
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(ev)
		return p, nil

	case reflect.Struct:
		m, ok := raw.(map[string]any)
		if !ok {
			return reflect.Value{}, &CoercionError{Path: path, Target: t, Message: fmt.Sprintf("expected an input object, got %T", raw)}
		}
		return coerceStruct(m, t, path)

	case reflect.Slice:
		list, ok := raw.([]any)
		if !ok {
			// Single values coerce as a one-element list.
			list = []any{raw}
		}
		out := reflect.MakeSlice(t, len(list), len(list))
		for i, item := range list {
			ev, err := coerceToType(item, t.Elem(), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
		return out, nil

	case reflect.String:
		if s, ok := raw.(string); ok {
			return reflect.ValueOf(s).Convert(t), nil
		}

	case reflect.Bool:
		if b, ok := raw.(bool); ok {
			return reflect.ValueOf(b).Convert(t), nil
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, ok := toInt64(raw); ok {
			return reflect.ValueOf(n).Convert(t), nil
		}

	case reflect.Float32, reflect.Float64:
		if f, ok := toFloat64(raw); ok {
			return reflect.ValueOf(f).Convert(t), nil
		}

	case reflect.Map:
		if m, ok := raw.(map[string]any); ok && t.Key().Kind() == reflect.String {
			out := reflect.MakeMapWithSize(t, len(m))
			for k, v := range m {
				ev, err := coerceToType(v, t.Elem(), path+"."+k)
				if err != nil {
					return reflect.Value{}, err
				}
				out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), ev)
			}
			return out, nil
		}
	}

	return reflect.Value{}, &CoercionError{Path: path, Target: t, Message: fmt.Sprintf("incompatible value of type %T", raw)}
}

func coerceStruct(m map[string]any, t reflect.Type, path string) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, required := inputFieldName(f)
		raw, ok := m[name]
		if !ok || raw == nil {
			if required {
				return reflect.Value{}, &CoercionError{Path: path + "." + name, Target: f.Type, Message: "required field is missing"}
			}
			continue
		}
		fv, err := coerceToType(raw, f.Type, path+"."+name)
		if err != nil {
			return reflect.Value{}, err
		}
		out.Field(i).Set(fv)
	}
	return out, nil
}

func inputFieldName(f reflect.StructField) (name string, required bool) {
	name = f.Name
	tag, ok := f.Tag.Lookup("graphql")
	if !ok {
		return name, false
	}
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "nonnull" {
			required = true
		}
	}
	return name, required
}

func toInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func toFloat64(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
