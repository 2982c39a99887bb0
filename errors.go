package schemamap

import (
	"fmt"
	"reflect"
)

// DuplicateBindingError reports a second handler bound to an already-bound
// (type, field) pair. Configuration-time; registration fails fast.
type DuplicateBindingError struct {
	TypeName string
	Field    string
}

func (e *DuplicateBindingError) Error() string {
	return fmt.Sprintf("handler already bound for %s.%s", e.TypeName, e.Field)
}

// DuplicateLoaderError reports a second batch loader registered for the same
// key/value type pair. Configuration-time; registration fails fast.
type DuplicateLoaderError struct {
	KeyType   reflect.Type
	ValueType reflect.Type
}

func (e *DuplicateLoaderError) Error() string {
	return fmt.Sprintf("batch loader already registered for (%s, %s)", e.KeyType, e.ValueType)
}

// UnregisteredLoaderError reports a handler parameter requesting a loader
// handle for a key/value type pair that has no registration.
type UnregisteredLoaderError struct {
	KeyType   reflect.Type
	ValueType reflect.Type
}

func (e *UnregisteredLoaderError) Error() string {
	return fmt.Sprintf("no batch loader registered for (%s, %s)", e.KeyType, e.ValueType)
}

// ArgumentResolutionError reports that a handler parameter could not be
// produced from the field-resolution context. It surfaces as a field-level
// error on the failing field only.
type ArgumentResolutionError struct {
	Parameter string
	Cause     error
}

func (e *ArgumentResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve parameter %q: %v", e.Parameter, e.Cause)
}

func (e *ArgumentResolutionError) Unwrap() error { return e.Cause }

// CoercionError reports a raw argument value that cannot be converted into
// the declared parameter type.
type CoercionError struct {
	Path    string
	Target  reflect.Type
	Message string
}

func (e *CoercionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("cannot coerce %s into %s: %s", e.Path, e.Target, e.Message)
	}
	return fmt.Sprintf("cannot coerce value into %s: %s", e.Target, e.Message)
}

// BatchLoadError reports a batching function failure. Every caller pending on
// that batch receives the same error.
type BatchLoadError struct {
	Cause error
}

func (e *BatchLoadError) Error() string {
	return fmt.Sprintf("batch load failed: %v", e.Cause)
}

func (e *BatchLoadError) Unwrap() error { return e.Cause }

// ApplicationError reports a fault recovered from a handler invocation. It is
// confined to the failing field and never propagated as a process fault.
type ApplicationError struct {
	Recovered any
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Recovered)
}
