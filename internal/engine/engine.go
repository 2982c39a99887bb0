package engine

import (
	"context"
	"fmt"
	"reflect"

	language "github.com/hanpama/schemamap/internal/language"
	schema "github.com/hanpama/schemamap/internal/schema"
)

// Path locates a field in the response tree.
type Path []PathElement

type PathElement any

// execution holds the state of one execution pass.
type execution struct {
	runtime        Runtime
	schema         *schema.Schema
	document       *language.QueryDocument
	variableValues map[string]any
	ctx            context.Context
	// Deferred field resolutions collected at the current depth.
	wave []pendingField
	// Pending fields by id, for completion bookkeeping.
	waveInfo map[uint64]pendingField
	nextID   uint64
	errors   []FieldError
	// Prefixes of paths that have been nullified (tombstoned).
	nullified map[string]struct{}
}

// pendingField is a deferred field resolution queued for the current wave.
type pendingField struct {
	id        uint64
	task      FieldTask
	fieldType *schema.TypeRef
	fields    []*language.Field
}

// deferredMark is written into the response tree where a wave result will land.
type deferredMark struct{}

// Engine executes operations against a schema through an injected Runtime.
type Engine struct {
	runtime Runtime
	schema  *schema.Schema
}

func New(runtime Runtime, s *schema.Schema) *Engine {
	return &Engine{runtime: runtime, schema: s}
}

// Execute runs a query or mutation operation to completion.
func (e *Engine) Execute(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *Result {
	operation := getOperation(document, operationName)
	if operation == nil {
		return &Result{Errors: []FieldError{{Message: "operation not found"}}}
	}
	if operation.Operation == language.Subscription {
		return &Result{Errors: []FieldError{{Message: "subscription operations must be executed through Subscribe"}}}
	}

	coerced, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return &Result{Errors: []FieldError{{Message: err.Error()}}}
	}

	var rootType *schema.Type
	switch operation.Operation {
	case language.Query:
		rootType = e.schema.GetQueryType()
	case language.Mutation:
		rootType = e.schema.GetMutationType()
	}
	if rootType == nil {
		return &Result{Errors: []FieldError{{Message: fmt.Sprintf("root type not found for %s operation", operation.Operation)}}}
	}

	ctx = e.runtime.NewRequestScope(ctx)
	state := e.newExecution(ctx, document, coerced)
	return state.run(rootType, operation.SelectionSet, initialValue)
}

func (e *Engine) newExecution(ctx context.Context, document *language.QueryDocument, variables map[string]any) *execution {
	return &execution{
		runtime:        e.runtime,
		schema:         e.schema,
		document:       document,
		variableValues: variables,
		ctx:            ctx,
		waveInfo:       make(map[uint64]pendingField),
		nextID:         1,
		errors:         []FieldError{},
		nullified:      make(map[string]struct{}),
	}
}

// run expands the root selection set and drains waves until none remain.
func (s *execution) run(rootType *schema.Type, selectionSet language.SelectionSet, initialValue any) *Result {
	responseRoot := make(map[string]any)
	for k, v := range s.executeSelectionSet(rootType, selectionSet, initialValue, Path{}) {
		responseRoot[k] = v
	}

	s.drainWaves(responseRoot)

	return &Result{Data: responseRoot, Errors: s.errors}
}

// drainWaves repeatedly dispatches and completes waves until no deferred
// fields remain.
func (s *execution) drainWaves(responseRoot map[string]any) {
	for len(s.wave) > 0 {
		live, results := s.runWave()
		for i, r := range results {
			s.completeWaveResult(live[i], r, responseRoot)
		}
	}
}

// executeSelectionSet executes a selection set without flushing a wave.
func (s *execution) executeSelectionSet(objectType *schema.Type, selectionSet language.SelectionSet, objectValue any, path Path) map[string]any {
	grouped := collectFields(s, objectType, selectionSet)
	resultMap := make(map[string]any)

	for _, cf := range grouped.orderedFields() {
		responseName := cf.responseName
		fields := cf.fields
		fieldPath := appendPath(path, responseName)

		fieldResult := s.executeFieldGroup(objectType, objectValue, fields, fieldPath)

		if fields[0].Name == "__typename" {
			resultMap[responseName] = fieldResult
			continue
		}

		fieldDef := objectType.GetField(fields[0].Name)
		if fieldDef == nil {
			// Unknown field; error already recorded. Do not include it.
			continue
		}

		if schema.IsNonNull(fieldDef.Type) && isNullish(fieldResult) {
			if len(path) > 0 {
				return nil
			}
			resultMap[responseName] = nil
			continue
		}

		if isNullish(fieldResult) {
			resultMap[responseName] = nil
		} else {
			resultMap[responseName] = fieldResult
		}
	}

	return resultMap
}

func (s *execution) executeFieldGroup(objectType *schema.Type, objectValue any, fields []*language.Field, path Path) any {
	field := fields[0]
	fieldName := field.Name

	if fieldName == "__typename" {
		return objectType.Name
	}

	fieldDef := objectType.GetField(fieldName)
	if fieldDef == nil {
		s.addError(fmt.Sprintf("Cannot query field '%s' on type '%s'", fieldName, objectType.Name), path)
		return nil
	}

	argumentValues := coerceArgumentValues(fieldDef, field.Arguments, s.variableValues, s, path)
	task := FieldTask{
		ObjectType: objectType.Name,
		Field:      fieldName,
		Source:     objectValue,
		Args:       argumentValues,
		Path:       path,
	}

	if !fieldDef.Async {
		value, err := s.runtime.ResolveField(s.ctx, task)
		if err != nil {
			s.addError(err.Error(), path)
			return nil
		}
		return s.completeValue(fieldDef.Type, fields, value, path)
	}

	id := s.nextID
	s.nextID++
	pf := pendingField{id: id, task: task, fieldType: fieldDef.Type, fields: fields}
	s.wave = append(s.wave, pf)
	s.waveInfo[id] = pf
	return deferredMark{}
}

// runWave hands the current depth's deferred tasks to the runtime in one call.
// Tasks under tombstoned paths are dropped before dispatch.
func (s *execution) runWave() ([]pendingField, []FieldResult) {
	live := make([]pendingField, 0, len(s.wave))
	for _, pf := range s.wave {
		if s.hasNullifiedPrefix(pf.task.Path) {
			delete(s.waveInfo, pf.id)
			continue
		}
		live = append(live, pf)
	}

	tasks := make([]FieldTask, len(live))
	for i, pf := range live {
		tasks[i] = pf.task
	}

	s.wave = nil

	if len(tasks) == 0 {
		return nil, nil
	}
	return live, s.runtime.ResolveWave(s.ctx, tasks)
}

// completeWaveResult completes one wave result, with Non-Null propagation.
func (s *execution) completeWaveResult(pf pendingField, res FieldResult, responseRoot map[string]any) {
	delete(s.waveInfo, pf.id)

	path := pf.task.Path
	if s.hasNullifiedPrefix(path) {
		return
	}

	if res.Err != nil {
		s.addError(res.Err.Error(), path)
		if schema.IsNonNull(pf.fieldType) {
			top := topLevelFieldPath(path)
			setValueAtPath(responseRoot, top, nil)
			s.markNullifiedPrefix(top)
			return
		}
		setValueAtPath(responseRoot, path, nil)
		return
	}

	completed := s.completeValue(pf.fieldType, pf.fields, res.Value, path)

	if schema.IsNonNull(pf.fieldType) && isNullish(completed) {
		top := topLevelFieldPath(path)
		setValueAtPath(responseRoot, top, nil)
		s.markNullifiedPrefix(top)
		return
	}

	if isNullish(completed) {
		setValueAtPath(responseRoot, path, nil)
	} else {
		setValueAtPath(responseRoot, path, completed)
	}
}

func (s *execution) completeValue(fieldType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	if schema.IsNonNull(fieldType) {
		if isNullish(result) {
			if !s.hasErrorAtPath(path) {
				s.addError(fmt.Sprintf("Cannot return null for non-nullable field %s", pathToString(path)), path)
			}
			return nil
		}
		completed := s.completeValue(schema.Unwrap(fieldType), fields, result, path)
		if isNullish(completed) {
			// Error already recorded at the original path; propagate only.
			return nil
		}
		return completed
	}

	if isNullish(result) {
		return nil
	}

	if schema.IsList(fieldType) {
		return s.completeListValue(fieldType, fields, result, path)
	}

	namedType := schema.GetNamedType(fieldType)
	typeObj := s.schema.Types[namedType]
	if typeObj == nil {
		s.addError(fmt.Sprintf("Unknown type: %s", namedType), path)
		return nil
	}

	switch typeObj.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		serialized, err := s.runtime.SerializeLeaf(s.ctx, namedType, result)
		if err != nil {
			s.addError(err.Error(), path)
			return nil
		}
		return serialized
	case schema.TypeKindObject:
		return s.completeObjectValue(typeObj, fields, result, path)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		return s.completeAbstractValue(namedType, fields, result, path)
	default:
		s.addError(fmt.Sprintf("Cannot complete value of unexpected type: %s", typeObj.Kind), path)
		return nil
	}
}

func (s *execution) completeListValue(listType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	var items []any
	if direct, ok := result.([]any); ok {
		items = direct
	} else {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice {
			s.addError(fmt.Sprintf("Expected list value, got %T", result), path)
			return nil
		}
		items = make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := schema.Unwrap(listType)
	completed := make([]any, len(items))
	for i, item := range items {
		p := appendPath(path, i)
		v := s.completeValue(inner, fields, item, p)
		if schema.IsNonNull(inner) && isNullish(v) {
			// Error already recorded by inner completion; null the whole list.
			return nil
		}
		completed[i] = v
	}
	return completed
}

func (s *execution) completeObjectValue(objectType *schema.Type, fields []*language.Field, result any, path Path) any {
	sub := mergeSelectionSets(fields)
	return s.executeSelectionSet(objectType, sub, result, path)
}

func (s *execution) completeAbstractValue(abstractTypeName string, fields []*language.Field, result any, path Path) any {
	typeName, err := s.runtime.ResolveType(s.ctx, abstractTypeName, result)
	if err != nil {
		s.addError(err.Error(), path)
		return nil
	}
	objectType := s.schema.Types[typeName]
	if objectType == nil || objectType.Kind != schema.TypeKindObject {
		s.addError(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstractTypeName, typeName), path)
		return nil
	}
	return s.completeObjectValue(objectType, fields, result, path)
}

func pathToString(path Path) string {
	result := ""
	for i, elem := range path {
		if i > 0 {
			result += "."
		}
		switch v := elem.(type) {
		case string:
			result += v
		case int:
			result += fmt.Sprintf("[%d]", v)
		}
	}
	return result
}

func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}

func (s *execution) markNullifiedPrefix(p Path) {
	key := pathToString(p)
	if key != "" {
		s.nullified[key] = struct{}{}
	}
}

func (s *execution) hasNullifiedPrefix(p Path) bool {
	if len(s.nullified) == 0 {
		return false
	}
	cur := Path{}
	for _, elem := range p {
		cur = append(cur, elem)
		if _, ok := s.nullified[pathToString(cur)]; ok {
			return true
		}
	}
	return false
}

func topLevelFieldPath(p Path) Path {
	for _, elem := range p {
		if name, ok := elem.(string); ok {
			return Path{name}
		}
	}
	return Path{}
}

func getOperation(document *language.QueryDocument, operationName string) *language.OperationDefinition {
	if operationName == "" && len(document.Operations) == 1 {
		for _, op := range document.Operations {
			return op
		}
	}
	for _, op := range document.Operations {
		if op.Name == operationName {
			return op
		}
	}
	return nil
}

func (s *execution) addError(message string, path Path) {
	s.errors = append(s.errors, FieldError{Message: message, Path: path})
}

// hasErrorAtPath reports whether an error with the given path already exists.
func (s *execution) hasErrorAtPath(path Path) bool {
	for _, err := range s.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}

// setValueAtPath writes value at path in the response tree.
func setValueAtPath(responseRoot map[string]any, path Path, value any) {
	if len(path) == 0 {
		return
	}
	if len(path) == 1 {
		if key, ok := path[0].(string); ok {
			responseRoot[key] = value
			return
		}
	}
	current := any(responseRoot)
	for _, elem := range path[:len(path)-1] {
		switch e := elem.(type) {
		case string:
			m, ok := current.(map[string]any)
			if !ok {
				return
			}
			next, exists := m[e]
			if !exists {
				next = make(map[string]any)
				m[e] = next
			}
			current = next
		case int:
			slice, ok := current.([]any)
			if !ok {
				return
			}
			for len(slice) <= e {
				slice = append(slice, nil)
			}
			if slice[e] == nil {
				slice[e] = make(map[string]any)
			}
			current = slice[e]
		}
	}
	switch fe := path[len(path)-1].(type) {
	case string:
		if m, ok := current.(map[string]any); ok {
			m[fe] = value
		}
	case int:
		if slice, ok := current.([]any); ok {
			for len(slice) <= fe {
				slice = append(slice, nil)
			}
			slice[fe] = value
		}
	}
}

func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

// isNullish returns true for nil interfaces and typed nils.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	if _, ok := v.(deferredMark); ok {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
