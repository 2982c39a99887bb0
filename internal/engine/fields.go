package engine

import (
	"fmt"

	language "github.com/hanpama/schemamap/internal/language"
	schema "github.com/hanpama/schemamap/internal/schema"
)

// collectedFieldMap preserves field order from the original query.
type collectedFieldMap struct {
	fields []collectedField
	index  map[string]int
}

type collectedField struct {
	responseName string
	fields       []*language.Field
}

func newCollectedFieldMap() *collectedFieldMap {
	return &collectedFieldMap{index: make(map[string]int)}
}

func (cfm *collectedFieldMap) add(responseName string, field *language.Field) {
	if idx, exists := cfm.index[responseName]; exists {
		cfm.fields[idx].fields = append(cfm.fields[idx].fields, field)
	} else {
		cfm.index[responseName] = len(cfm.fields)
		cfm.fields = append(cfm.fields, collectedField{
			responseName: responseName,
			fields:       []*language.Field{field},
		})
	}
}

func (cfm *collectedFieldMap) orderedFields() []collectedField {
	return cfm.fields
}

// collectFields groups a selection set's fields by response name, expanding
// fragments and honoring @skip/@include.
func collectFields(s *execution, objectType *schema.Type, selectionSet language.SelectionSet) *collectedFieldMap {
	grouped := newCollectedFieldMap()
	visited := make(map[string]bool)
	collectFieldsImpl(s, objectType, selectionSet, grouped, visited)
	return grouped
}

func collectFieldsImpl(s *execution, objectType *schema.Type, selectionSet language.SelectionSet, grouped *collectedFieldMap, visitedFragments map[string]bool) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if !shouldIncludeNode(s, sel.Directives) {
				continue
			}
			responseName := sel.Alias
			if responseName == "" {
				responseName = sel.Name
			}
			grouped.add(responseName, sel)

		case *language.InlineFragment:
			if !shouldIncludeNode(s, sel.Directives) {
				continue
			}
			if !fragmentApplies(s, sel.TypeCondition, objectType) {
				continue
			}
			collectFieldsImpl(s, objectType, sel.SelectionSet, grouped, visitedFragments)

		case *language.FragmentSpread:
			if !shouldIncludeNode(s, sel.Directives) {
				continue
			}
			if visitedFragments[sel.Name] {
				continue
			}
			visitedFragments[sel.Name] = true

			fragmentDef := getFragmentDefinition(s.document, sel.Name)
			if fragmentDef == nil {
				continue
			}
			if !fragmentApplies(s, fragmentDef.TypeCondition, objectType) {
				continue
			}
			if !shouldIncludeNode(s, fragmentDef.Directives) {
				continue
			}
			collectFieldsImpl(s, objectType, fragmentDef.SelectionSet, grouped, visitedFragments)
		}
	}
}

// fragmentApplies reports whether a fragment's type condition matches the
// concrete object type, either directly or through an implemented interface or
// union membership.
func fragmentApplies(s *execution, typeCondition string, objectType *schema.Type) bool {
	if typeCondition == "" || typeCondition == objectType.Name {
		return true
	}
	for _, iface := range objectType.Interfaces {
		if iface == typeCondition {
			return true
		}
	}
	if cond := s.schema.Types[typeCondition]; cond != nil && cond.Kind == schema.TypeKindUnion {
		for _, possible := range cond.PossibleTypes {
			if possible == objectType.Name {
				return true
			}
		}
	}
	return false
}

// shouldIncludeNode checks @skip and @include.
func shouldIncludeNode(s *execution, directives language.DirectiveList) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if cond, err := getDirectiveArgumentValue(s, skip, "if"); err == nil {
			if b, ok := cond.(bool); ok && b {
				return false
			}
		}
	}
	if include := directives.ForName("include"); include != nil {
		if cond, err := getDirectiveArgumentValue(s, include, "if"); err == nil {
			if b, ok := cond.(bool); ok && !b {
				return false
			}
		}
	}
	return true
}

func getDirectiveArgumentValue(s *execution, directive *language.Directive, argName string) (any, error) {
	for _, arg := range directive.Arguments {
		if arg.Name == argName {
			return valueFromASTWithVars(arg.Value, s.variableValues), nil
		}
	}
	return nil, fmt.Errorf("argument %s not found", argName)
}

func getFragmentDefinition(document *language.QueryDocument, name string) *language.FragmentDefinition {
	if fd := document.Fragments.ForName(name); fd != nil {
		return fd
	}
	return nil
}
