// Package schema defines the JSON shape contract sent with every batch
// request and the strict-mode rules the remote service enforces on it.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Node is one node of a batch output schema: a restricted JSON Schema
// subset. Type is either a single type name or a union list (used for
// mandatory-but-nullable fields, e.g. ["string","null"]).
type Node struct {
	Type                 any              `json:"type,omitempty"`
	Description          string           `json:"description,omitempty"`
	Properties           map[string]*Node `json:"properties,omitempty"`
	Required             []string         `json:"required,omitempty"`
	AdditionalProperties *bool            `json:"additionalProperties,omitempty"`
	Items                *Node            `json:"items,omitempty"`
}

// NullableType builds a union type of t with null.
func NullableType(t string) []string {
	return []string{t, "null"}
}

// Violation records one strict-mode rule broken at a schema node.
type Violation struct {
	Path   string
	Reason string
}

// InvalidError reports every strict-mode violation found in a schema. The
// remote service rejects the entire job on any single violation, so the
// compiler fails closed before anything is uploaded.
type InvalidError struct {
	Violations []Violation
}

func (e *InvalidError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Path, v.Reason)
	}
	return "schema: strict-mode violations: " + strings.Join(parts, "; ")
}

// ValidateStrict checks the recursive strict-mode invariant: every object
// node must list all of its property keys as required (no optional keys,
// nullability is expressed in the type union) and must forbid additional
// properties. Returns an *InvalidError naming every offending node path.
func ValidateStrict(root *Node) error {
	if root == nil {
		return &InvalidError{Violations: []Violation{{Path: "$", Reason: "schema is nil"}}}
	}
	var violations []Violation
	walkStrict(root, "$", &violations)
	if len(violations) > 0 {
		return &InvalidError{Violations: violations}
	}
	return nil
}

func walkStrict(n *Node, path string, violations *[]Violation) {
	if n.isObject() {
		if n.AdditionalProperties == nil || *n.AdditionalProperties {
			*violations = append(*violations, Violation{
				Path:   path,
				Reason: "additionalProperties must be false",
			})
		}
		required := make(map[string]bool, len(n.Required))
		for _, k := range n.Required {
			required[k] = true
		}
		for _, k := range sortedKeys(n.Properties) {
			if !required[k] {
				*violations = append(*violations, Violation{
					Path:   path,
					Reason: fmt.Sprintf("property %q is not listed in required", k),
				})
			}
		}
		for _, k := range n.Required {
			if _, ok := n.Properties[k]; !ok {
				*violations = append(*violations, Violation{
					Path:   path,
					Reason: fmt.Sprintf("required key %q has no property definition", k),
				})
			}
		}
	}
	for _, k := range sortedKeys(n.Properties) {
		walkStrict(n.Properties[k], path+"."+k, violations)
	}
	if n.Items != nil {
		walkStrict(n.Items, path+"[]", violations)
	}
}

// isObject treats any node with properties as an object, plus nodes whose
// declared type (single or union) includes "object".
func (n *Node) isObject() bool {
	if len(n.Properties) > 0 {
		return true
	}
	switch t := n.Type.(type) {
	case string:
		return t == "object"
	case []string:
		for _, s := range t {
			if s == "object" {
				return true
			}
		}
	case []any:
		for _, s := range t {
			if s == "object" {
				return true
			}
		}
	}
	return false
}

func sortedKeys(m map[string]*Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
