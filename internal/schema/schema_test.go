package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestValidateStrict_Valid(t *testing.T) {
	t.Parallel()
	n := &Node{
		Type: "object",
		Properties: map[string]*Node{
			"name": {Type: NullableType("string")},
			"tags": {
				Type:  "array",
				Items: &Node{Type: "string"},
			},
		},
		Required:             []string{"name", "tags"},
		AdditionalProperties: boolPtr(false),
	}
	require.NoError(t, ValidateStrict(n))
}

func TestValidateStrict_Nil(t *testing.T) {
	t.Parallel()
	err := ValidateStrict(nil)
	require.Error(t, err)
	var invalid *InvalidError
	require.ErrorAs(t, err, &invalid)
	require.Len(t, invalid.Violations, 1)
	assert.Equal(t, "$", invalid.Violations[0].Path)
}

func TestValidateStrict_Violations(t *testing.T) {
	tests := []struct {
		name       string
		node       *Node
		wantPaths  []string
		wantReason string
	}{
		{
			name: "missing_additional_properties",
			node: &Node{
				Type:       "object",
				Properties: map[string]*Node{"a": {Type: "string"}},
				Required:   []string{"a"},
			},
			wantPaths:  []string{"$"},
			wantReason: "additionalProperties must be false",
		},
		{
			name: "additional_properties_true",
			node: &Node{
				Type:                 "object",
				Properties:           map[string]*Node{"a": {Type: "string"}},
				Required:             []string{"a"},
				AdditionalProperties: boolPtr(true),
			},
			wantPaths:  []string{"$"},
			wantReason: "additionalProperties must be false",
		},
		{
			name: "property_not_required",
			node: &Node{
				Type: "object",
				Properties: map[string]*Node{
					"a": {Type: "string"},
					"b": {Type: "string"},
				},
				Required:             []string{"a"},
				AdditionalProperties: boolPtr(false),
			},
			wantPaths:  []string{"$"},
			wantReason: `property "b" is not listed in required`,
		},
		{
			name: "required_without_property",
			node: &Node{
				Type:                 "object",
				Properties:           map[string]*Node{"a": {Type: "string"}},
				Required:             []string{"a", "ghost"},
				AdditionalProperties: boolPtr(false),
			},
			wantPaths:  []string{"$"},
			wantReason: `required key "ghost" has no property definition`,
		},
		{
			name: "nested_violation",
			node: &Node{
				Type: "object",
				Properties: map[string]*Node{
					"inner": {
						Type:       "object",
						Properties: map[string]*Node{"x": {Type: "string"}},
						Required:   []string{"x"},
					},
				},
				Required:             []string{"inner"},
				AdditionalProperties: boolPtr(false),
			},
			wantPaths:  []string{"$.inner"},
			wantReason: "additionalProperties must be false",
		},
		{
			name: "array_item_violation",
			node: &Node{
				Type: "array",
				Items: &Node{
					Type:       "object",
					Properties: map[string]*Node{"x": {Type: "string"}},
					Required:   []string{"x"},
				},
			},
			wantPaths:  []string{"$[]"},
			wantReason: "additionalProperties must be false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStrict(tt.node)
			require.Error(t, err)

			var invalid *InvalidError
			require.ErrorAs(t, err, &invalid)

			paths := make([]string, 0, len(invalid.Violations))
			for _, v := range invalid.Violations {
				paths = append(paths, v.Path)
			}
			for _, want := range tt.wantPaths {
				assert.Contains(t, paths, want)
			}
			assert.Contains(t, err.Error(), tt.wantReason)
		})
	}
}

func TestValidateStrict_CollectsAllViolations(t *testing.T) {
	t.Parallel()
	n := &Node{
		Type: "object",
		Properties: map[string]*Node{
			"a": {Type: "string"},
			"b": {
				Type:       "object",
				Properties: map[string]*Node{"c": {Type: "string"}},
			},
		},
	}
	err := ValidateStrict(n)
	require.Error(t, err)

	var invalid *InvalidError
	require.ErrorAs(t, err, &invalid)
	// Root: missing additionalProperties plus two unrequired properties.
	// Nested: missing additionalProperties plus one unrequired property.
	assert.Len(t, invalid.Violations, 5)
}

func TestContactEnrichment_IsStrict(t *testing.T) {
	t.Parallel()
	require.NoError(t, ValidateStrict(ContactEnrichment()))
}

func TestContactEnrichment_Serializes(t *testing.T) {
	t.Parallel()
	raw, err := json.Marshal(ContactEnrichment())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, false, doc["additionalProperties"])

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "loc")
	assert.Contains(t, props, "stats")
}

func TestCompileValidator(t *testing.T) {
	t.Parallel()
	v, err := CompileValidator(ContactEnrichment())
	require.NoError(t, err)

	var ok any
	require.NoError(t, json.Unmarshal([]byte(`{
		"loc": {"city": "Austin", "region": "TX", "country": "US", "latitude": 30.27, "longitude": -97.74},
		"stats": {"industry": "Software", "headcount_range": "11-50", "hq_country": "US"}
	}`), &ok))
	assert.NoError(t, v.Validate(ok))

	var extra any
	require.NoError(t, json.Unmarshal([]byte(`{
		"loc": null,
		"stats": null,
		"surprise": true
	}`), &extra))
	assert.Error(t, v.Validate(extra))
}

func TestNullableType(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"string", "null"}, NullableType("string"))
	assert.Equal(t, []string{"number", "null"}, NullableType("number"))
}
