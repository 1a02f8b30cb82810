package compiler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/connections-cli/internal/model"
	"github.com/sells-group/connections-cli/internal/schema"
)

func sampleContacts(n int) []model.Contact {
	list := make([]model.Contact, n)
	for i := range list {
		list[i] = model.Contact{
			FirstName: fmt.Sprintf("First%d", i),
			LastName:  fmt.Sprintf("Last%d", i),
			Company:   fmt.Sprintf("Company %d", i),
			Position:  "Engineer",
		}
	}
	return list
}

func TestCorrelationID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "req-1", CorrelationID(0))
	assert.Equal(t, "req-2", CorrelationID(1))
	assert.Equal(t, "req-100", CorrelationID(99))
}

func TestCompile(t *testing.T) {
	list := sampleContacts(3)
	lines, err := Compile(list, schema.ContactEnrichment(), Options{})
	require.NoError(t, err)
	require.Len(t, lines, 3)

	for i, line := range lines {
		assert.Equal(t, fmt.Sprintf("req-%d", i+1), line.CustomID)
		assert.Equal(t, "POST", line.Method)
		assert.Equal(t, "/v1/chat/completions", line.URL)
		assert.Equal(t, "gpt-4o-mini", line.Body.Model)
		assert.Equal(t, 500, line.Body.MaxTokens)

		require.Len(t, line.Body.Messages, 2)
		assert.Equal(t, "system", line.Body.Messages[0].Role)
		assert.Equal(t, "user", line.Body.Messages[1].Role)
		assert.Contains(t, line.Body.Messages[1].Content, list[i].FirstName)
		assert.Contains(t, line.Body.Messages[1].Content, list[i].Company)

		require.NotNil(t, line.Body.ResponseFormat)
		assert.Equal(t, "json_schema", line.Body.ResponseFormat.Type)
		assert.Equal(t, schema.ContactEnrichmentName, line.Body.ResponseFormat.JSONSchema.Name)
		assert.True(t, line.Body.ResponseFormat.JSONSchema.Strict)
	}
}

func TestCompile_Empty(t *testing.T) {
	lines, err := Compile(nil, schema.ContactEnrichment(), Options{})
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCompile_Options(t *testing.T) {
	lines, err := Compile(sampleContacts(1), schema.ContactEnrichment(), Options{
		Model:      "gpt-4o",
		Endpoint:   "/v1/other",
		MaxTokens:  1000,
		SchemaName: "custom_name",
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "gpt-4o", lines[0].Body.Model)
	assert.Equal(t, "/v1/other", lines[0].URL)
	assert.Equal(t, 1000, lines[0].Body.MaxTokens)
	assert.Equal(t, "custom_name", lines[0].Body.ResponseFormat.JSONSchema.Name)
}

func TestCompile_RejectsInvalidSchema(t *testing.T) {
	bad := &schema.Node{
		Type:       "object",
		Properties: map[string]*schema.Node{"a": {Type: "string"}},
		// no required list, no additionalProperties
	}
	lines, err := Compile(sampleContacts(2), bad, Options{})
	require.Error(t, err)
	assert.Nil(t, lines)

	var invalid *schema.InvalidError
	assert.ErrorAs(t, err, &invalid)
}

func TestCompile_Deterministic(t *testing.T) {
	list := sampleContacts(5)
	first, err := Compile(list, schema.ContactEnrichment(), Options{})
	require.NoError(t, err)
	second, err := Compile(list, schema.ContactEnrichment(), Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
