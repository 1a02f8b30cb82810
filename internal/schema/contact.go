package schema

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ContactEnrichmentName is the schema name sent in each request's
// response_format block.
const ContactEnrichmentName = "contact_enrichment"

// ContactEnrichment returns the output schema for contact enrichment:
// a geolocation block and a company-stats block, every field mandatory but
// nullable per the strict-mode contract.
func ContactEnrichment() *Node {
	no := false
	return &Node{
		Type: "object",
		Properties: map[string]*Node{
			"loc": {
				Type: NullableType("object"),
				Properties: map[string]*Node{
					"city":      {Type: NullableType("string"), Description: "City of the contact's most likely current location"},
					"region":    {Type: NullableType("string"), Description: "State, province or region"},
					"country":   {Type: NullableType("string"), Description: "ISO 3166-1 alpha-2 country code"},
					"latitude":  {Type: NullableType("number")},
					"longitude": {Type: NullableType("number")},
				},
				Required:             []string{"city", "region", "country", "latitude", "longitude"},
				AdditionalProperties: &no,
			},
			"stats": {
				Type: NullableType("object"),
				Properties: map[string]*Node{
					"industry":        {Type: NullableType("string")},
					"headcount_range": {Type: NullableType("string"), Description: "e.g. 1-10, 11-50, 51-200"},
					"hq_country":      {Type: NullableType("string")},
				},
				Required:             []string{"industry", "headcount_range", "hq_country"},
				AdditionalProperties: &no,
			},
		},
		Required:             []string{"loc", "stats"},
		AdditionalProperties: &no,
	}
}

// CompileValidator compiles a schema node into an instance validator used by
// the reconciler to check extracted payloads.
func CompileValidator(n *Node) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(n)
	if err != nil {
		return nil, eris.Wrap(err, "schema: marshal")
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("batch-schema.json", bytes.NewReader(raw)); err != nil {
		return nil, eris.Wrap(err, "schema: add resource")
	}
	compiled, err := c.Compile("batch-schema.json")
	if err != nil {
		return nil, eris.Wrap(err, "schema: compile")
	}
	return compiled, nil
}
