// Package compiler turns parsed contacts into a schema-constrained batch
// submission document.
package compiler

import (
	"fmt"
	"net/http"

	"github.com/sells-group/connections-cli/internal/contacts"
	"github.com/sells-group/connections-cli/internal/model"
	"github.com/sells-group/connections-cli/internal/schema"
	"github.com/sells-group/connections-cli/pkg/openai"
)

// systemPrompt is the fixed instruction sent with every request.
const systemPrompt = "You are a data enrichment assistant. Given a professional contact's name, company and role, infer their most likely current location and basic facts about their company. Use null for any field you cannot infer with reasonable confidence. Respond only with the requested JSON."

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 500
)

// Options configures compilation. Zero values take documented defaults.
type Options struct {
	Model      string
	Endpoint   string
	MaxTokens  int
	SchemaName string
}

// CorrelationID returns the correlation id for the contact at zero-based
// index i. For a batch of N contacts the ids are exactly req-1..req-N; this
// positional contract is the only join key between a contact and its result.
func CorrelationID(i int) string {
	return fmt.Sprintf("req-%d", i+1)
}

// Compile builds one batch line per contact. The schema is validated against
// the strict-mode contract first and compilation fails closed on any
// violation: the remote rejects the whole job for a single bad node, so no
// partially-correct request set is ever produced. Compile is pure and
// deterministic, so a failed compile-and-submit can be retried without side
// effects.
func Compile(list []model.Contact, node *schema.Node, opts Options) ([]openai.BatchLine, error) {
	if err := schema.ValidateStrict(node); err != nil {
		return nil, err
	}

	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Endpoint == "" {
		opts.Endpoint = openai.DefaultEndpoint
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.SchemaName == "" {
		opts.SchemaName = schema.ContactEnrichmentName
	}

	lines := make([]openai.BatchLine, len(list))
	for i, c := range list {
		lines[i] = openai.BatchLine{
			CustomID: CorrelationID(i),
			Method:   http.MethodPost,
			URL:      opts.Endpoint,
			Body: openai.ChatBody{
				Model:     opts.Model,
				MaxTokens: opts.MaxTokens,
				Messages: []openai.Message{
					{Role: "system", Content: systemPrompt},
					{Role: "user", Content: contacts.Prompt(c)},
				},
				ResponseFormat: &openai.ResponseFormat{
					Type: "json_schema",
					JSONSchema: openai.JSONSchemaSpec{
						Name:   opts.SchemaName,
						Strict: true,
						Schema: node,
					},
				},
			},
		}
	}
	return lines, nil
}
