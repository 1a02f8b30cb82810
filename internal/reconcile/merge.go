// Package reconcile joins a completed batch's raw output document back onto
// the original contacts by correlation id.
package reconcile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sells-group/connections-cli/internal/compiler"
	"github.com/sells-group/connections-cli/internal/model"
	"github.com/sells-group/connections-cli/pkg/openai"
)

// DecodeError reports a malformed line in the newline-delimited result
// document. The whole merge fails on it: silently dropping lines would
// shift per-row outcomes without any signal.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("reconcile: malformed result line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Options configures a merge.
type Options struct {
	// Validator, when set, checks each successfully parsed payload against
	// the submission schema. A validation failure is a per-row error, not a
	// merge failure.
	Validator *jsonschema.Schema
}

// MergeResult is the enriched view of one batch's contacts plus aggregate
// statistics. It is derived and recomputable; nothing here is persisted.
type MergeResult struct {
	Rows  []model.EnrichedRow `json:"rows"`
	Stats model.MergeStats    `json:"stats"`
}

// Merge aligns the raw result document onto the contacts by position:
// the contact at index i corresponds to correlation id req-(i+1). Contacts
// absent from the result set stay unenriched with no error (they may belong
// to a different job); per-row failures are isolated and accumulated into
// the stats. Merge is pure: identical inputs always yield identical output,
// so a client may re-fetch and re-merge after a disconnect with no side
// effects.
func Merge(list []model.Contact, raw string, opts Options) (*MergeResult, error) {
	items, err := decodeLines(raw)
	if err != nil {
		return nil, err
	}

	// Last-write-wins on duplicate correlation ids: duplicates violate the
	// submission invariant but are tolerated rather than fatal.
	byID := make(map[string]openai.ResultLine, len(items))
	for _, item := range items {
		byID[item.CustomID] = item
	}

	res := &MergeResult{
		Rows:  make([]model.EnrichedRow, len(list)),
		Stats: model.MergeStats{Total: len(list)},
	}

	for i, c := range list {
		row := model.EnrichedRow{Contact: c}
		if item, ok := byID[compiler.CorrelationID(i)]; ok {
			applyItem(&row, item, opts.Validator)
		}
		res.Rows[i] = row

		if row.Enriched {
			res.Stats.Enriched++
		}
		if row.Enrichment != nil && !row.Enrichment.Loc.Empty() {
			res.Stats.WithLocation++
		}
		if row.Enrichment != nil && !row.Enrichment.Stats.Empty() {
			res.Stats.WithStats++
		}
		if row.ErrorMessage != "" {
			res.Stats.Errors++
		}
	}
	return res, nil
}

// applyItem resolves one result item onto its row.
func applyItem(row *model.EnrichedRow, item openai.ResultLine, validator *jsonschema.Schema) {
	switch {
	case item.Error != nil:
		row.ErrorMessage = item.Error.Message
		return
	case item.Response == nil:
		row.ErrorMessage = "result item has neither response nor error"
		return
	case item.Response.StatusCode != 200:
		row.ErrorMessage = fmt.Sprintf("remote reported status %d", item.Response.StatusCode)
		return
	case len(item.Response.Body.Choices) == 0:
		row.ErrorMessage = "response contains no choices"
		return
	}

	content := item.Response.Body.Choices[0].Message.Content

	if validator != nil {
		var inst any
		if err := json.Unmarshal([]byte(content), &inst); err != nil {
			row.ErrorMessage = fmt.Sprintf("parse payload: %v", err)
			return
		}
		if err := validator.Validate(inst); err != nil {
			row.ErrorMessage = fmt.Sprintf("payload failed schema validation: %v", err)
			return
		}
	}

	var payload model.Enrichment
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		row.ErrorMessage = fmt.Sprintf("parse payload: %v", err)
		return
	}

	row.Enrichment = &payload
	row.Enriched = !payload.Empty()
}

// decodeLines parses the newline-delimited result document, skipping blank
// lines. Any malformed line fails the whole document.
func decodeLines(raw string) ([]openai.ResultLine, error) {
	var items []openai.ResultLine
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var item openai.ResultLine
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, &DecodeError{Line: lineNo, Err: err}
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, &DecodeError{Line: lineNo, Err: err}
	}
	return items, nil
}
