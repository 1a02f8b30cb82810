package openai

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	// DefaultEndpoint is the per-item route embedded in every batch line.
	DefaultEndpoint = "/v1/chat/completions"
	// DefaultCompletionWindow is the window the remote is given to finish.
	DefaultCompletionWindow = "24h"
	// FilePurposeBatch tags an uploaded artifact as batch input.
	FilePurposeBatch = "batch"
)

// EncodeLines serializes batch lines as a newline-delimited JSON document.
func EncodeLines(lines []BatchLine) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, line := range lines {
		if err := enc.Encode(line); err != nil {
			return nil, eris.Wrapf(err, "openai: encode batch line %d", i)
		}
	}
	return buf.Bytes(), nil
}

// SubmitRequest configures a two-phase batch submission.
type SubmitRequest struct {
	FileName         string
	Endpoint         string
	CompletionWindow string
	Metadata         map[string]string
}

// Submit encodes the lines as JSONL, uploads the document as a batch-input
// artifact, then opens a batch referencing it. If the open step fails after
// a successful upload, the orphaned artifact is left behind rather than
// cleaned up; the remote garbage-collects unreferenced batch inputs.
func Submit(ctx context.Context, client Client, lines []BatchLine, req SubmitRequest) (*Batch, error) {
	if req.FileName == "" {
		req.FileName = "batch-input.jsonl"
	}
	if req.Endpoint == "" {
		req.Endpoint = DefaultEndpoint
	}
	if req.CompletionWindow == "" {
		req.CompletionWindow = DefaultCompletionWindow
	}

	doc, err := EncodeLines(lines)
	if err != nil {
		return nil, err
	}

	file, err := client.UploadFile(ctx, req.FileName, FilePurposeBatch, doc)
	if err != nil {
		return nil, eris.Wrap(err, "openai: submit: upload input")
	}
	zap.L().Info("openai: batch input uploaded",
		zap.String("file_id", file.ID),
		zap.Int("requests", len(lines)),
		zap.Int64("bytes", file.Bytes),
	)

	batch, err := client.CreateBatch(ctx, CreateBatchRequest{
		InputFileID:      file.ID,
		Endpoint:         req.Endpoint,
		CompletionWindow: req.CompletionWindow,
		Metadata:         req.Metadata,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "openai: submit: create batch for file %s", file.ID)
	}
	return batch, nil
}
