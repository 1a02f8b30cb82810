package openai

// BatchLine is one line of the JSONL input document: a single embedded
// chat-completions request addressed by custom_id.
type BatchLine struct {
	CustomID string   `json:"custom_id"`
	Method   string   `json:"method"`
	URL      string   `json:"url"`
	Body     ChatBody `json:"body"`
}

// ChatBody is the embedded chat-completions request body.
type ChatBody struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
}

// Message is a single conversational message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat constrains the model output to a JSON schema.
type ResponseFormat struct {
	Type       string         `json:"type"` // "json_schema"
	JSONSchema JSONSchemaSpec `json:"json_schema"`
}

// JSONSchemaSpec names a schema and requests strict enforcement. Schema is
// kept opaque here; callers supply their own schema document type.
type JSONSchemaSpec struct {
	Name   string `json:"name"`
	Strict bool   `json:"strict"`
	Schema any    `json:"schema"`
}

// File is the remote record of an uploaded artifact.
type File struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Bytes    int64  `json:"bytes"`
	Purpose  string `json:"purpose"`
}

// RequestCounts tallies batch progress as reported by the remote.
type RequestCounts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Batch is the remote batch job resource.
type Batch struct {
	ID               string            `json:"id"`
	Status           string            `json:"status"`
	Endpoint         string            `json:"endpoint"`
	InputFileID      string            `json:"input_file_id"`
	OutputFileID     string            `json:"output_file_id"`
	ErrorFileID      string            `json:"error_file_id"`
	CompletionWindow string            `json:"completion_window"`
	CreatedAt        int64             `json:"created_at"`
	RequestCounts    RequestCounts     `json:"request_counts"`
	Metadata         map[string]string `json:"metadata"`
}

// CreateBatchRequest is the body for POST /batches.
type CreateBatchRequest struct {
	InputFileID      string            `json:"input_file_id"`
	Endpoint         string            `json:"endpoint"`
	CompletionWindow string            `json:"completion_window"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// ResultLine is one line of a batch's JSONL output document. Exactly one of
// Response or Error is set.
type ResultLine struct {
	ID       string          `json:"id,omitempty"`
	CustomID string          `json:"custom_id"`
	Response *ResultResponse `json:"response,omitempty"`
	Error    *ResultError    `json:"error,omitempty"`
}

// ResultResponse is the per-item HTTP-shaped success envelope.
type ResultResponse struct {
	StatusCode int            `json:"status_code"`
	Body       ChatCompletion `json:"body"`
}

// ChatCompletion is the subset of the chat-completions response the
// reconciler consumes.
type ChatCompletion struct {
	Choices []Choice `json:"choices"`
}

// Choice is one completion choice.
type Choice struct {
	Message ChoiceMessage `json:"message"`
}

// ChoiceMessage carries the model output; Content is a JSON string when a
// response_format schema was requested.
type ChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResultError is the per-item failure envelope.
type ResultError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
