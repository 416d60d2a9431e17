package domain

import (
	"bytes"
	"encoding/json"
)

// RoleUser is the role of the prompt message.
const RoleUser = "user"

// ContentTypeText is the only content block type the dashboard sends.
const ContentTypeText = "text"

// ContentBlock is one typed part of a message.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Message is a single turn sent to an agent.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// RunRequest is the body of an agent :run call.
type RunRequest struct {
	Messages []Message `json:"messages"`
}

// NewRunRequest wraps a free-text prompt into a single user message with one
// text block.
func NewRunRequest(prompt string) RunRequest {
	return RunRequest{
		Messages: []Message{{
			Role:    RoleUser,
			Content: []ContentBlock{{Type: ContentTypeText, Text: prompt}},
		}},
	}
}

// Encode returns the compact JSON body. The prompt is not HTML-escaped so the
// agent receives exactly what the user typed.
func (r RunRequest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// RunResponse is the raw result of an agent :run call. Its shape is decided
// by the remote agent, so it is kept opaque and displayed verbatim.
type RunResponse struct {
	StatusCode  int    `json:"statusCode"`
	ContentType string `json:"contentType,omitempty"`
	Body        []byte `json:"-"`
}

// Text returns the body as a string.
func (r *RunResponse) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}
