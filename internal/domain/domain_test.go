package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Agent tests ---

func TestAgentDisplayName(t *testing.T) {
	a := Agent{Name: "PRICE_AGENT", Profile: &Profile{DisplayName: "Price Analyst"}}
	name, err := a.DisplayName()
	require.NoError(t, err)
	assert.Equal(t, "Price Analyst", name)
}

func TestAgentDisplayName_Missing(t *testing.T) {
	tests := []struct {
		name  string
		agent Agent
	}{
		{"nil profile", Agent{Name: "NO_PROFILE"}},
		{"empty display name", Agent{Name: "EMPTY", Profile: &Profile{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.agent.DisplayName()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingField))

			var mf *MissingFieldError
			require.ErrorAs(t, err, &mf)
			assert.Equal(t, "profile.display_name", mf.Field)
			assert.Equal(t, tt.agent.Name, mf.Agent)
			assert.Contains(t, err.Error(), tt.agent.Name)
		})
	}
}

func TestMissingFieldError_WithoutAgent(t *testing.T) {
	err := &MissingFieldError{Field: "name"}
	assert.Equal(t, "missing field name", err.Error())
}

func TestAgentUnmarshal(t *testing.T) {
	raw := `{
		"name": "MATCHING_AGENT",
		"profile": {"display_name": "Product Matcher"},
		"comment": "matches products across retailers",
		"database_name": "RETAIL_DB",
		"schema_name": "ABT_BUY",
		"owner": "ANALYST",
		"created_on": "2025-06-03T17:25:09.153-07:00"
	}`

	var a Agent
	require.NoError(t, json.Unmarshal([]byte(raw), &a))
	assert.Equal(t, "MATCHING_AGENT", a.Name)
	require.NotNil(t, a.Profile)
	assert.Equal(t, "Product Matcher", a.Profile.DisplayName)
	assert.Equal(t, "ANALYST", a.Owner)
	assert.Equal(t, "RETAIL_DB.ABT_BUY.MATCHING_AGENT", a.QualifiedName())
}

func TestAgentQualifiedName_NoNamespace(t *testing.T) {
	assert.Equal(t, "LOOSE", Agent{Name: "LOOSE"}.QualifiedName())
}

// --- RunRequest tests ---

func TestNewRunRequest_ExactBody(t *testing.T) {
	body, err := NewRunRequest("Show price comparisons").Encode()
	require.NoError(t, err)
	assert.Equal(t,
		`{"messages":[{"role":"user","content":[{"type":"text","text":"Show price comparisons"}]}]}`,
		string(body))
}

func TestNewRunRequest_NoHTMLEscaping(t *testing.T) {
	body, err := NewRunRequest("price < $100 & in stock").Encode()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"text":"price < $100 & in stock"`)
}

func TestNewRunRequest_Shape(t *testing.T) {
	req := NewRunRequest("hello")
	require.Len(t, req.Messages, 1)
	assert.Equal(t, RoleUser, req.Messages[0].Role)
	require.Len(t, req.Messages[0].Content, 1)
	assert.Equal(t, ContentBlock{Type: "text", Text: "hello"}, req.Messages[0].Content[0])
}

func TestRunResponseText(t *testing.T) {
	var nilResp *RunResponse
	assert.Equal(t, "", nilResp.Text())

	resp := &RunResponse{StatusCode: 200, Body: []byte("event: done\n")}
	assert.Equal(t, "event: done\n", resp.Text())
}
