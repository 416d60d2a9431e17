package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRequest builds the frame a browser sends for an RPC call.
func newRequest(id, method string, params any) (Frame, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: FrameTypeRequest, ID: id, Method: method, Params: raw}, nil
}

func TestRequestFrame(t *testing.T) {
	frame, err := newRequest("req-1", "agents.run", map[string]string{"prompt": "hi"})
	require.NoError(t, err)

	assert.Equal(t, FrameTypeRequest, frame.Type)
	assert.Equal(t, "req-1", frame.ID)
	assert.Equal(t, "agents.run", frame.Method)
	assert.JSONEq(t, `{"prompt":"hi"}`, string(frame.Params))
}

func TestNewResponse(t *testing.T) {
	frame, err := NewResponse("req-1", map[string]string{"text": "done"})
	require.NoError(t, err)

	assert.Equal(t, FrameTypeResponse, frame.Type)
	require.NotNil(t, frame.OK)
	assert.True(t, *frame.OK)
	assert.Nil(t, frame.Error)
	assert.JSONEq(t, `{"text":"done"}`, string(frame.Payload))
}

func TestNewErrorResponse(t *testing.T) {
	frame := NewErrorResponse("req-1", ErrorShape{Code: "not_found", Message: "agent not found"})

	require.NotNil(t, frame.OK)
	assert.False(t, *frame.OK)
	require.NotNil(t, frame.Error)
	assert.Equal(t, "not_found", frame.Error.Code)
	assert.Empty(t, frame.Payload)
}

func TestNewEvent(t *testing.T) {
	frame, err := NewEvent(EventRunDelta, map[string]any{"text": "Hel"}, 7)
	require.NoError(t, err)

	assert.Equal(t, FrameTypeEvent, frame.Type)
	assert.Equal(t, EventRunDelta, frame.Event)
	assert.Equal(t, int64(7), frame.Seq)
}

func TestFrameOmitsUnsetFields(t *testing.T) {
	frame, err := NewEvent(EventHello, Hello{Protocol: ProtocolVersion}, 1)
	require.NoError(t, err)

	data, err := json.Marshal(frame)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "id")
	assert.NotContains(t, raw, "method")
	assert.NotContains(t, raw, "ok")
	assert.NotContains(t, raw, "error")
}
