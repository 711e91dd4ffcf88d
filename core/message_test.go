package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

// -------------------- Message Construction --------------------

func TestMessageConstructors(t *testing.T) {
	sys := SystemMessage("be helpful")
	assert.Equal(t, RoleSystem, sys.Role)
	assert.Equal(t, "be helpful", sys.Content)

	usr := UserMessage("hi")
	assert.Equal(t, RoleUser, usr.Role)

	asst := AssistantMessage("hello")
	assert.Equal(t, RoleAssistant, asst.Role)
	assert.Empty(t, asst.ToolCalls)
}

func TestToolResultMessage(t *testing.T) {
	msg := ToolResultMessage(ToolResult{
		CallID: "call-1",
		Name:   "lookup",
		Output: map[string]any{"result": "y"},
	})
	assert.Equal(t, RoleTool, msg.Role)
	assert.Equal(t, "call-1", msg.ToolCallID)
	assert.Equal(t, "lookup", msg.Name)
	assert.JSONEq(t, `{"result":"y"}`, msg.Content)
}

func TestToolResultMessage_Error(t *testing.T) {
	msg := ToolResultMessage(ToolResult{
		CallID: "call-2",
		Name:   "lookup",
		Error:  "boom",
	})
	assert.Equal(t, RoleTool, msg.Role)
	assert.JSONEq(t, `{"error":"boom"}`, msg.Content)
}

func TestToolResultContent_StringOutput(t *testing.T) {
	res := ToolResult{CallID: "c", Name: "n", Output: "plain text"}
	assert.Equal(t, "plain text", res.Content())
	assert.False(t, res.Failed())
}

// -------------------- Transcript Validation --------------------

func validTranscript() []Message {
	return []Message{
		SystemMessage("sys"),
		UserMessage("q"),
		{
			Role: RoleAssistant,
			ToolCalls: []ToolCall{
				{ID: "a", Name: "lookup", Arguments: json.RawMessage(`{"query":"x"}`)},
				{ID: "b", Name: "lookup", Arguments: json.RawMessage(`{"query":"y"}`)},
			},
		},
		ToolResultMessage(ToolResult{CallID: "a", Name: "lookup", Output: "1"}),
		ToolResultMessage(ToolResult{CallID: "b", Name: "lookup", Output: "2"}),
		AssistantMessage("done"),
	}
}

func TestValidateTranscript_Valid(t *testing.T) {
	assert.NoError(t, ValidateTranscript(validTranscript()))
}

func TestValidateTranscript_UnknownCallID(t *testing.T) {
	transcript := validTranscript()
	transcript[3].ToolCallID = "nope"
	err := ValidateTranscript(transcript)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown")
}

func TestValidateTranscript_AnsweredTwice(t *testing.T) {
	transcript := validTranscript()
	transcript = append(transcript, ToolResultMessage(ToolResult{CallID: "a", Name: "lookup", Output: "dup"}))
	assert.Error(t, ValidateTranscript(transcript))
}

func TestValidateTranscript_ReusedCallID(t *testing.T) {
	transcript := validTranscript()
	transcript = append(transcript, Message{
		Role:      RoleAssistant,
		ToolCalls: []ToolCall{{ID: "a", Name: "lookup"}},
	})
	err := ValidateTranscript(transcript)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reused")
}

func TestValidateTranscript_ToolMessageWithoutID(t *testing.T) {
	err := ValidateTranscript([]Message{{Role: RoleTool, Content: "x"}})
	assert.Error(t, err)
}

// -------------------- JSON Round-Trip --------------------

func TestMessageJSONRoundTrip(t *testing.T) {
	original := validTranscript()

	data, err := json.Marshal(original)
	assert.NoError(t, err)

	var decoded []Message
	assert.NoError(t, json.Unmarshal(data, &decoded))

	assert.Len(t, decoded, len(original))
	assert.Equal(t, original[2].ToolCalls[0].ID, decoded[2].ToolCalls[0].ID)
	assert.Equal(t, original[3].ToolCallID, decoded[3].ToolCallID)
	assert.NoError(t, ValidateTranscript(decoded))
}
