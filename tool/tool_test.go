package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/internal/util"
)

// -------------------- Schema & Validation Tests --------------------

type sampleSchema struct {
	A string `json:"a" description:"Field A"`
	B *int   `json:"b" description:"Optional pointer field"`
	C int    `json:"c,omitempty" description:"Omit empty field"`
}

func TestCreateSchema(t *testing.T) {
	schema := util.CreateSchema(sampleSchema{})
	props, ok := schema["properties"].(map[string]any)
	assert.True(t, ok)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Contains(t, props, "c")
	// Required only includes non-pointer, non-omitempty exported fields
	req, _ := schema["required"].([]string)
	assert.ElementsMatch(t, []string{"a"}, req)
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
		},
		// Use []any to mirror JSON decoded schema shape
		"required": []any{"x"},
	}

	assert.NoError(t, util.ValidateParameters(map[string]any{"x": 5}, schema))

	// Missing required
	err := util.ValidateParameters(map[string]any{}, schema)
	assert.Error(t, err)
	if vErr, ok := err.(*ValidationError); ok {
		assert.Equal(t, "x", vErr.Field)
	} else {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	// Wrong type
	err = util.ValidateParameters(map[string]any{"x": "not-int"}, schema)
	assert.Error(t, err)
	if vErr, ok := err.(*ValidationError); ok {
		assert.Contains(t, vErr.Message, "expected type integer")
	} else {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

// -------------------- FunctionTool Tests --------------------

func sumTool() *FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}
	return NewFunctionTool("sum", "Add numbers", params, func(_ context.Context, args map[string]any) (any, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	})
}

func TestFunctionTool_Success(t *testing.T) {
	result, err := sumTool().Execute(context.Background(), map[string]any{"a": 2.0, "b": 3.0})
	assert.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionTool_ValidationError(t *testing.T) {
	_, err := sumTool().Execute(context.Background(), map[string]any{"a": 2.0})
	assert.Error(t, err)
	execErr, ok := err.(*ExecutionError)
	assert.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", execErr.Code)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	failTool := NewFunctionTool("fail", "Fails",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (any, error) {
			return nil, errors.New("boom")
		})
	_, err := failTool.Execute(context.Background(), map[string]any{})
	assert.Error(t, err)
	execErr, ok := err.(*ExecutionError)
	assert.True(t, ok)
	assert.Equal(t, "EXECUTION_ERROR", execErr.Code)
}

func TestFunctionTool_CustomErrorCodePreserved(t *testing.T) {
	custom := NewExecutionError("quota", "limit reached", "QUOTA_EXCEEDED")
	quotaTool := NewFunctionTool("quota", "Quota",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (any, error) {
			return nil, custom
		})
	_, err := quotaTool.Execute(context.Background(), map[string]any{})
	execErr, ok := err.(*ExecutionError)
	assert.True(t, ok)
	assert.Equal(t, "QUOTA_EXCEEDED", execErr.Code)
}

func TestFunctionToolFromStruct(t *testing.T) {
	type lookupArgs struct {
		Query string `json:"query" description:"Search query"`
	}
	lookup := NewFunctionToolFromStruct("lookup", "Look up", lookupArgs{},
		func(_ context.Context, args map[string]any) (any, error) {
			return args["query"], nil
		})

	_, err := lookup.Execute(context.Background(), map[string]any{})
	assert.Error(t, err) // query is required

	result, err := lookup.Execute(context.Background(), map[string]any{"query": "x"})
	assert.NoError(t, err)
	assert.Equal(t, "x", result)
}

// -------------------- Registry Tests --------------------

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Register(sumTool()))

	err := r.Register(sumTool())
	assert.Error(t, err)
	var dupErr *DuplicateToolError
	assert.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "sum", dupErr.Name)
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(NewFunctionTool("", "unnamed", nil, nil)))
}

func TestRegistry_Definitions_SortedByName(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		NewFunctionTool("zeta", "Z", map[string]any{"type": "object"}, nil),
		NewFunctionTool("alpha", "A", map[string]any{"type": "object"}, nil),
	)

	defs := r.Definitions()
	assert.Len(t, defs, 2)
	assert.Equal(t, "alpha", defs[0].Function.Name)
	assert.Equal(t, "zeta", defs[1].Function.Name)
	assert.Equal(t, "function", defs[0].Type)
}

func TestRegistry_Dispatch_Success(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(sumTool())

	result := r.Dispatch(context.Background(), core.ToolCall{
		ID:        "c1",
		Name:      "sum",
		Arguments: json.RawMessage(`{"a": 2, "b": 3}`),
	})
	assert.False(t, result.Failed())
	assert.Equal(t, "c1", result.CallID)
	assert.Equal(t, "sum", result.Name)
	assert.Equal(t, 5.0, result.Output)
}

func TestRegistry_Dispatch_UnknownTool(t *testing.T) {
	r := NewRegistry()

	result := r.Dispatch(context.Background(), core.ToolCall{ID: "c1", Name: "nope"})
	assert.True(t, result.Failed())
	assert.Equal(t, "c1", result.CallID)
	assert.Contains(t, result.Error, "unknown tool")
}

func TestRegistry_Dispatch_BadArguments(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(sumTool())

	result := r.Dispatch(context.Background(), core.ToolCall{
		ID:        "c1",
		Name:      "sum",
		Arguments: json.RawMessage(`not-json`),
	})
	assert.True(t, result.Failed())
	assert.Contains(t, result.Error, "invalid arguments")
}

func TestRegistry_Dispatch_PanicRecovered(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(NewFunctionTool("panic", "Panics",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (any, error) {
			panic("kaboom")
		}))

	result := r.Dispatch(context.Background(), core.ToolCall{ID: "c1", Name: "panic"})
	assert.True(t, result.Failed())
	assert.Contains(t, result.Error, "panicked")
}

func TestRegistry_Dispatch_Timeout(t *testing.T) {
	r := NewRegistry(WithTimeout(20 * time.Millisecond))
	r.MustRegister(NewFunctionTool("slow", "Sleeps",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, _ map[string]any) (any, error) {
			select {
			case <-time.After(5 * time.Second):
				return "done", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}))

	start := time.Now()
	result := r.Dispatch(context.Background(), core.ToolCall{ID: "c1", Name: "slow"})
	assert.True(t, result.Failed())
	assert.Contains(t, result.Error, "aborted")
	assert.Less(t, time.Since(start), time.Second)
}

// -------------------- ExecutionError Formatting --------------------

func TestExecutionErrorFormatting(t *testing.T) {
	err := NewExecutionError("demo", "something failed", "E123")
	assert.Contains(t, err.Error(), "E123")
	assert.Contains(t, err.Error(), "demo")
}
