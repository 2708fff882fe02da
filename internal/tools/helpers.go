// Package tools provides the MCP tool handlers for Mentor.
//
// Each tool follows the same pattern:
// - A struct with dependencies injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Every handler returns a JSON body carrying a success flag. Failures
// become {success:false, error} payloads; no Go error ever crosses the
// tool boundary, so callers check the flag, not the transport.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// okResult marshals a success payload. The success flag is forced on.
func okResult(payload map[string]any) *mcp.CallToolResult {
	payload["success"] = true
	b, err := json.Marshal(payload)
	if err != nil {
		return failResult(fmt.Sprintf("encode result: %v", err))
	}
	return mcp.NewToolResultText(string(b))
}

// failResult marshals a {success:false, error} payload.
func failResult(msg string) *mcp.CallToolResult {
	b, _ := json.Marshal(map[string]any{"success": false, "error": msg})
	return mcp.NewToolResultText(string(b))
}

// failErr is failResult for an error value.
func failErr(err error) *mcp.CallToolResult {
	return failResult(err.Error())
}

// intArg extracts an integer argument, returning defaultVal if the key
// is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// stringListArg extracts a string-array argument; missing or malformed
// entries yield nil.
func stringListArg(req mcp.CallToolRequest, key string) []string {
	items, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// anyStrings converts a raw []any argument to []string, rejecting
// non-string elements.
func anyStrings(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array of strings")
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, fmt.Errorf("expected an array of strings")
		}
		out = append(out, s)
	}
	return out, nil
}

// optStringArg returns a pointer to the argument value when present,
// nil when absent. Used for partial updates where "" and "unset" differ.
func optStringArg(req mcp.CallToolRequest, key string) *string {
	v, ok := req.GetArguments()[key].(string)
	if !ok {
		return nil
	}
	return &v
}
