package tools

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// GenerateInputSchema derives an MCP input schema from the JSON tags of T.
// Fields without omitempty are required; descriptions come from the
// jsonschema_description tag.
func GenerateInputSchema[T any]() mcptypes.ToolInputSchema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	// Round-trip through JSON so properties end up as plain maps, the shape
	// the converters in package mcp expect.
	raw, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("tools: marshal schema for %T: %v", v, err))
	}
	var decoded struct {
		Type       string         `json:"type"`
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		panic(fmt.Sprintf("tools: unmarshal schema for %T: %v", v, err))
	}

	if decoded.Type == "" {
		decoded.Type = "object"
	}
	if decoded.Properties == nil {
		decoded.Properties = map[string]any{}
	}

	return mcptypes.ToolInputSchema{
		Type:       decoded.Type,
		Properties: decoded.Properties,
		Required:   decoded.Required,
	}
}

// decodeArgs converts the loosely typed argument map from a tool call into T.
func decodeArgs[T any](args map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(args)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return out, nil
}
