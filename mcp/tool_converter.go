package mcp

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// Tool definitions are kept in MCP form (mcp.Tool with a JSON Schema input)
// and converted to each provider's wire type just before a request.

// ConvertMCPToolsToOllama converts tool definitions to Ollama's api.Tool.
func ConvertMCPToolsToOllama(mcpTools []mcptypes.Tool) []api.Tool {
	ollamaTools := make([]api.Tool, 0, len(mcpTools))
	for _, tool := range mcpTools {
		ollamaTools = append(ollamaTools, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  ollamaParameters(tool.InputSchema),
			},
		})
	}
	return ollamaTools
}

func ollamaParameters(schema mcptypes.ToolInputSchema) api.ToolFunctionParameters {
	schemaType := schema.Type
	if schemaType == "" {
		schemaType = "object"
	}
	params := api.ToolFunctionParameters{
		Type:       schemaType,
		Required:   schema.Required,
		Properties: make(map[string]api.ToolProperty, len(schema.Properties)),
	}
	if schema.Defs != nil {
		params.Defs = schema.Defs
	}
	for name, prop := range schema.Properties {
		params.Properties[name] = ollamaProperty(prop)
	}
	return params
}

// ollamaProperty maps one JSON Schema property onto api.ToolProperty. Values
// that are not already maps (typed structs from a reflector) are normalized
// through JSON first.
func ollamaProperty(value any) api.ToolProperty {
	var prop api.ToolProperty

	schema := asSchemaMap(value)
	if schema == nil {
		return prop
	}

	switch t := schema["type"].(type) {
	case string:
		prop.Type = api.PropertyType{t}
	case []string:
		prop.Type = api.PropertyType(t)
	case []any:
		types := make([]string, 0, len(t))
		for _, v := range t {
			if s, ok := v.(string); ok {
				types = append(types, s)
			}
		}
		prop.Type = api.PropertyType(types)
	}

	if desc, ok := schema["description"].(string); ok {
		prop.Description = desc
	}
	if enum, ok := schema["enum"].([]any); ok {
		prop.Enum = enum
	}
	if items, ok := schema["items"]; ok {
		prop.Items = items
	}
	if anyOf, ok := schema["anyOf"].([]any); ok {
		prop.AnyOf = make([]api.ToolProperty, 0, len(anyOf))
		for _, alt := range anyOf {
			prop.AnyOf = append(prop.AnyOf, ollamaProperty(alt))
		}
	}

	return prop
}

func asSchemaMap(value any) map[string]any {
	if m, ok := value.(map[string]any); ok {
		return m
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// jsonSchemaParameters renders an input schema as a plain JSON Schema object,
// the form OpenAI-compatible servers take for function parameters.
func jsonSchemaParameters(schema mcptypes.ToolInputSchema) map[string]any {
	schemaType := schema.Type
	if schemaType == "" {
		schemaType = "object"
	}
	properties := schema.Properties
	if properties == nil {
		properties = map[string]any{}
	}
	params := map[string]any{
		"type":       schemaType,
		"properties": properties,
	}
	if len(schema.Required) > 0 {
		params["required"] = schema.Required
	}
	if schema.Defs != nil {
		params["$defs"] = schema.Defs
	}
	return params
}

// ConvertMCPToolsToOpenAIFormat converts tool definitions to OpenAI function
// tools:
//
//	{"type": "function", "function": {"name": ..., "description": ..., "parameters": {...}}}
func ConvertMCPToolsToOpenAIFormat(mcpTools []mcptypes.Tool) []openai.ChatCompletionToolUnionParam {
	if len(mcpTools) == 0 {
		return nil
	}

	result := make([]openai.ChatCompletionToolUnionParam, len(mcpTools))
	for i, tool := range mcpTools {
		def := openai.FunctionDefinitionParam{
			Name:       tool.Name,
			Parameters: openai.FunctionParameters(jsonSchemaParameters(tool.InputSchema)),
		}
		if tool.Description != "" {
			def.Description = openai.String(tool.Description)
		}
		result[i] = openai.ChatCompletionFunctionTool(def)
	}
	return result
}

// ConvertMCPToolsToAnthropicFormat converts tool definitions to Anthropic
// tools, which carry the schema as input_schema.
func ConvertMCPToolsToAnthropicFormat(mcpTools []mcptypes.Tool) []anthropic.ToolUnionParam {
	if len(mcpTools) == 0 {
		return nil
	}

	result := make([]anthropic.ToolUnionParam, len(mcpTools))
	for i, tool := range mcpTools {
		// Type defaults to "object" when omitted
		inputSchema := anthropic.ToolInputSchemaParam{
			Properties: tool.InputSchema.Properties,
			Required:   tool.InputSchema.Required,
		}
		if tool.InputSchema.Defs != nil {
			inputSchema.ExtraFields = map[string]any{"$defs": tool.InputSchema.Defs}
		}

		result[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Name)
		if tool.Description != "" {
			result[i].OfTool.Description = anthropic.String(tool.Description)
		}
	}
	return result
}
