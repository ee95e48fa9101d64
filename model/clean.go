package model

import (
	"regexp"
	"strings"
)

// Small models sometimes write a tool call into the answer text instead of
// using the tool calling API. These patterns cover the shapes seen so far.
var (
	leakedJSONArray = regexp.MustCompile(`\[\s*\{\s*"name"\s*:\s*"[^"]+"\s*,\s*"(?:arguments|param|parameters|input)"\s*:\s*\{[^}]*\}\s*\}\s*\]`)
	leakedJSONObj   = regexp.MustCompile(`\{\s*"name"\s*:\s*"[^"]+"\s*,\s*"(?:arguments|param|parameters|input)"\s*:\s*\{[^}]*\}\s*\}`)
	leakedXML       = regexp.MustCompile(`<(?:tool_call|function_call)>\s*<name>[^<]+</name>\s*<arguments>[^<]*</arguments>\s*</(?:tool_call|function_call)>`)
	leakedQwenXML   = regexp.MustCompile(`(?s)<function=[^>]+><parameter=[^>]+>.*?</parameter></function>(?:</tool_call>)?`)
)

// CleanLeakedToolCalls strips textual tool calls from an answer.
func CleanLeakedToolCalls(content string) string {
	content = leakedJSONArray.ReplaceAllString(content, "")
	content = leakedJSONObj.ReplaceAllString(content, "")
	content = leakedXML.ReplaceAllString(content, "")
	content = leakedQwenXML.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}
