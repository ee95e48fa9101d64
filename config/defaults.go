package config

import "time"

const (
	DefaultOllamaHost = "http://127.0.0.1:11434"
	DefaultModelName  = "llama3.1:8b"
	DefaultMaxRounds  = 5
	DefaultTimeout    = 120 * time.Second
)

func Default() *Config {
	return &Config{
		DataDirectory:   "~/.local/share/toolcall",
		OllamaHost:      DefaultOllamaHost,
		DefaultModel:    DefaultModelName,
		Provider:        "ollama",
		MaxRounds:       DefaultMaxRounds,
		UnknownTool:     UnknownToolReport,
		Timeout:         DefaultTimeout,
		RenderMarkdown:  true,
		SaveTranscripts: true,
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		DataDirectory: "~/.local/share/toolcall",
		Ollama: OllamaConfig{
			Host:         DefaultOllamaHost,
			DefaultModel: DefaultModelName,
		},
		Provider: ProviderConfig{
			Type: "ollama",
		},
		Conversation: ConversationConfig{
			MaxRounds:      DefaultMaxRounds,
			UnknownTool:    UnknownToolReport,
			TimeoutSeconds: int(DefaultTimeout / time.Second),
		},
		Output: OutputConfig{
			RenderMarkdown:  true,
			SaveTranscripts: true,
		},
	}
}

func GenerateUserConfigTemplate() string {
	return `# toolcall configuration
# Location: ~/.config/toolcall/config.toml
# This file uses TOML format: https://toml.io

# Directory where transcripts, the tool call log and debug.log are stored
data_directory = "~/.local/share/toolcall"

[ollama]
# Ollama server URL
host = "http://127.0.0.1:11434"

# Model used for chat requests (must support tool calling)
default_model = "llama3.1:8b"

[provider]
# One of: ollama, openai, anthropic
# "openai" works with any OpenAI-compatible endpoint, including Ollama's /v1
type = "ollama"
base_url = ""
api_key = ""
# Overrides [ollama] default_model when set
model = ""

[conversation]
# Optional system prompt placed at the start of every conversation
system_prompt = ""

# Maximum tool rounds per question before the model is asked to answer
max_rounds = 5

# What to do when the model requests a tool that does not exist:
#   report - send an error result back so the model can recover
#   skip   - ignore the call
unknown_tool = "report"

# Per-request timeout
timeout_seconds = 120

[output]
# Render answers as terminal markdown
render_markdown = true

# Save each run as a JSON transcript in <data_directory>/transcripts
save_transcripts = true

# External MCP servers started over stdio. Their tools are offered to the
# model as "<name>__<tool>".
#
# [[mcp_servers]]
# name = "time"
# command = "uvx"
# args = ["mcp-server-time"]
# env = { TZ = "UTC" }
`
}
