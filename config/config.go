package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// UnknownToolPolicy controls what the dispatcher does when the model asks for
// a tool that is not registered.
const (
	UnknownToolReport = "report"
	UnknownToolSkip   = "skip"
)

type OllamaConfig struct {
	Host         string `toml:"host"`
	DefaultModel string `toml:"default_model"`
}

type ProviderConfig struct {
	Type    string `toml:"type"`
	BaseURL string `toml:"base_url,omitempty"`
	APIKey  string `toml:"api_key,omitempty"`
	Model   string `toml:"model,omitempty"`
}

type ConversationConfig struct {
	SystemPrompt   string `toml:"system_prompt,omitempty"`
	MaxRounds      int    `toml:"max_rounds"`
	UnknownTool    string `toml:"unknown_tool"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type OutputConfig struct {
	RenderMarkdown  bool `toml:"render_markdown"`
	SaveTranscripts bool `toml:"save_transcripts"`
}

// UserConfig is the on-disk shape of config.toml.
type UserConfig struct {
	DataDirectory string             `toml:"data_directory"`
	Ollama        OllamaConfig       `toml:"ollama"`
	Provider      ProviderConfig     `toml:"provider"`
	Conversation  ConversationConfig `toml:"conversation"`
	Output        OutputConfig       `toml:"output"`
	MCPServers    []MCPServerConfig  `toml:"mcp_servers"`
}

// MCPServerConfig describes an external MCP server started over stdio. Its
// tools are offered to the model as "<name>__<tool>".
type MCPServerConfig struct {
	Name    string            `toml:"name"`
	Command string            `toml:"command"`
	Args    []string          `toml:"args"`
	Env     map[string]string `toml:"env"`
}

// Config is the resolved runtime configuration after file, env and flag layers.
type Config struct {
	DataDirectory   string
	OllamaHost      string
	DefaultModel    string
	Provider        string
	BaseURL         string
	APIKey          string
	SystemPrompt    string
	MaxRounds       int
	UnknownTool     string
	Timeout         time.Duration
	RenderMarkdown  bool
	SaveTranscripts bool
	MCPServers      []MCPServerConfig
}

var DebugLog *log.Logger

// serverNamePattern keeps namespaced tool names valid for every provider.
var serverNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ProviderURL returns the endpoint for the configured provider. Ollama uses the
// host from the [ollama] section unless [provider] base_url is set.
func (c *Config) ProviderURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Provider == "" || c.Provider == "ollama" {
		return c.OllamaHost
	}
	return ""
}

func (c *Config) Model() string {
	return c.DefaultModel
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// Validate reports settings that cannot work at runtime.
func (c *Config) Validate() error {
	switch c.Provider {
	case "ollama", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown provider %q (want ollama, openai or anthropic)", c.Provider)
	}
	switch c.UnknownTool {
	case UnknownToolReport, UnknownToolSkip:
	default:
		return fmt.Errorf("unknown_tool must be %q or %q, got %q", UnknownToolReport, UnknownToolSkip, c.UnknownTool)
	}
	if c.MaxRounds < 0 {
		return fmt.Errorf("max_rounds must not be negative, got %d", c.MaxRounds)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	seen := make(map[string]bool, len(c.MCPServers))
	for _, srv := range c.MCPServers {
		if srv.Name == "" || srv.Command == "" {
			return fmt.Errorf("mcp_servers entries need a name and a command")
		}
		if !serverNamePattern.MatchString(srv.Name) {
			return fmt.Errorf("mcp server name %q may only contain letters, digits, '_' and '-'", srv.Name)
		}
		if seen[srv.Name] {
			return fmt.Errorf("duplicate mcp server name %q", srv.Name)
		}
		seen[srv.Name] = true
	}
	return nil
}

func (c *Config) applyUserConfig(u *UserConfig) {
	if u.DataDirectory != "" {
		c.DataDirectory = u.DataDirectory
	}
	if u.Ollama.Host != "" {
		c.OllamaHost = u.Ollama.Host
	}
	if u.Ollama.DefaultModel != "" {
		c.DefaultModel = u.Ollama.DefaultModel
	}
	if u.Provider.Type != "" {
		c.Provider = u.Provider.Type
	}
	c.BaseURL = u.Provider.BaseURL
	c.APIKey = u.Provider.APIKey
	if u.Provider.Model != "" {
		c.DefaultModel = u.Provider.Model
	}
	c.SystemPrompt = u.Conversation.SystemPrompt
	c.MaxRounds = u.Conversation.MaxRounds
	if u.Conversation.UnknownTool != "" {
		c.UnknownTool = strings.ToLower(u.Conversation.UnknownTool)
	}
	if u.Conversation.TimeoutSeconds > 0 {
		c.Timeout = time.Duration(u.Conversation.TimeoutSeconds) * time.Second
	}
	c.RenderMarkdown = u.Output.RenderMarkdown
	c.SaveTranscripts = u.Output.SaveTranscripts
	c.MCPServers = u.MCPServers
}

func (c *Config) applyEnvOverrides() {
	if host := os.Getenv("TOOLCALL_OLLAMA_HOST"); host != "" {
		c.OllamaHost = host
	}
	if model := os.Getenv("TOOLCALL_MODEL"); model != "" {
		c.DefaultModel = model
	}
	if dataDir := os.Getenv("TOOLCALL_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if provider := os.Getenv("TOOLCALL_PROVIDER"); provider != "" {
		c.Provider = strings.ToLower(provider)
	}
	if apiKey := os.Getenv("TOOLCALL_API_KEY"); apiKey != "" {
		c.APIKey = apiKey
	}
}

func CheckDebug() bool {
	debug := os.Getenv("TOOLCALL_DEBUG")
	return debug == "true" || debug == "1"
}

// InitDebugLog opens <dataDir>/debug.log when debugging was requested either
// through TOOLCALL_DEBUG or the force flag.
func InitDebugLog(dataDir string, force bool) {
	if !force && !CheckDebug() {
		return
	}

	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: the log contains prompts and tool results
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (TOOLCALL_DEBUG=%s) ===", os.Getenv("TOOLCALL_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

// Load reads the config file at path (GetConfigFilePath() when empty), applies
// environment overrides and makes sure the data directory exists.
func Load(path string) (*Config, error) {
	if path == "" {
		path = GetConfigFilePath()
	}

	cfg := Default()

	userCfg, err := LoadUserConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.applyUserConfig(userCfg)
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	dataDir := cfg.DataDir()
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}

	return cfg, nil
}
