package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"TOOLCALL_OLLAMA_HOST", "TOOLCALL_MODEL", "TOOLCALL_DATA_DIR", "TOOLCALL_PROVIDER", "TOOLCALL_API_KEY", "TOOLCALL_DEBUG"} {
		t.Setenv(key, "")
	}
}

func TestLoadCreatesTemplate(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("TOOLCALL_DATA_DIR", filepath.Join(dir, "data"))
	path := filepath.Join(dir, "conf", "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !FileExists(path) {
		t.Fatal("template not written")
	}

	// The generated template must parse back to the defaults.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("Load(template): %v", err)
	}

	for _, c := range []*Config{cfg, again} {
		if c.OllamaHost != DefaultOllamaHost || c.Model() != DefaultModelName {
			t.Errorf("host/model = %s/%s", c.OllamaHost, c.Model())
		}
		if c.Provider != "ollama" || c.MaxRounds != DefaultMaxRounds || c.UnknownTool != UnknownToolReport {
			t.Errorf("config = %+v", c)
		}
		if c.Timeout != DefaultTimeout {
			t.Errorf("timeout = %s", c.Timeout)
		}
		if len(c.MCPServers) != 0 {
			t.Errorf("mcp servers = %+v", c.MCPServers)
		}
	}

	info, err := os.Stat(filepath.Join(dir, "data"))
	if err != nil {
		t.Fatalf("data dir: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("data dir permissions = %o", perm)
	}
}

func TestLoadUserFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
data_directory = '` + filepath.Join(dir, "data") + `'

[ollama]
host = "http://gpu-box:11434"
default_model = "qwen2.5:7b"

[provider]
type = "openai"
base_url = "http://gpu-box:11434/v1"
model = "qwen2.5:14b"

[conversation]
system_prompt = "Answer in one sentence."
max_rounds = 2
unknown_tool = "SKIP"
timeout_seconds = 30

[output]
render_markdown = false
save_transcripts = false

[[mcp_servers]]
name = "time"
command = "uvx"
args = ["mcp-server-time"]
env = { TZ = "UTC" }
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Provider != "openai" || cfg.ProviderURL() != "http://gpu-box:11434/v1" {
		t.Errorf("provider = %s at %s", cfg.Provider, cfg.ProviderURL())
	}
	if cfg.Model() != "qwen2.5:14b" {
		t.Errorf("provider model should override ollama default, got %s", cfg.Model())
	}
	if cfg.MaxRounds != 2 || cfg.UnknownTool != UnknownToolSkip || cfg.Timeout != 30*time.Second {
		t.Errorf("conversation = %d %s %s", cfg.MaxRounds, cfg.UnknownTool, cfg.Timeout)
	}
	if cfg.SystemPrompt != "Answer in one sentence." || cfg.RenderMarkdown || cfg.SaveTranscripts {
		t.Errorf("config = %+v", cfg)
	}
	if len(cfg.MCPServers) != 1 {
		t.Fatalf("mcp servers = %+v", cfg.MCPServers)
	}
	srv := cfg.MCPServers[0]
	if srv.Name != "time" || srv.Command != "uvx" || srv.Args[0] != "mcp-server-time" || srv.Env["TZ"] != "UTC" {
		t.Errorf("mcp server = %+v", srv)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("TOOLCALL_OLLAMA_HOST", "http://10.0.0.5:11434")
	t.Setenv("TOOLCALL_MODEL", "llama3.2:3b")
	t.Setenv("TOOLCALL_DATA_DIR", filepath.Join(dir, "env-data"))
	t.Setenv("TOOLCALL_PROVIDER", "Anthropic")
	t.Setenv("TOOLCALL_API_KEY", "sk-test")

	cfg, err := Load(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OllamaHost != "http://10.0.0.5:11434" || cfg.Model() != "llama3.2:3b" {
		t.Errorf("host/model = %s/%s", cfg.OllamaHost, cfg.Model())
	}
	if cfg.Provider != "anthropic" || cfg.APIKey != "sk-test" {
		t.Errorf("provider = %s key = %s", cfg.Provider, cfg.APIKey)
	}
	if cfg.DataDir() != filepath.Join(dir, "env-data") {
		t.Errorf("data dir = %s", cfg.DataDir())
	}
}

func TestLoadInvalid(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("TOOLCALL_DATA_DIR", filepath.Join(dir, "data"))

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"syntax", "[ollama\n", "failed to parse"},
		{"policy", "[conversation]\nunknown_tool = \"drop\"\n", "unknown_tool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".toml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero rounds", func(c *Config) { c.MaxRounds = 0 }, false},
		{"negative rounds", func(c *Config) { c.MaxRounds = -1 }, true},
		{"unknown provider", func(c *Config) { c.Provider = "openrouter" }, true},
		{"bad policy", func(c *Config) { c.UnknownTool = "ignore" }, true},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, true},
		{"mcp ok", func(c *Config) {
			c.MCPServers = []MCPServerConfig{{Name: "time", Command: "uvx"}, {Name: "fs", Command: "npx"}}
		}, false},
		{"mcp missing command", func(c *Config) {
			c.MCPServers = []MCPServerConfig{{Name: "time"}}
		}, true},
		{"mcp dotted name", func(c *Config) {
			c.MCPServers = []MCPServerConfig{{Name: "my.time", Command: "uvx"}}
		}, true},
		{"mcp name with space", func(c *Config) {
			c.MCPServers = []MCPServerConfig{{Name: "my time", Command: "uvx"}}
		}, true},
		{"mcp duplicate", func(c *Config) {
			c.MCPServers = []MCPServerConfig{{Name: "time", Command: "uvx"}, {Name: "time", Command: "npx"}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProviderURL(t *testing.T) {
	tests := []struct {
		provider string
		baseURL  string
		want     string
	}{
		{"ollama", "", DefaultOllamaHost},
		{"", "", DefaultOllamaHost},
		{"ollama", "http://other:11434", "http://other:11434"},
		{"openai", "", ""},
		{"anthropic", "https://proxy.internal", "https://proxy.internal"},
	}

	for _, tt := range tests {
		cfg := Default()
		cfg.Provider = tt.provider
		cfg.BaseURL = tt.baseURL
		if got := cfg.ProviderURL(); got != tt.want {
			t.Errorf("ProviderURL(%q, %q) = %q, want %q", tt.provider, tt.baseURL, got, tt.want)
		}
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/pilot")
	t.Setenv("TOOLCALL_TEST_DIR", "flights")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~/.local/share/toolcall", "/home/pilot/.local/share/toolcall"},
		{"/var/lib/$TOOLCALL_TEST_DIR", "/var/lib/flights"},
		{"relative/../dir", "dir"},
	}

	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
