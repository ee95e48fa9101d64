package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ollama/ollama/api"

	"toolcall/model"
	"toolcall/provider"
	"toolcall/provider/testutil"
)

// fakeOllama serves just enough of the Ollama API for the contract below.
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(api.ListResponse{Models: []api.ListModelResponse{
				{Name: "llama3.1:8b", Model: "llama3.1:8b", Size: 4920753328},
			}})
		case "/api/chat":
			w.Header().Set("Content-Type", "application/x-ndjson")
			enc := json.NewEncoder(w)
			_ = enc.Encode(api.ChatResponse{Message: api.Message{Role: "assistant", Content: "Hello from Ollama"}})
			_ = enc.Encode(api.ChatResponse{Message: api.Message{Role: "assistant"}, Done: true})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

// TestProviderContract defines the behavior every provider must satisfy.
func TestProviderContract(t *testing.T) {
	server := fakeOllama(t)
	ollamaProvider, err := provider.NewProvider(provider.Config{
		Type:    provider.ProviderTypeOllama,
		BaseURL: server.URL,
		Model:   "llama3.1:8b",
	})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	tests := []struct {
		name     string
		provider model.Provider
	}{
		{"Mock", testutil.NewMockProvider("test-model")},
		{"Ollama", ollamaProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Run("BasicChat", func(t *testing.T) {
				testProviderBasicChat(t, tt.provider)
			})
			t.Run("ChatWithTools", func(t *testing.T) {
				testProviderChatWithTools(t, tt.provider)
			})
			t.Run("ListModels", func(t *testing.T) {
				testProviderListModels(t, tt.provider)
			})
			t.Run("HealthCheck", func(t *testing.T) {
				testProviderHealthCheck(t, tt.provider)
			})
			t.Run("ModelManagement", func(t *testing.T) {
				testProviderModelManagement(t, tt.provider)
			})
		})
	}
}

func testProviderBasicChat(t *testing.T, p model.Provider) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var received string
	err := p.Chat(ctx, testutil.SingleUserMessage("Hello"), func(chunk string, toolCalls []model.ToolCall) error {
		received += chunk
		return nil
	})
	if err != nil {
		t.Errorf("Chat() error = %v", err)
	}
	if received == "" {
		t.Error("Chat() did not receive any chunks")
	}
}

func testProviderChatWithTools(t *testing.T, p model.Provider) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var received string
	err := p.ChatWithTools(ctx, testutil.SingleUserMessage(testutil.QuestionCDGToDXB), testutil.TestMCPTools(),
		func(chunk string, toolCalls []model.ToolCall) error {
			received += chunk
			return nil
		})
	if err != nil {
		t.Errorf("ChatWithTools() error = %v", err)
	}
	if received == "" {
		t.Error("ChatWithTools() did not receive any chunks")
	}
}

func testProviderListModels(t *testing.T, p model.Provider) {
	models, err := p.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) == 0 {
		t.Error("ListModels() returned no models")
	}
}

func testProviderHealthCheck(t *testing.T, p model.Provider) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func testProviderModelManagement(t *testing.T, p model.Provider) {
	if p.GetModel() == "" {
		t.Error("GetModel() returned empty string")
	}

	newModel := "new-test-model"
	p.SetModel(newModel)
	if got := p.GetModel(); got != newModel {
		t.Errorf("After SetModel(%s), GetModel() = %s, want %s", newModel, got, newModel)
	}
	if got := p.GetDisplayName(); got != newModel {
		t.Errorf("GetDisplayName() = %s, want %s", got, newModel)
	}
}

func TestMockProviderImplementsInterface(t *testing.T) {
	var _ model.Provider = (*testutil.MockProvider)(nil)
}
