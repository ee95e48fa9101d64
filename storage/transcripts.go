package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"toolcall/model"
)

var (
	ErrTranscriptNotFound = errors.New("transcript not found")
	ErrAmbiguousID        = errors.New("transcript id prefix is ambiguous")
)

// ToolCall is the stored form of model.ToolCall.
type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Message is the stored form of model.Message.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Transcript is one saved run: every question asked, every tool round and
// every answer, in order.
type Transcript struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`
}

// TranscriptMetadata is a lightweight version of Transcript for listing
type TranscriptMetadata struct {
	ID           string
	Name         string
	Provider     string
	Model        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
	ToolCalls    int
}

// TranscriptStorage keeps transcripts as JSON files in <dataDir>/transcripts.
type TranscriptStorage struct {
	dir string
}

func NewTranscriptStorage(dataDir string) (*TranscriptStorage, error) {
	dir := filepath.Join(dataDir, "transcripts")

	// 0700: transcripts hold the full conversation
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create transcripts directory: %w", err)
	}

	return &TranscriptStorage{dir: dir}, nil
}

// NewTranscript starts a transcript with a fresh ID.
func NewTranscript(provider, modelName, systemPrompt string) *Transcript {
	return &Transcript{
		ID:           uuid.New().String(),
		Provider:     provider,
		Model:        modelName,
		SystemPrompt: systemPrompt,
	}
}

// SetMessages replaces the stored history with conv's messages and derives a
// name from the first question when none is set.
func (t *Transcript) SetMessages(messages []model.Message) {
	t.Messages = make([]Message, len(messages))
	for i, msg := range messages {
		t.Messages[i] = fromModelMessage(msg)
	}
	if t.Name == "" {
		for _, msg := range messages {
			if msg.Role == model.RoleUser {
				t.Name = GenerateTranscriptName(msg.Content)
				break
			}
		}
	}
}

// ModelMessages converts the stored history back to model messages, e.g. to
// continue a saved conversation.
func (t *Transcript) ModelMessages() []model.Message {
	out := make([]model.Message, len(t.Messages))
	for i, msg := range t.Messages {
		out[i] = toModelMessage(msg)
	}
	return out
}

// ToolCallCount counts the tool calls requested across the transcript.
func (t *Transcript) ToolCallCount() int {
	n := 0
	for _, msg := range t.Messages {
		n += len(msg.ToolCalls)
	}
	return n
}

func fromModelMessage(msg model.Message) Message {
	out := Message{
		Role:       msg.Role,
		Content:    msg.Content,
		ToolName:   msg.ToolName,
		ToolCallID: msg.ToolCallID,
		IsError:    msg.IsError,
		Timestamp:  msg.Timestamp,
	}
	for _, call := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: call.ID, Name: call.Name, Arguments: call.Arguments})
	}
	return out
}

func toModelMessage(msg Message) model.Message {
	out := model.Message{
		Role:       msg.Role,
		Content:    msg.Content,
		ToolName:   msg.ToolName,
		ToolCallID: msg.ToolCallID,
		IsError:    msg.IsError,
		Timestamp:  msg.Timestamp,
	}
	for _, call := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, model.ToolCall{ID: call.ID, Name: call.Name, Arguments: call.Arguments})
	}
	return out
}

func (s *TranscriptStorage) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes the transcript to disk, assigning an ID if it has none.
func (s *TranscriptStorage) Save(t *Transcript) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	t.UpdatedAt = time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.UpdatedAt
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	if err := os.WriteFile(s.path(t.ID), data, 0600); err != nil {
		return fmt.Errorf("failed to write transcript file: %w", err)
	}

	return nil
}

func (s *TranscriptStorage) Load(id string) (*Transcript, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTranscriptNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript file: %w", err)
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}

	return &t, nil
}

// Resolve expands a unique ID prefix (as printed by the history listing) to a
// full transcript ID.
func (s *TranscriptStorage) Resolve(prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrTranscriptNotFound)
	}

	ids, err := s.ids()
	if err != nil {
		return "", err
	}

	var found []string
	for _, id := range ids {
		if id == prefix {
			return id, nil
		}
		if strings.HasPrefix(id, prefix) {
			found = append(found, id)
		}
	}

	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrTranscriptNotFound, prefix)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %d transcripts", ErrAmbiguousID, prefix, len(found))
	}
}

func (s *TranscriptStorage) ids() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcripts directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return ids, nil
}

// List returns metadata for all transcripts, newest first. Unreadable files
// are skipped.
func (s *TranscriptStorage) List() ([]TranscriptMetadata, error) {
	ids, err := s.ids()
	if err != nil {
		return nil, err
	}

	var list []TranscriptMetadata
	for _, id := range ids {
		t, err := s.Load(id)
		if err != nil {
			continue
		}

		list = append(list, TranscriptMetadata{
			ID:           t.ID,
			Name:         t.Name,
			Provider:     t.Provider,
			Model:        t.Model,
			CreatedAt:    t.CreatedAt,
			UpdatedAt:    t.UpdatedAt,
			MessageCount: len(t.Messages),
			ToolCalls:    t.ToolCallCount(),
		})
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})

	return list, nil
}

func (s *TranscriptStorage) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil {
		return fmt.Errorf("failed to delete transcript file: %w", err)
	}
	return nil
}

// GenerateTranscriptName derives a short name from the first question.
func GenerateTranscriptName(firstMessage string) string {
	name := strings.Join(strings.Fields(firstMessage), " ")
	if name == "" {
		return fmt.Sprintf("Run %s", time.Now().Format("Jan 2, 3:04 PM"))
	}

	if runes := []rune(name); len(runes) > 40 {
		name = string(runes[:40]) + "..."
	}
	return name
}
