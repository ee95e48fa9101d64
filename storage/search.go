package storage

import (
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"toolcall/model"
)

const previewLength = 80

// TranscriptMatch is one message that matched a search.
type TranscriptMatch struct {
	TranscriptID   string
	TranscriptName string
	MessageIndex   int
	Role           string
	Preview        string
	Timestamp      time.Time
	Score          int
}

// messageSource adapts a flat list of messages to fuzzy.Source.
type messageSource []indexedMessage

type indexedMessage struct {
	transcript *Transcript
	index      int
}

func (m messageSource) String(i int) string {
	return strings.ToLower(m[i].transcript.Messages[m[i].index].Content)
}

func (m messageSource) Len() int {
	return len(m)
}

// SearchIndex searches message contents across all saved transcripts.
type SearchIndex struct {
	storage *TranscriptStorage
}

func NewSearchIndex(storage *TranscriptStorage) *SearchIndex {
	return &SearchIndex{storage: storage}
}

// Search returns user and assistant messages matching query, best match first.
// Exact substring hits always rank above fuzzy-only hits. System and tool
// messages are not searched.
func (si *SearchIndex) Search(query string) ([]TranscriptMatch, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []TranscriptMatch{}, nil
	}

	list, err := si.storage.List()
	if err != nil {
		return nil, err
	}

	var source messageSource
	for _, meta := range list {
		t, err := si.storage.Load(meta.ID)
		if err != nil {
			continue
		}
		for i, msg := range t.Messages {
			if msg.Role != model.RoleUser && msg.Role != model.RoleAssistant {
				continue
			}
			if msg.Content == "" {
				continue
			}
			source = append(source, indexedMessage{transcript: t, index: i})
		}
	}

	found := fuzzy.FindFrom(query, source)
	matches := make([]TranscriptMatch, 0, len(found))
	for _, f := range found {
		entry := source[f.Index]
		msg := entry.transcript.Messages[entry.index]

		score := f.Score
		if strings.Contains(strings.ToLower(msg.Content), query) {
			// Lift substring hits above any fuzzy-only score.
			score += 1 << 20
		}

		matches = append(matches, TranscriptMatch{
			TranscriptID:   entry.transcript.ID,
			TranscriptName: entry.transcript.Name,
			MessageIndex:   entry.index,
			Role:           msg.Role,
			Preview:        Preview(msg.Content, previewLength),
			Timestamp:      msg.Timestamp,
			Score:          score,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches, nil
}

// Preview flattens whitespace and cuts s to at most n runes.
func Preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
