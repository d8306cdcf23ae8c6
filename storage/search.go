// Full-text search over saved chat histories with snippet extraction.

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	minQueryLength  = 2
	snippetRadius   = 50
	maxMatchesPerChat = 5
	maxSearchResults  = 20
)

// SearchMatch is one matching message inside a saved chat.
type SearchMatch struct {
	Role    string `json:"role"`
	Snippet string `json:"snippet"`
	Index   int    `json:"index"`
}

// SearchResult groups the matches found in one chat.
type SearchResult struct {
	ChatName string        `json:"chatName"`
	Matches  []SearchMatch `json:"matches"`
}

// storedMessage covers both history shapes the frontend saves: some
// entries carry "text", others "content".
type storedMessage struct {
	Role    string `json:"role"`
	Text    string `json:"text"`
	Content string `json:"content"`
}

func (m storedMessage) body() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Content
}

// SearchChats scans all saved chat histories for the query, case
// insensitive. Queries shorter than two characters return nothing.
// Matches are capped per chat and overall; corrupt histories are
// skipped rather than failing the search.
func (s *Store) SearchChats(ctx context.Context, query string) ([]SearchResult, error) {
	if len(query) < minQueryLength {
		return nil, nil
	}
	needle := strings.ToLower(query)

	rows, err := s.db.QueryContext(ctx, `SELECT name, history FROM chats ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var name, history string
		if err := rows.Scan(&name, &history); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}

		var messages []storedMessage
		if err := json.Unmarshal([]byte(history), &messages); err != nil {
			continue
		}

		var matches []SearchMatch
		for idx, msg := range messages {
			text := msg.body()
			pos := strings.Index(strings.ToLower(text), needle)
			if pos < 0 {
				continue
			}
			matches = append(matches, SearchMatch{
				Role:    roleOrUnknown(msg.Role),
				Snippet: buildSnippet(text, pos, len(query)),
				Index:   idx,
			})
			if len(matches) == maxMatchesPerChat {
				break
			}
		}

		if len(matches) > 0 {
			results = append(results, SearchResult{ChatName: name, Matches: matches})
			if len(results) == maxSearchResults {
				break
			}
		}
	}
	return results, rows.Err()
}

func roleOrUnknown(role string) string {
	if role == "" {
		return "unknown"
	}
	return role
}

// buildSnippet cuts a window around the match, with ellipses marking
// truncated ends.
func buildSnippet(text string, pos, matchLen int) string {
	start := pos - snippetRadius
	if start < 0 {
		start = 0
	}
	end := pos + matchLen + snippetRadius
	if end > len(text) {
		end = len(text)
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(text[start:end])
	if end < len(text) {
		b.WriteString("...")
	}
	return b.String()
}
