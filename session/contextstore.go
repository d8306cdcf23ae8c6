package session

import (
	"fmt"
	"strings"
)

// ContextStore accumulates named document or code snippets into a single
// text blob that the assembler folds into the system message. Items are
// kept in insertion order and duplicates are not collapsed: loading the
// same file twice doubles its text.
//
// The store is not safe for concurrent use on its own; the owning session
// serializes access under its turn mutex.
type ContextStore struct {
	label string
	blob  strings.Builder
	names []string
}

// NewContextStore creates a store whose banners carry the given label,
// e.g. "Document" or "Code file".
func NewContextStore(label string) *ContextStore {
	return &ContextStore{label: label}
}

// Add appends content under a ruled banner naming the item.
func (s *ContextStore) Add(name, content string) {
	rule := strings.Repeat("=", 60)
	s.blob.WriteString("\n\n")
	s.blob.WriteString(rule)
	fmt.Fprintf(&s.blob, "\n=== %s: %s ===\n", s.label, name)
	s.blob.WriteString(rule)
	s.blob.WriteString("\n")
	s.blob.WriteString(content)
	s.names = append(s.names, name)
}

// Clear drops all accumulated content and names. Safe to call repeatedly.
func (s *ContextStore) Clear() {
	s.blob.Reset()
	s.names = nil
}

// Text returns the accumulated blob.
func (s *ContextStore) Text() string {
	return s.blob.String()
}

// Names returns a copy of the loaded item names in insertion order.
func (s *ContextStore) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Empty reports whether nothing has been loaded.
func (s *ContextStore) Empty() bool {
	return s.blob.Len() == 0
}
