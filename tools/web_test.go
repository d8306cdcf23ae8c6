package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchClientSendsBearerAuth(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"results": []}`))
	}))
	defer ts.Close()

	client := NewSearchClient("secret-key", ts.URL)
	out, err := client.Search(context.Background(), "golang news", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer secret-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotPath != "/web_search" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["query"] != "golang news" || gotBody["max_results"] != float64(4) {
		t.Errorf("body = %v", gotBody)
	}
	if out != `{"results": []}` {
		t.Errorf("out = %q", out)
	}
}

func TestSearchClientMissingKeyFailsFast(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ts.Close()

	client := NewSearchClient("", ts.URL)
	_, err := client.Search(context.Background(), "anything", 5)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
	if called {
		t.Error("request issued despite missing key")
	}
}

func TestSearchClientRejectedKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer ts.Close()

	client := NewSearchClient("wrong", ts.URL)
	_, err := client.Fetch(context.Background(), "https://example.com")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestWebSearchToolRequiresQuery(t *testing.T) {
	tool := NewWebSearchTool(NewSearchClient("k", "http://unused.invalid"))
	if _, err := tool.Execute(context.Background(), Arguments{}); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestWebFetchToolRequiresURL(t *testing.T) {
	tool := NewWebFetchTool(NewSearchClient("k", "http://unused.invalid"))
	if _, err := tool.Execute(context.Background(), Arguments{}); err == nil {
		t.Error("expected error for empty url")
	}
}

func TestWebRegistryDeclarations(t *testing.T) {
	registry := WebRegistry(NewSearchClient("k", ""))

	names := registry.Names()
	if len(names) != 2 || names[0] != "web_fetch" || names[1] != "web_search" {
		t.Errorf("names = %v, want [web_fetch web_search]", names)
	}

	defs := registry.Declarations()
	if len(defs) != 2 {
		t.Fatalf("declarations = %d, want 2", len(defs))
	}
	if defs[1].Name != "web_search" {
		t.Errorf("second declaration = %q", defs[1].Name)
	}
	var requiredQuery bool
	for _, p := range defs[1].Parameters {
		if p.Name == "query" && p.Required {
			requiredQuery = true
		}
	}
	if !requiredQuery {
		t.Error("web_search query parameter should be required")
	}
}
