package topic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWikipediaBackground(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("srsearch")
		w.Write([]byte(`{
			"query": {
				"search": [
					{"title": "Universal basic income", "snippet": "A <span class=\"searchmatch\">universal basic income</span> is a social welfare proposal."},
					{"title": "Basic income pilots", "snippet": "Several countries have run pilots."},
					{"title": "Empty", "snippet": "  "}
				]
			}
		}`))
	}))
	defer server.Close()

	wiki := &Wikipedia{URL: server.URL}
	bg, err := wiki.Background(context.Background(), "Should universal basic income be implemented?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Question phrasing is stripped for the search.
	if gotQuery != "universal basic income be implemented" {
		t.Errorf("search query mismatch: got %q", gotQuery)
	}

	if !strings.Contains(bg, "Universal basic income: A universal basic income") {
		t.Errorf("background missing first result: %q", bg)
	}
	if strings.Contains(bg, "searchmatch") {
		t.Errorf("HTML not stripped from snippet: %q", bg)
	}
	if strings.Contains(bg, "Empty:") {
		t.Errorf("blank snippet should be skipped: %q", bg)
	}
}

func TestWikipediaNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query": {"search": []}}`))
	}))
	defer server.Close()

	wiki := &Wikipedia{URL: server.URL}
	if _, err := wiki.Background(context.Background(), "anything"); err == nil {
		t.Error("expected error for empty search results")
	}
}

func TestWikipediaErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	wiki := &Wikipedia{URL: server.URL}
	if _, err := wiki.Background(context.Background(), "anything"); err == nil {
		t.Error("expected error for non-200 status")
	}
}

func TestSearchQuery(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Should vaccines be mandatory?", "vaccines be mandatory"},
		{"Is social media harmful to society?", "social media harmful to society"},
		{"Universal basic income", "Universal basic income"},
	}
	for _, tc := range cases {
		if got := searchQuery(tc.in); got != tc.want {
			t.Errorf("searchQuery(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}
