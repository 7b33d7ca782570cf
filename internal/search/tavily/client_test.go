package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSearch(t *testing.T) {
	t.Parallel()

	var captured SearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(SearchResponse{
			Query: captured.Query,
			Results: []SearchResult{
				{Title: "T1", URL: "https://one", Content: "c1", Score: 0.9},
			},
		})
	}))
	t.Cleanup(srv.Close)

	c := NewClient("tvly-key", 0)
	c.baseURL = srv.URL + "/search"

	resp, err := c.Search(context.Background(), SearchRequest{Query: "remote work"})
	if err != nil {
		t.Fatalf("search returned error: %v", err)
	}
	if captured.APIKey != "tvly-key" {
		t.Fatalf("api key must be injected into the body, got %q", captured.APIKey)
	}
	if captured.MaxResults != 5 {
		t.Fatalf("max_results must default to 5, got %d", captured.MaxResults)
	}
	if len(resp.Results) != 1 || resp.Results[0].Title != "T1" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
}

func TestSearchErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid api key"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("bad-key", 0)
	c.baseURL = srv.URL

	_, err := c.Search(context.Background(), SearchRequest{Query: "q"})
	if err == nil {
		t.Fatal("expected error on 401")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("error should carry status, got: %v", err)
	}
}
