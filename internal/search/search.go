// Package search exposes web search providers behind a common interface.
package search

import (
	"context"
	"errors"

	"github.com/trendscope/trendscope/config"
	"github.com/trendscope/trendscope/internal/search/tavily"
)

// Result is a single web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// WebSearcher performs a web search and returns up to k results.
type WebSearcher interface {
	Search(ctx context.Context, q string, k int) ([]Result, error)
}

type Provider string

const (
	TavilyProvider Provider = "tavily"
)

var ErrUnsupportedProvider = errors.New("unsupported search provider")

// NewWebSearcher builds a searcher for the configured provider.
func NewWebSearcher(cfg config.SearchConfig) (WebSearcher, error) {
	switch Provider(cfg.Provider) {
	case TavilyProvider, "":
		return &tavilySearcher{client: tavily.NewClient(cfg.APIKey, cfg.Timeout)}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

type tavilySearcher struct {
	client *tavily.Client
}

func (s *tavilySearcher) Search(ctx context.Context, q string, k int) ([]Result, error) {
	resp, err := s.client.Search(ctx, tavily.SearchRequest{Query: q, MaxResults: k})
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, Result{Title: r.Title, URL: r.URL, Content: r.Content})
	}
	return out, nil
}
