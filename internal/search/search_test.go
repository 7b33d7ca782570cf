package search

import (
	"errors"
	"testing"

	"github.com/trendscope/trendscope/config"
)

func TestNewWebSearcherDefaultsToTavily(t *testing.T) {
	t.Parallel()

	s, err := NewWebSearcher(config.SearchConfig{APIKey: "k"})
	if err != nil {
		t.Fatalf("factory returned error: %v", err)
	}
	if _, ok := s.(*tavilySearcher); !ok {
		t.Fatalf("expected tavily searcher, got %T", s)
	}
}

func TestNewWebSearcherUnsupportedProvider(t *testing.T) {
	t.Parallel()

	_, err := NewWebSearcher(config.SearchConfig{Provider: "bing", APIKey: "k"})
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}
