package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/trendscope/trendscope/internal/llm"
	"github.com/trendscope/trendscope/internal/search"
)

// scriptedClient replays canned responses in order and records every request.
type scriptedClient struct {
	responses []*llm.ChatResponse
	errs      []error
	calls     []llm.ChatRequest
}

func (c *scriptedClient) Complete(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	idx := len(c.calls)
	c.calls = append(c.calls, req)
	if idx < len(c.errs) && c.errs[idx] != nil {
		return nil, c.errs[idx]
	}
	if idx >= len(c.responses) {
		return nil, fmt.Errorf("unexpected call %d", idx)
	}
	return c.responses[idx], nil
}

func textResponse(text string) *llm.ChatResponse {
	return &llm.ChatResponse{Choices: []llm.Choice{{
		Message:      llm.ChatMessage{Role: "assistant", Content: text},
		FinishReason: "stop",
	}}}
}

func toolCallResponse(id, args string) *llm.ChatResponse {
	return &llm.ChatResponse{Choices: []llm.Choice{{
		Message: llm.ChatMessage{
			Role: "assistant",
			ToolCalls: []llm.ToolCall{{
				ID:   id,
				Type: "function",
				Function: llm.FunctionCall{Name: searchToolName, Arguments: args},
			}},
		},
		FinishReason: "tool_calls",
	}}}
}

type stubSearcher struct {
	results []search.Result
	err     error
	queries []string
}

func (s *stubSearcher) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

func TestResearchStageToolLoop(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolCallResponse("call-1", `{"query":"remote work trends","max_results":3}`),
		textResponse("summary of findings"),
	}}
	searcher := &stubSearcher{results: []search.Result{
		{Title: "T", URL: "https://example.com", Content: "C"},
	}}
	stage := NewResearchStage(client, searcher, 5, nil)

	got, err := stage.Run(context.Background(), "remote work")
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if got != "summary of findings" {
		t.Fatalf("unexpected summary: %q", got)
	}
	if len(searcher.queries) != 1 || searcher.queries[0] != "remote work trends" {
		t.Fatalf("unexpected search queries: %v", searcher.queries)
	}

	// second request must carry the assistant tool call and the tool reply
	second := client.calls[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != "tool" || last.ToolCallID != "call-1" {
		t.Fatalf("tool reply not threaded back: %+v", last)
	}
	if !strings.Contains(last.Content, "Title: T") {
		t.Fatalf("tool reply missing snippet: %q", last.Content)
	}
}

func TestResearchStageNoResultsProceeds(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolCallResponse("call-1", `{"query":"obscure topic"}`),
		textResponse("nothing found, summary based on prior knowledge"),
	}}
	searcher := &stubSearcher{results: nil}
	stage := NewResearchStage(client, searcher, 5, nil)

	got, err := stage.Run(context.Background(), "obscure topic")
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if got == "" {
		t.Fatal("expected a summary despite empty search results")
	}
	last := client.calls[1].Messages[len(client.calls[1].Messages)-1]
	if last.Content != noResultsSentinel {
		t.Fatalf("expected sentinel tool reply, got %q", last.Content)
	}
}

func TestResearchStageSearchFailure(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolCallResponse("call-1", `{"query":"q"}`),
	}}
	searcher := &stubSearcher{err: errors.New("tavily down")}
	stage := NewResearchStage(client, searcher, 5, nil)

	_, err := stage.Run(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error when search fails")
	}
	if KindOf(err) != KindUpstreamUnavailable {
		t.Fatalf("expected upstream_unavailable, got %s", KindOf(err))
	}
}

func TestResearchStageEmptyFinalText(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.ChatResponse{textResponse("  \n")}}
	stage := NewResearchStage(client, &stubSearcher{}, 5, nil)

	_, err := stage.Run(context.Background(), "q")
	if KindOf(err) != KindEmptyUpstreamResult {
		t.Fatalf("expected empty_upstream_result, got %v", err)
	}
}

func TestResearchStageTurnBound(t *testing.T) {
	t.Parallel()

	responses := make([]*llm.ChatResponse, maxResearchTurns)
	for i := range responses {
		responses[i] = toolCallResponse(fmt.Sprintf("call-%d", i), `{"query":"q"}`)
	}
	client := &scriptedClient{responses: responses}
	searcher := &stubSearcher{results: []search.Result{{Title: "T", URL: "u", Content: "c"}}}
	stage := NewResearchStage(client, searcher, 5, nil)

	_, err := stage.Run(context.Background(), "q")
	if KindOf(err) != KindEmptyUpstreamResult {
		t.Fatalf("expected empty_upstream_result after turn bound, got %v", err)
	}
	if len(client.calls) != maxResearchTurns {
		t.Fatalf("expected exactly %d generation calls, got %d", maxResearchTurns, len(client.calls))
	}
}

func TestFormatSnippets(t *testing.T) {
	t.Parallel()

	got := FormatSnippets([]search.Result{
		{Title: "A", URL: "https://a", Content: "one"},
		{Title: "B", URL: "https://b", Content: "two"},
	})
	want := "Title: A\nURL: https://a\nContent: one\n" + snippetSeparator +
		"Title: B\nURL: https://b\nContent: two\n"
	if got != want {
		t.Fatalf("snippet format mismatch:\ngot:  %q\nwant: %q", got, want)
	}
	if FormatSnippets(nil) != noResultsSentinel {
		t.Fatalf("empty results should yield sentinel")
	}
}

func TestResearchStageClampsMaxResults(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolCallResponse("call-1", `{"query":"q","max_results":50}`),
		textResponse("done"),
	}}
	searcher := &recordingSearcher{}
	stage := NewResearchStage(client, searcher, 3, nil)

	if _, err := stage.Run(context.Background(), "q"); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if searcher.lastK != 3 {
		t.Fatalf("expected max_results clamped to 3, got %d", searcher.lastK)
	}
}

type recordingSearcher struct {
	lastK int
}

func (s *recordingSearcher) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	s.lastK = maxResults
	return nil, nil
}
