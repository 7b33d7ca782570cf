package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/trendscope/trendscope/internal/llm"
	"github.com/trendscope/trendscope/internal/search"
)

// ChatClient is the generation capability every stage delegates to.
type ChatClient interface {
	Complete(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

const researchSystemPrompt = "You are a thorough research assistant. " +
	"When given a query, you MUST use the web_search tool to gather " +
	"real sources from the web before summarizing. " +
	"Make multiple searches if needed to cover different angles. " +
	"Return a comprehensive research summary that includes key facts, " +
	"data points, and source URLs."

const researchTemperature = 0.4

// maxResearchTurns bounds the tool-use loop; the model must produce a final
// answer within this many generation calls.
const maxResearchTurns = 8

const searchToolName = "web_search"

// noResultsSentinel is returned to the model when a search yields nothing.
const noResultsSentinel = "No results found."

const snippetSeparator = "\n---\n"

// researchTools is built once and reused across requests.
var researchTools = []llm.Tool{{
	Type: "function",
	Function: llm.FunctionTool{
		Name:        searchToolName,
		Description: "Search the web and return relevant results.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query",
				},
				"max_results": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results to return",
				},
			},
			"required": []string{"query"},
		},
	},
}}

// ResearchStage produces an unstructured research summary for a query by
// running a bounded multi-turn tool loop against the generation capability.
type ResearchStage struct {
	llm        ChatClient
	searcher   search.WebSearcher
	maxResults int
	logger     *log.Logger
}

// NewResearchStage creates the research stage. maxResults caps snippets per
// search call (default 5).
func NewResearchStage(client ChatClient, searcher search.WebSearcher, maxResults int, logger *log.Logger) *ResearchStage {
	if maxResults <= 0 {
		maxResults = 5
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags)
	}
	return &ResearchStage{llm: client, searcher: searcher, maxResults: maxResults, logger: logger}
}

// Run opens a multi-turn exchange with the model and returns its final
// synthesized text. The loop alternates between model output and tool
// execution until the model stops requesting tools or the turn bound is hit.
func (s *ResearchStage) Run(ctx context.Context, query string) (string, error) {
	messages := []llm.ChatMessage{
		{Role: "system", Content: researchSystemPrompt},
		{Role: "user", Content: query},
	}

	for turn := 0; turn < maxResearchTurns; turn++ {
		resp, err := s.llm.Complete(ctx, llm.ChatRequest{
			Messages:    messages,
			Temperature: researchTemperature,
			Tools:       researchTools,
		})
		if err != nil {
			return "", upstreamErr("research", err)
		}

		calls := resp.ToolCalls()
		if len(calls) == 0 {
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				return "", emptyResultErr("research", fmt.Errorf("model returned no text"))
			}
			return text, nil
		}

		messages = append(messages, resp.Choices[0].Message)
		for _, call := range calls {
			content, err := s.dispatchTool(ctx, call)
			if err != nil {
				return "", err
			}
			messages = append(messages, llm.ChatMessage{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    content,
			})
		}
	}

	return "", emptyResultErr("research",
		fmt.Errorf("model did not produce a final answer within %d turns", maxResearchTurns))
}

// dispatchTool executes one model-requested tool call. Malformed requests are
// reported back to the model as tool output; search transport failures abort
// the stage.
func (s *ResearchStage) dispatchTool(ctx context.Context, call llm.ToolCall) (string, error) {
	if call.Function.Name != searchToolName {
		return fmt.Sprintf("unknown tool %q", call.Function.Name), nil
	}
	var args struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return fmt.Sprintf("invalid %s arguments: %v", searchToolName, err), nil
	}
	k := args.MaxResults
	if k <= 0 || k > s.maxResults {
		k = s.maxResults
	}
	s.logger.Printf("web_search %q (k=%d)", args.Query, k)
	results, err := s.searcher.Search(ctx, args.Query, k)
	if err != nil {
		return "", upstreamErr("research.web_search", err)
	}
	return FormatSnippets(results), nil
}

// FormatSnippets renders search results as the textual tool payload handed
// back to the model.
func FormatSnippets(results []search.Result) string {
	if len(results) == 0 {
		return noResultsSentinel
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("Title: %s\nURL: %s\nContent: %s\n", r.Title, r.URL, r.Content))
	}
	return strings.Join(parts, snippetSeparator)
}
