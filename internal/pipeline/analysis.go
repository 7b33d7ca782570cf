package pipeline

import (
	"context"

	"github.com/trendscope/trendscope/internal/llm"
)

const analysisSystemPrompt = "You are a senior analyst. Given a research summary, identify the most " +
	"important trends, potential risks, and actionable insights. " +
	"Be specific and back up your analysis with evidence from the research. " +
	"Respond with a JSON object containing three arrays of strings: " +
	`"trends", "risks" and "insights".`

// Low temperature favours factual extraction over creativity.
const analysisTemperature = 0.3

// AnalysisStage extracts a structured AnalysisResult from a research summary.
type AnalysisStage struct {
	llm ChatClient
}

// NewAnalysisStage creates the analysis stage.
func NewAnalysisStage(client ChatClient) *AnalysisStage {
	return &AnalysisStage{llm: client}
}

// Run makes exactly one generation call in JSON mode and validates the
// returned object against the analysis schema.
func (s *AnalysisStage) Run(ctx context.Context, summary string) (AnalysisResult, error) {
	resp, err := s.llm.Complete(ctx, llm.ChatRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: analysisSystemPrompt},
			{Role: "user", Content: "Analyse the following research:\n\n" + summary},
		},
		Temperature:    analysisTemperature,
		ResponseFormat: &llm.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return AnalysisResult{}, upstreamErr("analysis", err)
	}
	result, err := ParseAnalysisResult(resp.Text())
	if err != nil {
		return AnalysisResult{}, schemaErr("analysis", err)
	}
	return result, nil
}
