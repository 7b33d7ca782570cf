package pipeline

import (
	"context"

	"github.com/trendscope/trendscope/internal/llm"
)

const reportSystemPrompt = "You are an expert report writer. Given an analysis with trends, risks, " +
	"and insights, produce a polished final report. " +
	"The executive_summary should be 2-3 concise paragraphs. " +
	"The markdown_report should be a detailed, well-structured document with " +
	"headings, bullet points, and clear sections. " +
	"Include 3-5 follow_up_questions that would deepen the research. " +
	"Respond with a JSON object containing \"executive_summary\", " +
	"\"markdown_report\" and \"follow_up_questions\"."

// Moderate temperature favours fluent prose.
const reportTemperature = 0.5

// ReportStage turns an AnalysisResult into the FinalReport.
type ReportStage struct {
	llm ChatClient
}

// NewReportStage creates the report stage.
func NewReportStage(client ChatClient) *ReportStage {
	return &ReportStage{llm: client}
}

// Run flattens the analysis into its bulleted prompt block, makes exactly one
// generation call in JSON mode, and validates the report schema.
func (s *ReportStage) Run(ctx context.Context, analysis AnalysisResult) (FinalReport, error) {
	resp, err := s.llm.Complete(ctx, llm.ChatRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: reportSystemPrompt},
			{Role: "user", Content: analysis.PromptBlock()},
		},
		Temperature:    reportTemperature,
		ResponseFormat: &llm.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return FinalReport{}, upstreamErr("report", err)
	}
	report, err := ParseFinalReport(resp.Text())
	if err != nil {
		return FinalReport{}, schemaErr("report", err)
	}
	return report, nil
}
