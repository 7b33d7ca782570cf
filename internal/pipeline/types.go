// Package pipeline implements the research → analysis → report pipeline: the
// stage contract, the orchestrator state machine, and the event stream the
// orchestrator produces for one request. No entity here outlives a single
// request.
package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AnalysisResult is the structured output of the analysis stage. All three
// lists are present (possibly empty) and contain only strings; that is
// enforced at the stage boundary by ParseAnalysisResult.
type AnalysisResult struct {
	Trends   []string `json:"trends"`
	Risks    []string `json:"risks"`
	Insights []string `json:"insights"`
}

// FinalReport is the terminal artifact of the pipeline. FollowUpQuestions
// should hold 3-5 entries but the pipeline surfaces whatever the model
// returned rather than hard-failing on the count.
type FinalReport struct {
	ExecutiveSummary  string   `json:"executive_summary"`
	MarkdownReport    string   `json:"markdown_report"`
	FollowUpQuestions []string `json:"follow_up_questions"`
}

// ParseAnalysisResult parses model output as the analysis schema. Missing
// fields or non-string elements fail; lists may be empty but never absent.
func ParseAnalysisResult(text string) (AnalysisResult, error) {
	var raw struct {
		Trends   *[]string `json:"trends"`
		Risks    *[]string `json:"risks"`
		Insights *[]string `json:"insights"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return AnalysisResult{}, fmt.Errorf("invalid analysis JSON: %w", err)
	}
	if raw.Trends == nil {
		return AnalysisResult{}, fmt.Errorf("analysis output missing required field %q", "trends")
	}
	if raw.Risks == nil {
		return AnalysisResult{}, fmt.Errorf("analysis output missing required field %q", "risks")
	}
	if raw.Insights == nil {
		return AnalysisResult{}, fmt.Errorf("analysis output missing required field %q", "insights")
	}
	return AnalysisResult{Trends: *raw.Trends, Risks: *raw.Risks, Insights: *raw.Insights}, nil
}

// ParseFinalReport parses model output as the report schema. The summary and
// markdown report are required; follow-up questions are surfaced as received.
func ParseFinalReport(text string) (FinalReport, error) {
	var raw struct {
		ExecutiveSummary  *string  `json:"executive_summary"`
		MarkdownReport    *string  `json:"markdown_report"`
		FollowUpQuestions []string `json:"follow_up_questions"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return FinalReport{}, fmt.Errorf("invalid report JSON: %w", err)
	}
	if raw.ExecutiveSummary == nil {
		return FinalReport{}, fmt.Errorf("report output missing required field %q", "executive_summary")
	}
	if raw.MarkdownReport == nil {
		return FinalReport{}, fmt.Errorf("report output missing required field %q", "markdown_report")
	}
	return FinalReport{
		ExecutiveSummary:  *raw.ExecutiveSummary,
		MarkdownReport:    *raw.MarkdownReport,
		FollowUpQuestions: raw.FollowUpQuestions,
	}, nil
}

// PromptBlock renders the analysis as the fixed three-section bulleted text
// block the report stage consumes.
func (a AnalysisResult) PromptBlock() string {
	var b strings.Builder
	writeSection := func(title string, items []string) {
		b.WriteString(title)
		b.WriteString(":\n")
		for _, item := range items {
			b.WriteString("- ")
			b.WriteString(item)
			b.WriteString("\n")
		}
	}
	writeSection("Trends", a.Trends)
	b.WriteString("\n")
	writeSection("Risks", a.Risks)
	b.WriteString("\n")
	writeSection("Insights", a.Insights)
	return strings.TrimRight(b.String(), "\n")
}
