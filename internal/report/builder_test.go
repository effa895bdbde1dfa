package report

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/yeren66/LLM4ArxivPaper/internal/core"
	"github.com/yeren66/LLM4ArxivPaper/internal/reading"
)

var buildTime = time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)

func fixedBuilder() *Builder {
	return &Builder{now: func() time.Time { return buildTime }}
}

func sampleScored() core.ScoredPaper {
	return core.ScoredPaper{
		Paper: core.PaperCandidate{
			ArxivID:   "2508.01234",
			Title:     "Testing Retrieval Agents",
			Abstract:  "An abstract.",
			Authors:   []string{"Ada Lovelace", "Alan Turing"},
			Published: time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC),
			ArxivURL:  "http://arxiv.org/abs/2508.01234",
		},
		Scores: []core.DimensionScore{
			{Name: "topic_alignment", Weight: 0.5, Value: 0.9, Reason: "match"},
			{Name: "experiment_depth", Weight: 0.5, Value: 0.5, Reason: "some"},
		},
	}
}

func sampleAnalysis() *reading.Analysis {
	return &reading.Analysis{
		Brief: "First paragraph.\n\nSecond paragraph.",
		Core: &core.CoreSummary{
			Problem:     "The problem.",
			Solution:    "The solution.",
			Methodology: "The methodology.",
			Experiments: "The experiments.",
			Conclusion:  "The conclusion.",
		},
		Tasks: []core.TaskItem{
			{Question: "How does it work?", Reason: "mechanism"},
			{Question: "What is evaluated?", Reason: "evidence"},
			{Question: "What are the limits?", Reason: "scope"},
		},
		Findings: []core.TaskFinding{
			{Task: core.TaskItem{Question: "How does it work?"}, Answer: "It plans. Then it acts.", Confidence: 0.8},
			{Task: core.TaskItem{Question: "What is evaluated?"}, Answer: "Three datasets.", Confidence: 0.5},
			{Task: core.TaskItem{Question: "What are the limits?"}, Answer: "Cost.", Confidence: 0.3},
		},
		Overview: "It plans. Then it acts.\n\nThree datasets.",
	}
}

func TestBuildSectionOrder(t *testing.T) {
	summary := fixedBuilder().Build(core.Topic{Name: "agents", Label: "Agents"}, sampleScored(), sampleAnalysis())

	sections := []string{
		"# Testing Retrieval Agents",
		"> First paragraph.",
		"**Topic**: Agents",
		"**arXiv**: [2508.01234](http://arxiv.org/abs/2508.01234)",
		"**Authors**: Ada Lovelace, Alan Turing",
		"**Published**: 2026-08-18",
		"**Score**: 70.0/100",
		"### 📊 Relevance Scores",
		"- topic_alignment: 90.0/100 (weight: 0.50)",
		"### 🧩 Core Summary",
		"**Problem**",
		"### ❓ Interest Questions",
		"1. How does it work?",
		"### 🔍 Findings",
		"#### 1. How does it work?",
		"*Confidence: 0.80*",
		"### 📝 Overview",
		"### 💡 Why Recommended",
		"*Generated at 2026-08-20 09:30 UTC*",
	}

	pos := 0
	for _, section := range sections {
		idx := strings.Index(summary.Markdown[pos:], section)
		if idx < 0 {
			t.Fatalf("section %q missing or out of order in:\n%s", section, summary.Markdown)
		}
		pos += idx
	}
}

func TestBuildOmitsCoreSummaryWhenAbsent(t *testing.T) {
	analysis := sampleAnalysis()
	analysis.Core = nil
	analysis.Partial = true

	summary := fixedBuilder().Build(core.Topic{Name: "agents"}, sampleScored(), analysis)
	if strings.Contains(summary.Markdown, "Core Summary") {
		t.Error("core summary section should be omitted when absent")
	}
	if !summary.Partial {
		t.Error("summary should carry the partial flag")
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	topic := core.Topic{Name: "agents", Label: "Agents"}
	first := fixedBuilder().Build(topic, sampleScored(), sampleAnalysis())
	second := fixedBuilder().Build(topic, sampleScored(), sampleAnalysis())
	if first.Markdown != second.Markdown {
		t.Error("markdown not byte-identical for fixed inputs")
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	summary := fixedBuilder().Build(core.Topic{Name: "agents", Label: "Agents"}, sampleScored(), sampleAnalysis())

	header, err := ParseHeader(summary.Markdown)
	if err != nil {
		t.Fatalf("ParseHeader returned error: %v", err)
	}
	if header.Title != "Testing Retrieval Agents" {
		t.Errorf("Title = %q", header.Title)
	}
	if header.ArxivID != "2508.01234" {
		t.Errorf("ArxivID = %q", header.ArxivID)
	}
	if header.Published != "2026-08-18" {
		t.Errorf("Published = %q", header.Published)
	}
	wantScore := math.Round(summary.NormalizedScore()*10) / 10
	if header.Score != wantScore {
		t.Errorf("Score = %v, want %v", header.Score, wantScore)
	}
}

func TestRecommendationUsesHighConfidenceFinding(t *testing.T) {
	summary := fixedBuilder().Build(core.Topic{Name: "agents", Label: "Agents"}, sampleScored(), sampleAnalysis())

	if !strings.Contains(summary.Markdown, "A high-confidence finding (0.80): It plans.") {
		t.Errorf("recommendation missing high-confidence finding:\n%s", summary.Markdown)
	}
}

func TestRecommendationWithoutHighConfidenceFinding(t *testing.T) {
	analysis := sampleAnalysis()
	for i := range analysis.Findings {
		analysis.Findings[i].Confidence = 0.2
	}

	summary := fixedBuilder().Build(core.Topic{Name: "agents", Label: "Agents"}, sampleScored(), analysis)
	if strings.Contains(summary.Markdown, "high-confidence finding") {
		t.Error("recommendation should not cite a low-confidence finding")
	}
	if !strings.Contains(summary.Markdown, "topic_alignment") {
		t.Error("recommendation should still name the top-weighted dimension")
	}
}

func TestNonASCIIContentPreserved(t *testing.T) {
	scored := sampleScored()
	scored.Paper.Title = "大模型智能体综述"
	analysis := sampleAnalysis()
	analysis.Brief = "这是一段简要概述。"

	summary := fixedBuilder().Build(core.Topic{Name: "agents"}, scored, analysis)
	for _, want := range []string{"# 大模型智能体综述", "> 这是一段简要概述。"} {
		if !strings.Contains(summary.Markdown, want) {
			t.Errorf("missing %q in markdown", want)
		}
	}
}

func TestScoreFormattedToOneDecimal(t *testing.T) {
	scored := sampleScored()
	scored.Scores = []core.DimensionScore{{Name: "topic_alignment", Weight: 0.3, Value: 0.777}}

	summary := fixedBuilder().Build(core.Topic{Name: "t"}, scored, sampleAnalysis())
	want := fmt.Sprintf("**Score**: %.1f/100", scored.NormalizedScore())
	if !strings.Contains(summary.Markdown, want) {
		t.Errorf("markdown missing %q", want)
	}
}
