package core

import (
	"math"
	"testing"
)

func TestScoredPaperTotalScore(t *testing.T) {
	paper := ScoredPaper{
		Scores: []DimensionScore{
			{Name: "topic_alignment", Weight: 0.5, Value: 0.8},
			{Name: "methodology_fit", Weight: 0.25, Value: 0.4},
			{Name: "experiment_depth", Weight: 0.25, Value: 0.6},
		},
	}

	want := 0.5*0.8 + 0.25*0.4 + 0.25*0.6
	if got := paper.TotalScore(); math.Abs(got-want) > 1e-9 {
		t.Errorf("TotalScore() = %v, want %v", got, want)
	}
}

func TestScoredPaperNormalizedScore(t *testing.T) {
	tests := []struct {
		name   string
		scores []DimensionScore
		want   float64
	}{
		{
			name: "weights summing to one",
			scores: []DimensionScore{
				{Weight: 0.5, Value: 1.0},
				{Weight: 0.5, Value: 0.0},
			},
			want: 50.0,
		},
		{
			name: "weights not summing to one",
			scores: []DimensionScore{
				{Weight: 0.3, Value: 1.0},
				{Weight: 0.3, Value: 1.0},
			},
			want: 100.0,
		},
		{
			name:   "no dimensions",
			scores: nil,
			want:   0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paper := ScoredPaper{Scores: tt.scores}
			got := paper.NormalizedScore()
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NormalizedScore() = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 100 {
				t.Errorf("NormalizedScore() = %v, outside [0,100]", got)
			}
		})
	}
}

func TestCoreSummaryIsComplete(t *testing.T) {
	complete := CoreSummary{
		Problem:     "p",
		Solution:    "s",
		Methodology: "m",
		Experiments: "e",
		Conclusion:  "c",
	}
	if !complete.IsComplete() {
		t.Error("expected complete summary to report IsComplete")
	}

	partial := complete
	partial.Experiments = ""
	if partial.IsComplete() {
		t.Error("expected summary with empty field to report incomplete")
	}
}

func TestTopicDisplayName(t *testing.T) {
	withLabel := Topic{Name: "llm-agents", Label: "LLM Agents"}
	if got := withLabel.DisplayName(); got != "LLM Agents" {
		t.Errorf("DisplayName() = %q, want %q", got, "LLM Agents")
	}

	noLabel := Topic{Name: "llm-agents"}
	if got := noLabel.DisplayName(); got != "llm-agents" {
		t.Errorf("DisplayName() = %q, want %q", got, "llm-agents")
	}
}

func TestPipelineResultAverageScore(t *testing.T) {
	empty := PipelineResult{}
	if got := empty.AverageScore(); got != 0 {
		t.Errorf("AverageScore() on empty result = %v, want 0", got)
	}

	result := PipelineResult{
		Summaries: []PaperSummary{
			{ScoreDetails: []DimensionScore{{Weight: 1.0, Value: 0.8}}},
			{ScoreDetails: []DimensionScore{{Weight: 1.0, Value: 0.4}}},
		},
	}
	if got := result.AverageScore(); math.Abs(got-60.0) > 1e-9 {
		t.Errorf("AverageScore() = %v, want 60", got)
	}
}
