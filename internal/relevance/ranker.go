package relevance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yeren66/LLM4ArxivPaper/internal/config"
	"github.com/yeren66/LLM4ArxivPaper/internal/core"
	"github.com/yeren66/LLM4ArxivPaper/internal/llm"
	"github.com/yeren66/LLM4ArxivPaper/internal/logger"
)

// Ranker scores candidates against a topic's interest. With an LLM client it
// asks the model per candidate; without one, or when a call fails, it scores
// that candidate heuristically.
type Ranker struct {
	cfg       config.Relevance
	llmClient llm.Client // nil in offline mode
	model     string
	language  string
	heuristic HeuristicScorer
}

// NewRanker builds a ranker. llmClient may be nil for offline operation.
func NewRanker(cfg config.Relevance, llmClient llm.Client, model, language string) *Ranker {
	return &Ranker{cfg: cfg, llmClient: llmClient, model: model, language: language}
}

// Score returns one ScoredPaper per candidate, in input order. Every result
// carries exactly the configured dimension set.
func (r *Ranker) Score(ctx context.Context, topic core.Topic, candidates []core.PaperCandidate) []core.ScoredPaper {
	scored := make([]core.ScoredPaper, 0, len(candidates))
	for _, candidate := range candidates {
		scored = append(scored, r.scoreOne(ctx, topic, candidate))
	}
	return scored
}

// Passes applies the configured threshold to a scored paper.
func (r *Ranker) Passes(paper core.ScoredPaper) bool {
	return paper.NormalizedScore() >= r.cfg.PassThreshold
}

func (r *Ranker) scoreOne(ctx context.Context, topic core.Topic, candidate core.PaperCandidate) core.ScoredPaper {
	if r.llmClient != nil {
		scored, err := r.scoreWithLLM(ctx, topic, candidate)
		if err == nil {
			return scored
		}
		logger.Warn("llm relevance scoring failed, falling back to heuristic",
			"topic", topic.Name, "arxiv_id", candidate.ArxivID, "error", err.Error())
	}
	return r.scoreHeuristically(topic, candidate)
}

func (r *Ranker) scoreHeuristically(topic core.Topic, candidate core.PaperCandidate) core.ScoredPaper {
	scores := make([]core.DimensionScore, 0, len(r.cfg.ScoringDimensions))
	for _, dim := range r.cfg.ScoringDimensions {
		value, reason := r.heuristic.ScoreDimension(dim.Name, topic, candidate)
		scores = append(scores, core.DimensionScore{
			Name:   dim.Name,
			Weight: dim.Weight,
			Value:  value,
			Reason: reason,
		})
	}
	return core.ScoredPaper{Paper: candidate, Scores: scores}
}

// dimensionVerdict is what the model returns per dimension.
type dimensionVerdict struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

func (r *Ranker) scoreWithLLM(ctx context.Context, topic core.Topic, candidate core.PaperCandidate) (core.ScoredPaper, error) {
	system := "You are a research assistant scoring how relevant a paper is to a reader's interest. " +
		"Respond with a JSON object mapping every dimension name to {\"score\": <0-100>, \"reason\": <string>}. " +
		llm.LanguageInstruction(r.language)

	var schema strings.Builder
	for _, dim := range r.cfg.ScoringDimensions {
		fmt.Fprintf(&schema, "- %s (weight %.2f): %s\n", dim.Name, dim.Weight, dim.Description)
	}

	user := fmt.Sprintf(`Reader interest:
%s

Paper:
Title: %s
Abstract: %s
Categories: %s

Score the paper on each dimension:
%s`,
		topic.InterestPrompt, candidate.Title, candidate.Abstract,
		strings.Join(candidate.Categories, ", "), schema.String())

	response, err := r.llmClient.CompleteJSON(ctx, r.model, system, user)
	if err != nil {
		return core.ScoredPaper{}, err
	}

	verdicts := map[string]dimensionVerdict{}
	if err := json.Unmarshal([]byte(response), &verdicts); err != nil {
		return core.ScoredPaper{}, fmt.Errorf("parsing relevance response: %w", err)
	}

	scores := make([]core.DimensionScore, 0, len(r.cfg.ScoringDimensions))
	for _, dim := range r.cfg.ScoringDimensions {
		verdict, ok := verdicts[dim.Name]
		if !ok {
			// The model skipped a dimension; the heuristic fills the gap.
			value, reason := r.heuristic.ScoreDimension(dim.Name, topic, candidate)
			scores = append(scores, core.DimensionScore{Name: dim.Name, Weight: dim.Weight, Value: value, Reason: reason})
			continue
		}
		scores = append(scores, core.DimensionScore{
			Name:   dim.Name,
			Weight: dim.Weight,
			Value:  clamp01(verdict.Score / 100),
			Reason: strings.TrimSpace(verdict.Reason),
		})
	}
	return core.ScoredPaper{Paper: candidate, Scores: scores}, nil
}
