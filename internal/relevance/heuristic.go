package relevance

import (
	"regexp"
	"strings"

	"github.com/yeren66/LLM4ArxivPaper/internal/core"
)

// Cue vocabularies for the lexical dimensions.
var (
	methodologyCues = []string{
		"method", "approach", "framework", "architecture", "technique",
		"algorithm", "pipeline", "formulation",
	}
	noveltyCues = []string{
		"novel", "new", "first", "state-of-the-art", "sota", "outperform",
		"surpass", "improve",
	}
	experimentCues = []string{
		"experiment", "evaluation", "benchmark", "dataset", "ablation",
		"baseline", "empirical", "results",
	}
)

var tokenRegex = regexp.MustCompile(`[a-z0-9]+`)

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "are": true, "from": true, "have": true, "has": true,
	"was": true, "were": true, "not": true, "our": true, "their": true,
	"can": true, "which": true, "into": true, "such": true, "using": true,
}

// HeuristicScorer produces deterministic lexical dimension values. It backs
// offline mode and serves as the degradation path for online failures.
type HeuristicScorer struct{}

// ScoreDimension computes one dimension's value in [0,1] from the paper's
// title plus abstract. Unknown dimension names score a neutral 0.5.
func (HeuristicScorer) ScoreDimension(name string, topic core.Topic, paper core.PaperCandidate) (float64, string) {
	text := strings.ToLower(paper.Title + " " + paper.Abstract)

	switch name {
	case "topic_alignment":
		keywordRatio := overlapRatio(topic.Query.IncludeKeywords, text)
		promptRatio := tokenOverlapRatio(topic.InterestPrompt, text)
		ratio := keywordRatio
		if promptRatio > ratio {
			ratio = promptRatio
		}
		return ratio, "lexical overlap with topic keywords and interest prompt"
	case "methodology_fit":
		hits := countCues(text, methodologyCues)
		return clamp01(float64(hits) * 0.20), "methodology cue words in title and abstract"
	case "novelty":
		hits := countCues(text, noveltyCues)
		return clamp01(0.40 + float64(hits)*0.15), "novelty cue words in title and abstract"
	case "experiment_depth", "experiment_coverage":
		hits := countCues(text, experimentCues)
		return clamp01(float64(hits) * 0.25), "experimental cue words in title and abstract"
	default:
		return 0.5, "no heuristic for this dimension"
	}
}

// overlapRatio is the fraction of keywords occurring in text.
func overlapRatio(keywords []string, text string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	matched := 0
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" && strings.Contains(text, keyword) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}

// tokenOverlapRatio is the fraction of prompt tokens occurring in text.
func tokenOverlapRatio(prompt, text string) float64 {
	tokens := Tokenize(prompt)
	if len(tokens) == 0 {
		return 0
	}
	matched := 0
	for _, token := range tokens {
		if strings.Contains(text, token) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

func countCues(text string, cues []string) int {
	hits := 0
	for _, cue := range cues {
		if strings.Contains(text, cue) {
			hits++
		}
	}
	return hits
}

// Tokenize lowercases and splits text into content words of three or more
// characters, dropping stop words.
func Tokenize(text string) []string {
	var tokens []string
	for _, token := range tokenRegex.FindAllString(strings.ToLower(text), -1) {
		if len(token) >= 3 && !stopWords[token] {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
