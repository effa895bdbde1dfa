package core

import "time"

// TopicQuery describes how candidates for a topic are searched on arXiv.
// At least one of the three fields must be non-empty.
type TopicQuery struct {
	Categories      []string `json:"categories"`       // arXiv category codes (e.g., "cs.CL")
	IncludeKeywords []string `json:"include_keywords"` // Keywords searched against title and abstract
	ExcludeKeywords []string `json:"exclude_keywords"` // Keywords that disqualify a candidate
}

// IsEmpty reports whether the query has no search terms at all.
func (q TopicQuery) IsEmpty() bool {
	return len(q.Categories) == 0 && len(q.IncludeKeywords) == 0 && len(q.ExcludeKeywords) == 0
}

// Topic is one configured research interest. Immutable for the run.
type Topic struct {
	Name           string     `json:"name"`            // Unique, URL-safe identifier
	Label          string     `json:"label"`           // Human-readable display name
	Query          TopicQuery `json:"query"`           // Search definition
	InterestPrompt string     `json:"interest_prompt"` // Free text driving ranking and question generation
}

// DisplayName returns the label, falling back to the name.
func (t Topic) DisplayName() string {
	if t.Label != "" {
		return t.Label
	}
	return t.Name
}

// PaperCandidate is one paper returned by the archive client, before scoring.
type PaperCandidate struct {
	ArxivID      string    `json:"arxiv_id"`     // Canonical id, version suffix stripped; primary key for the run
	Title        string    `json:"title"`        // Paper title
	Abstract     string    `json:"abstract"`     // Abstract text
	Authors      []string  `json:"authors"`      // Author names in feed order
	Affiliations []string  `json:"affiliations"` // Author affiliations when the feed carries them
	Categories   []string  `json:"categories"`   // arXiv categories
	Published    time.Time `json:"published"`    // Submission timestamp
	Updated      time.Time `json:"updated"`      // Last update timestamp
	ArxivURL     string    `json:"arxiv_url"`    // Abstract page URL
	PDFURL       string    `json:"pdf_url"`      // PDF download URL
	Comment      string    `json:"comment"`      // Author comment (optional)
}

// DimensionScore is one axis of relevance scoring for a paper.
type DimensionScore struct {
	Name   string  `json:"name"`   // Dimension name from the scoring config
	Weight float64 `json:"weight"` // Configured weight in [0,1]
	Value  float64 `json:"value"`  // Scored value in [0,1]
	Reason string  `json:"reason"` // Short explanation of the value
}

// ScoredPaper pairs a candidate with its ordered dimension scores.
type ScoredPaper struct {
	Paper  PaperCandidate   `json:"paper"`
	Scores []DimensionScore `json:"scores"`
}

// TotalScore is the weighted sum of dimension values.
func (s ScoredPaper) TotalScore() float64 {
	total := 0.0
	for _, d := range s.Scores {
		total += d.Weight * d.Value
	}
	return total
}

// NormalizedScore maps the total score onto [0,100] regardless of how the
// configured weights sum. Returns 0 when the weight sum is zero.
func (s ScoredPaper) NormalizedScore() float64 {
	weightSum := 0.0
	for _, d := range s.Scores {
		weightSum += d.Weight
	}
	if weightSum == 0 {
		return 0
	}
	return s.TotalScore() / weightSum * 100
}

// TaskItem is one interest-guided question about a paper.
type TaskItem struct {
	Question string `json:"question"` // The question to answer from the paper
	Reason   string `json:"reason"`   // Why this question matters to the reader
}

// TaskFinding is the answer to one TaskItem.
type TaskFinding struct {
	Task       TaskItem `json:"task"`
	Answer     string   `json:"answer"`     // Narrative answer, may embed verbatim quotes
	Confidence float64  `json:"confidence"` // In [0,1]
}

// CoreSummary is the five-field structured view of a paper. All fields are
// non-empty when produced online; the summary may be absent entirely offline.
type CoreSummary struct {
	Problem     string `json:"problem"`
	Solution    string `json:"solution"`
	Methodology string `json:"methodology"`
	Experiments string `json:"experiments"`
	Conclusion  string `json:"conclusion"`
}

// IsComplete reports whether all five fields are present.
func (c CoreSummary) IsComplete() bool {
	return c.Problem != "" && c.Solution != "" && c.Methodology != "" &&
		c.Experiments != "" && c.Conclusion != ""
}

// PaperSummary is the finished artifact for one selected paper.
// Created after reading completes; never mutated afterward.
type PaperSummary struct {
	Topic        Topic            `json:"topic"`
	Paper        PaperCandidate   `json:"paper"`
	ScoreDetails []DimensionScore `json:"score_details"` // Copied from the ScoredPaper
	BriefSummary string           `json:"brief_summary"` // 1-2 paragraph orientation
	CoreSummary  *CoreSummary     `json:"core_summary"`  // nil when reading ran offline or the stage failed
	TaskList     []TaskItem       `json:"task_list"`     // 3-5 questions
	Findings     []TaskFinding    `json:"findings"`      // Pairwise aligned with TaskList
	Overview     string           `json:"overview"`      // Findings joined, or the abstract
	Markdown     string           `json:"markdown"`      // Canonical rendered document
	Partial      bool             `json:"partial"`       // True when the core summary is missing or placeholder
	GeneratedAt  time.Time        `json:"generated_at"`  // UTC timestamp of report generation
}

// NormalizedScore recomputes the normalized score from the stored details.
func (p PaperSummary) NormalizedScore() float64 {
	return ScoredPaper{Scores: p.ScoreDetails}.NormalizedScore()
}

// RunStats aggregates counters for one pipeline run.
type RunStats struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	TopicsProcessed int       `json:"topics_processed"`
	PapersFetched   int       `json:"papers_fetched"`
	PapersSelected  int       `json:"papers_selected"`
}

// PipelineResult is what one run produces: the summary list in topic-then-rank
// order, plus run counters.
type PipelineResult struct {
	Summaries []PaperSummary `json:"summaries"`
	Stats     RunStats       `json:"stats"`
}

// AverageScore is the mean normalized score across summaries, 0 when empty.
func (r PipelineResult) AverageScore() float64 {
	if len(r.Summaries) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range r.Summaries {
		total += s.NormalizedScore()
	}
	return total / float64(len(r.Summaries))
}
