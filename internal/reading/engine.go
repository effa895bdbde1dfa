package reading

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yeren66/LLM4ArxivPaper/internal/config"
	"github.com/yeren66/LLM4ArxivPaper/internal/core"
	"github.com/yeren66/LLM4ArxivPaper/internal/fetch"
	"github.com/yeren66/LLM4ArxivPaper/internal/llm"
	"github.com/yeren66/LLM4ArxivPaper/internal/logger"
)

// Content budgets, in characters. The core-summary prompt gets a tighter
// budget because the structured response needs headroom.
const (
	contentBudget     = 15000
	coreSummaryBudget = 12000
)

// coreFieldPlaceholder fills a field the model repeatedly left empty.
const coreFieldPlaceholder = "Not available from the source text."

// Analysis is everything the engine learned about one paper.
type Analysis struct {
	Content  fetch.Content
	Brief    string
	Core     *core.CoreSummary // nil offline or when the stage failed outright
	Tasks    []core.TaskItem
	Findings []core.TaskFinding
	Overview string
	Partial  bool // true when the core summary is absent or contains placeholders
}

// Engine drives the five-stage reading protocol over one paper. Every stage
// has a deterministic fallback, so a nil LLM client (offline mode) or any
// failing call degrades that stage without aborting the paper.
type Engine struct {
	cfg       config.Summarization
	llmClient llm.Client // nil in offline mode
	resolver  *fetch.Resolver
	model     string
	language  string
}

// NewEngine builds a reading engine. llmClient may be nil.
func NewEngine(cfg config.Summarization, llmClient llm.Client, resolver *fetch.Resolver, model, language string) *Engine {
	return &Engine{cfg: cfg, llmClient: llmClient, resolver: resolver, model: model, language: language}
}

// Read runs stages 0-5 for one paper. The only error it returns is
// cancellation; every other failure degrades to a fallback.
func (e *Engine) Read(ctx context.Context, topic core.Topic, paper core.PaperCandidate) (*Analysis, error) {
	analysis := &Analysis{}

	// Stage 0: content resolution.
	analysis.Content = e.resolveContent(ctx, paper)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 1: brief summary.
	analysis.Brief = e.briefSummary(ctx, paper, analysis.Content.Text)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 2: structured core summary.
	analysis.Core, analysis.Partial = e.coreSummary(ctx, paper, analysis.Content.Text)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 3: interest-guided questions.
	analysis.Tasks = e.generateTasks(ctx, topic, paper, analysis.Core)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 4: per-question evidential answers.
	analysis.Findings = make([]core.TaskFinding, 0, len(analysis.Tasks))
	for _, task := range analysis.Tasks {
		analysis.Findings = append(analysis.Findings, e.answerTask(ctx, task, analysis.Content.Text, paper))
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	// Stage 5: overview assembly.
	analysis.Overview = assembleOverview(analysis.Findings, paper.Abstract)

	return analysis, nil
}

func (e *Engine) resolveContent(ctx context.Context, paper core.PaperCandidate) fetch.Content {
	if e.resolver == nil {
		return fetch.Content{Source: fetch.SourceAbstract, Text: paper.Abstract}
	}
	content := e.resolver.Resolve(ctx, paper)
	if content.Source == fetch.SourceHTML {
		content.Text = fetch.LimitSections(content.Text, e.cfg.MaxSections)
	}
	content.Text = fetch.Truncate(content.Text, contentBudget)
	return content
}

// briefSummary is stage 1: 1-2 paragraphs orienting the reader.
func (e *Engine) briefSummary(ctx context.Context, paper core.PaperCandidate, content string) string {
	if e.llmClient != nil {
		system := "You summarize academic papers for busy researchers. " + llm.LanguageInstruction(e.language)
		user := fmt.Sprintf(`Write a brief summary of this paper in 1-2 paragraphs (5-8 sentences total).
Cover, in order: why the research is needed, what is proposed, and how it works or the headline result.
Put a paragraph break between the context and the key insight.

Title: %s

%s`, paper.Title, content)

		text, err := e.llmClient.Complete(ctx, e.model, system, user)
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		if err != nil {
			logger.Warn("brief summary failed, using heuristic", "arxiv_id", paper.ArxivID, "error", err.Error())
		}
	}
	return HeuristicBrief(content)
}

// coreSummary is stage 2. Returns (summary, partial): offline yields
// (nil, true); an online failure after one retry fills empty fields with the
// placeholder and reports partial.
func (e *Engine) coreSummary(ctx context.Context, paper core.PaperCandidate, content string) (*core.CoreSummary, bool) {
	if e.llmClient == nil {
		return nil, true
	}

	system := "You extract structured summaries of academic papers. " +
		`Respond with a JSON object with exactly these keys: "problem", "solution", "methodology", "experiments", "conclusion". ` +
		"Each value is a narrative of 3-8 sentences. Never leave a field empty. " +
		llm.LanguageInstruction(e.language)
	user := fmt.Sprintf("Title: %s\n\n%s", paper.Title, fetch.Truncate(content, coreSummaryBudget))

	var lastSummary *core.CoreSummary
	for attempt := 0; attempt < 2; attempt++ {
		if ctx.Err() != nil {
			return nil, true
		}
		response, err := e.llmClient.CompleteJSON(ctx, e.model, system, user)
		if err != nil {
			logger.Warn("core summary call failed", "arxiv_id", paper.ArxivID, "attempt", attempt+1, "error", err.Error())
			continue
		}
		summary := &core.CoreSummary{}
		if err := json.Unmarshal([]byte(response), summary); err != nil {
			logger.Warn("core summary response was not valid JSON", "arxiv_id", paper.ArxivID, "attempt", attempt+1, "error", err.Error())
			continue
		}
		trimCoreSummary(summary)
		if summary.IsComplete() {
			return summary, false
		}
		lastSummary = summary
	}

	if lastSummary == nil {
		return nil, true
	}
	fillPlaceholders(lastSummary)
	return lastSummary, true
}

func trimCoreSummary(s *core.CoreSummary) {
	s.Problem = strings.TrimSpace(s.Problem)
	s.Solution = strings.TrimSpace(s.Solution)
	s.Methodology = strings.TrimSpace(s.Methodology)
	s.Experiments = strings.TrimSpace(s.Experiments)
	s.Conclusion = strings.TrimSpace(s.Conclusion)
}

func fillPlaceholders(s *core.CoreSummary) {
	fields := []*string{&s.Problem, &s.Solution, &s.Methodology, &s.Experiments, &s.Conclusion}
	for _, field := range fields {
		if *field == "" {
			*field = coreFieldPlaceholder
		}
	}
}

// taskResponse is the stage-3 response schema.
type taskResponse struct {
	Tasks []core.TaskItem `json:"tasks"`
}

// generateTasks is stage 3: 3-5 questions steered by the interest prompt,
// topped up from the default list when the model under-delivers.
func (e *Engine) generateTasks(ctx context.Context, topic core.Topic, paper core.PaperCandidate, summary *core.CoreSummary) []core.TaskItem {
	limit := e.taskLimit()

	if e.llmClient == nil || strings.TrimSpace(topic.InterestPrompt) == "" {
		return DefaultTasks(e.language)[:limit]
	}

	system := "You generate reading questions about an academic paper, tailored to a reader's interest. " +
		`Respond with a JSON object: {"tasks": [{"question": <string>, "reason": <string>}, ...]}. ` +
		fmt.Sprintf("Produce between 3 and %d questions that are answerable from the paper. ", limit) +
		llm.LanguageInstruction(e.language)
	user := fmt.Sprintf(`Reader interest:
%s

Paper title: %s
Abstract: %s
%s`, topic.InterestPrompt, paper.Title, paper.Abstract, coreSummaryDigest(summary))

	response, err := e.llmClient.CompleteJSON(ctx, e.model, system, user)
	if err != nil {
		logger.Warn("task generation failed, using defaults", "topic", topic.Name, "arxiv_id", paper.ArxivID, "error", err.Error())
		return DefaultTasks(e.language)[:limit]
	}

	var parsed taskResponse
	if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		logger.Warn("task generation returned invalid JSON, using defaults", "arxiv_id", paper.ArxivID, "error", err.Error())
		return DefaultTasks(e.language)[:limit]
	}

	var tasks []core.TaskItem
	for _, task := range parsed.Tasks {
		task.Question = strings.TrimSpace(task.Question)
		task.Reason = strings.TrimSpace(task.Reason)
		if task.Question != "" {
			tasks = append(tasks, task)
		}
	}

	// Top up to the minimum of three; cap at the limit.
	for _, fallback := range DefaultTasks(e.language) {
		if len(tasks) >= 3 {
			break
		}
		tasks = append(tasks, fallback)
	}
	if len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks
}

// taskLimit clamps task_list_size into [3,5].
func (e *Engine) taskLimit() int {
	limit := e.cfg.TaskListSize
	if limit < 3 {
		limit = 3
	}
	if limit > 5 {
		limit = 5
	}
	return limit
}

// coreSummaryDigest folds the core summary into the stage-3 prompt, each
// field clipped to 300 characters.
func coreSummaryDigest(summary *core.CoreSummary) string {
	if summary == nil {
		return ""
	}
	clip := func(s string) string {
		if len(s) > 300 {
			return s[:300]
		}
		return s
	}
	return fmt.Sprintf(`
Structured summary:
Problem: %s
Solution: %s
Methodology: %s
Experiments: %s
Conclusion: %s`,
		clip(summary.Problem), clip(summary.Solution), clip(summary.Methodology),
		clip(summary.Experiments), clip(summary.Conclusion))
}

// answerResponse is the stage-4 response schema.
type answerResponse struct {
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

// answerTask is stage 4 for one question. MaxQuestionRetries bounds the
// attempts; exhaustion degrades to the lexical heuristic.
func (e *Engine) answerTask(ctx context.Context, task core.TaskItem, content string, paper core.PaperCandidate) core.TaskFinding {
	if e.llmClient != nil {
		attempts := e.cfg.MaxQuestionRetries + 1
		if attempts < 1 {
			attempts = 1
		}
		system := "You answer questions about an academic paper using only its text. " +
			`Respond with a JSON object: {"answer": <string>, "confidence": <0-1>}. ` +
			"The answer is a 2-4 paragraph narrative that quotes the source verbatim where relevant, " +
			"always inside quotation marks, and explains why each quote matters. Do not answer with a list of quotes. " +
			llm.LanguageInstruction(e.language)
		user := fmt.Sprintf("Question: %s\nWhy it matters: %s\n\nPaper text:\n%s", task.Question, task.Reason, content)

		for attempt := 0; attempt < attempts; attempt++ {
			if ctx.Err() != nil {
				break
			}
			response, err := e.llmClient.CompleteJSON(ctx, e.model, system, user)
			if err != nil {
				logger.Warn("answer call failed", "arxiv_id", paper.ArxivID, "question", task.Question, "attempt", attempt+1, "error", err.Error())
				continue
			}
			var parsed answerResponse
			if err := json.Unmarshal([]byte(response), &parsed); err != nil {
				logger.Warn("answer response was not valid JSON", "arxiv_id", paper.ArxivID, "attempt", attempt+1, "error", err.Error())
				continue
			}
			parsed.Answer = strings.TrimSpace(parsed.Answer)
			if parsed.Answer == "" {
				continue
			}
			return core.TaskFinding{
				Task:       task,
				Answer:     parsed.Answer,
				Confidence: clampConfidence(parsed.Confidence),
			}
		}
	}
	return HeuristicAnswer(task, content, paper.Abstract)
}

// assembleOverview is stage 5: answers joined by blank lines, abstract when
// every answer came back empty.
func assembleOverview(findings []core.TaskFinding, abstract string) string {
	var parts []string
	for _, finding := range findings {
		if strings.TrimSpace(finding.Answer) != "" {
			parts = append(parts, finding.Answer)
		}
	}
	if len(parts) == 0 {
		return abstract
	}
	return strings.Join(parts, "\n\n")
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
