package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yeren66/LLM4ArxivPaper/internal/arxiv"
	"github.com/yeren66/LLM4ArxivPaper/internal/config"
	"github.com/yeren66/LLM4ArxivPaper/internal/core"
	"github.com/yeren66/LLM4ArxivPaper/internal/email"
	"github.com/yeren66/LLM4ArxivPaper/internal/fetch"
	"github.com/yeren66/LLM4ArxivPaper/internal/llm"
	"github.com/yeren66/LLM4ArxivPaper/internal/logger"
	"github.com/yeren66/LLM4ArxivPaper/internal/reading"
	"github.com/yeren66/LLM4ArxivPaper/internal/relevance"
	"github.com/yeren66/LLM4ArxivPaper/internal/report"
	"github.com/yeren66/LLM4ArxivPaper/internal/site"
)

// Searcher retrieves candidate papers for one topic.
type Searcher interface {
	Search(ctx context.Context, topic core.Topic) []core.PaperCandidate
}

// Ranker scores candidates and decides which clear the threshold.
type Ranker interface {
	Score(ctx context.Context, topic core.Topic, candidates []core.PaperCandidate) []core.ScoredPaper
	Passes(paper core.ScoredPaper) bool
}

// Reader runs the staged reading protocol over one selected paper.
type Reader interface {
	Read(ctx context.Context, topic core.Topic, paper core.PaperCandidate) (*reading.Analysis, error)
}

// ReportBuilder assembles the final summary document for one paper.
type ReportBuilder interface {
	Build(topic core.Topic, scored core.ScoredPaper, analysis *reading.Analysis) core.PaperSummary
}

// SitePublisher writes the static digest site for a run.
type SitePublisher interface {
	Publish(ctx context.Context, topics []core.Topic, summaries []core.PaperSummary) error
}

// DigestSender delivers the run digest by email.
type DigestSender interface {
	Send(result core.PipelineResult) error
}

// Pipeline orchestrates one scheduled digest run end to end: search, rank,
// read, then publish.
type Pipeline struct {
	cfg      *config.Config
	searcher Searcher
	ranker   Ranker
	reader   Reader
	builder  ReportBuilder
	site     SitePublisher
	email    DigestSender
	now      func() time.Time
}

// New creates a pipeline from explicit components.
func New(cfg *config.Config, searcher Searcher, ranker Ranker, reader Reader, builder ReportBuilder, sitePub SitePublisher, sender DigestSender) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		searcher: searcher,
		ranker:   ranker,
		reader:   reader,
		builder:  builder,
		site:     sitePub,
		email:    sender,
		now:      time.Now,
	}
}

// FromConfig wires the full production pipeline from configuration. The LLM
// client is only constructed in online mode; every stage degrades to its
// offline heuristic without one.
func FromConfig(cfg *config.Config) *Pipeline {
	var client llm.Client
	if cfg.Runtime.Online() {
		client = llm.NewOpenAIClient(llm.Config{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Temperature: cfg.OpenAI.Temperature,
			Timeout:     cfg.OpenAI.TimeoutDuration(),
			MaxRetries:  cfg.Relevance.MaxRetries,
		})
	}

	searcher := arxiv.NewClient(arxiv.Config{
		MaxPapersPerTopic: cfg.Fetch.MaxPapersPerTopic,
		DaysBack:          cfg.Fetch.DaysBack,
		RequestDelay:      cfg.Fetch.RequestDelayDuration(),
	})
	ranker := relevance.NewRanker(cfg.Relevance, client, cfg.OpenAI.RelevanceModel, cfg.OpenAI.Language)

	var cache *fetch.Cache
	if cfg.Runtime.CacheEnabled {
		cache = fetch.NewCache(cfg.Runtime.CacheDir)
	}
	resolver := &fetch.Resolver{
		HTML:  fetch.NewHTMLFetcher(fetch.DefaultHTMLBaseURL),
		PDF:   fetch.NewPDFFetcher(client, cfg.OpenAI.SummarizationModel),
		Cache: cache,
	}
	reader := reading.NewEngine(cfg.Summarization, client, resolver, cfg.OpenAI.SummarizationModel, cfg.OpenAI.Language)

	return New(cfg, searcher, ranker, reader, report.NewBuilder(),
		site.NewPublisher(cfg.Site), email.NewSender(cfg.Email))
}

// Run executes one digest run. Publishing always happens over whatever
// summaries completed, including after a cancellation; the context error is
// still returned so the process can exit non-zero.
func (p *Pipeline) Run(ctx context.Context) (core.PipelineResult, error) {
	runID := uuid.NewString()
	stats := core.RunStats{Start: p.now().UTC()}
	logger.Info("run started", "run_id", runID, "mode", p.cfg.Runtime.Mode, "topics", len(p.cfg.Topics))

	var summaries []core.PaperSummary
	var runErr error
	total := len(p.cfg.Topics)

	for i, topicCfg := range p.cfg.Topics {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		topic := topicCfg.ToCore()
		logger.Info(fmt.Sprintf("(%d/%d) fetching topic %s", i+1, total, topic.DisplayName()))

		candidates := p.searcher.Search(ctx, topic)
		if len(candidates) == 0 && !p.cfg.Runtime.Online() {
			candidates = []core.PaperCandidate{p.demoCandidate(topic)}
			logger.Info("no live candidates in offline mode, using demo paper", "topic", topic.Name)
		}
		stats.PapersFetched += len(candidates)

		if limit := p.cfg.Runtime.PaperLimit; limit > 0 && len(candidates) > limit {
			candidates = candidates[:limit]
		}

		scored := p.ranker.Score(ctx, topic, candidates)
		var selected []core.ScoredPaper
		for _, paper := range scored {
			if !p.ranker.Passes(paper) {
				logger.Debug("paper below threshold", "arxiv_id", paper.Paper.ArxivID,
					"score", fmt.Sprintf("%.1f", paper.NormalizedScore()))
				continue
			}
			logger.Info("paper selected", "arxiv_id", paper.Paper.ArxivID,
				"title", paper.Paper.Title, "score", fmt.Sprintf("%.1f", paper.NormalizedScore()))
			selected = append(selected, paper)
		}
		stats.PapersSelected += len(selected)

		topicSummaries, err := p.readTopic(ctx, topic, selected)
		summaries = append(summaries, topicSummaries...)
		if err != nil {
			runErr = err
			break
		}
		stats.TopicsProcessed++
	}

	stats.End = p.now().UTC()
	result := core.PipelineResult{Summaries: summaries, Stats: stats}

	// Publishers run even after cancellation so completed work is not lost.
	publishCtx := context.WithoutCancel(ctx)
	if p.site != nil {
		if err := p.site.Publish(publishCtx, p.coreTopics(), result.Summaries); err != nil {
			logger.Error("site publish failed", err)
			if runErr == nil {
				runErr = err
			}
		}
	}
	if p.email != nil {
		if err := p.email.Send(result); err != nil {
			logger.Warn("digest email not delivered", "error", err.Error())
		}
	}

	logger.Info("run finished", "run_id", runID,
		"fetched", stats.PapersFetched, "selected", stats.PapersSelected,
		"duration", stats.End.Sub(stats.Start).String())
	return result, runErr
}

// readTopic runs the reading protocol over the selected papers with bounded
// concurrency, preserving ranker order in the output.
func (p *Pipeline) readTopic(ctx context.Context, topic core.Topic, selected []core.ScoredPaper) ([]core.PaperSummary, error) {
	if len(selected) == 0 {
		return nil, nil
	}

	limit := p.cfg.Runtime.MaxConcurrency
	if limit < 1 {
		limit = 1
	}

	results := make([]*core.PaperSummary, len(selected))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	var done atomic.Int64
	for i, scored := range selected {
		group.Go(func() error {
			analysis, err := p.reader.Read(groupCtx, topic, scored.Paper)
			if err != nil {
				return err
			}
			summary := p.builder.Build(topic, scored, analysis)
			results[i] = &summary
			logger.Info("paper read complete", "topic", topic.Name, "arxiv_id", scored.Paper.ArxivID,
				"progress", fmt.Sprintf("%d/%d", done.Add(1), len(selected)))
			return nil
		})
	}
	err := group.Wait()

	var summaries []core.PaperSummary
	for _, summary := range results {
		if summary != nil {
			summaries = append(summaries, *summary)
		}
	}
	return summaries, err
}

func (p *Pipeline) coreTopics() []core.Topic {
	topics := make([]core.Topic, 0, len(p.cfg.Topics))
	for _, topicCfg := range p.cfg.Topics {
		topics = append(topics, topicCfg.ToCore())
	}
	return topics
}

// demoCandidate synthesizes a placeholder paper so an offline run still
// exercises every downstream stage.
func (p *Pipeline) demoCandidate(topic core.Topic) core.PaperCandidate {
	now := p.now().UTC()
	id := fmt.Sprintf("demo-%s-%s", topic.Name, now.Format("150405"))

	focus := topic.DisplayName()
	if len(topic.Query.IncludeKeywords) > 0 {
		focus = strings.Join(topic.Query.IncludeKeywords, ", ")
	}
	abstract := fmt.Sprintf("This placeholder paper exercises the digest pipeline for the %s topic. "+
		"It sketches a method built around %s. Experiments cover three synthetic benchmarks. "+
		"An ablation isolates each pipeline stage. Results confirm the run end to end. "+
		"Live arXiv results replace this entry once the feed returns candidates.",
		topic.DisplayName(), focus)
	// Echo the interest prompt so the heuristic alignment dimension clears
	// the threshold even for a keyword-free topic.
	if prompt := strings.TrimSpace(topic.InterestPrompt); prompt != "" {
		abstract += " The entry targets a reader whose stated interest is: " + prompt
	}
	return core.PaperCandidate{
		ArxivID:    id,
		Title:      fmt.Sprintf("A Demonstration Digest Entry for %s", topic.DisplayName()),
		Abstract:   abstract,
		Authors:    []string{"Pipeline Demo"},
		Categories: topic.Query.Categories,
		Published:  now,
		Updated:    now,
		ArxivURL:   "https://example.org/abs/" + id,
	}
}
