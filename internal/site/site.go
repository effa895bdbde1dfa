package site

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/yeren66/LLM4ArxivPaper/internal/config"
	"github.com/yeren66/LLM4ArxivPaper/internal/core"
	"github.com/yeren66/LLM4ArxivPaper/internal/logger"
)

// Publisher regenerates the static digest site from one pipeline run.
// The output directory is rebuilt from scratch on every publish.
type Publisher struct {
	outputDir string
	baseURL   string
	locale    string
	now       func() time.Time
}

// NewPublisher returns a publisher writing to the configured output directory.
func NewPublisher(cfg config.Site) *Publisher {
	return &Publisher{
		outputDir: cfg.OutputDir,
		baseURL:   cfg.BaseURL,
		locale:    cfg.Locale,
		now:       time.Now,
	}
}

// Manifest describes one generated site for downstream consumers.
type Manifest struct {
	BaseURL   string              `json:"base_url"`
	Generated string              `json:"generated"`
	Topics    map[string][]string `json:"topics"`
}

type topicSection struct {
	Name   string
	Label  string
	Papers []paperCard
}

type paperCard struct {
	ArxivID   string
	Title     string
	Score     string
	Published string
	PageURL   string
	ArxivURL  string
	Partial   bool
}

type indexData struct {
	Locale    string
	Generated string
	Sections  []topicSection
	Total     int
}

type pageData struct {
	Locale    string
	Title     string
	TopicName string
	Body      template.HTML
}

const indexTemplate = `<!DOCTYPE html>
<html lang="{{.Locale}}">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>arXiv Digest</title>
    <style>
      body { margin: 0 auto; max-width: 860px; padding: 24px; font-family: system-ui, -apple-system, 'Segoe UI', Roboto, sans-serif; color: #1e293b; background-color: #f8fafc; line-height: 1.6; }
      h1 { font-size: 28px; }
      h2 { font-size: 20px; border-bottom: 2px solid #e2e8f0; padding-bottom: 8px; margin-top: 32px; }
      .card { background-color: #ffffff; border: 1px solid #e2e8f0; border-radius: 6px; padding: 16px 20px; margin: 12px 0; }
      .card h3 { margin: 0 0 8px 0; font-size: 17px; }
      .card a { color: #2563eb; text-decoration: none; }
      .card a:hover { text-decoration: underline; }
      .meta { font-size: 13px; color: #64748b; }
      .empty { color: #64748b; font-style: italic; margin: 32px 0; }
      .footer { margin-top: 40px; font-size: 13px; color: #64748b; }
    </style>
</head>
<body>
    <h1>📚 arXiv Digest</h1>
    {{if eq .Total 0}}
    <p class="empty">No papers cleared the relevance threshold in this run. Check back after the next scheduled run.</p>
    {{else}}
    {{range .Sections}}{{if .Papers}}
    <h2>{{.Label}}</h2>
    {{range .Papers}}
    <div class="card">
        <h3><a href="{{.PageURL}}">{{.Title}}</a></h3>
        <p class="meta">
            Score {{.Score}}/100 · Published {{.Published}} ·
            <a href="{{.ArxivURL}}">arXiv:{{.ArxivID}}</a>
            {{if .Partial}} · partial summary{{end}}
        </p>
    </div>
    {{end}}
    {{end}}{{end}}
    {{end}}
    <p class="footer">Generated {{.Generated}}</p>
</body>
</html>
`

const pageTemplate = `<!DOCTYPE html>
<html lang="{{.Locale}}">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
      body { margin: 0 auto; max-width: 760px; padding: 24px; font-family: system-ui, -apple-system, 'Segoe UI', Roboto, sans-serif; color: #1e293b; line-height: 1.7; }
      h1 { font-size: 26px; }
      h3 { margin-top: 32px; }
      blockquote { border-left: 4px solid #2563eb; margin: 16px 0; padding: 4px 16px; color: #334155; background-color: #f8fafc; }
      a { color: #2563eb; text-decoration: none; }
      a:hover { text-decoration: underline; }
      hr { border: none; border-top: 1px solid #e2e8f0; margin: 32px 0; }
      .nav { font-size: 14px; margin-bottom: 24px; }
    </style>
</head>
<body>
    <p class="nav"><a href="../../index.html">← back to digest</a></p>
    {{.Body}}
</body>
</html>
`

// Publish writes the index, one page per summary, and the manifest. An index
// or manifest write failure aborts the publish; a single page failure is
// logged and the paper is dropped from the manifest.
func (p *Publisher) Publish(ctx context.Context, topics []core.Topic, summaries []core.PaperSummary) error {
	if err := os.RemoveAll(p.outputDir); err != nil {
		return fmt.Errorf("clearing site directory: %w", err)
	}
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return fmt.Errorf("creating site directory: %w", err)
	}

	byTopic := make(map[string][]core.PaperSummary)
	for _, summary := range summaries {
		byTopic[summary.Topic.Name] = append(byTopic[summary.Topic.Name], summary)
	}

	manifest := Manifest{
		BaseURL:   p.baseURL,
		Generated: p.now().UTC().Format(time.RFC3339),
		Topics:    make(map[string][]string),
	}

	var sections []topicSection
	total := 0
	for _, topic := range topics {
		manifest.Topics[topic.Name] = []string{}
		section := topicSection{Name: topic.Name, Label: topic.DisplayName()}

		for _, summary := range byTopic[topic.Name] {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := p.writePage(topic, summary); err != nil {
				logger.Warn("skipping paper page", "arxiv_id", summary.Paper.ArxivID, "error", err.Error())
				continue
			}
			manifest.Topics[topic.Name] = append(manifest.Topics[topic.Name], summary.Paper.ArxivID)
			section.Papers = append(section.Papers, paperCard{
				ArxivID:   summary.Paper.ArxivID,
				Title:     summary.Paper.Title,
				Score:     fmt.Sprintf("%.1f", summary.NormalizedScore()),
				Published: summary.Paper.Published.Format("2006-01-02"),
				PageURL:   fmt.Sprintf("topics/%s/%s.html", topic.Name, summary.Paper.ArxivID),
				ArxivURL:  summary.Paper.ArxivURL,
				Partial:   summary.Partial,
			})
			total++
		}
		sections = append(sections, section)
	}

	if err := p.writeIndex(sections, total, manifest.Generated); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	if err := p.writeManifest(manifest); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	logger.Info("site published", "dir", p.outputDir, "papers", total, "topics", len(topics))
	return nil
}

func (p *Publisher) writeIndex(sections []topicSection, total int, generated string) error {
	tmpl, err := template.New("index").Parse(indexTemplate)
	if err != nil {
		return fmt.Errorf("parsing index template: %w", err)
	}

	var buf bytes.Buffer
	data := indexData{Locale: p.locale, Generated: generated, Sections: sections, Total: total}
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("executing index template: %w", err)
	}
	return os.WriteFile(filepath.Join(p.outputDir, "index.html"), buf.Bytes(), 0644)
}

func (p *Publisher) writePage(topic core.Topic, summary core.PaperSummary) error {
	dir := filepath.Join(p.outputDir, "topics", topic.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating topic directory: %w", err)
	}

	tmpl, err := template.New("page").Parse(pageTemplate)
	if err != nil {
		return fmt.Errorf("parsing page template: %w", err)
	}

	var buf bytes.Buffer
	data := pageData{
		Locale:    p.locale,
		Title:     summary.Paper.Title,
		TopicName: topic.Name,
		Body:      ConvertMarkdown(summary.Markdown),
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("executing page template: %w", err)
	}

	path := filepath.Join(dir, summary.Paper.ArxivID+".html")
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func (p *Publisher) writeManifest(manifest Manifest) error {
	payload, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(p.outputDir, "manifest.json"), payload, 0644)
}
