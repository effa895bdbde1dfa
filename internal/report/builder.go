package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yeren66/LLM4ArxivPaper/internal/core"
	"github.com/yeren66/LLM4ArxivPaper/internal/reading"
)

// Builder renders the canonical Markdown document for one read paper.
// Output is deterministic for fixed inputs except the footer timestamp.
type Builder struct {
	now func() time.Time
}

// NewBuilder returns a builder using the wall clock for footers.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// Build assembles the PaperSummary, including its rendered Markdown.
func (b *Builder) Build(topic core.Topic, scored core.ScoredPaper, analysis *reading.Analysis) core.PaperSummary {
	generatedAt := b.now().UTC()
	summary := core.PaperSummary{
		Topic:        topic,
		Paper:        scored.Paper,
		ScoreDetails: scored.Scores,
		BriefSummary: analysis.Brief,
		CoreSummary:  analysis.Core,
		TaskList:     analysis.Tasks,
		Findings:     analysis.Findings,
		Overview:     analysis.Overview,
		Partial:      analysis.Partial,
		GeneratedAt:  generatedAt,
	}
	summary.Markdown = renderMarkdown(summary)
	return summary
}

func renderMarkdown(s core.PaperSummary) string {
	var md strings.Builder

	// 1. Title.
	fmt.Fprintf(&md, "# %s\n\n", s.Paper.Title)

	// 2. Brief summary as a blockquote.
	if s.BriefSummary != "" {
		for _, line := range strings.Split(s.BriefSummary, "\n") {
			if strings.TrimSpace(line) == "" {
				md.WriteString(">\n")
			} else {
				fmt.Fprintf(&md, "> %s\n", line)
			}
		}
		md.WriteString("\n")
	}

	// 3. Metadata lines.
	fmt.Fprintf(&md, "**Topic**: %s\n", s.Topic.DisplayName())
	fmt.Fprintf(&md, "**arXiv**: [%s](%s)\n", s.Paper.ArxivID, s.Paper.ArxivURL)
	if len(s.Paper.Authors) > 0 {
		fmt.Fprintf(&md, "**Authors**: %s\n", strings.Join(s.Paper.Authors, ", "))
	}
	fmt.Fprintf(&md, "**Published**: %s\n", s.Paper.Published.Format("2006-01-02"))
	fmt.Fprintf(&md, "**Score**: %.1f/100\n\n", s.NormalizedScore())

	// 4. Relevance score breakdown.
	md.WriteString("### 📊 Relevance Scores\n\n")
	for _, dim := range s.ScoreDetails {
		fmt.Fprintf(&md, "- %s: %.1f/100 (weight: %.2f)\n", dim.Name, dim.Value*100, dim.Weight)
	}
	md.WriteString("\n")

	// 5. Core summary, omitted when absent.
	if s.CoreSummary != nil {
		md.WriteString("### 🧩 Core Summary\n\n")
		fields := []struct {
			label string
			value string
		}{
			{"Problem", s.CoreSummary.Problem},
			{"Solution", s.CoreSummary.Solution},
			{"Methodology", s.CoreSummary.Methodology},
			{"Experiments", s.CoreSummary.Experiments},
			{"Conclusion", s.CoreSummary.Conclusion},
		}
		for _, field := range fields {
			if field.value != "" {
				fmt.Fprintf(&md, "**%s**\n\n%s\n\n", field.label, field.value)
			}
		}
	}

	// 6. Questions.
	if len(s.TaskList) > 0 {
		md.WriteString("### ❓ Interest Questions\n\n")
		for i, task := range s.TaskList {
			fmt.Fprintf(&md, "%d. %s\n", i+1, task.Question)
		}
		md.WriteString("\n")
	}

	// 7. Findings.
	if len(s.Findings) > 0 {
		md.WriteString("### 🔍 Findings\n\n")
		for i, finding := range s.Findings {
			fmt.Fprintf(&md, "#### %d. %s\n\n", i+1, finding.Task.Question)
			fmt.Fprintf(&md, "%s\n\n", finding.Answer)
			fmt.Fprintf(&md, "*Confidence: %.2f*\n\n", finding.Confidence)
		}
	}

	// 8. Overview.
	if s.Overview != "" {
		md.WriteString("### 📝 Overview\n\n")
		fmt.Fprintf(&md, "%s\n\n", s.Overview)
	}

	// 9. Why recommended.
	md.WriteString("### 💡 Why Recommended\n\n")
	fmt.Fprintf(&md, "%s\n\n", recommendation(s))

	// 10. Footer.
	md.WriteString("---\n")
	fmt.Fprintf(&md, "*Generated at %s UTC*\n", s.GeneratedAt.Format("2006-01-02 15:04"))

	return md.String()
}

// recommendation names the top-weighted dimension and, when one exists, the
// first finding with confidence above 0.6.
func recommendation(s core.PaperSummary) string {
	var top core.DimensionScore
	for _, dim := range s.ScoreDetails {
		if dim.Weight > top.Weight {
			top = dim
		}
	}

	text := fmt.Sprintf("This paper scored %.1f/100 against the %q topic, driven mainly by %s (%.1f/100).",
		s.NormalizedScore(), s.Topic.DisplayName(), top.Name, top.Value*100)

	for _, finding := range s.Findings {
		if finding.Confidence > 0.6 && strings.TrimSpace(finding.Answer) != "" {
			text += fmt.Sprintf(" A high-confidence finding (%.2f): %s", finding.Confidence, firstSentence(finding.Answer))
			break
		}
	}
	return text
}

func firstSentence(text string) string {
	sentences := reading.SplitSentences(text)
	if len(sentences) == 0 {
		return text
	}
	return sentences[0]
}

// Header is the metadata recoverable from a rendered document.
type Header struct {
	Title     string
	ArxivID   string
	Published string
	Score     float64
}

var (
	titleRegex     = regexp.MustCompile(`(?m)^# (.+)$`)
	arxivRegex     = regexp.MustCompile(`(?m)^\*\*arXiv\*\*: \[([^\]]+)\]`)
	publishedRegex = regexp.MustCompile(`(?m)^\*\*Published\*\*: (\d{4}-\d{2}-\d{2})$`)
	scoreRegex     = regexp.MustCompile(`(?m)^\*\*Score\*\*: ([0-9.]+)/100$`)
)

// ParseHeader recovers the header fields from a rendered document.
func ParseHeader(markdown string) (Header, error) {
	header := Header{}

	if m := titleRegex.FindStringSubmatch(markdown); m != nil {
		header.Title = m[1]
	} else {
		return header, fmt.Errorf("no title found")
	}
	if m := arxivRegex.FindStringSubmatch(markdown); m != nil {
		header.ArxivID = m[1]
	} else {
		return header, fmt.Errorf("no arXiv id found")
	}
	if m := publishedRegex.FindStringSubmatch(markdown); m != nil {
		header.Published = m[1]
	} else {
		return header, fmt.Errorf("no published date found")
	}
	if m := scoreRegex.FindStringSubmatch(markdown); m != nil {
		score, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return header, fmt.Errorf("parsing score: %w", err)
		}
		header.Score = score
	} else {
		return header, fmt.Errorf("no score found")
	}

	return header, nil
}
