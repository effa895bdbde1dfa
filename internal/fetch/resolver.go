package fetch

import (
	"context"
	"strings"

	"github.com/yeren66/LLM4ArxivPaper/internal/core"
	"github.com/yeren66/LLM4ArxivPaper/internal/logger"
)

// Resolver tries each content strategy in order: cache, HTML rendition, PDF,
// abstract. It always produces something; the abstract never fails.
type Resolver struct {
	HTML   *HTMLFetcher
	PDF    *PDFFetcher
	Cache  *Cache
	Budget int // character budget applied to fetched content, 0 = unlimited
}

// Resolve returns the best available text for a candidate.
func (r *Resolver) Resolve(ctx context.Context, paper core.PaperCandidate) Content {
	if content, ok := r.Cache.Get(paper.ArxivID); ok {
		content.Text = Truncate(content.Text, r.Budget)
		return content
	}

	if r.HTML != nil {
		text, err := r.HTML.Fetch(ctx, paper.ArxivID)
		if err != nil {
			logger.Warn("html fetch failed", "arxiv_id", paper.ArxivID, "error", err.Error())
		} else if strings.TrimSpace(text) != "" {
			r.Cache.Put(paper.ArxivID, Content{Source: SourceHTML, Text: text})
			return Content{Source: SourceHTML, Text: Truncate(text, r.Budget)}
		}
	}

	if r.PDF != nil && ctx.Err() == nil {
		text, err := r.PDF.Fetch(ctx, paper.PDFURL)
		if err != nil {
			logger.Warn("pdf fetch failed", "arxiv_id", paper.ArxivID, "error", err.Error())
		} else if strings.TrimSpace(text) != "" {
			r.Cache.Put(paper.ArxivID, Content{Source: SourcePDF, Text: text})
			return Content{Source: SourcePDF, Text: Truncate(text, r.Budget)}
		}
	}

	return Content{Source: SourceAbstract, Text: paper.Abstract}
}
