package fetch

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultHTMLBaseURL serves HTML renditions of arXiv papers.
const DefaultHTMLBaseURL = "https://ar5iv.labs.arxiv.org/html"

// blankLineRegex collapses runs of three or more newlines.
var blankLineRegex = regexp.MustCompile(`\n{3,}`)

// HTMLFetcher retrieves the rendered-HTML version of a paper and converts it
// to Markdown-flavored plain text.
type HTMLFetcher struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTMLFetcher builds a fetcher against baseURL (DefaultHTMLBaseURL when
// empty) with a 30s timeout.
func NewHTMLFetcher(baseURL string) *HTMLFetcher {
	if baseURL == "" {
		baseURL = DefaultHTMLBaseURL
	}
	return &HTMLFetcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch downloads and converts the HTML rendition for one arXiv id.
// Returns an empty string without error when the rendition yields no text.
func (f *HTMLFetcher) Fetch(ctx context.Context, arxivID string) (string, error) {
	requestURL := f.baseURL + "/" + arxivID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return "", fmt.Errorf("building html request for %s: %w", arxivID, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching html for %s: %w", arxivID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching html for %s: status %d", arxivID, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing html for %s: %w", arxivID, err)
	}

	return ExtractText(doc), nil
}

// ExtractText converts a parsed paper page into plain text. Links become
// [text](href); block elements get blank lines between them; no hard wrap.
func ExtractText(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, aside, form, iframe, noscript").Remove()

	// Rewrite anchors so the link target survives the text conversion.
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		text := strings.TrimSpace(s.Text())
		if text == "" || strings.HasPrefix(href, "#") {
			return
		}
		s.ReplaceWithHtml(fmt.Sprintf("[%s](%s)", text, href))
	})

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}

	var builder strings.Builder
	root.Find("h1, h2, h3, h4, h5, h6, p, li, blockquote, figcaption").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "h1":
			builder.WriteString("# " + text)
		case "h2":
			builder.WriteString("## " + text)
		case "h3", "h4", "h5", "h6":
			builder.WriteString("### " + text)
		case "li":
			builder.WriteString("- " + text)
		case "blockquote":
			builder.WriteString("> " + text)
		default:
			builder.WriteString(text)
		}
		builder.WriteString("\n\n")
	})

	text := blankLineRegex.ReplaceAllString(builder.String(), "\n\n")
	return strings.TrimSpace(text)
}
