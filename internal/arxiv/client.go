package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yeren66/LLM4ArxivPaper/internal/core"
	"github.com/yeren66/LLM4ArxivPaper/internal/logger"
)

// Default search category group when a topic query names nothing.
var defaultCategories = []string{"cs.AI", "cs.CL", "cs.SE", "cs.LG"}

// Endpoint URLs in preference order. HTTPS first; the plain-HTTP mirror is
// only tried after a transport failure.
var defaultEndpoints = []string{
	"https://export.arxiv.org/api/query",
	"http://export.arxiv.org/api/query",
}

// Config bounds one topic's retrieval.
type Config struct {
	MaxPapersPerTopic int
	DaysBack          int
	RequestDelay      time.Duration
}

// Client retrieves candidate papers from the arXiv Atom API.
// Requests are serialized client-wide so RequestDelay holds regardless of
// caller concurrency.
type Client struct {
	cfg        Config
	httpClient *http.Client
	endpoints  []string

	mu          sync.Mutex
	lastRequest time.Time

	now func() time.Time
}

// NewClient creates an archive client with a 30s HTTP timeout.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoints:  defaultEndpoints,
		now:        time.Now,
	}
}

// Search returns recent candidates for the topic, newest first, capped at
// MaxPapersPerTopic. A failing archive yields an empty list, never an error;
// the warning carries the topic name.
func (c *Client) Search(ctx context.Context, topic core.Topic) []core.PaperCandidate {
	query := BuildQuery(topic.Query)
	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprintf("%d", c.cfg.MaxPapersPerTopic))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	var lastErr error
	for _, endpoint := range c.endpoints {
		feed, err := c.fetchFeed(ctx, endpoint, params)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return c.filterEntries(feed, topic)
	}

	logger.Warn("arxiv search failed, returning no candidates",
		"topic", topic.Name, "error", fmt.Sprintf("%v", lastErr))
	return nil
}

// fetchFeed performs one rate-limited GET against an endpoint.
func (c *Client) fetchFeed(ctx context.Context, endpoint string, params url.Values) (*atomFeed, error) {
	if err := c.waitForSlot(ctx); err != nil {
		return nil, err
	}

	requestURL := endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: fetching %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv: fetching %s: status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("arxiv: reading response: %w", err)
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("arxiv: parsing feed: %w", err)
	}
	return &feed, nil
}

// waitForSlot blocks until RequestDelay has elapsed since the previous
// request. Serializes all archive requests through one client.
func (c *Client) waitForSlot(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.RequestDelay > 0 && !c.lastRequest.IsZero() {
		remaining := c.cfg.RequestDelay - c.now().Sub(c.lastRequest)
		if remaining > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(remaining):
			}
		}
	}
	c.lastRequest = c.now()
	return nil
}

// filterEntries applies the window, exclude, and size filters in feed order.
func (c *Client) filterEntries(feed *atomFeed, topic core.Topic) []core.PaperCandidate {
	windowStart := c.now().AddDate(0, 0, -c.cfg.DaysBack)
	windowEnd := c.now()

	var candidates []core.PaperCandidate
	for _, entry := range feed.Entries {
		candidate := entryToCandidate(entry)
		if candidate.ArxivID == "" {
			continue
		}
		if candidate.Published.Before(windowStart) || candidate.Published.After(windowEnd) {
			continue
		}
		if matchesExclude(candidate, topic.Query.ExcludeKeywords) {
			continue
		}
		candidates = append(candidates, candidate)
		if len(candidates) >= c.cfg.MaxPapersPerTopic {
			break
		}
	}
	return candidates
}

// matchesExclude reports whether any exclude keyword occurs in the
// lowercased title plus abstract.
func matchesExclude(candidate core.PaperCandidate, exclude []string) bool {
	if len(exclude) == 0 {
		return false
	}
	haystack := strings.ToLower(candidate.Title + " " + candidate.Abstract)
	for _, keyword := range exclude {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" && strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}

// BuildQuery renders a TopicQuery into the arXiv search grammar.
func BuildQuery(query core.TopicQuery) string {
	var groups []string

	if len(query.IncludeKeywords) > 0 {
		var terms []string
		for _, keyword := range query.IncludeKeywords {
			keyword = strings.TrimSpace(keyword)
			if keyword == "" {
				continue
			}
			terms = append(terms, keywordTerm(keyword))
		}
		if len(terms) > 0 {
			groups = append(groups, "("+strings.Join(terms, " OR ")+")")
		}
	}

	categories := query.Categories
	if len(groups) == 0 && len(categories) == 0 {
		categories = defaultCategories
	}
	if len(categories) > 0 {
		var terms []string
		for _, category := range categories {
			category = strings.TrimSpace(category)
			if category == "" {
				continue
			}
			terms = append(terms, "cat:"+category)
		}
		if len(terms) > 0 {
			groups = append(groups, "("+strings.Join(terms, " OR ")+")")
		}
	}

	expr := strings.Join(groups, " AND ")

	// The exclude group narrows server-side; the post-filter in Search still
	// applies because phrase matching on the server is not exhaustive.
	if len(query.ExcludeKeywords) > 0 {
		var terms []string
		for _, keyword := range query.ExcludeKeywords {
			keyword = strings.TrimSpace(keyword)
			if keyword == "" {
				continue
			}
			terms = append(terms, keywordTerm(keyword))
		}
		if len(terms) > 0 && expr != "" {
			expr += " ANDNOT (" + strings.Join(terms, " OR ") + ")"
		}
	}

	return expr
}

// keywordTerm searches one keyword against title and abstract, quoting
// multi-word phrases.
func keywordTerm(keyword string) string {
	if strings.Contains(keyword, " ") {
		return fmt.Sprintf("(ti:%q OR abs:%q)", keyword, keyword)
	}
	return fmt.Sprintf("(ti:%s OR abs:%s)", keyword, keyword)
}

// entryToCandidate maps one Atom entry onto the pipeline data model.
func entryToCandidate(entry atomEntry) core.PaperCandidate {
	candidate := core.PaperCandidate{
		ArxivID:  SanitizeID(entry.ID),
		Title:    collapseWhitespace(entry.Title),
		Abstract: collapseWhitespace(entry.Summary),
		ArxivURL: entry.ID,
		Comment:  strings.TrimSpace(entry.Comment),
	}

	for _, author := range entry.Authors {
		name := strings.TrimSpace(author.Name)
		if name != "" {
			candidate.Authors = append(candidate.Authors, name)
		}
		if affiliation := strings.TrimSpace(author.Affiliation); affiliation != "" {
			candidate.Affiliations = append(candidate.Affiliations, affiliation)
		}
	}
	for _, category := range entry.Categories {
		if category.Term != "" {
			candidate.Categories = append(candidate.Categories, category.Term)
		}
	}
	for _, link := range entry.Links {
		if link.Title == "pdf" || (link.Rel == "related" && link.Type == "application/pdf") {
			candidate.PDFURL = link.Href
		}
	}

	if published, err := time.Parse(time.RFC3339, entry.Published); err == nil {
		candidate.Published = published
	}
	if updated, err := time.Parse(time.RFC3339, entry.Updated); err == nil {
		candidate.Updated = updated
	}
	return candidate
}

// SanitizeID extracts the canonical arXiv id from an entry id URL and strips
// any version suffix.
func SanitizeID(entryID string) string {
	id := entryID
	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		id = id[idx+1:]
	}
	if idx := strings.LastIndex(id, "v"); idx > 0 {
		version := id[idx+1:]
		if version != "" && strings.IndexFunc(version, func(r rune) bool { return r < '0' || r > '9' }) == -1 {
			id = id[:idx]
		}
	}
	return strings.TrimSpace(id)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// atomFeed and friends mirror the arXiv Atom response shape.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Updated    string         `xml:"updated"`
	Comment    string         `xml:"comment"`
	Authors    []atomAuthor   `xml:"author"`
	Categories []atomCategory `xml:"category"`
	Links      []atomLink     `xml:"link"`
}

type atomAuthor struct {
	Name        string `xml:"name"`
	Affiliation string `xml:"affiliation"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}
