package arxiv

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yeren66/LLM4ArxivPaper/internal/core"
)

var fixedNow = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func atomFixture(entries ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">` + strings.Join(entries, "\n") + `</feed>`
}

func atomEntryFixture(id, title, abstract string, published time.Time) string {
	return fmt.Sprintf(`<entry>
  <id>http://arxiv.org/abs/%s</id>
  <title>%s</title>
  <summary>%s</summary>
  <published>%s</published>
  <updated>%s</updated>
  <author><name>Ada Lovelace</name></author>
  <category term="cs.AI"/>
  <link href="http://arxiv.org/pdf/%s" rel="related" type="application/pdf"/>
</entry>`, id, title, abstract, published.Format(time.RFC3339), published.Format(time.RFC3339), id)
}

func testClient(serverURL string, cfg Config) *Client {
	c := NewClient(cfg)
	c.endpoints = []string{serverURL}
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestSearchParsesEntries(t *testing.T) {
	published := fixedNow.AddDate(0, 0, -1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sortBy"); got != "submittedDate" {
			t.Errorf("sortBy = %q, want submittedDate", got)
		}
		fmt.Fprint(w, atomFixture(atomEntryFixture("2508.01234v2", "Neural Retrieval at Scale", "We study retrieval.", published)))
	}))
	defer server.Close()

	client := testClient(server.URL, Config{MaxPapersPerTopic: 10, DaysBack: 7})
	topic := core.Topic{Name: "retrieval", Query: core.TopicQuery{Categories: []string{"cs.IR"}}}

	candidates := client.Search(context.Background(), topic)
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}

	got := candidates[0]
	if got.ArxivID != "2508.01234" {
		t.Errorf("ArxivID = %q, want version suffix stripped", got.ArxivID)
	}
	if got.Title != "Neural Retrieval at Scale" {
		t.Errorf("Title = %q", got.Title)
	}
	if len(got.Authors) != 1 || got.Authors[0] != "Ada Lovelace" {
		t.Errorf("Authors = %v", got.Authors)
	}
	if !strings.Contains(got.PDFURL, "pdf") {
		t.Errorf("PDFURL = %q", got.PDFURL)
	}
	if !got.Published.Equal(published) {
		t.Errorf("Published = %v, want %v", got.Published, published)
	}
}

func TestSearchWindowFilter(t *testing.T) {
	inside := fixedNow.AddDate(0, 0, -2)
	outside := fixedNow.AddDate(0, 0, -30)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, atomFixture(
			atomEntryFixture("2508.00001", "Fresh paper", "recent work", inside),
			atomEntryFixture("2507.00001", "Stale paper", "old work", outside),
		))
	}))
	defer server.Close()

	client := testClient(server.URL, Config{MaxPapersPerTopic: 10, DaysBack: 7})
	candidates := client.Search(context.Background(), core.Topic{Name: "t", Query: core.TopicQuery{Categories: []string{"cs.AI"}}})

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate inside window, got %d", len(candidates))
	}
	windowStart := fixedNow.AddDate(0, 0, -7)
	for _, c := range candidates {
		if c.Published.Before(windowStart) || c.Published.After(fixedNow) {
			t.Errorf("candidate %s published %v outside window", c.ArxivID, c.Published)
		}
	}
}

func TestSearchExcludeFilter(t *testing.T) {
	published := fixedNow.AddDate(0, 0, -1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, atomFixture(
			atomEntryFixture("2508.00002", "A Survey of Retrieval Methods", "broad overview", published),
			atomEntryFixture("2508.00003", "Dense Retrieval Training", "new training recipe", published),
		))
	}))
	defer server.Close()

	client := testClient(server.URL, Config{MaxPapersPerTopic: 10, DaysBack: 7})
	topic := core.Topic{Name: "t", Query: core.TopicQuery{
		Categories:      []string{"cs.IR"},
		ExcludeKeywords: []string{"survey"},
	}}

	candidates := client.Search(context.Background(), topic)
	if len(candidates) != 1 {
		t.Fatalf("expected exclude filter to drop one candidate, got %d", len(candidates))
	}
	for _, c := range candidates {
		haystack := strings.ToLower(c.Title + " " + c.Abstract)
		if strings.Contains(haystack, "survey") {
			t.Errorf("candidate %s still contains exclude keyword", c.ArxivID)
		}
	}
}

func TestSearchCapsResults(t *testing.T) {
	published := fixedNow.AddDate(0, 0, -1)
	var entries []string
	for i := 0; i < 5; i++ {
		entries = append(entries, atomEntryFixture(fmt.Sprintf("2508.0000%d", i), fmt.Sprintf("Paper %d", i), "text", published))
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, atomFixture(entries...))
	}))
	defer server.Close()

	client := testClient(server.URL, Config{MaxPapersPerTopic: 3, DaysBack: 7})
	candidates := client.Search(context.Background(), core.Topic{Name: "t", Query: core.TopicQuery{Categories: []string{"cs.AI"}}})
	if len(candidates) != 3 {
		t.Errorf("expected cap of 3 candidates, got %d", len(candidates))
	}
}

func TestSearchReturnsEmptyOnPersistentFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(server.URL, Config{MaxPapersPerTopic: 10, DaysBack: 7})
	candidates := client.Search(context.Background(), core.Topic{Name: "t", Query: core.TopicQuery{Categories: []string{"cs.AI"}}})
	if len(candidates) != 0 {
		t.Errorf("expected no candidates on failure, got %d", len(candidates))
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name  string
		query core.TopicQuery
		want  string
	}{
		{
			name: "keywords and categories",
			query: core.TopicQuery{
				Categories:      []string{"cs.AI", "cs.CL"},
				IncludeKeywords: []string{"large language model", "agent"},
			},
			want: `((ti:"large language model" OR abs:"large language model") OR (ti:agent OR abs:agent)) AND (cat:cs.AI OR cat:cs.CL)`,
		},
		{
			name:  "categories only",
			query: core.TopicQuery{Categories: []string{"cs.IR"}},
			want:  "(cat:cs.IR)",
		},
		{
			name:  "empty query falls back to defaults",
			query: core.TopicQuery{},
			want:  "(cat:cs.AI OR cat:cs.CL OR cat:cs.SE OR cat:cs.LG)",
		},
		{
			name: "exclude group",
			query: core.TopicQuery{
				Categories:      []string{"cs.IR"},
				ExcludeKeywords: []string{"survey"},
			},
			want: "(cat:cs.IR) ANDNOT ((ti:survey OR abs:survey))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildQuery(tt.query); got != tt.want {
				t.Errorf("BuildQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://arxiv.org/abs/2508.01234v2", "2508.01234"},
		{"http://arxiv.org/abs/2508.01234", "2508.01234"},
		{"http://arxiv.org/abs/cs/0112017v1", "0112017"},
		{"2508.01234v10", "2508.01234"},
	}
	for _, tt := range tests {
		if got := SanitizeID(tt.in); got != tt.want {
			t.Errorf("SanitizeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRequestDelaySerialization(t *testing.T) {
	var timestamps []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timestamps = append(timestamps, time.Now())
		fmt.Fprint(w, atomFixture())
	}))
	defer server.Close()

	client := NewClient(Config{MaxPapersPerTopic: 5, DaysBack: 7, RequestDelay: 50 * time.Millisecond})
	client.endpoints = []string{server.URL}

	topic := core.Topic{Name: "t", Query: core.TopicQuery{Categories: []string{"cs.AI"}}}
	client.Search(context.Background(), topic)
	client.Search(context.Background(), topic)

	if len(timestamps) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(timestamps))
	}
	if gap := timestamps[1].Sub(timestamps[0]); gap < 40*time.Millisecond {
		t.Errorf("requests only %v apart, want at least the configured delay", gap)
	}
}
