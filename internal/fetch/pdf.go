package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/yeren66/LLM4ArxivPaper/internal/llm"
	"github.com/yeren66/LLM4ArxivPaper/internal/logger"
)

// PDFFetcher downloads a paper's PDF and extracts its text, preferring the
// LLM file API and falling back to local extraction.
type PDFFetcher struct {
	httpClient *http.Client
	llmClient  llm.Client // nil in offline mode
	model      string
}

// NewPDFFetcher builds a fetcher. llmClient may be nil; extraction then
// happens locally only.
func NewPDFFetcher(llmClient llm.Client, model string) *PDFFetcher {
	return &PDFFetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		llmClient:  llmClient,
		model:      model,
	}
}

// Fetch downloads the PDF at pdfURL to a temporary file, extracts its text,
// and removes the file on every exit path.
func (f *PDFFetcher) Fetch(ctx context.Context, pdfURL string) (string, error) {
	if pdfURL == "" {
		return "", fmt.Errorf("no pdf url")
	}

	tmpFile, err := os.CreateTemp("", "arxiv-*.pdf")
	if err != nil {
		return "", fmt.Errorf("creating temp pdf file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if err := f.download(ctx, pdfURL, tmpFile); err != nil {
		tmpFile.Close()
		return "", err
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("closing temp pdf file: %w", err)
	}

	if f.llmClient != nil {
		text, err := f.llmClient.ExtractPDF(ctx, f.model, tmpPath)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if err != nil {
			logger.Warn("llm pdf extraction failed, extracting locally", "url", pdfURL, "error", err.Error())
		}
	}

	return ExtractLocalText(tmpPath)
}

func (f *PDFFetcher) download(ctx context.Context, pdfURL string, dst io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return fmt.Errorf("building pdf request for %s: %w", pdfURL, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading pdf %s: %w", pdfURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading pdf %s: status %d", pdfURL, resp.StatusCode)
	}
	if _, err := io.Copy(dst, resp.Body); err != nil {
		return fmt.Errorf("writing pdf %s: %w", pdfURL, err)
	}
	return nil
}

// ExtractLocalText pulls per-page plain text out of a PDF on disk.
func ExtractLocalText(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat pdf %s: %w", path, err)
	}

	reader, err := pdf.NewReader(file, stat.Size())
	if err != nil {
		return "", fmt.Errorf("reading pdf %s: %w", path, err)
	}

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("failed to extract pdf page", "path", path, "page", i, "error", err.Error())
			continue
		}
		builder.WriteString(pageText)
		builder.WriteString("\n\n")
	}

	return cleanPDFText(builder.String()), nil
}

// cleanPDFText drops noise lines and squeezes blank runs.
func cleanPDFText(rawText string) string {
	lines := strings.Split(rawText, "\n")
	var cleanLines []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) > 2 {
			cleanLines = append(cleanLines, trimmed)
		}
	}
	cleanText := strings.Join(cleanLines, "\n")
	cleanText = strings.ReplaceAll(cleanText, "\n\n\n", "\n\n")
	return strings.TrimSpace(cleanText)
}
