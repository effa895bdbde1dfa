package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

const validYAML = `
openai:
  api_key: ${TEST_OPENAI_KEY}
  relevance_model: gpt-4o-mini
  summarization_model: gpt-4o-mini
topics:
  - name: llm-agents
    label: LLM Agents
    query:
      categories: [cs.AI, cs.CL]
      include: ["large language model", agent]
    interest_prompt: Tool use and planning in LLM agents.
runtime:
  mode: offline
`

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("TEST_OPENAI_KEY", "sk-test-123")

	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-test-123" {
		t.Errorf("APIKey = %q, want expanded value", cfg.OpenAI.APIKey)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("TEST_OPENAI_KEY", "sk-test-123")

	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Fetch.MaxPapersPerTopic != 20 {
		t.Errorf("MaxPapersPerTopic = %d, want 20", cfg.Fetch.MaxPapersPerTopic)
	}
	if cfg.Relevance.PassThreshold != 60 {
		t.Errorf("PassThreshold = %v, want 60", cfg.Relevance.PassThreshold)
	}
	if len(cfg.Relevance.ScoringDimensions) != 4 {
		t.Errorf("expected 4 default scoring dimensions, got %d", len(cfg.Relevance.ScoringDimensions))
	}
	if cfg.Runtime.MaxConcurrency != 1 {
		t.Errorf("MaxConcurrency = %d, want 1", cfg.Runtime.MaxConcurrency)
	}
	if cfg.Summarization.TaskListSize != 5 {
		t.Errorf("TaskListSize = %d, want 5", cfg.Summarization.TaskListSize)
	}
}

func TestLoadFailsOnlineWithoutAPIKey(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	os.Unsetenv("MISSING_KEY_FOR_TEST")

	yaml := `
openai:
  api_key: ${MISSING_KEY_FOR_TEST}
topics:
  - name: t1
    query:
      categories: [cs.AI]
runtime:
  mode: online
`
	_, err := Load(writeConfig(t, yaml))
	if err == nil {
		t.Fatal("expected validation error for missing API key in online mode")
	}
	if !strings.Contains(err.Error(), "MISSING_KEY_FOR_TEST") {
		t.Errorf("error should name the unresolved variable, got: %v", err)
	}
}

func TestLoadOfflineToleratesMissingAPIKey(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	yaml := `
topics:
  - name: t1
    query:
      categories: [cs.AI]
runtime:
  mode: offline
`
	if _, err := Load(writeConfig(t, yaml)); err != nil {
		t.Fatalf("offline mode should not require an API key: %v", err)
	}
}

func TestLoadRejectsBadTopics(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no topics",
			yaml: "runtime:\n  mode: offline\n",
			want: "at least one topic",
		},
		{
			name: "duplicate names",
			yaml: `
runtime:
  mode: offline
topics:
  - name: same
    query: {categories: [cs.AI]}
  - name: same
    query: {categories: [cs.CL]}
`,
			want: "duplicate topic name",
		},
		{
			name: "unsafe name",
			yaml: `
runtime:
  mode: offline
topics:
  - name: "has spaces"
    query: {categories: [cs.AI]}
`,
			want: "not URL-safe",
		},
		{
			name: "empty query",
			yaml: `
runtime:
  mode: offline
topics:
  - name: t1
    query: {}
`,
			want: "empty query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Reset()
			t.Cleanup(Reset)
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestLoadRejectsBadDimensionWeights(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	yaml := `
runtime:
  mode: offline
topics:
  - name: t1
    query: {categories: [cs.AI]}
relevance:
  scoring_dimensions:
    - {name: topic_alignment, weight: 1.5}
`
	_, err := Load(writeConfig(t, yaml))
	if err == nil {
		t.Fatal("expected validation error for weight outside [0,1]")
	}
}

func TestEmailDeliverable(t *testing.T) {
	email := Email{
		Enabled:    true,
		Sender:     "digest@example.com",
		SMTPHost:   "smtp.example.com",
		Recipients: []string{"reader@example.com"},
	}
	if !email.Deliverable() {
		t.Error("expected fully configured email to be deliverable")
	}

	email.Recipients = nil
	if email.Deliverable() {
		t.Error("expected email without recipients to be undeliverable")
	}

	email.Recipients = []string{"reader@example.com"}
	email.Enabled = false
	if email.Deliverable() {
		t.Error("expected disabled email to be undeliverable")
	}
}

func TestTopicToCore(t *testing.T) {
	topic := Topic{
		Name:  "retrieval",
		Label: "Retrieval",
		Query: TopicQuery{
			Categories: []string{"cs.IR"},
			Include:    []string{"dense retrieval"},
			Exclude:    []string{"survey"},
		},
		InterestPrompt: "Efficiency of dense retrievers.",
	}

	got := topic.ToCore()
	if got.Name != "retrieval" || got.Label != "Retrieval" {
		t.Errorf("unexpected identity fields: %+v", got)
	}
	if len(got.Query.IncludeKeywords) != 1 || got.Query.IncludeKeywords[0] != "dense retrieval" {
		t.Errorf("include keywords not mapped: %+v", got.Query)
	}
	if len(got.Query.ExcludeKeywords) != 1 || got.Query.ExcludeKeywords[0] != "survey" {
		t.Errorf("exclude keywords not mapped: %+v", got.Query)
	}
}
