package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yeren66/LLM4ArxivPaper/internal/core"
)

// Runtime modes.
const (
	ModeOnline  = "online"
	ModeOffline = "offline"
)

// Config holds all pipeline configuration
type Config struct {
	OpenAI        OpenAI        `mapstructure:"openai"`
	Fetch         Fetch         `mapstructure:"fetch"`
	Topics        []Topic       `mapstructure:"topics"`
	Relevance     Relevance     `mapstructure:"relevance"`
	Summarization Summarization `mapstructure:"summarization"`
	Site          Site          `mapstructure:"site"`
	Email         Email         `mapstructure:"email"`
	Runtime       Runtime       `mapstructure:"runtime"`
}

// OpenAI holds the LLM endpoint configuration
type OpenAI struct {
	APIKey             string  `mapstructure:"api_key"`
	BaseURL            string  `mapstructure:"base_url"`
	RelevanceModel     string  `mapstructure:"relevance_model"`
	SummarizationModel string  `mapstructure:"summarization_model"`
	Temperature        float64 `mapstructure:"temperature"`
	Language           string  `mapstructure:"language"`
	Timeout            string  `mapstructure:"timeout"`
}

// TimeoutDuration returns the per-call LLM timeout, defaulting to 60s.
func (o OpenAI) TimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(o.Timeout); err == nil && d > 0 {
		return d
	}
	return 60 * time.Second
}

// Fetch holds arXiv retrieval configuration
type Fetch struct {
	MaxPapersPerTopic int    `mapstructure:"max_papers_per_topic"`
	DaysBack          int    `mapstructure:"days_back"`
	RequestDelay      string `mapstructure:"request_delay"`
}

// RequestDelayDuration returns the minimum delay between archive requests.
func (f Fetch) RequestDelayDuration() time.Duration {
	if d, err := time.ParseDuration(f.RequestDelay); err == nil && d >= 0 {
		return d
	}
	return 3 * time.Second
}

// TopicQuery mirrors core.TopicQuery for YAML binding
type TopicQuery struct {
	Categories []string `mapstructure:"categories"`
	Include    []string `mapstructure:"include"`
	Exclude    []string `mapstructure:"exclude"`
}

// Topic is one configured research interest
type Topic struct {
	Name           string     `mapstructure:"name"`
	Label          string     `mapstructure:"label"`
	Query          TopicQuery `mapstructure:"query"`
	InterestPrompt string     `mapstructure:"interest_prompt"`
}

// ToCore converts the YAML view into the pipeline data model.
func (t Topic) ToCore() core.Topic {
	return core.Topic{
		Name:  t.Name,
		Label: t.Label,
		Query: core.TopicQuery{
			Categories:      t.Query.Categories,
			IncludeKeywords: t.Query.Include,
			ExcludeKeywords: t.Query.Exclude,
		},
		InterestPrompt: t.InterestPrompt,
	}
}

// Dimension is one scoring axis
type Dimension struct {
	Name        string  `mapstructure:"name"`
	Weight      float64 `mapstructure:"weight"`
	Description string  `mapstructure:"description"`
}

// Relevance holds scoring configuration
type Relevance struct {
	ScoringDimensions []Dimension `mapstructure:"scoring_dimensions"`
	PassThreshold     float64     `mapstructure:"pass_threshold"`
	MaxRetries        int         `mapstructure:"max_retries"`
}

// Summarization holds reading-engine configuration
type Summarization struct {
	TaskListSize       int `mapstructure:"task_list_size"`
	MaxSections        int `mapstructure:"max_sections"`
	MaxQuestionRetries int `mapstructure:"max_question_retries"`
}

// Site holds static-site output configuration
type Site struct {
	OutputDir string `mapstructure:"output_dir"`
	BaseURL   string `mapstructure:"base_url"`
	Locale    string `mapstructure:"locale"`
}

// Email holds digest delivery configuration
type Email struct {
	Enabled         bool     `mapstructure:"enabled"`
	Sender          string   `mapstructure:"sender"`
	Recipients      []string `mapstructure:"recipients"`
	SMTPHost        string   `mapstructure:"smtp_host"`
	SMTPPort        int      `mapstructure:"smtp_port"`
	Username        string   `mapstructure:"username"`
	Password        string   `mapstructure:"password"`
	UseTLS          bool     `mapstructure:"use_tls"`
	UseSSL          bool     `mapstructure:"use_ssl"`
	Timeout         string   `mapstructure:"timeout"`
	SubjectTemplate string   `mapstructure:"subject_template"`
}

// TimeoutDuration returns the SMTP timeout, defaulting to 30s.
func (e Email) TimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(e.Timeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// Deliverable reports whether the email publisher has enough to work with.
// A disabled or under-configured publisher is a silent no-op, not an error.
func (e Email) Deliverable() bool {
	return e.Enabled && e.Sender != "" && e.SMTPHost != "" && len(e.Recipients) > 0
}

// Runtime holds run-wide behavior switches
type Runtime struct {
	Mode           string `mapstructure:"mode"`
	PaperLimit     int    `mapstructure:"paper_limit"`
	MaxConcurrency int    `mapstructure:"max_concurrency"`
	CacheEnabled   bool   `mapstructure:"cache_enabled"`
	CacheDir       string `mapstructure:"cache_dir"`
	ConsoleLevel   string `mapstructure:"console_level"`
}

// Online reports whether LLM calls are allowed this run.
func (r Runtime) Online() bool {
	return r.Mode == ModeOnline
}

var globalConfig *Config

// envPattern matches ${VAR} placeholders in string values.
var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// topicNamePattern accepts URL-safe topic names.
var topicNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Load loads the configuration from the given file, expanding ${VAR}
// placeholders from the environment and validating before returning.
func Load(configFile string) (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath("config")
		viper.AddConfigPath(".")
		viper.SetConfigName("pipeline")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	unresolved := expandConfig(config)
	applyFallbacks(config)

	if err := validateConfig(config, unresolved); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Validate re-checks an already loaded configuration, for callers that
// override fields after Load.
func (c *Config) Validate() error {
	return validateConfig(c, nil)
}

// Get returns the most recently loaded configuration.
func Get() *Config {
	if globalConfig == nil {
		panic("config.Get called before config.Load")
	}
	return globalConfig
}

// Reset clears the loaded configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.relevance_model", "gpt-4o-mini")
	viper.SetDefault("openai.summarization_model", "gpt-4o-mini")
	viper.SetDefault("openai.temperature", 0.2)
	viper.SetDefault("openai.language", "en")
	viper.SetDefault("openai.timeout", "60s")

	viper.SetDefault("fetch.max_papers_per_topic", 20)
	viper.SetDefault("fetch.days_back", 7)
	viper.SetDefault("fetch.request_delay", "3s")

	viper.SetDefault("relevance.pass_threshold", 60)
	viper.SetDefault("relevance.max_retries", 2)

	viper.SetDefault("summarization.task_list_size", 5)
	viper.SetDefault("summarization.max_sections", 8)
	viper.SetDefault("summarization.max_question_retries", 2)

	viper.SetDefault("site.output_dir", "site")
	viper.SetDefault("site.locale", "en")

	viper.SetDefault("email.smtp_port", 587)
	viper.SetDefault("email.use_tls", true)
	viper.SetDefault("email.timeout", "30s")
	viper.SetDefault("email.subject_template", "arXiv digest {run_date} ({paper_count} papers)")

	viper.SetDefault("runtime.mode", ModeOnline)
	viper.SetDefault("runtime.max_concurrency", 1)
	viper.SetDefault("runtime.cache_dir", ".arxiv-cache")
	viper.SetDefault("runtime.console_level", "info")
}

// expandConfig replaces ${VAR} placeholders in all string values with
// environment variables in a single pass. It returns the placeholder names
// that had no value; validation decides which of those are fatal.
func expandConfig(config *Config) []string {
	var unresolved []string
	expand := func(s string) string {
		return envPattern.ReplaceAllStringFunc(s, func(match string) string {
			name := envPattern.FindStringSubmatch(match)[1]
			if value, ok := os.LookupEnv(name); ok {
				return value
			}
			unresolved = append(unresolved, name)
			return ""
		})
	}
	expandSlice := func(values []string) {
		for i, v := range values {
			values[i] = expand(v)
		}
	}

	config.OpenAI.APIKey = expand(config.OpenAI.APIKey)
	config.OpenAI.BaseURL = expand(config.OpenAI.BaseURL)
	config.OpenAI.RelevanceModel = expand(config.OpenAI.RelevanceModel)
	config.OpenAI.SummarizationModel = expand(config.OpenAI.SummarizationModel)

	config.Site.OutputDir = expand(config.Site.OutputDir)
	config.Site.BaseURL = expand(config.Site.BaseURL)

	config.Email.Sender = expand(config.Email.Sender)
	config.Email.SMTPHost = expand(config.Email.SMTPHost)
	config.Email.Username = expand(config.Email.Username)
	config.Email.Password = expand(config.Email.Password)
	config.Email.SubjectTemplate = expand(config.Email.SubjectTemplate)
	expandSlice(config.Email.Recipients)

	config.Runtime.CacheDir = expand(config.Runtime.CacheDir)

	for i := range config.Topics {
		config.Topics[i].InterestPrompt = expand(config.Topics[i].InterestPrompt)
	}

	return unresolved
}

// applyFallbacks fills values viper defaults cannot express (slices of maps).
func applyFallbacks(config *Config) {
	if len(config.Relevance.ScoringDimensions) == 0 {
		config.Relevance.ScoringDimensions = []Dimension{
			{Name: "topic_alignment", Weight: 0.4, Description: "How directly the paper addresses the topic"},
			{Name: "methodology_fit", Weight: 0.2, Description: "Soundness and fit of the method"},
			{Name: "novelty", Weight: 0.2, Description: "How new the contribution is"},
			{Name: "experiment_depth", Weight: 0.2, Description: "Depth of the experimental evaluation"},
		}
	}
	for i := range config.Topics {
		if config.Topics[i].Label == "" {
			config.Topics[i].Label = config.Topics[i].Name
		}
	}
}

// validateConfig ensures required configuration is present before the
// pipeline does any network I/O.
func validateConfig(config *Config, unresolved []string) error {
	var errors []string

	if config.Runtime.Mode != ModeOnline && config.Runtime.Mode != ModeOffline {
		errors = append(errors, fmt.Sprintf("runtime.mode must be %q or %q, got %q", ModeOnline, ModeOffline, config.Runtime.Mode))
	}

	if config.Runtime.Online() && config.OpenAI.APIKey == "" {
		msg := "openai.api_key is required in online mode"
		if len(unresolved) > 0 {
			msg += fmt.Sprintf(" (unresolved environment variables: %s)", strings.Join(unresolved, ", "))
		}
		errors = append(errors, msg)
	}

	if len(config.Topics) == 0 {
		errors = append(errors, "at least one topic is required")
	}
	seen := make(map[string]bool)
	for _, topic := range config.Topics {
		if topic.Name == "" {
			errors = append(errors, "every topic needs a name")
			continue
		}
		if !topicNamePattern.MatchString(topic.Name) {
			errors = append(errors, fmt.Sprintf("topic name %q is not URL-safe", topic.Name))
		}
		if seen[topic.Name] {
			errors = append(errors, fmt.Sprintf("duplicate topic name %q", topic.Name))
		}
		seen[topic.Name] = true
		if len(topic.Query.Categories) == 0 && len(topic.Query.Include) == 0 && len(topic.Query.Exclude) == 0 {
			errors = append(errors, fmt.Sprintf("topic %q has an empty query", topic.Name))
		}
	}

	weightSum := 0.0
	for _, dim := range config.Relevance.ScoringDimensions {
		if dim.Name == "" {
			errors = append(errors, "every scoring dimension needs a name")
		}
		if dim.Weight < 0 || dim.Weight > 1 {
			errors = append(errors, fmt.Sprintf("dimension %q weight %v outside [0,1]", dim.Name, dim.Weight))
		}
		weightSum += dim.Weight
	}
	if len(config.Relevance.ScoringDimensions) > 0 && weightSum == 0 {
		errors = append(errors, "scoring dimension weights sum to zero")
	}
	if config.Relevance.PassThreshold < 0 || config.Relevance.PassThreshold > 100 {
		errors = append(errors, fmt.Sprintf("relevance.pass_threshold %v outside [0,100]", config.Relevance.PassThreshold))
	}

	if config.Fetch.MaxPapersPerTopic <= 0 {
		errors = append(errors, "fetch.max_papers_per_topic must be positive")
	}
	if config.Fetch.DaysBack <= 0 {
		errors = append(errors, "fetch.days_back must be positive")
	}
	if _, err := time.ParseDuration(config.Fetch.RequestDelay); err != nil {
		errors = append(errors, fmt.Sprintf("invalid duration for fetch.request_delay: %s", config.Fetch.RequestDelay))
	}

	if config.Email.Enabled {
		if config.Email.SMTPHost == "" {
			errors = append(errors, "email.smtp_host is required when email is enabled")
		}
		if config.Email.Sender == "" {
			errors = append(errors, "email.sender is required when email is enabled")
		}
		if len(config.Email.Recipients) == 0 {
			errors = append(errors, "email.recipients is required when email is enabled")
		}
	}

	if config.Runtime.MaxConcurrency < 1 {
		errors = append(errors, "runtime.max_concurrency must be at least 1")
	}
	if config.Runtime.PaperLimit < 0 {
		errors = append(errors, "runtime.paper_limit cannot be negative")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
