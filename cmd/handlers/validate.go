package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeren66/LLM4ArxivPaper/internal/arxiv"
	"github.com/yeren66/LLM4ArxivPaper/internal/config"
)

// NewValidateCmd creates the validate command, which loads the configuration
// and prints the arXiv query each topic would issue.
func NewValidateCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and show the generated arXiv queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK: %d topics, mode %s\n", len(cfg.Topics), cfg.Runtime.Mode)
			for _, topicCfg := range cfg.Topics {
				topic := topicCfg.ToCore()
				fmt.Fprintf(out, "  %s: %s\n", topic.Name, arxiv.BuildQuery(topic.Query))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default searches config/pipeline.yaml, then ./pipeline.yaml)")
	return cmd
}
