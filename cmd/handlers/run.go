package handlers

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yeren66/LLM4ArxivPaper/internal/config"
	"github.com/yeren66/LLM4ArxivPaper/internal/logger"
	"github.com/yeren66/LLM4ArxivPaper/internal/pipeline"
)

// NewRunCmd creates the run command, which executes one full digest run.
func NewRunCmd() *cobra.Command {
	var (
		cfgFile    string
		mode       string
		paperLimit int
		withEmail  bool
		noEmail    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one digest run: search, rank, read, publish",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			if cmd.Flags().Changed("mode") {
				cfg.Runtime.Mode = mode
			}
			if cmd.Flags().Changed("paper-limit") {
				cfg.Runtime.PaperLimit = paperLimit
			}
			if withEmail {
				cfg.Email.Enabled = true
			}
			if noEmail {
				cfg.Email.Enabled = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger.SetLevel(cfg.Runtime.ConsoleLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := pipeline.FromConfig(cfg).Run(ctx)
			if err != nil {
				return fmt.Errorf("digest run: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Selected %d of %d papers across %d topics (average score %.1f/100)\n",
				result.Stats.PapersSelected, result.Stats.PapersFetched,
				result.Stats.TopicsProcessed, result.AverageScore())
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default searches config/pipeline.yaml, then ./pipeline.yaml)")
	cmd.Flags().StringVar(&mode, "mode", "", "override runtime.mode (online or offline)")
	cmd.Flags().IntVar(&paperLimit, "paper-limit", 0, "override runtime.paper_limit (0 = no cap)")
	cmd.Flags().BoolVar(&withEmail, "email", false, "force email delivery on")
	cmd.Flags().BoolVar(&noEmail, "no-email", false, "force email delivery off")
	cmd.MarkFlagsMutuallyExclusive("email", "no-email")

	return cmd
}
