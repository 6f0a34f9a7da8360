package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ai-research-platform/internal/config"
	"ai-research-platform/internal/documents"
	"ai-research-platform/internal/models"
	"ai-research-platform/internal/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newBackend builds the research backend of the run command
var newBackend = func(cfg config.OpenAIConfig, logger *zap.Logger) services.ResearchBackend {
	return services.NewOpenAIResearchClient(cfg, logger)
}

type runOptions struct {
	researchType string
	model        string
	citations    int
	noEnrich     bool
	output       string
	archive      bool
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <query>",
		Short: "Run one research task and wait for the report",
		Long: `Run a research task in the foreground.

The task is recorded in the database like a task started over HTTP. The
markdown report is written to stdout, or to --output when given. A task that
ends as failed exits with status 1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResearch(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.researchType, "type", "t", string(models.ResearchTypeComprehensive),
		"Research type: custom, validation, market, financial or comprehensive")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Research model (defaults to RESEARCH_DEFAULT_MODEL)")
	cmd.Flags().IntVar(&opts.citations, "citations", 0, "Maximum citations per phase, 5-100 (defaults to RESEARCH_DEFAULT_CITATIONS)")
	cmd.Flags().BoolVar(&opts.noEnrich, "no-enrich", false, "Send custom queries without prompt enrichment")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.archive, "archive", true, "Save the report to the document archive directory")

	return cmd
}

func runResearch(cmd *cobra.Command, query string, opts *runOptions) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	var archive services.DocumentArchive
	if opts.archive {
		fsArchive, err := documents.NewFileArchive(env.cfg.Documents.Dir, env.logger)
		if err != nil {
			return fmt.Errorf("creating document archive: %w", err)
		}
		archive = fsArchive
	}

	backend := newBackend(env.cfg.OpenAI, env.logger)
	registry := services.NewTaskRegistry(env.logger)
	runner := services.NewPhaseRunner(backend, env.cfg.Research.ModelTimeouts(), env.logger)
	svc := services.NewResearchService(registry, runner, env.store, archive, env.cfg.Research, env.logger)

	req := models.ResearchRequest{
		Query:        query,
		Model:        opts.model,
		ResearchType: models.ResearchType(opts.researchType),
	}
	if opts.citations != 0 {
		req.MaxCitations = &opts.citations
	}
	if opts.noEnrich {
		enrich := false
		req.EnrichPrompt = &enrich
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	task, err := svc.Start(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Started %s research task %s\n", task.ResearchType, task.TaskID)

	done := make(chan struct{})
	go func() {
		svc.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		// Cancel the backend calls and let the task record its failure
		expired, cancel := context.WithCancel(context.Background())
		cancel()
		_ = svc.Shutdown(expired)
	}

	result, err := svc.Result(context.Background(), task.TaskID)
	if err != nil {
		return fmt.Errorf("loading result: %w", err)
	}
	if result.Status == models.TaskStatusFailed {
		return &ResearchFailedError{TaskID: task.TaskID, Message: result.Error}
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(result.Document), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), result.Document)
	}

	if result.Metrics != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Completed: %d/%d phases, %d citations, %d words\n",
			result.Metrics.SuccessfulPhases, result.Metrics.TotalPhases,
			result.Metrics.TotalCitations, result.Metrics.TotalWords)
	}
	return nil
}
