package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"ai-research-platform/internal/database"
	"ai-research-platform/internal/utils"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "status [task-id]",
		Short: "Show stored research tasks",
		Long: `Show one stored research task, or the most recent tasks when no id
is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				task, err := env.store.GetTask(cmd.Context(), args[0])
				if errors.Is(err, database.ErrNotFound) {
					return fmt.Errorf("task %s not found", args[0])
				}
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(task)
				}
				fmt.Fprintf(out, "Task:     %s\n", task.TaskID)
				fmt.Fprintf(out, "Type:     %s\n", task.ResearchType)
				fmt.Fprintf(out, "Model:    %s\n", task.Model)
				fmt.Fprintf(out, "Status:   %s\n", task.Status)
				fmt.Fprintf(out, "Progress: %s\n", task.Progress)
				if task.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:    %s\n", task.ErrorMessage)
				}
				return nil
			}

			tasks, err := env.store.ListTasks(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(out).Encode(tasks)
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TASK\tTYPE\tSTATUS\tCREATED\tQUERY")
			for _, task := range tasks {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					task.TaskID, task.ResearchType, task.Status,
					utils.FormatDate(task.CreatedAt), utils.Truncate(task.Query, 48))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of recent tasks to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")

	return cmd
}
