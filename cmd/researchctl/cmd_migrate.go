package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the research database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Schema is up to date (%s)\n", env.cfg.Database.Driver)
			return nil
		},
	}
}
