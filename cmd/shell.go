/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/clikanban/kanban/internal/shell"
	"github.com/spf13/cobra"
)

var shellCommands []string

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Starts the interactive kanban prompt",
	Long: `Starts the interactive kanban prompt. Usage:

	kanban shell
	kanban shell -c "login --username tanjiro --password secret" -c "list-boards"

With -c each command runs in order in one session and the shell exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		sh := shell.New(a, os.Stdin, cmd.OutOrStdout())
		if len(shellCommands) == 0 {
			return sh.Run(cmd.Context())
		}
		for _, line := range shellCommands {
			if !sh.Exec(cmd.Context(), line) {
				break
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
	shellCmd.Flags().StringArrayVarP(&shellCommands, "command", "c", nil, "run a command instead of prompting (repeatable)")
}
