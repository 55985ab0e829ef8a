/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/clikanban/kanban/config"
	"github.com/clikanban/kanban/internal/app"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logLevel string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kanban",
	Short: "Licence-gated kanban boards for teams",
	Long: `kanban manages boards and tasks for accounts enrolled with single-use
licence keys. Boss accounts own boards, Hashira manage tasks and Members
read and search.

	kanban shell        interactive prompt
	kanban server       HTTP API
	kanban licence      issue and seed licence keys
`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logLevel
		if level == "" {
			level = config.LoadConfig().LogLevel
		}
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return err
		}
		log.SetLevel(parsed)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
}

// openApp loads the configuration and wires the services for commands that
// work against the store directly.
func openApp(cmd *cobra.Command, opts ...app.Option) (*app.App, error) {
	return app.New(cmd.Context(), config.LoadConfig(), opts...)
}
