package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pharmachat/pharmachat/pkg/logger"
)

func RootCmd() *cobra.Command {
	var envFile string
	var logLevel string

	root := &cobra.Command{
		Use:   "pharmachat",
		Short: "Multi-tenant pharmacy assistant",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Missing env file is fine; variables may come from the shell.
			_ = godotenv.Load(envFile)
			log := logger.NewLogger(&logger.Config{Level: logger.LogLevel(logLevel)})
			cmd.SetContext(logger.ContextWithLogger(cmd.Context(), log))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file to load")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		ChatCmd(),
		VersionCmd(),
	)
	return root
}
