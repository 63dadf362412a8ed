package cli

import (
	"github.com/go-taskboard-api/internal/config"
	"github.com/go-taskboard-api/internal/pkg/logx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags and the configuration they resolve to.
type RootOptions struct {
	EnvFile string
	Config  *config.Config
}

// NewRootCommand creates the root command for the operator CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "taskctl",
		Short: "Operator tooling for the taskboard API",
		Long:  "Provision DynamoDB tables and seed the first administrator for the taskboard API.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing env file is fine; the environment may already be set.
			_ = godotenv.Load(opts.EnvFile)
			opts.Config = config.Load()
			logx.New(logx.Config{
				Service: "taskctl",
				Env:     opts.Config.AppEnv,
				Level:   opts.Config.LogLevel,
				Format:  "text",
			})
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to load before reading the environment")

	cmd.AddCommand(NewBootstrapCommand(opts))
	cmd.AddCommand(NewSeedAdminCommand(opts))

	return cmd
}
