package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/go-taskboard-api/internal/config"
	"github.com/go-taskboard-api/internal/infrastructure/dynamo"
	"github.com/spf13/cobra"
)

// NewBootstrapCommand creates the bootstrap command.
func NewBootstrapCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create missing DynamoDB tables and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dynamo.NewClient(rootOpts.Config)
			if err != nil {
				return err
			}
			return runBootstrap(cmd.Context(), client, rootOpts.Config.DynamoTables, cmd.OutOrStdout())
		},
	}
}

func runBootstrap(ctx context.Context, client dynamo.TableCreator, tables config.DynamoTables, out io.Writer) error {
	if err := dynamo.Bootstrap(ctx, client, tables); err != nil {
		return fmt.Errorf("bootstrap tables: %w", err)
	}
	fmt.Fprintf(out, "tables ready: %s, %s, %s, %s, %s\n",
		tables.Users, tables.UserEmails, tables.Tasks, tables.Departments, tables.Attachments)
	return nil
}
