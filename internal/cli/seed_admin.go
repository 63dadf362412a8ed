package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-taskboard-api/internal/application/user"
	"github.com/go-taskboard-api/internal/domain"
	"github.com/go-taskboard-api/internal/infrastructure/dynamo"
	"github.com/go-taskboard-api/internal/infrastructure/smtp"
	"github.com/spf13/cobra"
)

type seedAdminOptions struct {
	Email string
	Name  string
}

type provisioner interface {
	Provision(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
}

// NewSeedAdminCommand creates the seed-admin command. The new administrator
// goes through the normal first-login flow: an OTP is emailed and no
// password is ever set by the operator.
func NewSeedAdminCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &seedAdminOptions{}

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Provision an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.Config
			if opts.Email == "" {
				opts.Email = cfg.AdminEmail
			}
			if opts.Email == "" {
				return errors.New("--email is required (or set ADMIN_EMAIL)")
			}
			client, err := dynamo.NewClient(cfg)
			if err != nil {
				return err
			}
			svc := user.NewService(user.ServiceDeps{
				UserRepo:       dynamo.NewUserRepo(client, cfg.DynamoTables.Users, cfg.DynamoTables.UserEmails),
				DepartmentRepo: dynamo.NewDepartmentRepo(client, cfg.DynamoTables.Departments),
				Mailer:         smtp.NewMailer(cfg),
				OTPTTL:         cfg.OTPTTL,
			})
			return runSeedAdmin(cmd.Context(), svc, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "administrator email (defaults to ADMIN_EMAIL)")
	cmd.Flags().StringVar(&opts.Name, "name", "Administrator", "display name")

	return cmd
}

func runSeedAdmin(ctx context.Context, svc provisioner, opts *seedAdminOptions, out io.Writer) error {
	u, err := svc.Provision(ctx, domain.CreateUserRequest{
		Email: opts.Email,
		Name:  opts.Name,
		Role:  string(domain.RoleAdmin),
	})
	if errors.Is(err, domain.ErrConflict) {
		fmt.Fprintf(out, "%s is already registered, nothing to do\n", opts.Email)
		return nil
	}
	if err != nil {
		return fmt.Errorf("provision admin: %w", err)
	}
	fmt.Fprintf(out, "admin %s created (id %s); a first-login code was emailed\n", u.Email, u.UserID)
	return nil
}
