package provision

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/payportal/internal/server/services"
	"github.com/spf13/cobra"
)

const dsnEnv = "DATABASE_DSN"

var errMissingDSN = errors.New("database dsn is required (--dsn or " + dsnEnv + ")")

// NewRootCommand builds the payportal-provision command tree.
func NewRootCommand(connect Connect) *cobra.Command {
	var dsn string

	root := &cobra.Command{
		Use:           "payportal-provision",
		Short:         "Operator tooling for the payments portal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dsn, "dsn", os.Getenv(dsnEnv), "PostgreSQL connection string")

	open := func(cmd *cobra.Command) (Backend, error) {
		if dsn == "" {
			return nil, errMissingDSN
		}
		return connect(cmd.Context(), dsn)
	}

	root.AddCommand(migrateCmd(open), employeeCmd(open))
	return root
}

func migrateCmd(open func(*cobra.Command) (Backend, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}

func employeeCmd(open func(*cobra.Command) (Backend, error)) *cobra.Command {
	var (
		in            services.EmployeeInput
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "employee",
		Short: "Create a staff account",
		Long: `Create a staff account. The password is read from the terminal
without echo, or from the first line of stdin with --password-stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if passwordStdin {
				in.Password, err = readLine(bufio.NewReader(cmd.InOrStdin()), "Password", cmd.ErrOrStderr())
			} else {
				in.Password, err = promptPassword(cmd.ErrOrStderr())
			}
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}

			b, err := open(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			a, err := b.CreateEmployee(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Employee %s created (%s)\n", a.Username, a.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Username, "username", "", "login name")
	f.StringVar(&in.Email, "email", "", "email address")
	f.StringVar(&in.FirstName, "first-name", "", "first name")
	f.StringVar(&in.LastName, "last-name", "", "last name")
	f.StringVar(&in.IDNumber, "id-number", "", "national id number")
	f.BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
