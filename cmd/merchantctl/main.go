package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"merchantpay/internal/config"
	"merchantpay/internal/database"
	"merchantpay/internal/logger"
	"merchantpay/internal/modules/auth"
	"merchantpay/internal/modules/users"
	"merchantpay/internal/repository"
	"merchantpay/internal/seed"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:           "merchantctl",
		Short:         "Operational commands for the merchantpay database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&dsn, "database-url", "", "Database DSN (defaults to DATABASE_URL)")

	open := func(ctx context.Context) (*gorm.DB, error) {
		cfg, err := config.Load(ctx)
		if err != nil {
			return nil, err
		}
		logger.Setup(cfg.LogLevel, cfg.LogPretty)
		if dsn == "" {
			dsn = cfg.DatabaseURL
		}
		return database.Connect(dsn)
	}

	cmd.AddCommand(newMigrateCommand(open))
	cmd.AddCommand(newSeedCommand(open))
	cmd.AddCommand(newCleanupCommand(open))
	cmd.AddCommand(newResetPasswordCommand(open))
	cmd.AddCommand(newHashPasswordCommand())
	return cmd
}

type opener func(ctx context.Context) (*gorm.DB, error)

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newMigrateCommand(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	run := func(fn func(ctx context.Context, db *gorm.DB) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			db, err := open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()
			return fn(ctx, db)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: run(func(ctx context.Context, db *gorm.DB) error {
			if err := database.Migrate(ctx, db); err != nil {
				return err
			}
			v, err := database.MigrationVersion(ctx, db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		RunE:  run(database.MigrateDown),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE:  run(database.MigrationStatus),
	})
	return cmd
}

func newSeedCommand(open opener) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo tenant hierarchy with one user per role",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			db, err := open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			if err := database.Migrate(ctx, db); err != nil {
				return err
			}
			res, err := seed.Run(ctx, db, password)
			if err != nil {
				return err
			}
			for _, u := range res.Users {
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s\n", u.Role, u.Email)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password for every seeded user")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newCleanupCommand(open opener) *cobra.Command {
	var retention time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete refresh tokens that expired or were revoked before the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			db, err := open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			n, err := repository.NewRefreshTokenRepository(db).DeleteStale(ctx, time.Now().Add(-retention))
			if err != nil {
				return fmt.Errorf("cleanup refresh_tokens: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "refresh_tokens deleted: %d\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&retention, "retention", 30*24*time.Hour, "Keep stale tokens this long for audit")
	return cmd
}

// newResetPasswordCommand sets a new password and revokes every refresh token
// of the user, so open sessions end once their access token expires.
func newResetPasswordCommand(open opener) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a user's password and revoke their sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(password) < users.MinPasswordLength {
				return fmt.Errorf("password must be at least %d characters", users.MinPasswordLength)
			}
			ctx := commandContext(cmd)
			db, err := open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			userRepo := repository.NewUserRepository(db)
			u, err := userRepo.GetByEmail(ctx, email)
			if err != nil {
				if repository.IsNotFound(err) {
					return fmt.Errorf("user %s not found", email)
				}
				return err
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			if err := userRepo.UpdatePassword(ctx, u.ID, hash); err != nil {
				return fmt.Errorf("update password: %w", err)
			}
			if err := repository.NewRefreshTokenRepository(db).RevokeByUser(ctx, u.ID, time.Now()); err != nil {
				return fmt.Errorf("revoke sessions: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password reset for %s\n", u.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email of the user")
	cmd.Flags().StringVar(&password, "password", "", "New password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash (reads stdin when no argument is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pw string
			if len(args) == 1 {
				pw = args[0]
			} else {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				pw = string(trimNewline(b))
			}
			if pw == "" {
				return fmt.Errorf("password is empty")
			}
			hash, err := auth.HashPassword(pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
