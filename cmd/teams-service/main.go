// Package main is the teams-service entry point.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"teams-service/internal/app"
	"teams-service/internal/config"
	"teams-service/internal/lib/accesstoken"
	"teams-service/internal/lib/invitetoken"
	"teams-service/internal/lib/migrator"
	"teams-service/internal/service"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "teams-service",
		Short: "Team membership and invitations service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				return os.Setenv("CONFIG_PATH", configPath)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (yaml, toml or env); overrides CONFIG_PATH")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run migrations and start the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve()
			},
		},
		migrateCmd(),
		inviteTokenCmd(),
		accessTokenCmd(),
	)

	return cmd
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := setupLogger(cfg.Env)
	log.Info("starting teams-service", slog.String("env", cfg.Env), slog.String("driver", cfg.Storage.Driver))

	application, err := app.New(cfg, log)
	if err != nil {
		return err
	}

	go application.MustRun()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	sig := <-stop
	log.Info("received signal", slog.String("signal", sig.String()))

	application.GracefulShutdown()
	log.Info("application stopped")

	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				return migrator.RunMigrations(cfg, setupLogger(cfg.Env))
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all applied migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				return migrator.RollbackMigrations(cfg, setupLogger(cfg.Env))
			},
		},
	)

	return cmd
}

func inviteTokenCmd() *cobra.Command {
	var teamID, email string

	cmd := &cobra.Command{
		Use:   "invite-token",
		Short: "Mint an invitation link for a team and email",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			normalized, err := service.NormalizeEmail(email)
			if err != nil {
				return err
			}

			codec, err := invitetoken.New(cfg.Invite.Secret, nil)
			if err != nil {
				return err
			}

			token, err := codec.Encode(teamID, normalized, cfg.Invite.TTLDays)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cfg.Invite.LinkBaseURL+token)
			return err
		},
	}

	cmd.Flags().StringVar(&teamID, "team", "", "Team id")
	cmd.Flags().StringVar(&email, "email", "", "Invitee email")
	_ = cmd.MarkFlagRequired("team")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// accessTokenCmd signs a bearer token for local testing against the API.
func accessTokenCmd() *cobra.Command {
	var (
		userID string
		email  string
		tier   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "access-token",
		Short: "Sign a bearer access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			token, err := accesstoken.Sign(cfg.Auth.Secret, userID, email, tier, ttl)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id (sub claim)")
	cmd.Flags().StringVar(&email, "email", "", "User email")
	cmd.Flags().StringVar(&tier, "tier", "free", "Subscription tier claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case config.EnvLocal:
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return log
}
