package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/planning-service/internal/application"
	"github.com/example/planning-service/internal/config"
	"github.com/example/planning-service/internal/logging"
)

func main() {
	if err := newRootCommand(defaultCLI()).Execute(); err != nil {
		os.Exit(1)
	}
}

// cli carries the process level dependencies of the commands.
type cli struct {
	out        io.Writer
	logOut     io.Writer
	loadConfig func() (config.Config, error)
	now        func() time.Time
	logLevel   string
}

func defaultCLI() *cli {
	return &cli{out: os.Stdout, logOut: os.Stdout, loadConfig: config.Load, now: time.Now}
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "planner",
		Short:         "Project, task and availability planning service",
		SilenceUsage:  true,
	}
	root.SetOut(c.out)
	root.SetErr(c.out)
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "info", "log level: debug, info, warn or error")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Migrate the schema and serve the HTTP API",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return c.serve(ctx)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply the database schema",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.withBackend(cmd.Context(), func(ctx context.Context, _ config.Config, b *backend, _ *slog.Logger) error {
					return b.migrate(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "seed-admin",
			Short: "Create the administrator named by PLANNER_ADMIN_USERNAME",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.withBackend(cmd.Context(), func(ctx context.Context, cfg config.Config, b *backend, logger *slog.Logger) error {
					if !cfg.AdminConfigured() {
						return errors.New("PLANNER_ADMIN_USERNAME and PLANNER_ADMIN_PASSWORD must be set")
					}
					if err := b.migrate(ctx); err != nil {
						return err
					}
					user, created, err := ensureAdmin(ctx, buildServices(b, cfg, c.now, logger), cfg)
					if err != nil {
						return err
					}
					if created {
						fmt.Fprintf(cmd.OutOrStdout(), "administrator %s created\n", user.Username)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "administrator %s already exists\n", user.Username)
					}
					return nil
				})
			},
		},
	)
	return root
}

func (c *cli) logger() (*slog.Logger, error) {
	return logging.New(c.logOut, c.logLevel)
}

// withBackend loads the configuration, opens the store and hands both to fn.
func (c *cli) withBackend(ctx context.Context, fn func(ctx context.Context, cfg config.Config, b *backend, logger *slog.Logger) error) error {
	logger, err := c.logger()
	if err != nil {
		return err
	}

	cfg, err := c.loadConfig()
	if err != nil {
		logger.ErrorContext(ctx, "failed to load configuration", "error", err)
		return err
	}

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.ErrorContext(ctx, "failed to open storage", "driver", cfg.DBDriver, "error", err)
		return err
	}
	defer func() {
		if cerr := b.close(); cerr != nil {
			logger.ErrorContext(ctx, "failed to close storage", "error", cerr)
		}
	}()

	return fn(ctx, cfg, b, logger)
}

func (c *cli) serve(ctx context.Context) error {
	return c.withBackend(ctx, func(ctx context.Context, cfg config.Config, b *backend, logger *slog.Logger) error {
		if err := b.migrate(ctx); err != nil {
			logger.ErrorContext(ctx, "failed to apply migrations", "error", err)
			return err
		}

		svc := buildServices(b, cfg, c.now, logger)
		if cfg.AdminConfigured() {
			if _, _, err := ensureAdmin(ctx, svc, cfg); err != nil {
				logger.ErrorContext(ctx, "failed to seed administrator", "error", err)
				return err
			}
		}

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler:           newHandler(svc, b, logger),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		return runServer(ctx, server, logger)
	})
}

// runServer serves until ctx is cancelled and then drains open requests.
func runServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "planning API listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "server encountered error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(shutdownCtx, "failed to shutdown server", "error", err)
		return err
	}
	logger.InfoContext(shutdownCtx, "server stopped")
	return nil
}

func ensureAdmin(ctx context.Context, svc *services, cfg config.Config) (application.User, bool, error) {
	return svc.users.EnsureAdmin(ctx, application.CreateAdminParams{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	})
}
