package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"docshell/internal/app"
	"docshell/internal/logging"
	"docshell/internal/session"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var openPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the editor API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if b := strings.TrimSpace(bind); b != "" {
				cfg.Paths.APIBind = b
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(context.Background()); err != nil {
					logger.Warn("shutdown incomplete", logging.Error(err))
				}
			}()

			if p := strings.TrimSpace(openPath); p != "" {
				abs, err := filepath.Abs(p)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", p, err)
				}
				if _, err := a.Recent.Add(runCtx, abs); err != nil {
					return err
				}
				if _, err := a.Session.Open(runCtx, session.FileSource{Path: abs}, session.OpenOptions{}); err != nil {
					return err
				}
			}

			logger.Info("docshell serving",
				logging.String("address", cfg.Paths.APIBind),
				logging.String("config", ctx.configPath),
				logging.String("log_file", ctx.logPath),
			)
			return a.Run(runCtx)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override the API listen address")
	cmd.Flags().StringVar(&openPath, "open", "", "Document to open on startup")
	return cmd
}
