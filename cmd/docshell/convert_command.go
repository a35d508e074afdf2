package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"docshell/internal/app"
	"docshell/internal/convert"
	"docshell/internal/doctype"
	"docshell/internal/fileutil"
	"docshell/internal/logging"
	"docshell/internal/protocol"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var verbose bool
	var force bool

	cmd := &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Convert a document with the configured x2t backend",
		Long: "Convert a document between formats. The formats come from the file\n" +
			"extensions, e.g. `docshell convert report.docx report.pdf`.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			input, output := args[0], args[1]
			if !force {
				if _, err := os.Stat(output); err == nil {
					return fmt.Errorf("%s already exists (use --force to replace it)", output)
				}
			}

			fromExt, toExt := doctype.FileExt(input), doctype.FileExt(output)
			if fromExt == "" || toExt == "" {
				return errors.New("input and output need file extensions to pick formats")
			}
			if fromExt == toExt {
				if err := fileutil.CopyFile(input, output); err != nil {
					return fmt.Errorf("copy: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Copied %s to %s (same format)\n", input, output)
				return nil
			}

			data, err := os.ReadFile(input)
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: "console", OutputPaths: []string{"stderr"}})
			if err != nil {
				return err
			}
			if !verbose {
				logger = logging.WithLevelOverride(logger, slog.LevelWarn)
			}
			engine, err := app.NewEngine(cfg, logger)
			if err != nil {
				return err
			}
			defer engine.Close(context.Background()) //nolint:errcheck

			req := convert.Request{
				Data:     data,
				FileFrom: "doc." + fromExt,
				FileTo:   "out." + toExt,
			}
			if toExt == "pdf" {
				req.FormatTo = protocol.FormatPDF
			}
			res, err := engine.Convert(cmd.Context(), req)
			if err != nil {
				return err
			}
			if res.Output == nil {
				return fmt.Errorf("converter produced no %s output for %s", toExt, filepath.Base(input))
			}
			if err := fileutil.WriteFileAtomic(output, res.Output, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", output, len(res.Output))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show converter logs below warning level")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite the output file")
	return cmd
}
