package main

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"docshell/internal/config"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check configuration, converter and server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			configMsg := ctx.configPath
			configKind := statusOK
			if _, err := os.Stat(ctx.configPath); err != nil {
				configMsg = "defaults (no file at " + ctx.configPath + ")"
				configKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Config", configKind, configMsg, colorize))

			kind, msg := converterStatus(cfg)
			fmt.Fprintln(out, renderStatusLine("Converter", kind, msg, colorize))

			if info, err := os.Stat(cfg.Paths.DownloadDir); err != nil || !info.IsDir() {
				fmt.Fprintln(out, renderStatusLine("Downloads", statusWarn, cfg.Paths.DownloadDir+" is missing", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Downloads", statusOK, cfg.Paths.DownloadDir, colorize))
			}

			base, _ := ctx.apiBase()
			resp, err := ctx.apiClient().Get(base + "/health")
			switch {
			case err != nil:
				fmt.Fprintln(out, renderStatusLine("Server", statusWarn, "not running at "+base, colorize))
			case resp.StatusCode != http.StatusOK:
				_ = resp.Body.Close()
				fmt.Fprintln(out, renderStatusLine("Server", statusError, fmt.Sprintf("%s answered %d", base, resp.StatusCode), colorize))
			default:
				_ = resp.Body.Close()
				fmt.Fprintln(out, renderStatusLine("Server", statusOK, base, colorize))
			}
			return nil
		},
	}
}

func converterStatus(cfg *config.Config) (statusKind, string) {
	switch cfg.Converter.Backend {
	case config.BackendWasm:
		if _, err := os.Stat(cfg.Converter.WasmPath); err != nil {
			return statusError, "wasm module " + cfg.Converter.WasmPath + " not found"
		}
		return statusOK, "wasm " + cfg.Converter.WasmPath
	default:
		path, err := exec.LookPath(strings.TrimSpace(cfg.Converter.Binary))
		if err != nil {
			return statusError, cfg.Converter.Binary + " not found on PATH"
		}
		return statusOK, "process " + path
	}
}
