package main

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"docshell/internal/recent"
)

func newRecentCommand(ctx *commandContext) *cobra.Command {
	recentCmd := &cobra.Command{
		Use:   "recent",
		Short: "Manage the recent-files list",
	}
	recentCmd.AddCommand(newRecentListCommand(ctx))
	recentCmd.AddCommand(newRecentAddCommand(ctx))
	recentCmd.AddCommand(newRecentRemoveCommand(ctx))
	recentCmd.AddCommand(newRecentOpenCommand(ctx))
	return recentCmd
}

func (c *commandContext) withRecent(fn func(*recent.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := recent.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newRecentListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recently opened documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRecent(func(store *recent.Store) error {
				records, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					if records == nil {
						records = []*recent.Record{}
					}
					return writeJSON(cmd, records)
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No recent documents")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{
						strconv.FormatInt(rec.ID, 10),
						rec.Name,
						rec.FileType,
						formatSize(rec.Size),
						rec.OpenedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Name", "Type", "Size", "Opened"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newRecentAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>...",
		Short: "Add documents to the recent list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRecent(func(store *recent.Store) error {
				for _, arg := range args {
					abs, err := filepath.Abs(arg)
					if err != nil {
						return err
					}
					rec, err := store.Add(cmd.Context(), abs)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Added #%d %s\n", rec.ID, rec.Path)
				}
				return nil
			})
		},
	}
}

func newRecentRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove entries from the recent list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withRecent(func(store *recent.Store) error {
				for _, id := range ids {
					if err := store.Remove(cmd.Context(), id); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entr%s\n", len(ids), pluralY(len(ids)))
				return nil
			})
		},
	}
}

func newRecentOpenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "open <id>",
		Short: "Reopen a recent document in the running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			base, err := ctx.apiBase()
			if err != nil {
				return err
			}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
				fmt.Sprintf("%s/api/recent/%d/open", base, ids[0]), nil)
			if err != nil {
				return err
			}
			opened, err := doOpen(ctx.apiClient(), req, base)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opened %s document %s\n", opened.DocumentType, opened.ID)
			return nil
		},
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
