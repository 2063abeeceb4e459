package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"modelsort/internal/organizer"
	"modelsort/internal/staging"
)

type workspaceJSON struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	RunID     string `json:"run_id"`
	Created   string `json:"created"`
	SizeBytes int64  `json:"size_bytes"`
}

func newWorkspaceCommand(ctx *commandContext) *cobra.Command {
	workspaceCmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage leftover run workspaces",
	}

	workspaceCmd.AddCommand(newWorkspaceListCommand(ctx))
	workspaceCmd.AddCommand(newWorkspaceCleanCommand(ctx))

	return workspaceCmd
}

func newWorkspaceListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspaces left behind by interrupted runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			tempBase := strings.TrimSpace(cfg.Paths.TempDir)
			dirs, err := staging.ListDirectories(tempBase)
			if err != nil {
				return fmt.Errorf("list workspaces: %w", err)
			}

			if ctx.JSONMode() {
				payload := make([]workspaceJSON, 0, len(dirs))
				for _, dir := range dirs {
					payload = append(payload, workspaceJSON{
						Name:      dir.Name,
						Path:      dir.Path,
						RunID:     dir.RunID,
						Created:   dir.Created.UTC().Format(time.RFC3339),
						SizeBytes: dir.Size,
					})
				}
				return writeJSON(cmd, map[string]any{
					"temp_dir":    tempBase,
					"directories": payload,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No leftover workspaces found")
				return nil
			}

			fmt.Fprintf(out, "Workspace base: %s\n\n", tempBase)
			var totalSize int64
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				totalSize += dir.Size
				rows = append(rows, []string{dir.RunID, humanize.Time(dir.Created), formatBytes(dir.Size)})
			}
			fmt.Fprint(out, renderTable(
				[]column{left("Run"), right("Created"), right("Size")},
				rows,
				[]string{"Total", fmt.Sprintf("%d workspaces", len(dirs)), formatBytes(totalSize)},
			))
			return nil
		},
	}
}

func newWorkspaceCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration
	var cleanAll bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale workspaces",
		Long: `Remove workspaces left behind by interrupted runs.

By default only workspaces older than workspace.stale_after_hours are removed.
Use --max-age to override the threshold or --all to remove every workspace.
The run lock is held while cleaning so an active run is never disturbed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			age := time.Duration(cfg.Workspace.StaleAfterHours) * time.Hour
			if cmd.Flags().Changed("max-age") {
				age = maxAge
			}
			if cleanAll {
				age = 0
			}

			lock, err := organizer.AcquireLock(cfg.LockPath())
			if err != nil {
				return err
			}
			defer lock.Release() //nolint:errcheck

			result := staging.CleanStale(cmd.Context(), cfg.Paths.TempDir, age, logger)

			if ctx.JSONMode() {
				errs := make([]map[string]string, 0, len(result.Errors))
				for _, e := range result.Errors {
					errs = append(errs, map[string]string{"path": e.Path, "error": e.Error.Error()})
				}
				removed := result.Removed
				if removed == nil {
					removed = []string{}
				}
				if err := writeJSON(cmd, map[string]any{"removed": removed, "errors": errs}); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				for _, path := range result.Removed {
					fmt.Fprintf(out, "Removed %s\n", path)
				}
				for _, e := range result.Errors {
					fmt.Fprintf(out, "Failed to remove %s: %v\n", e.Path, e.Error)
				}
				if len(result.Removed) == 0 && len(result.Errors) == 0 {
					fmt.Fprintln(out, "No stale workspaces to remove")
				}
			}

			if len(result.Errors) > 0 {
				return fmt.Errorf("%d workspaces could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Remove workspaces older than this duration (e.g. 12h)")
	cmd.Flags().BoolVar(&cleanAll, "all", false, "Remove every workspace regardless of age")
	return cmd
}
