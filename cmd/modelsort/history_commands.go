package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"modelsort/internal/history"
	"modelsort/internal/placement"
	"modelsort/internal/services"
)

type runJSON struct {
	ID             string          `json:"run_id"`
	TargetPath     string          `json:"target_path"`
	OutputPath     string          `json:"output_path"`
	WorkspacePath  string          `json:"workspace_path"`
	State          string          `json:"state"`
	ErrorMessage   string          `json:"error,omitempty"`
	ArchiveCount   int             `json:"archives"`
	PlacementCount int             `json:"placed"`
	StartedAt      string          `json:"started_at"`
	FinishedAt     string          `json:"finished_at,omitempty"`
	Placements     []placementJSON `json:"placements,omitempty"`
}

var errHistoryDisabled = errors.New("run history is disabled (history.enabled = false)")

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent organize runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.History.ListLimit
			}
			return withHistory(ctx, func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("list runs: %w", err)
				}
				if ctx.JSONMode() {
					payload := make([]runJSON, 0, len(runs))
					for _, run := range runs {
						payload = append(payload, toRunJSON(run))
					}
					return writeJSON(cmd, payload)
				}

				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.ID,
						run.State,
						humanize.Time(run.StartedAt),
						formatDuration(run.Duration()),
						strconv.Itoa(run.ArchiveCount),
						strconv.Itoa(run.PlacementCount),
						run.OutputPath,
					})
				}
				fmt.Fprint(out, renderTable(
					[]column{left("Run"), left("State"), left("Started"), right("Duration"), right("Archives"), right("Placed"), left("Output")},
					rows,
					nil,
				))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of runs to list (defaults to history.list_limit)")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its placements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				run, placements, err := loadRun(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					payload := toRunJSON(*run)
					for _, p := range placements {
						payload.Placements = append(payload.Placements, toPlacementJSON(p))
					}
					return writeJSON(cmd, payload)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:       %s\n", run.ID)
				fmt.Fprintf(out, "State:     %s\n", run.State)
				fmt.Fprintf(out, "Source:    %s\n", run.TargetPath)
				fmt.Fprintf(out, "Output:    %s\n", run.OutputPath)
				fmt.Fprintf(out, "Workspace: %s\n", run.WorkspacePath)
				fmt.Fprintf(out, "Started:   %s\n", formatTime(run.StartedAt))
				fmt.Fprintf(out, "Finished:  %s\n", formatTime(run.FinishedAt))
				fmt.Fprintf(out, "Archives:  %d\n", run.ArchiveCount)
				if run.ErrorMessage != "" {
					fmt.Fprintf(out, "Message:   %s\n", run.ErrorMessage)
				}
				if len(placements) == 0 {
					return nil
				}
				fmt.Fprintln(out)
				rows := make([][]string, 0, len(placements))
				for _, p := range placements {
					rows = append(rows, []string{p.Category, p.Instance, string(p.Action), yesNo(p.Loose), formatBytes(p.Bytes), p.Source})
				}
				fmt.Fprint(out, renderTable(
					[]column{left("Category"), left("Instance"), left("Action"), left("Loose"), right("Size"), left("Source")},
					rows,
					nil,
				))
				return nil
			})
		},
	}
}

func loadRun(ctx context.Context, store *history.Store, id string) (*history.Run, []placement.Placement, error) {
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load run: %w", err)
	}
	if run == nil {
		return nil, nil, services.Wrap(services.ErrValidation, "", "history show", fmt.Sprintf("run %s not found", id), nil)
	}
	placements, err := store.Placements(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load placements: %w", err)
	}
	return run, placements, nil
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	store, err := ctx.openHistory()
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	if store == nil {
		return errHistoryDisabled
	}
	defer store.Close()
	return fn(store)
}

func toRunJSON(run history.Run) runJSON {
	payload := runJSON{
		ID:             run.ID,
		TargetPath:     run.TargetPath,
		OutputPath:     run.OutputPath,
		WorkspacePath:  run.WorkspacePath,
		State:          run.State,
		ErrorMessage:   run.ErrorMessage,
		ArchiveCount:   run.ArchiveCount,
		PlacementCount: run.PlacementCount,
		StartedAt:      run.StartedAt.UTC().Format(time.RFC3339),
	}
	if !run.FinishedAt.IsZero() {
		payload.FinishedAt = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	return payload
}
