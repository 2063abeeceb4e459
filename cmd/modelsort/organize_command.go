package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"modelsort/internal/archive"
	"modelsort/internal/config"
	"modelsort/internal/logging"
	"modelsort/internal/organizer"
	"modelsort/internal/placement"
	"modelsort/internal/services"
)

type organizeJSON struct {
	RunID       string            `json:"run_id"`
	State       string            `json:"state"`
	Workspace   string            `json:"workspace"`
	Archives    int               `json:"archives"`
	Placed      int               `json:"placed"`
	AbortReason string            `json:"abort_reason,omitempty"`
	Error       string            `json:"error,omitempty"`
	Placements  []placementJSON   `json:"placements"`
	Transitions []organizer.State `json:"transitions"`
}

type placementJSON struct {
	Source   string `json:"source"`
	Category string `json:"category"`
	Instance string `json:"instance"`
	Target   string `json:"target,omitempty"`
	Action   string `json:"action"`
	Reason   string `json:"reason,omitempty"`
	Bytes    int64  `json:"bytes"`
	Loose    bool   `json:"loose"`
}

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	var tempBase string
	var move bool

	cmd := &cobra.Command{
		Use:   "organize <target> <output>",
		Short: "Extract archives under target and organize model assets into output",
		Long: `Scan target for archives and loose model files, extract nested archives
into a temporary workspace, and copy every asset directory into
output/<Category>/<Instance>.

The output directory must not exist yet. On failure it is removed again, so a
run either completes or leaves nothing behind.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if move {
				cfg.Organize.Placement = config.PlacementMove
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			opts := []organizer.Option{
				organizer.WithArchiveReporter(func(tree archive.Tree) {
					if !ctx.JSONMode() {
						fmt.Fprintf(out, "%s done\n", tree.Root)
					}
				}),
			}
			store, err := ctx.openHistory()
			if err != nil {
				logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "this run will not appear in `modelsort history`"),
				)
			}
			if store != nil {
				defer store.Close()
				opts = append(opts, organizer.WithRecorder(store))
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			req := organizer.Request{
				TargetPath: args[0],
				OutputPath: args[1],
				TempPath:   tempBase,
			}
			if req.TempPath != "" {
				if req.TempPath, err = config.ExpandPath(req.TempPath); err != nil {
					return fmt.Errorf("resolve --tmp: %w", err)
				}
			}
			res, runErr := organizer.New(cfg, logger, opts...).Organize(runCtx, req)

			if ctx.JSONMode() {
				if err := writeJSON(cmd, buildOrganizeJSON(res, runErr)); err != nil {
					return err
				}
			} else {
				renderOrganizeSummary(out, res, runErr, shouldColorize(out))
			}

			if runErr != nil {
				return runErr
			}
			if res.State == organizer.StateAborted {
				return services.Wrap(services.ErrAborted, "", "", res.AbortReason, nil)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tempBase, "tmp", "", "Workspace base path; the run ID is appended (defaults to paths.temp_dir)")
	cmd.Flags().BoolVar(&move, "move", false, "Move extracted asset directories instead of copying them")
	return cmd
}

func renderOrganizeSummary(out io.Writer, res organizer.Result, runErr error, colorize bool) {
	if len(res.Placements) > 0 {
		rows := make([][]string, 0, len(res.Placements))
		var total int64
		for _, p := range res.Placements {
			size := "-"
			if p.Action != placement.ActionSkipped {
				size = formatBytes(p.Bytes)
				total += p.Bytes
			}
			rows = append(rows, []string{p.Category, p.Instance, string(p.Action), size})
		}
		fmt.Fprint(out, renderTable(
			[]column{left("Category"), left("Instance"), left("Action"), right("Size")},
			rows,
			[]string{"Total", "", fmt.Sprintf("%d placed, %d skipped", res.Placed(), len(res.Placements)-res.Placed()), formatBytes(total)},
		))
	}

	kind, message := statusOK, fmt.Sprintf("%d archives extracted", res.Archives)
	switch {
	case runErr != nil:
		kind, message = statusError, "output rolled back: "+runErr.Error()
	case res.State == organizer.StateAborted:
		kind, message = statusWarn, res.AbortReason
	case len(res.Placements) == 0:
		kind, message = statusWarn, "no model assets found"
	}
	fmt.Fprintln(out, renderStatusLine("Run "+res.RunID, kind, message, colorize))
	if res.CleanupErr != nil {
		fmt.Fprintln(out, renderStatusLine("Workspace", statusWarn, res.CleanupErr.Error(), colorize))
	}
}

func buildOrganizeJSON(res organizer.Result, runErr error) organizeJSON {
	payload := organizeJSON{
		RunID:       res.RunID,
		State:       string(res.State),
		Workspace:   res.Workspace,
		Archives:    res.Archives,
		Placed:      res.Placed(),
		AbortReason: res.AbortReason,
		Placements:  make([]placementJSON, 0, len(res.Placements)),
		Transitions: res.Transitions,
	}
	if runErr != nil {
		payload.Error = runErr.Error()
	}
	for _, p := range res.Placements {
		payload.Placements = append(payload.Placements, toPlacementJSON(p))
	}
	return payload
}

func toPlacementJSON(p placement.Placement) placementJSON {
	return placementJSON{
		Source:   p.Source,
		Category: p.Category,
		Instance: p.Instance,
		Target:   p.Target,
		Action:   string(p.Action),
		Reason:   p.Reason,
		Bytes:    p.Bytes,
		Loose:    p.Loose,
	}
}
