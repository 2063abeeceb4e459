package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"modelsort/internal/config"
	"modelsort/internal/preflight"
	"modelsort/internal/services"
)

type checkJSON struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check <target> <output>",
		Short: "Run preflight checks for an organize run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			output, err := config.ExpandPath(args[1])
			if err != nil {
				return err
			}

			results := preflight.RunAll(cfg, target, output)
			passed := preflight.AllPassed(results)

			if ctx.JSONMode() {
				payload := make([]checkJSON, 0, len(results))
				for _, r := range results {
					payload = append(payload, checkJSON(r))
				}
				if err := writeJSON(cmd, payload); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
			}

			if !passed {
				return services.Wrap(services.ErrValidation, "", "preflight", "one or more checks failed", nil)
			}
			return nil
		},
	}
}
