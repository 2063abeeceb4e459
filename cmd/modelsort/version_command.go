package main

import (
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.0.0-dev"

// displayVersion normalizes version to vMAJOR.MINOR.PATCH[-pre][+meta]. A value
// that is not semver is returned unchanged.
func displayVersion(raw string) string {
	v, err := semver.NewVersion(raw)
	if err != nil {
		return raw
	}
	return "v" + v.String()
}

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the modelsort version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			v := displayVersion(version)
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]string{"version": v, "go": runtime.Version()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "modelsort %s (%s)\n", v, runtime.Version())
			return nil
		},
	}
}
