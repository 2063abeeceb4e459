package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"modelsort/internal/config"
	"modelsort/internal/services"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

// configTarget resolves the destination for `config init`.
func configTarget(flag string) (string, error) {
	if flag = strings.TrimSpace(flag); flag != "" {
		return config.ExpandPath(flag)
	}
	return config.DefaultConfigPath()
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the sample configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := configTarget(targetPath)
			if err != nil {
				return fmt.Errorf("resolve config path: %w", err)
			}

			_, statErr := os.Stat(target)
			switch {
			case statErr == nil && !overwrite:
				return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
			case statErr != nil && !errors.Is(statErr, fs.ErrNotExist):
				return fmt.Errorf("check config path: %w", statErr)
			}

			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing configuration file")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load and validate the configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(flagValue(ctx.configFlag))
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "", "load config", "", err)
			}
			out := cmd.OutOrStdout()
			source := path
			if !exists {
				source = path + " (not found, defaults used)"
			}
			fmt.Fprintf(out, "Config path:     %s\n", source)
			fmt.Fprintf(out, "Workspace base:  %s\n", cfg.Paths.TempDir)
			fmt.Fprintf(out, "State directory: %s\n", cfg.Paths.StateDir)
			fmt.Fprintf(out, "Placement:       %s\n", cfg.Organize.Placement)
			fmt.Fprintf(out, "Archive types:   %s\n", strings.Join(cfg.Organize.ArchiveExtensions, " "))
			fmt.Fprintf(out, "Asset types:     %s\n", strings.Join(cfg.Organize.AssetExtensions, " "))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after defaults and flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, cfg)
			}
			data, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			if ctx.configPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n", ctx.configPath)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
