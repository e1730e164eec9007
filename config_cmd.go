package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/blobfm/internal/config"
)

var errNoConfig = errors.New("no configuration loaded")

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect blobfm's settings and data files",
		Long: `blobfm reads an optional TOML file, then BLOBFM_CONFIG, BLOBFM_API_URL and
BLOBFM_LOG_LEVEL from the environment, then --config and --api-url.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective settings as TOML",
			Long: `Print the settings left after the config file, environment and flags
are applied. The output is a valid config file; unset optional keys are
left out.`,
			Example: `  blobfm config show > ~/.config/blobfm/config.toml
  blobfm --api-url https://blobs.example.com config show --json`,
			Args: cobra.NoArgs,
			RunE: runConfigShow,
		},
		&cobra.Command{
			Use:   "paths",
			Short: "Print where blobfm keeps its config, token and state",
			Args:  cobra.NoArgs,
			RunE:  runConfigPaths,
		},
	)

	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if resolvedCfg == nil {
		return errNoConfig
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), resolvedCfg)
	}

	return config.RenderEffective(resolvedCfg, cmd.OutOrStdout())
}

type configPaths struct {
	Config string `json:"config"`
	Token  string `json:"token"`
	State  string `json:"state"`
	PIDDir string `json:"pid_dir"`
}

func runConfigPaths(cmd *cobra.Command, _ []string) error {
	if resolvedCfg == nil {
		return errNoConfig
	}

	p := configPaths{
		Config: resolvedCfg.ConfigPath,
		Token:  resolvedCfg.TokenPath,
		State:  resolvedCfg.StatePath,
		PIDDir: resolvedCfg.PIDDir,
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), p)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "config:  %s\n", p.Config)
	fmt.Fprintf(w, "token:   %s\n", p.Token)
	fmt.Fprintf(w, "state:   %s\n", p.State)
	fmt.Fprintf(w, "pid dir: %s\n", p.PIDDir)

	return nil
}
