package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"prebuild/internal/features"
	"prebuild/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var missingOnly bool

	cmd := &cobra.Command{
		Use:   "status [features...]",
		Short: "Show host tools and which staging artifacts already exist",
		Long:  "Bare feature names (for example `status openblas`) apply the same download gates as a run.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			id, table, err := platformTable(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Platform", statusInfo, id.String(), colorize))
			if ctx.configPath != "" {
				fmt.Fprintln(out, renderStatusLine("Config", statusInfo, ctx.configPath, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Dev mode", statusInfo, yesNo(cfg.Environment.DevMode), colorize))
			if cfg.Environment.CIEnvFile != "" {
				fmt.Fprintln(out, renderStatusLine("CI env file", statusInfo, cfg.Environment.CIEnvFile, colorize))
			}
			for _, line := range checkLines(preflight.RunAll(cfg), colorize) {
				fmt.Fprintln(out, line)
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Host tools", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range toolLines(preflight.CheckSystemDeps(id, cfg), colorize) {
				fmt.Fprintln(out, line)
			}

			artifacts := preflight.ArtifactStatus(cfg.Paths.WorkDir, id, table, features.Parse(args))
			if missingOnly {
				artifacts = preflight.MissingArtifacts(artifacts)
			}
			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Staging artifacts", colorize) {
				fmt.Fprintln(out, line)
			}
			if len(artifacts) == 0 {
				fmt.Fprintln(out, statusIndent+"Nothing missing")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Kind", "Name", "State", "Path"},
				artifactRows(artifacts),
				nil,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&missingOnly, "missing", false, "List only artifacts a run would still produce")
	return cmd
}
