package main

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:   "prebuild [--build|--dev] [features...]",
		Short: "Provision native dependencies before packaging the desktop app",
		Long: "Installs OS packages, fetches third-party libraries, stages the app binary and\n" +
			"sidecars into the packaging directory, and hands the build environment to CI,\n" +
			"the developer, or a chained `bun x tauri dev|build` run.",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Arguments are feature toggles such as --openblas or --cuda, so the
		// root command parses nothing itself.
		DisableFlagParsing: true,
		Args:               cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.DisableFlagParsing {
				configFlag, _ = splitConfigFlag(args)
			}
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rest := splitConfigFlag(args)
			if slices.Contains(rest, "--help") || slices.Contains(rest, "-h") {
				return cmd.Help()
			}
			return runProvision(cmd, ctx, rest)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newPlatformCommand())
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

// splitConfigFlag pulls --config/-c out of raw arguments and returns the
// remaining tokens in order.
func splitConfigFlag(args []string) (string, []string) {
	var path string
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config" || arg == "-c":
			if i+1 < len(args) {
				path = args[i+1]
				i++
			}
		case strings.HasPrefix(arg, "--config="):
			path = strings.TrimPrefix(arg, "--config=")
		default:
			rest = append(rest, arg)
		}
	}
	return strings.TrimSpace(path), rest
}
