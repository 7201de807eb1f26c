package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"prebuild/internal/config"
	"prebuild/internal/deps"
	"prebuild/internal/features"
	"prebuild/internal/ledger"
	"prebuild/internal/logging"
	"prebuild/internal/manifest"
	"prebuild/internal/platform"
	"prebuild/internal/preflight"
	"prebuild/internal/provision"
	"prebuild/internal/stage"
)

func runProvision(cmd *cobra.Command, ctx *commandContext, args []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	id, table, err := platformTable(cfg)
	if err != nil {
		return err
	}

	if failed := preflight.Failed(preflight.RunAll(cfg)); len(failed) > 0 {
		details := make([]string, 0, len(failed))
		for _, r := range failed {
			details = append(details, r.Name+": "+r.Detail)
		}
		return fmt.Errorf("preflight failed: %s", strings.Join(details, "; "))
	}
	for _, s := range deps.Missing(preflight.CheckSystemDeps(id, cfg)) {
		logging.WarnWithContext(logger, "required tool not found", "tool_missing",
			logging.String("tool", s.Name),
			logging.String("detail", s.Detail),
			logging.String(logging.FieldImpact, s.Description+" will fail"),
		)
	}

	opts := []provision.Option{provision.WithOutput(cmd.OutOrStdout())}
	if store := openLedger(cfg, logger); store != nil {
		defer store.Close()
		opts = append(opts, provision.WithRecorder(store))
	}

	report, runErr := provision.New(cfg, id, table, features.Parse(args), logger, opts...).Run(cmd.Context())
	printReport(cmd.OutOrStdout(), report, shouldColorize(cmd.OutOrStdout()))
	return runErr
}

func platformTable(cfg *config.Config) (platform.ID, manifest.Platform, error) {
	id, err := platform.Current()
	if err != nil {
		return platform.Unknown, manifest.Platform{}, err
	}
	m, err := manifest.Resolve(cfg.Paths.ManifestPath)
	if err != nil {
		return id, manifest.Platform{}, fmt.Errorf("load manifest: %w", err)
	}
	table, err := m.For(id)
	if err != nil {
		return id, manifest.Platform{}, err
	}
	return id, table, nil
}

// openLedger returns nil when history cannot be kept; provisioning proceeds.
func openLedger(cfg *config.Config, logger *slog.Logger) *ledger.Store {
	store, err := ledger.Open(cfg.Paths.LedgerPath)
	if err != nil {
		event := "ledger_open_failed"
		if errors.Is(err, ledger.ErrSchemaMismatch) {
			event = "ledger_schema_mismatch"
		}
		logging.WarnWithContext(logger, "run ledger unavailable", event,
			logging.String("path", cfg.Paths.LedgerPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the ledger file to recreate it"),
			logging.String(logging.FieldImpact, "this run will not appear in history"),
		)
		return nil
	}
	return store
}

func printReport(out io.Writer, report provision.Report, colorize bool) {
	if len(report.Results) == 0 {
		return
	}
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Provisioning summary", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, res := range report.Results {
		fmt.Fprintln(out, renderStatusLine(res.Stage, outcomeKind(res.Outcome.Status), truncate(res.Outcome.Detail, 100), colorize))
	}
	fmt.Fprintf(out, "%sRun ID: %s\n", statusIndent, report.RunID)
}

func outcomeKind(status stage.Status) statusKind {
	switch status {
	case stage.StatusSuccess:
		return statusOK
	case stage.StatusRecoverable:
		return statusWarn
	case stage.StatusFatal:
		return statusError
	default:
		return statusInfo
	}
}
