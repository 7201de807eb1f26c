package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"

	"prebuild/internal/config"
	"prebuild/internal/dylib"
	"prebuild/internal/features"
	"prebuild/internal/fetch"
	"prebuild/internal/ledger"
	"prebuild/internal/locator"
	"prebuild/internal/logging"
	"prebuild/internal/manifest"
	"prebuild/internal/platform"
	"prebuild/internal/services"
	"prebuild/internal/stage"
)

// Stage names, in execution order.
const (
	StagePackages  = "packages"
	StageBinary    = "binary"
	StageDylib     = "dylib"
	StageDeps      = "deps"
	StageFFmpegBin = "ffmpeg-bin"
	StageDeno      = "deno"
	StageSidecar   = "sidecar"
	StageHandoff   = "handoff"
)

// ErrFatal marks the error returned when a stage stops the run.
var ErrFatal = errors.New("provisioning aborted")

// StageResult is the outcome of one executed stage.
type StageResult struct {
	Stage      string
	Outcome    stage.Outcome
	StartedAt  time.Time
	FinishedAt time.Time
}

// Report summarizes a run.
type Report struct {
	RunID    string
	Platform platform.ID
	Results  []StageResult
}

// Fatal returns the stage that stopped the run, if any.
func (r Report) Fatal() (StageResult, bool) {
	for _, res := range r.Results {
		if res.Outcome.IsFatal() {
			return res, true
		}
	}
	return StageResult{}, false
}

// Warnings returns the recoverable failures of the run.
func (r Report) Warnings() []StageResult {
	var out []StageResult
	for _, res := range r.Results {
		if res.Outcome.Status == stage.StatusRecoverable {
			out = append(out, res)
		}
	}
	return out
}

// Pipeline wires the provisioning components for one platform.
type Pipeline struct {
	cfg      *config.Config
	id       platform.ID
	table    manifest.Platform
	features features.Set
	logger   *slog.Logger

	runner     services.Runner
	downloader *fetch.Downloader
	inspector  locator.Inspector
	loads      dylib.LoadInspector
	lookPath   func(string) (string, error)
	elevated   func(ctx context.Context, runner services.Runner, src, dst string) error
	recorder   Recorder
	out        io.Writer
	startDir   string
	runID      string
	now        func() time.Time
}

// New constructs a Pipeline for platform id using table, the manifest
// section for that platform.
func New(cfg *config.Config, id platform.ID, table manifest.Platform, set features.Set, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		cfg:       cfg,
		id:        id,
		table:     table,
		features:  set,
		logger:    logger,
		runner:    services.ExecRunner{},
		inspector: locator.HeaderInspector{},
		loads:     dylib.MachOInspector{},
		lookPath:  exec.LookPath,
		elevated:  platform.ElevatedCopy,
		out:       os.Stdout,
		now:       time.Now,
	}
	if wd, err := os.Getwd(); err == nil {
		p.startDir = wd
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.downloader == nil {
		p.downloader = fetch.NewDownloader(cfg, logger)
	}
	if p.runID == "" {
		p.runID = uuid.NewString()
	}
	return p
}

// RunID returns the identifier attached to every log line and ledger row.
func (p *Pipeline) RunID() string { return p.runID }

// Run executes every stage in order. It returns an error wrapping ErrFatal
// when a stage fails fatally; recoverable failures only appear in the report.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	ctx = services.WithRunID(ctx, p.runID)
	logger := logging.WithContext(ctx, p.logger)
	report := Report{RunID: p.runID, Platform: p.id}

	logger.Info("provisioning started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("platform", p.id.String()),
		logging.String("work_dir", p.cfg.Paths.WorkDir),
		logging.Strings("features", p.features.Enabled()),
		logging.String("action", p.features.Action().String()),
	)

	for _, handler := range p.stages() {
		res := p.runStage(ctx, handler)
		report.Results = append(report.Results, res)
		if res.Outcome.IsFatal() {
			logging.ErrorWithContext(logger, "provisioning aborted", "run_aborted",
				logging.String(logging.FieldStage, res.Stage),
				logging.Error(res.Outcome.Reason),
			)
			return report, fmt.Errorf("%w: stage %s: %w", ErrFatal, res.Stage, res.Outcome.Reason)
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
	}

	logger.Info("provisioning complete",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("stages", len(report.Results)),
		logging.Int("warnings", len(report.Warnings())),
	)
	return report, nil
}

func (p *Pipeline) runStage(ctx context.Context, handler stage.Handler) StageResult {
	stageCtx := services.WithStage(ctx, handler.Name())
	logger := logging.WithContext(stageCtx, p.logger)
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	started := p.now()
	outcome := handler.Run(stageCtx)
	res := StageResult{Stage: handler.Name(), Outcome: outcome, StartedAt: started, FinishedAt: p.now()}

	switch outcome.Status {
	case stage.StatusRecoverable:
		logging.WarnWithContext(logger, "stage completed with errors", "stage_recoverable",
			logging.Error(outcome.Reason),
			logging.String(logging.FieldImpact, "continuing with the next stage"),
		)
	case stage.StatusFatal:
		logging.ErrorWithContext(logger, "stage failed", "stage_failure",
			logging.Error(outcome.Reason),
		)
	default:
		logger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.String("status", string(outcome.Status)),
			logging.String("detail", outcome.Detail),
			logging.Duration("duration", res.FinishedAt.Sub(res.StartedAt)),
		)
	}

	p.record(stageCtx, logger, res)
	return res
}

func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, res StageResult) {
	if p.recorder == nil {
		return
	}
	err := p.recorder.Record(ctx, ledger.Entry{
		RunID:      p.runID,
		Platform:   p.id.String(),
		Stage:      res.Stage,
		Status:     string(res.Outcome.Status),
		Detail:     res.Outcome.Detail,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
	})
	if err != nil {
		logging.WarnWithContext(logger, "could not record stage outcome", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history will be incomplete"),
		)
	}
}
