package provision

import (
	"context"
	"io"

	"prebuild/internal/dylib"
	"prebuild/internal/fetch"
	"prebuild/internal/ledger"
	"prebuild/internal/locator"
	"prebuild/internal/services"
)

// Recorder persists stage outcomes. *ledger.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, e ledger.Entry) error
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithRunner replaces the external command runner for every stage.
func WithRunner(runner services.Runner) Option {
	return func(p *Pipeline) {
		if runner != nil {
			p.runner = runner
		}
	}
}

// WithDownloader replaces the HTTP downloader shared by the fetch stages.
func WithDownloader(d *fetch.Downloader) Option {
	return func(p *Pipeline) {
		if d != nil {
			p.downloader = d
		}
	}
}

// WithInspector replaces the executable header reader used to pick binaries.
func WithInspector(inspector locator.Inspector) Option {
	return func(p *Pipeline) {
		if inspector != nil {
			p.inspector = inspector
		}
	}
}

// WithLoadInspector replaces the Mach-O load command reader.
func WithLoadInspector(inspector dylib.LoadInspector) Option {
	return func(p *Pipeline) {
		if inspector != nil {
			p.loads = inspector
		}
	}
}

// WithLookPath replaces the PATH lookup used to find deno.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.lookPath = fn
		}
	}
}

// WithElevatedCopy replaces the privileged copy fallback.
func WithElevatedCopy(fn func(ctx context.Context, runner services.Runner, src, dst string) error) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.elevated = fn
		}
	}
}

// WithRecorder attaches a ledger.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithOutput sets where interactive build hints are printed.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) {
		if w != nil {
			p.out = w
		}
	}
}

// WithStartDir sets the directory the cd hint is relative to.
func WithStartDir(dir string) Option {
	return func(p *Pipeline) {
		p.startDir = dir
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		if id != "" {
			p.runID = id
		}
	}
}
