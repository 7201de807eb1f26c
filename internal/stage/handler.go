package stage

import (
	"context"
)

// Handler describes the contract the provisioning pipeline needs from each stage.
// Run never panics on expected failures; every failure is reported through the
// returned Outcome.
type Handler interface {
	Name() string
	Run(context.Context) Outcome
}

// Func adapts a plain function into a Handler.
type Func struct {
	StageName string
	Fn        func(context.Context) Outcome
}

// Name implements Handler.
func (f Func) Name() string { return f.StageName }

// Run implements Handler.
func (f Func) Run(ctx context.Context) Outcome {
	if f.Fn == nil {
		return Skipped("no work defined")
	}
	return f.Fn(ctx)
}
