package services

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Invocation describes a single external tool execution. Args are passed to the
// process verbatim; nothing is ever interpreted by a shell.
type Invocation struct {
	Binary string
	Args   []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env entries are appended to the inherited environment.
	Env []string
	// OnOutput receives stdout and stderr lines. When nil, lines are echoed to
	// stderr so the operator can follow long-running tools.
	OnOutput func(string)
	// Stdout, when set, receives raw stdout instead of OnOutput.
	Stdout io.Writer
}

// String renders the invocation for logs.
func (i Invocation) String() string {
	parts := make([]string, 0, len(i.Args)+1)
	parts = append(parts, i.Binary)
	for _, arg := range i.Args {
		if arg == "" || strings.ContainsAny(arg, " \t\"'") {
			arg = fmt.Sprintf("%q", arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Runner abstracts command execution for testability.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, inv Invocation) error

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, inv Invocation) error { return f(ctx, inv) }

// Output runs inv through runner and returns the captured stdout.
func Output(ctx context.Context, runner Runner, inv Invocation) ([]byte, error) {
	var buf bytes.Buffer
	inv.Stdout = &buf
	if inv.OnOutput == nil {
		inv.OnOutput = func(string) {}
	}
	err := runner.Run(ctx, inv)
	return buf.Bytes(), err
}

// ExecRunner executes invocations with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, inv Invocation) error {
	if strings.TrimSpace(inv.Binary) == "" {
		return Wrap(ErrConfiguration, "", "run command", "binary required", nil)
	}
	cmd := exec.CommandContext(ctx, inv.Binary, inv.Args...) //nolint:gosec
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}

	forward := func(line string) {
		if inv.OnOutput != nil {
			inv.OnOutput(line)
			return
		}
		fmt.Fprintln(os.Stderr, line)
	}

	var streams []io.Reader
	if inv.Stdout != nil {
		cmd.Stdout = inv.Stdout
	} else {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("stdout pipe: %w", err)
		}
		streams = append(streams, stdout)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	streams = append(streams, stderr)

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Wrap(ErrNotFound, "", "start command", inv.Binary, err)
		}
		return Wrap(ErrExternalTool, "", "start command", inv.Binary, err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once
	for _, r := range streams {
		wg.Add(1)
		go func(r io.Reader) {
			defer wg.Done()
			scanner := bufio.NewScanner(r)
			for scanner.Scan() {
				forward(scanner.Text())
			}
			if err := scanner.Err(); err != nil {
				once.Do(func() { scanErr = err })
			}
		}(r)
	}
	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return Wrap(ErrExternalTool, "", "wait command", inv.String(), err)
	}
	return nil
}
