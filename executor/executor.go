// Package executor runs external commands with captured output, a bounded
// wall-clock timeout, environment management and context cancellation.
// It is the only place in reposync that touches os/exec.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Result holds the captured output of a command execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs a program with arguments.
type Executor interface {
	// Execute runs args against the wrapped program.
	Execute(ctx context.Context, args []string, opts ...Option) (*Result, error)
}

// ExitError is returned when a command ran but exited non-zero.
// Stderr is carried unmodified so callers can surface the tool's diagnostic.
type ExitError struct {
	Program  string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s %s: exit status %d", e.Program, strings.Join(e.Args, " "), e.ExitCode)
	}
	return fmt.Sprintf("%s %s: exit status %d: %s", e.Program, strings.Join(e.Args, " "), e.ExitCode, msg)
}

// Options configures command execution behavior.
type Options struct {
	// WorkingDir is the directory the command runs in.
	WorkingDir string

	// Env holds variables appended to the current environment.
	Env map[string]string

	// Timeout bounds the wall-clock time of one execution. Zero means the
	// context deadline alone applies.
	Timeout time.Duration

	// Input is written to the command's stdin when non-empty.
	Input string
}

// Option is a function that modifies Options.
type Option func(*Options)

// DefaultOptions returns default execution options.
func DefaultOptions() *Options {
	return &Options{
		Env: make(map[string]string),
	}
}

// WrappedExecutor executes a specific program.
type WrappedExecutor struct {
	program string
	options *Options
}

// NewWrappedExecutor creates an executor for program. Base options apply to
// every execution and can be overridden per call.
func NewWrappedExecutor(program string, opts ...Option) *WrappedExecutor {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &WrappedExecutor{
		program: program,
		options: options,
	}
}

// Program returns the name or path of the wrapped program.
func (w *WrappedExecutor) Program() string {
	return w.program
}

// Available reports whether the wrapped program can be found on PATH.
func (w *WrappedExecutor) Available() bool {
	_, err := exec.LookPath(w.program)
	return err == nil
}

// Execute runs the wrapped program with args. A non-zero exit yields an
// *ExitError; a timeout yields an error wrapping context.DeadlineExceeded.
func (w *WrappedExecutor) Execute(ctx context.Context, args []string, opts ...Option) (*Result, error) {
	options := w.mergeOptions(opts...)

	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, w.program, args...)
	setupCommand(cmd, options)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		return result, fmt.Errorf("%s %s: %w", w.program, strings.Join(args, " "), ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, &ExitError{
			Program:  w.program,
			Args:     args,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
		}
	}

	result.ExitCode = -1
	return result, fmt.Errorf("command execution failed: %w", err)
}

// setupCommand configures the exec.Cmd with working directory, environment, and input.
func setupCommand(cmd *exec.Cmd, options *Options) {
	if options.WorkingDir != "" {
		cmd.Dir = options.WorkingDir
	}

	if len(options.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range options.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	if options.Input != "" {
		cmd.Stdin = strings.NewReader(options.Input)
	}
}

func (w *WrappedExecutor) mergeOptions(opts ...Option) *Options {
	merged := *w.options
	merged.Env = make(map[string]string, len(w.options.Env))
	for k, v := range w.options.Env {
		merged.Env[k] = v
	}

	for _, opt := range opts {
		opt(&merged)
	}

	return &merged
}

// WithWorkingDir sets the working directory.
func WithWorkingDir(dir string) Option {
	return func(o *Options) {
		o.WorkingDir = dir
	}
}

// WithEnv adds environment variables.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		for k, v := range env {
			o.Env[k] = v
		}
	}
}

// WithEnvVar adds a single environment variable.
func WithEnvVar(key, value string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		o.Env[key] = value
	}
}

// WithTimeout bounds a single execution.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithInput sets the data written to stdin.
func WithInput(input string) Option {
	return func(o *Options) {
		o.Input = input
	}
}
