// Package execution runs generated code through an external interpreter.
package execution

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrUnavailable marks failures of the execution environment rather than of the code.
	ErrUnavailable = errors.New("interpreter unavailable")
	// ErrNoInterpreter means no interpreter command was configured. It matches ErrUnavailable.
	ErrNoInterpreter = fmt.Errorf("%w: no interpreter configured", ErrUnavailable)
	// DefaultInterpreter reads a Python program from stdin.
	DefaultInterpreter = []string{"python3", "-"}
)

// CommandRunner runs a command with stdin and returns stdout and stderr.
type CommandRunner interface {
	Run(ctx context.Context, dir string, stdin string, name string, args ...string) (string, string, error)
}

type processRunner struct{}

func (processRunner) Run(ctx context.Context, dir string, stdin string, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(stdin)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// CommandExecutor feeds code to Interpreter on stdin.
type CommandExecutor struct {
	Interpreter []string
	WorkingDir  string
	Timeout     time.Duration
	runner      CommandRunner
}

// NewCommandExecutor uses DefaultInterpreter when interpreter is empty.
func NewCommandExecutor(interpreter []string, workingDir string, timeout time.Duration) CommandExecutor {
	if len(interpreter) == 0 {
		interpreter = DefaultInterpreter
	}
	return CommandExecutor{Interpreter: interpreter, WorkingDir: workingDir, Timeout: timeout, runner: processRunner{}}
}

// NewCommandExecutorWithRunner injects a runner, used mainly for tests.
func NewCommandExecutorWithRunner(interpreter []string, runner CommandRunner) CommandExecutor {
	return CommandExecutor{Interpreter: interpreter, runner: runner}
}

// Execute returns the trimmed stdout. On failure the error carries stderr, which is what a
// correction prompt needs to see. An interpreter that cannot be started yields ErrUnavailable.
func (e CommandExecutor) Execute(ctx context.Context, code string) (string, error) {
	if len(e.Interpreter) == 0 {
		return "", ErrNoInterpreter
	}
	runner := e.runner
	if runner == nil {
		runner = processRunner{}
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	stdout, stderr, err := runner.Run(ctx, e.WorkingDir, code, e.Interpreter[0], e.Interpreter[1:]...)
	if err != nil {
		if interpreterUnavailable(err) {
			return "", fmt.Errorf("%w: %s: %w", ErrUnavailable, e.Interpreter[0], err)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("execution timed out after %s", e.Timeout)
		}
		details := strings.TrimSpace(stderr)
		if details == "" {
			details = err.Error()
		}
		return "", errors.New(details)
	}
	return strings.TrimSpace(stdout), nil
}

// interpreterUnavailable reports start failures: a missing binary, a missing working
// directory or a permission problem. A non-zero exit is never one of them.
func interpreterUnavailable(err error) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false
	}
	var lookupErr *exec.Error
	if errors.As(err, &lookupErr) {
		return true
	}
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission)
}
