// Package runner executes a single subprocess with a fixed stdin payload and
// collects its outputs in memory.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

var ErrNoCommand = errors.New("no command")

// Command is a program with arguments. It is shared by all jobs of a run
// and must not be modified once the first job starts.
type Command struct {
	Path string
	Args []string
	Env  []string
	Dir  string
}

// CommandLine returns the program followed by its arguments.
func (c Command) CommandLine() []string {
	return append([]string{c.Path}, c.Args...)
}

func (c Command) String() string {
	return strings.Join(c.CommandLine(), " ")
}

type Result struct {
	Success bool
	Started time.Time
	Stopped time.Time
	State   *os.ProcessState
	Stdout  []byte
	Stderr  []byte
}

// Run starts the command, writes the input into its stdin, closes it and waits
// for the process to finish. A process exiting with non-zero code is not an
// error, it is reported by Result.Success. Errors are returned only if the
// process can't be started, fed or waited for.
func Run(ctx context.Context, proto Command, input []byte) (Result, error) {
	if proto.Path == "" {
		return Result{}, ErrNoCommand
	}

	cmd := exec.CommandContext(ctx, proto.Path, proto.Args...)
	if proto.Env != nil {
		cmd.Env = proto.Env
	}
	cmd.Dir = proto.Dir
	// exec copies the reader into a stdin pipe and closes it afterwards,
	// EPIPE from a process not reading its input is ignored.
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	var res Result
	res.Started = time.Now().UTC()
	if err := cmd.Start(); err != nil {
		return res, fmt.Errorf("starting %s: %w", proto.Path, err)
	}
	slog.DebugContext(ctx, "process started", "path", proto.Path, "pid", cmd.Process.Pid)

	err := cmd.Wait()
	res.Stopped = time.Now().UTC()
	res.State = cmd.ProcessState
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.Success = true
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		res.Success = false
	default:
		return res, fmt.Errorf("waiting for %s: %w", proto.Path, err)
	}

	slog.DebugContext(ctx, "process finished",
		"path", proto.Path,
		"exit", res.State.ExitCode(),
		"elapsed", res.Stopped.Sub(res.Started),
	)
	return res, nil
}
