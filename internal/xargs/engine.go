package xargs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync/atomic"

	"github.com/CZERTAINLY/pxargs/internal/log"
	"github.com/CZERTAINLY/pxargs/internal/parallel"
	"github.com/CZERTAINLY/pxargs/internal/runner"
	"github.com/CZERTAINLY/pxargs/internal/split"
)

const bufSize = 1024

type Config struct {
	Command         runner.Command
	Splitter        split.Splitter
	OutputDelimiter string
	SuppressFail    bool
	// Parallel is the maximum number of processes running at once.
	Parallel int
}

// Stats counts jobs of a run. Completed includes processes which exited
// with non-zero code, those are counted by Failed as well.
type Stats struct {
	Submitted uint64
	Completed uint64
	Failed    uint64
}

type Engine struct {
	cfg Config
	cmd *runner.Command

	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
}

func New(cfg Config) *Engine {
	if cfg.Splitter == nil {
		cfg.Splitter = split.Literal(" ")
	}
	cfg.Parallel = max(cfg.Parallel, 1)
	cmd := cfg.Command
	cmd.Args = append([]string(nil), cfg.Command.Args...)
	return &Engine{
		cfg: cfg,
		cmd: &cmd,
	}
}

// Run executes the command for each line read from in and writes a record
// per line into out. It returns on the first fatal error without waiting for
// processes still in flight, those are killed via context cancellation.
func (e *Engine) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	results := parallel.NewOrdered(ctx, e.cfg.Parallel, e.execute).Iter(e.jobs(in))
	for res, err := range results {
		if err != nil {
			return err
		}

		record := newline
		if res.Success {
			record = Format(res.Output, e.cfg.OutputDelimiter)
		} else {
			e.failed.Add(1)
			if !e.cfg.SuppressFail {
				return &FailureError{Result: res}
			}
			slog.WarnContext(ctx, "sub process failed, skipping",
				"line", res.Line,
				"command", res.Command.String(),
				"stderr", string(res.Output),
			)
		}

		if _, err := out.Write(record); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	return nil
}

// Stats returns the number of started, finished and failed jobs.
func (e *Engine) Stats() Stats {
	return Stats{
		Submitted: e.submitted.Load(),
		Completed: e.completed.Load(),
		Failed:    e.failed.Load(),
	}
}

func (e *Engine) jobs(in io.Reader) iter.Seq2[Job, error] {
	return func(yield func(Job, error) bool) {
		n := 0
		for line, err := range Lines(in) {
			n++
			if err != nil {
				yield(Job{}, &JobError{Line: n, Err: err})
				return
			}
			job := Job{
				Line:    n,
				Input:   line,
				Payload: e.cfg.Splitter.Split(line),
			}
			if !yield(job, nil) {
				return
			}
		}
	}
}

func (e *Engine) execute(ctx context.Context, job Job) (Result, error) {
	e.submitted.Add(1)
	ctx = log.ContextAttrs(ctx, slog.Int("line", job.Line))
	slog.DebugContext(ctx, "job started", "payload", len(job.Payload))

	res, err := runner.Run(ctx, *e.cmd, job.Payload)
	if err != nil {
		return Result{}, &JobError{Line: job.Line, Err: err}
	}
	e.completed.Add(1)

	ret := Result{
		Line:    job.Line,
		Success: res.Success,
		Input:   job.Input,
		Command: e.cmd,
		Output:  res.Stdout,
	}
	if !res.Success {
		ret.Output = res.Stderr
	}
	slog.DebugContext(ctx, "job finished", "success", ret.Success)
	return ret, nil
}

// Lines returns the lines of r including their trailing newline. The last
// line is returned even when not terminated. An empty line is a line too.
func Lines(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		br := bufio.NewReaderSize(r, bufSize)
		for {
			line, err := br.ReadBytes('\n')
			if len(line) > 0 {
				if !yield(line, nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("reading input: %w", err))
				return
			}
		}
	}
}
