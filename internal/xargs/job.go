package xargs

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/CZERTAINLY/pxargs/internal/runner"
)

// Job is a single input line together with the payload for the process stdin.
type Job struct {
	Line    int
	Input   []byte
	Payload []byte
}

// Result is the outcome of a Job. Output holds stdout of a successful
// process and stderr otherwise. Command is shared by all Results of a run.
type Result struct {
	Line    int
	Success bool
	Input   []byte
	Output  []byte
	Command *runner.Command
}

// FailureError reports a process which exited with non-zero code.
type FailureError struct {
	Result Result
}

func (e *FailureError) Error() string {
	return strings.Join([]string{
		"sub process exit code is not 0",
		"input:",
		string(bytes.TrimSuffix(e.Result.Input, newline)),
		"",
		"command:",
		"\t" + e.Result.Command.String(),
		"",
		"output:",
		"\t" + string(e.Result.Output),
	}, "\n")
}

// JobError wraps an error which prevented a Job from running to completion.
type JobError struct {
	Line int
	Err  error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}
