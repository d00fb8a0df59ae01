package xargs_test

import (
	"testing"

	"github.com/CZERTAINLY/pxargs/internal/runner"
	"github.com/CZERTAINLY/pxargs/internal/xargs"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		output   string
		delim    string
		then     string
	}{
		{"multi line", "a\nb\nc\n", " ", "a b c\n"},
		{"custom delimiter", "a\nb\n", ", ", "a, b\n"},
		{"no trailing newline", "a\nb", " ", "a b\n"},
		{"only one trailing newline removed", "a\n\n", " ", "a \n"},
		{"crlf", "a\r\nb\r\n", " ", "a b\n"},
		{"empty", "", " ", "\n"},
		{"single newline", "\n", " ", "\n"},
		{"newline delimiter", "a\nb\n", "\n", "a\nb\n"},
		{"empty delimiter", "a\nb\n", "", "ab\n"},
		{"trailing spaces kept", "a \n", "|", "a \n"},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			got := xargs.Format([]byte(tt.output), tt.delim)
			require.Equal(t, tt.then, string(got))
		})
	}
}

func TestFailureError(t *testing.T) {
	t.Parallel()
	cmd := &runner.Command{Path: "sh", Args: []string{"-c", "exit 1"}}
	err := &xargs.FailureError{Result: xargs.Result{
		Line:    3,
		Success: false,
		Input:   []byte("a b\n"),
		Output:  []byte("boom"),
		Command: cmd,
	}}
	const expected = "sub process exit code is not 0\n" +
		"input:\n" +
		"a b\n" +
		"\n" +
		"command:\n" +
		"\tsh -c exit 1\n" +
		"\n" +
		"output:\n" +
		"\tboom"
	require.Equal(t, expected, err.Error())
}
