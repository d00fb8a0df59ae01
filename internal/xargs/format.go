package xargs

import (
	"bytes"
)

var (
	newline = []byte("\n")
	crlf    = []byte("\r\n")
)

// Format collapses process output into one record. Exactly one trailing line
// terminator is removed. The remaining terminators, either \n or \r\n, are
// replaced by delim and a single \n is appended.
func Format(output []byte, delim string) []byte {
	switch {
	case bytes.HasSuffix(output, crlf):
		output = output[:len(output)-len(crlf)]
	case bytes.HasSuffix(output, newline):
		output = output[:len(output)-len(newline)]
	}

	var buf bytes.Buffer
	buf.Grow(len(output) + 1)
	for len(output) > 0 {
		i := bytes.IndexByte(output, '\n')
		if i < 0 {
			buf.Write(output)
			break
		}
		buf.Write(bytes.TrimSuffix(output[:i], []byte("\r")))
		buf.WriteString(delim)
		output = output[i+1:]
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}
