package model

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	cue "cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
)

// ConfigError reports configuration not matching the schema.
type ConfigError struct {
	Details []ErrorDetail
	err     error // original CUE error, nil if only the regex is invalid
}

func (e *ConfigError) Error() string {
	msgs := make([]string, len(e.Details))
	for i, d := range e.Details {
		msgs[i] = d.Path + ": " + d.Message
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

func (e *ConfigError) Unwrap() error {
	return e.err
}

// ConfigErrDetails returns the invalid fields of a configuration, or nil
// if err is not a *ConfigError.
func ConfigErrDetails(err error) []ErrorDetail {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Details
	}
	return nil
}

type ErrorDetail struct {
	Path    string // command.env.lc_all
	Code    string // unknown_field | out_of_bound | invalid_enum | conflicting_values | type_mismatch | invalid_regex ...
	Message string // Human text
	Pos     ErrorPosition
	Raw     string // original message
}

func (d ErrorDetail) Attr(name string) slog.Attr {
	return slog.GroupAttrs(
		name,
		slog.String("code", d.Code),
		slog.String("path", d.Path),
		slog.String("message", d.Message),
		slog.String("raw", d.Raw),
	)
}

// ErrorPosition is empty for values coming from viper, only the schema
// itself carries file positions.
type ErrorPosition struct {
	Filename string
	Line     int
	Column   int
}

var (
	reNotAllowed  = regexp.MustCompile(`(?i)not allowed|unknown field`)
	reBound       = regexp.MustCompile(`(?i)out of bound`)
	reEnum        = regexp.MustCompile(`(?i)empty disjunction|must be one of|expected one of`)
	reConflict    = regexp.MustCompile(`(?i)conflicting values|cannot unify|incompatible`)
	reExpectedGot = regexp.MustCompile(`(?i)expected .* got .*`)
	reIncomplete  = regexp.MustCompile(`(?i)incomplete value`)
)

func humanize(err error, root cue.Value) []ErrorDetail {
	if err == nil {
		return nil
	}

	// disjunctions report one error per alternative
	seen := make(map[string]struct{})

	var out []ErrorDetail
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		raw := fmt.Sprintf(format, args...)
		path := normalizePath(e.Path())
		if _, ok := seen[path]; ok {
			continue
		}
		code, msg := classify(raw, path)

		switch {
		case path == KeyInputDelimiter && (code == "conflicting_values" || code == "invalid_enum"):
			code = "mutually_exclusive"
			msg = "Fields input_delimiter and regex can't be used together"
		case code == "invalid_enum":
			values, dflt := enumStrings(lookup(root, path))
			if len(values) > 0 {
				msg += fmt.Sprintf(": possible values (%s)", strings.Join(values, ","))
			}
			if dflt != nil {
				msg += fmt.Sprintf(" (default %s)", *dflt)
			}
		}

		out = append(out, ErrorDetail{
			Path:    path,
			Code:    code,
			Message: msg,
			Pos:     position(e),
			Raw:     raw,
		})
		seen[path] = struct{}{}
	}

	if len(out) == 0 {
		out = append(out, ErrorDetail{
			Code:    "validation_error",
			Message: err.Error(),
			Raw:     err.Error(),
		})
	}
	return out
}

func enumStrings(v cue.Value) (values []string, def *string) {
	if !v.Exists() {
		return
	}
	if d, ok := v.Default(); ok {
		if s, err := d.String(); err == nil {
			def = &s
		}
	}
	if op, args := v.Expr(); op == cue.OrOp {
		seen := map[string]struct{}{}
		for _, a := range args {
			if a.Kind() != cue.StringKind {
				continue
			}
			if s, err := a.String(); err == nil {
				if _, ok := seen[s]; !ok {
					seen[s] = struct{}{}
					values = append(values, s)
				}
			}
		}
	}
	return
}

func position(err cueerrors.Error) ErrorPosition {
	for _, r := range cueerrors.Positions(err) {
		if r.Filename() == "" {
			continue
		}
		return ErrorPosition{
			Filename: r.Filename(),
			Line:     r.Line(),
			Column:   r.Column(),
		}
	}
	return ErrorPosition{}
}

func normalizePath(p []string) string {
	if len(p) == 0 {
		return ""
	}
	// Remove leading definition (#Config)
	if strings.HasPrefix(p[0], "#") {
		p = p[1:]
	}
	return strings.Join(p, ".")
}

func classify(raw, path string) (code, msg string) {
	switch {
	case reNotAllowed.MatchString(raw):
		return "unknown_field", fmt.Sprintf("Field %s is not allowed", last(path))
	case reBound.MatchString(raw):
		return "out_of_bound", fmt.Sprintf("Field %s is out of bound", last(path))
	case reEnum.MatchString(raw):
		return "invalid_enum", fmt.Sprintf("Field %s has invalid value", last(path))
	case reConflict.MatchString(raw):
		return "conflicting_values", fmt.Sprintf("Conflicting values for %s", last(path))
	case reExpectedGot.MatchString(raw):
		return "type_mismatch", fmt.Sprintf("Field %s has wrong type/value", last(path))
	case reIncomplete.MatchString(raw):
		return "missing_required", fmt.Sprintf("Field %s is required", last(path))
	default:
		return "validation_error", raw
	}
}

func lookup(root cue.Value, path string) cue.Value {
	if path == "" {
		return root
	}
	return root.LookupPath(cue.ParsePath(path))
}

func last(p string) string {
	if i := strings.LastIndexByte(p, '.'); i >= 0 {
		return p[i+1:]
	}
	return p
}
