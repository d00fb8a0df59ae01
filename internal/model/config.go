package model

import (
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/CZERTAINLY/pxargs/internal/runner"
	"github.com/spf13/viper"

	_ "embed"
)

const (
	LogFormatText = "text"
	LogFormatJSON = "json"

	EnvPrefix = "PXARGS"
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource, cue.Filename("config.cue"))
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
}

// Keys of configuration values, shared by config file, environment and flags.
const (
	KeyInputDelimiter  = "input_delimiter"
	KeyRegex           = "regex"
	KeyOutputDelimiter = "output_delimiter"
	KeySuppressFail    = "suppress_fail"
	KeyParallel        = "number_of_parallel"
	KeyCommandEnv      = "command.env"
	KeyCommandDir      = "command.dir"
	KeyLogVerbose      = "log.verbose"
	KeyLogFormat       = "log.format"
)

// Config is decoded by viper (mapstructure), validated by the CUE schema
// (json) and printed as yaml.
type Config struct {
	InputDelimiter  string  `mapstructure:"input_delimiter" json:"input_delimiter" yaml:"input_delimiter"`
	Regex           string  `mapstructure:"regex" json:"regex" yaml:"regex,omitempty"`
	OutputDelimiter string  `mapstructure:"output_delimiter" json:"output_delimiter" yaml:"output_delimiter"`
	SuppressFail    bool    `mapstructure:"suppress_fail" json:"suppress_fail" yaml:"suppress_fail"`
	Parallel        int     `mapstructure:"number_of_parallel" json:"number_of_parallel" yaml:"number_of_parallel"`
	Command         Command `mapstructure:"command" json:"command" yaml:"command"`
	Log             Log     `mapstructure:"log" json:"log" yaml:"log"`
}

// Command holds settings applied to every executed process.
type Command struct {
	// Env is added to the environment of pxargs, values starting with $ are expanded.
	Env map[string]string `mapstructure:"env" json:"env,omitempty" yaml:"env,omitempty"`
	Dir string            `mapstructure:"dir" json:"dir" yaml:"dir,omitempty"`
}

type Log struct {
	Verbose bool   `mapstructure:"verbose" json:"verbose" yaml:"verbose"`
	Format  string `mapstructure:"format" json:"format" yaml:"format"`
}

func DefaultConfig() Config {
	return Config{
		InputDelimiter:  " ",
		OutputDelimiter: " ",
		Parallel:        1,
		Log: Log{
			Format: LogFormatText,
		},
	}
}

// SetDefaults registers defaults and environment lookup in v. Environment
// variables are prefixed by PXARGS_, so PXARGS_LOG_FORMAT sets log.format.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault(KeyInputDelimiter, d.InputDelimiter)
	v.SetDefault(KeyRegex, d.Regex)
	v.SetDefault(KeyOutputDelimiter, d.OutputDelimiter)
	v.SetDefault(KeySuppressFail, d.SuppressFail)
	v.SetDefault(KeyParallel, d.Parallel)
	v.SetDefault(KeyCommandDir, d.Command.Dir)
	v.SetDefault(KeyLogVerbose, d.Log.Verbose)
	v.SetDefault(KeyLogFormat, d.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadConfig decodes the configuration held by v, validates it against the
// CUE schema and returns the unified result. Validation errors are returned as
// *ConfigError, use ConfigErrDetails to access them.
//
// Environment values are plain strings, so settings are decoded by viper
// first, which converts them to field types, and validated afterwards.
func LoadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	unified, err := cfg.unify()
	if err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return out, nil
}

// Validate checks c against the CUE schema. The regex must compile as well.
func (c Config) Validate() error {
	_, err := c.unify()
	return err
}

func (c Config) unify() (cue.Value, error) {
	unified := schema.Unify(cueCtx.Encode(c))
	cueErr := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	)

	details := humanize(cueErr, schema)
	if c.Regex != "" {
		if _, err := regexp.Compile(c.Regex); err != nil {
			details = append(details, ErrorDetail{
				Path:    KeyRegex,
				Code:    "invalid_regex",
				Message: "Field regex is not a valid regular expression",
				Raw:     err.Error(),
			})
		}
	}
	if len(details) == 0 {
		return unified, nil
	}
	return cue.Value{}, &ConfigError{Details: details, err: cueErr}
}

// Cmd returns the command to run for every input line.
func (c Config) Cmd(path string, args []string) runner.Command {
	cmd := runner.Command{
		Path: path,
		Args: args,
		Dir:  c.Command.Dir,
	}
	if len(c.Command.Env) == 0 {
		return cmd
	}
	env := os.Environ()
	for _, k := range slices.Sorted(maps.Keys(c.Command.Env)) {
		v := c.Command.Env[k]
		if strings.HasPrefix(v, "$") {
			v = os.ExpandEnv(v)
		}
		env = append(env, strings.ToUpper(k)+"="+v)
	}
	cmd.Env = env
	return cmd
}
