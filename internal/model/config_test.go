package model_test

import (
	"strings"
	"testing"

	"github.com/CZERTAINLY/pxargs/internal/model"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const fullConfig = `
input_delimiter: ","
output_delimiter: "|"
suppress_fail: true
number_of_parallel: 4
command:
  dir: /tmp
  env:
    LC_ALL: C
    PXARGS_HOME: $HOME
log:
  verbose: true
  format: json
`

func load(t *testing.T, yml string) (model.Config, error) {
	t.Helper()
	v := viper.New()
	model.SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(yml)))
	return model.LoadConfig(v)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := load(t, fullConfig)
	require.NoError(t, err)
	t.Logf("got: %+v", cfg)

	require.Equal(t, ",", cfg.InputDelimiter)
	require.Equal(t, "|", cfg.OutputDelimiter)
	require.True(t, cfg.SuppressFail)
	require.Equal(t, 4, cfg.Parallel)
	require.Equal(t, "/tmp", cfg.Command.Dir)
	require.Equal(t, "C", cfg.Command.Env["lc_all"])
	require.True(t, cfg.Log.Verbose)
	require.Equal(t, model.LogFormatJSON, cfg.Log.Format)

	t.Run("cmd", func(t *testing.T) {
		t.Setenv("HOME", "/home/gopher")
		cmd := cfg.Cmd("tr", []string{"a-z", "A-Z"})
		require.Equal(t, "tr", cmd.Path)
		require.Equal(t, []string{"a-z", "A-Z"}, cmd.Args)
		require.Equal(t, "/tmp", cmd.Dir)
		require.Contains(t, cmd.Env, "LC_ALL=C")
		require.Contains(t, cmd.Env, "PXARGS_HOME=/home/gopher")
	})
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := load(t, "")
	require.NoError(t, err)
	require.Equal(t, model.DefaultConfig(), cfg)

	cmd := cfg.Cmd("cat", nil)
	require.Nil(t, cmd.Env, "environment is inherited")
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("PXARGS_NUMBER_OF_PARALLEL", "8")
	t.Setenv("PXARGS_LOG_FORMAT", "json")
	cfg, err := load(t, "number_of_parallel: 2\n")
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Parallel)
	require.Equal(t, model.LogFormatJSON, cfg.Log.Format)
}

func TestLoadConfig_Fail(t *testing.T) {
	var testCases = []struct {
		scenario string
		yml      string
		path     string
		codes    []string
	}{
		{"parallel out of bound", "number_of_parallel: 0\n", model.KeyParallel, []string{"out_of_bound"}},
		{"log format", "log:\n  format: xml\n", model.KeyLogFormat, []string{"invalid_enum", "conflicting_values"}},
		{"env name", "command:\n  env:\n    bad-name: x\n", "command.env.", []string{"unknown_field"}},
		{"regex with delimiter", "regex: \"[0-9]\"\ninput_delimiter: \",\"\n", model.KeyInputDelimiter, []string{"mutually_exclusive"}},
		{"regex does not compile", "regex: \"(\"\n", model.KeyRegex, []string{"invalid_regex"}},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			_, err := load(t, tt.yml)
			require.Error(t, err)
			t.Logf("err: %v", err)

			var cfgErr *model.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			require.ErrorContains(t, err, "invalid config: "+tt.path)

			details := model.ConfigErrDetails(err)
			require.Len(t, details, 1)
			require.True(t, strings.HasPrefix(details[0].Path, tt.path), "path %q", details[0].Path)
			require.Contains(t, tt.codes, details[0].Code)
			require.NotEmpty(t, details[0].Raw)
		})
	}
}

func TestLoadConfig_FailMany(t *testing.T) {
	_, err := load(t, "number_of_parallel: 0\nregex: \"(\"\n")
	require.Error(t, err)
	paths := make([]string, 0, 2)
	for _, d := range model.ConfigErrDetails(err) {
		paths = append(paths, d.Path)
	}
	require.ElementsMatch(t, []string{model.KeyParallel, model.KeyRegex}, paths)
}

func TestValidate(t *testing.T) {
	require.NoError(t, model.DefaultConfig().Validate())

	cfg := model.DefaultConfig()
	cfg.Regex = `\s+`
	require.NoError(t, cfg.Validate(), "regex with default input delimiter")

	cfg.InputDelimiter = ";"
	require.Error(t, cfg.Validate())

	require.Nil(t, model.ConfigErrDetails(nil))
}
