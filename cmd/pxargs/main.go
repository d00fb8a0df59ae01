package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/CZERTAINLY/pxargs/internal/log"
	"github.com/CZERTAINLY/pxargs/internal/model"
	"github.com/CZERTAINLY/pxargs/internal/xargs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const appName = "pxargs"

var userConfigPath string // /default/config/path/pxargs on given OS

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		return
	}
	userConfigPath = filepath.Join(d, appName)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var failure *xargs.FailureError
		if errors.As(err, &failure) {
			res := failure.Result
			slog.Error("sub process exit code is not 0",
				"line", res.Line,
				"input", string(res.Input),
				"command", res.Command.String(),
				"output", string(res.Output),
			)
		} else {
			slog.Error(appName+" failed", "err", err)
		}
		os.Exit(1)
	}
}

// cli holds the state of a single command line invocation
type cli struct {
	v          *viper.Viper
	configPath string // actual config file used (if loaded)
	config     model.Config

	flagConfigFilePath string // value of --config flag
	flagCompletion     string // value of --completion flag
	flagPrintConfig    bool   // value of --print-config flag
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   appName + " [flags] command [arguments...]",
		Short: "Run a command for each input line in parallel, keeping the output order",
		Long: `pxargs reads lines from stdin, splits each one by a delimiter into
multiple lines and passes them as stdin to a new instance of command.
Outputs of commands are joined by the output delimiter and printed in
the order of the input lines.`,
		Version:           version(),
		Args:              c.args,
		PersistentPreRunE: c.init,
		RunE:              c.run,
		SilenceUsage:      true,
		// never print messages
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.Flags()
	// everything after the command belongs to it
	flags.SetInterspersed(false)

	flags.StringVar(&c.flagConfigFilePath, "config", "", "Config file to load - default is pxargs.yaml in current directory or in "+userConfigPath)
	flags.StringP("input-delimiter", "d", " ", "delimiter for input")
	flags.StringP("regex", "g", "", "split input by regex")
	flags.StringP("output-delimiter", "D", " ", "delimiter for output")
	flags.Bool("suppress-fail", false, "continue other processes even if one of the sub processes fails")
	flags.IntP("number-of-parallel", "P", 1, "maximum number of parallel processes")
	flags.Bool("verbose", false, "verbose logging")
	flags.String("log-format", model.LogFormatText, "log format (text, json)")
	flags.StringVar(&c.flagCompletion, "completion", "", "generate completion script (bash,zsh,fish,powershell)")
	flags.BoolVar(&c.flagPrintConfig, "print-config", false, "print the effective configuration and exit")
	rootCmd.MarkFlagsMutuallyExclusive("input-delimiter", "regex")

	for key, name := range map[string]string{
		model.KeyInputDelimiter:  "input-delimiter",
		model.KeyRegex:           "regex",
		model.KeyOutputDelimiter: "output-delimiter",
		model.KeySuppressFail:    "suppress-fail",
		model.KeyParallel:        "number-of-parallel",
		model.KeyLogVerbose:      "verbose",
		model.KeyLogFormat:       "log-format",
	} {
		if err := c.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	return rootCmd
}

func (c *cli) args(cmd *cobra.Command, args []string) error {
	if c.flagCompletion != "" || c.flagPrintConfig {
		return nil
	}
	return cobra.MinimumNArgs(1)(cmd, args)
}

func (c *cli) init(cmd *cobra.Command, _ []string) error {
	// completion does not depend on the configuration
	if c.flagCompletion != "" {
		return nil
	}
	model.SetDefaults(c.v)

	if c.flagConfigFilePath != "" {
		c.configPath = c.flagConfigFilePath
	} else if envConfig, ok := os.LookupEnv("PXARGSCONFIG"); ok {
		c.configPath = envConfig
	} else {
		for _, d := range []string{".", userConfigPath} {
			if d == "" {
				continue
			}
			path := filepath.Join(d, appName+".yaml")
			if exists(path) {
				c.configPath = path
				break
			}
		}
	}

	if c.configPath != "" {
		c.v.SetConfigFile(c.configPath)
		c.v.SetConfigType("yaml")
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", c.configPath, err)
		}
	}

	var err error
	c.config, err = model.LoadConfig(c.v)
	if err != nil {
		for _, d := range model.ConfigErrDetails(err) {
			slog.Error("invalid config", d.Attr("field"))
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	logger, err := log.New(cmd.ErrOrStderr(), c.config.Log.Verbose, c.config.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	slog.Debug(appName+" run", "configPath", c.configPath)
	slog.Debug(appName+" run", "config", c.config)
	return nil
}

func version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "(devel)"
	}
	ret := info.Main.Version
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			ret += " commit " + s.Value
		case "vcs.modified":
			if s.Value == "true" {
				ret += " dirty"
			}
		}
	}
	return ret + " " + info.GoVersion
}

func completion(cmd *cobra.Command, shell string, w io.Writer) error {
	root := cmd.Root()
	switch shell {
	case "bash":
		return root.GenBashCompletionV2(w, true)
	case "zsh":
		return root.GenZshCompletion(w)
	case "fish":
		return root.GenFishCompletion(w, true)
	case "powershell":
		return root.GenPowerShellCompletionWithDesc(w)
	default:
		return fmt.Errorf("unsupported shell %q, use one of bash, zsh, fish, powershell", shell)
	}
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
