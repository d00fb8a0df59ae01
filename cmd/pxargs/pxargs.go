package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/CZERTAINLY/pxargs/internal/log"
	"github.com/CZERTAINLY/pxargs/internal/split"
	"github.com/CZERTAINLY/pxargs/internal/xargs"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (c *cli) run(cmd *cobra.Command, args []string) error {
	if c.flagCompletion != "" {
		return completion(cmd, c.flagCompletion, cmd.OutOrStdout())
	}
	if c.flagPrintConfig {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer func() {
			_ = enc.Close()
		}()
		if err := enc.Encode(c.config); err != nil {
			return fmt.Errorf("printing configuration: %w", err)
		}
		return nil
	}

	ctx := cmd.Context()
	attrs := slog.Group(appName,
		slog.String("run", uuid.NewString()),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	splitter, err := split.New(c.config.InputDelimiter, c.config.Regex)
	if err != nil {
		return err
	}

	engine := xargs.New(xargs.Config{
		Command:         c.config.Cmd(args[0], args[1:]),
		Splitter:        splitter,
		OutputDelimiter: c.config.OutputDelimiter,
		SuppressFail:    c.config.SuppressFail,
		Parallel:        c.config.Parallel,
	})
	slog.DebugContext(ctx, "starting", "command", args, "parallel", c.config.Parallel)

	err = engine.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	stats := engine.Stats()
	slog.DebugContext(ctx, "finished",
		"submitted", stats.Submitted,
		"completed", stats.Completed,
		"failed", stats.Failed,
	)
	return err
}
