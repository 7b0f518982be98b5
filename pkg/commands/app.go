package commands

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"tableflip.dev/wordsmith/pkg/app"
	"tableflip.dev/wordsmith/pkg/logging"
)

const logFileName = "wordsmith.log"

// openApp loads configuration and builds the application. Logs go to a file
// under the data directory unless --verbose sends them to stderr.
func openApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := co.Load()
	if err != nil {
		return nil, nil, err
	}
	lc := logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	}
	if !co.Verbose && lc.File == "" {
		lc.File = filepath.Join(cfg.Path, logFileName)
	}
	log, closeLog, err := logging.New(lc)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		_ = closeLog()
		return nil, nil, err
	}
	return a, func() { _ = closeLog() }, nil
}

// withApp starts the application around fn and stops it afterwards, which
// flushes the persisted screen.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, done, err := openApp(ctx)
	if err != nil {
		return output.HandleError(err)
	}
	defer done()
	if err := a.Start(ctx); err != nil {
		return output.HandleError(err)
	}
	defer a.Stop()
	return output.HandleError(fn(ctx, a))
}
