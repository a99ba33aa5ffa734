// Package cli wires the wordsync commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/wordsync/internal/config"
	"github.com/example/wordsync/internal/database"
	"github.com/example/wordsync/internal/logger"
	"github.com/example/wordsync/internal/remote"
	wsync "github.com/example/wordsync/internal/sync"
)

var errNoRemote = errors.New("remote.base_url is not configured")

// app carries what every command needs once config is loaded
type app struct {
	configPath string
	cfg        *config.Config
	log        *zap.Logger
	out        io.Writer
}

// NewRootCommand builds the wordsync command tree
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "wordsync",
		Short:         "Offline-first vocabulary practice with background sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default configs/default.yaml)")

	root.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync:"},
		&cobra.Group{ID: "practice", Title: "Practice:"},
		&cobra.Group{ID: "server", Title: "Server:"},
	)
	root.AddCommand(
		newSyncCommand(a),
		newStatusCommand(a),
		newWatchCommand(a),
		newReviewCommand(a),
		newPracticeCommand(a),
		newExportCommand(a),
		newImportCommand(a),
		newServeCommand(a),
		newTokenCommand(a),
	)
	return root
}

// Execute runs the command tree until ctx is cancelled
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Config{Env: cfg.Env, Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	a.out = cmd.OutOrStdout()
	return nil
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) openStore() (*database.Store, error) {
	return database.Open(database.Config{
		Type: a.cfg.DB.Type,
		Path: a.cfg.DB.Path,
		DSN:  a.cfg.DB.DSN,
	}, a.log)
}

// orchestrator opens the store and builds a sync orchestrator around it.
// The returned close func stops the orchestrator before closing the store.
func (a *app) orchestrator() (*wsync.Orchestrator, *database.Store, func(), error) {
	if a.cfg.Remote.BaseURL == "" {
		return nil, nil, nil, errNoRemote
	}
	if a.cfg.UserID == "" {
		return nil, nil, nil, errors.New("user_id is not configured")
	}

	store, err := a.openStore()
	if err != nil {
		return nil, nil, nil, err
	}
	client := remote.NewClient(remote.Config{
		BaseURL: a.cfg.Remote.BaseURL,
		Token:   a.cfg.Remote.Token,
		Timeout: a.cfg.Remote.Timeout,
	}, a.log)

	orch := wsync.New(store, client, wsync.Options{
		UserID:   a.cfg.UserID,
		Debounce: a.cfg.Sync.Debounce,
	}, a.log)

	closeFn := func() {
		orch.Close()
		if err := store.Close(); err != nil {
			a.log.Warn("failed to close store", zap.Error(err))
		}
	}
	return orch, store, closeFn, nil
}
