package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/wordsync/internal/syncerr"
	wsync "github.com/example/wordsync/internal/sync"
	"github.com/example/wordsync/internal/ui"
)

func newSyncCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "sync [full|upload|download]",
		GroupID:   "sync",
		Short:     "Run one sync session",
		Long:      `Upload local state, download and merge remote state, or both at once (default).`,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"full", "upload", "download"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := "full"
			if len(args) == 1 {
				mode = args[0]
			}

			orch, _, closeFn, err := a.orchestrator()
			if err != nil {
				return err
			}
			defer closeFn()

			var run func(context.Context, wsync.Trigger) (wsync.Result, error)
			switch mode {
			case "upload":
				run = orch.UploadOnly
			case "download":
				run = orch.DownloadOnly
			default:
				run = orch.FullSync
			}

			a.printf("%s Syncing (%s)...\n", ui.RenderAccent("⟳"), mode)
			res, err := run(cmd.Context(), wsync.TriggerUser)
			if err != nil {
				if syncerr.Kind(err) == syncerr.KindAuth {
					return fmt.Errorf("%w, check remote.token", err)
				}
				return err
			}

			if res.Ack.Success {
				a.printf("%s Uploaded\n", ui.RenderPass("✓"))
			}
			if mode != "upload" {
				a.printf("%s\n", ui.RenderReport(res.Report))
			}
			return nil
		},
	}
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: "sync",
		Short:   "Show the outcome of the last sync sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := wsync.LoadStatus(cmd.Context(), store)
			if err != nil {
				return err
			}
			a.printf("%s\n", ui.RenderStatus(st))
			return nil
		},
	}
}
