package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/wordsync/internal/practice"
	"github.com/example/wordsync/internal/scheduler"
	"github.com/example/wordsync/internal/ui"
)

// printReminder prints due-review reminders to the terminal
type printReminder struct {
	a *app
}

func (r printReminder) RemindDue(count int) error {
	r.a.printf("%s %d words are due for review\n", ui.RenderWarn("⏰"), count)
	return nil
}

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		GroupID: "sync",
		Short:   "Keep a session open: pull on start, then sync periodically",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orch, store, closeFn, err := a.orchestrator()
			if err != nil {
				return err
			}
			defer closeFn()

			if res, _ := orch.OnLogin(ctx); res.Err != nil {
				a.printf("%s login sync failed: %v\n", ui.RenderWarn("⚠"), res.Err)
			}

			svc := practice.NewService(store, orch, a.log)
			cfg := scheduler.DefaultConfig()
			cfg.SyncInterval = a.cfg.Sync.Interval

			sched := scheduler.New(cfg, orch, a.log).WithReminder(printReminder{a: a}, func(ctx context.Context) (int, error) {
				due, err := svc.Due(ctx, 0)
				return len(due), err
			})
			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()

			if err := sched.RunManualCheck(ctx); err != nil {
				a.log.Warn("due check failed", zap.Error(err))
			}

			a.printf("%s Watching, press Ctrl+C to stop\n", ui.RenderAccent("●"))
			<-ctx.Done()

			// last chance for writes made during the session
			orch.FlushUploads()
			orch.OnLogout()
			a.printf("%s\n", ui.RenderStatus(orch.Status()))
			return nil
		},
	}
}
