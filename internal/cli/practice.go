package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/example/wordsync/internal/practice"
	"github.com/example/wordsync/internal/ui"
	"github.com/example/wordsync/pkg/models"
)

func newReviewCommand(a *app) *cobra.Command {
	review := &cobra.Command{
		Use:     "review",
		GroupID: "practice",
		Short:   "Spaced repetition queue",
	}

	var limit int
	due := &cobra.Command{
		Use:   "due",
		Short: "List words due for review today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := practice.NewService(store, nil, a.log).Due(cmd.Context(), limit)
			if err != nil {
				return err
			}
			a.printf("%s\n", ui.RenderDue(records))
			return nil
		},
	}
	due.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of words, 0 for all")
	review.AddCommand(due)
	return review
}

func newPracticeCommand(a *app) *cobra.Command {
	var (
		wrong int
		mode  string
	)
	cmd := &cobra.Command{
		Use:     "practice <word> <dict>",
		GroupID: "practice",
		Short:   "Record one practiced word",
		Long: `Record a word typed to the end after --wrong failed tries. Updates the
word's progress and review schedule, credits points and, when a remote is
configured, uploads the change.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			attempt := practice.Attempt{
				Word:          args[0],
				Dict:          args[1],
				Mode:          models.PracticeMode(mode),
				WrongAttempts: wrong,
			}

			// offline use is fine: without a remote the write just stays local
			orch, store, closeFn, err := a.orchestrator()
			switch {
			case errors.Is(err, errNoRemote):
				if store, err = a.openStore(); err != nil {
					return err
				}
				defer store.Close()
				out, err := practice.NewService(store, nil, a.log).RecordAttempt(ctx, attempt)
				if err != nil {
					return err
				}
				a.printOutcome(attempt, out)
				return nil
			case err != nil:
				return err
			}
			defer closeFn()

			out, err := practice.NewService(store, orch, a.log).RecordAttempt(ctx, attempt)
			if err != nil {
				return err
			}
			a.printOutcome(attempt, out)

			orch.FlushUploads()
			if st := orch.Status(); st.LastError != "" {
				a.printf("%s upload failed, will retry on next sync: %s\n", ui.RenderWarn("⚠"), st.LastError)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&wrong, "wrong", "w", 0, "failed tries before the word was typed right")
	cmd.Flags().StringVar(&mode, "mode", string(models.ModeTyping), "practice mode")
	return cmd
}

func (a *app) printOutcome(attempt practice.Attempt, out practice.Outcome) {
	if out.Completed() {
		a.printf("%s %s completed\n", ui.RenderPass("★"), attempt.Word)
	} else {
		a.printf("%s %s: %d correct, %d wrong\n", ui.RenderPass("✓"), attempt.Word,
			out.Progress.CorrectCount, out.Progress.WrongCount)
	}
	a.printf("next review %s (quality %d), +%d points\n",
		out.Schedule.NextReviewAt, out.Quality, out.Points)
}
