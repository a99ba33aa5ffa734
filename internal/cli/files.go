package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/example/wordsync/internal/excel"
	"github.com/example/wordsync/internal/ui"
)

func newExportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "export <file.xlsx>",
		GroupID: "practice",
		Short:   "Export the review schedule and word progress to a spreadsheet",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := excel.Export(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			a.printf("%s Exported %d scheduled and %d in-progress words to %s\n",
				ui.RenderPass("✓"), res.Schedule, res.Progress, args[0])
			return nil
		},
	}
}

func newImportCommand(a *app) *cobra.Command {
	cfg := excel.DefaultImportConfig()
	cmd := &cobra.Command{
		Use:     "import <file.xlsx|file.csv>",
		GroupID: "practice",
		Short:   "Schedule the words of a word list for review",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.FilePath = args[0]
			if cfg.Dict == "" && cfg.DictColumn == "" {
				return errors.New("either --dict or --dict-column is required")
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := excel.ImportWords(cmd.Context(), store, cfg)
			if err != nil {
				return err
			}
			a.printf("%s Processed %d rows: %d scheduled, %d already scheduled\n",
				ui.RenderPass("✓"), res.TotalProcessed, res.Created, res.Skipped)
			for _, e := range res.Errors {
				a.printf("%s %s\n", ui.RenderWarn("⚠"), e)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfg.Dict, "dict", "d", "", "dictionary the words belong to")
	cmd.Flags().StringVar(&cfg.DictColumn, "dict-column", "", "column holding the dictionary per row")
	cmd.Flags().StringVar(&cfg.WordColumn, "word-column", cfg.WordColumn, "column holding the word")
	cmd.Flags().StringVar(&cfg.SheetName, "sheet", cfg.SheetName, "sheet to read (xlsx only)")
	cmd.Flags().IntVar(&cfg.StartRow, "start-row", cfg.StartRow, "first row to import, 1-based")
	return cmd
}
