package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/lingoleague/internal/importer"
)

func newImportCmd(configPath *string) *cobra.Command {
	icfg := importer.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import lessons and questions from an xlsx or csv file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			icfg.FilePath = args[0]
			res, err := importer.New(a.store.Questions, a.lessons, a.log).Import(cmd.Context(), icfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Processed: %d\nQuestions created: %d\nLessons created: %d\nLessons updated: %d\nSkipped: %d\n",
				res.TotalProcessed, res.QuestionsCreated, res.LessonsCreated, res.LessonsUpdated, res.Skipped)
			for _, e := range res.Errors {
				fmt.Fprintln(out, e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&icfg.SheetName, "sheet", icfg.SheetName, "sheet to read from xlsx files")
	cmd.Flags().IntVar(&icfg.StartRow, "start-row", icfg.StartRow, "first data row (1-based)")
	return cmd
}
