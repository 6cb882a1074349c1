package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/self-interview/internal/checklist"
	"github.com/spigell/self-interview/internal/countdown"
	"github.com/spigell/self-interview/internal/logger"
	"github.com/spigell/self-interview/internal/questions"
)

const questionColumnWidth = 80

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Print the interview questions and the system checklist",
	Run: func(cmd *cobra.Command, _ []string) {
		logger, config := setup(logger.Stderr)

		qs, err := loadQuestions(config)
		if err != nil {
			logger.Fatal("loading questions", zap.Error(err))
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, questionsTable(qs))
		fmt.Fprintln(out, checklistTable())
	},
}

func init() {
	rootCmd.AddCommand(questionsCmd)
}

func questionsTable(qs []questions.Question) string {
	tw := newTable("#", "PHASE", "LIMIT", "QUESTION")
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, WidthMax: questionColumnWidth},
	})

	for i, q := range qs {
		tw.AppendRow(table.Row{i + 1, q.Phase, countdown.Format(q.TimeLimit), q.Text})
	}

	return tw.Render()
}

func checklistTable() string {
	tw := newTable("#", "CHECK", "LABEL", "TROUBLESHOOTING")

	for i, id := range checklist.IDs() {
		guide := "-"
		if g, ok := checklist.GuideFor(id); ok {
			guide = g.Title
		}
		tw.AppendRow(table.Row{i + 1, string(id), id.Label(), guide})
	}

	return tw.Render()
}
