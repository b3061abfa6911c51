package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-docx-translator/internal/jobs"
	"github.com/nerdneilsfield/go-docx-translator/internal/server"
)

const defaultServerURL = "http://localhost:5000"

func newJobsCommand() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "查看 HTTP 服务上的翻译任务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := server.NewClient(serverURL).List(cmd.Context())
			if err != nil {
				return err
			}
			renderJobs(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL, "服务地址")

	cmd.AddCommand(&cobra.Command{
		Use:   "cancel <job-id>",
		Short: "取消一个任务",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := server.NewClient(serverURL).Cancel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancel requested for %s\n", args[0])
			return nil
		},
	})
	return cmd
}

// renderJobs 以表格形式输出任务列表
func renderJobs(out io.Writer, list []jobs.Snapshot) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No jobs.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Job", "File", "Language", "Status", "Progress", "Translated", "Failed", "Message", "Updated"})
	for _, s := range list {
		t.AppendRow(table.Row{
			s.ID,
			runewidth.Truncate(s.FileName, 32, "..."),
			s.TargetLanguage,
			statusColor(s.Status).Sprint(s.Status),
			fmt.Sprintf("%d%%", s.Progress),
			s.Stats.Translated,
			s.Stats.Failed,
			runewidth.Truncate(s.Message, 40, "..."),
			s.UpdatedAt.Local().Format(time.DateTime),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	t.Render()
}

func statusColor(s jobs.Status) *color.Color {
	switch s {
	case jobs.StatusCompleted:
		return color.New(color.FgGreen)
	case jobs.StatusError:
		return color.New(color.FgRed)
	case jobs.StatusRunning:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgHiBlack)
	}
}
