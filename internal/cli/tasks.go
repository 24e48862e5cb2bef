package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/adsbot-network/pointsd/internal/domain"
)

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.AddCommand(tasksSubmitCmd)
	rootCmd.AddCommand(flushCmd)

	tasksSubmitCmd.Flags().StringP("handle", "u", "", "Social handle to submit (e.g. @alice)")
}

// ─── tasks ──────────────────────────────────────────────────────────────────

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List social tasks",
	RunE:  runTasks,
}

func runTasks(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	var resp struct {
		Tasks        []domain.TaskRecord `json:"tasks"`
		DoneSubtotal int64               `json:"done_subtotal"`
	}
	if err := c.get("/api/tasks", &resp); err != nil {
		return err
	}

	if len(resp.Tasks) == 0 {
		fmt.Fprintln(os.Stdout, "No tasks.")
		return nil
	}

	for _, t := range resp.Tasks {
		marker := " "
		switch t.Status {
		case domain.TaskPending:
			marker = "…"
		case domain.TaskDone:
			marker = "✓"
		}
		fmt.Fprintf(os.Stdout, "  %s %-14s %3d pts  %s\n", marker, t.ID, t.Points, t.Title)
		if t.Status == domain.TaskPending && !t.CompleteAt.IsZero() {
			fmt.Fprintf(os.Stdout, "      pending until %s\n", t.CompleteAt.Local().Format(time.Kitchen))
		}
	}
	fmt.Fprintf(os.Stdout, "\nEarned from tasks: %d points\n", resp.DoneSubtotal)
	return nil
}

// ─── tasks submit ───────────────────────────────────────────────────────────

var tasksSubmitCmd = &cobra.Command{
	Use:   "submit TASK_ID",
	Short: "Submit a task with your social handle",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksSubmit,
}

func runTasksSubmit(cmd *cobra.Command, args []string) error {
	handle, _ := cmd.Flags().GetString("handle")
	if handle == "" {
		return fmt.Errorf("handle required: pointsd tasks submit %s -u @yourhandle", args[0])
	}

	c, err := newAPIClient()
	if err != nil {
		return err
	}

	body := map[string]string{"handle": handle}
	if err := c.post("/api/tasks/"+args[0]+"/submit", body, nil); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✅ Task %s submitted as %s (pending verification)\n", args[0], handle)
	return nil
}

// ─── flush ──────────────────────────────────────────────────────────────────

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Force an outbox flush",
	Long:  `Replay queued task mutations against the ledger now instead of waiting for the periodic flush.`,
	RunE:  runFlush,
}

func runFlush(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	var resp struct {
		Status string `json:"status"`
		Depth  int    `json:"depth"`
	}
	if err := c.post("/api/outbox/flush", nil, &resp); err != nil {
		return err
	}
	if resp.Status == "busy" {
		fmt.Fprintln(os.Stdout, "A flush is already in progress.")
		return nil
	}
	fmt.Fprintf(os.Stdout, "Flushed. %d entries still queued.\n", resp.Depth)
	return nil
}
