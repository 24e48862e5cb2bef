package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/adsbot-network/pointsd/internal/domain"
)

func init() {
	rootCmd.AddCommand(withdrawCmd)
	withdrawCmd.AddCommand(withdrawPendingCmd)
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw TOKENS",
	Short: "Request a withdrawal of points into tokens",
	Args:  cobra.ExactArgs(1),
	RunE:  runWithdraw,
}

func runWithdraw(cmd *cobra.Command, args []string) error {
	tokens, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || tokens <= 0 {
		return fmt.Errorf("TOKENS must be a positive integer, got %q", args[0])
	}

	c, err := newAPIClient()
	if err != nil {
		return err
	}

	var resp struct {
		Withdrawal domain.Withdrawal `json:"withdrawal"`
	}
	if err := c.post("/api/withdrawals", map[string]int64{"tokens": tokens}, &resp); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Withdrawal %s created: %d tokens, status %s\n",
		resp.Withdrawal.ID, resp.Withdrawal.Tokens, resp.Withdrawal.Status)
	return nil
}

var withdrawPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List withdrawals awaiting review",
	RunE:  runWithdrawPending,
}

func runWithdrawPending(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	var resp struct {
		Withdrawals []domain.Withdrawal `json:"withdrawals"`
	}
	if err := c.get("/api/withdrawals/pending", &resp); err != nil {
		return err
	}

	if len(resp.Withdrawals) == 0 {
		fmt.Fprintln(os.Stdout, "No pending withdrawals.")
		return nil
	}
	for _, wd := range resp.Withdrawals {
		created := time.Unix(wd.CreatedAt, 0).Format(time.DateTime)
		fmt.Fprintf(os.Stdout, "  %-12s %6d tokens  %-8s %s\n", wd.ID, wd.Tokens, wd.Status, created)
	}
	return nil
}
