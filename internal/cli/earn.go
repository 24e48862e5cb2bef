package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adsbot-network/pointsd/internal/domain"
)

func init() {
	rootCmd.AddCommand(earnCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(ticketCmd)
	rootCmd.AddCommand(inviteCmd)
}

// ─── earn ───────────────────────────────────────────────────────────────────

var earnCmd = &cobra.Command{
	Use:   "earn [SLOT]",
	Short: "Watch an ad and credit points",
	Long: `Run one reward attempt. SLOT is main, side, or low (default main).
The command blocks through the ad and, for gated slots, the cooldown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEarn,
}

func runEarn(cmd *cobra.Command, args []string) error {
	slot := string(domain.SlotMain)
	if len(args) == 1 {
		slot = args[0]
	}
	if !domain.AdSlot(slot).Valid() {
		return fmt.Errorf("unknown slot %q (want main, side, or low)", slot)
	}

	c, err := newAPIClient()
	if err != nil {
		return err
	}

	var resp struct {
		Slot         string `json:"slot"`
		NormalPoints int64  `json:"normal_points"`
		GoldPoints   int64  `json:"gold_points"`
	}
	fmt.Fprintf(os.Stdout, "Watching %s ad...\n", slot)
	if err := c.post("/api/reward/"+slot, nil, &resp); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "✅ Credited. Balance: %d points (%d gold)\n", resp.NormalPoints, resp.GoldPoints)
	return nil
}

// ─── balance ────────────────────────────────────────────────────────────────

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the cached point balance",
	RunE:  runBalance,
}

func runBalance(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	var resp struct {
		NormalPoints int64 `json:"normal_points"`
		GoldPoints   int64 `json:"gold_points"`
		DoneSubtotal int64 `json:"done_subtotal"`
	}
	if err := c.get("/api/balance", &resp); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Points: %d\n", resp.NormalPoints)
	fmt.Fprintf(os.Stdout, "Gold:   %d\n", resp.GoldPoints)
	if resp.DoneSubtotal > 0 {
		fmt.Fprintf(os.Stdout, "Task points earned: %d\n", resp.DoneSubtotal)
	}
	return nil
}

// ─── ticket ─────────────────────────────────────────────────────────────────

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Buy a lottery ticket (100 points)",
	RunE:  runTicket,
}

func runTicket(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	var resp struct {
		NormalPoints int64 `json:"normal_points"`
	}
	if err := c.post("/api/lottery/ticket", nil, &resp); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "🎟️  Ticket bought. Balance: %d points\n", resp.NormalPoints)
	return nil
}

// ─── invite ─────────────────────────────────────────────────────────────────

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Print your personal invite link",
	RunE:  runInvite,
}

func runInvite(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	var resp struct {
		Link string `json:"link"`
	}
	if err := c.get("/api/invite", &resp); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, resp.Link)
	return nil
}
