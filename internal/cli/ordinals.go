package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sangkips/tillpoint/internal/bootstrap"
	"github.com/sangkips/tillpoint/internal/domain/invoice"
)

var ordinalsCmd = &cobra.Command{
	Use:   "ordinals",
	Short: "Show the invoice numbers of a day as the tills compute them",
	Example: `  # Today
  tillctl ordinals

  # A past day
  tillctl ordinals --day 2026-03-10`,
	RunE: runOrdinals,
}

func init() {
	rootCmd.AddCommand(ordinalsCmd)

	ordinalsCmd.Flags().String("day", "", "Day to list (format: YYYY-MM-DD, default: today)")
	ordinalsCmd.Flags().Duration("timeout", 30*time.Second, "How long to wait for the store")
}

func runOrdinals(cmd *cobra.Command, args []string) error {
	log := commandLogger("ordinals")

	loc, err := cfg.Billing.Location()
	if err != nil {
		return err
	}

	day := invoice.DayKeyOf(time.Now(), loc)
	if s, _ := cmd.Flags().GetString("day"); s != "" {
		if day, err = invoice.ParseDay(s); err != nil {
			return fmt.Errorf("invalid day, use YYYY-MM-DD: %w", err)
		}
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")

	stores, err := bootstrap.OpenStores(cfg, loc, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	orders, err := stores.Orders.ListByDays(ctx, day, day)
	if err != nil {
		return err
	}
	invoices := invoice.Number(orders, loc)

	out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(out, "NO.\tORDER\tTIME\tITEMS\tTOTAL")
	for _, inv := range invoices {
		fmt.Fprintf(out, "%d\t%d\t%s\t%d\t%s\n",
			inv.Ordinal, inv.ID, inv.CreatedAt.In(loc).Format("15:04:05"), len(inv.Items), inv.TotalAmount.StringFixed(2))
	}
	if err := out.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s: %d invoices, next number %d\n",
		day, len(invoices), invoice.NextInvoiceNumber(orders, day, loc))
	return nil
}
