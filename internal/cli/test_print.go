package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sangkips/tillpoint/internal/application/service"
	"github.com/sangkips/tillpoint/internal/bootstrap"
	"github.com/sangkips/tillpoint/internal/domain/entity"
	"github.com/sangkips/tillpoint/pkg/printer"
)

var testPrintCmd = &cobra.Command{
	Use:   "test-print",
	Short: "Print a sample receipt",
	Long: `Print a sample receipt on the configured printer. With a serial printer the
available ports are listed and the operator picks one; an empty answer cancels.`,
	Example: `  # Pick a serial port and print
  tillctl test-print

  # Use the host print command only
  tillctl test-print --host

  # Render the receipt to a PDF file instead of printing
  tillctl test-print --pdf receipt.pdf`,
	RunE: runTestPrint,
}

func init() {
	rootCmd.AddCommand(testPrintCmd)

	testPrintCmd.Flags().Bool("host", false, "Skip the device and use the host print command")
	testPrintCmd.Flags().String("pdf", "", "Write the receipt as PDF to this file instead of printing")
}

func runTestPrint(cmd *cobra.Command, args []string) error {
	log := commandLogger("test-print")

	loc, err := cfg.Billing.Location()
	if err != nil {
		return err
	}
	header := entity.ReceiptHeader{
		ShopName: cfg.Shop.Name,
		Address:  cfg.Shop.Address,
		Phone:    cfg.Shop.Phone,
		Footer:   cfg.Shop.Footer,
	}
	doc, err := service.BuildReceipt(service.TestReceipt(header, time.Now().In(loc)))
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("pdf"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := printer.RenderPDF(f, doc, cfg.Printer.PaperWidthMM); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Receipt written to %s\n", path)
		return nil
	}

	var selector printer.DeviceSelector = printer.FixedSelector(cfg.Printer.Device)
	if cfg.Printer.Type == "serial" && cfg.Printer.Device == "" {
		selector = printer.PromptSelector{
			In:   cmd.InOrStdin(),
			Out:  cmd.OutOrStdout(),
			List: printer.ListSerialPorts,
		}
	}
	dispatcher, err := bootstrap.NewDispatcher(&cfg.Printer, selector, log)
	if err != nil {
		return err
	}
	defer dispatcher.Disconnect()

	useHost, _ := cmd.Flags().GetBool("host")
	channel, err := dispatcher.Send(cmd.Context(), doc, printer.SendOptions{
		PreferDirect: !useHost,
		Trusted:      true,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Test receipt printed (%s)\n", channel)
	return nil
}
