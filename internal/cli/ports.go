package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sangkips/tillpoint/pkg/printer"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports a receipt printer can be attached to",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := printer.ListSerialPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
