package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sangkips/tillpoint/pkg/utils"
)

var tokenCmd = &cobra.Command{
	Use:   "token <terminal-id>",
	Short: "Issue an access token for a till",
	Example: `  # Cashier till
  tillctl token till-1

  # Till that may delete invoices and add products
  tillctl token back-office --role manager`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringSlice("role", []string{utils.RoleCashier}, "Roles granted to the terminal (cashier, manager)")
}

func runToken(cmd *cobra.Command, args []string) error {
	roles, _ := cmd.Flags().GetStringSlice("role")
	for _, r := range roles {
		if r != utils.RoleCashier && r != utils.RoleManager {
			return fmt.Errorf("unknown role %q", r)
		}
	}
	if args[0] == "" {
		return errors.New("terminal id is required")
	}

	manager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	token, err := manager.GenerateAccessToken(args[0], roles)
	if err != nil {
		return err
	}

	log := commandLogger("token")
	log.Info().Str("terminal_id", args[0]).Strs("roles", roles).Dur("expiry", cfg.JWT.Expiry).Msg("token issued")
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
