package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/costline/costline/internal/mapping"
)

var accountsConfig string

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.PersistentFlags().StringVar(&accountsConfig, "config", "config", "Config directory")
	accountsCmd.AddCommand(accountsValidateCmd)
	accountsCmd.AddCommand(accountsUnmappedCmd)
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Account mapping operations",
	Long:  "Pre-flight checks for the account-to-business-unit mapping file.",
}

var accountsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the account mapping for completeness",
	Long: "Checks every configured payer account for the fields finance reports\n" +
		"depend on. Run before onboarding a new payer so nothing shows up as\n" +
		"Unassigned. Exits 1 if issues are found.",
	RunE: runAccountsValidate,
}

var accountsUnmappedCmd = &cobra.Command{
	Use:   "unmapped <account-id>...",
	Short: "List account IDs with no mapping configured",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAccountsUnmapped,
}

func runAccountsValidate(cmd *cobra.Command, args []string) error {
	mapper, err := mapping.Load(filepath.Join(accountsConfig, "accounts.yaml"))
	if err != nil {
		return err
	}

	report := mapper.Validate()
	fmt.Printf("accounts configured: %d\n", report.TotalAccounts)
	if report.Valid {
		fmt.Println("OK: all mappings complete")
		return nil
	}
	for _, issue := range report.Issues {
		fmt.Fprintf(os.Stderr, "  %s\n", issue)
	}
	os.Exit(1)
	return nil
}

func runAccountsUnmapped(cmd *cobra.Command, args []string) error {
	mapper, err := mapping.Load(filepath.Join(accountsConfig, "accounts.yaml"))
	if err != nil {
		return err
	}

	missing := mapper.Unmapped(args)
	if len(missing) == 0 {
		fmt.Println("OK: all accounts mapped")
		return nil
	}
	for _, id := range missing {
		fmt.Println(id)
	}
	os.Exit(1)
	return nil
}
