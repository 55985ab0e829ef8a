/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/clikanban/kanban/internal/services"
	"github.com/clikanban/kanban/types"
	"github.com/spf13/cobra"
)

var (
	seedFile    string
	seedDryRun  bool
	licenceKey  string
	licenceRole string
)

// licenceCmd represents the licence command.
var licenceCmd = &cobra.Command{
	Use:     "licence",
	Aliases: []string{"license"},
	Short:   "Manage licence keys",
}

var licenceSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert licence keys from a JSON file",
	Long: `Insert licence keys from a JSON file. The file holds either a list of
key strings, each granting Members, or a list of {"key", "role"} objects.
Existing keys are skipped.

	kanban licence seed --from-json keys.json --dry-run
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := services.LoadSeedRecords(seedFile)
		if err != nil {
			return err
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		summary := a.Licences.Seed(cmd.Context(), records, seedDryRun)
		prefix := ""
		if seedDryRun {
			prefix = "[dry-run] "
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%sinserted: %d  skipped: %d  errors: %d\n", prefix, summary.Inserted, summary.Skipped, summary.Errors)
		if summary.Errors > 0 {
			return fmt.Errorf("%d records failed", summary.Errors)
		}
		return nil
	},
}

var licenceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a single licence key",
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := types.ParseRole(licenceRole)
		if err != nil {
			return err
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		licence, err := a.Licences.CreateLicence(cmd.Context(), licenceKey, role)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "licence %s grants %s\n", licence.Key, licence.Role)
		return nil
	},
}

var licenceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List licence keys and who claimed them",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		licences, err := a.Licences.List(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tROLE\tOWNER\tCLAIMED AT")
		for _, l := range licences {
			owner, claimedAt := "-", "-"
			if l.OwnerID != nil {
				owner = *l.OwnerID
			}
			if l.ClaimedAt != nil {
				claimedAt = l.ClaimedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.Key, l.Role, owner, claimedAt)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(licenceCmd)
	licenceCmd.AddCommand(licenceSeedCmd, licenceCreateCmd, licenceListCmd)

	licenceSeedCmd.Flags().StringVar(&seedFile, "from-json", "", "path to a JSON file of licence keys")
	licenceSeedCmd.Flags().BoolVar(&seedDryRun, "dry-run", false, "report what would be inserted without writing")
	_ = licenceSeedCmd.MarkFlagRequired("from-json")

	licenceCreateCmd.Flags().StringVar(&licenceKey, "key", "", "licence key in AAAA-BBBB-CCCC-DDDD format")
	licenceCreateCmd.Flags().StringVar(&licenceRole, "role", string(types.RoleMembers), "role granted by the key")
	_ = licenceCreateCmd.MarkFlagRequired("key")
}
