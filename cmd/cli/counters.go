package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zfogg/circle/internal/audit"
	"github.com/zfogg/circle/internal/database"
)

var countersCmd = &cobra.Command{
	Use:   "counters",
	Short: "Check denormalized counters against their relationship rows",
}

var countersVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Report counters that disagree with their rows",
	Long: `Recompute every denormalized counter and list the rows that drifted.
Exits with an error when any drift is found.

Examples:
  circlectl counters verify
  circlectl counters verify --output json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		drift, err := audit.NewAuditor(database.DB, nil).Verify(cmd.Context())
		if err != nil {
			return err
		}
		if err := printDrift(drift, "drifted"); err != nil {
			return err
		}
		if len(drift) > 0 {
			return fmt.Errorf("%d counter(s) drifted", len(drift))
		}
		return nil
	},
}

var countersRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Rewrite drifted counters from their rows",
	Long: `Recompute every denormalized counter and overwrite the ones that drifted,
all in one transaction.

Examples:
  circlectl counters repair`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repaired, err := audit.NewAuditor(database.DB, nil).Repair(cmd.Context())
		if err != nil {
			return err
		}
		return printDrift(repaired, "repaired")
	},
}

func init() {
	countersCmd.AddCommand(countersVerifyCmd)
	countersCmd.AddCommand(countersRepairCmd)
}

func printDrift(drift []audit.Drift, verb string) error {
	if output == "json" {
		return printJSON(drift)
	}
	if len(drift) == 0 {
		fmt.Println("✅ All counters match their rows")
		return nil
	}
	for _, d := range drift {
		fmt.Println(d.String())
	}
	fmt.Printf("\n%d counter(s) %s\n", len(drift), verb)
	return nil
}
