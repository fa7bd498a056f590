package cli

import (
	"fmt"
	"strings"

	"github.com/enchung913/career-recommender/internal/services"
	"github.com/spf13/cobra"
)

var similarityCmd = &cobra.Command{
	Use:   "similarity <matrix>",
	Short: "Rebuild one similarity matrix now",
	Long: fmt.Sprintf(`Rebuild one similarity matrix immediately, outside the schedule.

Matrices: %s (the user matrix only when enabled in the config).

Examples:
  recommender similarity student
  recommender similarity company -o json`,
		strings.Join([]string{services.StudentMatrix, services.CompanyMatrix, services.UserMatrix}, ", ")),
	Args: cobra.ExactArgs(1),
	RunE: runSimilarity,
}

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Expire overdue applications and close overdue resources now",
	RunE:  runMaintenance,
}

func init() {
	rootCmd.AddCommand(similarityCmd)
	rootCmd.AddCommand(maintenanceCmd)
}

func runSimilarity(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.similarity.Run(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), outputFmt, report,
		[]string{"run id", "matrix", "subjects", "skipped", "failed", "edges", "duration"},
		[][]string{{
			report.RunID, report.Matrix,
			fmt.Sprint(report.Subjects), fmt.Sprint(report.Skipped), fmt.Sprint(report.Failed),
			fmt.Sprint(report.Edges), report.Duration.String(),
		}})
}

func runMaintenance(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.maintenance.Run(cmd.Context())
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), outputFmt, report,
		[]string{"today", "applications to pending", "resources closed"},
		[][]string{{
			report.Today.Format("2006-01-02"),
			fmt.Sprint(report.ExpiredApplications), fmt.Sprint(report.ClosedResources),
		}})
}
