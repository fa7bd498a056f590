package cli

import (
	"fmt"

	"github.com/enchung913/career-recommender/internal/domain/models"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var rankCmd = &cobra.Command{
	Use:   "rank <role> <id>",
	Short: "Show the recommendations for a subject",
	Long: `Rank resources for a student, or students for a company or department.

Examples:
  recommender rank student u-1024
  recommender rank company c-17 -o json
  recommender rank department d-cs`,
	Args: cobra.ExactArgs(2),
	RunE: runRank,
}

func init() {
	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, args []string) error {
	role, err := models.ParseRole(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ranked, err := a.engine.RankCandidatesForSubject(cmd.Context(), args[1], role)
	if err != nil {
		return err
	}

	headers, rows, err := rankingTable(role, ranked)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), outputFmt, ranked, headers, rows)
}

func rankingTable(role models.Role, ranked []models.RankedCandidate) ([]string, [][]string, error) {
	switch role.(type) {
	case models.StudentRole:
		return []string{"#", "resource", "title", "type", "score", "match", "history", "similarity"},
			lo.Map(ranked, func(c models.RankedCandidate, i int) []string {
				var title, kind string
				if c.Resource != nil {
					title, kind = c.Resource.Title, c.Resource.ResourceType
				}
				return []string{
					fmt.Sprint(i + 1), c.ID, title, kind, score(c.Score),
					score(c.Components.Match), score(c.Components.History), score(c.Components.Similarity),
				}
			}), nil
	case models.CompanyRole, models.DepartmentRole:
		return []string{"#", "student", "name", "department", "score", "match", "interest", "popularity", "similarity"},
			lo.Map(ranked, func(c models.RankedCandidate, i int) []string {
				var name, department string
				if c.Student != nil {
					name, department = c.Student.Name, c.Student.DepartmentID
				}
				return []string{
					fmt.Sprint(i + 1), c.ID, name, department, score(c.Score),
					score(c.Components.Match), score(c.Components.Interest),
					score(c.Components.Popularity), score(c.Components.Similarity),
				}
			}), nil
	default:
		return nil, nil, models.ErrUnsupportedRole
	}
}

func score(v float64) string {
	return fmt.Sprintf("%.3f", v)
}
