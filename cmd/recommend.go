package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/property-advisor/internal/model"
	"github.com/sells-group/property-advisor/internal/pipeline"
)

var (
	recommendQuery   string
	recommendIncome  float64
	recommendHistory string
	recommendFormat  string
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Run the recommendation pipeline for one request",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(recommendQuery) == "" {
			return eris.New("--query is required")
		}
		if recommendIncome < 0 {
			return eris.New("--income must not be negative")
		}

		history, err := loadHistory(recommendHistory)
		if err != nil {
			return err
		}

		env, err := initEnv("recommend")
		if err != nil {
			return err
		}

		state, err := env.Pipeline.Run(cmd.Context(), pipeline.Request{
			Query:   recommendQuery,
			History: history,
			Income:  recommendIncome,
		})
		if err != nil {
			return eris.Wrap(err, "recommend")
		}

		zap.L().Info("recommendation complete",
			zap.String("run_id", state.RunID),
			zap.String("stage", string(state.Stage)),
			zap.Int("recommendations", len(state.Recommendations)),
		)
		return writeOutput(cmd.OutOrStdout(), recommendFormat, state)
	},
}

// loadHistory reads conversation turns from a JSON or YAML file. An empty
// path means no history.
func loadHistory(path string) ([]model.Turn, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read history %s", path)
	}
	var turns []model.Turn
	if err := yaml.Unmarshal(raw, &turns); err != nil {
		return nil, eris.Wrapf(err, "parse history %s", path)
	}
	for i, t := range turns {
		if t.Role != "user" && t.Role != "assistant" {
			return nil, eris.Errorf("history turn %d: role must be user or assistant, got %q", i, t.Role)
		}
	}
	return turns, nil
}

func init() {
	recommendCmd.Flags().StringVar(&recommendQuery, "query", "", "free-text property request")
	recommendCmd.Flags().Float64Var(&recommendIncome, "income", 0, "annual income for affordability (optional)")
	recommendCmd.Flags().StringVar(&recommendHistory, "history", "", "JSON or YAML file of prior conversation turns")
	recommendCmd.Flags().StringVar(&recommendFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(recommendCmd)
}
