package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/jd-copilot/internal/bootstrap"
	"github.com/kirillkom/jd-copilot/internal/core/domain"
	"github.com/kirillkom/jd-copilot/internal/core/usecase"
)

var classifyUseLLM bool

var classifyCmd = &cobra.Command{
	Use:   "classify <question>",
	Short: "Print the query type, parameters and routing strategy for a question",
	Example: `  jdctl classify "how many companies offer above 10 LPA in 2024"
  jdctl classify --llm "compare skills at Acme and Globex"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyUseLLM, "llm", false, "Classify with the first configured generation backend")
}

func runClassify(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	if !classifyUseLLM {
		cls := usecase.NewPatternClassifier().Classify(cmd.Context(), question)
		return printJSON(cmd.OutOrStdout(), domain.QueryAnalysis{
			QueryType: cls.Type,
			Params:    cls.Params,
			Strategy:  usecase.RoutingStrategyFor(cls.Type),
		})
	}

	app, _, err := loadApp(cmd.Context(), bootstrap.Options{SkipStore: true})
	if err != nil {
		return err
	}
	defer app.Close()
	return printJSON(cmd.OutOrStdout(), app.QueryUC.Analyze(cmd.Context(), question, true))
}
