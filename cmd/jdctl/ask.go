package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/jd-copilot/internal/bootstrap"
	"github.com/kirillkom/jd-copilot/internal/core/domain"
)

var (
	askTopK       int
	askCompany    string
	askYear       int
	askUseLLM     bool
	askOutputJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a placement question from the indexed job descriptions",
	Example: `  jdctl ask "what skills does Acme Corp want for data analysts"
  jdctl ask --json --top-k 8 "average salary for finance roles in 2024"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "Passages to retrieve (0 uses the configured default)")
	askCmd.Flags().StringVar(&askCompany, "company", "", "Restrict retrieval to one company")
	askCmd.Flags().IntVar(&askYear, "year", 0, "Restrict retrieval to a batch start year")
	askCmd.Flags().BoolVar(&askUseLLM, "llm-classifier", false, "Classify with a generation backend")
	askCmd.Flags().BoolVarP(&askOutputJSON, "json", "j", false, "Print the full result as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	app, _, err := loadApp(cmd.Context(), bootstrap.Options{})
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.QueryUC.Query(cmd.Context(), domain.QueryRequest{
		Question: strings.Join(args, " "),
		TopK:     askTopK,
		Filters: domain.QueryFilters{
			Company: askCompany,
			Year:    askYear,
		},
		UseLLMClassifier: askUseLLM,
	})
	if err != nil {
		return err
	}

	if askOutputJSON {
		return printJSON(cmd.OutOrStdout(), result)
	}
	return printResult(cmd.OutOrStdout(), result)
}

func printResult(w io.Writer, result *domain.QueryResult) error {
	fmt.Fprintf(w, "Query type: %s\n", result.QueryType)
	if result.Company != "" {
		fmt.Fprintf(w, "Company: %s\n", result.Company)
	}
	fmt.Fprintln(w)

	if result.Answer != nil {
		fmt.Fprintln(w, *result.Answer)
		if result.Backend != "" {
			fmt.Fprintf(w, "\n(answered by %s)\n", result.Backend)
		}
	} else {
		fmt.Fprintln(w, "No generated answer available; showing retrieved passages.")
	}

	if len(result.Passages) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nSources (%d):\n", len(result.Passages))
	for i, p := range result.Passages {
		label := p.Metadata.Company
		if p.Metadata.Role != "" {
			label += " / " + p.Metadata.Role
		}
		fmt.Fprintf(w, "  %d. [%.3f] %s (%s)\n", i+1, p.Score, label, p.ID)
	}
	return nil
}
