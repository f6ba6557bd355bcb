package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
)

const maxListedCompanies = 20

// FormatStructuredAnswer renders placement statistics as a deterministic
// answer. The figure the question asked for comes first.
func FormatStructuredAnswer(params domain.ClassificationParams, stats domain.PlacementStats) string {
	var b strings.Builder

	if headline := structuredHeadline(params, stats); headline != "" {
		b.WriteString(headline)
		b.WriteString("\n\n")
	}

	scope := stats.BatchYear
	if stats.Specialization != "" {
		scope += ", " + stats.Specialization
	}
	fmt.Fprintf(&b, "**Placement Statistics (%s):**\n", scope)
	fmt.Fprintf(&b, "- **Total Companies:** %d\n", stats.CompanyCount)
	fmt.Fprintf(&b, "- **Total Roles:** %d\n", stats.RoleCount)
	fmt.Fprintf(&b, "- **Salary Range:** ₹%.1f - ₹%.1f LPA\n", stats.MinSalary, stats.MaxSalary)
	fmt.Fprintf(&b, "- **Average Salary:** ₹%.1f - ₹%.1f LPA\n", stats.AvgMinSalary, stats.AvgMaxSalary)
	fmt.Fprintf(&b, "- **Median Salary:** ₹%.1f LPA\n", stats.MedianSalary)

	if len(stats.Companies) > 0 {
		names := stats.Companies
		suffix := ""
		if len(names) > maxListedCompanies {
			suffix = fmt.Sprintf(" and %d more", len(names)-maxListedCompanies)
			names = names[:maxListedCompanies]
		}
		fmt.Fprintf(&b, "\n**Companies:** %s%s\n", strings.Join(names, ", "), suffix)
	}

	if len(stats.TopSkills) > 0 {
		b.WriteString("\n**Top Skills in Demand:**\n")
		for _, s := range stats.TopSkills {
			fmt.Fprintf(&b, "- %s: %d roles\n", s.Skill, s.Count)
		}
	}

	b.WriteString("\n*Data extracted from structured placement database*")
	return b.String()
}

func structuredHeadline(params domain.ClassificationParams, stats domain.PlacementStats) string {
	switch params.Entity {
	case "companies":
		return fmt.Sprintf("**Total Companies:** %d", stats.CompanyCount)
	case "roles":
		return fmt.Sprintf("**Total Roles:** %d", stats.RoleCount)
	case "offers":
		return fmt.Sprintf("**Total Offers:** %d", stats.OfferCount)
	}
	switch params.Metric {
	case "median":
		return fmt.Sprintf("**Median Salary:** ₹%.1f LPA", stats.MedianSalary)
	case "average":
		return fmt.Sprintf("**Average Salary:** ₹%.1f - ₹%.1f LPA", stats.AvgMinSalary, stats.AvgMaxSalary)
	case "range":
		return fmt.Sprintf("**Salary Range:** ₹%.1f - ₹%.1f LPA", stats.MinSalary, stats.MaxSalary)
	case "max":
		return fmt.Sprintf("**Highest Salary:** ₹%.1f LPA", stats.MaxSalary)
	case "min":
		return fmt.Sprintf("**Lowest Salary:** ₹%.1f LPA", stats.MinSalary)
	}
	return ""
}

func formatHybridAnswer(structured string, insights *string) string {
	var b strings.Builder
	b.WriteString("**Structured Data Analysis:**\n")
	b.WriteString(structured)
	if insights != nil {
		b.WriteString("\n\n**Detailed Insights from Job Descriptions:**\n")
		b.WriteString(*insights)
	}
	return b.String()
}

func formatMultiHopAnswer(threshold float64, operator string, companies []domain.CompanySalary, insights *string) string {
	names := make([]string, 0, len(companies))
	seen := make(map[string]struct{}, len(companies))
	for _, c := range companies {
		if _, ok := seen[c.Company]; ok {
			continue
		}
		seen[c.Company] = struct{}{}
		names = append(names, c.Company)
	}

	var b strings.Builder
	b.WriteString("**Multi-Step Analysis Results:**\n\n")
	fmt.Fprintf(&b, "**Step 1: Companies with Salary %s ₹%g LPA:**\n%s\n", operator, threshold, strings.Join(names, ", "))
	if insights != nil {
		b.WriteString("\n**Step 2: Skills Analysis for the Filtered Roles:**\n")
		b.WriteString(*insights)
	}
	return b.String()
}
