package domain

import "fmt"

const DefaultBatchYear = "2024-2025"

type StatsFilter struct {
	Specialization string
	BatchYear      string
}

type SkillCount struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

type SpecializationBreakdown struct {
	Specialization string  `json:"specialization"`
	RoleCount      int     `json:"role_count"`
	AvgMaxSalary   float64 `json:"avg_max_salary"`
}

// PlacementStats is the named-statistics mapping returned by the structured store.
type PlacementStats struct {
	BatchYear      string `json:"batch_year"`
	Specialization string `json:"specialization,omitempty"`

	CompanyCount int `json:"company_count"`
	RoleCount    int `json:"role_count"`
	OfferCount   int `json:"offer_count"`

	AvgMinSalary float64 `json:"avg_min_salary"`
	AvgMaxSalary float64 `json:"avg_max_salary"`
	MinSalary    float64 `json:"min_salary"`
	MaxSalary    float64 `json:"max_salary"`
	MedianSalary float64 `json:"median_salary"`

	TopSkills       []SkillCount              `json:"top_skills"`
	Companies       []string                  `json:"companies"`
	Specializations []SpecializationBreakdown `json:"specializations"`
}

type CompanySalary struct {
	Company      string  `json:"company"`
	Role         string  `json:"role"`
	SalaryMaxLPA float64 `json:"salary_max_lpa"`
}

type CompanySummary struct {
	Name      string `json:"name"`
	Location  string `json:"location,omitempty"`
	RoleCount int    `json:"role_count"`
}

// SkillRole is a role that lists a searched skill.
type SkillRole struct {
	Company      string   `json:"company"`
	Title        string   `json:"title"`
	Location     string   `json:"location,omitempty"`
	SalaryMinLPA *float64 `json:"salary_min_lpa"`
	SalaryMaxLPA *float64 `json:"salary_max_lpa"`
}

type SpecializationCompany struct {
	Company      string  `json:"company"`
	RoleCount    int     `json:"role_count"`
	AvgMinSalary float64 `json:"avg_min_salary"`
	AvgMaxSalary float64 `json:"avg_max_salary"`
}

type RoleOffer struct {
	Title        string   `json:"title"`
	SalaryMinLPA *float64 `json:"salary_min_lpa"`
	SalaryMaxLPA *float64 `json:"salary_max_lpa"`
	Skills       []string `json:"skills"`
}

// CompanyComparison groups one company's roles by specialization. Roles
// without a specialization are listed under "general".
type CompanyComparison struct {
	Company         string                 `json:"company"`
	BatchYear       string                 `json:"batch_year"`
	Specializations map[string][]RoleOffer `json:"specializations"`
	TotalRoles      int                    `json:"total_roles"`
}

type SpecializationInsights struct {
	Stats        PlacementStats          `json:"stats"`
	TopCompanies []SpecializationCompany `json:"top_companies"`
}

type MedianSalary struct {
	Specialization string  `json:"specialization"`
	BatchYear      string  `json:"batch_year"`
	MedianSalary   float64 `json:"median_salary"`
	OfferCount     int     `json:"offer_count"`
}

// ResumeMatch scores one job description against a resume by skill overlap.
type ResumeMatch struct {
	JDID           string        `json:"jd_id"`
	Score          float64       `json:"score"`
	MissingSkills  []string      `json:"missing_skills"`
	UpskillingPlan []string      `json:"upskilling_plan"`
	Metadata       ChunkMetadata `json:"metadata"`
}

// BatchYear maps a calendar year onto the academic batch it starts, e.g.
// 2024 becomes "2024-2025". Non-positive years yield DefaultBatchYear.
func BatchYear(year int) string {
	if year <= 0 {
		return DefaultBatchYear
	}
	return fmt.Sprintf("%d-%d", year, year+1)
}
