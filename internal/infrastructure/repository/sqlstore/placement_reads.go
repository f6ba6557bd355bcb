package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
)

const (
	skillSearchLimit      = 100
	insightCompaniesLimit = 5
	generalSpecialization = "general"
)

// SearchSkills lists roles whose skills contain the term, case-insensitively,
// best paid first. A non-empty company narrows the search to that company.
func (s *PlacementStore) SearchSkills(ctx context.Context, skill, company string) ([]domain.SkillRole, error) {
	skill = strings.ToLower(strings.TrimSpace(skill))
	if skill == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search skills", errors.New("skill is required"))
	}

	where := "r.id IN (SELECT role_id FROM skills WHERE LOWER(skill_name) LIKE ?)"
	args := []any{"%" + skill + "%"}
	if slug := domain.Slugify(company); slug != "" {
		where += " AND c.id = ?"
		args = append(args, slug)
	}

	rows, err := s.db.QueryContext(ctx, s.q(fmt.Sprintf(`
SELECT c.name, r.title, r.location, o.salary_min_lpa, o.salary_max_lpa
FROM roles r
JOIN companies c ON r.company_id = c.id
LEFT JOIN offers o ON r.id = o.role_id
WHERE %s
ORDER BY COALESCE(o.salary_max_lpa, 0) DESC, c.name, r.title
LIMIT %d`, where, skillSearchLimit)), args...)
	if err != nil {
		return nil, fmt.Errorf("query skill search: %w", err)
	}
	defer rows.Close()

	out := []domain.SkillRole{}
	for rows.Next() {
		var (
			sr     domain.SkillRole
			lo, hi sql.NullFloat64
		)
		if err := rows.Scan(&sr.Company, &sr.Title, &sr.Location, &lo, &hi); err != nil {
			return nil, fmt.Errorf("scan skill role: %w", err)
		}
		sr.SalaryMinLPA = floatPtr(lo)
		sr.SalaryMaxLPA = floatPtr(hi)
		out = append(out, sr)
	}
	return out, rows.Err()
}

// CompaniesBySpecialization ranks companies hiring for the specialization by
// role count, then by average maximum salary.
func (s *PlacementStore) CompaniesBySpecialization(ctx context.Context, filter domain.StatsFilter) ([]domain.SpecializationCompany, error) {
	if strings.TrimSpace(filter.Specialization) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "companies by specialization", errors.New("specialization is required"))
	}
	return s.specializationCompanies(ctx, filter, "role_count DESC, avg_max DESC", 0)
}

func (s *PlacementStore) specializationCompanies(ctx context.Context, filter domain.StatsFilter, order string, limit int) ([]domain.SpecializationCompany, error) {
	where, args := statsScope(filter)
	query := `
SELECT c.name, COUNT(DISTINCT r.id) AS role_count, COALESCE(AVG(o.salary_min_lpa), 0) AS avg_min, COALESCE(AVG(o.salary_max_lpa), 0) AS avg_max
FROM companies c
JOIN roles r ON c.id = r.company_id
JOIN offers o ON r.id = o.role_id
WHERE ` + where + `
GROUP BY c.id, c.name
ORDER BY ` + order + `, c.name`
	if limit > 0 {
		query += fmt.Sprintf("\nLIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query specialization companies: %w", err)
	}
	defer rows.Close()

	out := []domain.SpecializationCompany{}
	for rows.Next() {
		var (
			sc             domain.SpecializationCompany
			avgMin, avgMax sql.NullFloat64
		)
		if err := rows.Scan(&sc.Company, &sc.RoleCount, &avgMin, &avgMax); err != nil {
			return nil, fmt.Errorf("scan specialization company: %w", err)
		}
		sc.AvgMinSalary = avgMin.Float64
		sc.AvgMaxSalary = avgMax.Float64
		out = append(out, sc)
	}
	return out, rows.Err()
}

// CompareCompany groups a company's roles in the batch by specialization.
// An unknown company is ErrNotFound.
func (s *PlacementStore) CompareCompany(ctx context.Context, company, batchYear string) (domain.CompanyComparison, error) {
	slug := domain.Slugify(company)
	if slug == "" {
		return domain.CompanyComparison{}, domain.WrapError(domain.ErrInvalidInput, "compare company", errors.New("company is required"))
	}
	if strings.TrimSpace(batchYear) == "" {
		batchYear = domain.DefaultBatchYear
	}

	cmp := domain.CompanyComparison{
		BatchYear:       batchYear,
		Specializations: map[string][]domain.RoleOffer{},
	}
	err := s.db.QueryRowContext(ctx, s.q(`SELECT name FROM companies WHERE id = ?`), slug).Scan(&cmp.Company)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CompanyComparison{}, domain.WrapError(domain.ErrNotFound, "compare company", fmt.Errorf("company %q", company))
	}
	if err != nil {
		return domain.CompanyComparison{}, fmt.Errorf("lookup company: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.q(`
SELECT r.id, r.title, r.specialization, o.salary_min_lpa, o.salary_max_lpa
FROM roles r
JOIN offers o ON r.id = o.role_id
WHERE r.company_id = ? AND o.batch_year = ?
ORDER BY r.specialization, r.title`), slug, batchYear)
	if err != nil {
		return domain.CompanyComparison{}, fmt.Errorf("query company roles: %w", err)
	}
	type roleRow struct {
		id, spec string
		offer    domain.RoleOffer
	}
	var roles []roleRow
	for rows.Next() {
		var (
			rr     roleRow
			lo, hi sql.NullFloat64
		)
		if err := rows.Scan(&rr.id, &rr.offer.Title, &rr.spec, &lo, &hi); err != nil {
			rows.Close()
			return domain.CompanyComparison{}, fmt.Errorf("scan company role: %w", err)
		}
		rr.offer.SalaryMinLPA = floatPtr(lo)
		rr.offer.SalaryMaxLPA = floatPtr(hi)
		roles = append(roles, rr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.CompanyComparison{}, fmt.Errorf("iterate company roles: %w", err)
	}

	for _, rr := range roles {
		skills, err := s.roleSkills(ctx, rr.id)
		if err != nil {
			return domain.CompanyComparison{}, err
		}
		rr.offer.Skills = skills
		spec := strings.TrimSpace(rr.spec)
		if spec == "" {
			spec = generalSpecialization
		}
		cmp.Specializations[spec] = append(cmp.Specializations[spec], rr.offer)
	}
	cmp.TotalRoles = len(roles)
	return cmp, nil
}

func (s *PlacementStore) roleSkills(ctx context.Context, roleID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT skill_name FROM skills WHERE role_id = ?`), roleID)
	if err != nil {
		return nil, fmt.Errorf("query role skills: %w", err)
	}
	defer rows.Close()

	skills := []string{}
	for rows.Next() {
		var skill string
		if err := rows.Scan(&skill); err != nil {
			return nil, fmt.Errorf("scan role skill: %w", err)
		}
		skills = append(skills, skill)
	}
	sort.Strings(skills)
	return skills, rows.Err()
}

// SpecializationInsights combines the specialization's statistics with the
// best paying companies for it.
func (s *PlacementStore) SpecializationInsights(ctx context.Context, filter domain.StatsFilter) (domain.SpecializationInsights, error) {
	if strings.TrimSpace(filter.Specialization) == "" {
		return domain.SpecializationInsights{}, domain.WrapError(domain.ErrInvalidInput, "specialization insights", errors.New("specialization is required"))
	}
	stats, err := s.Stats(ctx, filter)
	if err != nil {
		return domain.SpecializationInsights{}, err
	}
	top, err := s.specializationCompanies(ctx, filter, "avg_max DESC", insightCompaniesLimit)
	if err != nil {
		return domain.SpecializationInsights{}, err
	}
	return domain.SpecializationInsights{Stats: stats, TopCompanies: top}, nil
}

// MedianSalary is the median maximum salary over priced offers in scope.
func (s *PlacementStore) MedianSalary(ctx context.Context, filter domain.StatsFilter) (domain.MedianSalary, error) {
	if strings.TrimSpace(filter.Specialization) == "" {
		return domain.MedianSalary{}, domain.WrapError(domain.ErrInvalidInput, "median salary", errors.New("specialization is required"))
	}
	where, args := statsScope(filter)
	var stats domain.PlacementStats
	if err := s.salaryStats(ctx, where, args, &stats); err != nil {
		return domain.MedianSalary{}, err
	}
	return domain.MedianSalary{
		Specialization: strings.TrimSpace(filter.Specialization),
		BatchYear:      args[0].(string),
		MedianSalary:   stats.MedianSalary,
		OfferCount:     stats.OfferCount,
	}, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
