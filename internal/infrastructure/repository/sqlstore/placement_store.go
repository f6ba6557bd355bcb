package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
)

const topSkillsLimit = 10

var roleNamespace = uuid.MustParse("0b6a4e8e-2f4e-4d8c-8c55-7f0e3d9a1c42")

type PlacementStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewPlacementStore(db *sql.DB, dialect Dialect) *PlacementStore {
	return &PlacementStore{db: db, dialect: dialect}
}

func (s *PlacementStore) q(query string) string {
	return rebind(s.dialect, query)
}

// statsScope builds the shared WHERE clause over roles r and offers o.
func statsScope(filter domain.StatsFilter) (string, []any) {
	batch := strings.TrimSpace(filter.BatchYear)
	if batch == "" {
		batch = domain.DefaultBatchYear
	}
	where := "o.batch_year = ?"
	args := []any{batch}
	if spec := strings.TrimSpace(filter.Specialization); spec != "" {
		where += " AND r.specialization = ?"
		args = append(args, spec)
	}
	return where, args
}

func (s *PlacementStore) Stats(ctx context.Context, filter domain.StatsFilter) (domain.PlacementStats, error) {
	where, args := statsScope(filter)
	stats := domain.PlacementStats{
		BatchYear:       args[0].(string),
		Specialization:  strings.TrimSpace(filter.Specialization),
		TopSkills:       []domain.SkillCount{},
		Companies:       []string{},
		Specializations: []domain.SpecializationBreakdown{},
	}

	var err error
	if stats.Companies, err = s.companyNames(ctx, where, args); err != nil {
		return domain.PlacementStats{}, err
	}
	stats.CompanyCount = len(stats.Companies)

	if err := s.db.QueryRowContext(ctx, s.q(`
SELECT COUNT(DISTINCT r.id)
FROM roles r
JOIN offers o ON r.id = o.role_id
WHERE `+where), args...).Scan(&stats.RoleCount); err != nil {
		return domain.PlacementStats{}, fmt.Errorf("count roles: %w", err)
	}

	if err := s.salaryStats(ctx, where, args, &stats); err != nil {
		return domain.PlacementStats{}, err
	}
	if stats.TopSkills, err = s.topSkills(ctx, where, args); err != nil {
		return domain.PlacementStats{}, err
	}
	if stats.Specializations, err = s.specializationBreakdown(ctx, stats.BatchYear); err != nil {
		return domain.PlacementStats{}, err
	}
	return stats, nil
}

func (s *PlacementStore) companyNames(ctx context.Context, where string, args []any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
SELECT DISTINCT c.name
FROM companies c
JOIN roles r ON c.id = r.company_id
JOIN offers o ON r.id = o.role_id
WHERE `+where+`
ORDER BY c.name`), args...)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// salaryStats loads every priced offer in scope and aggregates in Go, which
// keeps the median portable across both dialects.
func (s *PlacementStore) salaryStats(ctx context.Context, where string, args []any, stats *domain.PlacementStats) error {
	rows, err := s.db.QueryContext(ctx, s.q(`
SELECT o.salary_min_lpa, o.salary_max_lpa
FROM offers o
JOIN roles r ON o.role_id = r.id
WHERE `+where+`
AND o.salary_min_lpa IS NOT NULL
AND o.salary_max_lpa IS NOT NULL`), args...)
	if err != nil {
		return fmt.Errorf("query salaries: %w", err)
	}
	defer rows.Close()

	var mins, maxes []float64
	for rows.Next() {
		var lo, hi float64
		if err := rows.Scan(&lo, &hi); err != nil {
			return fmt.Errorf("scan salary: %w", err)
		}
		mins = append(mins, lo)
		maxes = append(maxes, hi)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate salaries: %w", err)
	}

	stats.OfferCount = len(maxes)
	if len(maxes) == 0 {
		return nil
	}
	stats.AvgMinSalary = mean(mins)
	stats.AvgMaxSalary = mean(maxes)
	stats.MinSalary = minOf(mins)
	stats.MaxSalary = maxOf(maxes)
	stats.MedianSalary = median(maxes)
	return nil
}

func (s *PlacementStore) topSkills(ctx context.Context, where string, args []any) ([]domain.SkillCount, error) {
	rows, err := s.db.QueryContext(ctx, s.q(fmt.Sprintf(`
SELECT sk.skill_name, COUNT(*) AS cnt
FROM skills sk
JOIN roles r ON sk.role_id = r.id
JOIN offers o ON r.id = o.role_id
WHERE %s
GROUP BY sk.skill_name
ORDER BY cnt DESC, sk.skill_name
LIMIT %d`, where, topSkillsLimit)), args...)
	if err != nil {
		return nil, fmt.Errorf("query top skills: %w", err)
	}
	defer rows.Close()

	out := []domain.SkillCount{}
	for rows.Next() {
		var sc domain.SkillCount
		if err := rows.Scan(&sc.Skill, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *PlacementStore) specializationBreakdown(ctx context.Context, batchYear string) ([]domain.SpecializationBreakdown, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
SELECT r.specialization, COUNT(DISTINCT r.id) AS role_count, AVG(o.salary_max_lpa)
FROM roles r
JOIN offers o ON r.id = o.role_id
WHERE o.batch_year = ? AND r.specialization <> ''
GROUP BY r.specialization
ORDER BY role_count DESC, r.specialization`), batchYear)
	if err != nil {
		return nil, fmt.Errorf("query specializations: %w", err)
	}
	defer rows.Close()

	out := []domain.SpecializationBreakdown{}
	for rows.Next() {
		var (
			b      domain.SpecializationBreakdown
			avgMax sql.NullFloat64
		)
		if err := rows.Scan(&b.Specialization, &b.RoleCount, &avgMax); err != nil {
			return nil, fmt.Errorf("scan specialization: %w", err)
		}
		b.AvgMaxSalary = avgMax.Float64
		out = append(out, b)
	}
	return out, rows.Err()
}

var salaryOperators = map[string]string{
	">":  ">",
	">=": ">=",
	"<":  "<",
	"<=": "<=",
}

// CompaniesBySalary lists roles whose maximum salary passes the threshold,
// best paid first for ">" style operators and lowest first otherwise.
func (s *PlacementStore) CompaniesBySalary(ctx context.Context, threshold float64, operator string, limit int) ([]domain.CompanySalary, error) {
	op, ok := salaryOperators[strings.TrimSpace(operator)]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "companies by salary", fmt.Errorf("unsupported operator %q", operator))
	}
	if limit <= 0 {
		limit = 5
	}
	order := "DESC"
	if strings.HasPrefix(op, "<") {
		order = "ASC"
	}

	rows, err := s.db.QueryContext(ctx, s.q(fmt.Sprintf(`
SELECT c.name, r.title, o.salary_max_lpa
FROM companies c
JOIN roles r ON c.id = r.company_id
JOIN offers o ON r.id = o.role_id
WHERE o.salary_max_lpa %s ?
ORDER BY o.salary_max_lpa %s, c.name
LIMIT %d`, op, order, limit)), threshold)
	if err != nil {
		return nil, fmt.Errorf("query companies by salary: %w", err)
	}
	defer rows.Close()

	out := []domain.CompanySalary{}
	for rows.Next() {
		var cs domain.CompanySalary
		if err := rows.Scan(&cs.Company, &cs.Role, &cs.SalaryMaxLPA); err != nil {
			return nil, fmt.Errorf("scan company salary: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *PlacementStore) ListCompanies(ctx context.Context) ([]domain.CompanySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.name, c.location, COUNT(DISTINCT r.id)
FROM companies c
LEFT JOIN roles r ON c.id = r.company_id
GROUP BY c.id, c.name, c.location
ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("query company list: %w", err)
	}
	defer rows.Close()

	out := []domain.CompanySummary{}
	for rows.Next() {
		var cs domain.CompanySummary
		if err := rows.Scan(&cs.Name, &cs.Location, &cs.RoleCount); err != nil {
			return nil, fmt.Errorf("scan company summary: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// RecordChunk upserts the company, role, offer and skills described by a
// chunk's metadata. Chunks without a company carry no facts and are skipped.
func (s *PlacementStore) RecordChunk(ctx context.Context, chunk domain.ChunkRecord) error {
	meta := chunk.Metadata
	companyName := strings.TrimSpace(meta.Company)
	companyID := domain.Slugify(companyName)
	if companyID == "" {
		return nil
	}
	batchYear := domain.BatchYear(meta.Year)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO companies (id, name, location, batch_year)
VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`), companyID, companyName, strings.TrimSpace(meta.Location), batchYear); err != nil {
		return fmt.Errorf("upsert company: %w", err)
	}

	title := strings.TrimSpace(meta.Role)
	if title != "" {
		roleID := RoleID(companyID, title)
		if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO roles (id, company_id, title, specialization, location)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	specialization = CASE WHEN excluded.specialization <> '' THEN excluded.specialization ELSE roles.specialization END`),
			roleID, companyID, title, strings.TrimSpace(meta.Specialization), strings.TrimSpace(meta.Location)); err != nil {
			return fmt.Errorf("upsert role: %w", err)
		}

		if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO offers (id, role_id, batch_year, salary_min_lpa, salary_max_lpa)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	salary_min_lpa = COALESCE(excluded.salary_min_lpa, offers.salary_min_lpa),
	salary_max_lpa = COALESCE(excluded.salary_max_lpa, offers.salary_max_lpa)`),
			roleID+"|"+batchYear, roleID, batchYear, nullablePositive(meta.SalaryMinLPA), nullablePositive(meta.SalaryMaxLPA)); err != nil {
			return fmt.Errorf("upsert offer: %w", err)
		}

		for _, skill := range normalizedSkills(meta.ExtractedSkills) {
			if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO skills (role_id, skill_name)
VALUES (?, ?)
ON CONFLICT (role_id, skill_name) DO NOTHING`), roleID, skill); err != nil {
				return fmt.Errorf("insert skill: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record tx: %w", err)
	}
	return nil
}

// RoleID is stable per company slug and case-insensitive title.
func RoleID(companyID, title string) string {
	return uuid.NewSHA1(roleNamespace, []byte(companyID+"|"+strings.ToLower(title))).String()
}

func nullablePositive(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v > 0}
}

func normalizedSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = min(m, v)
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = max(m, v)
	}
	return m
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
