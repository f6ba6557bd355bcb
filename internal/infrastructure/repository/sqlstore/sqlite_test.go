package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
)

func newSQLiteStore(t *testing.T) *PlacementStore {
	t.Helper()
	ctx := context.Background()
	db, err := OpenDB(ctx, DialectSQLite, filepath.Join(t.TempDir(), "placement.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := EnsureSchema(ctx, db, DialectSQLite); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	return NewPlacementStore(db, DialectSQLite)
}

func seedPlacements(t *testing.T, store *PlacementStore) {
	t.Helper()
	chunks := []domain.ChunkRecord{
		{ID: "acme-0", Text: "a", Metadata: domain.ChunkMetadata{Company: "Acme Corp", Role: "Analyst", Year: 2024, Specialization: "Finance", SalaryMinLPA: 10, SalaryMaxLPA: 20, ExtractedSkills: []string{"SQL", "Excel"}}},
		{ID: "acme-1", Text: "b", Metadata: domain.ChunkMetadata{Company: "ACME CORP PVT LTD", Role: "analyst", Year: 2024, ExtractedSkills: []string{"SQL"}}},
		{ID: "globex-0", Text: "c", Metadata: domain.ChunkMetadata{Company: "Globex Ltd", Role: "Manager", Year: 2024, Specialization: "Marketing", SalaryMinLPA: 15, SalaryMaxLPA: 30, ExtractedSkills: []string{"SQL", "Branding"}}},
		{ID: "initech-0", Text: "d", Metadata: domain.ChunkMetadata{Company: "Initech", Role: "Intern", Year: 2023, SalaryMinLPA: 5, SalaryMaxLPA: 8}},
		{ID: "orphan-0", Text: "e"},
	}
	for _, chunk := range chunks {
		if err := store.RecordChunk(context.Background(), chunk); err != nil {
			t.Fatalf("RecordChunk(%s) error = %v", chunk.ID, err)
		}
	}
}

func TestSQLiteStatsOverRecordedChunks(t *testing.T) {
	store := newSQLiteStore(t)
	seedPlacements(t, store)

	stats, err := store.Stats(context.Background(), domain.StatsFilter{BatchYear: "2024-2025"})
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.CompanyCount != 2 || stats.RoleCount != 2 || stats.OfferCount != 2 {
		t.Fatalf("unexpected counts %+v", stats)
	}
	if stats.Companies[0] != "Acme Corp" || stats.Companies[1] != "Globex Ltd" {
		t.Fatalf("unexpected companies %v", stats.Companies)
	}
	if stats.MedianSalary != 25 || stats.MinSalary != 10 || stats.MaxSalary != 30 || stats.AvgMaxSalary != 25 {
		t.Fatalf("unexpected salaries %+v", stats)
	}
	if len(stats.TopSkills) != 3 || stats.TopSkills[0] != (domain.SkillCount{Skill: "SQL", Count: 2}) {
		t.Fatalf("unexpected top skills %+v", stats.TopSkills)
	}
	if len(stats.Specializations) != 2 || stats.Specializations[0].Specialization != "Finance" {
		t.Fatalf("unexpected specializations %+v", stats.Specializations)
	}

	finance, err := store.Stats(context.Background(), domain.StatsFilter{Specialization: "Finance"})
	if err != nil {
		t.Fatalf("Stats(Finance) error = %v", err)
	}
	if finance.CompanyCount != 1 || finance.MedianSalary != 20 {
		t.Fatalf("unexpected finance stats %+v", finance)
	}
}

func TestSQLiteCompaniesBySalary(t *testing.T) {
	store := newSQLiteStore(t)
	seedPlacements(t, store)

	above, err := store.CompaniesBySalary(context.Background(), 18, ">", 5)
	if err != nil {
		t.Fatalf("CompaniesBySalary() error = %v", err)
	}
	if len(above) != 2 || above[0].Company != "Globex Ltd" || above[1].Company != "Acme Corp" {
		t.Fatalf("unexpected companies above threshold %+v", above)
	}

	below, err := store.CompaniesBySalary(context.Background(), 10, "<", 5)
	if err != nil {
		t.Fatalf("CompaniesBySalary() error = %v", err)
	}
	if len(below) != 1 || below[0].Company != "Initech" {
		t.Fatalf("unexpected companies below threshold %+v", below)
	}
}

func TestSQLiteListCompanies(t *testing.T) {
	store := newSQLiteStore(t)
	seedPlacements(t, store)

	companies, err := store.ListCompanies(context.Background())
	if err != nil {
		t.Fatalf("ListCompanies() error = %v", err)
	}
	if len(companies) != 3 {
		t.Fatalf("expected 3 companies, got %+v", companies)
	}
	for _, c := range companies {
		if c.RoleCount != 1 {
			t.Fatalf("expected one role per company, got %+v", c)
		}
	}
}

func TestSQLiteSearchSkills(t *testing.T) {
	store := newSQLiteStore(t)
	seedPlacements(t, store)

	roles, err := store.SearchSkills(context.Background(), "sql", "")
	if err != nil {
		t.Fatalf("SearchSkills() error = %v", err)
	}
	if len(roles) != 2 || roles[0].Company != "Globex Ltd" || roles[1].Company != "Acme Corp" {
		t.Fatalf("expected best paid first, got %+v", roles)
	}
	if roles[0].SalaryMaxLPA == nil || *roles[0].SalaryMaxLPA != 30 {
		t.Fatalf("unexpected salary %+v", roles[0])
	}

	acme, err := store.SearchSkills(context.Background(), "SQL", "ACME CORP PVT LTD")
	if err != nil {
		t.Fatalf("SearchSkills(company) error = %v", err)
	}
	if len(acme) != 1 || acme[0].Title != "Analyst" {
		t.Fatalf("expected only the Acme analyst, got %+v", acme)
	}

	if _, err := store.SearchSkills(context.Background(), "  ", ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty skill, got %v", err)
	}
}

func TestSQLiteCompaniesBySpecialization(t *testing.T) {
	store := newSQLiteStore(t)
	seedPlacements(t, store)

	companies, err := store.CompaniesBySpecialization(context.Background(), domain.StatsFilter{Specialization: "Finance"})
	if err != nil {
		t.Fatalf("CompaniesBySpecialization() error = %v", err)
	}
	if len(companies) != 1 || companies[0].Company != "Acme Corp" || companies[0].RoleCount != 1 || companies[0].AvgMaxSalary != 20 {
		t.Fatalf("unexpected companies %+v", companies)
	}

	none, err := store.CompaniesBySpecialization(context.Background(), domain.StatsFilter{Specialization: "Finance", BatchYear: "2023-2024"})
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no companies in 2023-2024, got %+v, %v", none, err)
	}
}

func TestSQLiteCompareCompany(t *testing.T) {
	store := newSQLiteStore(t)
	seedPlacements(t, store)

	cmp, err := store.CompareCompany(context.Background(), "acme corp", "")
	if err != nil {
		t.Fatalf("CompareCompany() error = %v", err)
	}
	if cmp.Company != "Acme Corp" || cmp.BatchYear != domain.DefaultBatchYear || cmp.TotalRoles != 1 {
		t.Fatalf("unexpected comparison %+v", cmp)
	}
	finance := cmp.Specializations["Finance"]
	if len(finance) != 1 || finance[0].Title != "Analyst" {
		t.Fatalf("unexpected finance roles %+v", cmp.Specializations)
	}
	if len(finance[0].Skills) != 2 || finance[0].Skills[0] != "Excel" || finance[0].Skills[1] != "SQL" {
		t.Fatalf("unexpected skills %v", finance[0].Skills)
	}

	initech, err := store.CompareCompany(context.Background(), "Initech", "2023-2024")
	if err != nil {
		t.Fatalf("CompareCompany(Initech) error = %v", err)
	}
	if roles := initech.Specializations["general"]; len(roles) != 1 || roles[0].Title != "Intern" {
		t.Fatalf("expected unspecialized role under general, got %+v", initech.Specializations)
	}

	if _, err := store.CompareCompany(context.Background(), "Umbrella", ""); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown company, got %v", err)
	}
}

func TestSQLiteSpecializationInsightsAndMedian(t *testing.T) {
	store := newSQLiteStore(t)
	seedPlacements(t, store)

	insights, err := store.SpecializationInsights(context.Background(), domain.StatsFilter{Specialization: "Marketing"})
	if err != nil {
		t.Fatalf("SpecializationInsights() error = %v", err)
	}
	if insights.Stats.CompanyCount != 1 || len(insights.TopCompanies) != 1 || insights.TopCompanies[0].Company != "Globex Ltd" {
		t.Fatalf("unexpected insights %+v", insights)
	}

	median, err := store.MedianSalary(context.Background(), domain.StatsFilter{Specialization: "Finance"})
	if err != nil {
		t.Fatalf("MedianSalary() error = %v", err)
	}
	if median.MedianSalary != 20 || median.OfferCount != 1 || median.BatchYear != domain.DefaultBatchYear {
		t.Fatalf("unexpected median %+v", median)
	}

	if _, err := store.MedianSalary(context.Background(), domain.StatsFilter{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without specialization, got %v", err)
	}
}
