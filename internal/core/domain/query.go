package domain

type QueryType string

const (
	QueryStructured   QueryType = "STRUCTURED"
	QueryUnstructured QueryType = "UNSTRUCTURED"
	QueryHybrid       QueryType = "HYBRID"
	QueryMultiHop     QueryType = "MULTI_HOP"
)

// ClassificationParams carries the fields extracted alongside a QueryType.
// Query is always set; the rest depend on the assigned type.
type ClassificationParams struct {
	Query string `json:"query"`

	Year           int    `json:"year,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	Metric         string `json:"metric,omitempty"`
	Entity         string `json:"entity,omitempty"`

	Focus     string `json:"focus,omitempty"`
	SkillType string `json:"skill_type,omitempty"`

	CompareSalary   bool     `json:"compare_salary,omitempty"`
	CompareSkills   bool     `json:"compare_skills,omitempty"`
	CompareEntities []string `json:"compare_entities,omitempty"`

	SalaryThreshold *float64 `json:"salary_threshold,omitempty"`
	SalaryOperator  string   `json:"salary_operator,omitempty"`
	TargetInfo      string   `json:"target_info,omitempty"`

	// Fallback is set by the generation-backed classifier when it defaulted.
	Fallback string `json:"fallback,omitempty"`
}

type Classification struct {
	Type   QueryType            `json:"query_type"`
	Params ClassificationParams `json:"parameters"`
}

type RoutingStrategy struct {
	Primary     string   `json:"primary"`
	Fallback    string   `json:"fallback,omitempty"`
	Components  []string `json:"components,omitempty"`
	Steps       []string `json:"steps,omitempty"`
	Description string   `json:"description"`
}

type QueryFilters struct {
	Company      string `json:"company,omitempty"`
	Year         int    `json:"year,omitempty"`
	RoleContains string `json:"role_contains,omitempty"`
}

type QueryRequest struct {
	Question string       `json:"question"`
	TopK     int          `json:"top_k"`
	Filters  QueryFilters `json:"filters"`
	// UseLLMClassifier opts into generation-backed classification.
	UseLLMClassifier bool `json:"use_llm_classifier"`
}

// QueryAnalysis is a classification plus its routing strategy, without execution.
type QueryAnalysis struct {
	QueryType QueryType            `json:"query_type"`
	Params    ClassificationParams `json:"parameters"`
	Strategy  RoutingStrategy      `json:"routing_strategy"`
}

// QueryResult is the unified orchestrator response. Answer is nil when no
// generation backend produced text; Passages may still be non-empty.
type QueryResult struct {
	QueryType    QueryType            `json:"query_type"`
	Params       ClassificationParams `json:"parameters"`
	Strategy     RoutingStrategy      `json:"routing_strategy"`
	Passages     []Passage            `json:"snippets"`
	Answer       *string              `json:"answer"`
	Backend      string               `json:"backend,omitempty"`
	FullDocument bool                 `json:"full_document"`
	Company      string               `json:"company,omitempty"`
	Structured   *PlacementStats      `json:"structured,omitempty"`
}
