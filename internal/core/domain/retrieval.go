package domain

// SearchFilter is pushed down to the vector index.
type SearchFilter struct {
	Year int
}

type ChunkMetadata struct {
	Company         string   `json:"company"`
	Role            string   `json:"role"`
	Year            int      `json:"year,omitempty"`
	Location        string   `json:"location,omitempty"`
	Specialization  string   `json:"specialization,omitempty"`
	SalaryMinLPA    float64  `json:"salary_min_lpa,omitempty"`
	SalaryMaxLPA    float64  `json:"salary_max_lpa,omitempty"`
	SourceFile      string   `json:"source_file,omitempty"`
	ExtractedSkills []string `json:"extracted_skills,omitempty"`
}

// VectorMatch is a raw candidate returned by the vector index.
type VectorMatch struct {
	ID       string
	Score    float64
	Text     string
	Metadata ChunkMetadata
}

// Passage is a transient, possibly truncated view over an indexed chunk.
type Passage struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Score    float64       `json:"score"`
	Metadata ChunkMetadata `json:"metadata"`
}

type RankedResultSet struct {
	Passages     []Passage
	FullDocument bool
	// Company is the explicit or auto-detected company filter that was applied.
	Company string
}

func (s RankedResultSet) Empty() bool {
	return len(s.Passages) == 0
}

type Answer struct {
	Text    string `json:"text"`
	Backend string `json:"backend"`
}
