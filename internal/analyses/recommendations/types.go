package recommendations

// Recommendation is a deterministic suggestion derived from an ATS review.
type Recommendation struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Why      string `json:"why"`
	Action   string `json:"action"`
	Impact   string `json:"impact"`
	Order    int    `json:"order"`
}

// Input is the part of an ATS review the engine reads.
type Input struct {
	Improvements    []string
	MissingKeywords []string
	SectionScores   map[string]int
}

// MaxRecommendations caps the list returned by Generate.
const MaxRecommendations = 7

// weakSectionScore is the section score below which a section is flagged.
const weakSectionScore = 60
