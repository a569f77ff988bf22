package recommendations

import (
	"sort"
	"strings"
	"unicode"
)

// Generate builds an ordered, de-duplicated recommendation list. The same
// input always yields the same output.
func Generate(input Input) []Recommendation {
	candidates := make([]Recommendation, 0, 16)
	candidates = append(candidates, fromSectionScores(input.SectionScores)...)
	candidates = append(candidates, fromMissingKeywords(input.MissingKeywords)...)
	candidates = append(candidates, fromImprovements(input.Improvements)...)

	out := dedupe(candidates)
	sortRecommendations(out)
	if len(out) > MaxRecommendations {
		out = out[:MaxRecommendations]
	}
	for i := range out {
		out[i].Order = i + 1
	}
	return out
}

func severityRank(value string) int {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "critical":
		return 3
	case "warning":
		return 2
	default:
		return 1
	}
}

func impactRank(value string) int {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "high":
		return 3
	case "medium":
		return 2
	default:
		return 1
	}
}

func categoryRank(value string) int {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "ATS":
		return 5
	case "SKILLS":
		return 4
	case "EXPERIENCE":
		return 3
	case "STRUCTURE":
		return 2
	case "FORMATTING":
		return 1
	default:
		return 0
	}
}

func slugify(input string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(input)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "item"
	}
	return out
}

// dedupe keeps the first recommendation for each ID.
func dedupe(items []Recommendation) []Recommendation {
	seen := make(map[string]bool, len(items))
	out := make([]Recommendation, 0, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.ID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, item)
	}
	return out
}

func sortRecommendations(items []Recommendation) {
	sort.SliceStable(items, func(i, j int) bool {
		a := items[i]
		b := items[j]
		if severityRank(a.Severity) != severityRank(b.Severity) {
			return severityRank(a.Severity) > severityRank(b.Severity)
		}
		if impactRank(a.Impact) != impactRank(b.Impact) {
			return impactRank(a.Impact) > impactRank(b.Impact)
		}
		if categoryRank(a.Category) != categoryRank(b.Category) {
			return categoryRank(a.Category) > categoryRank(b.Category)
		}
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	})
}

func inferCategory(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "skill") || strings.Contains(lower, "keyword"):
		return "SKILLS"
	case strings.Contains(lower, "format") || strings.Contains(lower, "bullet") || strings.Contains(lower, "font") || strings.Contains(lower, "layout"):
		return "FORMATTING"
	case strings.Contains(lower, "experience") || strings.Contains(lower, "role") || strings.Contains(lower, "project") || strings.Contains(lower, "metric"):
		return "EXPERIENCE"
	case strings.Contains(lower, "structure") || strings.Contains(lower, "section") || strings.Contains(lower, "summary") || strings.Contains(lower, "education") || strings.Contains(lower, "order"):
		return "STRUCTURE"
	default:
		return "ATS"
	}
}

func uniqueSortedStrings(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, trimmed)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}
