package recommendations

import (
	"sort"
	"strings"
)

const maxKeywordsListed = 8

func fromImprovements(items []string) []Recommendation {
	out := make([]Recommendation, 0, len(items))
	for i, item := range items {
		text := strings.TrimSpace(item)
		if text == "" {
			continue
		}
		impact := "medium"
		if i == 0 {
			impact = "high"
		}
		out = append(out, Recommendation{
			ID:       "IMPROVE_" + slugify(text),
			Category: inferCategory(text),
			Severity: "warning",
			Title:    text,
			Why:      "Flagged by the ATS review of this résumé.",
			Action:   text,
			Impact:   impact,
		})
	}
	return out
}

func fromMissingKeywords(k []string) []Recommendation {
	keywords := uniqueSortedStrings(k)
	if len(keywords) == 0 {
		return nil
	}
	if len(keywords) > maxKeywordsListed {
		keywords = keywords[:maxKeywordsListed]
	}
	return []Recommendation{{
		ID:       "ATS_MISSING_KEYWORDS",
		Category: "ATS",
		Severity: "warning",
		Title:    "Add missing job keywords",
		Why:      "Improves ATS match and helps recruiters quickly spot relevant skills.",
		Action:   "Work these keywords naturally into Skills and Experience bullets: " + strings.Join(keywords, ", "),
		Impact:   "high",
	}}
}

func fromSectionScores(scores map[string]int) []Recommendation {
	names := make([]string, 0, len(scores))
	for name, score := range scores {
		if score < weakSectionScore && strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]Recommendation, 0, len(names))
	for _, name := range names {
		score := scores[name]
		severity, impact := "warning", "medium"
		if score < 40 {
			severity, impact = "critical", "high"
		}
		label := strings.TrimSpace(name)
		out = append(out, Recommendation{
			ID:       "SECTION_" + strings.ToUpper(slugify(label)),
			Category: inferCategory(label + " section"),
			Severity: severity,
			Title:    "Strengthen the " + label + " section",
			Why:      "This section scored low for ATS readability and relevance.",
			Action:   "Rework the " + label + " section with specific, keyword-rich content.",
			Impact:   impact,
		})
	}
	return out
}
