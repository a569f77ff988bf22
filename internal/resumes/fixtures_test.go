package resumes

type fakeCatalog map[string]bool

func (f fakeCatalog) Exists(id string) bool { return f[id] }

var testCatalog = fakeCatalog{"classic": true, "modern": true}

func completeData() ResumeData {
	return ResumeData{
		Personal: Personal{
			FullName: "Ada Lovelace",
			Email:    "ada@example.com",
			Phone:    "+44 (20) 7946-0000",
			Location: "London",
			Links:    []Link{{Label: "GitHub", URL: "https://github.com/ada"}},
		},
		Summary: "Mathematician who wrote the first published algorithm for a machine.",
		Experience: []Experience{{
			Title:     "Analyst",
			Company:   "Analytical Engine Ltd",
			StartDate: "1842-01",
			EndDate:   "1843-09",
			Bullets:   []string{"Translated and annotated Menabrea's paper"},
		}},
		Education: []Education{{School: "Home tutoring", Degree: "Mathematics", StartDate: "1830-01", EndDate: "1835-06"}},
		Skills:    []Skill{{Name: "Mathematics"}, {Name: "Algorithms"}, {Name: "Technical writing", Level: "expert"}},
	}
}
