package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cvbuilder/internal/resumes"
	"cvbuilder/internal/templates"
)

func main() {
	outDir := flag.String("out", "./out", "output directory")
	templateID := flag.String("template", "", "template id (default: every template)")
	flag.Parse()

	catalog := templates.Default()
	list := catalog.List("")
	if *templateID != "" {
		t, err := catalog.Get(*templateID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "unknown template %q\n", *templateID)
			os.Exit(1)
		}
		list = []templates.Template{t}
	}

	resume := sampleResume()
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create out dir: %v\n", err)
		os.Exit(1)
	}
	if err := writeModel(*outDir, resume); err != nil {
		fmt.Fprintf(os.Stderr, "write model: %v\n", err)
		os.Exit(1)
	}

	for _, t := range list {
		for _, format := range []string{templates.FormatHTML, templates.FormatMarkdown, templates.FormatText} {
			body, _, err := templates.Export(resume, t, format)
			if err != nil {
				fmt.Fprintf(os.Stderr, "render %s/%s failed: %v\n", t.ID, format, err)
				os.Exit(1)
			}
			if err := validate(body, resume); err != nil {
				fmt.Fprintf(os.Stderr, "render %s/%s validation failed: %v\n", t.ID, format, err)
				os.Exit(1)
			}
			path := filepath.Join(*outDir, fmt.Sprintf("sample_resume_%s.%s", t.ID, format))
			if err := os.WriteFile(path, body, 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("OK: wrote %s\n", path)
		}
	}
}

func writeModel(dir string, r resumes.Resume) error {
	payload, err := json.MarshalIndent(r.Data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "sample_resume_model.json"), payload, 0o644)
}

// validate checks that the rendered document mentions the candidate and every
// employer.
func validate(body []byte, r resumes.Resume) error {
	if !bytes.Contains(body, []byte(r.Data.Personal.FullName)) {
		return fmt.Errorf("missing name")
	}
	for _, e := range r.Data.Experience {
		if !bytes.Contains(body, []byte(e.Company)) {
			return fmt.Errorf("missing company %q", e.Company)
		}
	}
	return nil
}

func sampleResume() resumes.Resume {
	now := time.Now().UTC()
	return resumes.Resume{
		ID:         "sample",
		Title:      "Senior Backend Engineer",
		TemplateID: resumes.DefaultTemplate,
		Status:     resumes.StatusComplete,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
		Data: resumes.ResumeData{
			Personal: resumes.Personal{
				FullName: "Jordan Lee",
				Headline: "Senior Backend Engineer",
				Email:    "jordan.lee@example.com",
				Phone:    "+1-555-0102",
				Location: "Austin, TX",
				Links: []resumes.Link{
					{Label: "LinkedIn", URL: "https://www.linkedin.com/in/jordanlee"},
					{Label: "GitHub", URL: "https://github.com/jordanlee"},
				},
			},
			Summary: "Backend engineer with 8+ years of experience building **resilient APIs** and data services.",
			Experience: []resumes.Experience{
				{
					Title:     "Senior Backend Engineer",
					Company:   "Acme Logistics",
					Location:  "Austin, TX",
					StartDate: "2021-04",
					Current:   true,
					Bullets: []string{
						"Designed a routing service that reduced shipment latency by 18%.",
						"Implemented distributed tracing to cut incident triage time by 35%.",
					},
				},
				{
					Title:     "Backend Engineer",
					Company:   "Blue Harbor Systems",
					Location:  "Seattle, WA",
					StartDate: "2018-01",
					EndDate:   "2021-03",
					Bullets:   []string{"Built event-driven ingestion pipelines for compliance data feeds."},
				},
			},
			Education: []resumes.Education{
				{School: "University of Texas", Degree: "BSc", Field: "Computer Science", EndDate: "2017"},
			},
			Skills: []resumes.Skill{
				{Name: "Go", Level: "expert"},
				{Name: "PostgreSQL", Level: "advanced"},
				{Name: "AWS", Level: "advanced"},
			},
			Languages: []resumes.Language{{Name: "English", Proficiency: "native"}},
		},
	}
}
