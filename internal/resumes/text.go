package resumes

import (
	"fmt"
	"strings"
)

// PlainText renders a résumé as plain text, the input format of the AI functions.
func PlainText(r Resume) string {
	d := r.Data
	var b strings.Builder

	p := d.Personal
	writeLine(&b, p.FullName)
	writeLine(&b, p.Headline)
	writeLine(&b, joinNonEmpty(" | ", p.Email, p.Phone, p.Location))
	for _, l := range p.Links {
		writeLine(&b, joinNonEmpty(": ", l.Label, l.URL))
	}

	if s := strings.TrimSpace(d.Summary); s != "" {
		heading(&b, "SUMMARY")
		writeLine(&b, s)
	}
	if len(d.Experience) > 0 {
		heading(&b, "EXPERIENCE")
		for _, e := range d.Experience {
			writeLine(&b, joinNonEmpty(" - ", e.Title, e.Company, e.Location))
			writeLine(&b, dateRange(e.StartDate, e.EndDate, e.Current))
			for _, bullet := range e.Bullets {
				if bullet = strings.TrimSpace(bullet); bullet != "" {
					writeLine(&b, "- "+bullet)
				}
			}
		}
	}
	if len(d.Education) > 0 {
		heading(&b, "EDUCATION")
		for _, e := range d.Education {
			writeLine(&b, joinNonEmpty(", ", e.Degree, e.Field))
			writeLine(&b, e.School)
			writeLine(&b, joinNonEmpty(" | ", dateRange(e.StartDate, e.EndDate, false), e.Grade))
		}
	}
	if len(d.Skills) > 0 {
		heading(&b, "SKILLS")
		names := make([]string, 0, len(d.Skills))
		for _, s := range d.Skills {
			if s.Level != "" {
				names = append(names, fmt.Sprintf("%s (%s)", s.Name, s.Level))
			} else {
				names = append(names, s.Name)
			}
		}
		writeLine(&b, strings.Join(names, ", "))
	}
	if len(d.Projects) > 0 {
		heading(&b, "PROJECTS")
		for _, p := range d.Projects {
			writeLine(&b, joinNonEmpty(" - ", p.Name, p.URL))
			writeLine(&b, p.Description)
			for _, h := range p.Highlights {
				writeLine(&b, "- "+h)
			}
		}
	}
	if len(d.Certifications) > 0 {
		heading(&b, "CERTIFICATIONS")
		for _, c := range d.Certifications {
			writeLine(&b, joinNonEmpty(" - ", c.Name, c.Issuer, c.Date))
		}
	}
	if len(d.Languages) > 0 {
		heading(&b, "LANGUAGES")
		for _, l := range d.Languages {
			writeLine(&b, joinNonEmpty(" - ", l.Name, l.Proficiency))
		}
	}
	return strings.TrimSpace(b.String())
}

// Markdown renders a résumé as a Markdown document in the given section order.
// Sections missing from order are appended in document order.
func Markdown(r Resume, order []string) string {
	d := r.Data
	var b strings.Builder
	p := d.Personal
	if p.FullName != "" {
		fmt.Fprintf(&b, "# %s\n\n", p.FullName)
	}
	if p.Headline != "" {
		fmt.Fprintf(&b, "**%s**\n\n", p.Headline)
	}
	if contact := joinNonEmpty(" · ", p.Email, p.Phone, p.Location); contact != "" {
		fmt.Fprintf(&b, "%s\n\n", contact)
	}
	for _, l := range p.Links {
		label := l.Label
		if label == "" {
			label = l.URL
		}
		fmt.Fprintf(&b, "- [%s](%s)\n", label, l.URL)
	}
	if len(p.Links) > 0 {
		b.WriteString("\n")
	}

	for _, section := range SectionOrder(order) {
		switch section {
		case SectionSummary:
			if s := strings.TrimSpace(d.Summary); s != "" {
				fmt.Fprintf(&b, "## Summary\n\n%s\n\n", s)
			}
		case SectionExperience:
			if len(d.Experience) == 0 {
				continue
			}
			b.WriteString("## Experience\n\n")
			for _, e := range d.Experience {
				fmt.Fprintf(&b, "### %s\n\n", joinNonEmpty(", ", e.Title, e.Company))
				if meta := joinNonEmpty(" · ", dateRange(e.StartDate, e.EndDate, e.Current), e.Location); meta != "" {
					fmt.Fprintf(&b, "*%s*\n\n", meta)
				}
				for _, bullet := range e.Bullets {
					fmt.Fprintf(&b, "- %s\n", bullet)
				}
				if len(e.Bullets) > 0 {
					b.WriteString("\n")
				}
			}
		case SectionEducation:
			if len(d.Education) == 0 {
				continue
			}
			b.WriteString("## Education\n\n")
			for _, e := range d.Education {
				fmt.Fprintf(&b, "### %s\n\n", joinNonEmpty(", ", e.Degree, e.Field, e.School))
				if meta := joinNonEmpty(" · ", dateRange(e.StartDate, e.EndDate, false), e.Grade); meta != "" {
					fmt.Fprintf(&b, "*%s*\n\n", meta)
				}
			}
		case SectionSkills:
			if len(d.Skills) == 0 {
				continue
			}
			b.WriteString("## Skills\n\n")
			for _, s := range d.Skills {
				fmt.Fprintf(&b, "- %s\n", joinNonEmpty(" · ", s.Name, s.Level))
			}
			b.WriteString("\n")
		case SectionProjects:
			if len(d.Projects) == 0 {
				continue
			}
			b.WriteString("## Projects\n\n")
			for _, p := range d.Projects {
				fmt.Fprintf(&b, "### %s\n\n", p.Name)
				if p.Description != "" {
					fmt.Fprintf(&b, "%s\n\n", p.Description)
				}
				for _, h := range p.Highlights {
					fmt.Fprintf(&b, "- %s\n", h)
				}
				if len(p.Highlights) > 0 {
					b.WriteString("\n")
				}
			}
		case SectionCertifications:
			if len(d.Certifications) == 0 {
				continue
			}
			b.WriteString("## Certifications\n\n")
			for _, c := range d.Certifications {
				fmt.Fprintf(&b, "- %s\n", joinNonEmpty(" · ", c.Name, c.Issuer, c.Date))
			}
			b.WriteString("\n")
		case SectionLanguages:
			if len(d.Languages) == 0 {
				continue
			}
			b.WriteString("## Languages\n\n")
			for _, l := range d.Languages {
				fmt.Fprintf(&b, "- %s\n", joinNonEmpty(" · ", l.Name, l.Proficiency))
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String()) + "\n"
}

// SectionOrder returns the body sections (everything but personal) in the
// requested order, ignoring unknown names and appending the missing ones.
func SectionOrder(order []string) []string {
	seen := map[string]bool{SectionPersonal: true}
	out := make([]string, 0, len(Sections)-1)
	add := func(name string) {
		if seen[name] {
			return
		}
		for _, known := range Sections {
			if known == name {
				seen[name] = true
				out = append(out, name)
				return
			}
		}
	}
	for _, name := range order {
		add(name)
	}
	for _, name := range Sections {
		add(name)
	}
	return out
}

func heading(b *strings.Builder, title string) {
	b.WriteString("\n")
	b.WriteString(title)
	b.WriteString("\n")
}

func writeLine(b *strings.Builder, line string) {
	if line = strings.TrimSpace(line); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func dateRange(start, end string, current bool) string {
	switch {
	case current:
		return joinNonEmpty(" – ", start, "Present")
	case start != "" && end != "":
		return start + " – " + end
	default:
		return joinNonEmpty(" – ", start, end)
	}
}
