package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"cvbuilder/internal/resumes"
)

// Export formats.
const (
	FormatHTML     = "html"
	FormatMarkdown = "md"
	FormatText     = "txt"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify))

// MarkdownHTML renders user-supplied markdown. Raw HTML in the source is
// dropped by goldmark's default renderer.
func MarkdownHTML(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// inlineMarkdown renders a single line without the wrapping paragraph.
func inlineMarkdown(src string) (template.HTML, error) {
	out, err := MarkdownHTML(src)
	if err != nil {
		return "", err
	}
	s := strings.TrimSpace(string(out))
	if strings.HasPrefix(s, "<p>") && strings.HasSuffix(s, "</p>") && strings.Count(s, "<p>") == 1 {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "<p>"), "</p>")
	}
	return template.HTML(s), nil
}

type experienceView struct {
	resumes.Experience
	Dates   string
	Bullets []template.HTML
}

type projectView struct {
	resumes.Project
	Highlights []template.HTML
}

type pageView struct {
	Title          string
	Template       Template
	Font           template.CSS
	Accent         template.CSS
	Personal       resumes.Personal
	Contact        string
	Order          []string
	Summary        template.HTML
	Experience     []experienceView
	Education      []resumes.Education
	Skills         []resumes.Skill
	Projects       []projectView
	Certifications []resumes.Certification
	Languages      []resumes.Language
}

var page = template.Must(template.New("resume").Funcs(template.FuncMap{
	"dates": func(start, end string) string {
		if start != "" && end != "" {
			return start + " – " + end
		}
		return start + end
	},
}).Parse(pageHTML))

// RenderHTML renders a standalone HTML document for r using the template's
// section order and styling.
func RenderHTML(r resumes.Resume, t Template) ([]byte, error) {
	d := r.Data
	view := pageView{
		Title:          r.Title,
		Template:       t,
		Font:           template.CSS(orDefault(t.FontFamily, "Arial, sans-serif")),
		Accent:         template.CSS(orDefault(t.AccentColor, "#111827")),
		Personal:       d.Personal,
		Contact:        joinNonEmpty(" · ", d.Personal.Email, d.Personal.Phone, d.Personal.Location),
		Order:          resumes.SectionOrder(t.SectionOrder),
		Education:      d.Education,
		Skills:         d.Skills,
		Certifications: d.Certifications,
		Languages:      d.Languages,
	}
	var err error
	if view.Summary, err = MarkdownHTML(d.Summary); err != nil {
		return nil, fmt.Errorf("render summary: %w", err)
	}
	for _, e := range d.Experience {
		ev := experienceView{Experience: e, Dates: experienceDates(e)}
		for _, b := range e.Bullets {
			h, err := inlineMarkdown(b)
			if err != nil {
				return nil, fmt.Errorf("render bullet: %w", err)
			}
			ev.Bullets = append(ev.Bullets, h)
		}
		view.Experience = append(view.Experience, ev)
	}
	for _, p := range d.Projects {
		pv := projectView{Project: p}
		for _, h := range p.Highlights {
			html, err := inlineMarkdown(h)
			if err != nil {
				return nil, fmt.Errorf("render highlight: %w", err)
			}
			pv.Highlights = append(pv.Highlights, html)
		}
		view.Projects = append(view.Projects, pv)
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}

// Export renders r in format. Markdown and text ignore styling but keep the
// template's section order where the format has one.
func Export(r resumes.Resume, t Template, format string) ([]byte, string, error) {
	switch format {
	case FormatHTML:
		body, err := RenderHTML(r, t)
		return body, "text/html; charset=utf-8", err
	case FormatMarkdown:
		return []byte(resumes.Markdown(r, t.SectionOrder)), "text/markdown; charset=utf-8", nil
	case FormatText:
		return []byte(resumes.PlainText(r) + "\n"), "text/plain; charset=utf-8", nil
	default:
		return nil, "", fmt.Errorf("unsupported export format %q", format)
	}
}

func experienceDates(e resumes.Experience) string {
	if e.Current {
		return joinNonEmpty(" – ", e.StartDate, "Present")
	}
	return joinNonEmpty(" – ", e.StartDate, e.EndDate)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{if .Personal.FullName}}{{.Personal.FullName}}{{else}}{{.Title}}{{end}}</title>
<style>
body { font-family: {{.Font}}; color: #111827; max-width: 800px; margin: 2rem auto; line-height: 1.45; }
h1 { margin-bottom: 0.2rem; }
h2 { color: {{.Accent}}; border-bottom: 2px solid {{.Accent}}; padding-bottom: 0.2rem; text-transform: uppercase; font-size: 1rem; letter-spacing: 0.05em; }
.meta { color: #6b7280; font-size: 0.9rem; }
ul { margin-top: 0.3rem; }
</style>
</head>
<body class="template-{{.Template.ID}}">
<header>
<h1>{{.Personal.FullName}}</h1>
{{with .Personal.Headline}}<p class="headline">{{.}}</p>{{end}}
{{with .Contact}}<p class="meta">{{.}}</p>{{end}}
{{with .Personal.Links}}<p class="links">{{range $i, $l := .}}{{if $i}} · {{end}}<a href="{{$l.URL}}">{{if $l.Label}}{{$l.Label}}{{else}}{{$l.URL}}{{end}}</a>{{end}}</p>{{end}}
</header>
{{range .Order}}
{{if eq . "summary"}}{{if $.Summary}}<section class="summary"><h2>Summary</h2>{{$.Summary}}</section>{{end}}{{end}}
{{if eq . "experience"}}{{with $.Experience}}<section class="experience"><h2>Experience</h2>
{{range .}}<article><h3>{{.Title}}{{if .Company}}, {{.Company}}{{end}}</h3><p class="meta">{{.Dates}}{{if .Location}} · {{.Location}}{{end}}</p>
{{with .Bullets}}<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}</article>
{{end}}</section>{{end}}{{end}}
{{if eq . "education"}}{{with $.Education}}<section class="education"><h2>Education</h2>
{{range .}}<article><h3>{{.Degree}}{{if .Field}}, {{.Field}}{{end}}</h3><p>{{.School}}</p><p class="meta">{{dates .StartDate .EndDate}}{{if .Grade}} · {{.Grade}}{{end}}</p></article>
{{end}}</section>{{end}}{{end}}
{{if eq . "skills"}}{{with $.Skills}}<section class="skills"><h2>Skills</h2><ul>{{range .}}<li>{{.Name}}{{if .Level}} <span class="meta">({{.Level}})</span>{{end}}</li>{{end}}</ul></section>{{end}}{{end}}
{{if eq . "projects"}}{{with $.Projects}}<section class="projects"><h2>Projects</h2>
{{range .}}<article><h3>{{if .URL}}<a href="{{.URL}}">{{.Name}}</a>{{else}}{{.Name}}{{end}}</h3>{{with .Description}}<p>{{.}}</p>{{end}}
{{with .Highlights}}<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}</article>
{{end}}</section>{{end}}{{end}}
{{if eq . "certifications"}}{{with $.Certifications}}<section class="certifications"><h2>Certifications</h2><ul>{{range .}}<li>{{.Name}}{{if .Issuer}}, {{.Issuer}}{{end}}{{if .Date}} <span class="meta">{{.Date}}</span>{{end}}</li>{{end}}</ul></section>{{end}}{{end}}
{{if eq . "languages"}}{{with $.Languages}}<section class="languages"><h2>Languages</h2><ul>{{range .}}<li>{{.Name}}{{if .Proficiency}} <span class="meta">({{.Proficiency}})</span>{{end}}</li>{{end}}</ul></section>{{end}}{{end}}
{{end}}
</body>
</html>
`
