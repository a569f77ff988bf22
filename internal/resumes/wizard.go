package resumes

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// TemplateChecker reports whether a template id exists in the catalog.
type TemplateChecker interface {
	Exists(id string) bool
}

// Step is one page of the form wizard.
type Step struct {
	Number   int      `json:"number"`
	Key      string   `json:"key"`
	Title    string   `json:"title"`
	Optional bool     `json:"optional"`
	Sections []string `json:"sections"`
}

// StepState is the validity of one step for a particular résumé.
type StepState struct {
	Step
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors"`
}

const (
	StepPersonal   = 1
	StepExperience = 2
	StepEducation  = 3
	StepSkills     = 4
	StepSummary    = 5
	StepExtras     = 6
	StepTemplate   = 7
	StepReview     = 8
)

// Steps is the static wizard table, indexed by step number - 1.
var Steps = []Step{
	{Number: StepPersonal, Key: "personal", Title: "Personal details", Sections: []string{SectionPersonal}},
	{Number: StepExperience, Key: "experience", Title: "Work experience", Sections: []string{SectionExperience}},
	{Number: StepEducation, Key: "education", Title: "Education", Sections: []string{SectionEducation}},
	{Number: StepSkills, Key: "skills", Title: "Skills", Sections: []string{SectionSkills}},
	{Number: StepSummary, Key: "summary", Title: "Professional summary", Sections: []string{SectionSummary}},
	{Number: StepExtras, Key: "extras", Title: "Projects, certifications and languages", Optional: true, Sections: []string{SectionProjects, SectionCertifications, SectionLanguages}},
	{Number: StepTemplate, Key: "template", Title: "Choose a template", Sections: []string{}},
	{Number: StepReview, Key: "review", Title: "Review", Sections: []string{}},
}

// StepByNumber looks a step up in the static table.
func StepByNumber(n int) (Step, bool) {
	if n < 1 || n > len(Steps) {
		return Step{}, false
	}
	return Steps[n-1], true
}

const (
	minSummaryChars = 30
	maxSummaryChars = 1200
	minSkills       = 3
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9+()\- ]+$`)
	monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
)

// Validator checks wizard steps against a résumé.
type Validator struct {
	Templates TemplateChecker
}

// ValidateStep returns the field errors for one step. Review is valid only
// when every required step before it is valid.
func (v Validator) ValidateStep(step int, r Resume) ([]FieldError, error) {
	d := r.Data
	switch step {
	case StepPersonal:
		return validatePersonal(d.Personal), nil
	case StepExperience:
		return validateExperience(d.Experience), nil
	case StepEducation:
		errs := validateEducation(d.Education)
		if len(d.Experience) == 0 && len(d.Education) == 0 {
			errs = append(errs, FieldError{Field: "education", Message: "add at least one experience or education entry"})
		}
		return errs, nil
	case StepSkills:
		return validateSkills(d.Skills), nil
	case StepSummary:
		return validateSummary(d.Summary), nil
	case StepExtras:
		return validateExtras(d), nil
	case StepTemplate:
		return v.validateTemplate(r.TemplateID), nil
	case StepReview:
		var errs []FieldError
		for _, s := range Steps[:StepReview-1] {
			if s.Optional {
				continue
			}
			stepErrs, _ := v.ValidateStep(s.Number, r)
			errs = append(errs, stepErrs...)
		}
		return errs, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStep, step)
	}
}

// States evaluates every step of the wizard.
func (v Validator) States(r Resume) []StepState {
	out := make([]StepState, 0, len(Steps))
	for _, s := range Steps {
		errs, _ := v.ValidateStep(s.Number, r)
		if errs == nil {
			errs = []FieldError{}
		}
		out = append(out, StepState{Step: s, Valid: len(errs) == 0, Errors: errs})
	}
	return out
}

func (v Validator) validateTemplate(id string) []FieldError {
	if strings.TrimSpace(id) == "" {
		return []FieldError{{Field: "templateId", Message: "choose a template"}}
	}
	if v.Templates != nil && !v.Templates.Exists(id) {
		return []FieldError{{Field: "templateId", Message: "unknown template"}}
	}
	return nil
}

func validatePersonal(p Personal) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(p.FullName) == "" {
		errs = append(errs, FieldError{Field: "personal.fullName", Message: "required"})
	}
	email := strings.TrimSpace(p.Email)
	switch {
	case email == "":
		errs = append(errs, FieldError{Field: "personal.email", Message: "required"})
	case !emailPattern.MatchString(email):
		errs = append(errs, FieldError{Field: "personal.email", Message: "must be a valid email address"})
	}
	if phone := strings.TrimSpace(p.Phone); phone != "" && !phonePattern.MatchString(phone) {
		errs = append(errs, FieldError{Field: "personal.phone", Message: "may only contain digits, spaces and + ( ) -"})
	}
	for i, l := range p.Links {
		if !isWebURL(l.URL) {
			errs = append(errs, FieldError{Field: fmt.Sprintf("personal.links[%d].url", i), Message: "must be an http(s) URL"})
		}
	}
	return errs
}

func validateExperience(items []Experience) []FieldError {
	var errs []FieldError
	for i, e := range items {
		prefix := fmt.Sprintf("experience[%d]", i)
		if strings.TrimSpace(e.Title) == "" {
			errs = append(errs, FieldError{Field: prefix + ".title", Message: "required"})
		}
		if strings.TrimSpace(e.Company) == "" {
			errs = append(errs, FieldError{Field: prefix + ".company", Message: "required"})
		}
		end := e.EndDate
		switch {
		case e.Current && end != "":
			errs = append(errs, FieldError{Field: prefix + ".endDate", Message: "must be empty for a current position"})
			end = ""
		case !e.Current && end == "":
			errs = append(errs, FieldError{Field: prefix + ".endDate", Message: "required unless this is your current position"})
		}
		errs = append(errs, validateRange(prefix, e.StartDate, end, true)...)
	}
	return errs
}

func validateEducation(items []Education) []FieldError {
	var errs []FieldError
	for i, e := range items {
		prefix := fmt.Sprintf("education[%d]", i)
		if strings.TrimSpace(e.School) == "" {
			errs = append(errs, FieldError{Field: prefix + ".school", Message: "required"})
		}
		errs = append(errs, validateRange(prefix, e.StartDate, e.EndDate, false)...)
	}
	return errs
}

// validateRange checks YYYY-MM dates and that the end is not before the start.
func validateRange(prefix, start, end string, startRequired bool) []FieldError {
	var errs []FieldError
	startOK := monthPattern.MatchString(start)
	switch {
	case start == "" && startRequired:
		errs = append(errs, FieldError{Field: prefix + ".startDate", Message: "required"})
	case start != "" && !startOK:
		errs = append(errs, FieldError{Field: prefix + ".startDate", Message: "must be YYYY-MM"})
	}
	if end == "" {
		return errs
	}
	if !monthPattern.MatchString(end) {
		return append(errs, FieldError{Field: prefix + ".endDate", Message: "must be YYYY-MM"})
	}
	// YYYY-MM strings order lexically.
	if startOK && end < start {
		errs = append(errs, FieldError{Field: prefix + ".endDate", Message: "must not be before the start date"})
	}
	return errs
}

func validateSkills(items []Skill) []FieldError {
	var errs []FieldError
	seen := make(map[string]bool, len(items))
	named := 0
	for i, s := range items {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		if name == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("skills[%d].name", i), Message: "required"})
			continue
		}
		if seen[name] {
			errs = append(errs, FieldError{Field: fmt.Sprintf("skills[%d].name", i), Message: "duplicate skill"})
			continue
		}
		seen[name] = true
		named++
	}
	if named < minSkills {
		errs = append(errs, FieldError{Field: "skills", Message: fmt.Sprintf("add at least %d skills", minSkills)})
	}
	return errs
}

func validateSummary(summary string) []FieldError {
	n := utf8.RuneCountInString(strings.TrimSpace(summary))
	switch {
	case n < minSummaryChars:
		return []FieldError{{Field: "summary", Message: fmt.Sprintf("must be at least %d characters", minSummaryChars)}}
	case n > maxSummaryChars:
		return []FieldError{{Field: "summary", Message: fmt.Sprintf("must be at most %d characters", maxSummaryChars)}}
	}
	return nil
}

func validateExtras(d ResumeData) []FieldError {
	var errs []FieldError
	for i, p := range d.Projects {
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("projects[%d].name", i), Message: "required"})
		}
		if p.URL != "" && !isWebURL(p.URL) {
			errs = append(errs, FieldError{Field: fmt.Sprintf("projects[%d].url", i), Message: "must be an http(s) URL"})
		}
	}
	for i, c := range d.Certifications {
		if strings.TrimSpace(c.Name) == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("certifications[%d].name", i), Message: "required"})
		}
		if c.Date != "" && !monthPattern.MatchString(c.Date) {
			errs = append(errs, FieldError{Field: fmt.Sprintf("certifications[%d].date", i), Message: "must be YYYY-MM"})
		}
	}
	for i, l := range d.Languages {
		if strings.TrimSpace(l.Name) == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("languages[%d].name", i), Message: "required"})
		}
	}
	return errs
}

func isWebURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
