package resumes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of a résumé.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusComplete Status = "complete"
)

// Resume is a résumé document built through the wizard.
type Resume struct {
	ID          string
	UserID      string
	Title       string
	TemplateID  string
	CurrentStep int
	Status      Status
	Data        ResumeData
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ResumeData holds every section the wizard collects.
type ResumeData struct {
	Personal       Personal        `json:"personal"`
	Summary        string          `json:"summary"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Skills         []Skill         `json:"skills"`
	Projects       []Project       `json:"projects"`
	Certifications []Certification `json:"certifications"`
	Languages      []Language      `json:"languages"`
}

type Personal struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Headline string `json:"headline"`
	Links    []Link `json:"links"`
}

type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type Experience struct {
	Title     string   `json:"title"`
	Company   string   `json:"company"`
	Location  string   `json:"location"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	Current   bool     `json:"current"`
	Bullets   []string `json:"bullets"`
}

type Education struct {
	School    string `json:"school"`
	Degree    string `json:"degree"`
	Field     string `json:"field"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Grade     string `json:"grade"`
}

type Skill struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

type Project struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Highlights  []string `json:"highlights"`
}

type Certification struct {
	Name   string `json:"name"`
	Issuer string `json:"issuer"`
	Date   string `json:"date"`
	URL    string `json:"url"`
}

type Language struct {
	Name        string `json:"name"`
	Proficiency string `json:"proficiency"`
}

// Section names accepted by PATCH and autosave.
const (
	SectionPersonal       = "personal"
	SectionSummary        = "summary"
	SectionExperience     = "experience"
	SectionEducation      = "education"
	SectionSkills         = "skills"
	SectionProjects       = "projects"
	SectionCertifications = "certifications"
	SectionLanguages      = "languages"
)

// Sections lists every section name in document order.
var Sections = []string{
	SectionPersonal,
	SectionSummary,
	SectionExperience,
	SectionEducation,
	SectionSkills,
	SectionProjects,
	SectionCertifications,
	SectionLanguages,
}

// ApplySection decodes raw into the named section of d, replacing it.
func ApplySection(d *ResumeData, section string, raw json.RawMessage) error {
	var err error
	switch section {
	case SectionPersonal:
		err = decodeSection(raw, &d.Personal)
	case SectionSummary:
		err = decodeSection(raw, &d.Summary)
	case SectionExperience:
		err = decodeSection(raw, &d.Experience)
	case SectionEducation:
		err = decodeSection(raw, &d.Education)
	case SectionSkills:
		err = decodeSection(raw, &d.Skills)
	case SectionProjects:
		err = decodeSection(raw, &d.Projects)
	case SectionCertifications:
		err = decodeSection(raw, &d.Certifications)
	case SectionLanguages:
		err = decodeSection(raw, &d.Languages)
	default:
		return fmt.Errorf("%w: unknown section %q", ErrInvalidInput, section)
	}
	if err != nil {
		return fmt.Errorf("%w: section %s: %v", ErrInvalidInput, section, err)
	}
	return nil
}

// decodeSection strictly decodes raw into a fresh T and only then replaces dst.
func decodeSection[T any](raw json.RawMessage, dst *T) error {
	var v T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*dst = v
	return nil
}

// Normalize replaces nil slices with empty ones so JSON always has arrays.
func (d *ResumeData) Normalize() {
	if d.Personal.Links == nil {
		d.Personal.Links = []Link{}
	}
	if d.Experience == nil {
		d.Experience = []Experience{}
	}
	for i := range d.Experience {
		if d.Experience[i].Bullets == nil {
			d.Experience[i].Bullets = []string{}
		}
	}
	if d.Education == nil {
		d.Education = []Education{}
	}
	if d.Skills == nil {
		d.Skills = []Skill{}
	}
	if d.Projects == nil {
		d.Projects = []Project{}
	}
	if d.Certifications == nil {
		d.Certifications = []Certification{}
	}
	if d.Languages == nil {
		d.Languages = []Language{}
	}
}
