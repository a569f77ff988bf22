package ai

import (
	"strings"
	"unicode/utf8"
)

// Input carries every field any function may read. Each function declares
// which of them it requires.
type Input struct {
	ResumeText     string   `json:"resumeText"`
	ResumeID       string   `json:"resumeId"`
	FileID         string   `json:"fileId"`
	JobDescription string   `json:"jobDescription"`
	CompanyName    string   `json:"companyName"`
	Tone           string   `json:"tone"`
	Focus          string   `json:"focus"`
	Question       string   `json:"question"`
	Answer         string   `json:"answer"`
	Summary        string   `json:"summary"`
	TargetRole     string   `json:"targetRole"`
	Bullets        []string `json:"bullets"`
	Text           string   `json:"text"`
}

// Field names used in Function.Required.
const (
	FieldResumeText     = "resumeText"
	FieldJobDescription = "jobDescription"
	FieldQuestion       = "question"
	FieldAnswer         = "answer"
	FieldSummary        = "summary"
	FieldBullets        = "bullets"
	FieldText           = "text"
)

const (
	maxPromptFieldRunes = 12000
	maxBullets          = 20
)

func (in Input) has(field string) bool {
	switch field {
	case FieldResumeText:
		return strings.TrimSpace(in.ResumeText) != ""
	case FieldJobDescription:
		return strings.TrimSpace(in.JobDescription) != ""
	case FieldQuestion:
		return strings.TrimSpace(in.Question) != ""
	case FieldAnswer:
		return strings.TrimSpace(in.Answer) != ""
	case FieldSummary:
		return strings.TrimSpace(in.Summary) != ""
	case FieldText:
		return strings.TrimSpace(in.Text) != ""
	case FieldBullets:
		for _, b := range in.Bullets {
			if strings.TrimSpace(b) != "" {
				return true
			}
		}
	}
	return false
}

// missing returns the required fields absent from in, in declaration order.
func (in Input) missing(required []string) []string {
	var out []string
	for _, f := range required {
		if !in.has(f) {
			out = append(out, f)
		}
	}
	return out
}

// trimmed returns a copy with whitespace trimmed and long fields truncated.
func (in Input) trimmed() Input {
	in.ResumeText = truncateRunes(strings.TrimSpace(in.ResumeText), maxPromptFieldRunes)
	in.JobDescription = truncateRunes(strings.TrimSpace(in.JobDescription), maxPromptFieldRunes)
	in.Text = truncateRunes(strings.TrimSpace(in.Text), maxPromptFieldRunes)
	in.Answer = truncateRunes(strings.TrimSpace(in.Answer), maxPromptFieldRunes)
	in.Summary = truncateRunes(strings.TrimSpace(in.Summary), maxPromptFieldRunes)
	in.Question = strings.TrimSpace(in.Question)
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.Tone = strings.TrimSpace(in.Tone)
	in.Focus = strings.TrimSpace(in.Focus)
	in.TargetRole = strings.TrimSpace(in.TargetRole)

	bullets := make([]string, 0, len(in.Bullets))
	for _, b := range in.Bullets {
		if b = strings.TrimSpace(b); b != "" {
			bullets = append(bullets, b)
		}
		if len(bullets) == maxBullets {
			break
		}
	}
	in.Bullets = bullets
	return in
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
