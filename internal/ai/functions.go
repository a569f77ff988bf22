package ai

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"cvbuilder/internal/resumes"
	"cvbuilder/internal/templates"
)

// Function is one AI proxy operation: a prompt builder, a decoder for the
// model's JSON and a fallback used when that JSON cannot be parsed.
type Function struct {
	Name        string
	Description string
	Required    []string

	system      string
	temperature float32
	maxTokens   int
	prompt      func(Input) string
	decode      func(text string) (any, error)
	fallback    func(Input) any
}

var errIncomplete = errors.New("ai: model output is missing required fields")

const jsonOnly = "Respond with a single JSON object and nothing else. Do not wrap it in markdown."

var registry = map[string]Function{}

func register(f Function) {
	if _, dup := registry[f.Name]; dup {
		panic("ai: duplicate function " + f.Name)
	}
	registry[f.Name] = f
}

// Lookup returns the named function.
func Lookup(name string) (Function, bool) {
	f, ok := registry[name]
	return f, ok
}

// Functions returns every registered function ordered by name.
func Functions() []Function {
	out := make([]Function, 0, len(registry))
	for _, f := range registry {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// needsResumeText reports whether the function reads the résumé text, which
// callers may supply indirectly through resumeId or fileId.
func (f Function) needsResumeText() bool {
	for _, r := range f.Required {
		if r == FieldResumeText {
			return true
		}
	}
	return false
}

func decodeAs[T any](finish func(*T) error) func(string) (any, error) {
	return func(text string) (any, error) {
		var v T
		if err := decodeModelJSON(text, &v); err != nil {
			return nil, err
		}
		if finish != nil {
			if err := finish(&v); err != nil {
				return nil, err
			}
		}
		return v, nil
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func jobContext(in Input) string {
	if in.JobDescription == "" {
		return "No job description was provided; evaluate against general best practice for the candidate's field."
	}
	return "Job description:\n" + in.JobDescription
}

// ATSScore is the result of ats-score.
type ATSScore struct {
	Score           int            `json:"score"`
	Summary         string         `json:"summary"`
	Strengths       []string       `json:"strengths"`
	Improvements    []string       `json:"improvements"`
	MissingKeywords []string       `json:"missingKeywords"`
	SectionScores   map[string]int `json:"sectionScores"`
}

// CoverLetter is the result of cover-letter.
type CoverLetter struct {
	Subject  string `json:"subject"`
	Greeting string `json:"greeting"`
	Body     string `json:"body"`
	Closing  string `json:"closing"`
	HTML     string `json:"html"`
}

type InterviewQuestion struct {
	Category    string `json:"category"`
	Question    string `json:"question"`
	WhyAsked    string `json:"whyAsked"`
	ModelAnswer string `json:"modelAnswer"`
	Tips        string `json:"tips"`
}

// InterviewPrep is the result of interview-questions.
type InterviewPrep struct {
	Role      string              `json:"role"`
	Questions []InterviewQuestion `json:"questions"`
	Pitch     string              `json:"pitch"`
	Summary   string              `json:"summary"`
}

// AnswerFeedback is the result of interview-feedback.
type AnswerFeedback struct {
	Score          int      `json:"score"`
	Strengths      []string `json:"strengths"`
	Improvements   []string `json:"improvements"`
	ImprovedAnswer string   `json:"improvedAnswer"`
}

type OptimizedSummary struct {
	Summary   string `json:"summary"`
	Rationale string `json:"rationale"`
}

type ImprovedBullets struct {
	Bullets []string `json:"bullets"`
}

type SkillSuggestions struct {
	Technical []string `json:"technical"`
	Soft      []string `json:"soft"`
}

// JobMatch is the result of job-match.
type JobMatch struct {
	MatchPercent   int      `json:"matchPercent"`
	Matched        []string `json:"matched"`
	Missing        []string `json:"missing"`
	Recommendation string   `json:"recommendation"`
}

func init() {
	register(Function{
		Name:        "ats-score",
		Description: "Score a résumé against applicant tracking systems and an optional job description.",
		Required:    []string{FieldResumeText},
		system:      "You are an expert ATS (applicant tracking system) reviewer and career coach. " + jsonOnly,
		temperature: 0.2,
		maxTokens:   1500,
		prompt: func(in Input) string {
			return fmt.Sprintf(`Evaluate this résumé for ATS compatibility.

%s

Résumé:
%s

Return JSON with exactly this structure:
{
  "score": 0-100,
  "summary": "two sentence overall assessment",
  "strengths": ["..."],
  "improvements": ["specific, actionable change"],
  "missingKeywords": ["keyword from the job description absent in the résumé"],
  "sectionScores": {"summary": 0-100, "experience": 0-100, "education": 0-100, "skills": 0-100, "formatting": 0-100}
}`, jobContext(in), in.ResumeText)
		},
		decode: decodeAs(func(v *ATSScore) error {
			if v.Summary == "" && len(v.Strengths) == 0 && len(v.Improvements) == 0 {
				return errIncomplete
			}
			v.Score = clamp(v.Score, 0, 100)
			for k, s := range v.SectionScores {
				v.SectionScores[k] = clamp(s, 0, 100)
			}
			if v.SectionScores == nil {
				v.SectionScores = map[string]int{}
			}
			v.Strengths = nonNil(v.Strengths)
			v.Improvements = nonNil(v.Improvements)
			v.MissingKeywords = nonNil(v.MissingKeywords)
			return nil
		}),
		fallback: func(Input) any {
			return ATSScore{
				Summary:         "We could not analyse this résumé right now. Please try again.",
				Strengths:       []string{},
				Improvements:    []string{},
				MissingKeywords: []string{},
				SectionScores:   map[string]int{},
			}
		},
	})

	register(Function{
		Name:        "cover-letter",
		Description: "Write a tailored cover letter from a résumé and a job description.",
		Required:    []string{FieldResumeText, FieldJobDescription},
		system:      "You are a professional career writer who writes concise, specific cover letters. " + jsonOnly,
		temperature: 0.7,
		maxTokens:   1500,
		prompt: func(in Input) string {
			return fmt.Sprintf(`Write a cover letter for this candidate.

Company: %s
Tone: %s

%s

Résumé:
%s

Keep the body under 350 words, in three or four paragraphs separated by blank lines. Markdown emphasis is allowed in the body.
Return JSON with exactly this structure:
{"subject": "...", "greeting": "...", "body": "...", "closing": "..."}`,
				orDefault(in.CompanyName, "the hiring company"), orDefault(in.Tone, "professional"), jobContext(in), in.ResumeText)
		},
		decode: decodeAs(func(v *CoverLetter) error {
			if strings.TrimSpace(v.Body) == "" {
				return errIncomplete
			}
			html, err := templates.MarkdownHTML(coverLetterMarkdown(*v))
			if err != nil {
				return err
			}
			v.HTML = string(html)
			return nil
		}),
		fallback: func(in Input) any {
			letter := CoverLetter{
				Subject:  "Application",
				Greeting: "Dear Hiring Manager,",
				Body:     "We could not generate a cover letter right now. Please try again in a moment.",
				Closing:  "Kind regards,",
			}
			if in.CompanyName != "" {
				letter.Subject = "Application to " + in.CompanyName
			}
			if html, err := templates.MarkdownHTML(coverLetterMarkdown(letter)); err == nil {
				letter.HTML = string(html)
			}
			return letter
		},
	})

	register(Function{
		Name:        "interview-questions",
		Description: "Prepare likely interview questions with model answers.",
		Required:    []string{FieldResumeText, FieldJobDescription},
		system:      "You are an experienced hiring manager preparing a candidate for an interview. " + jsonOnly,
		temperature: 0.5,
		maxTokens:   3000,
		prompt: func(in Input) string {
			return fmt.Sprintf(`Prepare interview questions for this candidate.

Focus: %s

%s

Résumé:
%s

Generate 8 questions mixing behavioral, technical and role-specific categories.
Return JSON with exactly this structure:
{
  "role": "role title",
  "questions": [{"category": "behavioral|technical|role", "question": "...", "whyAsked": "...", "modelAnswer": "...", "tips": "..."}],
  "pitch": "a 30 second self-introduction",
  "summary": "what the interviewer is likely to probe"
}`, orDefault(in.Focus, "balanced"), jobContext(in), in.ResumeText)
		},
		decode: decodeAs(func(v *InterviewPrep) error {
			if len(v.Questions) == 0 {
				return errIncomplete
			}
			return nil
		}),
		fallback: func(Input) any {
			return InterviewPrep{
				Questions: []InterviewQuestion{
					{Category: "behavioral", Question: "Tell me about yourself.", Tips: "Keep it under two minutes and tie your experience to the role."},
					{Category: "behavioral", Question: "Describe a challenge you overcame at work.", Tips: "Use the situation, task, action, result structure."},
					{Category: "role", Question: "Why do you want this role?", Tips: "Refer to specifics from the job description."},
				},
				Summary: "We could not generate tailored questions right now. These are common questions to practise with.",
			}
		},
	})

	register(Function{
		Name:        "interview-feedback",
		Description: "Give feedback on an answer to an interview question.",
		Required:    []string{FieldQuestion, FieldAnswer},
		system:      "You are an interview coach giving direct, constructive feedback. " + jsonOnly,
		temperature: 0.3,
		maxTokens:   1200,
		prompt: func(in Input) string {
			return fmt.Sprintf(`Assess the candidate's answer.

Question: %s

Answer:
%s

%s

Return JSON with exactly this structure:
{"score": 0-10, "strengths": ["..."], "improvements": ["..."], "improvedAnswer": "..."}`,
				in.Question, in.Answer, jobContext(in))
		},
		decode: decodeAs(func(v *AnswerFeedback) error {
			if len(v.Strengths) == 0 && len(v.Improvements) == 0 && v.ImprovedAnswer == "" {
				return errIncomplete
			}
			v.Score = clamp(v.Score, 0, 10)
			v.Strengths = nonNil(v.Strengths)
			v.Improvements = nonNil(v.Improvements)
			return nil
		}),
		fallback: func(in Input) any {
			return AnswerFeedback{
				Strengths:      []string{},
				Improvements:   []string{"We could not assess this answer right now. Please try again."},
				ImprovedAnswer: in.Answer,
			}
		},
	})

	register(Function{
		Name:        "optimize-summary",
		Description: "Rewrite a professional summary to be concise and impactful.",
		Required:    []string{FieldSummary},
		system:      "You are a résumé editor. " + jsonOnly,
		temperature: 0.5,
		maxTokens:   800,
		prompt: func(in Input) string {
			return fmt.Sprintf(`Rewrite this professional summary in at most four sentences, first person implied, no buzzwords.

Target role: %s

Summary:
%s

Return JSON with exactly this structure:
{"summary": "...", "rationale": "one sentence on what changed"}`, orDefault(in.TargetRole, "not specified"), in.Summary)
		},
		decode: decodeAs(func(v *OptimizedSummary) error {
			if strings.TrimSpace(v.Summary) == "" {
				return errIncomplete
			}
			return nil
		}),
		fallback: func(in Input) any {
			return OptimizedSummary{Summary: in.Summary, Rationale: "We could not optimise the summary right now; it is unchanged."}
		},
	})

	register(Function{
		Name:        "improve-bullets",
		Description: "Rewrite experience bullet points with action verbs and measurable impact.",
		Required:    []string{FieldBullets},
		system:      "You are a résumé editor who writes achievement-focused bullet points. " + jsonOnly,
		temperature: 0.5,
		maxTokens:   1200,
		prompt: func(in Input) string {
			var b strings.Builder
			for _, line := range in.Bullets {
				b.WriteString("- ")
				b.WriteString(line)
				b.WriteByte('\n')
			}
			return fmt.Sprintf(`Rewrite each bullet point. Start with a strong action verb and keep any numbers. Do not invent metrics.
Return the same number of bullets in the same order.

Target role: %s

Bullets:
%s
Return JSON with exactly this structure:
{"bullets": ["..."]}`, orDefault(in.TargetRole, "not specified"), b.String())
		},
		decode: decodeAs(func(v *ImprovedBullets) error {
			if len(v.Bullets) == 0 {
				return errIncomplete
			}
			return nil
		}),
		fallback: func(in Input) any {
			return ImprovedBullets{Bullets: append([]string{}, in.Bullets...)}
		},
	})

	register(Function{
		Name:        "suggest-skills",
		Description: "Suggest technical and soft skills worth adding to a résumé.",
		Required:    []string{FieldResumeText},
		system:      "You are a technical recruiter. " + jsonOnly,
		temperature: 0.4,
		maxTokens:   800,
		prompt: func(in Input) string {
			return fmt.Sprintf(`Suggest up to 10 technical and 5 soft skills this candidate could credibly add. Skip skills already listed.

Target role: %s

Résumé:
%s

Return JSON with exactly this structure:
{"technical": ["..."], "soft": ["..."]}`, orDefault(in.TargetRole, "inferred from the résumé"), in.ResumeText)
		},
		decode: decodeAs(func(v *SkillSuggestions) error {
			if len(v.Technical) == 0 && len(v.Soft) == 0 {
				return errIncomplete
			}
			v.Technical = nonNil(v.Technical)
			v.Soft = nonNil(v.Soft)
			return nil
		}),
		fallback: func(Input) any {
			return SkillSuggestions{Technical: []string{}, Soft: []string{}}
		},
	})

	register(Function{
		Name:        "job-match",
		Description: "Estimate how well a résumé matches a job description.",
		Required:    []string{FieldResumeText, FieldJobDescription},
		system:      "You are a recruiter screening candidates. " + jsonOnly,
		temperature: 0.2,
		maxTokens:   1000,
		prompt: func(in Input) string {
			return fmt.Sprintf(`Compare the résumé with the job description.

%s

Résumé:
%s

Return JSON with exactly this structure:
{"matchPercent": 0-100, "matched": ["requirement the candidate meets"], "missing": ["requirement not evidenced"], "recommendation": "..."}`,
				jobContext(in), in.ResumeText)
		},
		decode: decodeAs(func(v *JobMatch) error {
			if v.Recommendation == "" && len(v.Matched) == 0 && len(v.Missing) == 0 {
				return errIncomplete
			}
			v.MatchPercent = clamp(v.MatchPercent, 0, 100)
			v.Matched = nonNil(v.Matched)
			v.Missing = nonNil(v.Missing)
			return nil
		}),
		fallback: func(Input) any {
			return JobMatch{
				Matched:        []string{},
				Missing:        []string{},
				Recommendation: "We could not compare this résumé right now. Please try again.",
			}
		},
	})

	register(Function{
		Name:        "parse-resume",
		Description: "Convert plain résumé text into structured wizard data.",
		Required:    []string{FieldText},
		system:      "You extract structured data from résumés. Copy text faithfully and never invent details. " + jsonOnly,
		temperature: 0,
		maxTokens:   4000,
		prompt: func(in Input) string {
			return fmt.Sprintf(`Extract the résumé below into JSON. Use "" or [] for anything not present. Dates as YYYY-MM when known.

Résumé:
%s

Return JSON with exactly this structure:
{
  "personal": {"fullName": "", "email": "", "phone": "", "location": "", "headline": "", "links": [{"label": "", "url": ""}]},
  "summary": "",
  "experience": [{"title": "", "company": "", "location": "", "startDate": "", "endDate": "", "current": false, "bullets": [""]}],
  "education": [{"school": "", "degree": "", "field": "", "startDate": "", "endDate": "", "grade": ""}],
  "skills": [{"name": "", "level": ""}],
  "projects": [{"name": "", "description": "", "url": "", "highlights": [""]}],
  "certifications": [{"name": "", "issuer": "", "date": "", "url": ""}],
  "languages": [{"name": "", "proficiency": ""}]
}`, in.Text)
		},
		decode: decodeAs(func(v *resumes.ResumeData) error {
			v.Normalize()
			if v.Personal.FullName == "" && len(v.Experience) == 0 && len(v.Education) == 0 {
				return errIncomplete
			}
			return nil
		}),
		fallback: func(in Input) any {
			var d resumes.ResumeData
			d.Personal.FullName = firstLine(in.Text, 80)
			d.Normalize()
			return d
		},
	})
}

func coverLetterMarkdown(l CoverLetter) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.Greeting, l.Body, l.Closing} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}

func firstLine(s string, max int) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return truncateRunes(line, max)
		}
	}
	return ""
}
