package resumes

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(errs []FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestStepTable(t *testing.T) {
	require.Len(t, Steps, 8)
	for i, s := range Steps {
		assert.Equal(t, i+1, s.Number)
	}
	extras, ok := StepByNumber(StepExtras)
	require.True(t, ok)
	assert.True(t, extras.Optional)
	_, ok = StepByNumber(9)
	assert.False(t, ok)
}

func TestValidateCompleteResume(t *testing.T) {
	v := Validator{Templates: testCatalog}
	r := Resume{TemplateID: "classic", Data: completeData()}
	for _, state := range v.States(r) {
		assert.True(t, state.Valid, "step %d (%s): %+v", state.Number, state.Key, state.Errors)
	}
}

func TestValidatePersonal(t *testing.T) {
	errs := validatePersonal(Personal{Email: "not-an-email", Phone: "call me", Links: []Link{{URL: "javascript:alert(1)"}}})
	assert.ElementsMatch(t, []string{"personal.fullName", "personal.email", "personal.phone", "personal.links[0].url"}, fields(errs))

	errs = validatePersonal(Personal{FullName: "Ada"})
	assert.Equal(t, []string{"personal.email"}, fields(errs))
	assert.Equal(t, "required", errs[0].Message)
}

func TestValidateExperienceDates(t *testing.T) {
	cases := []struct {
		name string
		item Experience
		want []string
	}{
		{"bad month", Experience{Title: "a", Company: "b", StartDate: "2020-13", EndDate: "2021-01"}, []string{"experience[0].startDate"}},
		{"end before start", Experience{Title: "a", Company: "b", StartDate: "2021-05", EndDate: "2021-04"}, []string{"experience[0].endDate"}},
		{"current with end", Experience{Title: "a", Company: "b", StartDate: "2021-05", EndDate: "2022-01", Current: true}, []string{"experience[0].endDate"}},
		{"current without end", Experience{Title: "a", Company: "b", StartDate: "2021-05", Current: true}, nil},
		{"past without end", Experience{Title: "a", Company: "b", StartDate: "2021-05"}, []string{"experience[0].endDate"}},
		{"missing fields", Experience{}, []string{"experience[0].title", "experience[0].company", "experience[0].endDate", "experience[0].startDate"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := fields(validateExperience([]Experience{tc.item}))
			if tc.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.ElementsMatch(t, tc.want, got)
		})
	}
}

func TestValidateEducationRequiresSomeHistory(t *testing.T) {
	v := Validator{}
	errs, err := v.ValidateStep(StepEducation, Resume{})
	require.NoError(t, err)
	assert.Equal(t, []string{"education"}, fields(errs))

	errs, err = v.ValidateStep(StepEducation, Resume{Data: ResumeData{Experience: []Experience{{Title: "a"}}}})
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidateSkillsAndSummary(t *testing.T) {
	errs := validateSkills([]Skill{{Name: "Go"}, {Name: "go"}, {Name: ""}})
	assert.ElementsMatch(t, []string{"skills[1].name", "skills[2].name", "skills"}, fields(errs))

	assert.NotEmpty(t, validateSummary("too short"))
	assert.NotEmpty(t, validateSummary(strings.Repeat("x", 1201)))
	assert.Empty(t, validateSummary(strings.Repeat("é", 30)))
}

func TestValidateTemplateAndReview(t *testing.T) {
	v := Validator{Templates: testCatalog}
	r := Resume{TemplateID: "unknown", Data: completeData()}

	errs, err := v.ValidateStep(StepTemplate, r)
	require.NoError(t, err)
	assert.Equal(t, []string{"templateId"}, fields(errs))

	errs, err = v.ValidateStep(StepReview, r)
	require.NoError(t, err)
	assert.Equal(t, []string{"templateId"}, fields(errs))
}

func TestReviewIgnoresOptionalExtras(t *testing.T) {
	v := Validator{Templates: testCatalog}
	data := completeData()
	data.Projects = []Project{{URL: "ftp://nope"}}
	r := Resume{TemplateID: "classic", Data: data}

	extras, _ := v.ValidateStep(StepExtras, r)
	assert.Len(t, extras, 2)
	review, _ := v.ValidateStep(StepReview, r)
	assert.Empty(t, review)
}

func TestValidateUnknownStep(t *testing.T) {
	_, err := Validator{}.ValidateStep(42, Resume{})
	assert.True(t, errors.Is(err, ErrUnknownStep))
}
