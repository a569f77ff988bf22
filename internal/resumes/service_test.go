package resumes

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, delay time.Duration) *Service {
	t.Helper()
	svc := NewService(NewMemoryRepo(), testCatalog, delay)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc
}

func TestCreateDefaults(t *testing.T) {
	svc := newTestService(t, time.Hour)
	r, err := svc.Create(context.Background(), "u1", CreateInput{})
	require.NoError(t, err)
	assert.Equal(t, defaultTitle, r.Title)
	assert.Equal(t, "classic", r.TemplateID)
	assert.Equal(t, StepPersonal, r.CurrentStep)
	assert.Equal(t, StatusDraft, r.Status)
	assert.Equal(t, 1, r.Version)
	assert.NotNil(t, r.Data.Experience)

	_, err = svc.Create(context.Background(), "u1", CreateInput{TemplateID: "nope"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestUpdateOptimisticVersion(t *testing.T) {
	svc := newTestService(t, time.Hour)
	ctx := context.Background()
	r, err := svc.Create(ctx, "u1", CreateInput{Title: "CV"})
	require.NoError(t, err)

	v := 1
	updated, err := svc.Update(ctx, "u1", r.ID, UpdateInput{Title: "CV v2", Data: completeData(), Version: &v})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)

	_, err = svc.Update(ctx, "u1", r.ID, UpdateInput{Title: "stale", Version: &v})
	assert.True(t, errors.Is(err, ErrVersionConflict))

	_, err = svc.Update(ctx, "u2", r.ID, UpdateInput{Title: "other user"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPatchSectionReplacesOnlyThatSection(t *testing.T) {
	svc := newTestService(t, time.Hour)
	ctx := context.Background()
	data := completeData()
	r, err := svc.Create(ctx, "u1", CreateInput{Data: &data})
	require.NoError(t, err)

	out, err := svc.PatchSection(ctx, "u1", r.ID, SectionPersonal, json.RawMessage(`{"fullName":"Grace Hopper","email":"grace@example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", out.Data.Personal.FullName)
	assert.Empty(t, out.Data.Personal.Links, "replacing a section must not keep old fields")
	assert.Len(t, out.Data.Skills, 3)

	_, err = svc.PatchSection(ctx, "u1", r.ID, "hobbies", json.RawMessage(`[]`))
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = svc.PatchSection(ctx, "u1", r.ID, SectionSkills, json.RawMessage(`[{"name":"Go","colour":"blue"}]`))
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestAutosaveFlushedOnRead(t *testing.T) {
	svc := newTestService(t, time.Hour)
	ctx := context.Background()
	r, err := svc.Create(ctx, "u1", CreateInput{})
	require.NoError(t, err)

	require.NoError(t, svc.Autosave(ctx, "u1", r.ID, map[string]json.RawMessage{"summary": json.RawMessage(`"draft one"`)}))
	require.NoError(t, svc.Autosave(ctx, "u1", r.ID, map[string]json.RawMessage{"summary": json.RawMessage(`"draft two"`)}))

	stored, err := svc.Repo.Get(ctx, "u1", r.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Data.Summary, "nothing is written before the debounce fires")

	got, err := svc.Get(ctx, "u1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft two", got.Data.Summary)
	assert.Equal(t, 2, got.Version)
}

func TestAutosaveFlushesAfterQuietPeriod(t *testing.T) {
	svc := newTestService(t, 30*time.Millisecond)
	ctx := context.Background()
	r, err := svc.Create(ctx, "u1", CreateInput{})
	require.NoError(t, err)

	require.NoError(t, svc.Autosave(ctx, "u1", r.ID, map[string]json.RawMessage{"skills": json.RawMessage(`[{"name":"Go"}]`)}))
	require.Eventually(t, func() bool {
		stored, err := svc.Repo.Get(ctx, "u1", r.ID)
		return err == nil && len(stored.Data.Skills) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestAutosaveRejectsBadDraft(t *testing.T) {
	svc := newTestService(t, time.Hour)
	ctx := context.Background()
	r, err := svc.Create(ctx, "u1", CreateInput{})
	require.NoError(t, err)

	err = svc.Autosave(ctx, "u1", r.ID, map[string]json.RawMessage{"skills": json.RawMessage(`"not a list"`)})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	err = svc.Autosave(ctx, "u1", "missing", map[string]json.RawMessage{"summary": json.RawMessage(`"x"`)})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, svc.Drafts.Pending(r.ID))
}

func TestCompleteStepAdvancesAndCompletes(t *testing.T) {
	svc := newTestService(t, time.Hour)
	ctx := context.Background()
	r, err := svc.Create(ctx, "u1", CreateInput{})
	require.NoError(t, err)

	_, err = svc.CompleteStep(ctx, "u1", r.ID, StepPersonal)
	var stepErr *StepInvalidError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepPersonal, stepErr.Step)
	assert.NotEmpty(t, stepErr.Errors)

	data := completeData()
	_, err = svc.Update(ctx, "u1", r.ID, UpdateInput{TemplateID: "modern", Data: data})
	require.NoError(t, err)

	out, err := svc.CompleteStep(ctx, "u1", r.ID, StepPersonal)
	require.NoError(t, err)
	assert.Equal(t, StepExperience, out.CurrentStep)

	// Completing an earlier step never moves the wizard backwards.
	out, err = svc.CompleteStep(ctx, "u1", r.ID, StepTemplate)
	require.NoError(t, err)
	assert.Equal(t, StepReview, out.CurrentStep)
	out, err = svc.CompleteStep(ctx, "u1", r.ID, StepSkills)
	require.NoError(t, err)
	assert.Equal(t, StepReview, out.CurrentStep)

	out, err = svc.CompleteStep(ctx, "u1", r.ID, StepReview)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, out.Status)

	_, err = svc.CompleteStep(ctx, "u1", r.ID, 0)
	assert.True(t, errors.Is(err, ErrUnknownStep))
}

func TestDuplicateAndDelete(t *testing.T) {
	svc := newTestService(t, time.Hour)
	ctx := context.Background()
	data := completeData()
	r, err := svc.Create(ctx, "u1", CreateInput{Title: "Main", Data: &data})
	require.NoError(t, err)

	dup, err := svc.Duplicate(ctx, "u1", r.ID)
	require.NoError(t, err)
	assert.NotEqual(t, r.ID, dup.ID)
	assert.Equal(t, "Main (copy)", dup.Title)
	assert.Equal(t, r.Data.Personal.FullName, dup.Data.Personal.FullName)

	require.NoError(t, svc.Delete(ctx, "u1", r.ID))
	_, err = svc.Get(ctx, "u1", r.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClaimGuestIncludesPendingDrafts(t *testing.T) {
	svc := newTestService(t, time.Hour)
	ctx := context.Background()
	r, err := svc.Create(ctx, "guest:g1", CreateInput{})
	require.NoError(t, err)
	require.NoError(t, svc.Autosave(ctx, "guest:g1", r.ID, map[string]json.RawMessage{"summary": json.RawMessage(`"from the guest session"`)}))

	n, err := svc.ClaimGuest(ctx, "guest:g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.Get(ctx, "u1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, "from the guest session", got.Data.Summary)
}

func TestTextRendering(t *testing.T) {
	r := Resume{Data: completeData()}
	r.Data.Experience[0].Current = true
	r.Data.Experience[0].EndDate = ""
	text := PlainText(r)
	assert.True(t, strings.HasPrefix(text, "Ada Lovelace\n"))
	assert.Contains(t, text, "EXPERIENCE\nAnalyst - Analytical Engine Ltd\n1842-01 – Present\n- Translated")
	assert.Contains(t, text, "SKILLS\nMathematics, Algorithms, Technical writing (expert)")

	md := Markdown(r, []string{"skills", "bogus", "summary"})
	assert.True(t, strings.HasPrefix(md, "# Ada Lovelace\n"))
	assert.Less(t, strings.Index(md, "## Skills"), strings.Index(md, "## Summary"))
	assert.Less(t, strings.Index(md, "## Summary"), strings.Index(md, "## Experience"))
	assert.Contains(t, md, "- [GitHub](https://github.com/ada)")
}
