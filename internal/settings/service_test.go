package settings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type knownTemplates map[string]bool

func (k knownTemplates) Exists(id string) bool { return k[id] }

func ptr[T any](v T) *T { return &v }

func newTestService() *Service {
	svc := NewService(NewMemoryRepo(), knownTemplates{"modern": true})
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return fixed }
	return svc
}

func TestGetReturnsDefaults(t *testing.T) {
	st, err := newTestService().Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, Defaults("user-1"), st)
	assert.Equal(t, VisibilityPrivate, st.ProfileVisibility)
	assert.True(t, st.EmailNotifications)
}

func TestUpdateMergesFields(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	st, err := svc.Update(ctx, "user-1", UpdateInput{
		Locale:            ptr("en-GB"),
		DefaultTemplateID: ptr("modern"),
		DataRetentionDays: ptr(90),
	})
	require.NoError(t, err)
	assert.Equal(t, "en-GB", st.Locale)
	assert.Equal(t, 90, st.DataRetentionDays)

	st, err = svc.Update(ctx, "user-1", UpdateInput{MarketingEmails: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, "en-GB", st.Locale)
	assert.Equal(t, "modern", st.DefaultTemplateID)
	assert.True(t, st.MarketingEmails)

	got, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, st, got)
}

func TestUpdateValidation(t *testing.T) {
	svc := newTestService()
	_, err := svc.Update(context.Background(), "user-1", UpdateInput{
		Locale:            ptr("english"),
		DefaultTemplateID: ptr("missing"),
		ProfileVisibility: ptr("public"),
		DataRetentionDays: ptr(7),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, ErrInvalidInput)

	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"locale", "defaultTemplateId", "profileVisibility", "dataRetentionDays"}, fields)

	st, err := svc.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "en", st.Locale)
}
