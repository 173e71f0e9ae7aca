package sequence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/retreat-registration-backend/internal/email"
)

func TestNextSendTime_AbsoluteFromEnrollment(t *testing.T) {
	enrolledAt := time.Date(2027, 3, 1, 9, 30, 0, 0, time.UTC)
	want := []time.Time{
		enrolledAt,
		enrolledAt.AddDate(0, 0, 3),
		enrolledAt.AddDate(0, 0, 7),
		enrolledAt.AddDate(0, 0, 14),
		enrolledAt.AddDate(0, 0, 30),
	}
	for stage, w := range want {
		got, err := NextSendTime(stage, enrolledAt)
		require.NoError(t, err)
		assert.Equal(t, w, got, "stage %d", stage)
	}
}

func TestNextSendTime_Monotonic(t *testing.T) {
	prev := time.Time{}
	for stage := range DefaultCadence {
		got, err := NextSendTime(stage, enrolled)
		require.NoError(t, err)
		assert.False(t, got.Before(prev), "stage %d due before stage %d", stage, stage-1)
		prev = got
	}
}

func TestTemplateFor(t *testing.T) {
	cases := map[int]Template{
		0: email.TemplateSequenceWelcome,
		1: email.TemplateSequenceStory,
		2: email.TemplateSequenceGear,
		3: email.TemplateSequenceItinerary,
		4: email.TemplateSequenceLastCall,
	}
	for stage, want := range cases {
		got, err := TemplateFor(stage)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestUnknownStage(t *testing.T) {
	for _, stage := range []int{-1, len(DefaultCadence), 99} {
		_, err := NextSendTime(stage, enrolled)
		assert.ErrorIs(t, err, ErrUnknownStage)
		_, err = TemplateFor(stage)
		assert.ErrorIs(t, err, ErrUnknownStage)
	}
}

func TestDefaultCadenceTemplatesRender(t *testing.T) {
	require.NoError(t, DefaultCadence.Validate())
	for stage, step := range DefaultCadence {
		r, err := email.Render(string(step.Template), email.SequenceData{
			FirstName:      "Sam",
			RetreatName:    "Coastal Photo Retreat",
			SiteURL:        "https://retreat.example",
			UnsubscribeURL: "https://retreat.example/unsubscribe",
			Stage:          stage,
		})
		require.NoError(t, err, "stage %d", stage)
		assert.NotEmpty(t, r.Subject)
		assert.NotEmpty(t, r.HTML)
	}
}
