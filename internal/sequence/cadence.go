// Package sequence drives the post-signup nurture emails: a fixed cadence of
// stages, each due at an absolute offset from the lead's enrollment, sent
// through the notification dispatcher and tracked only in the email event log.
package sequence

import (
	"errors"
	"fmt"
	"time"

	"github.com/nyashahama/retreat-registration-backend/internal/email"
)

// ErrUnknownStage is returned for a stage number outside the cadence.
var ErrUnknownStage = errors.New("sequence: unknown stage")

// Template names the email sent at one stage.
type Template string

// Step is one stage of a cadence.
type Step struct {
	Offset   time.Duration
	Template Template
}

// Cadence maps stage numbers (the slice index, starting at 0) to their offset
// from enrollment and template. Offsets must be non-decreasing.
type Cadence []Step

const day = 24 * time.Hour

// DefaultCadence is the production sequence: welcome immediately, then story,
// gear, itinerary and last call at 3, 7, 14 and 30 days.
var DefaultCadence = Cadence{
	{Offset: 0, Template: email.TemplateSequenceWelcome},
	{Offset: 3 * day, Template: email.TemplateSequenceStory},
	{Offset: 7 * day, Template: email.TemplateSequenceGear},
	{Offset: 14 * day, Template: email.TemplateSequenceItinerary},
	{Offset: 30 * day, Template: email.TemplateSequenceLastCall},
}

func (c Cadence) step(stage int) (Step, error) {
	if stage < 0 || stage >= len(c) {
		return Step{}, fmt.Errorf("%w: %d", ErrUnknownStage, stage)
	}
	return c[stage], nil
}

// NextSendTime is when stage becomes due for a lead enrolled at enrolledAt.
// It does not depend on whether earlier stages went out.
func (c Cadence) NextSendTime(stage int, enrolledAt time.Time) (time.Time, error) {
	s, err := c.step(stage)
	if err != nil {
		return time.Time{}, err
	}
	return enrolledAt.Add(s.Offset), nil
}

// TemplateFor returns the template sent at stage.
func (c Cadence) TemplateFor(stage int) (Template, error) {
	s, err := c.step(stage)
	if err != nil {
		return "", err
	}
	return s.Template, nil
}

// Validate checks the cadence is non-empty with non-decreasing offsets.
func (c Cadence) Validate() error {
	if len(c) == 0 {
		return errors.New("sequence: empty cadence")
	}
	for i, s := range c {
		if s.Template == "" {
			return fmt.Errorf("sequence: stage %d has no template", i)
		}
		if s.Offset < 0 || (i > 0 && s.Offset < c[i-1].Offset) {
			return fmt.Errorf("sequence: stage %d offset %s is out of order", i, s.Offset)
		}
	}
	return nil
}

// NextSendTime uses DefaultCadence.
func NextSendTime(stage int, enrolledAt time.Time) (time.Time, error) {
	return DefaultCadence.NextSendTime(stage, enrolledAt)
}

// TemplateFor uses DefaultCadence.
func TemplateFor(stage int) (Template, error) {
	return DefaultCadence.TemplateFor(stage)
}
