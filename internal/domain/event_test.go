package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDraft(now time.Time) EventDraft {
	return EventDraft{
		Title:       "Robotics Club Demo",
		Description: "Showcase of this term's robot builds",
		StartTime:   now.Add(24 * time.Hour),
		EndTime:     now.Add(26 * time.Hour),
		Venue:       "Engineering Hall",
	}
}

func TestNewPendingEvent_Validation(t *testing.T) {
	now := mustTime(t, "2025-03-01T09:00:00Z")

	t.Run("valid_draft_is_pending", func(t *testing.T) {
		e, err := NewPendingEvent("org-1", validDraft(now), now)
		require.NoError(t, err)
		assert.Equal(t, EventPending, e.Status)
		assert.Equal(t, "org-1", e.OrganizerID)
		assert.NotEmpty(t, e.ID)
		assert.Nil(t, e.ReviewedBy)
	})

	t.Run("fields_are_trimmed", func(t *testing.T) {
		d := validDraft(now)
		d.Title = "  Robotics Club Demo  "
		e, err := NewPendingEvent("org-1", d, now)
		require.NoError(t, err)
		assert.Equal(t, "Robotics Club Demo", e.Title)
	})

	t.Run("reports_every_bad_field", func(t *testing.T) {
		d := validDraft(now)
		d.Title = "ab"
		d.Description = "short"
		d.Venue = strings.Repeat("v", 256)
		d.EndTime = d.StartTime

		_, err := NewPendingEvent("org-1", d, now)
		require.Error(t, err)
		var de *Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "validation_failed", de.Code)
		assert.Contains(t, de.Meta, "title")
		assert.Contains(t, de.Meta, "description")
		assert.Contains(t, de.Meta, "venue")
		assert.Equal(t, "End time must be after start time", de.Meta["endTime"])
	})

	t.Run("missing_organizer", func(t *testing.T) {
		_, err := NewPendingEvent(" ", validDraft(now), now)
		assert.Equal(t, KindValidation, KindOf(err))
	})
}

func TestEvent_ReviewTransitions(t *testing.T) {
	now := mustTime(t, "2025-03-01T09:00:00Z")

	t.Run("approve_is_idempotent", func(t *testing.T) {
		e, _ := NewPendingEvent("org-1", validDraft(now), now)
		assert.True(t, e.Approve("admin-1", now))
		assert.False(t, e.Approve("admin-1", now.Add(time.Minute)))
		assert.Equal(t, EventApproved, e.Status)
		assert.True(t, e.IsApproved())
	})

	t.Run("reject_keeps_reason", func(t *testing.T) {
		e, _ := NewPendingEvent("org-1", validDraft(now), now)
		assert.True(t, e.Reject("admin-1", " wrong venue ", now))
		require.NotNil(t, e.RejectionReason)
		assert.Equal(t, "wrong venue", *e.RejectionReason)
	})

	t.Run("approve_after_reject_clears_reason", func(t *testing.T) {
		e, _ := NewPendingEvent("org-1", validDraft(now), now)
		e.Reject("admin-1", "no", now)
		assert.True(t, e.Approve("admin-1", now))
		assert.Nil(t, e.RejectionReason)
	})
}

func TestNewOutboxMessage(t *testing.T) {
	now := mustTime(t, "2025-03-01T09:00:00Z")
	e, _ := NewPendingEvent("org-1", validDraft(now), now)

	msg, err := NewOutboxMessage(RKEventCreated, "req-1", NewEventPayload(e, "org-1"), now)
	require.NoError(t, err)
	assert.Equal(t, RKEventCreated, msg.RoutingKey)

	var env Envelope[EventPayload]
	require.NoError(t, json.Unmarshal(msg.Body, &env))
	assert.Equal(t, EnvelopeVersion, env.Version)
	assert.Equal(t, msg.MessageID, env.MessageID)
	assert.Equal(t, "req-1", env.TraceID)
	assert.Equal(t, e.ID, env.Payload.EventID)
	assert.Equal(t, "pending", env.Payload.Status)
}
