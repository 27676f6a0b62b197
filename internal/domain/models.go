package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReminderPreference holds a user's daily reminder settings and the
// scheduling bookkeeping the poller and delivery executor maintain.
//
// FireTimeUTC is the user's local fire time already converted to UTC;
// UTCOffset is kept so the local time can be reconstructed for display.
type ReminderPreference struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID          string             `json:"user_id" bson:"user_id"`
	Enabled         bool               `json:"enabled" bson:"enabled"`
	FireTimeUTC     string             `json:"fire_time_utc" bson:"fire_time_utc"`
	UTCOffset       string             `json:"utc_offset" bson:"utc_offset"`
	NextFireAt      *time.Time         `json:"next_fire_at,omitempty" bson:"next_fire_at,omitempty"`
	ClaimedAt       *time.Time         `json:"claimed_at,omitempty" bson:"claimed_at,omitempty"`
	LastAttemptAt   *time.Time         `json:"last_attempt_at,omitempty" bson:"last_attempt_at,omitempty"`
	LastDeliveredAt *time.Time         `json:"last_delivered_at,omitempty" bson:"last_delivered_at,omitempty"`
	LastError       string             `json:"last_error,omitempty" bson:"last_error,omitempty"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// LocalFireTime returns the fire time in the user's local wall clock.
func (p *ReminderPreference) LocalFireTime() (string, error) {
	return FromUTC(p.FireTimeUTC, p.UTCOffset)
}

// SlotServiced reports whether the given slot has already been delivered.
// LastDeliveredAt is always stamped with the exact NextFireAt value that was
// serviced, never wall-clock time, so equality comparison is safe here.
func (p *ReminderPreference) SlotServiced(slot time.Time) bool {
	return p.LastDeliveredAt != nil && p.LastDeliveredAt.Equal(slot)
}

// FailedReminder is a reminder whose delivery exhausted its retry budget.
// Records land in the dead-letter collection and can be re-driven manually.
type FailedReminder struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID       string             `json:"user_id" bson:"user_id"`
	Content      string             `json:"content" bson:"content"`
	Slot         time.Time          `json:"slot" bson:"slot"`
	Error        string             `json:"error" bson:"error"`
	AttemptCount int                `json:"attempt_count" bson:"attempt_count"`
	FailedAt     time.Time          `json:"failed_at" bson:"failed_at"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
}

// PreferenceEventType identifies a settings change coming from the chat frontend.
type PreferenceEventType string

const (
	EventPreferenceUpdated  PreferenceEventType = "reminder.preferences.updated"
	EventPreferenceEnabled  PreferenceEventType = "reminder.preferences.enabled"
	EventPreferenceDisabled PreferenceEventType = "reminder.preferences.disabled"
)

// PreferenceEvent is the message published by the chat frontend when a user
// changes reminder settings. LocalTime and UTCOffset are only set on update
// events.
type PreferenceEvent struct {
	Type      PreferenceEventType `json:"type"`
	UserID    string              `json:"user_id"`
	LocalTime string              `json:"local_time,omitempty"`
	UTCOffset string              `json:"utc_offset,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// UpdatePreferenceRequest is the HTTP payload for PUT /preferences/:user_id.
type UpdatePreferenceRequest struct {
	Enabled   *bool  `json:"enabled"`
	LocalTime string `json:"local_time"`
	UTCOffset string `json:"utc_offset"`
}
