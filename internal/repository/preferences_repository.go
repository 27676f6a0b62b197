package repository

import (
	"context"
	"time"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const preferencesCollection = "reminder_preferences"

// claimStaleAfter bounds how long a claim may sit without completion before
// another sweep may reclaim the record. Covers executors that crashed
// mid-delivery, so a user is never wedged forever.
const claimStaleAfter = 10 * time.Minute

// PreferencesRepository handles reminder preference data operations
type PreferencesRepository struct {
	client *mongodb.MongoClient
}

// NewPreferencesRepository creates a new preferences repository
func NewPreferencesRepository(client *mongodb.MongoClient) *PreferencesRepository {
	return &PreferencesRepository{client: client}
}

// EnsureIndexes creates necessary indexes for the due-user scan
func (r *PreferencesRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("user_id_idx").SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "enabled", Value: 1},
				{Key: "next_fire_at", Value: 1},
			},
			Options: options.Index().SetName("due_scan_idx"),
		},
	}

	return r.client.CreateIndexes(ctx, preferencesCollection, indexes)
}

// GetByUserID retrieves the preference record for a specific user
func (r *PreferencesRepository) GetByUserID(ctx context.Context, userID string) (*domain.ReminderPreference, error) {
	var prefs domain.ReminderPreference
	err := r.client.Collection(preferencesCollection).FindOne(ctx, bson.M{"user_id": userID}).Decode(&prefs)

	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrPreferenceNotFound
	}
	if err != nil {
		return nil, err
	}

	return &prefs, nil
}

// Upsert writes the full preference record keyed by user
func (r *PreferencesRepository) Upsert(ctx context.Context, prefs *domain.ReminderPreference) error {
	now := time.Now().UTC()
	prefs.UpdatedAt = now
	if prefs.ID.IsZero() {
		prefs.ID = primitive.NewObjectID()
		prefs.CreatedAt = now
	}

	filter := bson.M{"user_id": prefs.UserID}
	update := bson.M{"$set": prefs}
	opts := options.Update().SetUpsert(true)

	_, err := r.client.Collection(preferencesCollection).UpdateOne(ctx, filter, update, opts)
	return err
}

// FindDue returns enabled preferences whose next fire instant has arrived
// and whose slot has not already been serviced. The serviced check is
// repeated here even though the executor stamps last_delivered_at, so a
// sweep that races a slow reschedule cannot pick the record up again.
func (r *PreferencesRepository) FindDue(ctx context.Context, now time.Time) ([]*domain.ReminderPreference, error) {
	filter := bson.M{
		"enabled":      true,
		"next_fire_at": bson.M{"$ne": nil, "$lte": now},
		"$expr": bson.M{
			"$ne": bson.A{"$last_delivered_at", "$next_fire_at"},
		},
	}

	cursor, err := r.client.Collection(preferencesCollection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var due []*domain.ReminderPreference
	if err = cursor.All(ctx, &due); err != nil {
		return nil, err
	}

	return due, nil
}

// ClaimDue atomically transitions a due record to in-flight. The filter only
// matches while next_fire_at still equals the slot the sweep observed, the
// slot is unserviced, and no live claim exists; a concurrent poller instance
// loses the race and skips the user. Returns false when the claim was not won.
func (r *PreferencesRepository) ClaimDue(ctx context.Context, userID string, slot, now time.Time) (bool, error) {
	staleBefore := now.Add(-claimStaleAfter)

	filter := bson.M{
		"user_id":      userID,
		"enabled":      true,
		"next_fire_at": slot,
		"$and": bson.A{
			bson.M{"$or": bson.A{
				bson.M{"last_delivered_at": bson.M{"$exists": false}},
				bson.M{"last_delivered_at": bson.M{"$ne": slot}},
			}},
			bson.M{"$or": bson.A{
				bson.M{"claimed_at": nil},
				bson.M{"claimed_at": bson.M{"$exists": false}},
				bson.M{"claimed_at": bson.M{"$lt": staleBefore}},
			}},
		},
	}
	update := bson.M{"$set": bson.M{
		"claimed_at": now,
		"updated_at": now,
	}}

	res, err := r.client.Collection(preferencesCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}

	return res.ModifiedCount == 1, nil
}

// MarkAttempt stamps last_attempt_at immediately before a send so a crash
// mid-delivery stays visible on restart.
func (r *PreferencesRepository) MarkAttempt(ctx context.Context, userID string, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"last_attempt_at": at,
		"updated_at":      at,
	}}
	_, err := r.client.Collection(preferencesCollection).UpdateOne(ctx, bson.M{"user_id": userID}, update)
	return err
}

// MarkDelivered records a confirmed send: last_delivered_at is set to the
// exact slot that was serviced (never wall-clock now), the error cleared,
// the claim released, and the schedule advanced to next.
func (r *PreferencesRepository) MarkDelivered(ctx context.Context, userID string, slot, next time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"last_delivered_at": slot,
			"next_fire_at":      next,
			"updated_at":        time.Now().UTC(),
		},
		"$unset": bson.M{
			"last_error": "",
			"claimed_at": "",
		},
	}
	_, err := r.client.Collection(preferencesCollection).UpdateOne(ctx, bson.M{"user_id": userID}, update)
	return err
}

// SetLastError persists the most recent delivery error. The claim stays in
// place; it is released only when the delivery sequence terminates.
func (r *PreferencesRepository) SetLastError(ctx context.Context, userID string, errMsg string) error {
	update := bson.M{
		"$set": bson.M{
			"last_error": errMsg,
			"updated_at": time.Now().UTC(),
		},
	}
	_, err := r.client.Collection(preferencesCollection).UpdateOne(ctx, bson.M{"user_id": userID}, update)
	return err
}

// ReleaseClaim clears claimed_at after a delivery sequence gives up.
// next_fire_at is deliberately left in the past so the next sweep retries
// the user.
func (r *PreferencesRepository) ReleaseClaim(ctx context.Context, userID string) error {
	update := bson.M{
		"$set":   bson.M{"updated_at": time.Now().UTC()},
		"$unset": bson.M{"claimed_at": ""},
	}
	_, err := r.client.Collection(preferencesCollection).UpdateOne(ctx, bson.M{"user_id": userID}, update)
	return err
}

// Disable turns reminders off and clears the schedule. Used both for user
// opt-out and when the gateway reports a permanent failure.
func (r *PreferencesRepository) Disable(ctx context.Context, userID string, reason string) error {
	update := bson.M{
		"$set": bson.M{
			"enabled":    false,
			"last_error": reason,
			"updated_at": time.Now().UTC(),
		},
		"$unset": bson.M{
			"next_fire_at": "",
			"claimed_at":   "",
		},
	}
	_, err := r.client.Collection(preferencesCollection).UpdateOne(ctx, bson.M{"user_id": userID}, update)
	return err
}

// CountEnabled returns the number of users with reminders enabled. Doubles
// as the trivial read used by the health checker.
func (r *PreferencesRepository) CountEnabled(ctx context.Context) (int64, error) {
	return r.client.Collection(preferencesCollection).CountDocuments(ctx, bson.M{"enabled": true})
}
