package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/shared/errors"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
)

// PreferenceStore is the repository surface the service needs.
type PreferenceStore interface {
	GetByUserID(ctx context.Context, userID string) (*domain.ReminderPreference, error)
	Upsert(ctx context.Context, prefs *domain.ReminderPreference) error
}

// PreferenceService applies user settings changes: enable/disable and
// fire-time updates. Every mutation recomputes or clears next_fire_at, the
// only two places outside the delivery executor where the schedule moves.
type PreferenceService struct {
	store PreferenceStore
	now   func() time.Time
	log   *logger.Logger
}

// NewPreferenceService creates a preference service. now is injectable for
// tests; pass nil for wall clock.
func NewPreferenceService(store PreferenceStore, now func() time.Time, log *logger.Logger) *PreferenceService {
	if now == nil {
		now = time.Now
	}
	return &PreferenceService{store: store, now: now, log: log}
}

// Get returns a user's reminder preference.
func (s *PreferenceService) Get(ctx context.Context, userID string) (*domain.ReminderPreference, error) {
	return s.store.GetByUserID(ctx, userID)
}

// Update applies a settings change. LocalTime and UTCOffset must be set
// together; the stored fire time is the UTC conversion of the pair.
func (s *PreferenceService) Update(ctx context.Context, userID string, req *domain.UpdatePreferenceRequest) (*domain.ReminderPreference, error) {
	pref, err := s.store.GetByUserID(ctx, userID)
	if err == domain.ErrPreferenceNotFound {
		pref = &domain.ReminderPreference{UserID: userID, UTCOffset: "+0"}
	} else if err != nil {
		return nil, err
	}

	if req.LocalTime != "" || req.UTCOffset != "" {
		if req.LocalTime == "" || req.UTCOffset == "" {
			return nil, errors.NewValidationError("local_time and utc_offset must be set together", nil)
		}
		if !domain.IsValidOffset(req.UTCOffset) {
			return nil, errors.NewValidationError(fmt.Sprintf("invalid utc_offset %q", req.UTCOffset), nil)
		}
		fireTimeUTC, err := domain.ToUTC(req.LocalTime, req.UTCOffset)
		if err != nil {
			return nil, errors.NewValidationError(err.Error(), err)
		}
		pref.FireTimeUTC = fireTimeUTC
		pref.UTCOffset = req.UTCOffset
	}

	if req.Enabled != nil {
		pref.Enabled = *req.Enabled
	}

	if err := s.reschedule(pref); err != nil {
		return nil, err
	}

	if err := s.store.Upsert(ctx, pref); err != nil {
		return nil, err
	}

	s.logChange(pref)
	return pref, nil
}

// ApplyEvent folds a preference event from the chat frontend into the store.
func (s *PreferenceService) ApplyEvent(ctx context.Context, event *domain.PreferenceEvent) error {
	switch event.Type {
	case domain.EventPreferenceUpdated:
		enabled := true
		_, err := s.Update(ctx, event.UserID, &domain.UpdatePreferenceRequest{
			Enabled:   &enabled,
			LocalTime: event.LocalTime,
			UTCOffset: event.UTCOffset,
		})
		return err
	case domain.EventPreferenceEnabled:
		enabled := true
		_, err := s.Update(ctx, event.UserID, &domain.UpdatePreferenceRequest{Enabled: &enabled})
		return err
	case domain.EventPreferenceDisabled:
		enabled := false
		_, err := s.Update(ctx, event.UserID, &domain.UpdatePreferenceRequest{Enabled: &enabled})
		return err
	default:
		return fmt.Errorf("unknown preference event type: %s", event.Type)
	}
}

// reschedule recomputes next_fire_at from the current settings. Disabled
// users get the schedule cleared.
func (s *PreferenceService) reschedule(pref *domain.ReminderPreference) error {
	if !pref.Enabled {
		pref.NextFireAt = nil
		return nil
	}

	if pref.FireTimeUTC == "" {
		return errors.NewValidationError("cannot enable reminders without a fire time", nil)
	}

	next, err := domain.NextFireInstant(pref.FireTimeUTC, s.now())
	if err != nil {
		return errors.NewValidationError(err.Error(), err)
	}
	pref.NextFireAt = &next
	return nil
}

func (s *PreferenceService) logChange(pref *domain.ReminderPreference) {
	if !pref.Enabled {
		s.log.Info("reminders disabled", "user_id", pref.UserID)
		return
	}

	local, err := pref.LocalFireTime()
	if err != nil {
		local = pref.FireTimeUTC
	}
	display, err := domain.FormatWithOffset(local, pref.UTCOffset)
	if err != nil {
		display = local
	}
	s.log.Info("reminder schedule updated",
		"user_id", pref.UserID,
		"fire_time", display,
		"next_fire_at", pref.NextFireAt.Format(time.RFC3339),
	)
}
