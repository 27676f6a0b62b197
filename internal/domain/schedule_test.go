package domain

import (
	"testing"
	"time"
)

func TestNextFireInstant(t *testing.T) {
	now := time.Date(2023, 10, 27, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		fire string
		want time.Time
	}{
		{"later today", "12:00", time.Date(2023, 10, 27, 12, 0, 0, 0, time.UTC)},
		{"already passed", "08:00", time.Date(2023, 10, 28, 8, 0, 0, 0, time.UTC)},
		{"exactly now rolls over", "10:00", time.Date(2023, 10, 28, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextFireInstant(tt.fire, now)
			if err != nil {
				t.Fatalf("NextFireInstant(%q) error: %v", tt.fire, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextFireInstant(%q) = %v, want %v", tt.fire, got, tt.want)
			}
		})
	}
}

func TestNextFireInstantWithinSafetyBuffer(t *testing.T) {
	// 10:00:15 is within the safety buffer of a 10:00 sweep, so the slot
	// must roll over rather than fire immediately.
	now := time.Date(2023, 10, 27, 9, 59, 45, 0, time.UTC)
	got, err := NextFireInstant("10:00", now)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2023, 10, 28, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextFireInstant near buffer = %v, want %v", got, want)
	}
}

func TestNextFireInstantAlwaysStrictlyFuture(t *testing.T) {
	base := time.Date(2023, 10, 27, 0, 0, 0, 0, time.UTC)
	fires := []string{"00:00", "00:01", "06:30", "12:00", "18:45", "23:59"}

	for hour := 0; hour < 24; hour++ {
		now := base.Add(time.Duration(hour) * time.Hour)
		for _, fire := range fires {
			got, err := NextFireInstant(fire, now)
			if err != nil {
				t.Fatal(err)
			}
			if !got.After(now) {
				t.Errorf("NextFireInstant(%q, %v) = %v, not strictly after now", fire, now, got)
			}
			if got.Sub(now) > 24*time.Hour+scheduleSafetyBuffer {
				t.Errorf("NextFireInstant(%q, %v) = %v, more than a day ahead", fire, now, got)
			}
		}
	}
}

func TestNextFireInstantRejectsBadTime(t *testing.T) {
	if _, err := NextFireInstant("24:00", time.Now()); err == nil {
		t.Error("expected error for invalid fire time")
	}
}
