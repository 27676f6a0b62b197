package domain

import "testing"

func TestIsValidOffset(t *testing.T) {
	valid := []string{"+0", "-12", "+14", "+5:30", "-3:30", "+5:45", "0", "-9:15"}
	for _, s := range valid {
		if !IsValidOffset(s) {
			t.Errorf("IsValidOffset(%q) = false, want true", s)
		}
	}

	invalid := []string{"UTC+5", "5", "+15", "+5:60", "", "+", "-13", "+14:30", "-12:01", "5:30", "+5:3", "abc"}
	for _, s := range invalid {
		if IsValidOffset(s) {
			t.Errorf("IsValidOffset(%q) = true, want false", s)
		}
	}
}

func TestToUTC(t *testing.T) {
	tests := []struct {
		name   string
		local  string
		offset string
		want   string
	}{
		{"whole hour east", "12:30", "+2", "10:30"},
		{"whole hour west", "09:00", "-5", "14:00"},
		{"half hour offset", "09:00", "+5:30", "03:30"},
		{"quarter hour offset", "12:00", "+5:45", "06:15"},
		{"wraps back across midnight", "00:30", "+1", "23:30"},
		{"wraps forward across midnight", "23:30", "-2", "01:30"},
		{"zero offset", "08:15", "0", "08:15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToUTC(tt.local, tt.offset)
			if err != nil {
				t.Fatalf("ToUTC(%q, %q) error: %v", tt.local, tt.offset, err)
			}
			if got != tt.want {
				t.Errorf("ToUTC(%q, %q) = %q, want %q", tt.local, tt.offset, got, tt.want)
			}
		})
	}
}

func TestFromUTC(t *testing.T) {
	got, err := FromUTC("10:30", "+2")
	if err != nil {
		t.Fatalf("FromUTC error: %v", err)
	}
	if got != "12:30" {
		t.Errorf("FromUTC(10:30, +2) = %q, want 12:30", got)
	}
}

func TestOffsetRoundTrip(t *testing.T) {
	offsets := []string{"+0", "0", "-12", "+14", "+5:30", "-3:30", "+5:45", "-9:15", "+1", "-2"}
	times := []string{"00:00", "00:30", "06:15", "12:00", "23:59"}

	for _, off := range offsets {
		for _, tm := range times {
			utc, err := ToUTC(tm, off)
			if err != nil {
				t.Fatalf("ToUTC(%q, %q) error: %v", tm, off, err)
			}
			back, err := FromUTC(utc, off)
			if err != nil {
				t.Fatalf("FromUTC(%q, %q) error: %v", utc, off, err)
			}
			if back != tm {
				t.Errorf("round trip %q via offset %q: got %q", tm, off, back)
			}
		}
	}
}

func TestToUTCRejectsInvalidInput(t *testing.T) {
	if _, err := ToUTC("25:00", "+2"); err == nil {
		t.Error("expected error for invalid time")
	}
	if _, err := ToUTC("12:00", "UTC+5"); err == nil {
		t.Error("expected error for invalid offset")
	}
}

func TestFormatWithOffset(t *testing.T) {
	tests := []struct {
		time   string
		offset string
		want   string
	}{
		{"09:00", "+5:30", "09:00 (UTC+5:30)"},
		{"09:00", "-3", "09:00 (UTC-3)"},
		{"09:00", "+0", "09:00 (UTC)"},
		{"09:00", "0", "09:00 (UTC)"},
		{"22:15", "-9:15", "22:15 (UTC-9:15)"},
		{"07:00", "+14", "07:00 (UTC+14)"},
	}

	for _, tt := range tests {
		got, err := FormatWithOffset(tt.time, tt.offset)
		if err != nil {
			t.Fatalf("FormatWithOffset(%q, %q) error: %v", tt.time, tt.offset, err)
		}
		if got != tt.want {
			t.Errorf("FormatWithOffset(%q, %q) = %q, want %q", tt.time, tt.offset, got, tt.want)
		}
	}
}
