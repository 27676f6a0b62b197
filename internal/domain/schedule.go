package domain

import "time"

// scheduleSafetyBuffer keeps a fire time that has only just passed from
// being scheduled in the current instant; anything inside the buffer rolls
// over to the next day.
const scheduleSafetyBuffer = 30 * time.Second

// NextFireInstant computes the next absolute UTC instant at which a daily
// reminder with the given UTC fire time is due. The result is always
// strictly after now. It is recomputed exactly once per successful delivery
// and once per preference change, never because the poller observed it.
func NextFireInstant(fireTimeUTC string, now time.Time) (time.Time, error) {
	mins, err := ParseClock(fireTimeUTC)
	if err != nil {
		return time.Time{}, err
	}

	now = now.UTC()
	candidate := time.Date(now.Year(), now.Month(), now.Day(), mins/60, mins%60, 0, 0, time.UTC)

	if !candidate.After(now.Add(scheduleSafetyBuffer)) {
		candidate = candidate.AddDate(0, 0, 1)
	}

	return candidate, nil
}
