package appointments

import (
	"fmt"
	"strconv"
	"strings"
)

// slotMinutes parses an "HH:MM" clock value into minutes since midnight.
func slotMinutes(value string) (int, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, ErrInvalidSlot
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil || hh < 0 || hh > 23 {
		return 0, ErrInvalidSlot
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil || mm < 0 || mm > 59 {
		return 0, ErrInvalidSlot
	}
	return hh*60 + mm, nil
}

// withinHours reports whether start falls inside the bookable window.
// The closing time itself is not bookable.
func withinHours(hours ClinicHours, start string) (bool, error) {
	s, err := slotMinutes(start)
	if err != nil {
		return false, err
	}
	opens, err := slotMinutes(hours.Opens)
	if err != nil {
		return false, fmt.Errorf("clinic hours misconfigured: %w", err)
	}
	closes, err := slotMinutes(hours.Closes)
	if err != nil {
		return false, fmt.Errorf("clinic hours misconfigured: %w", err)
	}
	return s >= opens && s < closes, nil
}
