package main

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// BirthdayRecord is a stored birthday. BirthDate's year is only used for age
// math; the recurring date is its month/day.
type BirthdayRecord struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	BirthDate    time.Time `json:"birth_date"`
	Relationship string    `json:"relationship"`
	Notes        string    `json:"notes"`
	Phone        string    `json:"phone"`
}

func (b BirthdayRecord) DisplayName() string {
	return strings.TrimSpace(b.FirstName + " " + b.LastName)
}

// DashboardEntry is the derived view of one birthday for the dashboard.
// Today entries carry Age; upcoming entries carry DaysUntil and Month.
type DashboardEntry struct {
	ID           string `json:"id"`
	Initials     string `json:"initials"`
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Age          int    `json:"age,omitempty"`
	Date         string `json:"date"`
	DaysUntil    int    `json:"days_until,omitempty"`
	Month        string `json:"month,omitempty"`
}

type DashboardLists struct {
	Today    []DashboardEntry `json:"today"`
	Upcoming []DashboardEntry `json:"upcoming"`
}

// nextOccurrence returns the next calendar date on which the birthday's
// month/day falls, relative to now: this year's candidate, or next year's if
// that candidate is already past. A Feb 29 birth date lands on Mar 1 in
// non-leap years (time.Date normalization, pinned by tests).
func nextOccurrence(now time.Time, birthDate time.Time) time.Time {
	loc := now.Location()
	candidate := time.Date(now.Year(), birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, loc)
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if candidate.Before(todayStart) {
		candidate = time.Date(now.Year()+1, birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, loc)
	}
	return candidate
}

func daysUntil(now time.Time, occurrence time.Time) int {
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return int(occurrence.Sub(todayStart) / (24 * time.Hour))
}

// dashboardAge is the age shown in the "today" bucket: plain year difference.
func dashboardAge(now time.Time, birthDate time.Time) int {
	return now.Year() - birthDate.Year()
}

// wishAge is the age used by the scheduled-wish path. It decrements when
// today's (month, day) is before the birth (month, day). This intentionally
// differs from dashboardAge near the birthday; see DESIGN.md.
func wishAge(now time.Time, birthDate time.Time) int {
	age := now.Year() - birthDate.Year()
	if now.Month() < birthDate.Month() ||
		(now.Month() == birthDate.Month() && now.Day() < birthDate.Day()) {
		age--
	}
	return age
}

func initials(first, last string) string {
	var sb strings.Builder
	for _, name := range []string{first, last} {
		if name == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(name)
		sb.WriteRune(unicode.ToUpper(r))
	}
	return sb.String()
}

// classifyBirthdays splits records into the "today" and "upcoming" buckets.
// Today holds exactly the records whose month/day equal now's; upcoming is
// sorted ascending by days until the next occurrence. Today keeps insertion
// order.
func classifyBirthdays(now time.Time, records []BirthdayRecord) DashboardLists {
	lists := DashboardLists{Today: []DashboardEntry{}, Upcoming: []DashboardEntry{}}
	for _, rec := range records {
		entry := DashboardEntry{
			ID:           rec.ID,
			Initials:     initials(rec.FirstName, rec.LastName),
			Name:         rec.DisplayName(),
			Relationship: rec.Relationship,
			Date:         rec.BirthDate.Format("2006-01-02"),
		}
		if rec.BirthDate.Month() == now.Month() && rec.BirthDate.Day() == now.Day() {
			entry.Age = dashboardAge(now, rec.BirthDate)
			lists.Today = append(lists.Today, entry)
			continue
		}
		occurrence := nextOccurrence(now, rec.BirthDate)
		remaining := daysUntil(now, occurrence)
		// A Feb 29 birth observed on Mar 1 of a non-leap year resolves to
		// today; celebrate it rather than listing a zero-day wait.
		if remaining == 0 {
			entry.Age = dashboardAge(now, rec.BirthDate)
			lists.Today = append(lists.Today, entry)
			continue
		}
		entry.DaysUntil = remaining
		entry.Month = occurrence.Month().String()
		lists.Upcoming = append(lists.Upcoming, entry)
	}
	sort.SliceStable(lists.Upcoming, func(i, j int) bool {
		return lists.Upcoming[i].DaysUntil < lists.Upcoming[j].DaysUntil
	})
	return lists
}

// ordinalSuffix returns the English ordinal suffix for n (1st, 2nd, 3rd, 4th,
// 11th..13th).
func ordinalSuffix(n int) string {
	if n < 0 {
		n = -n
	}
	switch n % 100 {
	case 11, 12, 13:
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}

// birthdayMessage picks the outbound text for the manual send path by
// days-until bucket.
func birthdayMessage(name string, daysUntil int) string {
	switch {
	case daysUntil < 0:
		return fmt.Sprintf("Don't forget to wish %s a happy birthday!", name)
	case daysUntil == 0:
		return fmt.Sprintf("Happy Birthday, %s! Hope your day is full of joy.", name)
	case daysUntil == 1:
		return fmt.Sprintf("%s's birthday is tomorrow! Time to get the card ready.", name)
	case daysUntil <= 7:
		return fmt.Sprintf("%s's birthday is in %d days. A call would mean a lot!", name, daysUntil)
	case daysUntil <= 30:
		return fmt.Sprintf("Heads up: %s's birthday is coming up in %d days.", name, daysUntil)
	default:
		return fmt.Sprintf("Save the date: %s's birthday is in %d days.", name, daysUntil)
	}
}

// wishMessage is the congratulatory text sent by the daily sweep.
func wishMessage(name string, age int) string {
	if age <= 0 {
		return fmt.Sprintf("Happy Birthday, %s! Wishing you a wonderful day!", name)
	}
	return fmt.Sprintf("Happy Birthday, %s! Wishing you a wonderful %d%s birthday!", name, age, ordinalSuffix(age))
}
