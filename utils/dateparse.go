package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"meetsync/models"
)

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

var (
	thisWeekdayRe = regexp.MustCompile(`this (monday|tuesday|wednesday|thursday|friday|saturday|sunday)`)
	nextWeekdayRe = regexp.MustCompile(`next (monday|tuesday|wednesday|thursday|friday|saturday|sunday)`)
	bareWeekdayRe = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	inDaysRe      = regexp.MustCompile(`in (\d+) days?`)
	daysFromNowRe = regexp.MustCompile(`(\d+) days? from now`)
	isoDateRe     = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
)

// ParseDatePhrase resolves relative date expressions ("tomorrow", "next
// tuesday", "in 3 days") against today. It is the deterministic fallback used
// before queueing a date clarification.
func ParseDatePhrase(text string, today time.Time) (time.Time, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		if d, err := time.ParseInLocation("2006-01-02", m[1], today.Location()); err == nil {
			return d, true
		}
	}

	if strings.Contains(text, "day after tomorrow") {
		return today.AddDate(0, 0, 2), true
	}
	if strings.Contains(text, "tomorrow") {
		return today.AddDate(0, 0, 1), true
	}
	if strings.Contains(text, "today") {
		return today, true
	}

	if strings.Contains(text, "next week") {
		days := 7
		if strings.Contains(text, "late") {
			days += 3
		} else if strings.Contains(text, "early") {
			days++
		}
		return today.AddDate(0, 0, days), true
	}

	if m := thisWeekdayRe.FindStringSubmatch(text); m != nil {
		return upcomingWeekday(today, weekdayNames[m[1]], false), true
	}
	if m := nextWeekdayRe.FindStringSubmatch(text); m != nil {
		return upcomingWeekday(today, weekdayNames[m[1]], true), true
	}
	if m := bareWeekdayRe.FindStringSubmatch(text); m != nil {
		return upcomingWeekday(today, weekdayNames[m[1]], false), true
	}

	if m := inDaysRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return today.AddDate(0, 0, n), true
	}
	if m := daysFromNowRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return today.AddDate(0, 0, n), true
	}

	return time.Time{}, false
}

// upcomingWeekday returns the next occurrence of target after today. With
// forceNextWeek the date always lands in next week, matching how people say
// "next friday" on a wednesday.
func upcomingWeekday(today time.Time, target time.Weekday, forceNextWeek bool) time.Time {
	ahead := int(target) - int(today.Weekday())
	if forceNextWeek {
		ahead += 7
	} else if ahead <= 0 {
		ahead += 7
	}
	return today.AddDate(0, 0, ahead)
}

// TimeRangeForPhrase maps named parts of day to concrete time-of-day windows.
func TimeRangeForPhrase(text string) (models.TimeRange, bool) {
	text = strings.ToLower(text)
	switch {
	case strings.Contains(text, "morning"):
		return models.TimeRange{StartMin: 9 * 60, EndMin: 12 * 60}, true
	case strings.Contains(text, "lunch"):
		return models.TimeRange{StartMin: 12 * 60, EndMin: 14 * 60}, true
	case strings.Contains(text, "afternoon"):
		return models.TimeRange{StartMin: 12 * 60, EndMin: 18 * 60}, true
	case strings.Contains(text, "evening"), strings.Contains(text, "end of day"):
		return models.TimeRange{StartMin: 16 * 60, EndMin: 18 * 60}, true
	}
	return models.TimeRange{}, false
}
