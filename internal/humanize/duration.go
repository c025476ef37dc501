// Package humanize renders time spans as approximate natural-language text
// ("a few seconds", "2 hours"). Thresholds and rounding follow the
// conventions popularized by moment.js.
package humanize

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

type unit int

const (
	unitFewSeconds unit = iota
	unitSeconds
	unitMinute
	unitMinutes
	unitHour
	unitHours
	unitDay
	unitDays
	unitMonth
	unitMonths
	unitYear
	unitYears
)

// Thresholds bound each unit: a value is expressed in a unit while its
// rounded count stays below the threshold.
type Thresholds struct {
	FewSeconds int // seconds <= FewSeconds renders "a few seconds"
	Seconds    int
	Minutes    int
	Hours      int
	Days       int
	Months     int
}

var DefaultThresholds = Thresholds{FewSeconds: 44, Seconds: 45, Minutes: 45, Hours: 22, Days: 26, Months: 11}

// Locale holds the phrases for one language. Plural phrases contain a
// single %d verb.
type Locale struct {
	Name    string
	phrases [unitYears + 1]string
}

var locales = map[string]Locale{
	"en": {Name: "en", phrases: [...]string{
		"a few seconds", "%d seconds", "a minute", "%d minutes", "an hour", "%d hours",
		"a day", "%d days", "a month", "%d months", "a year", "%d years",
	}},
	"it": {Name: "it", phrases: [...]string{
		"alcuni secondi", "%d secondi", "un minuto", "%d minuti", "un'ora", "%d ore",
		"un giorno", "%d giorni", "un mese", "%d mesi", "un anno", "%d anni",
	}},
	"de": {Name: "de", phrases: [...]string{
		"ein paar Sekunden", "%d Sekunden", "eine Minute", "%d Minuten", "eine Stunde", "%d Stunden",
		"ein Tag", "%d Tage", "ein Monat", "%d Monate", "ein Jahr", "%d Jahre",
	}},
	"fr": {Name: "fr", phrases: [...]string{
		"quelques secondes", "%d secondes", "une minute", "%d minutes", "une heure", "%d heures",
		"un jour", "%d jours", "un mois", "%d mois", "un an", "%d ans",
	}},
	"es": {Name: "es", phrases: [...]string{
		"unos segundos", "%d segundos", "un minuto", "%d minutos", "una hora", "%d horas",
		"un día", "%d días", "un mes", "%d meses", "un año", "%d años",
	}},
}

// Lookup returns the locale for a tag such as "it" or "it-IT". Unknown tags
// fall back to English and report false.
func Lookup(tag string) (Locale, bool) {
	tag = strings.ToLower(tag)
	if l, ok := locales[tag]; ok {
		return l, true
	}
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		if l, ok := locales[tag[:i]]; ok {
			return l, true
		}
	}
	return locales["en"], false
}

// Locales lists the supported locale names.
func Locales() []string {
	names := make([]string, 0, len(locales))
	for name := range locales {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Duration humanizes d in the given locale with the default thresholds.
func Duration(d time.Duration, tag string) string {
	l, _ := Lookup(tag)
	return l.Duration(d)
}

func (l Locale) Duration(d time.Duration) string {
	return l.DurationWith(d, DefaultThresholds)
}

// DurationWith humanizes d. Negative durations are treated as their
// absolute value.
func (l Locale) DurationWith(d time.Duration, th Thresholds) string {
	u, n := classify(d, th)
	phrase := l.phrases[u]
	if strings.Contains(phrase, "%d") {
		return fmt.Sprintf(phrase, n)
	}
	return phrase
}

const (
	msPerDay = float64(24 * time.Hour / time.Millisecond)
	// Average Gregorian month: 400 years hold 146097 days and 4800 months.
	daysPerMonth = 146097.0 / 4800.0
)

func classify(d time.Duration, th Thresholds) (unit, int) {
	ms := math.Abs(float64(d) / float64(time.Millisecond))

	seconds := round(ms / 1000)
	minutes := round(ms / 60000)
	hours := round(ms / 3600000)
	days := round(ms / msPerDay)
	months := round(ms / msPerDay / daysPerMonth)
	years := round(ms / msPerDay / daysPerMonth / 12)

	switch {
	case seconds <= th.FewSeconds:
		return unitFewSeconds, seconds
	case seconds < th.Seconds:
		return unitSeconds, seconds
	case minutes <= 1:
		return unitMinute, 1
	case minutes < th.Minutes:
		return unitMinutes, minutes
	case hours <= 1:
		return unitHour, 1
	case hours < th.Hours:
		return unitHours, hours
	case days <= 1:
		return unitDay, 1
	case days < th.Days:
		return unitDays, days
	case months <= 1:
		return unitMonth, 1
	case months < th.Months:
		return unitMonths, months
	case years <= 1:
		return unitYear, 1
	default:
		return unitYears, years
	}
}

// round matches JavaScript's Math.round for non-negative input.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
