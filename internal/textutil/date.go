package textutil

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Ecuador has no DST; bank emails are stamped in local time (UTC-5).
var Ecuador = time.FixedZone("America/Guayaquil", -5*60*60)

// DateOrder selects how an ambiguous NN/NN/YYYY date is read.
type DateOrder int

const (
	DMY DateOrder = iota
	MDY
)

var (
	isoDateTimeRe   = regexp.MustCompile(`(?i)(\d{4})-(\d{2})-(\d{2})[T\s]*(?:a\s+las\s*)?(\d{1,2}):(\d{2})`)
	spanishDateRe   = regexp.MustCompile(`(\d{1,2})[/\s-]+(?:de\s+)?([A-Za-zÁÉÍÓÚáéíóú]{3,})[/\s-]+(?:de\s+)?(\d{4})(?:\s*,?\s*(\d{1,2}):(\d{2}))?`)
	slashDateTimeRe = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})\s+(\d{1,2}):(\d{2})(?::(\d{2}))?`)
	slashDateRe     = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	isoDateRe       = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
)

var spanishMonths = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

// ParseOccurredAt reads a bank timestamp written in Ecuador local time and
// returns it in UTC. Formats are tried in order: "YYYY-MM-DD [a las] HH:mm",
// "DD/<mes>/YYYY [HH:mm]", "DD/MM/YYYY HH:mm[:ss]" (DMY only, month <= 12),
// "MM/DD/YYYY HH:mm[:ss]" (MDY only, falling back to day-first when the
// first field is above 12), then a bare date combined with the
// local time of day of fallback. When nothing matches fallback is returned.
func ParseOccurredAt(text string, fallback time.Time, order DateOrder) time.Time {
	if t, ok := parseISODateTime(text); ok {
		return t
	}
	if t, ok := parseSpanishDate(text); ok {
		return t
	}
	if t, ok := parseSlashDateTime(text, order); ok {
		return t
	}
	if t, ok := parseDateOnly(text, fallback, order); ok {
		return t
	}
	return fallback
}

func parseISODateTime(text string) (time.Time, bool) {
	m := isoDateTimeRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	return localTime(atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4]), atoi(m[5]), 0)
}

func parseSpanishDate(text string) (time.Time, bool) {
	for _, m := range spanishDateRe.FindAllStringSubmatch(text, -1) {
		month, ok := spanishMonth(m[2])
		if !ok {
			continue
		}
		hour, minute := 0, 0
		if m[4] != "" {
			hour, minute = atoi(m[4]), atoi(m[5])
		}
		if t, ok := localTime(atoi(m[3]), int(month), atoi(m[1]), hour, minute, 0); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func spanishMonth(word string) (time.Month, bool) {
	w := Fold(word)
	if m, ok := spanishMonths[w]; ok {
		return m, true
	}
	// abbreviations such as "ene", "sept", "dic"
	if len(w) >= 3 {
		for name, m := range spanishMonths {
			if strings.HasPrefix(name, w) {
				return m, true
			}
		}
	}
	return 0, false
}

func parseSlashDateTime(text string, order DateOrder) (time.Time, bool) {
	for _, m := range slashDateTimeRe.FindAllStringSubmatch(text, -1) {
		first, second, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
		sec := 0
		if m[6] != "" {
			sec = atoi(m[6])
		}
		day, month, ok := dayMonth(first, second, order)
		if !ok {
			continue
		}
		if t, ok := localTime(year, month, day, atoi(m[4]), atoi(m[5]), sec); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseDateOnly(text string, fallback time.Time, order DateOrder) (time.Time, bool) {
	local := fallback.In(Ecuador)
	for _, m := range slashDateRe.FindAllStringSubmatch(text, -1) {
		day, month, ok := dayMonth(atoi(m[1]), atoi(m[2]), order)
		if !ok {
			continue
		}
		if t, ok := localTime(atoi(m[3]), month, day, local.Hour(), local.Minute(), local.Second()); ok {
			return t, true
		}
	}
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		return localTime(atoi(m[1]), atoi(m[2]), atoi(m[3]), local.Hour(), local.Minute(), local.Second())
	}
	return time.Time{}, false
}

// dayMonth orders the two leading fields of a slash date. Month-first
// input whose first field cannot be a month is read day-first instead.
func dayMonth(first, second int, order DateOrder) (day, month int, ok bool) {
	if order == MDY && first <= 12 {
		return second, first, true
	}
	if second <= 12 {
		return first, second, true
	}
	return 0, 0, false
}

// localTime builds an Ecuador-local instant and rejects out-of-range parts
// instead of letting time.Date normalize them (31/02 is not 03/03).
func localTime(year, month, day, hour, minute, sec int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, Ecuador)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// ISOLayout is the wire format of occurred_at.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// FormatISO renders t in UTC with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}
