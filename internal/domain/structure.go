package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// datedTokenRe matches "DD.MM.YYYY" with an optional attached "HH:MM",
	// e.g. "24.06.2025 10:00".
	datedTokenRe = regexp.MustCompile(`\b(\d{2})\.(\d{2})\.(\d{4})(?:\s+(\d{1,2}):(\d{2}))?`)

	// clockTokenRe matches any "HH:MM" token.
	clockTokenRe = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)

	// monthDayRe matches an English month-name-plus-day phrase, e.g.
	// "June 15". The text has been translated to English by this point.
	monthDayRe = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2})\b`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// serviceLocation is the civil timezone of the service area, used to
// interpret bare times and month-name dates.
var serviceLocation = loadServiceLocation()

func loadServiceLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Yerevan")
	if err != nil {
		// Armenia has no DST; a fixed UTC+4 zone is equivalent.
		return time.FixedZone("AMT", 4*60*60)
	}
	return loc
}

// ServiceLocation returns the timezone announcements are interpreted in.
func ServiceLocation() *time.Location { return serviceLocation }

// statusRules is the ordered token table for status inference. Earlier
// rules win, so "planned emergency works" classifies as planned. Only
// when no rule fires does the fetcher's page hint apply.
var statusRules = []struct {
	tokens []string
	status Status
}{
	{tokens: []string{"planned"}, status: StatusPlanned},
	{tokens: []string{"emergency", "accident"}, status: StatusEmergency},
}

// InferStatus classifies translated announcement text, falling back to
// the page-derived hint and finally to unknown.
func InferStatus(translated string, hint Status) Status {
	lower := strings.ToLower(translated)
	for _, rule := range statusRules {
		for _, tok := range rule.tokens {
			if strings.Contains(lower, tok) {
				return rule.status
			}
		}
	}
	if hint == StatusPlanned || hint == StatusEmergency {
		return hint
	}
	return StatusUnknown
}

// StructureAnnouncement assembles an OutageRecord from a raw announcement,
// its translation, and the entities extracted from the translation.
//
// LOC entities populate both Regions and Streets: the NER model does not
// tell the granularities apart (see the package doc). Timing extraction
// is best-effort; a record with no parseable dates is still produced.
func StructureAnnouncement(ann RawAnnouncement, translated string, entities []Entity) OutageRecord {
	var locations []string
	for _, e := range entities {
		if e.Group != EntityLocation {
			continue
		}
		word := strings.TrimSpace(e.Word)
		if word == "" {
			continue
		}
		locations = append(locations, word)
	}

	start, end := ExtractTiming(translated)

	rec := OutageRecord{
		Fingerprint:    Fingerprint(ann.Text),
		Utility:        ann.Utility,
		SourceURL:      ann.SourceURL,
		Status:         InferStatus(translated, ann.Hint),
		StartTime:      start,
		EndTime:        end,
		Regions:        locations,
		Streets:        append([]string(nil), locations...),
		RawText:        ann.Text,
		TranslatedText: translated,
		CreatedAt:      clock.Now(),
	}
	return rec
}

// datedToken is one "DD.MM.YYYY[ HH:MM]" occurrence.
type datedToken struct {
	year, month, day int
	hour, minute     int
	hasClock         bool
}

func (d datedToken) at(hour, minute int) time.Time {
	return time.Date(d.year, time.Month(d.month), d.day, hour, minute, 0, 0, serviceLocation)
}

func (d datedToken) moment() time.Time {
	if d.hasClock {
		return d.at(d.hour, d.minute)
	}
	return d.at(0, 0)
}

// ExtractTiming parses start and end times out of translated text. The
// strategies are tried in order; the first that applies wins:
//
//  1. Two dated tokens: first is start, second is end; a token without an
//     attached clock time means midnight of that date.
//  2. One dated token and at least two clock tokens anywhere in the text:
//     the date combines with the first and second clock time.
//  3. One dated token with at most one clock time: start only.
//  4. No dated token, but two clock tokens and a month-name-plus-day
//     phrase: the current year is assumed, in the service timezone.
//  5. Otherwise both times stay zero. That is not an error.
func ExtractTiming(text string) (start, end time.Time) {
	dated := findDatedTokens(text)
	clocks := findClockTokens(text)

	switch {
	case len(dated) >= 2:
		return dated[0].moment(), dated[1].moment()

	case len(dated) == 1 && len(clocks) >= 2:
		return dated[0].at(clocks[0].hour, clocks[0].minute),
			dated[0].at(clocks[1].hour, clocks[1].minute)

	case len(dated) == 1:
		if dated[0].hasClock {
			return dated[0].moment(), time.Time{}
		}
		if len(clocks) == 1 {
			return dated[0].at(clocks[0].hour, clocks[0].minute), time.Time{}
		}
		return dated[0].moment(), time.Time{}

	case len(clocks) >= 2:
		md := monthDayRe.FindStringSubmatch(text)
		if md == nil {
			return time.Time{}, time.Time{}
		}
		month := monthsByName[strings.ToLower(md[1])]
		day, err := strconv.Atoi(md[2])
		if err != nil || day < 1 || day > 31 {
			return time.Time{}, time.Time{}
		}
		year := clock.Now().In(serviceLocation).Year()
		base := datedToken{year: year, month: int(month), day: day}
		return base.at(clocks[0].hour, clocks[0].minute),
			base.at(clocks[1].hour, clocks[1].minute)
	}

	return time.Time{}, time.Time{}
}

func findDatedTokens(text string) []datedToken {
	var tokens []datedToken
	for _, m := range datedTokenRe.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}
		tok := datedToken{year: year, month: month, day: day}
		if m[4] != "" {
			hour, _ := strconv.Atoi(m[4])
			minute, _ := strconv.Atoi(m[5])
			if hour <= 23 && minute <= 59 {
				tok.hasClock = true
				tok.hour = hour
				tok.minute = minute
			}
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

type clockToken struct {
	hour, minute int
}

func findClockTokens(text string) []clockToken {
	var tokens []clockToken
	for _, m := range clockTokenRe.FindAllStringSubmatch(text, -1) {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			continue
		}
		tokens = append(tokens, clockToken{hour: hour, minute: minute})
	}
	return tokens
}
