package agent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// NumberRule selects which numeric token a slot takes when the utterance
// carries more than one. Positional heuristics are error-prone on
// multi-number input, so every numeric slot declares its rule explicitly.
type NumberRule int

const (
	FirstNumber NumberRule = iota
	LastNumber
)

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ExtractNumber pulls a numeric token from the utterance per the rule.
// Digit-free input reports ok=false, never zero.
func ExtractNumber(text string, rule NumberRule) (float64, bool) {
	matches := numberPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return 0, false
	}
	token := matches[0]
	if rule == LastNumber {
		token = matches[len(matches)-1]
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var (
	meridiemTimePattern = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?\s*(am|pm)`)
	clockTimePattern    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	bareHourPattern     = regexp.MustCompile(`\bat\s+(\d{1,2})\b`)
)

// ExtractTimeOfDay parses H[:MM][am|pm], 24-hour HH:MM, or "at H" forms and
// normalizes to a 24-hour clock. Unparseable input fails rather than guesses.
func ExtractTimeOfDay(text string) (hour, minute int, ok bool) {
	text = strings.ToLower(text)

	if m := meridiemTimePattern.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour < 1 || hour > 12 || minute > 59 {
			return 0, 0, false
		}
		if m[3] == "pm" && hour != 12 {
			hour += 12
		} else if m[3] == "am" && hour == 12 {
			hour = 0
		}
		return hour, minute, true
	}

	if m := clockTimePattern.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return 0, 0, false
		}
		return hour, minute, true
	}

	if m := bareHourPattern.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if hour > 23 {
			return 0, 0, false
		}
		return hour, 0, true
	}

	return 0, 0, false
}

// FormatClock renders a 24-hour time as a 12-hour display string, e.g.
// 15:00 -> "3:00 PM".
func FormatClock(hour, minute int) string {
	meridiem := "AM"
	displayHour := hour
	switch {
	case hour == 0:
		displayHour = 12
	case hour == 12:
		meridiem = "PM"
	case hour > 12:
		displayHour = hour - 12
		meridiem = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", displayHour, minute, meridiem)
}

// ExtractName strips the intent's stop phrases from the utterance and accepts
// the residue as an unvalidated candidate name when more than two characters
// remain. Stop phrases match whole words only. The caller must resolve the
// residue against a live entity pool before use.
func ExtractName(text string, stopPhrases []string) string {
	tokens := strings.Fields(strings.ToLower(strings.Trim(text, " .,!?")))
	tokens = dropNoiseTokens(tokens)
	for _, phrase := range stopPhrases {
		phraseTokens := strings.Fields(strings.ToLower(phrase))
		tokens = removePhrase(tokens, phraseTokens)
	}
	residue := strings.Join(tokens, " ")
	if len(residue) <= 2 {
		return ""
	}
	return residue
}

var (
	pureNumberToken = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	clockToken      = regexp.MustCompile(`^(?:\d{1,2}:\d{2}(?:am|pm)?|\d{1,2}(?:am|pm))$`)
)

// dropNoiseTokens removes tokens other slots consume: bare quantities and
// prices, clock times, and relative-date words. Alphanumeric tokens stay,
// since entity names may legitimately carry digits ("2x2 gauze").
func dropNoiseTokens(tokens []string) []string {
	noise := map[string]bool{"today": true, "tomorrow": true, "at": true}
	var out []string
	for _, t := range tokens {
		trimmed := strings.Trim(t, ".,!?")
		if noise[trimmed] || pureNumberToken.MatchString(trimmed) || clockToken.MatchString(trimmed) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// removePhrase drops every occurrence of the contiguous token sequence.
func removePhrase(tokens, phrase []string) []string {
	if len(phrase) == 0 {
		return tokens
	}
	var out []string
	for i := 0; i < len(tokens); {
		if i+len(phrase) <= len(tokens) && equalTokens(tokens[i:i+len(phrase)], phrase) {
			i += len(phrase)
			continue
		}
		out = append(out, tokens[i])
		i++
	}
	return out
}

func equalTokens(a, b []string) bool {
	for i := range a {
		if strings.Trim(a[i], ".,!?") != b[i] {
			return false
		}
	}
	return true
}

// DateWindow is a concrete date range resolved from a relative phrase.
type DateWindow struct {
	Start time.Time
	End   time.Time
	Label string
}

var datePhrases = []string{"today", "tomorrow", "yesterday", "next week", "this week", "this month"}

// hasDatePhrase reports whether the utterance names a recognized relative
// date. ResolveDateWindow defaults to today, so callers that must not assume
// a default check this first.
func hasDatePhrase(text string) bool {
	text = strings.ToLower(text)
	for _, p := range datePhrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// ResolveDateWindow maps relative-date phrases to a concrete window anchored
// at now. Unrecognized phrases default to today. The mapping is a pure
// function of (phrase, now), so re-resolving within a turn is stable.
func ResolveDateWindow(text string, now time.Time) DateWindow {
	text = strings.ToLower(text)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case strings.Contains(text, "tomorrow"):
		start := today.AddDate(0, 0, 1)
		return DateWindow{Start: start, End: start.AddDate(0, 0, 1), Label: "tomorrow"}
	case strings.Contains(text, "yesterday"):
		start := today.AddDate(0, 0, -1)
		return DateWindow{Start: start, End: today, Label: "yesterday"}
	case strings.Contains(text, "next week"):
		daysUntilMonday := (8 - int(today.Weekday())) % 7
		if daysUntilMonday == 0 {
			daysUntilMonday = 7
		}
		start := today.AddDate(0, 0, daysUntilMonday)
		return DateWindow{Start: start, End: start.AddDate(0, 0, 7), Label: "next week"}
	case strings.Contains(text, "this week"):
		daysSinceMonday := (int(today.Weekday()) + 6) % 7
		start := today.AddDate(0, 0, -daysSinceMonday)
		return DateWindow{Start: start, End: start.AddDate(0, 0, 7), Label: "this week"}
	case strings.Contains(text, "this month"):
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return DateWindow{Start: start, End: start.AddDate(0, 1, 0), Label: "this month"}
	default:
		return DateWindow{Start: today, End: today.AddDate(0, 0, 1), Label: "today"}
	}
}

// confirmPattern and denyPattern gate destructive dispatches.
var (
	confirmWords = []string{"yes", "confirm", "sure", "go ahead"}
	denyWords    = []string{"no", "cancel", "stop", "abort"}
)

func containsConfirmation(text string) bool {
	return containsAnyWord(text, confirmWords)
}

func containsDenial(text string) bool {
	return containsAnyWord(text, denyWords)
}

func containsAnyWord(text string, words []string) bool {
	raw := strings.Fields(strings.ToLower(text))
	fields := make([]string, 0, len(raw))
	for _, f := range raw {
		if f = strings.Trim(f, ".,!?"); f != "" {
			fields = append(fields, f)
		}
	}
	joined := strings.Join(fields, " ")
	for _, w := range words {
		if strings.Contains(w, " ") {
			if strings.Contains(joined, w) {
				return true
			}
			continue
		}
		for _, f := range fields {
			if f == w {
				return true
			}
		}
	}
	return false
}
