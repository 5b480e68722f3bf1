package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractNumber(t *testing.T) {
	tests := []struct {
		name string
		text string
		rule NumberRule
		want float64
		ok   bool
	}{
		{"single number", "add 50 gloves", FirstNumber, 50, true},
		{"first of two", "add 50 gloves to shelf 3", FirstNumber, 50, true},
		{"last of two", "set threshold to 5 when stock drops below 10", LastNumber, 10, true},
		{"trailing price", "set buying cost of gloves to 200", LastNumber, 200, true},
		{"decimal", "price is 19.99", FirstNumber, 19.99, true},
		{"no digits", "add some gloves", FirstNumber, 0, false},
		{"no digits last", "warn me about stock", LastNumber, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractNumber(tt.text, tt.rule)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtractTimeOfDay(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		hour   int
		minute int
		ok     bool
	}{
		{"pm hour", "block 3pm today", 15, 0, true},
		{"pm with minutes", "see you at 4:30pm", 16, 30, true},
		{"am hour", "9am works", 9, 0, true},
		{"noon", "12pm", 12, 0, true},
		{"midnight", "12am", 0, 0, true},
		{"24 hour clock", "come at 15:00", 15, 0, true},
		{"bare at-hour", "book me at 14", 14, 0, true},
		{"invalid hour", "at 25", 0, 0, false},
		{"no time", "book me in sometime", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hour, minute, ok := ExtractTimeOfDay(tt.text)
			assert.Equal(t, tt.ok, ok, "parse flag")
			if tt.ok {
				assert.Equal(t, tt.hour, hour, "hour")
				assert.Equal(t, tt.minute, minute, "minute")
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "3:00 PM", FormatClock(15, 0))
	assert.Equal(t, "12:30 PM", FormatClock(12, 30))
	assert.Equal(t, "12:05 AM", FormatClock(0, 5))
	assert.Equal(t, "9:15 AM", FormatClock(9, 15))
}

func TestExtractName(t *testing.T) {
	stops := []string{"start", "visit", "for", "the"}

	assert.Equal(t, "john smith", ExtractName("start visit for John Smith", stops))
	assert.Equal(t, "", ExtractName("start the visit", stops))
	// Short residue is rejected, not accepted.
	assert.Equal(t, "", ExtractName("start visit for Al", stops))
	// Digit-bearing and date tokens never leak into a name.
	assert.Equal(t, "gloves", ExtractName("gloves to 200 tomorrow", []string{"to"}))
	// Stop phrases match whole words only: "for" must not eat "Clifford".
	assert.Equal(t, "clifford", ExtractName("start visit for Clifford", stops))
	// Alphanumeric product codes are names, not quantities.
	assert.Equal(t, "xyz123", ExtractName("cost of XYZ123 to 200", []string{"cost", "of", "to"}))
	assert.Equal(t, "2x2 gauze", ExtractName("add 2x2 gauze", []string{"add"}))
}

func TestDropNoiseTokens(t *testing.T) {
	got := dropNoiseTokens([]string{"xyz123", "200", "19.99", "3pm", "4:30pm", "15:00", "today", "at", "gauze"})
	assert.Equal(t, []string{"xyz123", "gauze"}, got)
}

func TestHasDatePhrase(t *testing.T) {
	assert.True(t, hasDatePhrase("2pm tomorrow"))
	assert.True(t, hasDatePhrase("Next Week please"))
	assert.True(t, hasDatePhrase("today"))
	assert.False(t, hasDatePhrase("2pm"))
	assert.False(t, hasDatePhrase("John Smith"))
}

func TestResolveDateWindow(t *testing.T) {
	now := time.Date(2026, 8, 26, 14, 30, 0, 0, time.UTC) // a Wednesday

	tests := []struct {
		text      string
		wantStart time.Time
		wantDays  int
		wantLabel string
	}{
		{"show me today", time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), 1, "today"},
		{"tomorrow please", time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), 1, "tomorrow"},
		{"this week", time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), 7, "this week"},
		{"next week", time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), 7, "next week"},
		{"this month", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), 31, "this month"},
		{"gibberish defaults", time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), 1, "today"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			w := ResolveDateWindow(tt.text, now)
			assert.Equal(t, tt.wantStart, w.Start)
			assert.Equal(t, tt.wantDays, int(w.End.Sub(w.Start).Hours()/24))
			assert.Equal(t, tt.wantLabel, w.Label)
		})
	}
}

func TestResolveDateWindowIsDeterministic(t *testing.T) {
	now := time.Date(2026, 8, 26, 23, 59, 59, 0, time.UTC)
	first := ResolveDateWindow("tomorrow", now)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ResolveDateWindow("tomorrow", now))
	}
}

func TestConfirmationWords(t *testing.T) {
	assert.True(t, containsConfirmation("yes"))
	assert.True(t, containsConfirmation("yes confirm"))
	assert.True(t, containsConfirmation("ok go ahead"))
	assert.False(t, containsConfirmation("not yet"))

	assert.True(t, containsDenial("no"))
	assert.True(t, containsDenial("no, cancel it"))
	assert.False(t, containsDenial("nothing"))
}
