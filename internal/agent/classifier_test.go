package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestClassifier() *Classifier {
	return NewClassifier(TrainingCorpus(), 0.38)
}

func TestClassifyKeywordOverridesWin(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		text string
		want Intent
	}{
		{"block 3pm today", IntentApptBlock},
		{"set buying cost of gloves to 200", IntentInvPrice},
		{"alert me when gloves drop below 10", IntentInvThreshold},
		{"delete treatment root canal", IntentTreatmentDelete},
		{"reschedule my appointment", IntentApptReschedule},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			intent, confidence, source := c.Classify(tt.text)
			assert.Equal(t, tt.want, intent)
			assert.Equal(t, 1.0, confidence, "overrides report maximal confidence")
			assert.Equal(t, SourceOverride, source)
		})
	}
}

func TestOverrideOrderingIsStable(t *testing.T) {
	c := newTestClassifier()

	// "delete treatment" contains no earlier trigger, and the specific rule
	// must win even though later rules could also fire on fragments.
	intent, _, source := c.Classify("delete treatment whitening")
	assert.Equal(t, IntentTreatmentDelete, intent)
	assert.Equal(t, SourceOverride, source)

	// A phrase carrying both "threshold" and "restock" resolves to the
	// earlier rule in the list.
	intent, _, _ = c.Classify("restock threshold stuff")
	assert.Equal(t, IntentInvThreshold, intent)
}

func TestClassifyStatistical(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		text string
		want Intent
	}{
		{"i'd like to book an appointment please", IntentApptBook},
		{"start visit for john", IntentClinicalStart},
		{"add 50 gloves to inventory", IntentInvAdjust},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			intent, confidence, _ := c.Classify(tt.text)
			assert.Equal(t, tt.want, intent)
			assert.Greater(t, confidence, 0.0)
		})
	}
}

func TestClassifyUnknown(t *testing.T) {
	c := newTestClassifier()

	intent, _, source := c.Classify("qwerty zxcvb plumbing quote")
	assert.Equal(t, IntentUnknown, intent)
	assert.Equal(t, SourceNone, source)
}

func TestClassifyEmptyUtterance(t *testing.T) {
	c := newTestClassifier()

	intent, confidence, _ := c.Classify("   ")
	assert.Equal(t, IntentUnknown, intent)
	assert.Equal(t, 0.0, confidence)
}

func TestClassifyEmptyCorpusDegradesToKeywordLayers(t *testing.T) {
	c := NewClassifier(nil, 0.38)

	// Keyword layers still function without a fitted corpus.
	intent, _, source := c.Classify("i'd like to book something")
	assert.Equal(t, IntentApptBook, intent)
	assert.Equal(t, SourceFallback, source)

	intent, _, source = c.Classify("zzz unrelated zzz")
	assert.Equal(t, IntentUnknown, intent)
	assert.Equal(t, SourceNone, source)
}

func TestClassifyFallbackHeuristics(t *testing.T) {
	c := NewClassifier(nil, 0.38)

	intent, confidence, source := c.Classify("start the visit now")
	assert.Equal(t, IntentClinicalStart, intent)
	assert.Equal(t, SourceFallback, source)
	assert.Equal(t, 0.38, confidence)
}
