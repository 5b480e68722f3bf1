package agent

import (
	"math"
	"strings"
)

// Classifier scores an utterance against the labeled corpus using character
// n-gram TF-IDF vectors and cosine similarity. It is fitted once at
// construction; classification is a pure function afterwards.
type Classifier struct {
	floor    float64
	idf      map[string]float64
	examples []corpusExample
}

type corpusExample struct {
	intent Intent
	vector map[string]float64
	norm   float64
}

// charNgrams emits character n-grams for n in [2,4] over the lowercased,
// whitespace-collapsed input.
func charNgrams(text string) []string {
	text = strings.Join(strings.Fields(strings.ToLower(text)), " ")
	runes := []rune(text)
	var grams []string
	for n := 2; n <= 4; n++ {
		for i := 0; i+n <= len(runes); i++ {
			grams = append(grams, string(runes[i:i+n]))
		}
	}
	return grams
}

func termFrequencies(grams []string) map[string]float64 {
	tf := make(map[string]float64, len(grams))
	for _, g := range grams {
		tf[g]++
	}
	return tf
}

// NewClassifier fits TF-IDF weights over the corpus. An empty corpus is a
// valid degraded mode: Classify then always reports IntentUnknown.
func NewClassifier(corpus map[Intent][]string, floor float64) *Classifier {
	c := &Classifier{
		floor: floor,
		idf:   make(map[string]float64),
	}

	docFreq := make(map[string]int)
	var docs []struct {
		intent Intent
		tf     map[string]float64
	}

	for intent, phrases := range corpus {
		for _, phrase := range phrases {
			tf := termFrequencies(charNgrams(phrase))
			for g := range tf {
				docFreq[g]++
			}
			docs = append(docs, struct {
				intent Intent
				tf     map[string]float64
			}{intent, tf})
		}
	}

	total := len(docs)
	if total == 0 {
		return c
	}

	for g, df := range docFreq {
		c.idf[g] = math.Log(float64(1+total)/float64(1+df)) + 1
	}

	for _, doc := range docs {
		vec := make(map[string]float64, len(doc.tf))
		var norm float64
		for g, f := range doc.tf {
			w := f * c.idf[g]
			vec[g] = w
			norm += w * w
		}
		c.examples = append(c.examples, corpusExample{
			intent: doc.intent,
			vector: vec,
			norm:   math.Sqrt(norm),
		})
	}
	return c
}

// Classification sources, reported for observability.
const (
	SourceOverride   = "override"
	SourceClassifier = "classifier"
	SourceFallback   = "fallback"
	SourceNone       = "none"
)

// Classify returns the best-matching intent, its confidence, and how it was
// resolved. Keyword overrides are evaluated first and return with maximal
// confidence; below the floor, loose heuristic rules get a final look before
// giving up.
func (c *Classifier) Classify(text string) (Intent, float64, string) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return IntentUnknown, 0, SourceNone
	}

	if intent := matchOverride(text); intent != IntentUnknown {
		return intent, 1.0, SourceOverride
	}

	best := IntentUnknown
	var bestScore float64
	if len(c.examples) > 0 {
		tf := termFrequencies(charNgrams(text))
		vec := make(map[string]float64, len(tf))
		var norm float64
		for g, f := range tf {
			idf, ok := c.idf[g]
			if !ok {
				continue
			}
			w := f * idf
			vec[g] = w
			norm += w * w
		}
		norm = math.Sqrt(norm)

		if norm > 0 {
			for _, ex := range c.examples {
				score := cosine(vec, norm, ex.vector, ex.norm)
				if score > bestScore {
					bestScore = score
					best = ex.intent
				}
			}
		}
	}

	if bestScore >= c.floor {
		return best, bestScore, SourceClassifier
	}
	if intent := matchFallback(text); intent != IntentUnknown {
		return intent, c.floor, SourceFallback
	}
	return IntentUnknown, bestScore, SourceNone
}

func cosine(a map[string]float64, normA float64, b map[string]float64, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	// Iterate the smaller map.
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for g, w := range a {
		if bw, ok := b[g]; ok {
			dot += w * bw
		}
	}
	return dot / (normA * normB)
}
