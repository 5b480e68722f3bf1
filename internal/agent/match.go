package agent

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/morelandlabs/dentalagent/pkg/logging"
)

// MatchCandidate is a fuzzy-resolution result with a similarity score in
// [0,100].
type MatchCandidate struct {
	ID    int64
	Name  string
	Score int
}

// Matcher resolves free-text candidates against live entity pools.
type Matcher struct {
	margin int
	logger *logging.Logger
}

// NewMatcher creates a matcher. Candidates scoring within margin points of
// the best match are treated as near-ties and surfaced for disambiguation.
func NewMatcher(margin int, logger *logging.Logger) *Matcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Matcher{margin: margin, logger: logger}
}

// Resolve returns the single best candidate above threshold, or nil plus the
// near-tie set when the match is ambiguous. An empty pool is always a miss
// and is logged separately from a scored-but-below-threshold miss.
func (m *Matcher) Resolve(query string, pool []NamedEntity, threshold int) (*MatchCandidate, []MatchCandidate) {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return nil, nil
	}
	if len(pool) == 0 {
		m.logger.Debug("entity match against empty pool", "query", query)
		return nil, nil
	}

	scored := make([]MatchCandidate, 0, len(pool))
	for _, e := range pool {
		scored = append(scored, MatchCandidate{
			ID:    e.ID,
			Name:  e.Name,
			Score: Similarity(query, e.Name),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	best := scored[0]
	if best.Score < threshold {
		m.logger.Debug("entity match below threshold",
			"query", query, "best", best.Name, "score", best.Score, "threshold", threshold)
		return nil, nil
	}

	// Collect near-ties above threshold within the ambiguity margin.
	ties := []MatchCandidate{best}
	for _, c := range scored[1:] {
		if c.Score >= threshold && best.Score-c.Score <= m.margin {
			ties = append(ties, c)
		}
	}
	if len(ties) > 1 {
		if len(ties) > 5 {
			ties = ties[:5]
		}
		return nil, ties
	}
	return &best, nil
}

// Similarity scores two strings in [0,100] using the best of a full
// edit-distance ratio, a partial (substring window) ratio, and a token-set
// ratio. This tolerates containment, word reordering, and small misspellings,
// e.g. "root canal" against "Root Canal Therapy".
func Similarity(a, b string) int {
	a = normalizeName(a)
	b = normalizeName(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	score := fullRatio(a, b)
	if partial := partialRatio(a, b); partial > score {
		score = partial
	}
	if tokenSet := tokenSetRatio(a, b); tokenSet > score {
		score = tokenSet
	}
	return score
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

func fullRatio(a, b string) int {
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return (longest - dist) * 100 / longest
}

// partialRatio slides the shorter string across the longer one and keeps the
// best windowed ratio, so "gloves" scores high against "nitrile gloves box".
func partialRatio(a, b string) int {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	if strings.Contains(string(long), string(short)) {
		return 95
	}
	best := 0
	for i := 0; i+len(short) <= len(long); i++ {
		window := string(long[i : i+len(short)])
		if r := fullRatio(string(short), window); r > best {
			best = r
		}
	}
	return best
}

func tokenSetRatio(a, b string) int {
	tokensA := uniqueSortedTokens(a)
	tokensB := uniqueSortedTokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	var common, onlyA, onlyB []string
	seen := make(map[string]bool, len(tokensB))
	for _, t := range tokensB {
		seen[t] = true
	}
	for _, t := range tokensA {
		if seen[t] {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	commonSet := make(map[string]bool, len(common))
	for _, t := range common {
		commonSet[t] = true
	}
	for _, t := range tokensB {
		if !commonSet[t] {
			onlyB = append(onlyB, t)
		}
	}

	if len(common) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 95
	}

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))
	best := fullRatio(base, withA)
	if r := fullRatio(base, withB); r > best {
		best = r
	}
	if r := fullRatio(withA, withB); r > best {
		best = r
	}
	return best
}

func uniqueSortedTokens(s string) []string {
	fields := strings.Fields(s)
	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}
