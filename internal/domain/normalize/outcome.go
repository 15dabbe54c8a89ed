package normalize

import (
	"strings"

	"github.com/openbench/jurisync/internal/domain/model"
)

// outcomeHints map substrings of raw upstream outcome strings to canonical
// outcomes. When several hints match, the highest-confidence one wins and
// earlier entries break ties, so "summary judgment granted" resolves to
// judgment and "reversed and remanded" to reversed.
var outcomeHints = []struct {
	substring  string
	canonical  model.Outcome
	confidence float64
}{
	{"settle", model.OutcomeSettled, 0.9},
	{"consent judgment", model.OutcomeSettled, 0.8},
	{"stipulat", model.OutcomeSettled, 0.7},
	{"dismiss", model.OutcomeDismissed, 0.9},
	{"summary judgment", model.OutcomeJudgment, 0.9},
	{"default judgment", model.OutcomeJudgment, 0.9},
	{"judgment", model.OutcomeJudgment, 0.8},
	{"judgement", model.OutcomeJudgment, 0.8},
	{"verdict", model.OutcomeJudgment, 0.7},
	{"grant", model.OutcomeGranted, 0.85},
	{"sustain", model.OutcomeGranted, 0.7},
	{"denie", model.OutcomeDenied, 0.85},
	{"deny", model.OutcomeDenied, 0.85},
	{"overrul", model.OutcomeDenied, 0.7},
	{"withdraw", model.OutcomeWithdrawn, 0.9},
	{"voluntar", model.OutcomeWithdrawn, 0.6},
	{"affirm", model.OutcomeAffirmed, 0.9},
	{"upheld", model.OutcomeAffirmed, 0.75},
	{"revers", model.OutcomeReversed, 0.9},
	{"overturn", model.OutcomeReversed, 0.75},
	{"vacat", model.OutcomeVacated, 0.9},
	{"set aside", model.OutcomeVacated, 0.7},
	{"remand", model.OutcomeRemanded, 0.9},
	{"transfer", model.OutcomeOther, 0.5},
	{"moot", model.OutcomeOther, 0.5},
}

// Outcome maps a raw upstream outcome string onto the closed canonical
// enumeration. Exact matches return confidence 1.0. Otherwise substring
// heuristics produce a suggestion; values that trip no heuristic map to
// OutcomeOther with zero confidence so callers can route them to review.
func Outcome(raw string) Suggestion {
	key := strings.ToLower(collapseSpaces(raw))
	if key == "" {
		return Suggestion{Value: string(model.OutcomeOther), Confidence: 0}
	}

	exact := model.Outcome(key)
	if exact.Valid() {
		return Suggestion{Value: string(exact), Confidence: 1.0}
	}

	best := Suggestion{Value: string(model.OutcomeOther), Confidence: 0}
	for _, hint := range outcomeHints {
		if strings.Contains(key, hint.substring) && hint.confidence > best.Confidence {
			best = Suggestion{Value: string(hint.canonical), Confidence: hint.confidence}
		}
	}
	return best
}
